package split_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/splitkit/pkg/split"
)

func segmentCondition(segment string) split.RawCondition {
	return split.RawCondition{
		MatcherGroup: split.RawMatcherGroup{
			Combiner: split.CombinerAnd,
			Matchers: []split.RawMatcher{{
				MatcherType:               split.MatcherInSegment,
				UserDefinedSegmentMatcher: &split.SegmentMatcherData{SegmentName: segment},
			}},
		},
		Partitions: []split.Partition{{Treatment: "on", Size: 100}},
		Label:      "in segment " + segment,
	}
}

func allKeysCondition() split.RawCondition {
	return split.RawCondition{
		MatcherGroup: split.RawMatcherGroup{
			Matchers: []split.RawMatcher{{MatcherType: split.MatcherAllKeys}},
		},
		Partitions: []split.Partition{{Treatment: "on", Size: 50}, {Treatment: "off", Size: 50}},
	}
}

type recordingRegistry struct {
	names []string
	err   error
}

func (r *recordingRegistry) RegisterSegment(_ context.Context, name string) error {
	if r.err != nil {
		return r.err
	}
	r.names = append(r.names, name)
	return nil
}

func TestDefaultParser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	parser := split.DefaultParser{}

	t.Run("parses valid split", func(t *testing.T) {
		t.Parallel()
		s, err := parser.Parse(ctx, split.RawSplit{
			Name:         "checkout",
			Status:       split.StatusActive,
			Seed:         42,
			ChangeNumber: 10,
			Conditions: []split.RawCondition{
				{
					MatcherGroup: split.RawMatcherGroup{Matchers: []split.RawMatcher{{
						MatcherType:      split.MatcherWhitelist,
						WhitelistMatcher: &split.WhitelistMatcherData{Whitelist: []string{"alice"}},
					}}},
					Partitions: []split.Partition{{Treatment: "on", Size: 100}},
				},
				segmentCondition("beta"),
				allKeysCondition(),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "checkout", s.Name)
		assert.Equal(t, split.ControlTreatment, s.DefaultTreatment)
		assert.Equal(t, int64(10), s.ChangeNumber)
		require.Len(t, s.Conditions, 3)
		assert.Equal(t, []string{"alice"}, s.Conditions[0].Matchers[0].Whitelist)
		assert.Equal(t, []string{"beta"}, s.Segments())
	})

	tests := []struct {
		name string
		raw  split.RawSplit
	}{
		{name: "empty name", raw: split.RawSplit{}},
		{name: "unknown matcher", raw: split.RawSplit{Name: "x", Conditions: []split.RawCondition{{
			MatcherGroup: split.RawMatcherGroup{Matchers: []split.RawMatcher{{MatcherType: "GREATER_THAN"}}},
			Partitions:   []split.Partition{{Treatment: "on", Size: 100}},
		}}}},
		{name: "partitions not 100", raw: split.RawSplit{Name: "x", Conditions: []split.RawCondition{{
			MatcherGroup: split.RawMatcherGroup{Matchers: []split.RawMatcher{{MatcherType: split.MatcherAllKeys}}},
			Partitions:   []split.Partition{{Treatment: "on", Size: 60}},
		}}}},
		{name: "segment matcher without name", raw: split.RawSplit{Name: "x", Conditions: []split.RawCondition{{
			MatcherGroup: split.RawMatcherGroup{Matchers: []split.RawMatcher{{MatcherType: split.MatcherInSegment}}},
			Partitions:   []split.Partition{{Treatment: "on", Size: 100}},
		}}}},
		{name: "or combiner", raw: split.RawSplit{Name: "x", Conditions: []split.RawCondition{{
			MatcherGroup: split.RawMatcherGroup{Combiner: "OR", Matchers: []split.RawMatcher{{MatcherType: split.MatcherAllKeys}}},
			Partitions:   []split.Partition{{Treatment: "on", Size: 100}},
		}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := parser.Parse(ctx, tt.raw)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, split.ErrInvalidSplit)
		})
	}
}

func TestSegmentRegisteringParser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("registers referenced segments", func(t *testing.T) {
		t.Parallel()
		registry := &recordingRegistry{}
		parser := split.NewSegmentRegisteringParser(nil, registry)

		s, err := parser.Parse(ctx, split.RawSplit{
			Name:       "x",
			Conditions: []split.RawCondition{segmentCondition("a"), segmentCondition("b"), segmentCondition("a"), allKeysCondition()},
		})
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, []string{"a", "b"}, registry.names)
	})

	t.Run("does not register for invalid splits", func(t *testing.T) {
		t.Parallel()
		registry := &recordingRegistry{}
		parser := split.NewSegmentRegisteringParser(split.DefaultParser{}, registry)

		_, err := parser.Parse(ctx, split.RawSplit{})
		assert.ErrorIs(t, err, split.ErrInvalidSplit)
		assert.Empty(t, registry.names)
	})

	t.Run("passes a nil result through", func(t *testing.T) {
		t.Parallel()
		registry := &recordingRegistry{}
		next := split.ParserFunc(func(context.Context, split.RawSplit) (*split.Split, error) {
			return nil, nil
		})
		parser := split.NewSegmentRegisteringParser(next, registry)

		var s *split.Split
		var err error
		require.NotPanics(t, func() { s, err = parser.Parse(ctx, split.RawSplit{Name: "x"}) })
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.Empty(t, registry.names)
	})

	t.Run("surfaces registry failures as infrastructure errors", func(t *testing.T) {
		t.Parallel()
		registry := &recordingRegistry{err: errors.New("store down")}
		parser := split.NewSegmentRegisteringParser(nil, registry)

		_, err := parser.Parse(ctx, split.RawSplit{Name: "x", Conditions: []split.RawCondition{segmentCondition("a")}})
		require.Error(t, err)
		assert.ErrorIs(t, err, split.ErrSegmentRegistration)
		assert.NotErrorIs(t, err, split.ErrInvalidSplit)
	})
}
