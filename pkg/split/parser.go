package split

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Parser turns a raw split change into a Split.
// Errors matching ErrInvalidSplit mean the definition is unusable; any other
// error is an infrastructure failure.
type Parser interface {
	Parse(ctx context.Context, raw RawSplit) (*Split, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, raw RawSplit) (*Split, error)

func (f ParserFunc) Parse(ctx context.Context, raw RawSplit) (*Split, error) {
	return f(ctx, raw)
}

// DefaultParser validates matchers and partitions.
type DefaultParser struct{}

func (DefaultParser) Parse(_ context.Context, raw RawSplit) (*Split, error) {
	if raw.Name == "" {
		return nil, errors.Join(ErrInvalidSplit, errors.New("split name cannot be empty"))
	}

	s := &Split{
		Name:             raw.Name,
		TrafficTypeName:  raw.TrafficTypeName,
		Seed:             raw.Seed,
		Killed:           raw.Killed,
		DefaultTreatment: raw.DefaultTreatment,
		ChangeNumber:     raw.ChangeNumber,
		Conditions:       make([]Condition, 0, len(raw.Conditions)),
	}
	if s.DefaultTreatment == "" {
		s.DefaultTreatment = ControlTreatment
	}

	for i, rc := range raw.Conditions {
		cond, err := parseCondition(rc)
		if err != nil {
			return nil, errors.Join(ErrInvalidSplit, fmt.Errorf("split %q condition %d: %w", raw.Name, i, err))
		}
		s.Conditions = append(s.Conditions, cond)
	}

	return s, nil
}

func parseCondition(rc RawCondition) (Condition, error) {
	if rc.MatcherGroup.Combiner != "" && rc.MatcherGroup.Combiner != CombinerAnd {
		return Condition{}, fmt.Errorf("unsupported combiner %q", rc.MatcherGroup.Combiner)
	}
	if len(rc.MatcherGroup.Matchers) == 0 {
		return Condition{}, errors.New("condition has no matchers")
	}

	total := 0
	for _, p := range rc.Partitions {
		if p.Size < 0 || p.Treatment == "" {
			return Condition{}, fmt.Errorf("invalid partition %+v", p)
		}
		total += p.Size
	}
	if total != 100 {
		return Condition{}, fmt.Errorf("partitions sum to %d, want 100", total)
	}

	cond := Condition{
		Matchers:   make([]Matcher, 0, len(rc.MatcherGroup.Matchers)),
		Partitions: slices.Clone(rc.Partitions),
		Label:      rc.Label,
	}
	for _, rm := range rc.MatcherGroup.Matchers {
		m := Matcher{Type: rm.MatcherType, Negate: rm.Negate}
		switch rm.MatcherType {
		case MatcherAllKeys:
		case MatcherInSegment:
			if rm.UserDefinedSegmentMatcher == nil || rm.UserDefinedSegmentMatcher.SegmentName == "" {
				return Condition{}, errors.New("IN_SEGMENT matcher without segment name")
			}
			m.Segment = rm.UserDefinedSegmentMatcher.SegmentName
		case MatcherWhitelist:
			if rm.WhitelistMatcher == nil {
				return Condition{}, errors.New("WHITELIST matcher without data")
			}
			m.Whitelist = slices.Clone(rm.WhitelistMatcher.Whitelist)
		default:
			return Condition{}, fmt.Errorf("unsupported matcher %q", rm.MatcherType)
		}
		cond.Matchers = append(cond.Matchers, m)
	}
	return cond, nil
}

// SegmentRegistry records which segments need to be synchronized.
type SegmentRegistry interface {
	RegisterSegment(ctx context.Context, name string) error
}

// SegmentRegisteringParser wraps a Parser and registers every segment an
// IN_SEGMENT matcher refers to, so the segment synchronizer knows what to poll.
type SegmentRegisteringParser struct {
	next     Parser
	registry SegmentRegistry
}

// NewSegmentRegisteringParser wraps next. A nil next means DefaultParser.
func NewSegmentRegisteringParser(next Parser, registry SegmentRegistry) *SegmentRegisteringParser {
	if next == nil {
		next = DefaultParser{}
	}
	return &SegmentRegisteringParser{next: next, registry: registry}
}

func (p *SegmentRegisteringParser) Parse(ctx context.Context, raw RawSplit) (*Split, error) {
	s, err := p.next.Parse(ctx, raw)
	if err != nil || s == nil {
		return nil, err
	}
	for _, name := range s.Segments() {
		if err := p.registry.RegisterSegment(ctx, name); err != nil {
			return nil, errors.Join(ErrSegmentRegistration, fmt.Errorf("segment %q: %w", name, err))
		}
	}
	return s, nil
}
