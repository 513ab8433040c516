package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/splitkit/pkg/logger"
)

// SegmentStorage is the part of the segment cache the synchronizer writes to.
type SegmentStorage interface {
	IsEnabled(ctx context.Context) (bool, error)
	Disable(ctx context.Context) error
	GetRegisteredSegments(ctx context.Context) ([]string, error)
	GetChangeNumber(ctx context.Context, name string) (int64, error)
	SetChangeNumber(ctx context.Context, name string, changeNumber int64) error
	AddKeysToSegment(ctx context.Context, name string, keys []string) error
	RemoveKeysFromSegment(ctx context.Context, name string, keys []string) error
}

// SegmentSynchronizer reconciles the membership of every registered segment.
type SegmentSynchronizer struct {
	cache   SegmentStorage
	fetcher SegmentChangeFetcher
	logger  *slog.Logger
}

func NewSegmentSynchronizer(cache SegmentStorage, fetcher SegmentChangeFetcher, opts ...Option) *SegmentSynchronizer {
	o := applyOptions(opts)
	return &SegmentSynchronizer{
		cache:   cache,
		fetcher: fetcher,
		logger:  o.logger.With(logger.Component("segment-synchronizer")),
	}
}

// UpdateSegments synchronizes every registered segment in turn. A failure on
// any one segment disables the whole segment domain and stops the batch.
func (s *SegmentSynchronizer) UpdateSegments(ctx context.Context) {
	s.guard(ctx, func() error {
		names, err := s.cache.GetRegisteredSegments(ctx)
		if err != nil {
			return errors.Join(ErrCacheOperation, err)
		}
		for _, name := range names {
			if err := s.updateSegment(ctx, name); err != nil {
				return fmt.Errorf("segment %q: %w", name, err)
			}
		}
		return nil
	})
}

// UpdateSegment synchronizes one segment with the same failure policy as
// UpdateSegments.
func (s *SegmentSynchronizer) UpdateSegment(ctx context.Context, name string) {
	s.guard(ctx, func() error {
		if err := s.updateSegment(ctx, name); err != nil {
			return fmt.Errorf("segment %q: %w", name, err)
		}
		return nil
	})
}

// Run adapts UpdateSegments to a periodic job handler.
func (s *SegmentSynchronizer) Run(ctx context.Context) error {
	s.UpdateSegments(ctx)
	return nil
}

// guard checks the gate, runs fn and disables the domain if fn fails.
func (s *SegmentSynchronizer) guard(ctx context.Context, fn func() error) {
	err := func() (err error) {
		defer recoverTo(&err)
		enabled, err := s.cache.IsEnabled(ctx)
		if err != nil {
			return errors.Join(ErrCacheOperation, err)
		}
		if !enabled {
			s.logger.DebugContext(ctx, "segment updates disabled, skipping")
			return nil
		}
		return fn()
	}()
	if err == nil {
		return
	}
	if ctx.Err() != nil {
		s.logger.InfoContext(ctx, "segment synchronization interrupted", logger.Error(err))
		return
	}

	s.logger.ErrorContext(ctx, "segment synchronization failed, disabling segment updates", logger.Error(err))
	if err := s.cache.Disable(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to disable segment updates", logger.Error(err))
	}
}

func (s *SegmentSynchronizer) updateSegment(ctx context.Context, name string) error {
	till, err := s.cache.GetChangeNumber(ctx, name)
	if err != nil {
		return errors.Join(ErrCacheOperation, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := s.fetcher.FetchSegmentChanges(ctx, name, till)
		if err != nil {
			return errors.Join(ErrFetchFailed, fmt.Errorf("since %d: %w", till, err))
		}
		if resp == nil {
			return ErrEmptyResponse
		}
		if till >= resp.Till {
			return nil
		}

		// removals first so a key listed in both ends up present
		if err := s.cache.RemoveKeysFromSegment(ctx, name, resp.Removed); err != nil {
			return errors.Join(ErrCacheOperation, err)
		}
		if err := s.cache.AddKeysToSegment(ctx, name, resp.Added); err != nil {
			return errors.Join(ErrCacheOperation, err)
		}
		if err := s.cache.SetChangeNumber(ctx, name, resp.Till); err != nil {
			return errors.Join(ErrCacheOperation, err)
		}

		s.logger.InfoContext(ctx, "applied segment changes",
			logger.Segment(name),
			logger.Since(till),
			logger.Till(resp.Till),
			slog.Int("added", len(resp.Added)),
			slog.Int("removed", len(resp.Removed)))
		till = resp.Till
	}
}
