package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/splitkit/pkg/logger"
	"github.com/dmitrymomot/splitkit/pkg/split"
)

// SplitStorage is the part of the split cache the synchronizer writes to.
type SplitStorage interface {
	IsEnabled(ctx context.Context) (bool, error)
	Disable(ctx context.Context) error
	GetChangeNumber(ctx context.Context) (int64, error)
	SetChangeNumber(ctx context.Context, changeNumber int64) error
	AddSplit(ctx context.Context, name string, s *split.Split) error
	RemoveSplit(ctx context.Context, name string) error
}

// SplitSynchronizer reconciles the split cache with the control plane.
type SplitSynchronizer struct {
	cache   SplitStorage
	fetcher SplitChangeFetcher
	parser  split.Parser
	logger  *slog.Logger
}

// NewSplitSynchronizer wires a synchronizer. A nil parser means split.DefaultParser.
func NewSplitSynchronizer(cache SplitStorage, fetcher SplitChangeFetcher, parser split.Parser, opts ...Option) *SplitSynchronizer {
	if parser == nil {
		parser = split.DefaultParser{}
	}
	o := applyOptions(opts)
	return &SplitSynchronizer{
		cache:   cache,
		fetcher: fetcher,
		parser:  parser,
		logger:  o.logger.With(logger.Component("split-synchronizer")),
	}
}

// UpdateSplits fetches split changes until the change number converges.
// It never returns an error: failures are logged and disable the split
// domain. Changes applied before a failure stay in the cache.
func (s *SplitSynchronizer) UpdateSplits(ctx context.Context) {
	err := func() (err error) {
		defer recoverTo(&err)
		return s.update(ctx)
	}()
	if err == nil {
		return
	}
	if ctx.Err() != nil {
		s.logger.InfoContext(ctx, "split synchronization interrupted", logger.Error(err))
		return
	}

	s.logger.ErrorContext(ctx, "split synchronization failed, disabling split updates", logger.Error(err))
	if err := s.cache.Disable(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to disable split updates", logger.Error(err))
	}
}

// Run adapts UpdateSplits to a periodic job handler.
func (s *SplitSynchronizer) Run(ctx context.Context) error {
	s.UpdateSplits(ctx)
	return nil
}

func (s *SplitSynchronizer) update(ctx context.Context) error {
	enabled, err := s.cache.IsEnabled(ctx)
	if err != nil {
		return errors.Join(ErrCacheOperation, err)
	}
	if !enabled {
		s.logger.DebugContext(ctx, "split updates disabled, skipping")
		return nil
	}

	till, err := s.cache.GetChangeNumber(ctx)
	if err != nil {
		return errors.Join(ErrCacheOperation, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := s.fetcher.FetchSplitChanges(ctx, till)
		if err != nil {
			return errors.Join(ErrFetchFailed, fmt.Errorf("since %d: %w", till, err))
		}
		if resp == nil {
			return ErrEmptyResponse
		}
		if till >= resp.Till {
			s.logger.DebugContext(ctx, "splits up to date", logger.Till(till))
			return nil
		}

		for _, raw := range resp.Splits {
			if err := s.apply(ctx, raw); err != nil {
				return err
			}
		}

		if err := s.cache.SetChangeNumber(ctx, resp.Till); err != nil {
			return errors.Join(ErrCacheOperation, err)
		}
		s.logger.InfoContext(ctx, "applied split changes",
			logger.Since(till),
			logger.Till(resp.Till),
			logger.Count(len(resp.Splits)))
		till = resp.Till
	}
}

// apply reconciles a single split change.
func (s *SplitSynchronizer) apply(ctx context.Context, raw split.RawSplit) error {
	if raw.Status != split.StatusActive {
		if err := s.cache.RemoveSplit(ctx, raw.Name); err != nil {
			return errors.Join(ErrCacheOperation, err)
		}
		return nil
	}

	parsed, err := s.parser.Parse(ctx, raw)
	if err == nil && parsed == nil {
		err = split.ErrInvalidSplit
	}
	switch {
	case errors.Is(err, split.ErrInvalidSplit):
		// never serve a definition we could not parse
		s.logger.WarnContext(ctx, "dropping unparseable split", logger.Split(raw.Name), logger.Error(err))
		if err := s.cache.RemoveSplit(ctx, raw.Name); err != nil {
			return errors.Join(ErrCacheOperation, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("parse split %q: %w", raw.Name, err)
	}

	if err := s.cache.AddSplit(ctx, raw.Name, parsed); err != nil {
		return errors.Join(ErrCacheOperation, err)
	}
	return nil
}
