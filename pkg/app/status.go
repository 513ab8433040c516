package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/splitkit/pkg/splitcache"
)

// DomainState is the gate state of one cache domain.
type DomainState struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// SegmentState is the watermark of one registered segment.
type SegmentState struct {
	Name         string `json:"name"`
	ChangeNumber int64  `json:"change_number"`
}

// Status is a point-in-time view of the shared cache.
type Status struct {
	Domains           []DomainState  `json:"domains"`
	SplitChangeNumber int64          `json:"split_change_number"`
	Segments          []SegmentState `json:"segments"`
}

// Status reads gate states and change numbers from the store.
func (a *App) Status(ctx context.Context) (*Status, error) {
	st := &Status{}
	var errs []error
	for _, name := range Domains {
		enabled, err := a.gate(name).IsEnabled(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		st.Domains = append(st.Domains, DomainState{Name: name, Enabled: enabled})
	}

	cn, err := a.Splits.GetChangeNumber(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	st.SplitChangeNumber = cn

	names, err := a.Segments.GetRegisteredSegments(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	for _, name := range names {
		cn, err := a.Segments.GetChangeNumber(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		st.Segments = append(st.Segments, SegmentState{Name: name, ChangeNumber: cn})
	}

	return st, errors.Join(errs...)
}

// Domains lists the cache domains in display order.
var Domains = []string{TaskSplits, TaskSegments, TaskImpressions, TaskMetrics}

func (a *App) gate(domain string) *splitcache.Gate {
	switch domain {
	case TaskSplits:
		return a.Splits.Gate
	case TaskSegments:
		return a.Segments.Gate
	case TaskImpressions:
		return a.Impressions.Gate
	case TaskMetrics:
		return a.Metrics.Gate
	}
	return nil
}

// Enable reopens a disabled domain before its cooldown expires.
func (a *App) Enable(ctx context.Context, domain string) error {
	g := a.gate(domain)
	if g == nil {
		return fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	return g.Enable(ctx)
}
