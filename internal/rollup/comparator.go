package rollup

import (
	"context"

	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/logger"
	"codeberg.org/mutker/usagemon/internal/metrics"
)

// DefaultIncreaseRatio flags a rollup larger than 120% of its predecessor.
const DefaultIncreaseRatio = 1.2

// Verdict classifies a rollup against the previous record of its series.
type Verdict uint8

const (
	VerdictFirst Verdict = iota
	VerdictNormal
	VerdictIncrease
	VerdictUnavailable
	VerdictExempt
)

func (v Verdict) String() string {
	switch v {
	case VerdictFirst:
		return "first"
	case VerdictNormal:
		return "normal"
	case VerdictIncrease:
		return "increase"
	case VerdictUnavailable:
		return "unavailable"
	case VerdictExempt:
		return "exempt"
	default:
		return "unknown"
	}
}

// Event is the outcome of one comparison.
type Event struct {
	Record   metrics.Record
	Previous float64
	Verdict  Verdict
}

// Comparator flags rollups that increased sharply against the latest stored
// record of the same series.
type Comparator struct {
	store  metrics.Store
	ratio  float64
	exempt map[string]struct{}
}

// NewComparator creates a comparator. Entities listed in exempt are never
// compared.
func NewComparator(store metrics.Store, ratio float64, exempt []string) (*Comparator, error) {
	if ratio <= 1 {
		return nil, errors.New().WithData(errors.ErrInvalidRatio, ratio)
	}

	c := &Comparator{
		store:  store,
		ratio:  ratio,
		exempt: make(map[string]struct{}, len(exempt)),
	}
	for _, e := range exempt {
		c.exempt[e] = struct{}{}
	}

	return c, nil
}

// Compare must run before rec is appended. Lookup failures never prevent
// the caller from persisting.
func (c *Comparator) Compare(ctx context.Context, rec metrics.Record) Event {
	ev := Event{Record: rec}

	if _, ok := c.exempt[rec.Entity]; ok {
		ev.Verdict = VerdictExempt
		return ev
	}

	prev, found, err := c.store.QueryLatest(ctx, rec.Key())
	switch {
	case err != nil:
		ev.Verdict = VerdictUnavailable
		logger.Warn().
			Str("code", string(errors.ErrStoreRead)).
			Str("resource", rec.Resource).
			Str("scope", rec.Scope.String()).
			Str("entity", rec.Entity).
			Err(err).
			Msg("Previous rollup unavailable, skipping comparison")
		return ev
	case !found:
		ev.Verdict = VerdictFirst
		return ev
	}

	ev.Previous = prev.Value

	if rec.Value > prev.Value*c.ratio {
		ev.Verdict = VerdictIncrease
		logger.Warn().
			Str("resource", rec.Resource).
			Str("scope", rec.Scope.String()).
			Str("entity", rec.Entity).
			Float64("previous", prev.Value).
			Float64("current", rec.Value).
			Msg("Usage increased")
		return ev
	}

	ev.Verdict = VerdictNormal
	logger.Info().
		Str("resource", rec.Resource).
		Str("scope", rec.Scope.String()).
		Str("entity", rec.Entity).
		Float64("previous", prev.Value).
		Float64("current", rec.Value).
		Msg("Usage within range")

	return ev
}
