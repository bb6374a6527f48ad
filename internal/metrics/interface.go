package metrics

import (
	"context"
	"math"
	"time"

	"codeberg.org/mutker/usagemon/internal/errors"
)

// TotalEntity is the entity name of aggregate (whole-host) records.
const TotalEntity = "total"

// Scope is the granularity of a rollup record.
type Scope string

const (
	ScopeHourly Scope = "hourly"
	ScopeDaily  Scope = "daily"
	ScopeWeekly Scope = "weekly"
)

// Scopes lists all scopes from finest to coarsest.
func Scopes() []Scope {
	return []Scope{ScopeHourly, ScopeDaily, ScopeWeekly}
}

// IsValid returns whether the scope is known
func (s Scope) IsValid() bool {
	switch s {
	case ScopeHourly, ScopeDaily, ScopeWeekly:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (s Scope) String() string {
	return string(s)
}

// Key addresses one series of rollup records.
type Key struct {
	Resource string
	Scope    Scope
	Entity   string
}

// Record is one persisted rollup. Records are append-only.
type Record struct {
	Resource  string    `json:"resource"`
	Scope     Scope     `json:"scope"`
	Entity    string    `json:"entity"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Key returns the series the record belongs to.
func (r Record) Key() Key {
	return Key{Resource: r.Resource, Scope: r.Scope, Entity: r.Entity}
}

// Validate rejects records that can't be stored.
func (r Record) Validate() error {
	errFactory := errors.New()

	switch {
	case r.Resource == "":
		return errFactory.WithMessage(ErrInvalidRecord, "record has no resource")
	case !r.Scope.IsValid():
		return errFactory.WithData(ErrInvalidRecord, r.Scope)
	case r.Entity == "":
		return errFactory.WithMessage(ErrInvalidRecord, "record has no entity")
	case math.IsNaN(r.Value) || math.IsInf(r.Value, 0):
		return errFactory.WithData(ErrInvalidRecord, r.Value)
	case r.Timestamp.IsZero():
		return errFactory.WithMessage(ErrInvalidRecord, "record has no timestamp")
	}

	return nil
}

// Store persists rollup records and answers the lookups the rollup
// scheduler and the query surface need. Implementations must be safe for
// concurrent use.
type Store interface {
	// Append persists one record.
	Append(ctx context.Context, record Record) error

	// QueryLatest returns the most recent record of a series. The boolean is
	// false when the series is empty.
	QueryLatest(ctx context.Context, key Key) (Record, bool, error)

	// QueryRecent returns up to limit records of a series, most recent first.
	QueryRecent(ctx context.Context, key Key, limit int) ([]Record, error)

	// Entities lists the entities with at least one record of scope.
	Entities(ctx context.Context, resource string, scope Scope) ([]string, error)

	Close() error
}
