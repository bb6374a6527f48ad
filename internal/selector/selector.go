// Package selector reduces a per-process breakdown to a bounded set of
// entities: the largest consumers plus catch-all and categorical buckets.
package selector

import (
	"sort"
	"strings"
	"sync"

	"codeberg.org/mutker/usagemon/internal/metrics"
	"codeberg.org/mutker/usagemon/internal/sampler"
	"codeberg.org/mutker/usagemon/internal/stats"
)

// DefaultOther names the catch-all bucket.
const DefaultOther = "Other"

// reservedSuffix is appended to a process whose name collides with the
// aggregate total or a bucket.
const reservedSuffix = " (process)"

// Category folds readings of the listed process names into one bucket.
type Category struct {
	Name      string   `mapstructure:"name"`
	Processes []string `mapstructure:"processes"`
}

// Rules configure a Selector.
type Rules struct {
	Threshold  float64
	TopK       int
	Other      string
	Categories []Category
	Exclude    []string
	// Freeze fixes the tracked entities to the top-K of the first
	// evaluation.
	Freeze bool
}

// Selector applies Rules to successive reading batches. It is safe for
// concurrent use.
type Selector struct {
	rules    Rules
	exclude  map[string]struct{}
	category map[string]int
	reserved map[string]struct{}

	mu      sync.Mutex
	tracked map[string]struct{}
}

func New(rules Rules) *Selector {
	if rules.Other == "" {
		rules.Other = DefaultOther
	}
	if rules.TopK < 0 {
		rules.TopK = 0
	}

	s := &Selector{
		rules:    rules,
		exclude:  make(map[string]struct{}, len(rules.Exclude)),
		category: make(map[string]int),
		reserved: map[string]struct{}{
			metrics.TotalEntity: {},
			rules.Other:         {},
		},
	}

	for _, name := range rules.Exclude {
		s.exclude[strings.ToLower(name)] = struct{}{}
	}
	for i, c := range rules.Categories {
		s.reserved[c.Name] = struct{}{}
		for _, p := range c.Processes {
			s.category[strings.ToLower(p)] = i
		}
	}

	return s
}

// Rules returns the rules the selector was built with.
func (s *Selector) Rules() Rules {
	return s.rules
}

// Select returns the retained entities in descending order, followed by the
// catch-all bucket and the categorical buckets when they are non-zero.
// Bucket values are rounded to two decimals. A process named like the
// aggregate total or a bucket is reported with a " (process)" suffix.
func (s *Selector) Select(readings []sampler.Reading) []sampler.Reading {
	var other float64
	buckets := make([]float64, len(s.rules.Categories))
	survivors := make([]sampler.Reading, 0, len(readings))
	index := make(map[string]int)

	for _, r := range readings {
		key := strings.ToLower(r.Entity)
		if _, ok := s.exclude[key]; ok {
			continue
		}
		if i, ok := s.category[key]; ok {
			buckets[i] += r.Value
			continue
		}
		if r.Value < s.rules.Threshold {
			other += r.Value
			continue
		}

		if _, ok := s.reserved[r.Entity]; ok {
			r.Entity += reservedSuffix
		}
		if i, ok := index[r.Entity]; ok {
			survivors[i].Value += r.Value
			continue
		}
		index[r.Entity] = len(survivors)
		survivors = append(survivors, r)
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Value > survivors[j].Value
	})

	kept, folded := s.partition(survivors)
	other += folded

	out := make([]sampler.Reading, 0, len(kept)+1+len(buckets))
	out = append(out, kept...)

	if v := stats.Round(other); v > 0 {
		out = append(out, sampler.Reading{Entity: s.rules.Other, Value: v})
	}
	for i, c := range s.rules.Categories {
		if v := stats.Round(buckets[i]); v > 0 {
			out = append(out, sampler.Reading{Entity: c.Name, Value: v})
		}
	}

	return out
}

// partition splits sorted survivors into retained readings and the summed
// value of everything else.
func (s *Selector) partition(sorted []sampler.Reading) ([]sampler.Reading, float64) {
	if !s.rules.Freeze {
		return split(sorted, s.rules.TopK)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracked == nil {
		kept, folded := split(sorted, s.rules.TopK)
		s.tracked = make(map[string]struct{}, len(kept))
		for _, r := range kept {
			s.tracked[r.Entity] = struct{}{}
		}
		return kept, folded
	}

	var (
		kept   []sampler.Reading
		folded float64
	)
	for _, r := range sorted {
		if _, ok := s.tracked[r.Entity]; ok {
			kept = append(kept, r)
			continue
		}
		folded += r.Value
	}

	return kept, folded
}

// Tracked returns the frozen entity names, or nil before the first
// evaluation or when freezing is disabled.
func (s *Selector) Tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracked == nil {
		return nil
	}

	names := make([]string, 0, len(s.tracked))
	for name := range s.tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func split(sorted []sampler.Reading, k int) ([]sampler.Reading, float64) {
	if k > len(sorted) {
		k = len(sorted)
	}

	var folded float64
	for _, r := range sorted[k:] {
		folded += r.Value
	}

	return sorted[:k], folded
}
