// Package stats implements the histogram framework spec.md names as
// an external collaborator the core only depends on through a narrow
// interface (§1 Non-goals): the propagation engine records watchers
// inspected, blocks visited, and parallel-variables consumed per
// batch (§4.2) without knowing how those counts are stored.
package stats

import "sort"

// Collector is the interface the core depends on — anything that can
// record a named sample. A solver run is built against this
// interface so tests can substitute a fake collector.
type Collector interface {
	Observe(name string, value float64)
}

// Histogram buckets recorded samples for a single named metric:
// count, sum, min, max, and a simple sorted-sample percentile lookup.
// Real production use would reach for exact streaming quantiles;
// exact sorting is fine at the sample volumes a single solver run
// produces.
type Histogram struct {
	Count   int
	Sum     float64
	Min     float64
	Max     float64
	samples []float64
}

// Set is a named collection of histograms, keyed by metric name, and
// is itself a Collector.
type Set struct {
	metrics map[string]*Histogram
}

// NewSet creates an empty metric set.
func NewSet() *Set {
	return &Set{metrics: make(map[string]*Histogram)}
}

// Observe records value under name, creating the histogram on first use.
func (s *Set) Observe(name string, value float64) {
	h, ok := s.metrics[name]
	if !ok {
		h = &Histogram{Min: value, Max: value}
		s.metrics[name] = h
	}
	h.Count++
	h.Sum += value
	h.samples = append(h.samples, value)
	if value < h.Min {
		h.Min = value
	}
	if value > h.Max {
		h.Max = value
	}
}

// Get returns the histogram for name, or nil if nothing was recorded.
func (s *Set) Get(name string) *Histogram {
	return s.metrics[name]
}

// Names returns every metric name observed so far, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.metrics))
	for n := range s.metrics {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Mean returns the histogram's sample mean, or 0 if empty.
func (h *Histogram) Mean() float64 {
	if h.Count == 0 {
		return 0
	}
	return h.Sum / float64(h.Count)
}

// Percentile returns the value at the given percentile (0-100),
// linearly interpolated between the two nearest samples.
func (h *Histogram) Percentile(p float64) float64 {
	if len(h.samples) == 0 {
		return 0
	}
	sorted := append([]float64(nil), h.samples...)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}
