// Package stats provides an interface for instrumenting deployhook.
package stats

import (
	"context"
	"time"
)

// Stats provides an interface for generating instruments, like gauges, counts
// and timings.
type Stats interface {
	Inc(name string, value int64, rate float32, tags []string) error
	Timing(name string, value time.Duration, rate float32, tags []string) error
	Gauge(name string, value float32, rate float32, tags []string) error
}

type nullStats struct{}

func (s *nullStats) Inc(name string, value int64, rate float32, tags []string) error {
	return nil
}

func (s *nullStats) Timing(name string, value time.Duration, rate float32, tags []string) error {
	return nil
}

func (s *nullStats) Gauge(name string, value float32, rate float32, tags []string) error {
	return nil
}

// Null is a Stats implementation that discards everything.
var Null = &nullStats{}

// taggedStats wraps a Stats implementation to include some additional tags.
type taggedStats struct {
	tags  []string
	stats Stats
}

// WithTags wraps s so that every instrument includes the given tags.
func WithTags(s Stats, tags ...string) Stats {
	return &taggedStats{tags: tags, stats: s}
}

func (s *taggedStats) Inc(name string, value int64, rate float32, tags []string) error {
	return s.stats.Inc(name, value, rate, s.with(tags))
}

func (s *taggedStats) Timing(name string, value time.Duration, rate float32, tags []string) error {
	return s.stats.Timing(name, value, rate, s.with(tags))
}

func (s *taggedStats) Gauge(name string, value float32, rate float32, tags []string) error {
	return s.stats.Gauge(name, value, rate, s.with(tags))
}

func (s *taggedStats) with(tags []string) []string {
	out := make([]string, 0, len(tags)+len(s.tags))
	out = append(out, tags...)
	return append(out, s.tags...)
}

// WithStats returns a new context.Context with the Stats implementation
// embedded.
func WithStats(ctx context.Context, stats Stats) context.Context {
	return context.WithValue(ctx, statsKey, stats)
}

// FromContext returns the Stats implementation that's embedded in the context.
func FromContext(ctx context.Context) (Stats, bool) {
	stats, ok := ctx.Value(statsKey).(Stats)
	return stats, ok
}

func Inc(ctx context.Context, name string, value int64, rate float32, tags []string) error {
	if stats, ok := FromContext(ctx); ok {
		return stats.Inc(name, value, rate, tags)
	}
	return nil
}

func Timing(ctx context.Context, name string, value time.Duration, rate float32, tags []string) error {
	if stats, ok := FromContext(ctx); ok {
		return stats.Timing(name, value, rate, tags)
	}
	return nil
}

type key int

const (
	statsKey key = iota
)
