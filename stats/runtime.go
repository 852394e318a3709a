package stats

import (
	"context"
	"runtime"
	"time"
)

// Runtime samples runtime stats every 30 seconds until ctx is done.
func Runtime(ctx context.Context, stats Stats) {
	SampleEvery(ctx, stats, 30*time.Second)
}

// SampleEvery samples runtime stats at the given interval until ctx is done.
func SampleEvery(ctx context.Context, stats Stats, d time.Duration) {
	t := time.NewTicker(d)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			newRuntimeSample().drain(stats)
		}
	}
}

// runtimeSample represents a sampling of the runtime stats.
type runtimeSample struct {
	runtime.MemStats
	NumGoroutine int
}

func newRuntimeSample() *runtimeSample {
	r := &runtimeSample{}
	runtime.ReadMemStats(&r.MemStats)
	r.NumGoroutine = runtime.NumGoroutine()
	return r
}

func (r *runtimeSample) drain(stats Stats) {
	stats.Gauge("runtime.NumGoroutine", float32(r.NumGoroutine), 1.0, nil)
	stats.Gauge("runtime.MemStats.Alloc", float32(r.Alloc), 1.0, nil)
	stats.Gauge("runtime.MemStats.HeapAlloc", float32(r.HeapAlloc), 1.0, nil)
	stats.Gauge("runtime.MemStats.HeapObjects", float32(r.HeapObjects), 1.0, nil)
	stats.Gauge("runtime.MemStats.HeapSys", float32(r.HeapSys), 1.0, nil)
	stats.Gauge("runtime.MemStats.NumGC", float32(r.NumGC), 1.0, nil)
	stats.Gauge("runtime.MemStats.StackInuse", float32(r.StackInuse), 1.0, nil)
}
