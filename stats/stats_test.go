package stats

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestWithTags(t *testing.T) {
	m := new(mockStats)
	s := WithTags(m, "env:production")

	m.On("Inc", "run.started", int64(1), float32(1), []string{"target:staging", "env:production"}).Return(nil)
	m.On("Timing", "run.duration", time.Second, float32(1), []string{"env:production"}).Return(nil)

	assert.NoError(t, s.Inc("run.started", 1, 1, []string{"target:staging"}))
	assert.NoError(t, s.Timing("run.duration", time.Second, 1, nil))

	m.AssertExpectations(t)
}

func TestContext(t *testing.T) {
	m := new(mockStats)
	ctx := WithStats(context.Background(), m)

	m.On("Inc", "notification.accepted", int64(1), float32(1), []string(nil)).Return(nil)

	assert.NoError(t, Inc(ctx, "notification.accepted", 1, 1, nil))
	assert.NoError(t, Inc(context.Background(), "notification.accepted", 1, 1, nil))

	m.AssertExpectations(t)
}

func TestSampleEvery(t *testing.T) {
	s := new(countingStats)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		SampleEvery(ctx, s, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return s.gauges.Load() > 0
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

type countingStats struct {
	nullStats
	gauges atomic.Int64
}

func (s *countingStats) Gauge(name string, value float32, rate float32, tags []string) error {
	s.gauges.Add(1)
	return nil
}

type mockStats struct {
	mock.Mock
}

func (m *mockStats) Inc(name string, value int64, rate float32, tags []string) error {
	args := m.Called(name, value, rate, tags)
	return args.Error(0)
}

func (m *mockStats) Timing(name string, value time.Duration, rate float32, tags []string) error {
	args := m.Called(name, value, rate, tags)
	return args.Error(0)
}

func (m *mockStats) Gauge(name string, value float32, rate float32, tags []string) error {
	args := m.Called(name, value, rate, tags)
	return args.Error(0)
}
