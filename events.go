package deployhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/remind101/deployhook/internal/logger"
)

// Event represents an event triggered within deployhook.
type Event interface {
	// Returns the name of the event.
	Event() string

	// Returns a human readable string about the event.
	String() string
}

// RunEvent is triggered when a deployment starts and again when it finishes.
type RunEvent struct {
	Target       string        `json:"target"`
	Version      string        `json:"version"`
	DeploymentID string        `json:"deployment_id"`
	Finished     bool          `json:"finished"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
}

func (e RunEvent) Event() string {
	return "run"
}

// Failed returns true if the deployment finished with an error.
func (e RunEvent) Failed() bool {
	return e.Finished && e.Error != ""
}

func (e RunEvent) String() string {
	version := VersionString(e.Version)
	switch {
	case !e.Finished:
		return fmt.Sprintf("Deploying %s to %s", version, e.Target)
	case e.Failed():
		return fmt.Sprintf("Failed to deploy %s to %s: %s", version, e.Target, e.Error)
	default:
		return fmt.Sprintf("Deployed %s to %s (%v)", version, e.Target, e.Duration.Round(time.Millisecond))
	}
}

// EventStream is an interface for publishing events that happen within
// deployhook.
type EventStream interface {
	PublishEvent(Event) error
}

// EventStreamFunc is a function that implements the EventStream interface.
type EventStreamFunc func(Event) error

func (fn EventStreamFunc) PublishEvent(event Event) error {
	return fn(event)
}

// NullEventStream an events service that does nothing.
var NullEventStream = EventStreamFunc(func(event Event) error {
	return nil
})

// MultiEventStream is an EventStream implementation that publishes the event
// to multiple EventStreams, returning any errors after publishing to all
// streams.
type MultiEventStream []EventStream

func (streams MultiEventStream) PublishEvent(e Event) error {
	var result *multierror.Error
	for _, s := range streams {
		if err := s.PublishEvent(e); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// AsyncEventStream wraps an EventStream to publish events asynchronously in a
// goroutine.
type AsyncEventStream struct {
	ctx    context.Context
	e      EventStream
	events chan Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// AsyncEvents returns a new EventStream that publishes to e from a separate
// goroutine. It buffers up to 100 events before applying backpressure.
// Publishing errors are logged to the logger embedded in ctx.
func AsyncEvents(ctx context.Context, e EventStream) *AsyncEventStream {
	s := &AsyncEventStream{
		ctx:    ctx,
		e:      e,
		events: make(chan Event, 100),
		done:   make(chan struct{}),
	}
	go s.start()
	return s
}

func (e *AsyncEventStream) PublishEvent(event Event) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrEventStreamClosed
	}
	e.events <- event
	return nil
}

// Close stops accepting events and waits until the buffered events have been
// published, or ctx is done.
func (e *AsyncEventStream) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.events)
	}
	e.mu.Unlock()

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *AsyncEventStream) start() {
	defer close(e.done)
	for event := range e.events {
		err := e.publishEvent(event)
		if err != nil {
			logger.Error(e.ctx, "events.publish.error", "event", event.Event(), "err", err)
		}
	}
}

func (e *AsyncEventStream) publishEvent(event Event) (err error) {
	defer func() {
		if v := recover(); v != nil {
			var ok bool
			if err, ok = v.(error); ok {
				return
			}

			err = fmt.Errorf("panic: %v", v)
		}
	}()
	err = e.e.PublishEvent(event)
	return
}
