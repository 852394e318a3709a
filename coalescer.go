package deployhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/remind101/deployhook/internal/logger"
	"github.com/remind101/deployhook/stats"
)

// State is the state of a target's deployment loop.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Run is the record of a single deployment, as reported by Status.
type Run struct {
	ID         string     `json:"id"`
	Version    string     `json:"version"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	Output     string     `json:"output,omitempty"`
}

// Succeeded returns true if the run finished without an error.
func (r *Run) Succeeded() bool {
	return r.FinishedAt != nil && r.Error == ""
}

// TargetStatus is a point in time snapshot of a target's deployment loop.
type TargetStatus struct {
	Target         string `json:"target"`
	State          State  `json:"state"`
	Pending        bool   `json:"pending"`
	PendingVersion string `json:"pending_version,omitempty"`
	Current        *Run   `json:"current,omitempty"`
	Last           *Run   `json:"last,omitempty"`
}

// slot holds the mutable state for a single target. All fields after mu are
// protected by it.
type slot struct {
	target *Target

	mu sync.Mutex

	// Whether a run goroutine currently owns this target.
	running bool

	// The latest version that hasn't been picked up by a run yet.
	pending     string
	pendingNote Notification
	hasPending  bool
	current     *Run
	last        *Run
}

// Coalescer runs the deploy action for each target, one at a time per target.
// Notifications that arrive while a target is deploying are collapsed, so
// that when the current deployment finishes only the most recent version is
// deployed.
type Coalescer struct {
	// Deployer performs the deploy action.
	Deployer Deployer

	// EventStream receives a RunEvent when a deployment starts and
	// finishes. The zero value is NullEventStream.
	EventStream EventStream

	// Stats receives counters and timings. The zero value is stats.Null.
	Stats stats.Stats

	// Base context for deployments. Loggers embedded here are used for
	// deployment logs.
	ctx context.Context

	// Registry of per target state, built at construction time and never
	// modified.
	slots map[string]*slot

	// Protects closed. Notify holds a read lock while it may start a run
	// goroutine, so that Shutdown can't miss one.
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// NewCoalescer returns a Coalescer for the given targets. ctx is the base
// context for every deployment and is not expected to be canceled.
func NewCoalescer(ctx context.Context, targets *Targets, d Deployer) *Coalescer {
	c := &Coalescer{
		Deployer: d,
		ctx:      ctx,
		slots:    make(map[string]*slot),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, name := range targets.Names() {
		t, _ := targets.Get(name)
		c.slots[name] = &slot{target: t}
	}
	return c
}

// Notify records n as the latest version for its target. If the target is
// idle, a deployment is started in a new goroutine. Otherwise the version
// will be picked up when the current deployment finishes. Notify never waits
// for a deployment.
func (c *Coalescer) Notify(ctx context.Context, n Notification) error {
	s, ok := c.slots[n.Target]
	if !ok {
		return ErrUnauthorized
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		logger.Warn(ctx, "notification.dropped", "target", n.Target, "version", n.Version, "reason", "shutting down")
		c.inc("notification.dropped", n.Target)
		return ErrUnavailable
	}

	s.mu.Lock()
	s.pending = n.Version
	s.pendingNote = n
	s.hasPending = true

	if s.running {
		s.mu.Unlock()
		logger.Info(ctx, "notification.coalesced", "target", n.Target, "version", n.Version)
		c.inc("notification.coalesced", n.Target)
		return nil
	}

	s.running = true
	d := c.take(s)
	s.mu.Unlock()

	c.wg.Add(1)
	go c.run(s, d)

	return nil
}

// take builds a Deployment from the pending version and clears it. s.mu must
// be held.
func (c *Coalescer) take(s *slot) Deployment {
	d := Deployment{
		ID:           c.newID(),
		Target:       s.target,
		Version:      s.pending,
		Notification: s.pendingNote,
	}

	s.pending = ""
	s.pendingNote = Notification{}
	s.hasPending = false
	s.current = &Run{
		ID:        d.ID,
		Version:   d.Version,
		StartedAt: c.now(),
	}

	return d
}

// run owns s until no pending version remains.
func (c *Coalescer) run(s *slot, d Deployment) {
	defer c.wg.Done()

	for {
		run := c.deploy(s, d)

		s.mu.Lock()
		s.last = run
		if !s.hasPending {
			s.running = false
			s.current = nil
			s.mu.Unlock()
			return
		}
		d = c.take(s)
		s.mu.Unlock()
	}
}

// deploy performs a single deployment and returns the finished Run.
func (c *Coalescer) deploy(s *slot, d Deployment) *Run {
	s.mu.Lock()
	run := *s.current
	s.mu.Unlock()

	ctx := logger.With(c.ctx,
		"target", d.Target.Name,
		"version", d.Version,
		"deployment_id", d.ID,
	)

	logger.Info(ctx, "run.start")
	c.inc("run.started", d.Target.Name)
	c.publish(ctx, RunEvent{Target: d.Target.Name, Version: d.Version, DeploymentID: d.ID})

	out := newOutputWriter(ctx)
	err := c.safeDeploy(ctx, d, out)
	out.Close()

	finished := c.now()
	duration := finished.Sub(run.StartedAt)
	run.FinishedAt = &finished
	run.Output = out.Tail()

	event := RunEvent{
		Target:       d.Target.Name,
		Version:      d.Version,
		DeploymentID: d.ID,
		Finished:     true,
		Duration:     duration,
	}

	if err != nil {
		run.Error = err.Error()
		event.Error = err.Error()
		logger.Error(ctx, "run.failed", "err", err, "duration", duration)
		c.inc("run.failed", d.Target.Name)
	} else {
		logger.Info(ctx, "run.succeeded", "duration", duration)
		c.inc("run.succeeded", d.Target.Name)

		if path := d.Target.Marker; path != "" {
			if err := WriteMarker(path, d.Version); err != nil {
				logger.Error(ctx, "marker.write.error", "path", path, "err", err)
			}
		}
	}

	c.stats().Timing("run.duration", duration, 1.0, []string{"target:" + d.Target.Name})
	c.publish(ctx, event)

	return &run
}

// safeDeploy calls the Deployer, converting a panic into an error so that the
// target doesn't get stuck in the running state.
func (c *Coalescer) safeDeploy(ctx context.Context, d Deployment, out *outputWriter) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &DeployError{Target: d.Target.Name, Version: d.Version, Err: fmt.Errorf("panic: %v", v)}
		}
	}()
	return c.Deployer.Deploy(ctx, d, out)
}

// Status returns a snapshot of the named target.
func (c *Coalescer) Status(name string) (TargetStatus, error) {
	s, ok := c.slots[name]
	if !ok {
		return TargetStatus{}, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	status := TargetStatus{
		Target:  name,
		State:   StateIdle,
		Pending: s.hasPending,
	}
	if s.running {
		status.State = StateRunning
	}
	if s.hasPending {
		status.PendingVersion = s.pending
	}
	if s.current != nil {
		r := *s.current
		status.Current = &r
	}
	if s.last != nil {
		r := *s.last
		status.Last = &r
	}
	return status, nil
}

// Shutdown stops accepting notifications and waits for running deployments,
// including follow ups for versions that were already pending, to finish.
// If ctx is done first, its error is returned.
func (c *Coalescer) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coalescer) publish(ctx context.Context, event Event) {
	e := c.EventStream
	if e == nil {
		e = NullEventStream
	}
	if err := e.PublishEvent(event); err != nil {
		logger.Error(ctx, "events.publish.error", "event", event.Event(), "err", err)
	}
}

func (c *Coalescer) inc(name, target string) {
	c.stats().Inc(name, 1, 1.0, []string{"target:" + target})
}

func (c *Coalescer) stats() stats.Stats {
	if c.Stats == nil {
		return stats.Null
	}
	return c.Stats
}
