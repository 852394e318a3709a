package deployhook

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/remind101/deployhook/internal/logger"
	"github.com/remind101/deployhook/stats"
)

// Version is the current version of deployhook.
const Version = "0.1.0"

// MaxVersionLength is the longest version string that will be accepted.
const MaxVersionLength = 256

// Options is used to configure a DeployHook.
type Options struct {
	// Deployer runs deploy actions. The zero value uses a CommandDeployer.
	Deployer Deployer

	// EventStream receives run events.
	EventStream EventStream

	// Stats receives counters and timings.
	Stats stats.Stats
}

// DeployHook authenticates notifications and hands them to a Coalescer.
type DeployHook struct {
	Targets *Targets

	coalescer *Coalescer
	events    EventStream
	stats     stats.Stats
	now       func() time.Time
}

// New returns a new DeployHook for the given targets. ctx is the base context
// for deployments, and usually carries the logger.
func New(ctx context.Context, targets *Targets, opts Options) *DeployHook {
	d := opts.Deployer
	if d == nil {
		d = &CommandDeployer{}
	}

	s := opts.Stats
	if s == nil {
		s = stats.Null
	}

	c := NewCoalescer(ctx, targets, d)
	c.EventStream = opts.EventStream
	c.Stats = s

	return &DeployHook{
		Targets:   targets,
		coalescer: c,
		events:    opts.EventStream,
		stats:     s,
		now:       time.Now,
	}
}

// Authenticate returns the target if the secret matches. Every attempt is
// logged, without the secret.
func (h *DeployHook) Authenticate(ctx context.Context, target, secret string) (*Target, error) {
	t, err := h.Targets.Authenticate(target, secret)
	if err != nil {
		logger.Warn(ctx, "authenticate.rejected", "target", target)
		h.stats.Inc("notification.rejected", 1, 1.0, nil)
		return nil, err
	}
	logger.Info(ctx, "authenticate.accepted", "target", target)
	return t, nil
}

// Lookup returns the named target, for transports that authenticate
// notifications themselves.
func (h *DeployHook) Lookup(target string) (*Target, bool) {
	return h.Targets.Get(target)
}

// Notify validates and authenticates a notification, then hands it to the
// coalescer. It returns as soon as the notification is recorded.
func (h *DeployHook) Notify(ctx context.Context, secret, target, version string) error {
	if target == "" || secret == "" {
		return ErrMalformedRequest
	}
	if err := ValidateVersion(version); err != nil {
		return err
	}

	if _, err := h.Authenticate(ctx, target, secret); err != nil {
		return err
	}

	return h.Deliver(ctx, Notification{
		Target:  target,
		Version: version,
	})
}

// Deliver hands an already authenticated notification to the coalescer.
func (h *DeployHook) Deliver(ctx context.Context, n Notification) error {
	if n.ReceivedAt.IsZero() {
		n.ReceivedAt = h.now()
	}

	if err := h.coalescer.Notify(ctx, n); err != nil {
		return err
	}

	logger.Info(ctx, "notification.accepted", "target", n.Target, "version", n.Version)
	h.stats.Inc("notification.accepted", 1, 1.0, []string{"target:" + n.Target})
	return nil
}

// Status authenticates the caller and returns the status of the target.
func (h *DeployHook) Status(ctx context.Context, secret, target string) (TargetStatus, error) {
	if target == "" || secret == "" {
		return TargetStatus{}, ErrMalformedRequest
	}
	if _, err := h.Authenticate(ctx, target, secret); err != nil {
		return TargetStatus{}, err
	}
	return h.coalescer.Status(target)
}

// Shutdown stops accepting notifications and waits for running deployments.
// If the EventStream has a Close(context.Context) method, it's called
// afterwards so that run events published during shutdown are flushed.
func (h *DeployHook) Shutdown(ctx context.Context) error {
	var result *multierror.Error
	if err := h.coalescer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}

	if c, ok := h.events.(interface {
		Close(context.Context) error
	}); ok {
		if err := c.Close(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// ValidateVersion returns ErrMalformedRequest if the version is too long or
// contains control characters.
func ValidateVersion(version string) error {
	if len(version) > MaxVersionLength {
		return ErrMalformedRequest
	}
	for _, r := range version {
		if r < 0x20 || r == 0x7f {
			return ErrMalformedRequest
		}
	}
	return nil
}
