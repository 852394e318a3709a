package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/remind101/deployhook"
	"github.com/remind101/deployhook/internal/logger"
	"github.com/remind101/deployhook/server"
	"github.com/remind101/deployhook/server/middleware"
	"github.com/remind101/deployhook/stats"
	"github.com/urfave/cli"
)

// DefaultAddr is used when no listener is configured.
const DefaultAddr = ":8080"

// socketMode is the mode of a Unix socket created by deployhook.
const socketMode = 0660

func runServer(c *cli.Context) error {
	ctx, err := newContext(c)
	if err != nil {
		return err
	}

	targets, err := newTargets(ctx)
	if err != nil {
		return err
	}
	logTargets(ctx, targets)

	h, err := newDeployHook(ctx, targets)
	if err != nil {
		return err
	}

	resolver, err := newResolver(ctx)
	if err != nil {
		return err
	}

	listeners, err := newListeners(ctx)
	if err != nil {
		return err
	}

	s := &http.Server{
		Handler: middleware.Common(ctx, server.New(h, server.Options{
			Debug: ctx.Bool(FlagDebug),
		}), middleware.Options{
			Resolver: resolver,
			Redact:   server.RedactPath,
		}),
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go stats.Runtime(sigCtx, ctx.Stats())

	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		logger.Info(ctx, "server.listen", "network", l.Addr().Network(), "addr", l.Addr().String())
		go func(l net.Listener) {
			errCh <- s.Serve(l)
		}(l)
	}

	select {
	case <-sigCtx.Done():
		logger.Info(ctx, "server.shutdown", "timeout", ctx.Duration(FlagShutdownTimeout))
	case err := <-errCh:
		logger.Error(ctx, "server.error", "err", err)
		return err
	}

	return shutdown(ctx, s, h)
}

// shutdown stops accepting connections, then waits for deploy actions that are
// running or pending.
func shutdown(ctx *Context, s *http.Server, h *deployhook.DeployHook) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, ctx.Duration(FlagShutdownTimeout))
	defer cancel()

	var result *multierror.Error
	if err := s.Shutdown(timeoutCtx); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "stopping http server"))
	}
	if err := h.Shutdown(timeoutCtx); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "waiting for deployments"))
	}

	if err := result.ErrorOrNil(); err != nil {
		logger.Error(ctx, "server.shutdown.error", "err", err)
		return err
	}

	logger.Info(ctx, "server.shutdown.complete")
	return nil
}

// logTargets logs each target and the last version recorded in its marker.
func logTargets(ctx *Context, targets *deployhook.Targets) {
	for _, name := range targets.Names() {
		t, _ := targets.Get(name)

		pairs := []interface{}{"target", name, "dir", t.Dir, "timeout", t.Timeout}
		if t.Marker != "" {
			version, err := deployhook.ReadMarker(t.Marker)
			if err != nil {
				logger.Warn(ctx, "marker.read.error", "target", name, "path", t.Marker, "err", err)
			}
			pairs = append(pairs, "marker", t.Marker, "last_version", version)
		}

		logger.Info(ctx, "target.loaded", pairs...)
	}
}

// newListeners returns every configured listener. With none configured, it
// listens on DefaultAddr.
func newListeners(c *Context) ([]net.Listener, error) {
	var listeners []net.Listener

	if c.Bool(FlagSystemd) {
		ls, err := activation.Listeners()
		if err != nil {
			return nil, errors.Wrap(err, "systemd socket activation")
		}
		for _, l := range ls {
			if l != nil {
				listeners = append(listeners, l)
			}
		}
		if len(listeners) == 0 {
			return nil, errors.New("systemd socket activation: no sockets were passed")
		}
	}

	if path := c.String(FlagSocket); path != "" {
		l, err := listenUnix(path)
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, l)
	}

	addr := c.String(FlagAddr)
	if addr == "" && len(listeners) == 0 {
		addr = DefaultAddr
	}
	if addr != "" {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, errors.Wrap(err, "listening")
		}
		listeners = append(listeners, l)
	}

	return listeners, nil
}

// listenUnix listens on a Unix socket at path, replacing a stale socket left
// behind by a previous process. The socket is removed when the listener is
// closed.
func listenUnix(path string) (net.Listener, error) {
	if fi, err := os.Lstat(path); err == nil {
		if fi.Mode()&os.ModeSocket == 0 {
			return nil, errors.Errorf("%s exists and is not a socket", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, errors.Wrap(err, "removing stale socket")
		}
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, errors.Wrap(err, "listening")
	}

	if err := os.Chmod(path, socketMode); err != nil {
		l.Close()
		return nil, errors.Wrap(err, "chmod socket")
	}

	return l, nil
}
