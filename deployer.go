package deployhook

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/remind101/deployhook/pkg/trace"
)

// Deployer represents something that can run the deploy action for a target.
type Deployer interface {
	// Deploy performs the deployment, writing output to w.
	Deploy(context.Context, Deployment, io.Writer) error
}

type DeployerFunc func(context.Context, Deployment, io.Writer) error

func (fn DeployerFunc) Deploy(ctx context.Context, d Deployment, w io.Writer) error {
	return fn(ctx, d, w)
}

// How long to wait for output to drain after the command is killed.
const waitDelay = 5 * time.Second

// CommandDeployer is a Deployer that executes the target's command.
type CommandDeployer struct {
	// Environ returns the base environment for commands. The zero value
	// uses os.Environ.
	Environ func() []string
}

// Deploy runs the target's command, with stdout and stderr written to w. A
// non-zero exit, a timeout or a failure to start are returned as a
// DeployError.
func (d *CommandDeployer) Deploy(ctx context.Context, dep Deployment, w io.Writer) error {
	fail := func(err error) error {
		return &DeployError{Target: dep.Target.Name, Version: dep.Version, Err: err}
	}

	args, err := dep.Args()
	if err != nil {
		return fail(err)
	}
	if len(args) == 0 {
		return fail(fmt.Errorf("no command"))
	}

	if t := dep.Target.Timeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dep.Target.Dir
	cmd.Env = append(d.environ(), dep.Env()...)
	cmd.Stdout = w
	cmd.Stderr = w
	cmd.WaitDelay = waitDelay

	trace.LazyPrintf(ctx, "Running %q in %q", args, cmd.Dir)
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fail(fmt.Errorf("timed out after %v: %v", dep.Target.Timeout, err))
		}
		return fail(err)
	}

	return nil
}

func (d *CommandDeployer) environ() []string {
	if d.Environ == nil {
		return os.Environ()
	}
	return d.Environ()
}

// TraceDeploy wraps a Deployer to record each deployment with package trace.
func TraceDeploy(d Deployer) Deployer {
	return DeployerFunc(func(ctx context.Context, dep Deployment, w io.Writer) error {
		ctx, finish := trace.Start(ctx, "deployhook.Deploy", dep.Target.Name)

		trace.LazyPrintf(ctx, "Starting deployment %s of %s", dep.ID, VersionString(dep.Version))
		err := d.Deploy(ctx, dep, w)
		if err == nil {
			trace.LazyPrintf(ctx, "Finished deployment %s", dep.ID)
		}

		finish(err)
		return err
	})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
