package deployhook

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// Notification is a single inbound request to deploy a version of a target.
type Notification struct {
	// The target to deploy.
	Target string

	// The version to deploy. May be empty if the caller didn't provide
	// one.
	Version string

	// When the notification was received.
	ReceivedAt time.Time
}

// Deployment represents a single run of the deploy action for a target.
type Deployment struct {
	// Unique identifier for this run.
	ID string

	Target  *Target
	Version string

	// The notification that supplied the version. When notifications are
	// coalesced, this is the most recent one.
	Notification Notification
}

// Args renders the target's command for this deployment.
func (d Deployment) Args() ([]string, error) {
	data := struct {
		ID      string
		Target  string
		Version string
	}{
		ID:      d.ID,
		Target:  d.Target.Name,
		Version: d.Version,
	}

	args := make([]string, len(d.Target.Command))
	for i, arg := range d.Target.Command {
		tmpl, err := template.New("arg").Option("missingkey=error").Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("parsing command argument %d: %v", i, err)
		}

		buf := new(bytes.Buffer)
		if err := tmpl.Execute(buf, data); err != nil {
			return nil, fmt.Errorf("rendering command argument %d: %v", i, err)
		}
		args[i] = buf.String()
	}

	return args, nil
}

// Env returns the environment variables that are added to the deploy
// action's environment.
func (d Deployment) Env() []string {
	env := make([]string, 0, len(d.Target.Env)+3)
	for _, k := range sortedKeys(d.Target.Env) {
		env = append(env, fmt.Sprintf("%s=%s", k, d.Target.Env[k]))
	}
	return append(env,
		"DEPLOY_TARGET="+d.Target.Name,
		"DEPLOY_VERSION="+d.Version,
		"DEPLOY_ID="+d.ID,
	)
}
