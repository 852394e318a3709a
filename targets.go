package deployhook

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Target is a named environment that can be deployed, like "staging" or
// "release".
type Target struct {
	// Unique name of the target.
	Name string

	// The secret that notifications for this target must present.
	Secret string

	// The deploy action, as an argv list. Arguments are text/templates and
	// can reference {{.Target}}, {{.Version}} and {{.ID}}.
	Command []string

	// Working directory for the command.
	Dir string

	// Extra environment variables for the command.
	Env map[string]string

	// If non-zero, the deploy action is killed after this long.
	Timeout time.Duration

	// If set, the last successfully deployed version is written to this
	// path.
	Marker string

	// If set, GitHub push events for other refs are ignored. For example
	// refs/heads/main.
	Ref string
}

// Targets is the set of configured targets. It's built once at startup and
// never changes.
type Targets struct {
	byName map[string]*Target
	names  []string
}

// NewTargets validates the given targets and returns them as a Targets set.
// All problems are reported in a single ValidationError.
func NewTargets(targets ...*Target) (*Targets, error) {
	var result *multierror.Error

	t := &Targets{byName: make(map[string]*Target, len(targets))}
	for _, target := range targets {
		if err := validateTarget(target); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if _, ok := t.byName[target.Name]; ok {
			result = multierror.Append(result, fmt.Errorf("target %q is defined more than once", target.Name))
			continue
		}
		t.byName[target.Name] = target
		t.names = append(t.names, target.Name)
	}

	if len(targets) == 0 {
		result = multierror.Append(result, fmt.Errorf("no targets configured"))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, &ValidationError{Err: err}
	}

	sort.Strings(t.names)
	return t, nil
}

func validateTarget(t *Target) error {
	switch {
	case t.Name == "":
		return fmt.Errorf("target name is required")
	case !validName(t.Name):
		return fmt.Errorf("target %q: name may only contain letters, digits, '.', '_' and '-'", t.Name)
	case t.Secret == "":
		return fmt.Errorf("target %q: secret is required", t.Name)
	case len(t.Command) == 0:
		return fmt.Errorf("target %q: command is required", t.Name)
	case t.Timeout < 0:
		return fmt.Errorf("target %q: timeout must not be negative", t.Name)
	}
	return nil
}

func validName(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return name != "." && name != ".."
}

// Get returns the named target.
func (t *Targets) Get(name string) (*Target, bool) {
	target, ok := t.byName[name]
	return target, ok
}

// Names returns the sorted target names.
func (t *Targets) Names() []string {
	return append([]string(nil), t.names...)
}

// Authenticate returns the named target if secret matches its configured
// secret. Unknown targets and mismatched secrets both return ErrUnauthorized,
// and the comparison takes the same time in both cases.
func (t *Targets) Authenticate(name, secret string) (*Target, error) {
	target, ok := t.byName[name]

	expected := unknownTargetSecret
	if ok {
		expected = sha256.Sum256([]byte(target.Secret))
	}
	given := sha256.Sum256([]byte(secret))

	if subtle.ConstantTimeCompare(expected[:], given[:]) != 1 || !ok {
		return nil, ErrUnauthorized
	}
	return target, nil
}

// Compared against when the target doesn't exist, so that unknown targets
// cost the same as known ones.
var unknownTargetSecret = sha256.Sum256([]byte("deployhook: unknown target"))
