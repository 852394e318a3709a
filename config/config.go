// Package config loads the deployhook targets file.
//
// The file is YAML, with one entry per target:
//
//	targets:
//	  staging:
//	    secret: env:STAGING_SECRET
//	    command: ./deploy.sh {{.Target}} {{.Version}}
//	    dir: /srv/site
//	    timeout: 10m
//	    marker: /var/lib/deployhook/staging.version
//	    env_file: /etc/deployhook/staging.env
//	    ref: refs/heads/main
//	    env:
//	      RAILS_ENV: staging
//
// A secret is either a literal, env:NAME to read an environment variable, or
// file:/path to read the first line of a file. A command is either a list of
// arguments, or a string that's split like a shell would.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
	"github.com/remind101/deployhook"
	"github.com/remind101/deployhook/pkg/dotenv"
	"gopkg.in/yaml.v2"
)

// Config is the parsed contents of a targets file.
type Config struct {
	Targets map[string]TargetConfig `yaml:"targets"`
}

// TargetConfig configures a single target.
type TargetConfig struct {
	Secret  string            `yaml:"secret"`
	Command Command           `yaml:"command"`
	Dir     string            `yaml:"dir"`
	Env     map[string]string `yaml:"env"`
	EnvFile string            `yaml:"env_file"`
	Timeout string            `yaml:"timeout"`
	Marker  string            `yaml:"marker"`
	Ref     string            `yaml:"ref"`
}

// Command is a list of arguments. In YAML it can also be written as a single
// string.
type Command []string

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (c *Command) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		args, err := shellwords.Parse(s)
		if err != nil {
			return errors.Wrapf(err, "parsing command %q", s)
		}
		*c = args
		return nil
	}

	var args []string
	if err := unmarshal(&args); err != nil {
		return errors.New("command must be a string or a list of strings")
	}
	*c = args
	return nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	return Parse(raw)
}

// Parse parses a targets file.
func Parse(raw []byte) (*Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(raw, &c); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	return &c, nil
}

// Names returns the configured target names, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build resolves secrets and returns the validated targets. Every problem is
// reported, not just the first.
func (c *Config) Build() (*deployhook.Targets, error) {
	var result *multierror.Error

	var targets []*deployhook.Target
	for _, name := range c.Names() {
		t, err := c.Targets[name].target(name)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		targets = append(targets, t)
	}

	var built *deployhook.Targets
	if len(targets) > 0 || len(c.Targets) == 0 {
		var err error
		built, err = deployhook.NewTargets(targets...)
		if verr, ok := err.(*deployhook.ValidationError); ok {
			result = multierror.Append(result, verr.Err)
		} else if err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, &deployhook.ValidationError{Err: err}
	}

	return built, nil
}

func (tc TargetConfig) target(name string) (*deployhook.Target, error) {
	secret, err := ResolveSecret(tc.Secret)
	if err != nil {
		return nil, fmt.Errorf("target %q: %v", name, err)
	}

	var timeout time.Duration
	if tc.Timeout != "" {
		timeout, err = time.ParseDuration(tc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("target %q: invalid timeout %q", name, tc.Timeout)
		}
	}

	env, err := tc.env()
	if err != nil {
		return nil, fmt.Errorf("target %q: %v", name, err)
	}

	return &deployhook.Target{
		Name:    name,
		Secret:  secret,
		Command: []string(tc.Command),
		Dir:     tc.Dir,
		Env:     env,
		Timeout: timeout,
		Marker:  tc.Marker,
		Ref:     tc.Ref,
	}, nil
}

// env returns the variables from EnvFile, overridden by Env.
func (tc TargetConfig) env() (map[string]string, error) {
	if tc.EnvFile == "" {
		return tc.Env, nil
	}

	env, err := dotenv.ReadFile(tc.EnvFile)
	if err != nil {
		return nil, errors.Wrap(err, "reading env_file")
	}
	for k, v := range tc.Env {
		env[k] = v
	}
	return env, nil
}

// ResolveSecret returns the secret that ref refers to. env:NAME reads the
// environment variable NAME, file:/path reads the first line of the file.
// Anything else is the secret itself.
func ResolveSecret(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "env:"):
		name := strings.TrimPrefix(ref, "env:")
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("environment variable %s is not set", name)
		}
		return v, nil
	case strings.HasPrefix(ref, "file:"):
		raw, err := os.ReadFile(strings.TrimPrefix(ref, "file:"))
		if err != nil {
			return "", errors.Wrap(err, "reading secret")
		}
		line, _, _ := strings.Cut(string(raw), "\n")
		return strings.TrimSpace(line), nil
	default:
		return ref, nil
	}
}
