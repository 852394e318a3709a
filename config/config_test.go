package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/remind101/deployhook"
	"github.com/stretchr/testify/assert"
)

const testConfig = `
targets:
  staging:
    secret: env:DEPLOYHOOK_TEST_STAGING_SECRET
    command: ./deploy.sh "{{.Target}}" {{.Version}}
    dir: /srv/site
    timeout: 10m
    marker: /var/lib/deployhook/staging.version
    ref: refs/heads/main
    env:
      RAILS_ENV: staging
  release:
    secret: s3cr3t
    command: [make, release, "VERSION={{.Version}}"]
`

func TestBuild(t *testing.T) {
	t.Setenv("DEPLOYHOOK_TEST_STAGING_SECRET", "staging-secret")

	c, err := Parse([]byte(testConfig))
	assert.NoError(t, err)
	assert.Equal(t, []string{"release", "staging"}, c.Names())

	targets, err := c.Build()
	assert.NoError(t, err)

	staging, ok := targets.Get("staging")
	if assert.True(t, ok) {
		assert.Equal(t, &deployhook.Target{
			Name:    "staging",
			Secret:  "staging-secret",
			Command: []string{"./deploy.sh", "{{.Target}}", "{{.Version}}"},
			Dir:     "/srv/site",
			Env:     map[string]string{"RAILS_ENV": "staging"},
			Timeout: 10 * time.Minute,
			Marker:  "/var/lib/deployhook/staging.version",
			Ref:     "refs/heads/main",
		}, staging)
	}

	release, ok := targets.Get("release")
	if assert.True(t, ok) {
		assert.Equal(t, "s3cr3t", release.Secret)
		assert.Equal(t, []string{"make", "release", "VERSION={{.Version}}"}, release.Command)
	}
}

func TestBuild_Errors(t *testing.T) {
	c, err := Parse([]byte(`
targets:
  staging:
    secret: env:DEPLOYHOOK_TEST_MISSING
    command: deploy
  release:
    secret: s3cr3t
    command: deploy
    timeout: soon
  review:
    secret: s3cr3t
`))
	assert.NoError(t, err)

	_, err = c.Build()
	if assert.IsType(t, &deployhook.ValidationError{}, err) {
		msg := err.Error()
		assert.Contains(t, msg, "3 errors occurred")
		assert.Contains(t, msg, `target "staging": environment variable DEPLOYHOOK_TEST_MISSING is not set`)
		assert.Contains(t, msg, `target "release": invalid timeout`)
		assert.Contains(t, msg, `target "review": command is required`)
	}
}

func TestBuild_NoTargets(t *testing.T) {
	c, err := Parse([]byte("targets: {}\n"))
	assert.NoError(t, err)

	_, err = c.Build()
	assert.EqualError(t, err, "1 error occurred:\n\t* no targets configured\n\n")
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"targets:\n  staging:\n    secret: a\n    comand: deploy\n",
		"targets:\n  staging:\n    command: {a: b}\n",
		"targets:\n  staging:\n    command: deploy 'unterminated\n",
	}

	for _, raw := range tests {
		_, err := Parse([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestResolveSecret(t *testing.T) {
	t.Setenv("DEPLOYHOOK_TEST_SECRET", "from-env")

	path := filepath.Join(t.TempDir(), "secret")
	assert.NoError(t, os.WriteFile(path, []byte("from-file\nignored\n"), 0600))

	tests := []struct {
		ref, secret string
		err         bool
	}{
		{"literal", "literal", false},
		{"", "", false},
		{"env:DEPLOYHOOK_TEST_SECRET", "from-env", false},
		{"env:DEPLOYHOOK_TEST_UNSET", "", true},
		{"file:" + path, "from-file", false},
		{"file:" + path + ".missing", "", true},
	}

	for _, tt := range tests {
		secret, err := ResolveSecret(tt.ref)
		assert.Equal(t, tt.secret, secret, tt.ref)
		assert.Equal(t, tt.err, err != nil, tt.ref)
	}
}

func TestBuild_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staging.env")
	assert.NoError(t, os.WriteFile(path, []byte("RAILS_ENV=production\nBUNDLE_PATH=vendor\n"), 0600))

	c, err := Parse([]byte(`
targets:
  staging:
    secret: s3cr3t
    command: deploy
    env_file: ` + path + `
    env:
      RAILS_ENV: staging
`))
	assert.NoError(t, err)

	targets, err := c.Build()
	assert.NoError(t, err)

	staging, _ := targets.Get("staging")
	assert.Equal(t, map[string]string{
		"RAILS_ENV":   "staging",
		"BUNDLE_PATH": "vendor",
	}, staging.Env)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployhook.yml")
	assert.NoError(t, os.WriteFile(path, []byte(testConfig), 0600))

	c, err := Load(path)
	assert.NoError(t, err)
	assert.Len(t, c.Targets, 2)

	_, err = Load(path + ".missing")
	assert.Error(t, err)
}

func TestBuild_EnvFileMissing(t *testing.T) {
	c, err := Parse([]byte(`
targets:
  staging:
    secret: s3cr3t
    command: deploy
    env_file: /nonexistent/staging.env
`))
	assert.NoError(t, err)

	_, err = c.Build()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), `target "staging": reading env_file`)
	}
}
