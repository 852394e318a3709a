package deployhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargets_Authenticate(t *testing.T) {
	targets := newTestTargets(t, "staging", "release")

	tests := []struct {
		target string
		secret string
		err    error
	}{
		{"staging", "staging-secret", nil},
		{"release", "release-secret", nil},

		// Wrong secret for a known target.
		{"staging", "release-secret", ErrUnauthorized},
		{"staging", "", ErrUnauthorized},
		{"staging", "staging-secret ", ErrUnauthorized},

		// Unknown target.
		{"production", "staging-secret", ErrUnauthorized},
		{"", "", ErrUnauthorized},
	}

	for _, tt := range tests {
		target, err := targets.Authenticate(tt.target, tt.secret)
		assert.Equal(t, tt.err, err, "%s/%q", tt.target, tt.secret)
		if tt.err == nil {
			assert.Equal(t, tt.target, target.Name)
		} else {
			assert.Nil(t, target)
		}
	}
}

func TestNewTargets_Validation(t *testing.T) {
	_, err := NewTargets(
		&Target{Name: "staging", Secret: "a", Command: []string{"deploy"}},
		&Target{Name: "staging", Secret: "b", Command: []string{"deploy"}},
		&Target{Name: "release", Command: []string{"deploy"}},
		&Target{Name: "review", Secret: "c"},
		&Target{Secret: "d", Command: []string{"deploy"}},
		&Target{Name: "../etc", Secret: "e", Command: []string{"deploy"}},
	)

	if assert.IsType(t, &ValidationError{}, err) {
		msg := err.Error()
		assert.Contains(t, msg, `target "staging" is defined more than once`)
		assert.Contains(t, msg, `target "release": secret is required`)
		assert.Contains(t, msg, `target "review": command is required`)
		assert.Contains(t, msg, `target name is required`)
		assert.Contains(t, msg, `target "../etc": name may only contain`)
	}
}

func TestNewTargets_Empty(t *testing.T) {
	_, err := NewTargets()
	assert.EqualError(t, err, "1 error occurred:\n\t* no targets configured\n\n")
}

func TestTargets_Names(t *testing.T) {
	targets := newTestTargets(t, "staging", "release", "edge")
	assert.Equal(t, []string{"edge", "release", "staging"}, targets.Names())
}
