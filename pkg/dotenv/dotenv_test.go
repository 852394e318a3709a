package dotenv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRead(t *testing.T) {
	env, err := Read(strings.NewReader(`
# comment
export RAILS_ENV=staging
DATABASE_URL="postgres://localhost/site" # trailing comment
GREETING='hello # world'
MULTI="a\nb"
QUOTED="say \"hi\"" # comment
EMPTY=
PLAIN=value # comment
URL=http://example.com/#anchor
`))
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{
		"RAILS_ENV":    "staging",
		"DATABASE_URL": "postgres://localhost/site",
		"GREETING":     "hello # world",
		"MULTI":        "a\nb",
		"QUOTED":       `say "hi"`,
		"EMPTY":        "",
		"PLAIN":        "value",
		"URL":          "http://example.com/#anchor",
	}, env)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		in  string
		err string
	}{
		{"A=1\nnope\n", "line 2: expected KEY=VALUE"},
		{"=1\n", `line 1: invalid key ""`},
		{"A B=1\n", `line 1: invalid key "A B"`},
		{`A="open` + "\n", "line 1: unterminated quote in A"},
		{`A="open\"` + "\n", "line 1: unterminated quote in A"},
	}

	for _, tt := range tests {
		_, err := Read(strings.NewReader(tt.in))
		assert.EqualError(t, err, tt.err)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staging.env")
	assert.NoError(t, os.WriteFile(path, []byte("A=1\n"), 0600))

	env, err := ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1"}, env)

	_, err = ReadFile(path + ".missing")
	assert.Error(t, err)
}
