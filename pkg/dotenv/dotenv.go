// Package dotenv reads .env formatted files, as used by foreman and the
// dotenv ruby library.
//
//	# comment
//	export RAILS_ENV=staging
//	DATABASE_URL="postgres://localhost/site" # trailing comment
//	GREETING='hello world'
package dotenv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ReadFile parses the .env formatted file at filename and returns the
// environment variables as a map.
func ReadFile(filename string) (map[string]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	env, err := Read(file)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	return env, nil
}

// Read parses the .env formatted io.Reader and returns the environment
// variables as a map.
func Read(r io.Reader) (map[string]string, error) {
	env := make(map[string]string)

	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", n, err)
		}
		env[key] = value
	}

	return env, scanner.Err()
}

func parseLine(line string) (string, string, error) {
	line = strings.TrimPrefix(line, "export ")

	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", errors.New("expected KEY=VALUE")
	}

	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", "", fmt.Errorf("invalid key %q", key)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return key, "", nil
	}

	switch q := value[0]; q {
	case '"', '\'':
		end := closingQuote(value, q)
		if end < 0 {
			return "", "", fmt.Errorf("unterminated quote in %s", key)
		}
		value = value[1:end]
		if q == '"' {
			value = strings.NewReplacer(`\n`, "\n", `\"`, `"`).Replace(value)
		}
	default:
		if i := strings.Index(value, " #"); i >= 0 {
			value = strings.TrimSpace(value[:i])
		}
	}

	return key, value, nil
}

// closingQuote returns the index of the quote that closes value[0], or -1.
// Inside double quotes, a backslash escapes the next byte.
func closingQuote(value string, q byte) int {
	for i := 1; i < len(value); i++ {
		switch {
		case q == '"' && value[i] == '\\':
			i++
		case value[i] == q:
			return i
		}
	}
	return -1
}
