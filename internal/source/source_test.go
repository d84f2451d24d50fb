package source

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	got := ParseList("src/a.test.ts\r\n\n  src/b.test.ts  \n# comment\nsrc/a.test.ts\n")
	assert.Equal(t, []string{"src/a.test.ts", "src/b.test.ts"}, got)
}

func TestGetPaths(t *testing.T) {
	t.Run("piped stdin", func(t *testing.T) {
		sp := &SourceProvider{
			stdin:        strings.NewReader("x.test.ts\ny.test.ts\n"),
			stdinIsPiped: func() bool { return true },
		}
		paths, err := sp.GetPaths(false)
		require.NoError(t, err)
		assert.Equal(t, []string{"x.test.ts", "y.test.ts"}, paths)
	})

	t.Run("terminal stdin walks roots", func(t *testing.T) {
		sp := &SourceProvider{stdinIsPiped: func() bool { return false }}
		paths, err := sp.GetPaths(false)
		require.NoError(t, err)
		assert.Nil(t, paths)
	})

	t.Run("clipboard", func(t *testing.T) {
		sp := &SourceProvider{
			stdinIsPiped:  func() bool { return true },
			readClipboard: func() (string, error) { return "z.test.ts\n", nil },
		}
		paths, err := sp.GetPaths(true)
		require.NoError(t, err)
		assert.Equal(t, []string{"z.test.ts"}, paths)
	})

	t.Run("clipboard failure", func(t *testing.T) {
		sp := &SourceProvider{
			readClipboard: func() (string, error) { return "", errors.New("no display") },
		}
		_, err := sp.GetPaths(true)
		assert.ErrorContains(t, err, "no display")
	})
}
