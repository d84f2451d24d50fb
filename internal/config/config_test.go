package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sokinpui/suitefix/internal/payload"
	"github.com/sokinpui/suitefix/internal/rewrite"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"src"}, cfg.Roots)
	assert.Equal(t, []string{".test.ts", ".test.tsx"}, cfg.Suffixes)
	assert.Equal(t, "warn", cfg.Logging.Level)
	require.Len(t, cfg.Imports, 2)
	require.Len(t, cfg.Declarations, 1)
	require.Len(t, cfg.Calls, 2)

	rules, err := cfg.Rules(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"describe("}, rules.SuiteEntries)
	assert.Equal(t, rewrite.ActionWrap, rules.Calls[1].Action)
	assert.Equal(t, "// Mock IdGenerator", rules.Declarations[0].Body[0])
	assert.Len(t, rules.Declarations[0].Body, 4)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
roots: [test]
calls:
  - name: wrap-ok
    action: wrap
    wrapper: Ok
    starts: [".mockReturnValue("]
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"test"}, cfg.Roots)
	assert.Equal(t, []string{".test.ts", ".test.tsx"}, cfg.Suffixes, "unset keys keep their defaults")
	require.Len(t, cfg.Calls, 1)

	rules, err := cfg.Rules(nil)
	require.NoError(t, err)
	assert.Equal(t, "Ok(", rules.Calls[0].Marker, "wrap marker defaults to the wrapper call")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadFlagsAndEnv(t *testing.T) {
	t.Setenv("SUITEFIX_PAYLOADS", "from-env.md")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("root", nil, "")
	flags.StringSlice("suffix", nil, "")
	require.NoError(t, flags.Parse([]string{"--root", "a,b"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cfg.Roots)
	assert.Equal(t, []string{".test.ts", ".test.tsx"}, cfg.Suffixes)
	assert.Equal(t, "from-env.md", cfg.Payloads)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"no roots", "roots: []\n", ErrNoRoots},
		{"no suffixes", "suffixes: []\n", ErrNoSuffixes},
		{"duplicate name", "calls:\n  - {name: IdGenerator, action: inject, marker: x, starts: ['a(']}\n", ErrDuplicateName},
		{"empty import", "imports:\n  - {name: X, statement: ' '}\n", ErrEmptyStatement},
		{"bad anchor", "declarations:\n  - {name: m, anchor: top, template: 'const m = 1;'}\n", ErrBadAnchor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRulesUsesPayloadTemplates(t *testing.T) {
	cfg := &Config{
		Roots:        []string{"src"},
		Suffixes:     []string{".test.ts"},
		Declarations: []DeclarationRule{{Name: "mockClock"}},
	}

	_, err := cfg.Rules(nil)
	assert.ErrorIs(t, err, ErrNoTemplate)

	rules, err := cfg.Rules(payload.Templates{"mockClock": {"const mockClock = {", "};"}})
	require.NoError(t, err)
	assert.Equal(t, "const mockClock", rules.Declarations[0].Match)
	assert.Equal(t, []string{"const mockClock = {", "};"}, rules.Declarations[0].Body)
}

func TestRulesRejectsUndetectableMarker(t *testing.T) {
	cfg := &Config{
		Roots:    []string{"src"},
		Suffixes: []string{".test.ts"},
		Calls:    []CallRule{{Name: "w", Action: "wrap", Wrapper: "Ok", Marker: "Err", Starts: []string{"f("}}},
	}
	_, err := cfg.Rules(nil)
	assert.ErrorIs(t, err, rewrite.ErrMarkerUndetectable)
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	out, err := cfg.YAML()
	require.NoError(t, err)

	var back Config
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, cfg.Calls, back.Calls)
	assert.Equal(t, cfg.Roots, back.Roots)
}
