// Package config loads the rewrite rule set from built-in defaults, an
// optional YAML file, environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sokinpui/suitefix/internal/payload"
	"github.com/sokinpui/suitefix/internal/rewrite"
)

// Sentinel validation errors.
var (
	ErrNoRoots        = errors.New("at least one root is required")
	ErrNoSuffixes     = errors.New("at least one file suffix is required")
	ErrDuplicateName  = errors.New("rule name used twice")
	ErrMissingName    = errors.New("rule has no name")
	ErrEmptyStatement = errors.New("import rule has no statement")
	ErrNoTemplate     = errors.New("declaration has no template")
	ErrBadAnchor      = errors.New("unknown anchor")
)

const (
	envPrefix      = "SUITEFIX"
	configFileName = ".suitefix"
)

// Config holds the complete rule set and run settings.
type Config struct {
	Roots        []string          `mapstructure:"roots" yaml:"roots"`
	Suffixes     []string          `mapstructure:"suffixes" yaml:"suffixes"`
	SkipDirs     []string          `mapstructure:"skip_dirs" yaml:"skip_dirs"`
	SuiteEntries []string          `mapstructure:"suite_entries" yaml:"suite_entries"`
	Payloads     string            `mapstructure:"payloads" yaml:"payloads,omitempty"`
	Logging      LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Imports      []ImportRule      `mapstructure:"imports" yaml:"imports"`
	Declarations []DeclarationRule `mapstructure:"declarations" yaml:"declarations"`
	Calls        []CallRule        `mapstructure:"calls" yaml:"calls"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// ImportRule ensures an import statement is present.
type ImportRule struct {
	Name       string   `mapstructure:"name" yaml:"name"`
	Statement  string   `mapstructure:"statement" yaml:"statement"`
	Match      string   `mapstructure:"match" yaml:"match,omitempty"`
	Anchor     string   `mapstructure:"anchor" yaml:"anchor,omitempty"`
	RequireAny []string `mapstructure:"require_any" yaml:"require_any,omitempty"`
}

// DeclarationRule ensures a named local binding is declared exactly once.
type DeclarationRule struct {
	Name       string   `mapstructure:"name" yaml:"name"`
	Match      string   `mapstructure:"match" yaml:"match,omitempty"`
	Anchor     string   `mapstructure:"anchor" yaml:"anchor,omitempty"`
	RequireAny []string `mapstructure:"require_any" yaml:"require_any,omitempty"`
	Template   string   `mapstructure:"template" yaml:"template,omitempty"`
}

// CallRule rewrites call expressions starting with one of Starts.
type CallRule struct {
	Name    string   `mapstructure:"name" yaml:"name"`
	Starts  []string `mapstructure:"starts" yaml:"starts"`
	Action  string   `mapstructure:"action" yaml:"action"`
	Marker  string   `mapstructure:"marker" yaml:"marker,omitempty"`
	Wrapper string   `mapstructure:"wrapper" yaml:"wrapper,omitempty"`
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"root":      "roots",
	"suffix":    "suffixes",
	"payloads":  "payloads",
	"log-level": "logging.level",
}

// Load builds the configuration. Built-in defaults come first, then the file
// at configPath (or ./.suitefix.yaml when configPath is empty and the file
// exists), then SUITEFIX_* environment variables, then flags that were set.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(defaultRules)); err != nil {
		return nil, fmt.Errorf("failed to read built-in rules: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configFileName)
		v.AddConfigPath(".")
	}
	if err := v.MergeInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings that do not depend on payload templates.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 {
		return ErrNoRoots
	}
	if len(c.Suffixes) == 0 {
		return ErrNoSuffixes
	}

	names := make(map[string]struct{})
	checkName := func(name string) error {
		if name == "" {
			return ErrMissingName
		}
		if _, dup := names[name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		names[name] = struct{}{}
		return nil
	}

	for _, r := range c.Imports {
		if err := checkName(r.Name); err != nil {
			return err
		}
		if strings.TrimSpace(r.Statement) == "" {
			return fmt.Errorf("%w: %s", ErrEmptyStatement, r.Name)
		}
		if err := checkAnchor(r.Anchor); err != nil {
			return fmt.Errorf("%s: %w", r.Name, err)
		}
	}
	for _, r := range c.Declarations {
		if err := checkName(r.Name); err != nil {
			return err
		}
		if err := checkAnchor(r.Anchor); err != nil {
			return fmt.Errorf("%s: %w", r.Name, err)
		}
	}
	for _, r := range c.Calls {
		if err := checkName(r.Name); err != nil {
			return err
		}
	}
	return nil
}

func checkAnchor(anchor string) error {
	switch rewrite.Anchor(anchor) {
	case "", rewrite.AnchorAfterImports, rewrite.AnchorBeforeSuite:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrBadAnchor, anchor)
}

// Rules compiles the configuration into the engine's rule set. Declarations
// without an inline template take theirs from templates by name.
func (c *Config) Rules(templates payload.Templates) (rewrite.Rules, error) {
	rules := rewrite.Rules{SuiteEntries: c.SuiteEntries}

	for _, r := range c.Imports {
		rules.Imports = append(rules.Imports, rewrite.Ensure{
			Name:       r.Name,
			Match:      r.Match,
			Body:       []string{strings.TrimSpace(r.Statement)},
			Anchor:     rewrite.Anchor(r.Anchor),
			RequireAny: r.RequireAny,
		})
	}

	for _, r := range c.Declarations {
		body := templateLines(r.Template)
		if len(body) == 0 {
			body = templates[r.Name]
		}
		if len(body) == 0 {
			return rewrite.Rules{}, fmt.Errorf("%w: %s", ErrNoTemplate, r.Name)
		}
		match := r.Match
		if match == "" {
			match = "const " + r.Name
		}
		rules.Declarations = append(rules.Declarations, rewrite.Ensure{
			Name:       r.Name,
			Match:      match,
			Body:       body,
			Anchor:     rewrite.Anchor(r.Anchor),
			RequireAny: r.RequireAny,
		})
	}

	for _, r := range c.Calls {
		call := rewrite.Call{
			Name:    r.Name,
			Starts:  r.Starts,
			Action:  rewrite.Action(r.Action),
			Marker:  r.Marker,
			Wrapper: r.Wrapper,
		}
		if call.Action == rewrite.ActionWrap && call.Marker == "" {
			call.Marker = call.Wrapper + "("
		}
		rules.Calls = append(rules.Calls, call)
	}

	if err := rules.Validate(); err != nil {
		return rewrite.Rules{}, fmt.Errorf("invalid rules: %w", err)
	}
	return rules, nil
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

func templateLines(template string) []string {
	template = strings.TrimRight(template, "\n")
	if strings.TrimSpace(template) == "" {
		return nil
	}
	return strings.Split(template, "\n")
}
