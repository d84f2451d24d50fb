package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

// ErrHelp is returned when -h/--help was requested.
var ErrHelp = pflag.ErrHelp

// Config holds all the command-line flag values.
type Config struct {
	ConfigPath  string
	Roots       []string
	Suffixes    []string
	Payloads    string
	LogLevel    string
	DryRun      bool
	Nvim        bool
	Buffer      bool
	Clipboard   bool
	Undo        bool
	Redo        bool
	NoAnimation bool
	Verbose     bool
	DumpConfig  bool
	// Paths are explicit candidate files given as positional arguments.
	Paths []string
}

// NewFlagSet defines the command-line flags, binding them to cfg.
func NewFlagSet(cfg *Config, output io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("suitefix", pflag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVarP(&cfg.ConfigPath, "config", "c", "", "Rule file (default: ./.suitefix.yaml when present).")
	fs.StringSliceVar(&cfg.Roots, "root", nil, "Directory to scan for test files (repeatable).")
	fs.StringSliceVar(&cfg.Suffixes, "suffix", nil, "File name suffix selecting candidates (e.g. '.test.ts').")
	fs.StringVar(&cfg.Payloads, "payloads", "", "Markdown file holding declaration templates.")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Structured log level (debug, info, warn, error).")
	fs.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Print a diff of each change instead of writing files.")
	fs.BoolVar(&cfg.Nvim, "nvim", false, "Apply changes through Neovim buffers and save them.")
	fs.BoolVarP(&cfg.Buffer, "buffer", "b", false, "Update buffers in Neovim without saving them to disk (implies --nvim).")
	fs.BoolVar(&cfg.Clipboard, "clipboard", false, "Read the list of files to process from the clipboard.")
	fs.BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable loading spinner and progress updates.")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log every per-file decision.")
	fs.BoolVar(&cfg.DumpConfig, "dump-config", false, "Print the effective rule set as YAML and exit.")

	// Mutually exclusive history group
	fs.BoolVarP(&cfg.Undo, "undo", "u", false, "Undo the last run.")
	fs.BoolVarP(&cfg.Redo, "redo", "r", false, "Redo the last undone run.")

	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: suitefix [flags] [files...]")
		fmt.Fprintln(output, "\nRewrite test files in place: wrap resolved mock values, inject required")
		fmt.Fprintln(output, "collaborators, ensure imports and helper declarations, drop duplicates.")
		fmt.Fprintln(output, "\nFiles come from arguments, piped stdin, --clipboard, or the configured roots.")
		fmt.Fprintln(output, "\nExample: git diff --name-only | suitefix -n")
		fmt.Fprintln(output, "\nFlags:")
		fs.PrintDefaults()
	}
	return fs
}

// ParseArgs parses args (without the program name).
func ParseArgs(args []string) (*Config, *pflag.FlagSet, error) {
	cfg := &Config{}
	fs := NewFlagSet(cfg, os.Stderr)
	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	cfg.Paths = fs.Args()

	if err := cfg.validate(); err != nil {
		return nil, fs, err
	}
	if cfg.Buffer {
		cfg.Nvim = true
	}
	return cfg, fs, nil
}

func (c *Config) validate() error {
	if c.Undo && c.Redo {
		return errors.New("--undo and --redo are mutually exclusive")
	}
	if (c.Undo || c.Redo) && c.DryRun {
		return errors.New("--dry-run cannot be combined with --undo or --redo")
	}
	if c.DryRun && (c.Nvim || c.Buffer) {
		return errors.New("--dry-run cannot be combined with --nvim or --buffer")
	}
	if c.Clipboard && len(c.Paths) > 0 {
		return errors.New("--clipboard cannot be combined with file arguments")
	}
	return nil
}
