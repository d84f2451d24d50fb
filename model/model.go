package model

import "time"

// FileChange represents the rewritten content of a single file.
type FileChange struct {
	Path    string
	Before  string
	Content string
}

// ErrorKind classifies a per-file failure.
type ErrorKind string

const (
	// ErrorIO covers unreadable or unwritable files.
	ErrorIO ErrorKind = "io"
	// ErrorMalformedDeclaration marks a declaration whose terminator is missing.
	ErrorMalformedDeclaration ErrorKind = "malformed-declaration"
	// ErrorConflict marks a file edited since the run being undone or redone.
	ErrorConflict ErrorKind = "conflict"
)

// FileError is one entry of the end-of-run error report.
type FileError struct {
	Path    string
	Kind    ErrorKind
	Message string
}

// Summary holds the results of an operation for display.
type Summary struct {
	Modified []string
	Failed   []FileError
	Message  string
	// Diffs holds one unified diff per changed file in dry-run mode.
	Diffs []string

	Scanned      int
	Rewritten    int
	Inserted     int
	RemovedLines int
	Unterminated int
	DryRun       bool
	Elapsed      time.Duration
}
