package rewrite

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel rule validation errors.
var (
	ErrNoStartPattern     = errors.New("call rule has no start pattern")
	ErrBadStartPattern    = errors.New("start pattern must end with an opening delimiter")
	ErrUnknownAction      = errors.New("unknown call action")
	ErrMarkerUndetectable = errors.New("marker would not be detected after rewriting")
	ErrTemplateMismatch   = errors.New("template does not contain its match text")
)

// Action selects how a call rule edits a matched call.
type Action string

const (
	// ActionInject inserts the marker before the call's closing delimiter.
	ActionInject Action = "inject"
	// ActionWrap wraps the call's arguments in a call to Wrapper.
	ActionWrap Action = "wrap"
)

// Anchor selects where a missing import or declaration is inserted.
type Anchor string

const (
	AnchorAfterImports Anchor = "after-imports"
	AnchorBeforeSuite  Anchor = "before-suite"
)

// Ensure describes an import or named declaration that must be present in
// every file it applies to. It also drives deduplication of that
// declaration.
type Ensure struct {
	Name string
	// Match detects an existing copy. Defaults to the first line of Body.
	Match string
	// Body holds the lines inserted when no copy exists.
	Body   []string
	Anchor Anchor
	// RequireAny limits the rule to files containing one of these strings.
	RequireAny []string
}

func (e Ensure) match() string {
	if e.Match != "" {
		return e.Match
	}
	for _, line := range e.Body {
		t := strings.TrimSpace(line)
		if t != "" && !strings.HasPrefix(t, "//") {
			return t
		}
	}
	return ""
}

func (e Ensure) applies(content string) bool {
	if len(e.RequireAny) == 0 {
		return true
	}
	for _, s := range e.RequireAny {
		if strings.Contains(content, s) {
			return true
		}
	}
	return false
}

// Call describes a rewrite of call expressions.
type Call struct {
	Name string
	// Starts are literal prefixes, each ending with the call's opening
	// delimiter, e.g. "AutomationVariables.create(".
	Starts  []string
	Action  Action
	Marker  string
	Wrapper string
}

// Validate checks that the rule converges: once applied, its marker must be
// found again in the rewritten span.
func (c Call) Validate() error {
	if len(c.Starts) == 0 {
		return fmt.Errorf("%w: %s", ErrNoStartPattern, c.Name)
	}
	for _, s := range c.Starts {
		if s == "" || !isOpener(s[len(s)-1]) {
			return fmt.Errorf("%w: %s: %q", ErrBadStartPattern, c.Name, s)
		}
	}

	lines := []string{"(x)"}
	span := Span{Start: 0, End: 0, OpenCol: 0, CloseCol: 2}
	switch c.Action {
	case ActionInject:
		InsertBeforeClose(lines, span, c.Marker)
	case ActionWrap:
		WrapArguments(lines, span, c.Wrapper)
	default:
		return fmt.Errorf("%w: %s: %q", ErrUnknownAction, c.Name, c.Action)
	}

	rewritten, err := ScanBalanced(lines, 0, 0)
	if err != nil || !AlreadyApplied(rewritten.TopLevel, c.Marker) {
		return fmt.Errorf("%w: %s: %q", ErrMarkerUndetectable, c.Name, c.Marker)
	}
	return nil
}

// Rules is the compiled rule set applied by a pass.
type Rules struct {
	Imports      []Ensure
	Declarations []Ensure
	Calls        []Call
	// SuiteEntries are prefixes of top-level test-suite lines, e.g. "describe(".
	SuiteEntries []string
}

// Validate checks every rule in the set.
func (r Rules) Validate() error {
	for _, c := range r.Calls {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	for _, d := range append(append([]Ensure{}, r.Imports...), r.Declarations...) {
		m := d.match()
		if m == "" || !containsStatement(strings.Join(d.Body, "\n"), m) {
			return fmt.Errorf("%w: %s", ErrTemplateMismatch, d.Name)
		}
	}
	return nil
}

func (r Rules) dedupeRules() []DedupeRule {
	rules := make([]DedupeRule, 0, len(r.Imports)+len(r.Declarations))
	for _, imp := range r.Imports {
		rules = append(rules, DedupeRule{Kind: KindImport, Name: imp.Name, Match: imp.match()})
	}
	for _, decl := range r.Declarations {
		rule := DedupeRule{Kind: KindLocal, Name: decl.Name, Match: decl.match()}
		if len(decl.Body) > 0 {
			if lead := strings.TrimSpace(decl.Body[0]); strings.HasPrefix(lead, "//") {
				rule.Leading = lead
			}
		}
		rules = append(rules, rule)
	}
	return rules
}
