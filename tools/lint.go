// Package tools implements ancillary source-level utilities — linting
// and formatting — that sit outside the compile-and-run pipeline
// proper but reuse its lexer and pool.
package tools

import (
	"fmt"
	"sort"

	"github.com/lookbusy1344/minilang/compiler"
	"github.com/lookbusy1344/minilang/diag"
)

// LintLevel is the severity of a lint finding.
type LintLevel int

const (
	LintWarning LintLevel = iota
	LintInfo
)

func (l LintLevel) String() string {
	switch l {
	case LintWarning:
		return "warning"
	case LintInfo:
		return "info"
	default:
		return "unknown"
	}
}

// LintIssue is a single finding, in the style of a compiler diagnostic
// but non-fatal: the program still compiled.
type LintIssue struct {
	Level   LintLevel
	Subject string
	Message string
	Code    string
}

func (i *LintIssue) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", i.Level, i.Subject, i.Message, i.Code)
}

// LintOptions controls which checks Lint runs.
type LintOptions struct {
	CheckNeverAssigned bool
	// CheckNeverDefined has no effect: Lint runs no check for it, since
	// a goto to an undefined label already fails compilation.
	CheckNeverDefined bool
}

// DefaultLintOptions enables every check.
func DefaultLintOptions() *LintOptions {
	return &LintOptions{CheckNeverAssigned: true, CheckNeverDefined: true}
}

// Lint compiles source and reports style findings beyond what the
// compiler itself treats as fatal. A compile failure is returned
// as-is; lint findings are only produced for source that already
// compiles cleanly, since label/type errors are already fatal
// diagnostics (spec.md §4.5), not lint-level concerns.
func Lint(source, filename string, opts *LintOptions) ([]*LintIssue, *diag.Error) {
	if opts == nil {
		opts = DefaultLintOptions()
	}

	prog, err := compiler.Compile(source, filename)
	if err != nil {
		return nil, err
	}

	var issues []*LintIssue

	if opts.CheckNeverAssigned {
		for _, id := range prog.Pool.Idents() {
			if id.Declared && !id.Assigned {
				issues = append(issues, &LintIssue{
					Level:   LintWarning,
					Subject: id.Name,
					Message: "declared but never assigned a value",
					Code:    "NEVER_ASSIGNED",
				})
			}
		}
	}

	sort.Slice(issues, func(i, j int) bool { return issues[i].Subject < issues[j].Subject })
	return issues, nil
}
