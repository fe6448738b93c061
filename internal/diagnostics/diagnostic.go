// Package diagnostics turns the output of external LaTeX linters into
// position-addressed diagnostics and keeps the latest set per document.
package diagnostics

import "fmt"

// Severity follows the LSP numbering.
type Severity uint8

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
	SeverityHint        Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return fmt.Sprintf("severity(%d)", uint8(s))
	}
}

// Position is a zero-based line and character offset.
type Position struct {
	Line      uint32 `json:"line" msgpack:"l"`
	Character uint32 `json:"character" msgpack:"c"`
}

// Range is half-open: End is exclusive.
type Range struct {
	Start Position `json:"start" msgpack:"s"`
	End   Position `json:"end" msgpack:"e"`
}

// Diagnostic is one finding reported by a linter.
type Diagnostic struct {
	Range    Range    `json:"range" msgpack:"r"`
	Severity Severity `json:"severity" msgpack:"sev"`
	Source   string   `json:"source" msgpack:"src"`
	Code     string   `json:"code,omitempty" msgpack:"code,omitempty"`
	Message  string   `json:"message" msgpack:"msg"`
}

func (d Diagnostic) String() string {
	code := ""
	if d.Code != "" {
		code = "[" + d.Code + "] "
	}
	return fmt.Sprintf("%d:%d: %s: %s%s (%s)",
		d.Range.Start.Line+1, d.Range.Start.Character+1, d.Severity, code, d.Message, d.Source)
}

func lineRange(line, start, end uint32) Range {
	return Range{
		Start: Position{Line: line, Character: start},
		End:   Position{Line: line, Character: end},
	}
}
