package diagnostics

import (
	"time"

	"texlsp/internal/proc"
)

// Tool describes one external linter: how to invoke it, how to frame the
// document on its stdin and how to read its report.
type Tool struct {
	Name    string
	Command proc.Command
	// Interval is the minimum spacing between two invocations, across all documents.
	Interval time.Duration
	Input    func(text string) string
	Parse    func(out []byte) []Diagnostic
}

const (
	ChktexName   = "chktex"
	HunspellName = "hunspell"

	DefaultChktexInterval   = 60 * time.Second
	DefaultHunspellInterval = 10 * time.Second
)

// Chktex is the LaTeX style linter.
func Chktex() Tool {
	return Tool{
		Name:     ChktexName,
		Command:  proc.Command{Name: "chktex", Args: []string{"-I0", "-f%l:%c:%d:%k:%n:%m\n"}},
		Interval: DefaultChktexInterval,
		Input:    func(text string) string { return text },
		Parse:    ParseChktex,
	}
}

// Hunspell is the English spell checker.
func Hunspell() Tool {
	return Tool{
		Name:     HunspellName,
		Command:  proc.Command{Name: "hunspell", Args: []string{"-a", "-t", "-d", "en_US"}},
		Interval: DefaultHunspellInterval,
		Input:    HunspellInput,
		Parse:    ParseHunspell,
	}
}
