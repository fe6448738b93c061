package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"texlsp/internal/diagnostics"
	"texlsp/internal/workspace"
)

var lintCmd = &cobra.Command{
	Use:   "lint FILE...",
	Short: "Run chktex and hunspell once and print their diagnostics",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	e := current
	manager := e.newManager()
	if len(manager.Linters()) == 0 {
		return fmt.Errorf("every linter is disabled in %s", configName(e.cfg.Path))
	}
	out := cmd.OutOrStdout()
	total := 0
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", arg, err)
		}
		// #nosec G304 -- linting files named on the command line
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		uri := workspace.PathToURI(path)
		// fresh linters so that the throttle never skips a file
		manager = e.newManager()
		manager.Update(cmd.Context(), uri, string(data))
		diags := manager.Get(uri)
		total += len(diags)
		printDiagnostics(out, arg, diags)
	}
	if total > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d diagnostic(s)\n", total)
	}
	return nil
}

func printDiagnostics(out io.Writer, name string, diags []diagnostics.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(out, "%s:%d:%d: %s: %s",
			color.New(color.Bold).Sprint(name),
			d.Range.Start.Line+1, d.Range.Start.Character+1,
			severityColor(d.Severity).Sprint(d.Severity),
			d.Message)
		if d.Code != "" {
			fmt.Fprintf(out, " [%s %s]\n", d.Source, d.Code)
		} else {
			fmt.Fprintf(out, " [%s]\n", d.Source)
		}
	}
}

func severityColor(s diagnostics.Severity) *color.Color {
	switch s {
	case diagnostics.SeverityError:
		return color.New(color.FgRed, color.Bold)
	case diagnostics.SeverityWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

func configName(path string) string {
	if path == "" {
		return "the configuration"
	}
	return path
}
