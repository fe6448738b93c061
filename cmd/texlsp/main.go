package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"texlsp/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "texlsp",
	Short: "LaTeX language server: builds, chktex and hunspell diagnostics",
	Long: `texlsp drives latexmk, chktex and hunspell on behalf of an editor.
Run "texlsp lsp" from the editor, or use build and lint from a shell.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupRuntime,
	PersistentPostRunE: teardownRuntime,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to texlsp.toml (default: nearest one above the working directory)")
	flags.String("log-level", "", "log level (debug|info|warn|error), overrides [log].level")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, overrides [metrics].addr")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|request|detail|debug)")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	flags.String("color", "auto", "colorize output (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
