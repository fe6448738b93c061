package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"texlsp/internal/lsp"
	"texlsp/internal/progress"
)

var lspCmd = &cobra.Command{
	Use:          "lsp",
	Short:        "Run the language server over stdio",
	SilenceUsage: true,
	RunE:         runLSP,
}

func runLSP(cmd *cobra.Command, _ []string) error {
	e := current
	manager := e.newManager()
	store := e.openStore()
	e.restore(store, manager)
	defer e.persist(store, manager)

	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		Diagnostics: manager,
		Registry:    progress.NewRegistry(progress.Wildcard(e.cfg.Build.TokenPrefix)),
		Build:       e.buildOptions(),
		TokenPrefix: e.cfg.Build.TokenPrefix,
		WatchFiles:  true,
		Recorder:    e.recorder,
		Logger:      e.logger,
	})
	return exitStatus(server.Run(cmd.Context()))
}

func exitStatus(err error) error {
	switch {
	case err == nil, errors.Is(err, lsp.ErrExit):
		return nil
	case errors.Is(err, lsp.ErrExitWithoutShutdown):
		return fmt.Errorf("lsp exit without shutdown")
	default:
		return err
	}
}
