package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"texlsp/internal/buildpipeline"
	"texlsp/internal/progress"
	"texlsp/internal/workspace"
)

var buildUI string

func init() {
	buildCmd.Flags().StringVar(&buildUI, "ui", "auto", "progress UI (auto|on|off)")
}

var buildCmd = &cobra.Command{
	Use:   "build FILE",
	Short: "Compile a LaTeX document the way the editor build request does",
	Long: `build compiles FILE, or the document in the same directory that includes
it, with the configured compiler. The exit status is non-zero unless the
build succeeds.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuildCommand,
}

func runBuildCommand(cmd *cobra.Command, args []string) error {
	e := current
	mode, err := readUIMode(buildUI)
	if err != nil {
		return err
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}
	ws, err := loadSiblings(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uri := workspace.PathToURI(path)
	opts := e.buildOptions()
	opts.Progress = true
	build := func(ctx context.Context, client buildpipeline.Client) buildpipeline.Result {
		orch := buildpipeline.NewOrchestrator(client, ws, progress.NewRegistry(progress.Wildcard(e.cfg.Build.TokenPrefix)), buildpipeline.OrchestratorOptions{
			TokenPrefix: e.cfg.Build.TokenPrefix,
			Recorder:    e.recorder,
			Logger:      e.logger,
		})
		return orch.Build(ctx, uri, opts)
	}

	var res buildpipeline.Result
	if shouldUseTUI(mode) {
		res, err = runBuildWithUI(ctx, filepath.Base(path), build)
		if err != nil {
			return err
		}
	} else {
		res = build(ctx, &printClient{out: cmd.OutOrStdout(), status: cmd.ErrOrStderr()})
		fmt.Fprintf(cmd.ErrOrStderr(), "build %s\n", colorStatus(res.Status))
	}
	if res.Status != buildpipeline.StatusSuccess {
		return fmt.Errorf("build %s", res.Status)
	}
	return nil
}

// loadSiblings opens every .tex file next to path so that an including root
// document can be found.
func loadSiblings(path string) (*workspace.Workspace, error) {
	ws := workspace.New()
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tex"))
	if err != nil {
		return nil, err
	}
	for _, match := range matches {
		// #nosec G304 -- files next to the document the user asked to build
		data, err := os.ReadFile(match)
		if err != nil {
			continue
		}
		ws.Put(workspace.PathToURI(match), string(data))
	}
	if _, ok := ws.Find(workspace.PathToURI(path)); !ok {
		return nil, fmt.Errorf("%s: no such LaTeX document", path)
	}
	return ws, nil
}

// printClient writes compiler output to out and progress to status.
type printClient struct {
	out    io.Writer
	status io.Writer
}

func (c *printClient) LogMessage(_ context.Context, message string) {
	fmt.Fprintln(c.out, message)
}

func (c *printClient) ProgressBegin(_ context.Context, _ progress.Token, title string) {
	fmt.Fprintf(c.status, "building %s\n", color.New(color.Bold).Sprint(title))
}

func (c *printClient) ProgressEnd(context.Context, progress.Token) {}

func colorStatus(status buildpipeline.Status) string {
	switch status {
	case buildpipeline.StatusSuccess:
		return color.GreenString(status.String())
	case buildpipeline.StatusCancelled:
		return color.YellowString(status.String())
	default:
		return color.RedString(status.String())
	}
}
