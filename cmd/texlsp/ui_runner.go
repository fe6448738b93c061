package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"texlsp/internal/buildpipeline"
	"texlsp/internal/ui"
)

type buildFunc func(ctx context.Context, client buildpipeline.Client) buildpipeline.Result

// runBuildWithUI runs build with its client wired to a Bubble Tea view.
// Leaving the view cancels the build.
func runBuildWithUI(ctx context.Context, title string, build buildFunc) (buildpipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan buildpipeline.Event, 256)
	resultCh := make(chan buildpipeline.Result, 1)

	model := ui.NewBuildModel(title, events, ui.DefaultTail)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout), tea.WithContext(ctx))

	go func() {
		res := build(ctx, buildpipeline.ChannelSink{Ch: events})
		close(events)
		resultCh <- res
		program.Send(ui.ResultMsg{Status: res.Status})
	}()

	_, uiErr := program.Run()
	cancel()
	go func() {
		for range events {
		}
	}()
	res := <-resultCh
	if uiErr != nil && res.Status != buildpipeline.StatusCancelled {
		return res, uiErr
	}
	return res, nil
}
