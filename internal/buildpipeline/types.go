package buildpipeline

import (
	"context"
	"fmt"
	"strings"

	"texlsp/internal/progress"
	"texlsp/internal/workspace"
)

// Status is the terminal state of one build. The numeric values are the ones
// sent on the wire.
type Status int

const (
	// StatusSuccess means the compiler exited with status 0.
	StatusSuccess Status = iota
	// StatusError means the compiler ran and exited non-zero.
	StatusError
	// StatusFailure means the compiler could not be spawned or its output could not be read.
	StatusFailure
	// StatusCancelled means the build was aborted before it settled.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusFailure:
		return "failure"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is produced exactly once per build request.
type Result struct {
	Status Status `json:"status"`
}

// Options configures one build.
type Options struct {
	// Executable is the compiler, e.g. latexmk.
	Executable string
	// Args precede the root file name on the command line.
	Args []string
	// Progress is set when the client accepts work-done progress notifications.
	Progress bool
}

// DefaultOptions mirrors the stock latexmk setup.
func DefaultOptions() Options {
	return Options{
		Executable: "latexmk",
		Args:       []string{"-pdf", "-interaction=nonstopmode", "-synctex=1"},
	}
}

func (o Options) String() string {
	return strings.TrimSpace(o.Executable + " " + strings.Join(o.Args, " "))
}

// Client is the slice of the editor connection the orchestrator talks to.
type Client interface {
	LogMessage(ctx context.Context, message string)
	ProgressBegin(ctx context.Context, token progress.Token, title string)
	ProgressEnd(ctx context.Context, token progress.Token)
}

// DocumentGraph resolves which file must actually be handed to the compiler.
type DocumentGraph interface {
	FindParent(uri string) (workspace.Document, bool)
	Find(uri string) (workspace.Document, bool)
}
