package lsp

import (
	"slices"

	"texlsp/internal/buildpipeline"
)

func (s *Server) isShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdownRequested
}

func (s *Server) currentBuildOptions() buildpipeline.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts := s.build
	opts.Args = slices.Clone(opts.Args)
	opts.Progress = s.workDoneProgress
	return opts
}

func (s *Server) currentBuildOnSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildOnSave
}
