package lsp

import (
	"encoding/json"

	"texlsp/internal/logfields"
	"texlsp/internal/workspace"
)

// handleBuild runs the build in the background so that cancellation
// notifications keep flowing while the compiler works.
func (s *Server) handleBuild(msg *rpcMessage) error {
	var params buildParams
	if err := json.Unmarshal(msg.Params, &params); err != nil || params.TextDocument.URI == "" {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	id := msg.ID
	uri := workspace.Canonical(params.TextDocument.URI)
	opts := s.currentBuildOptions()
	s.goTask(func() {
		result := s.orchestrator.Build(s.baseCtx, uri, opts)
		if err := s.sendResponse(id, result); err != nil {
			s.logger.Warn("failed to send build result", logfields.URI(uri), logfields.Error(err))
		}
	})
	return nil
}

func (s *Server) handleCancel(msg *rpcMessage) error {
	var params workDoneProgressCancelParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	s.orchestrator.Cancel(params.Token)
	return nil
}
