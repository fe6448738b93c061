package lsp

import (
	"texlsp/internal/diagnostics"
	"texlsp/internal/logfields"
)

// scheduleLint offers text to the linters in the background and publishes
// the aggregated set afterwards.
func (s *Server) scheduleLint(uri, text string) {
	if s.diagnostics == nil {
		return
	}
	ctx := s.baseCtx
	s.goTask(func() {
		s.diagnostics.Update(ctx, uri, text)
		if ctx.Err() != nil {
			return
		}
		s.publish(uri)
	})
}

// publish sends the aggregated diagnostics of uri while it is open.
func (s *Server) publish(uri string) {
	if _, open := s.workspace.Find(uri); !open {
		return
	}
	if err := s.sendPublish(uri, toLSPDiagnostics(s.diagnostics.Get(uri))); err != nil {
		s.logger.Warn("failed to publish diagnostics", logfields.URI(uri), logfields.Error(err))
	}
}

// handleFileGone runs when an open document disappears from disk.
func (s *Server) handleFileGone(uri string) {
	s.diagnostics.Evict(uri)
	if _, open := s.workspace.Find(uri); !open {
		return
	}
	if err := s.sendPublish(uri, nil); err != nil {
		s.logger.Warn("failed to clear diagnostics", logfields.URI(uri), logfields.Error(err))
	}
}

func (s *Server) sendPublish(uri string, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	return s.notify("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Diagnostics: list,
	})
}

func toLSPDiagnostics(diags []diagnostics.Diagnostic) []lspDiagnostic {
	out := make([]lspDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, lspDiagnostic{
			Range: lspRange{
				Start: position{Line: int(d.Range.Start.Line), Character: int(d.Range.Start.Character)},
				End:   position{Line: int(d.Range.End.Line), Character: int(d.Range.End.Character)},
			},
			Severity: int(d.Severity),
			Code:     d.Code,
			Source:   d.Source,
			Message:  d.Message,
		})
	}
	return out
}
