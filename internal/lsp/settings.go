package lsp

import (
	"encoding/json"
	"slices"
	"strings"

	"texlsp/internal/logfields"
)

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	s.applySettings(params.Settings)
	return nil
}

// applySettings overlays latex.build.* on the current build options. Missing
// keys keep their current value.
func (s *Server) applySettings(raw json.RawMessage) {
	if len(raw) == 0 || string(raw) == "null" {
		return
	}
	var settings lspSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logger.Debug("ignoring malformed settings", logfields.Error(err))
		return
	}
	build := settings.Latex.Build
	s.mu.Lock()
	defer s.mu.Unlock()
	if build.Executable != nil && strings.TrimSpace(*build.Executable) != "" {
		s.build.Executable = strings.TrimSpace(*build.Executable)
	}
	if build.Args != nil {
		s.build.Args = slices.Clone(build.Args)
	}
	if build.OnSave != nil {
		s.buildOnSave = *build.OnSave
	}
}
