package lsp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"texlsp/internal/logfields"
	"texlsp/internal/progress"
)

// LogMessage implements buildpipeline.Client.
func (s *Server) LogMessage(_ context.Context, message string) {
	if err := s.notify("window/logMessage", logMessageParams{Type: messageTypeLog, Message: message}); err != nil {
		s.logger.Debug("failed to send log message", logfields.Error(err))
	}
}

// ProgressBegin implements buildpipeline.Client. The token is created on the
// client first; a client that does not answer in time still gets the begin
// notification.
func (s *Server) ProgressBegin(ctx context.Context, token progress.Token, title string) {
	if err := s.request(ctx, "window/workDoneProgress/create", workDoneProgressCreateParams{Token: token}, s.progressTimeout); err != nil {
		s.logger.Debug("progress token not acknowledged", logfields.Token(token.String()), logfields.Error(err))
	}
	err := s.notify("$/progress", progressParams{
		Token: token,
		Value: workDoneProgressBegin{Kind: "begin", Title: title, Cancellable: true, Message: "Building"},
	})
	if err != nil {
		s.logger.Debug("failed to send progress begin", logfields.Error(err))
	}
}

// ProgressEnd implements buildpipeline.Client.
func (s *Server) ProgressEnd(_ context.Context, token progress.Token) {
	err := s.notify("$/progress", progressParams{Token: token, Value: workDoneProgressEnd{Kind: "end"}})
	if err != nil {
		s.logger.Debug("failed to send progress end", logfields.Error(err))
	}
}

// request sends a server-to-client request and waits for its response.
func (s *Server) request(ctx context.Context, method string, params any, timeout time.Duration) error {
	id := s.nextID.Add(1)
	key := strconv.FormatInt(id, 10)
	ch := make(chan *rpcMessage, 1)
	s.pendingMu.Lock()
	s.pending[key] = ch
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, key)
		s.pendingMu.Unlock()
	}()

	err := s.send(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case resp := <-ch:
		if resp.Error != nil {
			return fmt.Errorf("%s: %s (%d)", method, resp.Error.Message, resp.Error.Code)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%s: no response after %s", method, timeout)
	}
}

func (s *Server) resolve(msg *rpcMessage) {
	key := string(bytes.TrimSpace(msg.ID))
	var quoted string
	if json.Unmarshal(msg.ID, &quoted) == nil {
		key = quoted
	}
	s.pendingMu.Lock()
	ch, ok := s.pending[key]
	s.pendingMu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
	}
}
