// Package logfields holds the canonical slog attribute keys shared by the
// build orchestrator, the linters and the protocol layer.
package logfields

import (
	"log/slog"
	"time"
)

const (
	KeyURI        = "uri"
	KeyTool       = "tool"
	KeyToken      = "token"
	KeyStatus     = "status"
	KeyCommand    = "command"
	KeyMethod     = "method"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func URI(uri string) slog.Attr       { return slog.String(KeyURI, uri) }
func Tool(name string) slog.Attr     { return slog.String(KeyTool, name) }
func Token(token string) slog.Attr   { return slog.String(KeyToken, token) }
func Status(status string) slog.Attr { return slog.String(KeyStatus, status) }
func Command(cmd string) slog.Attr   { return slog.String(KeyCommand, cmd) }
func Method(method string) slog.Attr { return slog.String(KeyMethod, method) }
func Count(n int) slog.Attr          { return slog.Int(KeyCount, n) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
