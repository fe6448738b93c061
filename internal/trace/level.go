package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff     Level = iota
	LevelRequest       // server lifecycle and protocol requests
	LevelDetail        // plus builds and linter invocations
	LevelDebug         // everything
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelRequest:
		return "request"
	case LevelDetail:
		return "detail"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return LevelOff, nil
	case "request":
		return LevelRequest, nil
	case "detail":
		return LevelDetail, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|request|detail|debug)", s)
	}
}

// ShouldEmit returns true if the given scope should emit at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelRequest:
		return scope <= ScopeRequest
	case LevelDetail:
		return scope <= ScopeTool
	case LevelDebug:
		return true
	}
	return false
}
