package buildpipeline

import (
	"context"

	"texlsp/internal/progress"
)

// EventKind tags an Event.
type EventKind uint8

const (
	EventBegin EventKind = iota + 1
	EventLog
	EventEnd
)

// Event mirrors one Client call, for consumers that render builds locally.
type Event struct {
	Kind  EventKind
	Token progress.Token
	Title string
	Line  string
}

// ChannelSink is a Client that forwards every call into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) send(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

func (s ChannelSink) LogMessage(_ context.Context, message string) {
	s.send(Event{Kind: EventLog, Line: message})
}

func (s ChannelSink) ProgressBegin(_ context.Context, token progress.Token, title string) {
	s.send(Event{Kind: EventBegin, Token: token, Title: title})
}

func (s ChannelSink) ProgressEnd(_ context.Context, token progress.Token) {
	s.send(Event{Kind: EventEnd, Token: token})
}
