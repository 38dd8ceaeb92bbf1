// Package stream fans session output out to live subscribers.
//
// The Router is the terminal.Sink every session writes to. For each chunk it
// publishes an output frame, runs the session's parser and publishes one
// event frame per classified event. The Hub keeps a bounded backlog per
// session so late subscribers can replay recent frames, and drops frames for
// subscribers that fall behind instead of blocking the PTY reader.
package stream

import (
	"github.com/GriffinCanCode/oneterm/internal/providers/parser"
	"github.com/GriffinCanCode/oneterm/internal/providers/terminal"
)

// FrameType tags a Frame.
type FrameType string

const (
	FrameOutput FrameType = "output"
	FrameEvent  FrameType = "event"
	FrameExit   FrameType = "exit"
)

// Frame is one message on a session's stream.
type Frame struct {
	Type      FrameType          `json:"type"`
	SessionID terminal.SessionID `json:"id"`
	Seq       uint64             `json:"seq"`
	Data      string             `json:"data,omitempty"`
	Event     *parser.Event      `json:"event,omitempty"`
}

// Recorder receives stream statistics. monitoring.Metrics implements it.
type Recorder interface {
	RecordOutput(n int)
	RecordParserEvent(kind string)
	RecordDecodeWarning()
	RecordDroppedFrame()
}

type nopRecorder struct{}

func (nopRecorder) RecordOutput(int)         {}
func (nopRecorder) RecordParserEvent(string) {}
func (nopRecorder) RecordDecodeWarning()     {}
func (nopRecorder) RecordDroppedFrame()      {}
