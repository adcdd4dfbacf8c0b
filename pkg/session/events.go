package session

import (
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/parser"
	"github.com/ajitpratap0/prism/pkg/report"
	"github.com/ajitpratap0/prism/pkg/types"
)

// EventKind discriminates session events.
type EventKind int

const (
	// EventReady carries the detected dialect and the provisional schema.
	EventReady EventKind = iota + 1
	// EventProgress follows every processed chunk.
	EventProgress
	// EventReport carries the final report. Terminal.
	EventReport
	// EventError carries the failure of the session. Terminal.
	EventError
	// EventCancelled acknowledges a cancellation. Terminal.
	EventCancelled
)

var eventNames = map[EventKind]string{
	EventReady:     "ready",
	EventProgress:  "progress",
	EventReport:    "report",
	EventError:     "error",
	EventCancelled: "cancelled",
}

func (k EventKind) String() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether no event follows one of this kind.
func (k EventKind) Terminal() bool {
	return k == EventReport || k == EventError || k == EventCancelled
}

// ColumnSchema is a column as known when the session became ready. Type is
// Unknown until the column's sample window closes.
type ColumnSchema struct {
	Name    string         `json:"name"`
	Ordinal int            `json:"ordinal"`
	Type    types.DataType `json:"type"`
}

// Event is one outbound session message. Only the fields of its Kind are set.
type Event struct {
	Kind EventKind

	Dialect parser.Dialect
	Schema  []ColumnSchema

	BytesProcessed int64
	// TotalBytesHint is the input size when known, zero otherwise.
	TotalBytesHint int64

	Report *report.Report

	Err *ErrorEvent
}

// ErrorEvent is the wire form of a session failure.
type ErrorEvent struct {
	Kind        errors.Kind            `json:"kind"`
	Message     string                 `json:"message"`
	Recoverable bool                   `json:"recoverable"`
	RecordIndex int64                  `json:"recordIndex"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

func (e *ErrorEvent) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func newErrorEvent(err *errors.Error) *ErrorEvent {
	return &ErrorEvent{
		Kind:        err.Kind,
		Message:     err.Message,
		Recoverable: err.Recoverable(),
		RecordIndex: err.RecordIndex,
		Details:     err.Details,
	}
}
