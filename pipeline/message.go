package pipeline

import (
	"github.com/zcm58/fpvs-analysis/epochs"
)

// MessageType discriminates the messages the worker posts on the queue.
type MessageType int

const (
	// MessageLog carries a human-readable log line.
	MessageLog MessageType = iota
	// MessageProgress reports how many files have been processed so far.
	MessageProgress
	// MessageResult hands the accumulated per-label epoch sets to the
	// consumer. Sent at most once per run, before MessageDone. After
	// sending, the worker no longer touches the payload.
	MessageResult
	// MessageError reports a run-fatal condition.
	MessageError
	// MessageDone is the terminal message of every run.
	MessageDone
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MessageLog:
		return "log"
	case MessageProgress:
		return "progress"
	case MessageResult:
		return "result"
	case MessageError:
		return "error"
	case MessageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Message is the unit of worker-to-consumer communication. Only the
// fields relevant to Type are populated.
type Message struct {
	Type MessageType

	// Text is the log line (MessageLog) or error description (MessageError).
	Text string

	// Trace holds diagnostic detail for MessageError, such as a stack trace
	// from a recovered panic.
	Trace string

	// Current and Total describe batch progress (MessageProgress).
	Current int
	Total   int

	// Sets maps condition label to the epoch sets collected across all
	// files (MessageResult).
	Sets map[string][]*epochs.Set
}
