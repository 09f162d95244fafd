package sse

import "strings"

const (
	// DataPrefix starts every line that carries a payload.
	DataPrefix = "data: "
	// EndSentinel is the payload that terminates a stream.
	EndSentinel = "[END]"
	// CompleteSentinel is sent by the backend after the last model token.
	CompleteSentinel = "[STREAM_COMPLETE]"
	// ErrorPrefix starts a payload describing a generation failure.
	ErrorPrefix = "[ERROR]"
)

// EventKind identifies what a decoded line means.
type EventKind int

const (
	// EventNone is a blank separator or a line without a payload prefix.
	EventNone EventKind = iota
	// EventData carries one token.
	EventData
	// EventEnd is the explicit end of the stream.
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventData:
		return "data"
	case EventEnd:
		return "end"
	default:
		return "none"
	}
}

// Event is a decoded line.
type Event struct {
	Kind EventKind
	Data string
}

// Decode interprets a single line. Only a payload that is exactly the end
// sentinel once trimmed ends the stream; a sentinel embedded in other text
// is passed through as data.
func Decode(line string) Event {
	if strings.TrimSpace(line) == "" {
		return Event{Kind: EventNone}
	}
	if !strings.HasPrefix(line, DataPrefix) {
		return Event{Kind: EventNone}
	}

	data := line[len(DataPrefix):]
	if strings.TrimSpace(data) == EndSentinel {
		return Event{Kind: EventEnd}
	}
	return Event{Kind: EventData, Data: data}
}
