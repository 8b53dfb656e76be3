package stream

import "strings"

// Event is one parsed server-sent event frame.
type Event struct {
	ID    string
	Event string
	Data  string
}

// parseEvent parses a raw frame (the bytes between two blank-line delimiters)
// into an Event. Frames without any data line are malformed and yield nil.
// Comment lines (leading ':') and unknown fields are ignored.
func parseEvent(block string) *Event {
	var (
		id        string
		eventType = "message"
		dataLines []string
	)

	for _, rawLine := range strings.Split(block, "\n") {
		line := strings.TrimRight(rawLine, " \t\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimSpace(line[len("id:"):])
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
		}
	}

	if len(dataLines) == 0 {
		return nil
	}

	return &Event{
		ID:    id,
		Event: eventType,
		Data:  strings.Join(dataLines, "\n"),
	}
}
