package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/penflow/penflow/internal/session"
)

// maxEventSize bounds a single SSE frame; chapter-length suggestion
// payloads fit comfortably.
const maxEventSize = 1 << 20

// Scanner reads server-sent events from a stream and decodes each frame's
// data payload into a protocol event. Frames are returned strictly in
// arrival order.
type Scanner struct {
	scanner *bufio.Scanner
}

// NewScanner wraps a response body in an SSE frame reader.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &Scanner{scanner: sc}
}

// Next returns the next decoded event. It returns io.EOF when the stream
// ends cleanly and the underlying read error otherwise.
func (s *Scanner) Next() (session.Event, error) {
	var eventName string
	var data strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if data.Len() == 0 {
				// Keep-alive frame with no payload.
				eventName = ""
				continue
			}
			return decodeFrame(eventName, data.String())
		}

		switch {
		case strings.HasPrefix(line, ":"):
			// Comment / heartbeat.
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// id: and retry: fields are not used by this protocol.
	}

	if err := s.scanner.Err(); err != nil {
		return session.Event{}, err
	}
	if data.Len() > 0 {
		// Stream ended mid-frame without the trailing blank line.
		return decodeFrame(eventName, data.String())
	}
	return session.Event{}, io.EOF
}

// decodeFrame parses a frame payload. The event type normally travels in
// the JSON body; the SSE event tag is used as a fallback.
func decodeFrame(eventName, data string) (session.Event, error) {
	var ev session.Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return session.Event{}, fmt.Errorf("decode event payload: %w", err)
	}
	if ev.Type == "" {
		ev.Type = session.EventType(eventName)
	}
	if ev.Type == "" {
		return session.Event{}, fmt.Errorf("event frame missing type tag")
	}
	return ev, nil
}
