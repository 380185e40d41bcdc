package openai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type EventKind int

const (
	// EventDelta carries one non-empty content fragment.
	EventDelta EventKind = iota + 1
	// EventDone is emitted once, when the termination sentinel is read.
	EventDone
	// EventMalformed reports a held payload that never became valid JSON and was dropped.
	EventMalformed
)

func (k EventKind) String() string {
	switch k {
	case EventDelta:
		return "delta"
	case EventDone:
		return "done"
	case EventMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// ErrMalformedPayload wraps the payload reported by an EventMalformed.
var ErrMalformedPayload = errors.New("malformed stream payload")

type Event struct {
	Kind    EventKind
	Delta   string
	Payload string
}

func (e Event) Err() error {
	if e.Kind != EventMalformed {
		return nil
	}
	p := e.Payload
	if len(p) > 120 {
		p = p[:120] + "..."
	}
	return fmt.Errorf("%w: %q", ErrMalformedPayload, p)
}

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
	maxHeldBytes = 64 << 10
)

// Decoder turns chunks of a chat-completions event stream into ordered
// content deltas. It buffers raw bytes and only interprets complete lines, so
// a chunk boundary inside a line or inside a multi-byte UTF-8 character is
// carried forward untouched: '\n' never occurs inside a UTF-8 sequence.
//
// A data payload that fails to parse is held and the decoder stalls behind
// it: a following raw line that is not itself a frame is joined to the held
// payload and parsed again, so a JSON payload split across lines yields its
// delta exactly once, but any later data frame stays buffered and nothing
// more is emitted. Finalize reports the held payload as one EventMalformed and
// discards whatever was buffered behind it. When the held payload plus the
// bytes stalled behind it exceed 64 KiB, the payload is reported and dropped
// and decoding resumes with the stalled lines.
//
// A Decoder belongs to a single stream and is not safe for concurrent use.
type Decoder struct {
	buf  []byte
	off  int
	held []byte
	done bool
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Done reports whether the termination sentinel was seen or Finalize ran.
func (d *Decoder) Done() bool { return d.done }

// Feed appends chunk and returns the events for every line it completed.
func (d *Decoder) Feed(chunk []byte) []Event {
	if d.done {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	events := d.drain(nil)
	for d.held != nil && d.pending() > maxHeldBytes {
		events = d.dropHeld(events)
		events = d.drain(events)
	}
	d.compact()
	return events
}

// Finalize flushes a trailing unterminated line, reports any held payload
// and closes the decoder. Bytes stalled behind a held payload are discarded.
func (d *Decoder) Finalize() []Event {
	if d.done {
		return nil
	}
	var events []Event
	if rest := d.buf[d.off:]; len(rest) > 0 && (d.held == nil || !isFrame(rest)) {
		line := rest
		d.off = len(d.buf)
		events = d.processLine(line, events)
	}
	if d.held != nil {
		events = d.dropHeld(events)
	}
	d.done = true
	d.buf = nil
	d.off = 0
	return events
}

func (d *Decoder) drain(events []Event) []Event {
	for !d.done {
		i := bytes.IndexByte(d.buf[d.off:], '\n')
		if i < 0 {
			break
		}
		line := d.buf[d.off : d.off+i]
		if d.held != nil && isFrame(line) {
			break
		}
		d.off += i + 1
		events = d.processLine(line, events)
	}
	return events
}

// pending counts the held payload and every byte buffered behind it.
func (d *Decoder) pending() int {
	return len(d.held) + len(d.buf) - d.off
}

func (d *Decoder) compact() {
	if d.done {
		d.buf = nil
		d.off = 0
		return
	}
	if d.off == 0 {
		return
	}
	n := copy(d.buf, d.buf[d.off:])
	d.buf = d.buf[:n]
	d.off = 0
}

func (d *Decoder) processLine(line []byte, events []Event) []Event {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	ignorable := len(bytes.TrimSpace(line)) == 0 || line[0] == ':'

	if d.held != nil {
		if ignorable {
			return events
		}
		candidate := append(d.held, line...)
		if delta, ok := parseDelta(candidate); ok {
			d.held = nil
			return appendDelta(events, delta)
		}
		d.held = candidate
		return events
	}

	if ignorable || !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return events
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if string(payload) == doneSentinel {
		d.done = true
		return append(events, Event{Kind: EventDone})
	}
	delta, ok := parseDelta(payload)
	if !ok {
		d.held = append([]byte(nil), payload...)
		return events
	}
	return appendDelta(events, delta)
}

func (d *Decoder) dropHeld(events []Event) []Event {
	ev := Event{Kind: EventMalformed, Payload: string(d.held)}
	d.held = nil
	return append(events, ev)
}

func isFrame(line []byte) bool {
	return bytes.HasPrefix(line, []byte("data:"))
}

func appendDelta(events []Event, delta string) []Event {
	if delta == "" {
		return events
	}
	return append(events, Event{Kind: EventDelta, Delta: delta})
}

type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// parseDelta reports ok=false only for syntactically invalid JSON. Valid JSON
// of another shape yields no content.
func parseDelta(payload []byte) (string, bool) {
	if !json.Valid(payload) {
		return "", false
	}
	var frame streamFrame
	if err := json.Unmarshal(payload, &frame); err != nil || len(frame.Choices) == 0 {
		return "", true
	}
	return frame.Choices[0].Delta.Content, true
}
