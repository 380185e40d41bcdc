package openai

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func frame(content string) string {
	return `data: {"choices":[{"delta":{"content":` + quote(content) + `}}]}` + "\n"
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func decodeChunks(chunks [][]byte) []Event {
	d := NewDecoder()
	var out []Event
	for _, c := range chunks {
		out = append(out, d.Feed(c)...)
	}
	return append(out, d.Finalize()...)
}

func deltas(events []Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Kind == EventDelta {
			b.WriteString(ev.Delta)
		}
	}
	return b.String()
}

func TestDecoderEmitsDeltasInOrder(t *testing.T) {
	stream := ": keep-alive\n" +
		frame("Hel") +
		"\n" +
		"event: message\n" +
		frame("lo") +
		`data: {"choices":[{"delta":{}}]}` + "\n" +
		frame(" world") +
		"data: [DONE]\n"

	events := decodeChunks([][]byte{[]byte(stream)})
	if got := deltas(events); got != "Hello world" {
		t.Fatalf("deltas: got=%q", got)
	}
	var kinds []EventKind
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	want := []EventKind{EventDelta, EventDelta, EventDelta, EventDone}
	if len(kinds) != len(want) {
		t.Fatalf("kinds: got=%v want=%v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds[%d]: got=%v want=%v", i, kinds[i], want[i])
		}
	}
}

func TestDecoderChunkBoundaryIndependence(t *testing.T) {
	stream := []byte(frame("Ça va? ") + "\r\n" + frame("日本語の") + frame("テキスト 🚀") + ": ping\r\n" + frame("done") + "data: [DONE]\n")
	want := decodeChunks([][]byte{stream})
	if deltas(want) != "Ça va? 日本語のテキスト 🚀done" {
		t.Fatalf("baseline deltas: %q", deltas(want))
	}

	// Every two-way split, including splits inside multi-byte characters.
	for i := 0; i <= len(stream); i++ {
		got := decodeChunks([][]byte{stream[:i], stream[i:]})
		if deltas(got) != deltas(want) || len(got) != len(want) {
			t.Fatalf("split at %d: got=%q want=%q", i, deltas(got), deltas(want))
		}
	}

	// One byte at a time.
	var bytewise [][]byte
	for i := range stream {
		bytewise = append(bytewise, stream[i:i+1])
	}
	if got := decodeChunks(bytewise); deltas(got) != deltas(want) {
		t.Fatalf("bytewise: got=%q", deltas(got))
	}

	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 200; n++ {
		var chunks [][]byte
		rest := stream
		for len(rest) > 0 {
			k := 1 + rng.Intn(12)
			if k > len(rest) {
				k = len(rest)
			}
			chunks = append(chunks, rest[:k])
			rest = rest[k:]
		}
		if got := decodeChunks(chunks); deltas(got) != deltas(want) {
			t.Fatalf("random split %d: got=%q", n, deltas(got))
		}
	}
}

func TestDecoderIgnoresEverythingAfterDone(t *testing.T) {
	d := NewDecoder()
	events := d.Feed([]byte(frame("a") + "data: [DONE]\n" + frame("b")))
	if deltas(events) != "a" {
		t.Fatalf("deltas: got=%q", deltas(events))
	}
	if !d.Done() {
		t.Fatalf("expected decoder to be done")
	}
	if extra := d.Feed([]byte(frame("c"))); len(extra) != 0 {
		t.Fatalf("feed after done: got=%v", extra)
	}
	if extra := d.Finalize(); len(extra) != 0 {
		t.Fatalf("finalize after done: got=%v", extra)
	}
}

func TestDecoderJoinsPayloadSplitAcrossLines(t *testing.T) {
	stream := `data: {"choices":[{"delta":` + "\n" +
		`{"content":"joined"}}]}` + "\n" +
		frame("!")

	for i := 0; i <= len(stream); i++ {
		events := decodeChunks([][]byte{[]byte(stream[:i]), []byte(stream[i:])})
		if got := deltas(events); got != "joined!" {
			t.Fatalf("split at %d: got=%q", i, got)
		}
		for _, ev := range events {
			if ev.Kind == EventMalformed {
				t.Fatalf("split at %d: unexpected malformed event %q", i, ev.Payload)
			}
		}
	}
}

func TestDecoderStallsBehindHeldPayload(t *testing.T) {
	d := NewDecoder()
	stream := frame("before") + `data: {"choices":[` + "\n\n" + frame("after") + "data: [DONE]\n"

	events := d.Feed([]byte(stream))
	if len(events) != 1 || events[0].Kind != EventDelta || events[0].Delta != "before" {
		t.Fatalf("feed: got=%+v", events)
	}
	if more := d.Feed([]byte(frame("later"))); len(more) != 0 {
		t.Fatalf("stalled decoder emitted: got=%+v", more)
	}
	if d.Done() {
		t.Fatalf("sentinel behind a held payload must not be processed")
	}

	events = d.Finalize()
	if len(events) != 1 {
		t.Fatalf("finalize: got=%+v", events)
	}
	if events[0].Kind != EventMalformed || events[0].Payload != `{"choices":[` {
		t.Fatalf("finalize event: got=%+v", events[0])
	}
	if !errors.Is(events[0].Err(), ErrMalformedPayload) {
		t.Fatalf("malformed err: got=%v", events[0].Err())
	}
	if !d.Done() {
		t.Fatalf("expected done after finalize")
	}
}

func TestDecoderStallIsChunkBoundaryIndependent(t *testing.T) {
	stream := "data: {bad\n" + `data: {"choices":[{"delta":{"content":"later"}}]}` + "\n"
	for i := 0; i <= len(stream); i++ {
		events := decodeChunks([][]byte{[]byte(stream[:i]), []byte(stream[i:])})
		if len(events) != 1 || events[0].Kind != EventMalformed || events[0].Payload != "{bad" {
			t.Fatalf("split at %d: got=%+v", i, events)
		}
	}
}

func TestDecoderBoundsHeldPayload(t *testing.T) {
	d := NewDecoder()
	events := d.Feed([]byte("data: {\n"))
	filler := strings.Repeat("x", 1024) + "\n"
	for i := 0; i < 70 && len(events) == 0; i++ {
		events = append(events, d.Feed([]byte(filler))...)
	}
	if len(events) != 1 || events[0].Kind != EventMalformed {
		t.Fatalf("expected one malformed event, got %d", len(events))
	}
	if got := deltas(d.Feed([]byte(frame("ok")))); got != "ok" {
		t.Fatalf("decoder stalled: got=%q", got)
	}
}

func TestDecoderBoundsFramesStalledBehindHeldPayload(t *testing.T) {
	d := NewDecoder()
	events := d.Feed([]byte("data: {bad\n"))
	chunk := frame(strings.Repeat("z", 1024))
	for i := 0; i < 70 && len(events) == 0; i++ {
		events = append(events, d.Feed([]byte(chunk))...)
	}
	if len(events) == 0 || events[0].Kind != EventMalformed || events[0].Payload != "{bad" {
		t.Fatalf("expected the held payload to be dropped first, got %d events", len(events))
	}
	for _, ev := range events[1:] {
		if ev.Kind != EventDelta {
			t.Fatalf("unexpected event after resume: %v", ev.Kind)
		}
	}
	if len(events) < 2 {
		t.Fatalf("stalled frames were not resumed")
	}
}

func TestDecoderFinalize(t *testing.T) {
	t.Run("trailing line without newline", func(t *testing.T) {
		d := NewDecoder()
		events := d.Feed([]byte(strings.TrimSuffix(frame("tail"), "\n")))
		if len(events) != 0 {
			t.Fatalf("feed: got=%v", events)
		}
		if got := deltas(d.Finalize()); got != "tail" {
			t.Fatalf("finalize: got=%q", got)
		}
	})

	t.Run("trailing continuation completes held payload", func(t *testing.T) {
		d := NewDecoder()
		d.Feed([]byte(`data: {"choices":[{"delta":` + "\n" + `{"content":"tail"}}]}`))
		events := d.Finalize()
		if len(events) != 1 || events[0].Kind != EventDelta || events[0].Delta != "tail" {
			t.Fatalf("finalize: got=%+v", events)
		}
	})

	t.Run("held payload is reported", func(t *testing.T) {
		d := NewDecoder()
		d.Feed([]byte("data: {\"choices\":\n"))
		events := d.Finalize()
		if len(events) != 1 || events[0].Kind != EventMalformed {
			t.Fatalf("finalize: got=%+v", events)
		}
		if !d.Done() {
			t.Fatalf("expected done after finalize")
		}
	})
}

func TestDecoderIgnoresValidJSONWithoutChoices(t *testing.T) {
	events := decodeChunks([][]byte{[]byte("data: 42\ndata: {\"id\":\"x\"}\n" + frame("y"))})
	if len(events) != 1 || events[0].Delta != "y" {
		t.Fatalf("events: got=%+v", events)
	}
}
