package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// sseStream writes server-sent events. Headers go out with the first event
// so errors found before any output can still be sent as plain JSON.
type sseStream struct {
	c       *gin.Context
	started bool
}

func (s *sseStream) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.c.Writer.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.c.Status(http.StatusOK)
}

func (s *sseStream) write(event string, payload any) error {
	s.start()
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if event = strings.TrimSpace(event); event != "" {
		if _, err := fmt.Fprintf(s.c.Writer, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	s.c.Writer.Flush()
	return nil
}

func (s *sseStream) delta(text string) error {
	return s.write("", gin.H{"delta": text})
}

func (s *sseStream) done() {
	s.start()
	_, _ = s.c.Writer.WriteString("data: [DONE]\n\n")
	s.c.Writer.Flush()
}
