package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/careerpath-backend/internal/pkg/ctxutil"
	pkgerrors "github.com/yungbote/careerpath-backend/internal/pkg/errors"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
	"github.com/yungbote/careerpath-backend/internal/platform/openai"
	"github.com/yungbote/careerpath-backend/internal/prompts"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	streamReadSize = 4 << 10
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SessionState int

const (
	StateIdle SessionState = iota
	StateAwaitingAuth
	StateSending
	StateStreaming
	StateErrorRollback
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingAuth:
		return "awaiting_auth"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateErrorRollback:
		return "error_rollback"
	default:
		return "unknown"
	}
}

type TurnErrorKind int

const (
	TurnAuthRequired TurnErrorKind = iota + 1
	TurnRateLimited
	TurnQuotaExceeded
	TurnTransport
	TurnBusy
	TurnCanceled
)

func (k TurnErrorKind) String() string {
	switch k {
	case TurnAuthRequired:
		return "auth_required"
	case TurnRateLimited:
		return "rate_limited"
	case TurnQuotaExceeded:
		return "quota_exceeded"
	case TurnTransport:
		return "transport_error"
	case TurnBusy:
		return "busy"
	case TurnCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// UserMessage is the text shown to the person who sent the turn.
func (k TurnErrorKind) UserMessage() string {
	switch k {
	case TurnAuthRequired:
		return "Please sign in to use AI mentor"
	case TurnRateLimited:
		return "Rate limit exceeded. Please try again later."
	case TurnQuotaExceeded:
		return "AI usage limit reached. Please contact support."
	case TurnBusy:
		return "The mentor is still answering your previous message."
	case TurnCanceled:
		return "Request canceled."
	default:
		return "Failed to get response from mentor."
	}
}

// ErrSessionBusy is matched by errors.Is for a TurnError of kind TurnBusy.
var ErrSessionBusy = errors.New("mentor session busy")

// TurnError reports a failed turn. The conversation is back at its length
// before the turn and Input carries the text so it can be restored for the user.
type TurnError struct {
	Kind  TurnErrorKind
	Input string
	// Streamed reports whether any delta reached the sink before the failure.
	Streamed bool
	Err      error
}

func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mentor turn %s: %v", e.Kind, e.Err)
	}
	return "mentor turn " + e.Kind.String()
}

func (e *TurnError) Unwrap() error { return e.Err }

func (e *TurnError) Is(target error) bool {
	return target == ErrSessionBusy && e.Kind == TurnBusy
}

func (e *TurnError) UserMessage() string { return e.Kind.UserMessage() }

// DeltaSink receives each content fragment as soon as it is decoded. A
// non-nil return aborts the turn.
type DeltaSink func(delta string) error

// MentorSession is one server-held conversation with a single turn in flight at a time.
type MentorSession struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	UserName  string
	CreatedAt time.Time

	log        *logger.Logger
	client     openai.Client
	ctxBuilder MentorContextBuilder
	prompts    *prompts.Catalog

	mu         sync.Mutex
	state      SessionState
	messages   []ChatMessage
	lastActive time.Time
}

type MentorSessionView struct {
	ID        uuid.UUID     `json:"id"`
	UserName  string        `json:"user_name,omitempty"`
	State     string        `json:"state"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
}

func (s *MentorSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the conversation.
func (s *MentorSession) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *MentorSession) View() MentorSessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]ChatMessage, len(s.messages))
	copy(msgs, s.messages)
	return MentorSessionView{
		ID:        s.ID,
		UserName:  s.UserName,
		State:     s.state.String(),
		Messages:  msgs,
		CreatedAt: s.CreatedAt,
	}
}

func (s *MentorSession) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.state == StateIdle
}

// Send runs one turn: it appends the user message, streams the reply into a
// new assistant message and publishes each delta to sink. On failure the
// conversation is rolled back and a *TurnError is returned.
func (s *MentorSession) Send(ctx context.Context, input string, sink DeltaSink) (ChatMessage, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return ChatMessage{}, fmt.Errorf("%w: message content is required", pkgerrors.ErrInvalidArgument)
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ChatMessage{}, &TurnError{Kind: TurnBusy, Input: input}
	}
	s.state = StateAwaitingAuth
	preLen := len(s.messages)
	s.mu.Unlock()

	rd := ctxutil.GetRequestData(ctx)
	if !rd.HasCredential() || rd.UserID != s.UserID {
		return ChatMessage{}, s.rollback(preLen, &TurnError{Kind: TurnAuthRequired, Input: input, Err: pkgerrors.ErrUnauthorized})
	}

	s.mu.Lock()
	s.messages = append(s.messages, ChatMessage{Role: RoleUser, Content: text})
	history := make([]openai.Message, 0, len(s.messages)+1)
	for _, m := range s.messages {
		history = append(history, openai.Message{Role: m.Role, Content: m.Content})
	}
	s.state = StateSending
	s.mu.Unlock()

	system, err := s.systemPrompt(ctx)
	if err != nil {
		return ChatMessage{}, s.rollback(preLen, &TurnError{Kind: turnKindOf(ctx, err), Input: input, Err: err})
	}
	history = append([]openai.Message{{Role: "system", Content: system}}, history...)

	body, err := s.client.Stream(ctx, openai.Request{Messages: history})
	if err != nil {
		return ChatMessage{}, s.rollback(preLen, &TurnError{Kind: turnKindOf(ctx, err), Input: input, Err: err})
	}
	defer body.Close()
	// Unblocks a pending Read when the caller goes away.
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	s.mu.Lock()
	s.messages = append(s.messages, ChatMessage{Role: RoleAssistant})
	s.state = StateStreaming
	s.mu.Unlock()

	streamed, err := s.readStream(ctx, body, sink)
	if err != nil {
		return ChatMessage{}, s.rollback(preLen, &TurnError{Kind: turnKindOf(ctx, err), Input: input, Streamed: streamed, Err: err})
	}

	s.mu.Lock()
	reply := s.messages[len(s.messages)-1]
	s.state = StateIdle
	s.lastActive = time.Now()
	s.mu.Unlock()

	s.log.Debug("mentor turn complete", "session_id", s.ID.String(), "reply_len", len(reply.Content))
	return reply, nil
}

func (s *MentorSession) systemPrompt(ctx context.Context) (string, error) {
	block, err := s.ctxBuilder.BuildContext(ctx, s.UserID)
	if err != nil {
		return "", err
	}
	return s.prompts.Render(prompts.MentorSystem, struct {
		UserName string
		Context  string
	}{UserName: s.UserName, Context: block})
}

// readStream is the only suspension point of a turn. Deltas are applied in
// arrival order and published before the next read.
func (s *MentorSession) readStream(ctx context.Context, body io.Reader, sink DeltaSink) (bool, error) {
	dec := openai.NewDecoder()
	buf := make([]byte, streamReadSize)
	streamed := false

	apply := func(events []openai.Event) error {
		for _, ev := range events {
			switch ev.Kind {
			case openai.EventDelta:
				s.mu.Lock()
				last := &s.messages[len(s.messages)-1]
				last.Content += ev.Delta
				s.mu.Unlock()
				streamed = true
				if sink != nil {
					if err := sink(ev.Delta); err != nil {
						return fmt.Errorf("publish delta: %w", err)
					}
				}
			case openai.EventMalformed:
				s.log.Warn("mentor stream: dropped malformed payload", "session_id", s.ID.String(), "error", ev.Err())
			}
		}
		return nil
	}

	for !dec.Done() {
		if err := ctx.Err(); err != nil {
			return streamed, err
		}
		n, rerr := body.Read(buf)
		if n > 0 {
			if err := apply(dec.Feed(buf[:n])); err != nil {
				return streamed, err
			}
		}
		if rerr == nil {
			continue
		}
		if errors.Is(rerr, io.EOF) {
			return streamed, apply(dec.Finalize())
		}
		if cerr := ctx.Err(); cerr != nil {
			return streamed, cerr
		}
		return streamed, fmt.Errorf("read completion stream: %w", rerr)
	}
	return streamed, nil
}

func (s *MentorSession) rollback(preLen int, terr *TurnError) error {
	s.mu.Lock()
	s.state = StateErrorRollback
	if len(s.messages) > preLen {
		s.messages = s.messages[:preLen]
	}
	s.state = StateIdle
	s.lastActive = time.Now()
	s.mu.Unlock()

	s.log.Warn("mentor turn rolled back",
		"session_id", s.ID.String(),
		"kind", terr.Kind.String(),
		"streamed", terr.Streamed,
		"error", terr.Err,
	)
	return terr
}

func turnKindOf(ctx context.Context, err error) TurnErrorKind {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return TurnCanceled
	}
	switch openai.Classify(err) {
	case openai.StatusRateLimited:
		return TurnRateLimited
	case openai.StatusQuotaExceeded:
		return TurnQuotaExceeded
	default:
		return TurnTransport
	}
}
