package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/careerpath-backend/internal/http/response"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
	"github.com/yungbote/careerpath-backend/internal/platform/openai"
	"github.com/yungbote/careerpath-backend/internal/services"
)

// statusClientClosedRequest is logged when the caller hung up mid-turn.
const statusClientClosedRequest = 499

type MentorHandler struct {
	log      *logger.Logger
	sessions *services.MentorSessionManager
}

func NewMentorHandler(log *logger.Logger, sessions *services.MentorSessionManager) *MentorHandler {
	return &MentorHandler{log: log.With("handler", "MentorHandler"), sessions: sessions}
}

// POST /mentor/sessions
// body (optional): { "user_name": "..." }
func (h *MentorHandler) CreateSession(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		UserName string `json:"user_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, err := h.sessions.Create(userID, req.UserName)
	if err != nil {
		response.RespondServiceError(c, "create_session_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"session": s.View()})
}

// GET /mentor/sessions/:id
func (h *MentorHandler) GetSession(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	s, err := h.sessions.Get(userID, id)
	if err != nil {
		response.RespondServiceError(c, "session_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"session": s.View()})
}

// DELETE /mentor/sessions/:id
func (h *MentorHandler) DeleteSession(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	if err := h.sessions.Delete(userID, id); err != nil {
		response.RespondServiceError(c, "session_not_found", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type turnErrorBody struct {
	Error response.APIError `json:"error"`
	// Input is the unsent text so the client can put it back in the composer.
	Input string `json:"input,omitempty"`
}

// POST /mentor/sessions/:id/messages
// body: { "content": "..." }
// Streams `data: {"delta": "..."}` frames and ends with `data: [DONE]`.
func (h *MentorHandler) SendMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "invalid_session_id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, err := h.sessions.Get(userID, id)
	if err != nil {
		response.RespondServiceError(c, "session_not_found", err)
		return
	}

	stream := &sseStream{c: c}
	_, err = s.Send(c.Request.Context(), req.Content, stream.delta)
	if err == nil {
		stream.done()
		return
	}

	var terr *services.TurnError
	if !errors.As(err, &terr) {
		if stream.started {
			_ = stream.write("error", response.APIError{Message: err.Error(), Code: "send_failed"})
			return
		}
		response.RespondServiceError(c, "send_failed", err)
		return
	}

	h.log.Warn("mentor turn failed",
		"session_id", id.String(),
		"kind", terr.Kind.String(),
		"streamed", terr.Streamed,
		"error", err.Error(),
	)
	body := turnErrorBody{
		Error: response.APIError{Message: terr.UserMessage(), Code: terr.Kind.String()},
		Input: terr.Input,
	}
	if terr.Kind == services.TurnCanceled {
		if !stream.started {
			c.Status(statusClientClosedRequest)
		}
		return
	}
	if stream.started {
		_ = stream.write("error", body)
		return
	}
	if terr.Kind == services.TurnRateLimited {
		var herr *openai.HTTPError
		if errors.As(terr, &herr) && herr.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(herr.RetryAfter.Seconds())))
		}
	}
	c.JSON(turnStatus(terr.Kind), body)
}

func turnStatus(kind services.TurnErrorKind) int {
	switch kind {
	case services.TurnAuthRequired:
		return http.StatusUnauthorized
	case services.TurnRateLimited:
		return http.StatusTooManyRequests
	case services.TurnQuotaExceeded:
		return http.StatusPaymentRequired
	case services.TurnBusy:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
