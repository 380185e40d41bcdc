package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/careerpath-backend/internal/http/response"
	"github.com/yungbote/careerpath-backend/internal/services"
)

type JournalHandler struct {
	journal services.JournalService
}

func NewJournalHandler(journal services.JournalService) *JournalHandler {
	return &JournalHandler{journal: journal}
}

// POST /journal/entries
// body: { "title": "...", "content": "..." }
func (h *JournalHandler) CreateEntry(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req services.CreateEntryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	entry, analysis, err := h.journal.CreateEntry(c.Request.Context(), userID, req)
	if err != nil {
		response.RespondServiceError(c, "create_entry_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"entry": entry, "analysis": analysis})
}

// GET /journal/entries?limit=
func (h *JournalHandler) ListEntries(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	entries, err := h.journal.ListEntries(c.Request.Context(), userID, limit)
	if err != nil {
		response.RespondServiceError(c, "list_entries_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"entries": entries})
}

// GET /journal/mood?days=&limit=
func (h *JournalHandler) MoodTrend(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	days, ok := queryInt(c, "days")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	points, err := h.journal.MoodTrend(c.Request.Context(), userID, services.MoodQuery{Days: days, Limit: limit})
	if err != nil {
		response.RespondServiceError(c, "mood_trend_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"mood": points})
}
