package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/careerpath-backend/internal/http/response"
	"github.com/yungbote/careerpath-backend/internal/services"
)

type CareerHandler struct {
	careers services.CareerService
}

func NewCareerHandler(careers services.CareerService) *CareerHandler {
	return &CareerHandler{careers: careers}
}

// POST /careers/predictions
func (h *CareerHandler) Analyze(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	res, err := h.careers.Aggregate(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, "predict_careers_failed", err)
		return
	}
	if res.InsufficientData {
		response.RespondOK(c, gin.H{"message": res.Message, "predictions": res.Predictions, "avoid": res.Avoidances})
		return
	}
	response.RespondOK(c, res)
}

// GET /careers/predictions
func (h *CareerHandler) GetPredictions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	view, err := h.careers.LoadPredictions(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, "load_predictions_failed", err)
		return
	}
	response.RespondOK(c, view)
}
