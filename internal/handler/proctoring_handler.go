package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/middleware"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/response"
	"github.com/stemsi/exstem-adaptive/internal/service"
)

// ProctoringHandler accepts proctoring events over REST.
type ProctoringHandler struct {
	proctoringService *service.ProctoringService
	log               zerolog.Logger
}

// NewProctoringHandler creates a new ProctoringHandler.
func NewProctoringHandler(proctoringService *service.ProctoringService, log zerolog.Logger) *ProctoringHandler {
	return &ProctoringHandler{
		proctoringService: proctoringService,
		log:               log.With().Str("component", "proctoring_handler").Logger(),
	}
}

// LogEvent godoc
// POST /api/v1/sessions/:id/proctoring/events
// Acknowledges one event with 202. Malformed events are dropped and
// acknowledged with accepted=false.
func (h *ProctoringHandler) LogEvent(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := parseID(c)
	if !ok {
		return
	}

	session, err := h.proctoringService.Authorize(c.Request.Context(), sessionID, claims.Subject)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	var req model.LogProctoringEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Str("session_id", sessionID.String()).Msg("Dropping malformed proctoring event")
		response.Success(c, http.StatusAccepted, gin.H{"accepted": false})
		return
	}

	accepted, err := h.proctoringService.Record(c.Request.Context(), session, &req)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"accepted": accepted})
}
