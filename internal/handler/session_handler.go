package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/middleware"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/response"
	"github.com/stemsi/exstem-adaptive/internal/service"
	"github.com/stemsi/exstem-adaptive/internal/validator"
)

// SessionHandler serves the adaptive exam session endpoints.
type SessionHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.ExamSessionService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "session_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/sessions
// Opens a session for the authenticated student and returns the first question.
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	bankID, _ := uuid.Parse(req.BankID) // validated by binding

	result, err := h.sessionService.StartSession(c.Request.Context(), claims.Subject, bankID, req.Topic)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// SubmitAnswer godoc
// POST /api/v1/sessions/:id/answers
// Grades the answer to the outstanding question and serves the next one.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := parseID(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID, _ := uuid.Parse(req.QuestionID)

	result, err := h.sessionService.SubmitAnswer(c.Request.Context(), service.SubmitAnswerInput{
		SessionID:        sessionID,
		StudentID:        claims.Subject,
		QuestionID:       questionID,
		Answer:           req.Answer,
		SelectedOption:   req.SelectedOption,
		TimeSpentSeconds: *req.TimeSpentSeconds,
	})
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetSession godoc
// GET /api/v1/sessions/:id
// Returns the outstanding question and progress of the student's session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, ok := parseID(c)
	if !ok {
		return
	}

	view, err := h.sessionService.GetSession(c.Request.Context(), sessionID, middleware.Viewer(c))
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// GetReport godoc
// GET /api/v1/sessions/:id/report
// Returns the score, breakdowns and integrity report. Available to the
// session owner and to proctors.
func (h *SessionHandler) GetReport(c *gin.Context) {
	sessionID, ok := parseID(c)
	if !ok {
		return
	}

	report, err := h.sessionService.GetReport(c.Request.Context(), sessionID, middleware.Viewer(c))
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}

// parseID reads the :id path parameter, writing a 400 when it is malformed.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
