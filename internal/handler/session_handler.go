package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepsio/testline-backend/internal/middleware"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/response"
	"github.com/prepsio/testline-backend/internal/service"
	"github.com/prepsio/testline-backend/internal/validator"
)

// SessionHandler handles the examinee test-taking endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
	testService    *service.TestService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService, testService *service.TestService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, testService: testService}
}

// Open godoc
// POST /api/v1/tests/:test_id/session
// Opens (or re-joins) the session. Idempotent: the clock starts once.
func (h *SessionHandler) Open(c *gin.Context) {
	claims, testID, ok := sessionParams(c)
	if !ok {
		return
	}

	state, err := h.sessionService.Open(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": state})
}

// GetState godoc
// GET /api/v1/tests/:test_id/session
// Reload-safe state: answers, phase and server-computed remaining seconds.
func (h *SessionHandler) GetState(c *gin.Context) {
	claims, testID, ok := sessionParams(c)
	if !ok {
		return
	}

	state, err := h.sessionService.GetState(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": state})
}

// ApplyEvent godoc
// POST /api/v1/tests/:test_id/session/events
// Applies one state machine transition and returns the new state.
func (h *SessionHandler) ApplyEvent(c *gin.Context) {
	claims, testID, ok := sessionParams(c)
	if !ok {
		return
	}

	var req model.SessionEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.sessionService.ApplyEvent(c.Request.Context(), claims.UserID, testID, &req)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": state})
}

// Finalize godoc
// POST /api/v1/tests/:test_id/session/finalize
// Turns the open session into the one accepted submission.
func (h *SessionHandler) Finalize(c *gin.Context) {
	claims, testID, ok := sessionParams(c)
	if !ok {
		return
	}

	result, err := h.sessionService.Finalize(c.Request.Context(), claims.UserID, testID, false)
	if err != nil {
		failSessionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": result})
}

// GetPaper godoc
// GET /api/v1/tests/:test_id/paper
// The test paper with correct answers stripped. Requires an open session so
// nobody downloads a paper before starting.
func (h *SessionHandler) GetPaper(c *gin.Context) {
	claims, testID, ok := sessionParams(c)
	if !ok {
		return
	}

	if _, err := h.sessionService.GetState(c.Request.Context(), claims.UserID, testID); err != nil {
		failSessionErr(c, err)
		return
	}

	paper, err := h.testService.GetPaper(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

func sessionParams(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, testID, true
}

// failSessionErr maps session and submission errors onto response codes.
func failSessionErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoSession):
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveSession)
	case errors.Is(err, service.ErrSessionSubmitted), errors.Is(err, service.ErrDuplicateSubmission):
		response.Fail(c, http.StatusConflict, response.ErrSessionSubmitted)
	case errors.Is(err, service.ErrFinalizeInFlight):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
	case errors.Is(err, service.ErrTestNotActive):
		response.Fail(c, http.StatusForbidden, response.ErrTestNotActive)
	case errors.Is(err, service.ErrConfidenceRequired):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrConfidenceRequired)
	case errors.Is(err, service.ErrInvalidConfidence):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrConfidenceRequired)
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
	case isMachineErr(err):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidTransition)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
