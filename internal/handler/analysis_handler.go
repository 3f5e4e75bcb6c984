package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepsio/testline-backend/internal/middleware"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/response"
	"github.com/prepsio/testline-backend/internal/service"
	"github.com/prepsio/testline-backend/internal/validator"
)

// AnalysisHandler handles the post-test self-review endpoints.
type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// Save godoc
// PUT /api/v1/analysis
// Upserts one question's analysis; saving twice replaces the earlier row.
func (h *AnalysisHandler) Save(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SaveAnalysisRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	testID, err := uuid.Parse(req.TestID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	a, err := h.analysisService.Save(c.Request.Context(), claims.UserID, testID, questionID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotSubmitted):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrQuestionNotInTest):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrInvalidErrorType):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidErrorType)
		case errors.Is(err, service.ErrAnalysisNotAllowed):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrAnalysisNotAllowed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"analysis": a})
}

// List godoc
// GET /api/v1/tests/:test_id/analysis
func (h *AnalysisHandler) List(c *gin.Context) {
	claims, testID, ok := sessionParams(c)
	if !ok {
		return
	}

	items, err := h.analysisService.List(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if items == nil {
		items = []model.Analysis{}
	}

	response.Success(c, http.StatusOK, gin.H{"analysis": items})
}
