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

// ReportHandler handles direct submission and every post-submission report.
type ReportHandler struct {
	submissionService *service.SubmissionService
	reportService     *service.ReportService
	statusService     *service.StatusService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(
	submissionService *service.SubmissionService,
	reportService *service.ReportService,
	statusService *service.StatusService,
) *ReportHandler {
	return &ReportHandler{
		submissionService: submissionService,
		reportService:     reportService,
		statusService:     statusService,
	}
}

// Submit godoc
// POST /api/v1/submissions
// Direct submission path for clients that assemble the payload themselves.
// Same arbiter as the session finalize path: one accepted submission per
// (user, test), ever.
func (h *ReportHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	testID, err := uuid.Parse(req.TestID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.submissionService.Submit(c.Request.Context(), claims.UserID, testID, req.Responses, false)
	if err != nil {
		failSubmitErr(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"submission": result})
}

// GetScorecard godoc
// GET /api/v1/tests/:test_id/report/scorecard
func (h *ReportHandler) GetScorecard(c *gin.Context) {
	claims, testID, ok := sessionParams(c)
	if !ok {
		return
	}

	report, err := h.reportService.GetScorecard(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		failReportErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}

// GetSubjects godoc
// GET /api/v1/tests/:test_id/report/subjects
func (h *ReportHandler) GetSubjects(c *gin.Context) {
	claims, testID, ok := sessionParams(c)
	if !ok {
		return
	}

	cards, err := h.reportService.GetSubjectBreakdown(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		failReportErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"subjects": cards})
}

// GetTopics godoc
// GET /api/v1/tests/:test_id/report/topics?subject=Physics
func (h *ReportHandler) GetTopics(c *gin.Context) {
	claims, testID, ok := sessionParams(c)
	if !ok {
		return
	}

	cards, err := h.reportService.GetTopicBreakdown(c.Request.Context(), claims.UserID, testID, c.Query("subject"))
	if err != nil {
		failReportErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"topics": cards})
}

// GetReview godoc
// GET /api/v1/tests/:test_id/report/review
// Question-by-question review with correct answers, post-submission only.
func (h *ReportHandler) GetReview(c *gin.Context) {
	claims, testID, ok := sessionParams(c)
	if !ok {
		return
	}

	rows, err := h.reportService.GetReview(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		failReportErr(c, err)
		return
	}
	if rows == nil {
		rows = []model.ReportRow{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": rows})
}

// GetStatusReport godoc
// GET /api/v1/tests/status
// Every visible test, partitioned into attempted/active/upcoming/missed.
func (h *ReportHandler) GetStatusReport(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	report, err := h.statusService.GetStatusReport(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, report)
}

// GetOverallStats godoc
// GET /api/v1/reports/overall
// Cross-test trend report, served from cache when warm.
func (h *ReportHandler) GetOverallStats(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	stats, err := h.reportService.GetOverallStats(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// GetErrorTaxonomy godoc
// GET /api/v1/reports/errors?test_id=...
// Aggregated self-tagged mistakes, across all tests or one.
func (h *ReportHandler) GetErrorTaxonomy(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var testID *uuid.UUID
	if raw := c.Query("test_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		testID = &id
	}

	counts, err := h.reportService.GetErrorTaxonomy(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if counts == nil {
		counts = []model.ErrorTypeCount{}
	}

	response.Success(c, http.StatusOK, gin.H{"error_types": counts})
}

func failSubmitErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateSubmission):
		response.Fail(c, http.StatusConflict, response.ErrDuplicateSubmission)
	case errors.Is(err, service.ErrConfidenceRequired), errors.Is(err, service.ErrInvalidConfidence):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrConfidenceRequired)
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func failReportErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotSubmitted):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
