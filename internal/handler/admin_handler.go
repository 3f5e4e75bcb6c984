package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/repository"
	"github.com/prepsio/testline-backend/internal/response"
	"github.com/prepsio/testline-backend/internal/service"
	"github.com/prepsio/testline-backend/internal/validator"
)

// AdminHandler handles test and question authoring plus the results view.
type AdminHandler struct {
	testService  *service.TestService
	adminService *service.AdminService
	responseRepo *repository.ResponseRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	testService *service.TestService,
	adminService *service.AdminService,
	responseRepo *repository.ResponseRepository,
) *AdminHandler {
	return &AdminHandler{
		testService:  testService,
		adminService: adminService,
		responseRepo: responseRepo,
	}
}

// CreateTest godoc
// POST /api/v1/admin/tests
func (h *AdminHandler) CreateTest(c *gin.Context) {
	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	t, err := h.testService.CreateTest(c.Request.Context(), &req)
	if err != nil {
		failAuthoringErr(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": t})
}

// UpdateTest godoc
// PATCH /api/v1/admin/tests/:test_id
func (h *AdminHandler) UpdateTest(c *gin.Context) {
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	var req model.UpdateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	t, err := h.testService.UpdateTest(c.Request.Context(), testID, &req)
	if err != nil {
		failAuthoringErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": t})
}

// DeleteTest godoc
// DELETE /api/v1/admin/tests/:test_id
func (h *AdminHandler) DeleteTest(c *gin.Context) {
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	if err := h.testService.DeleteTest(c.Request.Context(), testID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// ListTests godoc
// GET /api/v1/admin/tests?page=1&per_page=20
func (h *AdminHandler) ListTests(c *gin.Context) {
	page, perPage := paginationParams(c)

	tests, total, err := h.testService.ListTests(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if tests == nil {
		tests = []model.Test{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": tests}, buildPagination(page, perPage, total))
}

// GetTest godoc
// GET /api/v1/admin/tests/:test_id
func (h *AdminHandler) GetTest(c *gin.Context) {
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	t, err := h.testService.GetTest(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": t})
}

// AddQuestion godoc
// POST /api/v1/admin/tests/:test_id/questions
func (h *AdminHandler) AddQuestion(c *gin.Context) {
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.testService.AddQuestion(c.Request.Context(), testID, &req)
	if err != nil {
		failAuthoringErr(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": q})
}

// ListQuestions godoc
// GET /api/v1/admin/tests/:test_id/questions
// Includes correct answers; authoring side only.
func (h *AdminHandler) ListQuestions(c *gin.Context) {
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	questions, err := h.testService.ListQuestions(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// UpdateQuestion godoc
// PUT /api/v1/admin/questions/:question_id
func (h *AdminHandler) UpdateQuestion(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.testService.UpdateQuestion(c.Request.Context(), questionID, &req)
	if err != nil {
		failAuthoringErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// RemoveQuestion godoc
// DELETE /api/v1/admin/tests/:test_id/questions/:question_id
func (h *AdminHandler) RemoveQuestion(c *gin.Context) {
	testID, ok := parseTestID(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.testService.RemoveQuestion(c.Request.Context(), testID, questionID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// GetResults godoc
// GET /api/v1/admin/tests/:test_id/results?page=1&per_page=20
// Per-user aggregates for one test, best score first.
func (h *AdminHandler) GetResults(c *gin.Context) {
	testID, ok := parseTestID(c)
	if !ok {
		return
	}
	page, perPage := paginationParams(c)

	results, total, err := h.responseRepo.ListResultsByTest(c.Request.Context(), testID, perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if results == nil {
		results = []repository.TestResult{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, buildPagination(page, perPage, total))
}

// ResetUserLogin godoc
// POST /api/v1/admin/users/:user_id/reset-login
// Clears the user's registered login so they can log in again.
func (h *AdminHandler) ResetUserLogin(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.adminService.ResetUserLogin(c.Request.Context(), userID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true})
}

func parseTestID(c *gin.Context) (uuid.UUID, bool) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return testID, true
}

func paginationParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

func buildPagination(page, perPage, total int) *response.Pagination {
	totalPages := (total + perPage - 1) / perPage
	return &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

func failAuthoringErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTestWindowInvalid):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidWindow)
	case errors.Is(err, service.ErrOptionCount):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrOptionCount)
	case errors.Is(err, service.ErrDuplicateOptions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrDuplicateOptions)
	case errors.Is(err, service.ErrCorrectAnswerNotOption):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrCorrectAnswerOption)
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
