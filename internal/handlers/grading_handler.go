package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/scoring-service/internal/repositories"
	"github.com/quizforge/scoring-service/internal/services"
	"github.com/quizforge/scoring-service/internal/utils"
	"github.com/quizforge/scoring-service/internal/validator"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
	exportService  services.ExportService
	validator      *validator.Validator
}

func NewGradingHandler(
	gradingService services.GradingService,
	exportService services.ExportService,
	v *validator.Validator,
	logger utils.Logger,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
		exportService:  exportService,
		validator:      v,
	}
}

// GetResult returns a single result
// @Summary Get result
// @Tags results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} models.Result
// @Failure 404 {object} ErrorResponse
// @Router /results/{id} [get]
func (h *GradingHandler) GetResult(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.gradingService.GetResult(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListResults lists results for a quiz
// @Summary List results
// @Tags results
// @Produce json
// @Param quiz_id path string true "Quiz ID"
// @Param grade query string false "Grade band filter"
// @Param pending query bool false "Only results awaiting manual grading"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} services.ResultListResponse
// @Router /quizzes/{quiz_id}/results [get]
func (h *GradingHandler) ListResults(c *gin.Context) {
	quizID := ParseStringIDParam(c, "id")
	if quizID == "" {
		return
	}
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	filters := repositories.ResultFilters{
		SortBy:    c.DefaultQuery("sort_by", "submitted_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	if studentID := c.Query("student_id"); studentID != "" {
		filters.StudentID = &studentID
	}
	if grade := c.Query("grade"); grade != "" {
		filters.Grade = &grade
	}
	filters.PendingOnly = c.Query("pending") == "true"
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filters.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	resp, err := h.gradingService.ListResults(c.Request.Context(), quizID, filters, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPendingQuestions lists the manually graded questions on a result
// @Summary Pending manual questions
// @Tags grading
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {array} services.PendingQuestion
// @Router /results/{id}/pending [get]
func (h *GradingHandler) GetPendingQuestions(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	pending, err := h.gradingService.PendingQuestions(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pending)
}

// ApplyManualScores merges manual scores into a result and recomputes it
// @Summary Apply manual scores
// @Tags grading
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param scores body services.ManualGradeRequest true "Scores keyed by question id"
// @Success 200 {object} models.Result
// @Failure 400 {object} ErrorResponse
// @Router /results/{id}/grade [post]
func (h *GradingHandler) ApplyManualScores(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.ManualGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Applying manual scores", "result_id", id, "questions", len(req.Scores))

	result, err := h.gradingService.ApplyManualScores(c.Request.Context(), id, &req, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStats returns aggregate statistics for a quiz
// @Summary Quiz statistics
// @Tags results
// @Produce json
// @Param quiz_id path string true "Quiz ID"
// @Success 200 {object} repositories.ResultStats
// @Router /quizzes/{quiz_id}/stats [get]
func (h *GradingHandler) GetStats(c *gin.Context) {
	quizID := ParseStringIDParam(c, "id")
	if quizID == "" {
		return
	}
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	stats, err := h.gradingService.Stats(c.Request.Context(), quizID, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportResults downloads the quiz results as a spreadsheet
// @Summary Export results
// @Tags results
// @Produce application/octet-stream
// @Param quiz_id path string true "Quiz ID"
// @Param format query string false "xlsx or csv" default(xlsx)
// @Success 200 {file} binary
// @Router /quizzes/{quiz_id}/results/export [get]
func (h *GradingHandler) ExportResults(c *gin.Context) {
	quizID := ParseStringIDParam(c, "id")
	if quizID == "" {
		return
	}
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "xlsx")
	h.LogRequest(c, "Exporting results", "quiz_id", quizID, "format", format)

	var (
		data        []byte
		filename    string
		contentType string
		err         error
	)
	switch format {
	case "xlsx":
		data, filename, err = h.exportService.ExportResultsXLSX(c.Request.Context(), quizID, userID, role)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "csv":
		data, filename, err = h.exportService.ExportResultsCSV(c.Request.Context(), quizID, userID, role)
		contentType = "text/csv"
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unsupported export format",
			Details: fmt.Sprintf("format %q is not supported, use xlsx or csv", format),
		})
		return
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	c.Data(http.StatusOK, contentType, data)
}
