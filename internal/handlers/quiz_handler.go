package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/scoring-service/internal/models"
	"github.com/quizforge/scoring-service/internal/repositories"
	"github.com/quizforge/scoring-service/internal/services"
	"github.com/quizforge/scoring-service/internal/utils"
	"github.com/quizforge/scoring-service/internal/validator"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
	validator   *validator.Validator
}

func NewQuizHandler(quizService services.QuizService, v *validator.Validator, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
		validator:   v,
	}
}

// CreateQuiz creates a new draft quiz
// @Summary Create quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param quiz body services.CreateQuizRequest true "Quiz definition"
// @Success 201 {object} models.Quiz
// @Failure 400 {object} ErrorResponse
// @Router /quizzes [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	if !role.CanGrade() {
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Only teachers can create quizzes"})
		return
	}

	var req services.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating quiz", "title", req.Title)

	quiz, err := h.quizService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// GetQuiz returns one quiz with its sections and questions
// @Summary Get quiz
// @Tags quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} models.Quiz
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	quiz, err := h.quizService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// UpdateQuiz updates a draft quiz
// @Summary Update quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param quiz body services.UpdateQuizRequest true "Quiz changes"
// @Success 200 {object} models.Quiz
// @Failure 422 {object} ErrorResponse
// @Router /quizzes/{id} [put]
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.UpdateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Updating quiz", "quiz_id", id)

	quiz, err := h.quizService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// PublishQuiz validates every question and makes the quiz available to
// students
// @Summary Publish quiz
// @Tags quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} models.Quiz
// @Failure 400 {object} ErrorResponse
// @Router /quizzes/{id}/publish [post]
func (h *QuizHandler) PublishQuiz(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Publishing quiz", "quiz_id", id)

	quiz, err := h.quizService.Publish(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// ArchiveQuiz retires a quiz from student access
// @Summary Archive quiz
// @Tags quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} SuccessResponse
// @Router /quizzes/{id}/archive [post]
func (h *QuizHandler) ArchiveQuiz(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.quizService.Archive(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Quiz archived"})
}

// DeleteQuiz deletes a draft quiz
// @Summary Delete quiz
// @Tags quizzes
// @Param id path string true "Quiz ID"
// @Success 200 {object} SuccessResponse
// @Failure 422 {object} ErrorResponse
// @Router /quizzes/{id} [delete]
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Quiz deleted"})
}

// ListQuizzes lists quizzes with filtering and pagination
// @Summary List quizzes
// @Tags quizzes
// @Produce json
// @Param status query string false "Quiz status"
// @Param search query string false "Title search"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} services.QuizListResponse
// @Router /quizzes [get]
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	filters := repositories.QuizFilters{
		Search:    c.Query("search"),
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	if status := c.Query("status"); status != "" {
		quizStatus := models.QuizStatus(status)
		filters.Status = &quizStatus
	}
	if createdBy := c.Query("created_by"); createdBy != "" {
		filters.CreatedBy = &createdBy
	}
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filters.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	resp, err := h.quizService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
