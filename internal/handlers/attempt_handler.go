package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/scoring-service/internal/services"
	"github.com/quizforge/scoring-service/internal/utils"
	"github.com/quizforge/scoring-service/internal/validator"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *validator.Validator
}

func NewAttemptHandler(attemptService services.AttemptService, v *validator.Validator, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      v,
	}
}

// StartAttempt opens (or resumes) the student's session on a quiz
// @Summary Start attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.StartAttemptRequest true "Attempt data"
// @Success 201 {object} services.AttemptResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Starting attempt", "quiz_id", req.QuizID)

	attempt, err := h.attemptService.Start(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetAttempt returns the student's current session state
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// SaveAnswer records one answer on the active session
// @Summary Save answer
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param answer body services.SaveAnswerRequest true "Answer data"
// @Success 200 {object} services.SaveAnswerResponse
// @Failure 422 {object} ErrorResponse
// @Router /attempts/{id}/answer [post]
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.attemptService.SaveAnswer(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ReportViolation records a proctoring violation and may force-submit
// @Summary Report violation
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param violation body services.ViolationRequest true "Violation data"
// @Success 200 {object} services.ViolationResponse
// @Failure 422 {object} ErrorResponse
// @Router /attempts/{id}/violation [post]
func (h *AttemptHandler) ReportViolation(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.ViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}

	h.LogRequest(c, "Reporting violation", "session_id", id, "type", req.Type)

	resp, err := h.attemptService.ReportViolation(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitAttempt finalizes the attempt voluntarily
// @Summary Submit attempt
// @Tags attempts
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SubmitResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting attempt", "session_id", id)

	resp, err := h.attemptService.Submit(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleTimeout finalizes an expired attempt with the time-up trigger
// @Summary Handle timeout
// @Tags attempts
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SubmitResponse
// @Failure 422 {object} ErrorResponse
// @Router /attempts/{id}/timeout [post]
func (h *AttemptHandler) HandleTimeout(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	if _, _, ok := currentUser(c); !ok {
		return
	}

	h.LogRequest(c, "Handling timeout", "session_id", id)

	resp, err := h.attemptService.HandleTimeout(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
