package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/scoring-service/internal/services"
	"github.com/quizforge/scoring-service/internal/utils"
	"github.com/quizforge/scoring-service/internal/validator"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	attemptHandler *AttemptHandler
	gradingHandler *GradingHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	v *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), v, logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), v, logger),
		gradingHandler: NewGradingHandler(serviceManager.Grading(), serviceManager.Export(), v, logger),
	}
}

// SetupRoutes sets up all API routes. authMiddleware guards everything under
// /api/v1; the health endpoint stays open for probes.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "scoring-service",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware)
	{
		quizzes := v1.Group("/quizzes")
		{
			quizzes.POST("", hm.quizHandler.CreateQuiz)
			quizzes.GET("", hm.quizHandler.ListQuizzes)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.PUT("/:id", hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", hm.quizHandler.DeleteQuiz)
			quizzes.POST("/:id/publish", hm.quizHandler.PublishQuiz)
			quizzes.POST("/:id/archive", hm.quizHandler.ArchiveQuiz)

			quizzes.GET("/:id/results", hm.gradingHandler.ListResults)
			quizzes.GET("/:id/results/export", hm.gradingHandler.ExportResults)
			quizzes.GET("/:id/stats", hm.gradingHandler.GetStats)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/answer", hm.attemptHandler.SaveAnswer)
			attempts.POST("/:id/violation", hm.attemptHandler.ReportViolation)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.POST("/:id/timeout", hm.attemptHandler.HandleTimeout)
		}

		results := v1.Group("/results")
		{
			results.GET("/:id", hm.gradingHandler.GetResult)
			results.GET("/:id/pending", hm.gradingHandler.GetPendingQuestions)
			results.POST("/:id/grade", hm.gradingHandler.ApplyManualScores)
		}
	}
}
