package services

import (
	"log/slog"

	"github.com/quizforge/scoring-service/internal/cache"
	"github.com/quizforge/scoring-service/internal/events"
	"github.com/quizforge/scoring-service/internal/repositories"
	"github.com/quizforge/scoring-service/internal/validator"
)

type serviceManager struct {
	quiz    QuizService
	attempt AttemptService
	grading GradingService
	export  ExportService
}

// NewServiceManager wires the services against shared infrastructure. The
// quiz service is built first because the others read quiz definitions
// through its snapshot cache.
func NewServiceManager(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) ServiceManager {
	quiz := NewQuizService(repo, cacheService, logger, v)

	return &serviceManager{
		quiz:    quiz,
		attempt: NewAttemptService(repo, quiz, publisher, logger, v),
		grading: NewGradingService(repo, quiz, publisher, logger, v),
		export:  NewExportService(repo, quiz, logger),
	}
}

func (m *serviceManager) Quiz() QuizService       { return m.quiz }
func (m *serviceManager) Attempt() AttemptService { return m.attempt }
func (m *serviceManager) Grading() GradingService { return m.grading }
func (m *serviceManager) Export() ExportService   { return m.export }
