package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizforge/scoring-service/internal/events"
	"github.com/quizforge/scoring-service/internal/grading"
	"github.com/quizforge/scoring-service/internal/models"
	"github.com/quizforge/scoring-service/internal/repositories"
	"github.com/quizforge/scoring-service/internal/validator"
	"gorm.io/datatypes"
)

type gradingService struct {
	repo      repositories.Repository
	quizzes   QuizService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewGradingService(repo repositories.Repository, quizzes QuizService, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) GradingService {
	return &gradingService{
		repo:      repo,
		quizzes:   quizzes,
		publisher: publisher,
		logger:    logger,
		validator: v,
		now:       time.Now,
	}
}

func (s *gradingService) GetResult(ctx context.Context, resultID, userID string, role models.UserRole) (*models.Result, error) {
	result, err := s.loadResult(ctx, resultID)
	if err != nil {
		return nil, err
	}

	// Students see their own result only; grading roles see everything.
	if !role.CanGrade() && result.StudentID != userID {
		return nil, NewPermissionError(userID, resultID, "result", "view", "not the result owner")
	}
	return result, nil
}

func (s *gradingService) ListResults(ctx context.Context, quizID string, filters repositories.ResultFilters, userID string, role models.UserRole) (*ResultListResponse, error) {
	if !role.CanGrade() && role != models.RoleProctor {
		return nil, NewPermissionError(userID, quizID, "results", "list", "requires a grading or proctoring role")
	}

	results, total, err := s.repo.Result().ListByQuiz(ctx, quizID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	if filters.PendingOnly {
		quiz, err := s.quizzes.GetByID(ctx, quizID)
		if err != nil {
			return nil, err
		}
		pending := results[:0]
		for _, result := range results {
			if result.PendingManual(quiz) {
				pending = append(pending, result)
			}
		}
		results = pending
		total = int64(len(results))
	}

	return &ResultListResponse{
		Results: results,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}, nil
}

// PendingQuestions lists every manually graded question on a result with the
// learner's answer and the current ledger entry, graded or not.
func (s *gradingService) PendingQuestions(ctx context.Context, resultID, userID string, role models.UserRole) ([]PendingQuestion, error) {
	if !role.CanGrade() {
		return nil, NewPermissionError(userID, resultID, "result", "grade", "requires a grading role")
	}

	result, err := s.loadResult(ctx, resultID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.GetByID(ctx, result.QuizID)
	if err != nil {
		return nil, err
	}

	answers := result.Answers.Data()
	ledger := result.ManualLedger.Data()

	var pending []PendingQuestion
	for _, section := range quiz.Sections {
		for _, question := range section.Questions {
			if question.Type.AutoGradable() {
				continue
			}
			item := PendingQuestion{
				QuestionID: question.ID,
				Type:       question.Type,
				Text:       question.Text,
				Points:     question.Points,
				Answer:     answers[question.ID],
			}
			if score, ok := ledger[question.ID]; ok {
				item.Score = &score
			}
			pending = append(pending, item)
		}
	}
	return pending, nil
}

// ApplyManualScores merges the grader's points into the result's ledger and
// recomputes the totals from scratch. The batch is atomic: one bad score
// rejects the whole request and the stored ledger stays untouched.
func (s *gradingService) ApplyManualScores(ctx context.Context, resultID string, req *ManualGradeRequest, graderID string, role models.UserRole) (*models.Result, error) {
	if !role.CanGrade() {
		return nil, NewPermissionError(graderID, resultID, "result", "grade", "requires a grading role")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	result, err := s.loadResult(ctx, resultID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.quizzes.GetByID(ctx, result.QuizID)
	if err != nil {
		return nil, err
	}

	ledger := grading.ManualLedger(result.ManualLedger.Data())
	if ledger == nil {
		ledger = grading.ManualLedger{}
	}
	for questionID, points := range req.Scores {
		question, ok := quiz.QuestionByID(questionID)
		if !ok {
			return nil, fmt.Errorf("%w: question %s not in quiz", ErrValidationFailed, questionID)
		}
		if err := ledger.Apply(question, points); err != nil {
			switch {
			case errors.Is(err, grading.ErrNotManuallyGradable):
				return nil, fmt.Errorf("%w: %w", ErrGradingNotAllowed, err)
			case errors.Is(err, grading.ErrManualScoreOutOfRange):
				return nil, fmt.Errorf("%w: %w", ErrManualScoreOutOfRange, err)
			default:
				return nil, err
			}
		}
	}

	totalScore, band := grading.Totals(result.AutoScore, ledger, result.TotalPossibleScore)
	now := s.now()

	result.ManualLedger = datatypes.NewJSONType(map[string]float64(ledger))
	result.ManualScore = ledger.Total()
	result.TotalScore = totalScore
	result.Percentage = band.Percentage
	result.Grade = band.Grade
	result.GradedBy = &graderID
	result.GradedAt = &now

	if err := s.repo.Result().Update(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to update result: %w", err)
	}

	pendingManual := result.PendingManual(quiz)
	s.logger.Info("Manual scores applied",
		"result_id", resultID,
		"grader_id", graderID,
		"questions", len(req.Scores),
		"manual_score", result.ManualScore,
		"total_score", result.TotalScore,
		"grade", result.Grade,
		"pending_manual", pendingManual)

	if err := s.publisher.PublishResultEvent(ctx, events.NewResultRegradedEvent(result, pendingManual)); err != nil {
		s.logger.Error("Failed to publish regrade event", "result_id", resultID, "error", err)
	}

	return result, nil
}

func (s *gradingService) Stats(ctx context.Context, quizID, userID string, role models.UserRole) (*repositories.ResultStats, error) {
	if !role.CanGrade() && role != models.RoleProctor {
		return nil, NewPermissionError(userID, quizID, "results", "stats", "requires a grading or proctoring role")
	}

	stats, err := s.repo.Result().Stats(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

func (s *gradingService) loadResult(ctx context.Context, resultID string) (*models.Result, error) {
	result, err := s.repo.Result().GetByID(ctx, resultID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}
