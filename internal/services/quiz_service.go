package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/quizforge/scoring-service/internal/cache"
	"github.com/quizforge/scoring-service/internal/models"
	"github.com/quizforge/scoring-service/internal/repositories"
	"github.com/quizforge/scoring-service/internal/validator"
)

// Published quizzes are immutable, so a long snapshot TTL is safe; the cache
// is invalidated explicitly on archive.
const quizSnapshotTTL = time.Hour

type quizService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuizService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger, v *validator.Validator) QuizService {
	return &quizService{
		repo:      repo,
		cache:     cacheService,
		logger:    logger,
		validator: v,
	}
}

func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*models.Quiz, error) {
	s.logger.Info("Creating quiz", "title", req.Title, "creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	quiz := &models.Quiz{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		Status:      models.QuizDraft,
		DueDate:     req.DueDate,
		CreatedBy:   creatorID,
	}
	quiz.Settings = buildSettings(quiz.ID, req.Settings)
	quiz.Sections = s.buildSections(quiz.ID, req.Sections)

	// Question rules are enforced at publish time; a draft may hold
	// half-written questions. Type validity is still checked up front so a
	// draft never stores an unknown variant.
	for _, section := range quiz.Sections {
		for _, question := range section.Questions {
			if !question.Type.Valid() {
				return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidQuestion, question.Type)
			}
		}
	}

	if err := s.repo.Quiz().Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.Info("Quiz created", "quiz_id", quiz.ID, "questions", countQuestions(quiz))
	return s.GetByID(ctx, quiz.ID)
}

func (s *quizService) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	// Published quizzes serve from the snapshot cache; drafts always hit the
	// repository because they are still being edited.
	var cached models.Quiz
	if err := s.cache.Get(ctx, cache.QuizSnapshotKey(id), &cached); err == nil {
		annotate(&cached)
		return &cached, nil
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	annotate(quiz)
	return quiz, nil
}

func (s *quizService) Update(ctx context.Context, id string, req *UpdateQuizRequest, userID string) (*models.Quiz, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "quiz", "update", "not the quiz owner")
	}
	if quiz.Status != models.QuizDraft {
		return nil, ErrQuizNotEditable
	}

	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.Duration != nil {
		quiz.Duration = *req.Duration
	}
	if req.DueDate != nil {
		quiz.DueDate = req.DueDate
	}
	if req.Settings != nil {
		applySettings(&quiz.Settings, req.Settings)
	}
	if req.Sections != nil {
		quiz.Sections = s.buildSections(quiz.ID, req.Sections)
	}
	quiz.Version++

	if err := s.repo.Quiz().Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}

	s.logger.Info("Quiz updated", "quiz_id", id, "version", quiz.Version)
	return s.GetByID(ctx, id)
}

// Publish validates every question against the authoring rules, flips the
// quiz to Active and writes the snapshot cache. A quiz with a malformed
// answer key never goes live.
func (s *quizService) Publish(ctx context.Context, id string, userID string) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "quiz", "publish", "not the quiz owner")
	}
	if quiz.Status != models.QuizDraft {
		return nil, ErrQuizInvalidStatus
	}
	if countQuestions(quiz) == 0 {
		return nil, NewBusinessRuleError("publish_empty_quiz", "quiz has no questions", map[string]interface{}{"quiz_id": id})
	}

	var errs ValidationErrors
	for si := range quiz.Sections {
		for qi := range quiz.Sections[si].Questions {
			errs = append(errs, s.validator.Question().Validate(&quiz.Sections[si].Questions[qi])...)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuestion, errs)
	}

	if err := s.repo.Quiz().UpdateStatus(ctx, id, models.QuizActive); err != nil {
		return nil, fmt.Errorf("failed to publish quiz: %w", err)
	}
	quiz.Status = models.QuizActive
	annotate(quiz)

	if err := s.cache.Set(ctx, cache.QuizSnapshotKey(id), quiz, quizSnapshotTTL); err != nil {
		// The repository remains authoritative; a cache write failure only
		// costs read latency.
		s.logger.Warn("Failed to cache quiz snapshot", "quiz_id", id, "error", err)
	}

	s.logger.Info("Quiz published", "quiz_id", id, "total_points", quiz.TotalPoints)
	return quiz, nil
}

func (s *quizService) Archive(ctx context.Context, id string, userID string) error {
	quiz, err := s.repo.Quiz().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.CreatedBy != userID {
		return NewPermissionError(userID, id, "quiz", "archive", "not the quiz owner")
	}

	if err := s.repo.Quiz().UpdateStatus(ctx, id, models.QuizArchived); err != nil {
		return fmt.Errorf("failed to archive quiz: %w", err)
	}

	if err := s.cache.Delete(ctx, cache.QuizSnapshotKey(id)); err != nil {
		s.logger.Warn("Failed to drop quiz snapshot", "quiz_id", id, "error", err)
	}

	s.logger.Info("Quiz archived", "quiz_id", id)
	return nil
}

func (s *quizService) Delete(ctx context.Context, id string, userID string) error {
	quiz, err := s.repo.Quiz().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.CreatedBy != userID {
		return NewPermissionError(userID, id, "quiz", "delete", "not the quiz owner")
	}
	// Results reference the quiz by id; a published quiz is archived instead
	// of deleted so grades stay resolvable.
	if quiz.Status != models.QuizDraft {
		return NewBusinessRuleError("delete_published_quiz", "only draft quizzes can be deleted", map[string]interface{}{"status": quiz.Status})
	}

	if err := s.repo.Quiz().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	s.logger.Info("Quiz deleted", "quiz_id", id)
	return nil
}

func (s *quizService) List(ctx context.Context, filters repositories.QuizFilters) (*QuizListResponse, error) {
	quizzes, total, err := s.repo.Quiz().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	for _, quiz := range quizzes {
		annotate(quiz)
	}

	return &QuizListResponse{
		Quizzes: quizzes,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}, nil
}

// ===== HELPERS =====

func (s *quizService) buildSections(quizID string, reqs []SectionRequest) []models.QuizSection {
	sections := make([]models.QuizSection, 0, len(reqs))
	for pos, sectionReq := range reqs {
		section := models.QuizSection{
			ID:       uuid.NewString(),
			QuizID:   quizID,
			Title:    sectionReq.Title,
			Position: pos,
		}
		for qpos, questionReq := range sectionReq.Questions {
			section.Questions = append(section.Questions, models.Question{
				ID:            uuid.NewString(),
				SectionID:     section.ID,
				Type:          questionReq.Type,
				Text:          questionReq.Text,
				Points:        questionReq.Points,
				Position:      qpos,
				Options:       questionReq.Options,
				MatchingPairs: questionReq.MatchingPairs,
				Dropdowns:     questionReq.Dropdowns,
			})
		}
		sections = append(sections, section)
	}
	return sections
}

func buildSettings(quizID string, req *QuizSettingsRequest) models.QuizSettings {
	settings := models.QuizSettings{
		QuizID:              quizID,
		ShowResults:         true,
		ShowScoreBreakdown:  true,
		TimeLimitEnforced:   true,
		AutoSubmitOnTimeout: true,
		TimeWarning:         300,
		PreventTabSwitching: true,
		ViolationLimit:      3,
	}
	applySettings(&settings, req)
	return settings
}

func applySettings(settings *models.QuizSettings, req *QuizSettingsRequest) {
	if req == nil {
		return
	}
	if req.ShowResults != nil {
		settings.ShowResults = *req.ShowResults
	}
	if req.ShowInstantFeedback != nil {
		settings.ShowInstantFeedback = *req.ShowInstantFeedback
	}
	if req.ShowScoreBreakdown != nil {
		settings.ShowScoreBreakdown = *req.ShowScoreBreakdown
	}
	if req.TimeLimitEnforced != nil {
		settings.TimeLimitEnforced = *req.TimeLimitEnforced
	}
	if req.AutoSubmitOnTimeout != nil {
		settings.AutoSubmitOnTimeout = *req.AutoSubmitOnTimeout
	}
	if req.TimeWarning != nil {
		settings.TimeWarning = *req.TimeWarning
	}
	if req.PreventTabSwitching != nil {
		settings.PreventTabSwitching = *req.PreventTabSwitching
	}
	if req.ViolationLimit != nil {
		settings.ViolationLimit = *req.ViolationLimit
	}
}

func countQuestions(quiz *models.Quiz) int {
	count := 0
	for _, section := range quiz.Sections {
		count += len(section.Questions)
	}
	return count
}

// annotate fills the computed fields gorm never stores.
func annotate(quiz *models.Quiz) {
	quiz.QuestionsCount = countQuestions(quiz)
	quiz.TotalPoints = quiz.TotalPossiblePoints()
}
