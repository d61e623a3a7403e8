package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/quizforge/scoring-service/internal/events"
	"github.com/quizforge/scoring-service/internal/grading"
	"github.com/quizforge/scoring-service/internal/models"
	"github.com/quizforge/scoring-service/internal/repositories"
	"github.com/quizforge/scoring-service/internal/validator"
	"gorm.io/datatypes"
)

type attemptService struct {
	repo      repositories.Repository
	quizzes   QuizService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewAttemptService(repo repositories.Repository, quizzes QuizService, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) AttemptService {
	return &attemptService{
		repo:      repo,
		quizzes:   quizzes,
		publisher: publisher,
		logger:    logger,
		validator: v,
		now:       time.Now,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Starting quiz attempt", "quiz_id", req.QuizID, "student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	quiz, err := s.quizzes.GetByID(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != models.QuizActive {
		return nil, ErrQuizNotPublished
	}
	if quiz.DueDate != nil && s.now().After(*quiz.DueDate) {
		return nil, ErrQuizExpired
	}

	// A finalized result means this student is done with this quiz.
	if _, err := s.repo.Result().GetByQuizAndStudent(ctx, req.QuizID, studentID); err == nil {
		return nil, ErrDuplicateSubmission
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check existing result: %w", err)
	}

	// Resume an in-progress session instead of opening a second one.
	if existing, err := s.repo.Session().GetActive(ctx, req.QuizID, studentID); err == nil {
		if existing.Expired(s.now()) && quiz.Settings.AutoSubmitOnTimeout {
			if _, err := s.HandleTimeout(ctx, existing.ID); err != nil {
				s.logger.Error("Failed to finalize expired session", "session_id", existing.ID, "error", err)
			}
			return nil, ErrAttemptTimeExpired
		}
		s.logger.Info("Resuming existing attempt", "session_id", existing.ID)
		return s.attemptView(existing, quiz), nil
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}

	session := &models.AttemptSession{
		ID:        uuid.NewString(),
		QuizID:    req.QuizID,
		StudentID: studentID,
		Status:    models.AttemptInProgress,
		StartedAt: s.now(),
		TimeLimit: quiz.Duration * 60,
		Answers:   datatypes.NewJSONType(map[string]string{}),
	}
	if quiz.Settings.TimeLimitEnforced {
		endTime := session.StartedAt.Add(time.Duration(session.TimeLimit) * time.Second)
		session.EndTime = &endTime
	}

	if err := s.repo.Session().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Quiz attempt started",
		"session_id", session.ID,
		"quiz_id", req.QuizID,
		"student_id", studentID,
		"time_limit", session.TimeLimit)

	return s.attemptView(session, quiz), nil
}

func (s *attemptService) Get(ctx context.Context, sessionID, studentID string) (*AttemptResponse, error) {
	session, quiz, err := s.loadOwnedSession(ctx, sessionID, studentID, "view")
	if err != nil {
		return nil, err
	}

	if session.Status == models.AttemptInProgress && session.Expired(s.now()) && quiz.Settings.AutoSubmitOnTimeout {
		if _, err := s.HandleTimeout(ctx, sessionID); err != nil {
			s.logger.Error("Failed to finalize expired session", "session_id", sessionID, "error", err)
		}
		return nil, ErrAttemptTimeExpired
	}

	return s.attemptView(session, quiz), nil
}

func (s *attemptService) SaveAnswer(ctx context.Context, sessionID string, req *SaveAnswerRequest, studentID string) (*SaveAnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	session, quiz, err := s.loadOwnedSession(ctx, sessionID, studentID, "save_answer")
	if err != nil {
		return nil, err
	}
	if !grading.CanSubmit(session.Status) {
		return nil, ErrAttemptNotActive
	}
	if session.Expired(s.now()) && quiz.Settings.TimeLimitEnforced {
		if quiz.Settings.AutoSubmitOnTimeout {
			if _, err := s.HandleTimeout(ctx, sessionID); err != nil {
				s.logger.Error("Failed to finalize expired session", "session_id", sessionID, "error", err)
			}
		}
		return nil, ErrAttemptTimeExpired
	}

	question, ok := quiz.QuestionByID(req.QuestionID)
	if !ok {
		return nil, fmt.Errorf("%w: question %s not in quiz", ErrValidationFailed, req.QuestionID)
	}

	// Last write wins per question; clearing an answer removes the entry so
	// "cleared" and "never answered" are indistinguishable downstream.
	answers := session.Answers.Data()
	if answers == nil {
		answers = map[string]string{}
	}
	if req.Answer == "" {
		delete(answers, req.QuestionID)
	} else {
		answers[req.QuestionID] = req.Answer
	}
	session.Answers = datatypes.NewJSONType(answers)

	if err := s.repo.Session().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	resp := &SaveAnswerResponse{
		QuestionID:       req.QuestionID,
		Saved:            true,
		RemainingSeconds: session.RemainingSeconds(s.now()),
	}
	if quiz.Settings.ShowInstantFeedback && question.Type.AutoGradable() {
		outcome := grading.Grade(question, req.Answer)
		resp.Feedback = &outcome
	}
	return resp, nil
}

func (s *attemptService) ReportViolation(ctx context.Context, sessionID string, req *ViolationRequest, studentID string) (*ViolationResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	session, quiz, err := s.loadOwnedSession(ctx, sessionID, studentID, "report_violation")
	if err != nil {
		return nil, err
	}
	// Violations arriving after finalization are no-ops; the attempt state
	// machine never finalizes twice.
	if !grading.CanSubmit(session.Status) {
		return nil, ErrAttemptNotActive
	}

	event := &models.ViolationEvent{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Type:       req.Type,
		TimeOffset: req.TimeOffset,
		UserAgent:  req.UserAgent,
	}

	if !quiz.Settings.PreventTabSwitching {
		// Proctoring disabled: keep the event for review but never escalate.
		if err := s.repo.Violation().Create(ctx, event); err != nil {
			return nil, fmt.Errorf("failed to record violation: %w", err)
		}
		return &ViolationResponse{}, nil
	}

	session.ViolationCount++
	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Violation().Create(ctx, event); err != nil {
			return err
		}
		return tx.Session().Update(ctx, session)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record violation: %w", err)
	}

	decision := grading.EvaluateViolation(session.ViolationCount, quiz.Settings.ViolationLimit)
	s.logger.Warn("Proctoring violation recorded",
		"session_id", sessionID,
		"type", req.Type,
		"count", session.ViolationCount,
		"force_submit", decision.ForceSubmit)

	resp := &ViolationResponse{Decision: decision}
	if decision.ForceSubmit {
		result, err := s.finalize(ctx, session, quiz, models.TriggerViolation, false)
		if err != nil {
			return nil, err
		}
		resp.Result = result
	}
	return resp, nil
}

func (s *attemptService) Submit(ctx context.Context, sessionID, studentID string) (*SubmitResponse, error) {
	session, quiz, err := s.loadOwnedSession(ctx, sessionID, studentID, "submit")
	if err != nil {
		return nil, err
	}

	// A voluntary submit landing after the deadline is recorded as timed out.
	trigger := models.TriggerVoluntary
	isTimeUp := false
	if quiz.Settings.TimeLimitEnforced && session.Expired(s.now()) {
		trigger = models.TriggerTimeUp
		isTimeUp = true
	}

	return s.finalize(ctx, session, quiz, trigger, isTimeUp)
}

func (s *attemptService) HandleTimeout(ctx context.Context, sessionID string) (*SubmitResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	quiz, err := s.quizzes.GetByID(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}

	// The server clock decides expiry, not the client's timer tick.
	if grading.CanSubmit(session.Status) && !session.Expired(s.now()) {
		return nil, NewBusinessRuleError("timeout_before_deadline", "attempt has not expired yet",
			map[string]interface{}{"session_id": sessionID, "remaining_seconds": session.RemainingSeconds(s.now())})
	}

	return s.finalize(ctx, session, quiz, models.TriggerTimeUp, true)
}

// ===== FINALIZATION =====

// finalize runs the attempt through the auto-grader and persists the result
// and the terminal session state in one transaction. It is idempotent: a
// session that already finalized returns its existing result, and the unique
// (quiz, student) index backstops any race between concurrent triggers.
func (s *attemptService) finalize(ctx context.Context, session *models.AttemptSession, quiz *models.Quiz, trigger models.SubmitTrigger, isTimeUp bool) (*SubmitResponse, error) {
	if !grading.CanSubmit(session.Status) {
		return s.existingResult(ctx, session, quiz)
	}

	answers := session.Answers.Data()
	summary := grading.Finalize(quiz, answers)
	for _, questionID := range summary.MalformedQuestions {
		s.logger.Warn("Question skipped by auto-grader: malformed answer key",
			"quiz_id", quiz.ID, "question_id", questionID)
	}

	now := s.now()
	result := &models.Result{
		ID:                 uuid.NewString(),
		QuizID:             session.QuizID,
		StudentID:          session.StudentID,
		Answers:            datatypes.NewJSONType(answers),
		ManualLedger:       datatypes.NewJSONType(map[string]float64{}),
		AutoScore:          summary.AutoScore,
		TotalScore:         summary.AutoScore,
		TotalPossibleScore: summary.TotalPossibleScore,
		Percentage:         summary.Band.Percentage,
		Grade:              summary.Band.Grade,
		SubmitTrigger:      trigger,
		IsTimeUp:           isTimeUp,
		SubmittedAt:        now,
	}

	err := s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Result().Create(ctx, result); err != nil {
			return err
		}
		session.Status = models.AttemptSubmitted
		session.SubmittedAt = &now
		session.ResultID = &result.ID
		return tx.Session().Update(ctx, session)
	})
	if repositories.IsDuplicateKeyError(err) {
		// Another trigger won the race; its result is the result.
		s.logger.Info("Duplicate submission suppressed", "quiz_id", session.QuizID, "student_id", session.StudentID)
		return s.existingResult(ctx, session, quiz)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize attempt: %w", err)
	}

	pendingManual := result.PendingManual(quiz)
	s.logger.Info("Attempt finalized",
		"result_id", result.ID,
		"quiz_id", quiz.ID,
		"student_id", session.StudentID,
		"trigger", trigger,
		"auto_score", result.AutoScore,
		"grade", result.Grade,
		"pending_manual", pendingManual)

	// The result row is already committed; a publish failure only delays
	// downstream consumers and must not surface to the learner.
	if err := s.publisher.PublishResultEvent(ctx, events.NewResultSubmittedEvent(result, pendingManual)); err != nil {
		s.logger.Error("Failed to publish result event", "result_id", result.ID, "error", err)
	}

	return s.submitView(result, quiz, summary.QuestionResults), nil
}

func (s *attemptService) existingResult(ctx context.Context, session *models.AttemptSession, quiz *models.Quiz) (*SubmitResponse, error) {
	result, err := s.repo.Result().GetByQuizAndStudent(ctx, session.QuizID, session.StudentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptAlreadySubmitted
		}
		return nil, fmt.Errorf("failed to load existing result: %w", err)
	}
	return s.submitView(result, quiz, nil), nil
}

// ===== VIEW BUILDERS =====

func (s *attemptService) attemptView(session *models.AttemptSession, quiz *models.Quiz) *AttemptResponse {
	return &AttemptResponse{
		SessionID:        session.ID,
		QuizID:           session.QuizID,
		Status:           session.Status,
		StartedAt:        session.StartedAt,
		RemainingSeconds: session.RemainingSeconds(s.now()),
		TimeWarning:      quiz.Settings.TimeWarning,
		Answers:          session.Answers.Data(),
		ViolationCount:   session.ViolationCount,
		ViolationLimit:   quiz.Settings.ViolationLimit,
		Quiz:             sanitizeQuiz(quiz),
	}
}

func (s *attemptService) submitView(result *models.Result, quiz *models.Quiz, questionResults []grading.QuestionResult) *SubmitResponse {
	resp := &SubmitResponse{
		ResultID:           result.ID,
		AutoScore:          result.AutoScore,
		TotalScore:         result.TotalScore,
		TotalPossibleScore: result.TotalPossibleScore,
		Percentage:         result.Percentage,
		Grade:              result.Grade,
		SubmitTrigger:      result.SubmitTrigger,
		PendingManual:      result.PendingManual(quiz),
		SubmittedAt:        result.SubmittedAt,
	}
	if quiz.Settings.ShowScoreBreakdown {
		resp.QuestionResults = questionResults
	}
	return resp
}

func (s *attemptService) loadOwnedSession(ctx context.Context, sessionID, studentID, action string) (*models.AttemptSession, *models.Quiz, error) {
	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.StudentID != studentID {
		return nil, nil, NewPermissionError(studentID, sessionID, "attempt", action, "not owned by student")
	}

	quiz, err := s.quizzes.GetByID(ctx, session.QuizID)
	if err != nil {
		return nil, nil, err
	}
	return session, quiz, nil
}

// sanitizeQuiz strips the answer key from the learner-facing quiz payload.
// The snapshot cache holds the full definition, so the copy is deep enough
// that grading state never leaks through shared slices.
func sanitizeQuiz(quiz *models.Quiz) *models.Quiz {
	clean := *quiz
	clean.Sections = make([]models.QuizSection, len(quiz.Sections))
	for si, section := range quiz.Sections {
		cleanSection := section
		cleanSection.Questions = make([]models.Question, len(section.Questions))
		for qi, question := range section.Questions {
			cleanQuestion := question
			cleanQuestion.Options = make([]models.QuestionOption, len(question.Options))
			for oi, opt := range question.Options {
				opt.IsCorrect = false
				cleanQuestion.Options[oi] = opt
			}
			cleanQuestion.MatchingPairs = nil
			cleanSection.Questions[qi] = cleanQuestion
		}
		clean.Sections[si] = cleanSection
	}
	return &clean
}
