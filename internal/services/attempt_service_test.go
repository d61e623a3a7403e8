package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/quizforge/scoring-service/internal/events"
	"github.com/quizforge/scoring-service/internal/models"
	"github.com/quizforge/scoring-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type attemptEnv struct {
	repo      *fakeRepository
	publisher *events.MockEventPublisher
	quizzes   QuizService
	attempts  *attemptService
	grading   *gradingService
}

func newAttemptEnv(t *testing.T) *attemptEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newFakeRepository()
	repo.quizzes["quiz-1"] = testQuiz()

	v := validator.New()
	publisher := events.NewMockEventPublisher(logger)
	quizzes := NewQuizService(repo, newFakeCache(), logger, v)

	return &attemptEnv{
		repo:      repo,
		publisher: publisher,
		quizzes:   quizzes,
		attempts:  NewAttemptService(repo, quizzes, publisher, logger, v).(*attemptService),
		grading:   NewGradingService(repo, quizzes, publisher, logger, v).(*gradingService),
	}
}

// testQuiz is 35 points: a 10-point multiple choice, a 5-point true/false and
// a 20-point essay.
func testQuiz() *models.Quiz {
	return &models.Quiz{
		ID:        "quiz-1",
		Title:     "Network Fundamentals",
		Duration:  30,
		Status:    models.QuizActive,
		CreatedBy: "teacher-1",
		Settings: models.QuizSettings{
			QuizID:              "quiz-1",
			ShowResults:         true,
			ShowScoreBreakdown:  true,
			TimeLimitEnforced:   true,
			AutoSubmitOnTimeout: true,
			TimeWarning:         300,
			PreventTabSwitching: true,
			ViolationLimit:      3,
		},
		Sections: []models.QuizSection{
			{
				ID:     "sec-1",
				QuizID: "quiz-1",
				Questions: []models.Question{
					{
						ID: "q-mc", SectionID: "sec-1", Type: models.MultipleChoice, Text: "Pick one", Points: 10,
						Options: datatypes.NewJSONSlice([]models.QuestionOption{
							{ID: "opt-a", Text: "Right", IsCorrect: true},
							{ID: "opt-b", Text: "Wrong"},
						}),
					},
					{
						ID: "q-tf", SectionID: "sec-1", Type: models.TrueFalse, Text: "Yes or no", Points: 5,
						Options: datatypes.NewJSONSlice([]models.QuestionOption{
							{ID: "opt-t", Text: "True", IsCorrect: true},
							{ID: "opt-f", Text: "False"},
						}),
					},
				},
			},
			{
				ID:     "sec-2",
				QuizID: "quiz-1",
				Questions: []models.Question{
					{ID: "q-essay", SectionID: "sec-2", Type: models.Essay, Text: "Explain", Points: 20},
				},
			},
		},
	}
}

func startAttempt(t *testing.T, env *attemptEnv, studentID string) *AttemptResponse {
	t.Helper()
	attempt, err := env.attempts.Start(context.Background(), &StartAttemptRequest{QuizID: "quiz-1"}, studentID)
	require.NoError(t, err)
	return attempt
}

func TestAttemptLifecycle(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	attempt := startAttempt(t, env, "student-1")
	assert.Equal(t, models.AttemptInProgress, attempt.Status)
	assert.Equal(t, 3, attempt.ViolationLimit)
	assert.Greater(t, attempt.RemainingSeconds, 0)

	_, err := env.attempts.SaveAnswer(ctx, attempt.SessionID, &SaveAnswerRequest{QuestionID: "q-mc", Answer: "opt-a"}, "student-1")
	require.NoError(t, err)
	_, err = env.attempts.SaveAnswer(ctx, attempt.SessionID, &SaveAnswerRequest{QuestionID: "q-tf", Answer: "False"}, "student-1")
	require.NoError(t, err)

	resp, err := env.attempts.Submit(ctx, attempt.SessionID, "student-1")
	require.NoError(t, err)

	assert.Equal(t, 10.0, resp.AutoScore)
	assert.Equal(t, 35, resp.TotalPossibleScore)
	assert.Equal(t, models.TriggerVoluntary, resp.SubmitTrigger)
	assert.True(t, resp.PendingManual)
	assert.Len(t, resp.QuestionResults, 3)

	require.Len(t, env.publisher.Events, 1)
	assert.Equal(t, events.EventResultSubmitted, env.publisher.Events[0].Type)
	assert.True(t, env.publisher.Events[0].PendingManual)
}

func TestAttemptAnswerKeyNeverLeaksToLearner(t *testing.T) {
	env := newAttemptEnv(t)

	attempt := startAttempt(t, env, "student-1")
	require.NotNil(t, attempt.Quiz)
	for _, section := range attempt.Quiz.Sections {
		for _, question := range section.Questions {
			for _, opt := range question.Options {
				assert.False(t, opt.IsCorrect, "option %s leaked the key", opt.ID)
			}
		}
	}
}

func TestStartResumesActiveSession(t *testing.T) {
	env := newAttemptEnv(t)

	first := startAttempt(t, env, "student-1")
	second := startAttempt(t, env, "student-1")
	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestStartRejectedAfterSubmission(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	attempt := startAttempt(t, env, "student-1")
	_, err := env.attempts.Submit(ctx, attempt.SessionID, "student-1")
	require.NoError(t, err)

	_, err = env.attempts.Start(ctx, &StartAttemptRequest{QuizID: "quiz-1"}, "student-1")
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestSubmitIsIdempotent(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	attempt := startAttempt(t, env, "student-1")
	first, err := env.attempts.Submit(ctx, attempt.SessionID, "student-1")
	require.NoError(t, err)

	second, err := env.attempts.Submit(ctx, attempt.SessionID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, first.ResultID, second.ResultID)

	assert.Len(t, env.repo.results, 1)
	assert.Len(t, env.publisher.Events, 1, "finalize must publish exactly once")
}

func TestSaveAnswerAfterSubmitRejected(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	attempt := startAttempt(t, env, "student-1")
	_, err := env.attempts.Submit(ctx, attempt.SessionID, "student-1")
	require.NoError(t, err)

	_, err = env.attempts.SaveAnswer(ctx, attempt.SessionID, &SaveAnswerRequest{QuestionID: "q-mc", Answer: "opt-a"}, "student-1")
	assert.ErrorIs(t, err, ErrAttemptNotActive)
}

func TestSaveAnswerOwnershipEnforced(t *testing.T) {
	env := newAttemptEnv(t)

	attempt := startAttempt(t, env, "student-1")
	_, err := env.attempts.SaveAnswer(context.Background(), attempt.SessionID, &SaveAnswerRequest{QuestionID: "q-mc", Answer: "opt-a"}, "student-2")

	var pe *PermissionError
	assert.ErrorAs(t, err, &pe)
}

func TestSaveAnswerInstantFeedback(t *testing.T) {
	env := newAttemptEnv(t)
	env.repo.quizzes["quiz-1"].Settings.ShowInstantFeedback = true
	ctx := context.Background()

	attempt := startAttempt(t, env, "student-1")

	resp, err := env.attempts.SaveAnswer(ctx, attempt.SessionID, &SaveAnswerRequest{QuestionID: "q-mc", Answer: "opt-b"}, "student-1")
	require.NoError(t, err)
	require.NotNil(t, resp.Feedback)
	require.NotNil(t, resp.Feedback.IsCorrect)
	assert.False(t, *resp.Feedback.IsCorrect)

	// Manual questions never get machine feedback, in any mode.
	resp, err = env.attempts.SaveAnswer(ctx, attempt.SessionID, &SaveAnswerRequest{QuestionID: "q-essay", Answer: "because"}, "student-1")
	require.NoError(t, err)
	assert.Nil(t, resp.Feedback)
}

func TestThirdViolationForceSubmitsExactlyOnce(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	attempt := startAttempt(t, env, "student-1")
	_, err := env.attempts.SaveAnswer(ctx, attempt.SessionID, &SaveAnswerRequest{QuestionID: "q-mc", Answer: "opt-a"}, "student-1")
	require.NoError(t, err)

	violation := &ViolationRequest{Type: models.ViolationTabSwitch}

	first, err := env.attempts.ReportViolation(ctx, attempt.SessionID, violation, "student-1")
	require.NoError(t, err)
	assert.True(t, first.Decision.Warn)
	assert.Equal(t, 2, first.Decision.Remaining)
	assert.Nil(t, first.Result)

	second, err := env.attempts.ReportViolation(ctx, attempt.SessionID, violation, "student-1")
	require.NoError(t, err)
	assert.True(t, second.Decision.Warn)
	assert.Equal(t, 1, second.Decision.Remaining)

	third, err := env.attempts.ReportViolation(ctx, attempt.SessionID, violation, "student-1")
	require.NoError(t, err)
	assert.True(t, third.Decision.ForceSubmit)
	require.NotNil(t, third.Result)
	assert.Equal(t, models.TriggerViolation, third.Result.SubmitTrigger)
	assert.Equal(t, 10.0, third.Result.AutoScore)

	// Anything arriving after the terminal transition is a no-op.
	_, err = env.attempts.ReportViolation(ctx, attempt.SessionID, violation, "student-1")
	assert.ErrorIs(t, err, ErrAttemptNotActive)

	assert.Len(t, env.repo.results, 1, "finalize must run exactly once")
	assert.Len(t, env.publisher.Events, 1)
}

func TestViolationsIgnoredWhenProctoringDisabled(t *testing.T) {
	env := newAttemptEnv(t)
	env.repo.quizzes["quiz-1"].Settings.PreventTabSwitching = false
	ctx := context.Background()

	attempt := startAttempt(t, env, "student-1")
	for i := 0; i < 5; i++ {
		resp, err := env.attempts.ReportViolation(ctx, attempt.SessionID, &ViolationRequest{Type: models.ViolationWindowBlur}, "student-1")
		require.NoError(t, err)
		assert.False(t, resp.Decision.ForceSubmit)
	}

	// Events are still kept for review.
	recorded, err := env.repo.Violation().ListBySession(ctx, attempt.SessionID)
	require.NoError(t, err)
	assert.Len(t, recorded, 5)
	assert.Empty(t, env.repo.results)
}

func TestSubmitAfterDeadlineRecordsTimeUp(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	env.attempts.now = func() time.Time { return start }

	attempt := startAttempt(t, env, "student-1")

	env.attempts.now = func() time.Time { return start.Add(31 * time.Minute) }
	resp, err := env.attempts.Submit(ctx, attempt.SessionID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.TriggerTimeUp, resp.SubmitTrigger)
}

func TestHandleTimeout(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	env.attempts.now = func() time.Time { return start }
	attempt := startAttempt(t, env, "student-1")

	// Before the deadline the server refuses the client's timer tick.
	_, err := env.attempts.HandleTimeout(ctx, attempt.SessionID)
	var bre *BusinessRuleError
	require.ErrorAs(t, err, &bre)

	env.attempts.now = func() time.Time { return start.Add(31 * time.Minute) }
	resp, err := env.attempts.HandleTimeout(ctx, attempt.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.TriggerTimeUp, resp.SubmitTrigger)

	// A duplicate tick returns the same result.
	again, err := env.attempts.HandleTimeout(ctx, attempt.SessionID)
	require.NoError(t, err)
	assert.Equal(t, resp.ResultID, again.ResultID)
	assert.Len(t, env.repo.results, 1)
}

func TestStartRejectsUnpublishedQuiz(t *testing.T) {
	env := newAttemptEnv(t)
	env.repo.quizzes["quiz-1"].Status = models.QuizDraft

	_, err := env.attempts.Start(context.Background(), &StartAttemptRequest{QuizID: "quiz-1"}, "student-1")
	assert.ErrorIs(t, err, ErrQuizNotPublished)
}

func TestUnansweredQuizStillClassified(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	attempt := startAttempt(t, env, "student-1")
	resp, err := env.attempts.Submit(ctx, attempt.SessionID, "student-1")
	require.NoError(t, err)

	assert.Equal(t, 0.0, resp.AutoScore)
	assert.Equal(t, "D", resp.Grade)
	for _, qr := range resp.QuestionResults {
		assert.Nil(t, qr.IsCorrect, "unanswered question %s must not be marked wrong", qr.QuestionID)
	}
}
