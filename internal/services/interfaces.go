package services

import (
	"context"
	"time"

	"github.com/quizforge/scoring-service/internal/grading"
	"github.com/quizforge/scoring-service/internal/models"
	"github.com/quizforge/scoring-service/internal/repositories"
)

// ===== REQUEST / RESPONSE TYPES =====

type CreateQuizRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	Duration    int        `json:"duration" validate:"required,min=5,max=300"` // Minutes
	DueDate     *time.Time `json:"due_date"`

	Settings *QuizSettingsRequest `json:"settings"`
	Sections []SectionRequest     `json:"sections" validate:"dive"`
}

type UpdateQuizRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	Duration    *int       `json:"duration" validate:"omitempty,min=5,max=300"`
	DueDate     *time.Time `json:"due_date"`

	Settings *QuizSettingsRequest `json:"settings"`
	Sections []SectionRequest     `json:"sections" validate:"dive"`
}

type QuizSettingsRequest struct {
	ShowResults         *bool `json:"show_results"`
	ShowInstantFeedback *bool `json:"show_instant_feedback"`
	ShowScoreBreakdown  *bool `json:"show_score_breakdown"`
	TimeLimitEnforced   *bool `json:"time_limit_enforced"`
	AutoSubmitOnTimeout *bool `json:"auto_submit_on_timeout"`
	TimeWarning         *int  `json:"time_warning" validate:"omitempty,min=0"`
	PreventTabSwitching *bool `json:"prevent_tab_switching"`
	ViolationLimit      *int  `json:"violation_limit" validate:"omitempty,min=1,max=10"`
}

type SectionRequest struct {
	Title     string            `json:"title" validate:"max=200"`
	Questions []QuestionRequest `json:"questions" validate:"dive"`
}

type QuestionRequest struct {
	Type   models.QuestionType `json:"type" validate:"required,question_type"`
	Text   string              `json:"text" validate:"required"`
	Points int                 `json:"points" validate:"min=0"`

	Options       []models.QuestionOption `json:"options,omitempty"`
	MatchingPairs []models.MatchingPair   `json:"matching_pairs,omitempty"`
	Dropdowns     []models.DropdownBlank  `json:"dropdowns,omitempty"`
}

type StartAttemptRequest struct {
	QuizID      string `json:"quiz_id" validate:"required"`
	StudentName string `json:"student_name" validate:"max=100"`
}

// AttemptResponse is the learner-facing view of an active session. Correct
// answers are stripped from the quiz payload before it leaves the service.
type AttemptResponse struct {
	SessionID        string               `json:"session_id"`
	QuizID           string               `json:"quiz_id"`
	Status           models.AttemptStatus `json:"status"`
	StartedAt        time.Time            `json:"started_at"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	TimeWarning      int                  `json:"time_warning"`
	Answers          map[string]string    `json:"answers"`
	ViolationCount   int                  `json:"violation_count"`
	ViolationLimit   int                  `json:"violation_limit"`
	Quiz             *models.Quiz         `json:"quiz"`
}

type SaveAnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

// SaveAnswerResponse carries per-question feedback only when the quiz has
// instant feedback enabled; otherwise Feedback stays nil.
type SaveAnswerResponse struct {
	QuestionID       string           `json:"question_id"`
	Saved            bool             `json:"saved"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Feedback         *grading.Outcome `json:"feedback,omitempty"`
}

type ViolationRequest struct {
	Type       models.ViolationType `json:"type" validate:"required"`
	TimeOffset int                  `json:"time_offset" validate:"min=0"`
	UserAgent  string               `json:"user_agent"`
}

// ViolationResponse tells the client whether to warn the learner or that the
// attempt was force-submitted. Result is set only on force-submit.
type ViolationResponse struct {
	Decision grading.ViolationDecision `json:"decision"`
	Result   *SubmitResponse           `json:"result,omitempty"`
}

// SubmitResponse is the learner-facing view of a finalized attempt. The
// per-question breakdown is included only when the quiz shows it.
type SubmitResponse struct {
	ResultID           string                   `json:"result_id"`
	AutoScore          float64                  `json:"auto_score"`
	TotalScore         float64                  `json:"total_score"`
	TotalPossibleScore int                      `json:"total_possible_score"`
	Percentage         float64                  `json:"percentage"`
	Grade              string                   `json:"grade"`
	SubmitTrigger      models.SubmitTrigger     `json:"submit_trigger"`
	PendingManual      bool                     `json:"pending_manual"`
	SubmittedAt        time.Time                `json:"submitted_at"`
	QuestionResults    []grading.QuestionResult `json:"question_results,omitempty"`
}

type ManualGradeRequest struct {
	// Scores maps question id to the points awarded by the grader.
	Scores map[string]float64 `json:"scores" validate:"required,min=1"`
}

// PendingQuestion is one manually graded question awaiting (or carrying) a
// score on a result.
type PendingQuestion struct {
	QuestionID string              `json:"question_id"`
	Type       models.QuestionType `json:"type"`
	Text       string              `json:"text"`
	Points     int                 `json:"points"`
	Answer     string              `json:"answer"`
	Score      *float64            `json:"score"`
}

type ResultListResponse struct {
	Results []*models.Result `json:"results"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

type QuizListResponse struct {
	Quizzes []*models.Quiz `json:"quizzes"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// ===== SERVICE INTERFACES =====

type QuizService interface {
	Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*models.Quiz, error)
	GetByID(ctx context.Context, id string) (*models.Quiz, error)
	Update(ctx context.Context, id string, req *UpdateQuizRequest, userID string) (*models.Quiz, error)
	Publish(ctx context.Context, id string, userID string) (*models.Quiz, error)
	Archive(ctx context.Context, id string, userID string) error
	Delete(ctx context.Context, id string, userID string) error
	List(ctx context.Context, filters repositories.QuizFilters) (*QuizListResponse, error)
}

type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error)
	Get(ctx context.Context, sessionID, studentID string) (*AttemptResponse, error)
	SaveAnswer(ctx context.Context, sessionID string, req *SaveAnswerRequest, studentID string) (*SaveAnswerResponse, error)
	ReportViolation(ctx context.Context, sessionID string, req *ViolationRequest, studentID string) (*ViolationResponse, error)
	Submit(ctx context.Context, sessionID, studentID string) (*SubmitResponse, error)
	// HandleTimeout finalizes an expired session with the time-up trigger. It
	// is invoked from the client's timer tick and from lazy expiry checks, so
	// it tolerates racing with a voluntary submit.
	HandleTimeout(ctx context.Context, sessionID string) (*SubmitResponse, error)
}

type GradingService interface {
	GetResult(ctx context.Context, resultID, userID string, role models.UserRole) (*models.Result, error)
	ListResults(ctx context.Context, quizID string, filters repositories.ResultFilters, userID string, role models.UserRole) (*ResultListResponse, error)
	PendingQuestions(ctx context.Context, resultID, userID string, role models.UserRole) ([]PendingQuestion, error)
	// ApplyManualScores merges grader-assigned points into the result's manual
	// ledger and recomputes every derived total from scratch.
	ApplyManualScores(ctx context.Context, resultID string, req *ManualGradeRequest, graderID string, role models.UserRole) (*models.Result, error)
	Stats(ctx context.Context, quizID, userID string, role models.UserRole) (*repositories.ResultStats, error)
}

type ExportService interface {
	ExportResultsXLSX(ctx context.Context, quizID, userID string, role models.UserRole) ([]byte, string, error)
	ExportResultsCSV(ctx context.Context, quizID, userID string, role models.UserRole) ([]byte, string, error)
}

// ServiceManager bundles the services for handler wiring.
type ServiceManager interface {
	Quiz() QuizService
	Attempt() AttemptService
	Grading() GradingService
	Export() ExportService
}
