package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/quizforge/scoring-service/internal/models"
)

// Storage-level sentinel errors. Services translate these into their own
// taxonomy; handlers never see them directly.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	Status    *models.QuizStatus `json:"status"`
	CreatedBy *string            `json:"created_by"`
	Search    string             `json:"search"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "title", "due_date"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type ResultFilters struct {
	StudentID *string    `json:"student_id"`
	Grade     *string    `json:"grade"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`
	SortOrder string     `json:"sort_order"`

	// PendingOnly keeps only results that still await manual grading. It is
	// derived from the quiz's question set, so the services layer applies it
	// after the query rather than in SQL.
	PendingOnly bool `json:"pending_only"`
}

// ===== SHARED STATISTICS STRUCTS =====

// ResultStats aggregates per-quiz outcomes. Averages are provisional while
// any result still awaits manual grading.
type ResultStats struct {
	TotalResults    int     `json:"total_results"`
	AverageScore    float64 `json:"average_score"`
	AveragePercent  float64 `json:"average_percent"`
	HighestScore    float64 `json:"highest_score"`
	LowestScore     float64 `json:"lowest_score"`
	// PassRate is the share of results at 40% or above (any band above D).
	PassRate        float64 `json:"pass_rate"`
	ForcedSubmits   int     `json:"forced_submits"`
	TimedOutSubmits int     `json:"timed_out_submits"`
}

// ===== REPOSITORY INTERFACES =====

type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id string) (*models.Quiz, error)
	GetByIDWithQuestions(ctx context.Context, id string) (*models.Quiz, error)
	Update(ctx context.Context, quiz *models.Quiz) error
	UpdateStatus(ctx context.Context, id string, status models.QuizStatus) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters QuizFilters) ([]*models.Quiz, int64, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.AttemptSession) error
	GetByID(ctx context.Context, id string) (*models.AttemptSession, error)
	// GetActive returns the in-progress session for a student on a quiz.
	GetActive(ctx context.Context, quizID, studentID string) (*models.AttemptSession, error)
	Update(ctx context.Context, session *models.AttemptSession) error
}

type ResultRepository interface {
	// Create fails with ErrDuplicateKey when a result already exists for the
	// same (quiz, student); the unique index is the storage-side
	// at-most-once guard.
	Create(ctx context.Context, result *models.Result) error
	GetByID(ctx context.Context, id string) (*models.Result, error)
	GetByQuizAndStudent(ctx context.Context, quizID, studentID string) (*models.Result, error)
	Update(ctx context.Context, result *models.Result) error
	ListByQuiz(ctx context.Context, quizID string, filters ResultFilters) ([]*models.Result, int64, error)
	Stats(ctx context.Context, quizID string) (*ResultStats, error)
}

type ViolationRepository interface {
	Create(ctx context.Context, event *models.ViolationEvent) error
	ListBySession(ctx context.Context, sessionID string) ([]*models.ViolationEvent, error)
}

// Repository bundles the per-aggregate repositories. WithTx runs fn against a
// transactional copy; returning an error rolls back.
type Repository interface {
	Quiz() QuizRepository
	Session() SessionRepository
	Result() ResultRepository
	Violation() ViolationRepository

	WithTx(ctx context.Context, fn func(Repository) error) error
}
