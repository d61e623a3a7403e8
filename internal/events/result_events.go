package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/quizforge/scoring-service/internal/models"
)

type ResultEventType string

const (
	EventResultSubmitted ResultEventType = "result.submitted"
	EventResultRegraded  ResultEventType = "result.regraded"
)

const eventSource = "scoring-service"
const eventVersion = "1.0"

// ResultEvent is published after a result row is committed. Downstream
// consumers (leaderboards, notifications) treat totals on a submitted event
// as provisional whenever PendingManual is set.
type ResultEvent struct {
	ID        string          `json:"id"`
	Type      ResultEventType `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`

	ResultID      string               `json:"result_id"`
	QuizID        string               `json:"quiz_id"`
	StudentID     string               `json:"student_id"`
	TotalScore    float64              `json:"total_score"`
	Grade         string               `json:"grade"`
	SubmitTrigger models.SubmitTrigger `json:"submit_trigger"`
	PendingManual bool                 `json:"pending_manual"`
}

func newResultEvent(eventType ResultEventType, result *models.Result, pendingManual bool) *ResultEvent {
	return &ResultEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        eventSource,
		Version:       eventVersion,
		Timestamp:     time.Now(),
		ResultID:      result.ID,
		QuizID:        result.QuizID,
		StudentID:     result.StudentID,
		TotalScore:    result.TotalScore,
		Grade:         result.Grade,
		SubmitTrigger: result.SubmitTrigger,
		PendingManual: pendingManual,
	}
}

// NewResultSubmittedEvent builds the event for a freshly finalized attempt.
func NewResultSubmittedEvent(result *models.Result, pendingManual bool) *ResultEvent {
	return newResultEvent(EventResultSubmitted, result, pendingManual)
}

// NewResultRegradedEvent builds the event for a manual-grading pass.
func NewResultRegradedEvent(result *models.Result, pendingManual bool) *ResultEvent {
	return newResultEvent(EventResultRegraded, result, pendingManual)
}
