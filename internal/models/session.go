package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
)

type ViolationType string

const (
	ViolationTabSwitch      ViolationType = "tab_switch"
	ViolationWindowBlur     ViolationType = "window_blur"
	ViolationFullscreenExit ViolationType = "fullscreen_exit"
)

// AttemptSession owns the learner's in-progress state: the answer map, the
// violation counter and the deadline. It is the explicit replacement for the
// ambient page-level answer container; nothing in it is persisted to a Result
// until finalize. Submitted is terminal.
type AttemptSession struct {
	ID        string        `json:"id" gorm:"primaryKey;size:36"`
	QuizID    string        `json:"quiz_id" gorm:"not null;size:36;index"`
	StudentID string        `json:"student_id" gorm:"not null;size:255;index"`
	Status    AttemptStatus `json:"status" gorm:"not null;default:in_progress;index"`

	StartedAt time.Time  `json:"started_at" gorm:"not null"`
	EndTime   *time.Time `json:"end_time"`
	TimeLimit int        `json:"time_limit" gorm:"not null"` // Seconds

	// Current responses keyed by question id. Absent, empty and null are all
	// "unanswered".
	Answers datatypes.JSONType[map[string]string] `json:"answers"`

	ViolationCount int `json:"violation_count" gorm:"not null;default:0"`

	SubmittedAt *time.Time `json:"submitted_at"`
	ResultID    *string    `json:"result_id" gorm:"size:36"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the configured duration has elapsed.
func (s *AttemptSession) Expired(now time.Time) bool {
	return s.EndTime != nil && now.After(*s.EndTime)
}

// RemainingSeconds never goes below zero.
func (s *AttemptSession) RemainingSeconds(now time.Time) int {
	if s.EndTime == nil {
		return 0
	}
	remaining := int(s.EndTime.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ViolationEvent records a single proctoring anomaly during an active
// attempt, kept for instructor review alongside the force-submit provenance.
type ViolationEvent struct {
	ID        string        `json:"id" gorm:"primaryKey;size:36"`
	SessionID string        `json:"session_id" gorm:"not null;size:36;index"`
	Type      ViolationType `json:"type" gorm:"not null;size:32"`

	TimeOffset int    `json:"time_offset"` // Seconds from attempt start
	UserAgent  string `json:"user_agent" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
}

func (AttemptSession) TableName() string {
	return "attempt_sessions"
}

func (ViolationEvent) TableName() string {
	return "violation_events"
}
