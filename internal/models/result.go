package models

import (
	"time"

	"gorm.io/datatypes"
)

type SubmitTrigger string

const (
	TriggerVoluntary SubmitTrigger = "voluntary"
	TriggerTimeUp    SubmitTrigger = "time_up"
	TriggerViolation SubmitTrigger = "violation"
)

// Result is the immutable record produced once per learner attempt. The only
// permitted mutation after creation is the manual-grading pass, which rewrites
// the ledger and the derived manual/total/grade fields.
type Result struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	QuizID      string `json:"quiz_id" gorm:"not null;size:36;uniqueIndex:idx_results_quiz_student"`
	StudentID   string `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_results_quiz_student"`
	StudentName string `json:"student_name" gorm:"size:100"`

	// Snapshot of the learner's answers at finalize time, keyed by question id.
	Answers datatypes.JSONType[map[string]string] `json:"answers"`

	// Manual-score ledger, keyed by question id. manual_score is always the
	// sum of this ledger; totals are recomputed from it in full on every
	// grading pass.
	ManualLedger datatypes.JSONType[map[string]float64] `json:"manual_ledger"`

	AutoScore          float64 `json:"auto_score" gorm:"not null"`
	ManualScore        float64 `json:"manual_score" gorm:"not null;default:0"`
	TotalScore         float64 `json:"total_score" gorm:"not null"`
	TotalPossibleScore int     `json:"total_possible_score" gorm:"not null"`
	Percentage         float64 `json:"percentage" gorm:"not null"`
	Grade              string  `json:"grade" gorm:"not null;size:8"`

	// Provenance: how the attempt ended.
	SubmitTrigger SubmitTrigger `json:"submit_trigger" gorm:"not null;size:16" validate:"omitempty,submit_trigger"`
	IsTimeUp      bool          `json:"is_time_up" gorm:"not null;default:false"`

	SubmittedAt time.Time  `json:"submitted_at" gorm:"not null;index"`
	GradedBy    *string    `json:"graded_by" gorm:"size:255"`
	GradedAt    *time.Time `json:"graded_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PendingManual reports whether any question in the quiz still awaits a
// manual score. Totals are provisional until this is false.
func (r *Result) PendingManual(quiz *Quiz) bool {
	ledger := r.ManualLedger.Data()
	for _, section := range quiz.Sections {
		for _, question := range section.Questions {
			if question.Type.AutoGradable() || question.Points == 0 {
				continue
			}
			if _, graded := ledger[question.ID]; !graded {
				return true
			}
		}
	}
	return false
}

func (Result) TableName() string {
	return "results"
}
