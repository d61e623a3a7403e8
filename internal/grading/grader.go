// Package grading is the pure scoring engine: auto-grading, the manual-score
// ledger, grade-band classification and attempt finalization. Nothing in it
// touches storage or transport; persistence of its outputs belongs to the
// services layer.
package grading

import (
	"strings"

	"github.com/quizforge/scoring-service/internal/models"
)

// Reason values attached to an Outcome. "malformed_question" means the
// answer key is inconsistent (zero or multiple correct options on a choice
// type); callers log it and the question is scored as non-auto-gradable.
const (
	ReasonCorrect           = "correct"
	ReasonWrong             = "wrong"
	ReasonUnanswered        = "unanswered"
	ReasonManual            = "manual"
	ReasonMalformedQuestion = "malformed_question"
)

// Outcome is the auto-grader's verdict for one question. IsCorrect is nil
// when correctness is not machine-decidable: the question type is manual, the
// answer is absent, or the key is malformed. An unanswered question is never
// marked wrong.
type Outcome struct {
	AwardedPoints float64 `json:"awarded_points"`
	IsCorrect     *bool   `json:"is_correct"`
	Reason        string  `json:"reason"`
}

// Grade decides correctness for machine-gradable variants and awards either
// the full point value or zero. It is a pure function over its inputs and is
// exhaustive over the closed variant set.
//
// Comparison keys differ by variant: multiple choice and dropdown compare the
// submitted value against the correct option's id, while true/false compares
// against the option's literal text ("True"/"False"). The asymmetry is part
// of the contract.
func Grade(q *models.Question, answer string) Outcome {
	if strings.TrimSpace(answer) == "" {
		return Outcome{Reason: ReasonUnanswered}
	}

	switch q.Type {
	case models.MultipleChoice, models.Dropdown:
		correct, ok := q.CorrectOption()
		if !ok {
			return Outcome{Reason: ReasonMalformedQuestion}
		}
		return verdict(answer == correct.ID, q.Points)

	case models.TrueFalse:
		correct, ok := q.CorrectOption()
		if !ok {
			return Outcome{Reason: ReasonMalformedQuestion}
		}
		return verdict(answer == correct.Text, q.Points)

	case models.ShortAnswer, models.Essay, models.Matching, models.Passage:
		return Outcome{Reason: ReasonManual}

	default:
		// Unknown variant reaching the grader is a data defect, not a crash:
		// score it as ungradable so one bad question cannot block submission.
		return Outcome{Reason: ReasonMalformedQuestion}
	}
}

func verdict(correct bool, points int) Outcome {
	if correct {
		return Outcome{AwardedPoints: float64(points), IsCorrect: boolPtr(true), Reason: ReasonCorrect}
	}
	return Outcome{IsCorrect: boolPtr(false), Reason: ReasonWrong}
}

func boolPtr(b bool) *bool {
	return &b
}
