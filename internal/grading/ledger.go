package grading

import (
	"errors"
	"fmt"

	"github.com/quizforge/scoring-service/internal/models"
)

// ErrManualScoreOutOfRange rejects a proposed manual score outside
// [0, question.points]. Out-of-range input is a caller error and is never
// silently clamped; masking a grading mistake is worse than bouncing it.
var ErrManualScoreOutOfRange = errors.New("manual score outside [0, points] range")

// ErrNotManuallyGradable rejects a manual score for a variant the auto-grader
// already decides.
var ErrNotManuallyGradable = errors.New("question type is auto-graded, not manually gradable")

// ManualLedger maps question id to the instructor-assigned points for that
// question. manual_score is always the sum of the ledger; totals are
// recomputed from it in full rather than adjusted incrementally.
type ManualLedger map[string]float64

// Apply records points for one question, replacing any prior entry
// (last write wins, per the single-grader-at-a-time assumption).
func (l ManualLedger) Apply(q *models.Question, points float64) error {
	if q.Type.AutoGradable() {
		return fmt.Errorf("%w: question %s is %s", ErrNotManuallyGradable, q.ID, q.Type)
	}
	if points < 0 || points > float64(q.Points) {
		return fmt.Errorf("%w: got %.2f, question %s allows [0, %d]", ErrManualScoreOutOfRange, points, q.ID, q.Points)
	}
	l[q.ID] = points
	return nil
}

// Total sums every entry in the ledger.
func (l ManualLedger) Total() float64 {
	total := 0.0
	for _, points := range l {
		total += points
	}
	return total
}

// Totals recomputes the aggregate from scratch: total score from the auto
// score plus the full ledger, then the grade band against the denominator.
func Totals(autoScore float64, ledger ManualLedger, totalPossible int) (float64, Band) {
	total := autoScore + ledger.Total()
	return total, Classify(total, totalPossible)
}
