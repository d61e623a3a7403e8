package grading

import "github.com/quizforge/scoring-service/internal/models"

// DefaultViolationLimit applies when quiz settings carry no explicit limit:
// two warnings, force-submit on the third violation.
const DefaultViolationLimit = 3

// ViolationDecision is the outcome of one recorded proctoring violation.
type ViolationDecision struct {
	// Warn is true while the learner still has violations left.
	Warn bool `json:"warn"`
	// ForceSubmit is true exactly when the counter reaches the limit; the
	// attempt must be finalized with the violation trigger.
	ForceSubmit bool `json:"force_submit"`
	// Remaining violations before forced submission.
	Remaining int `json:"remaining"`
}

// EvaluateViolation decides what the given violation count (after increment)
// means against the limit. Counts past the limit keep returning ForceSubmit;
// the caller's state machine guarantees finalize still runs only once because
// Submitted is terminal.
func EvaluateViolation(count, limit int) ViolationDecision {
	if limit <= 0 {
		limit = DefaultViolationLimit
	}
	if count >= limit {
		return ViolationDecision{ForceSubmit: true}
	}
	return ViolationDecision{Warn: true, Remaining: limit - count}
}

// CanSubmit is the single transition guard for the attempt state machine:
// only an in-progress attempt may be finalized, and Submitted is terminal.
// Timer ticks and violation events arriving after submission are no-ops.
func CanSubmit(status models.AttemptStatus) bool {
	return status == models.AttemptInProgress
}
