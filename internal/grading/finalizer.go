package grading

import "github.com/quizforge/scoring-service/internal/models"

// QuestionResult is the per-question verdict surfaced to the instant-feedback
// rendering mode. It is informational only and never part of the persisted
// Result.
type QuestionResult struct {
	QuestionID    string  `json:"question_id"`
	Points        int     `json:"points"`
	AwardedPoints float64 `json:"awarded_points"`
	IsCorrect     *bool   `json:"is_correct"`
}

// Summary is the outcome of auto-grading a whole attempt. ManualScore is zero
// here; manual grading happens after finalization against the stored ledger.
type Summary struct {
	AutoScore          float64
	TotalPossibleScore int
	Band               Band
	QuestionResults    []QuestionResult

	// Question ids whose answer key was malformed; scored as ungradable so a
	// single bad question cannot block the rest of the submission. Callers
	// log these.
	MalformedQuestions []string
}

// Finalize auto-grades every question of the quiz, section by section in
// document order. Every question's points count toward the denominator
// whether or not the type is auto-gradable, so an all-essay quiz yields a
// positive total with a zero auto score. Summation is commutative: question
// order never changes the aggregate.
func Finalize(quiz *models.Quiz, answers map[string]string) Summary {
	summary := Summary{}

	for _, section := range quiz.Sections {
		for i := range section.Questions {
			question := &section.Questions[i]
			outcome := Grade(question, answers[question.ID])

			summary.AutoScore += outcome.AwardedPoints
			summary.TotalPossibleScore += question.Points
			summary.QuestionResults = append(summary.QuestionResults, QuestionResult{
				QuestionID:    question.ID,
				Points:        question.Points,
				AwardedPoints: outcome.AwardedPoints,
				IsCorrect:     outcome.IsCorrect,
			})
			if outcome.Reason == ReasonMalformedQuestion {
				summary.MalformedQuestions = append(summary.MalformedQuestions, question.ID)
			}
		}
	}

	summary.Band = Classify(summary.AutoScore, summary.TotalPossibleScore)
	return summary
}
