package grading

import (
	"math/rand"
	"testing"

	"github.com/quizforge/scoring-service/internal/models"
)

func twoQuestionQuiz() *models.Quiz {
	return &models.Quiz{
		ID:    "quiz-1",
		Title: "Unit 3 check",
		Sections: []models.QuizSection{
			{
				ID:     "s1",
				QuizID: "quiz-1",
				Questions: []models.Question{
					{
						ID:     "q1",
						Type:   models.MultipleChoice,
						Text:   "pick one",
						Points: 10,
						Options: []models.QuestionOption{
							{ID: "a", Text: "first"},
							{ID: "b", Text: "second", IsCorrect: true},
							{ID: "c", Text: "third"},
						},
					},
					{ID: "q2", Type: models.Essay, Text: "discuss", Points: 20},
				},
			},
		},
	}
}

// End-to-end scenario: MC worth 10 answered correctly plus an ungraded essay
// worth 20. Auto score 10/30 → D; after the instructor assigns 15 for the
// essay the recomputed total is 25/30 → A.
func TestFinalize_ThenManualRecompute(t *testing.T) {
	quiz := twoQuestionQuiz()
	answers := map[string]string{"q1": "b", "q2": "It depends on the premise."}

	summary := Finalize(quiz, answers)

	if summary.AutoScore != 10 {
		t.Fatalf("expected auto score 10, got %.1f", summary.AutoScore)
	}
	if summary.TotalPossibleScore != 30 {
		t.Fatalf("expected total possible 30, got %d", summary.TotalPossibleScore)
	}
	if summary.Band.Grade != "D" {
		t.Fatalf("expected provisional grade D at 33.3%%, got %s", summary.Band.Grade)
	}
	if len(summary.MalformedQuestions) != 0 {
		t.Fatalf("unexpected malformed questions: %v", summary.MalformedQuestions)
	}

	essay, ok := quiz.QuestionByID("q2")
	if !ok {
		t.Fatal("essay question not found")
	}
	ledger := ManualLedger{}
	if err := ledger.Apply(essay, 15); err != nil {
		t.Fatal(err)
	}

	total, band := Totals(summary.AutoScore, ledger, summary.TotalPossibleScore)
	if total != 25 {
		t.Errorf("expected total 25 after manual grading, got %.1f", total)
	}
	if band.Grade != "A" {
		t.Errorf("expected grade A at 83.3%%, got %s", band.Grade)
	}
}

// Question order never changes the aggregate: finalize over any permutation
// of the questions yields the same auto score and denominator.
func TestFinalize_Commutative(t *testing.T) {
	questions := []models.Question{
		{ID: "q1", Type: models.MultipleChoice, Points: 10, Text: "q", Options: []models.QuestionOption{
			{ID: "a", Text: "A", IsCorrect: true}, {ID: "b", Text: "B"},
		}},
		{ID: "q2", Type: models.TrueFalse, Points: 4, Text: "q", Options: []models.QuestionOption{
			{ID: "t", Text: "True"}, {ID: "f", Text: "False", IsCorrect: true},
		}},
		{ID: "q3", Type: models.Essay, Points: 20, Text: "q"},
		{ID: "q4", Type: models.Dropdown, Points: 6, Text: "q", Options: []models.QuestionOption{
			{ID: "d1", Text: "x", IsCorrect: true}, {ID: "d2", Text: "y"},
		}},
		{ID: "q5", Type: models.ShortAnswer, Points: 5, Text: "q"},
	}
	answers := map[string]string{
		"q1": "a",
		"q2": "False",
		"q3": "essay text",
		"q4": "d2",
		"q5": "short",
	}

	baseline := Finalize(&models.Quiz{Sections: []models.QuizSection{{Questions: questions}}}, answers)
	if baseline.AutoScore != 14 || baseline.TotalPossibleScore != 45 {
		t.Fatalf("unexpected baseline: auto=%.1f possible=%d", baseline.AutoScore, baseline.TotalPossibleScore)
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]models.Question, len(questions))
		copy(shuffled, questions)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := Finalize(&models.Quiz{Sections: []models.QuizSection{{Questions: shuffled}}}, answers)
		if got.AutoScore != baseline.AutoScore {
			t.Fatalf("trial %d: auto score changed with order: %.1f != %.1f", trial, got.AutoScore, baseline.AutoScore)
		}
		if got.TotalPossibleScore != baseline.TotalPossibleScore {
			t.Fatalf("trial %d: denominator changed with order: %d != %d", trial, got.TotalPossibleScore, baseline.TotalPossibleScore)
		}
	}
}

// Every question counts toward the denominator even when nothing is
// auto-gradable; an all-essay quiz grades normally against it.
func TestFinalize_AllManualQuiz(t *testing.T) {
	quiz := &models.Quiz{Sections: []models.QuizSection{{Questions: []models.Question{
		{ID: "e1", Type: models.Essay, Points: 20, Text: "q"},
		{ID: "e2", Type: models.ShortAnswer, Points: 10, Text: "q"},
	}}}}

	summary := Finalize(quiz, map[string]string{"e1": "text", "e2": "text"})
	if summary.AutoScore != 0 {
		t.Errorf("expected zero auto score, got %.1f", summary.AutoScore)
	}
	if summary.TotalPossibleScore != 30 {
		t.Errorf("expected total possible 30, got %d", summary.TotalPossibleScore)
	}
	if summary.Band.Grade != "D" {
		t.Errorf("expected provisional D, got %s", summary.Band.Grade)
	}
}

// A malformed question is reported and scored zero but still counts toward
// the denominator, and does not stop the rest of the quiz from grading.
func TestFinalize_MalformedQuestionDoesNotBlock(t *testing.T) {
	quiz := &models.Quiz{Sections: []models.QuizSection{{Questions: []models.Question{
		{ID: "ok", Type: models.MultipleChoice, Points: 10, Text: "q", Options: []models.QuestionOption{
			{ID: "a", Text: "A", IsCorrect: true}, {ID: "b", Text: "B"},
		}},
		{ID: "bad", Type: models.MultipleChoice, Points: 10, Text: "q", Options: []models.QuestionOption{
			{ID: "a", Text: "A"}, {ID: "b", Text: "B"},
		}},
	}}}}

	summary := Finalize(quiz, map[string]string{"ok": "a", "bad": "a"})
	if summary.AutoScore != 10 {
		t.Errorf("expected auto score 10, got %.1f", summary.AutoScore)
	}
	if summary.TotalPossibleScore != 20 {
		t.Errorf("expected total possible 20, got %d", summary.TotalPossibleScore)
	}
	if len(summary.MalformedQuestions) != 1 || summary.MalformedQuestions[0] != "bad" {
		t.Errorf("expected [bad] malformed, got %v", summary.MalformedQuestions)
	}
}

func TestEvaluateViolation(t *testing.T) {
	tests := []struct {
		count       int
		warn        bool
		forceSubmit bool
		remaining   int
	}{
		{count: 1, warn: true, remaining: 2},
		{count: 2, warn: true, remaining: 1},
		{count: 3, forceSubmit: true},
		{count: 4, forceSubmit: true},
	}

	for _, tc := range tests {
		got := EvaluateViolation(tc.count, DefaultViolationLimit)
		if got.Warn != tc.warn || got.ForceSubmit != tc.forceSubmit || got.Remaining != tc.remaining {
			t.Errorf("count %d: expected {warn:%v force:%v remaining:%d}, got %+v",
				tc.count, tc.warn, tc.forceSubmit, tc.remaining, got)
		}
	}
}
