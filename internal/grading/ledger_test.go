package grading

import (
	"errors"
	"testing"

	"github.com/quizforge/scoring-service/internal/models"
)

func essayQuestion(id string, points int) *models.Question {
	return &models.Question{ID: id, Type: models.Essay, Text: "q", Points: points}
}

func TestManualLedger_Apply(t *testing.T) {
	q := essayQuestion("e1", 20)

	tests := []struct {
		name    string
		points  float64
		wantErr error
	}{
		{name: "zero accepted", points: 0},
		{name: "mid-range accepted", points: 12.5},
		{name: "max accepted", points: 20},
		{name: "above max rejected", points: 21, wantErr: ErrManualScoreOutOfRange},
		{name: "negative rejected", points: -1, wantErr: ErrManualScoreOutOfRange},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ledger := ManualLedger{}
			err := ledger.Apply(q, tc.points)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if _, recorded := ledger[q.ID]; recorded {
					t.Error("rejected score must not be recorded in the ledger")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ledger[q.ID] != tc.points {
				t.Errorf("expected ledger entry %.2f, got %.2f", tc.points, ledger[q.ID])
			}
		})
	}
}

func TestManualLedger_RejectsAutoGradedTypes(t *testing.T) {
	q := &models.Question{
		ID:     "m1",
		Type:   models.MultipleChoice,
		Points: 10,
		Options: []models.QuestionOption{
			{ID: "a", Text: "A", IsCorrect: true},
			{ID: "b", Text: "B"},
		},
	}

	err := ManualLedger{}.Apply(q, 5)
	if !errors.Is(err, ErrNotManuallyGradable) {
		t.Fatalf("expected ErrNotManuallyGradable, got %v", err)
	}
}

func TestManualLedger_LastWriteWins(t *testing.T) {
	q := essayQuestion("e2", 10)
	ledger := ManualLedger{}

	if err := ledger.Apply(q, 4); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Apply(q, 7); err != nil {
		t.Fatal(err)
	}

	if ledger.Total() != 7 {
		t.Errorf("expected re-grade to replace prior entry, total %.1f", ledger.Total())
	}
}

// Accepted entries at their maximum never push the total past the possible
// score, since every entry is bounded by its own question's points.
func TestTotals_NeverExceedsPossible(t *testing.T) {
	q1 := essayQuestion("e3", 20)
	q2 := essayQuestion("e4", 15)
	ledger := ManualLedger{}
	if err := ledger.Apply(q1, 20); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Apply(q2, 15); err != nil {
		t.Fatal(err)
	}

	autoScore := 10.0 // From a separate 10-point auto-graded question.
	totalPossible := 45

	total, band := Totals(autoScore, ledger, totalPossible)
	if total != 45 {
		t.Errorf("expected total 45, got %.1f", total)
	}
	if total > float64(totalPossible) {
		t.Errorf("total %.1f exceeds possible %d", total, totalPossible)
	}
	if band.Grade != "A*" {
		t.Errorf("expected A*, got %s", band.Grade)
	}
}
