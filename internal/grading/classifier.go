package grading

// GradeNotAvailable is returned when the quiz carries no points at all; it is
// a defined outcome, not an error.
const GradeNotAvailable = "N/A"

// Band is the classified outcome for a score against a maximum.
type Band struct {
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
}

// Classify maps a score to a letter grade using fixed descending thresholds,
// lower bound inclusive: 90 → A*, 80 → A, 70 → B*, 60 → B, 50 → C*, 40 → C,
// anything below → D. Total over the whole input domain; no error path.
func Classify(score float64, totalPossible int) Band {
	if totalPossible == 0 {
		return Band{Grade: GradeNotAvailable}
	}

	percentage := 100 * score / float64(totalPossible)

	var grade string
	switch {
	case percentage >= 90:
		grade = "A*"
	case percentage >= 80:
		grade = "A"
	case percentage >= 70:
		grade = "B*"
	case percentage >= 60:
		grade = "B"
	case percentage >= 50:
		grade = "C*"
	case percentage >= 40:
		grade = "C"
	default:
		grade = "D"
	}

	return Band{Percentage: percentage, Grade: grade}
}
