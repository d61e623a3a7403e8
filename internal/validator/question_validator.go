package validator

import (
	"fmt"

	apperrors "github.com/quizforge/scoring-service/internal/errors"
	"github.com/quizforge/scoring-service/internal/models"
)

// QuestionValidator enforces the authoring-time rules for each question
// variant. Grading never runs these checks; a question that slips through
// malformed is scored defensively instead.
type QuestionValidator struct{}

func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// Validate checks one question definition. Rules:
//   - the type must be one of the seven variants
//   - points must be non-negative
//   - choice-based variants (multiple_choice, true_false, dropdown) need at
//     least 2 options and exactly one marked correct
//   - matching needs at least one pair; dropdown needs its blanks
//
// Essay, short-answer and passage carry no key and are exempt from the
// option rules.
func (qv *QuestionValidator) Validate(q *models.Question) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors

	if !q.Type.Valid() {
		errs = append(errs, *apperrors.NewValidationErrorWithRule(
			"type", "must be a valid question type", "question_type", string(q.Type)))
		return errs
	}

	if q.Points < 0 {
		errs = append(errs, *apperrors.NewValidationErrorWithRule(
			"points", "must be a non-negative point value", "points_range", q.Points))
	}

	if q.Text == "" {
		errs = append(errs, *apperrors.NewValidationError("text", "is required", nil))
	}

	if q.Type.ChoiceBased() {
		errs = append(errs, qv.validateChoiceKey(q)...)
	}

	if q.Type == models.Matching && len(q.MatchingPairs) == 0 {
		errs = append(errs, *apperrors.NewValidationError(
			"matching_pairs", "matching question needs at least one pair", nil))
	}

	if q.Type == models.Dropdown && len(q.Dropdowns) == 0 && len(q.Options) == 0 {
		errs = append(errs, *apperrors.NewValidationError(
			"dropdowns", "dropdown question needs blanks or options", nil))
	}

	return errs
}

func (qv *QuestionValidator) validateChoiceKey(q *models.Question) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors

	if len(q.Options) < 2 {
		errs = append(errs, *apperrors.NewValidationError(
			"options", "choice question needs at least 2 options", len(q.Options)))
	}

	correct := 0
	for _, opt := range q.Options {
		if opt.ID == "" {
			errs = append(errs, *apperrors.NewValidationError(
				"options", "every option needs an id", opt.Text))
		}
		if opt.IsCorrect {
			correct++
		}
	}

	if correct != 1 {
		errs = append(errs, *apperrors.NewValidationError(
			"options", fmt.Sprintf("choice question needs exactly one correct option, found %d", correct), correct))
	}

	if q.Type == models.TrueFalse {
		if len(q.Options) != 2 || !hasTexts(q.Options, "True", "False") {
			errs = append(errs, *apperrors.NewValidationError(
				"options", `true/false question needs exactly the options "True" and "False"`, nil))
		}
	}

	return errs
}

func hasTexts(options []models.QuestionOption, want ...string) bool {
	seen := make(map[string]bool, len(options))
	for _, opt := range options {
		seen[opt.Text] = true
	}
	for _, text := range want {
		if !seen[text] {
			return false
		}
	}
	return true
}
