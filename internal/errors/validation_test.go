package errors

import (
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("points", "must be a non-negative point value", -3)

	if err.Field != "points" {
		t.Errorf("Expected field to be 'points', got '%s'", err.Field)
	}

	if err.Message != "must be a non-negative point value" {
		t.Errorf("Unexpected message: '%s'", err.Message)
	}

	if err.Value != -3 {
		t.Errorf("Expected value to be -3, got '%v'", err.Value)
	}

	expected := "validation error on field 'points': must be a non-negative point value"
	if err.Error() != expected {
		t.Errorf("Expected error message to be '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "validation failed" {
		t.Errorf("Expected 'validation failed' for empty errors, got '%s'", errs.Error())
	}

	errs = append(errs, *NewValidationError("options", "needs at least 2 options", nil))
	expected := "validation failed: options needs at least 2 options"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for single error, got '%s'", expected, errs.Error())
	}

	errs = append(errs, *NewValidationError("type", "must be a valid question type", nil))
	expected = "validation failed: 2 field errors"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for multiple errors, got '%s'", expected, errs.Error())
	}
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("duration", "must be between 5 and 300 minutes", "quiz_duration", 2)

	if err.Rule != "quiz_duration" {
		t.Errorf("Expected rule to be 'quiz_duration', got '%s'", err.Rule)
	}

	if err.Field != "duration" {
		t.Errorf("Expected field to be 'duration', got '%s'", err.Field)
	}
}
