package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/quizforge/scoring-service/internal/models"
)

// Validator combines struct-tag validation with the question business rules.
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates the centralized validator instance used across services.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate performs complete validation (struct tags; question payloads have
// their own entry point via Question()).
func (v *Validator) Validate(s interface{}) error {
	return v.ValidateStruct(s)
}

// Question returns the question validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("quiz_status", validateQuizStatus)
	validate.RegisterValidation("submit_trigger", validateSubmitTrigger)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	return models.QuestionType(fl.Field().String()).Valid()
}

func validateUserRole(fl validator.FieldLevel) bool {
	validRoles := []models.UserRole{
		models.RoleStudent,
		models.RoleTeacher,
		models.RoleProctor,
		models.RoleAdmin,
	}

	value := fl.Field().String()
	for _, validRole := range validRoles {
		if string(validRole) == value {
			return true
		}
	}
	return false
}

func validateQuizStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.QuizStatus{
		models.QuizDraft,
		models.QuizActive,
		models.QuizExpired,
		models.QuizArchived,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

func validateSubmitTrigger(fl validator.FieldLevel) bool {
	validTriggers := []models.SubmitTrigger{
		models.TriggerVoluntary,
		models.TriggerTimeUp,
		models.TriggerViolation,
	}

	value := fl.Field().String()
	for _, validTrigger := range validTriggers {
		if string(validTrigger) == value {
			return true
		}
	}
	return false
}
