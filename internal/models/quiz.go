package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuizStatus string

const (
	QuizDraft    QuizStatus = "Draft"
	QuizActive   QuizStatus = "Active"
	QuizExpired  QuizStatus = "Expired"
	QuizArchived QuizStatus = "Archived"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
	Matching       QuestionType = "matching"
	Dropdown       QuestionType = "dropdown"
	Passage        QuestionType = "passage"
)

// AllQuestionTypes is the closed set of variants. Adding a variant is a
// breaking change: the auto-grader dispatch and the question validator must
// be extended together.
var AllQuestionTypes = []QuestionType{
	MultipleChoice,
	TrueFalse,
	ShortAnswer,
	Essay,
	Matching,
	Dropdown,
	Passage,
}

// AutoGradable reports whether correctness can be decided by key comparison.
// Short answers look auto-gradable but are graded by a human.
func (t QuestionType) AutoGradable() bool {
	switch t {
	case MultipleChoice, TrueFalse, Dropdown:
		return true
	default:
		return false
	}
}

// ChoiceBased reports whether the variant carries an options list with a
// correct-option flag.
func (t QuestionType) ChoiceBased() bool {
	switch t {
	case MultipleChoice, TrueFalse, Dropdown:
		return true
	default:
		return false
	}
}

func (t QuestionType) Valid() bool {
	for _, vt := range AllQuestionTypes {
		if t == vt {
			return true
		}
	}
	return false
}

type Quiz struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	Title       string     `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string    `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Duration    int        `json:"duration" gorm:"not null" validate:"required,min=5,max=300"` // Minutes
	Status      QuizStatus `json:"status" gorm:"default:Draft;index" validate:"omitempty,quiz_status"`
	DueDate     *time.Time `json:"due_date"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Version control
	Version int `json:"version" gorm:"default:1"`

	// Relations
	Settings QuizSettings  `json:"settings" gorm:"foreignKey:QuizID"`
	Sections []QuizSection `json:"sections" gorm:"foreignKey:QuizID"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
	TotalPoints    int `json:"total_points" gorm:"-"`
}

type QuizSection struct {
	ID       string `json:"id" gorm:"primaryKey;size:36"`
	QuizID   string `json:"quiz_id" gorm:"not null;size:36;index"`
	Title    string `json:"title" gorm:"size:200"`
	Position int    `json:"position" gorm:"not null;default:0"`

	Questions []Question `json:"questions" gorm:"foreignKey:SectionID"`
}

type QuizSettings struct {
	QuizID string `json:"quiz_id" gorm:"primaryKey;size:36"`

	// Result settings
	ShowResults         bool `json:"show_results" gorm:"default:true"`
	ShowInstantFeedback bool `json:"show_instant_feedback" gorm:"default:false"`
	ShowScoreBreakdown  bool `json:"show_score_breakdown" gorm:"default:true"`

	// Time settings
	TimeLimitEnforced   bool `json:"time_limit_enforced" gorm:"default:true"`
	AutoSubmitOnTimeout bool `json:"auto_submit_on_timeout" gorm:"default:true"`
	TimeWarning         int  `json:"time_warning" gorm:"default:300"` // Seconds before expiry

	// Proctoring settings
	PreventTabSwitching bool `json:"prevent_tab_switching" gorm:"default:true"`
	ViolationLimit      int  `json:"violation_limit" gorm:"default:3" validate:"omitempty,min=1,max=10"`
}

type QuestionOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type MatchingPair struct {
	ID    string `json:"id"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

type DropdownBlank struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Choices []string `json:"choices"`
}

type Question struct {
	ID        string       `json:"id" gorm:"primaryKey;size:36"`
	SectionID string       `json:"section_id" gorm:"not null;size:36;index"`
	Type      QuestionType `json:"type" gorm:"not null;size:20" validate:"required,question_type"`
	Text      string       `json:"text" gorm:"type:text;not null" validate:"required"`
	Points    int          `json:"points" gorm:"not null" validate:"min=0"`
	Position  int          `json:"position" gorm:"not null;default:0"`

	// Variant payloads. Only the fields meaningful for the variant are set;
	// an essay carries none of them.
	Options       datatypes.JSONSlice[QuestionOption] `json:"options,omitempty"`
	MatchingPairs datatypes.JSONSlice[MatchingPair]   `json:"matching_pairs,omitempty"`
	Dropdowns     datatypes.JSONSlice[DropdownBlank]  `json:"dropdowns,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CorrectOption returns the single option flagged correct, or false when the
// key is malformed (zero or more than one correct option). A malformed key is
// a data-entry defect; the grader treats the question as non-auto-gradable.
func (q *Question) CorrectOption() (QuestionOption, bool) {
	var found QuestionOption
	count := 0
	for _, opt := range q.Options {
		if opt.IsCorrect {
			found = opt
			count++
		}
	}
	return found, count == 1
}

// TotalPossiblePoints sums points over every question in every section,
// regardless of whether the question type is auto-gradable.
func (q *Quiz) TotalPossiblePoints() int {
	total := 0
	for _, section := range q.Sections {
		for _, question := range section.Questions {
			total += question.Points
		}
	}
	return total
}

// QuestionByID looks a question up across all sections.
func (q *Quiz) QuestionByID(id string) (*Question, bool) {
	for si := range q.Sections {
		for qi := range q.Sections[si].Questions {
			if q.Sections[si].Questions[qi].ID == id {
				return &q.Sections[si].Questions[qi], true
			}
		}
	}
	return nil, false
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (QuizSection) TableName() string {
	return "quiz_sections"
}

func (QuizSettings) TableName() string {
	return "quiz_settings"
}

func (Question) TableName() string {
	return "questions"
}
