package postgres

import (
	"context"

	"github.com/quizforge/scoring-service/internal/models"
	"github.com/quizforge/scoring-service/internal/repositories"
	"gorm.io/gorm"
)

type QuizPostgreSQL struct {
	db *gorm.DB
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &QuizPostgreSQL{db: db}
}

func (q *QuizPostgreSQL) Create(ctx context.Context, quiz *models.Quiz) error {
	return translateError(q.db.WithContext(ctx).Create(quiz).Error)
}

func (q *QuizPostgreSQL) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := q.db.WithContext(ctx).
		Preload("Settings").
		First(&quiz, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) GetByIDWithQuestions(ctx context.Context, id string) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := q.db.WithContext(ctx).
		Preload("Settings").
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_sections.position ASC")
		}).
		Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.position ASC")
		}).
		First(&quiz, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}

	for _, section := range quiz.Sections {
		quiz.QuestionsCount += len(section.Questions)
	}
	quiz.TotalPoints = quiz.TotalPossiblePoints()

	return &quiz, nil
}

func (q *QuizPostgreSQL) Update(ctx context.Context, quiz *models.Quiz) error {
	return translateError(q.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(quiz).Error)
}

func (q *QuizPostgreSQL) UpdateStatus(ctx context.Context, id string, status models.QuizStatus) error {
	result := q.db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (q *QuizPostgreSQL) Delete(ctx context.Context, id string) error {
	return translateError(q.db.WithContext(ctx).Delete(&models.Quiz{}, "id = ?", id).Error)
}

func (q *QuizPostgreSQL) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	var quizzes []*models.Quiz
	var total int64

	query := q.db.WithContext(ctx).Model(&models.Quiz{})
	query = q.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	query = q.applyPaginationAndSort(query, filters)

	if err := query.Preload("Settings").Find(&quizzes).Error; err != nil {
		return nil, 0, translateError(err)
	}

	return quizzes, total, nil
}

func (q *QuizPostgreSQL) applyFilters(query *gorm.DB, filters repositories.QuizFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.Search != "" {
		query = query.Where("title ILIKE ?", "%"+filters.Search+"%")
	}
	return query
}

func (q *QuizPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.QuizFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "title", "due_date", "created_at":
	default:
		sortBy = "created_at"
	}
	order := "DESC"
	if filters.SortOrder == "asc" {
		order = "ASC"
	}
	query = query.Order(sortBy + " " + order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
