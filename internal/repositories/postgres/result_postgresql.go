package postgres

import (
	"context"

	"github.com/quizforge/scoring-service/internal/models"
	"github.com/quizforge/scoring-service/internal/repositories"
	"gorm.io/gorm"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

// Create relies on the unique (quiz_id, student_id) index: a second result
// for the same attempt comes back as ErrDuplicateKey.
func (r *ResultPostgreSQL) Create(ctx context.Context, result *models.Result) error {
	return translateError(r.db.WithContext(ctx).Create(result).Error)
}

func (r *ResultPostgreSQL) GetByID(ctx context.Context, id string) (*models.Result, error) {
	var result models.Result
	if err := r.db.WithContext(ctx).First(&result, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &result, nil
}

func (r *ResultPostgreSQL) GetByQuizAndStudent(ctx context.Context, quizID, studentID string) (*models.Result, error) {
	var result models.Result
	if err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		First(&result).Error; err != nil {
		return nil, translateError(err)
	}
	return &result, nil
}

func (r *ResultPostgreSQL) Update(ctx context.Context, result *models.Result) error {
	return translateError(r.db.WithContext(ctx).Save(result).Error)
}

func (r *ResultPostgreSQL) ListByQuiz(ctx context.Context, quizID string, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	var results []*models.Result
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Result{}).Where("quiz_id = ?", quizID)
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	query = r.applyPaginationAndSort(query, filters)

	if err := query.Find(&results).Error; err != nil {
		return nil, 0, translateError(err)
	}

	return results, total, nil
}

func (r *ResultPostgreSQL) Stats(ctx context.Context, quizID string) (*repositories.ResultStats, error) {
	stats := &repositories.ResultStats{}

	row := r.db.WithContext(ctx).
		Model(&models.Result{}).
		Where("quiz_id = ?", quizID).
		Select("COUNT(*)," +
			"COALESCE(AVG(total_score), 0)," +
			"COALESCE(AVG(percentage), 0)," +
			"COALESCE(MAX(total_score), 0)," +
			"COALESCE(MIN(total_score), 0)," +
			"COALESCE(AVG(CASE WHEN percentage >= 40 THEN 1.0 ELSE 0.0 END), 0)").
		Row()
	if err := row.Scan(&stats.TotalResults, &stats.AverageScore, &stats.AveragePercent,
		&stats.HighestScore, &stats.LowestScore, &stats.PassRate); err != nil {
		return nil, translateError(err)
	}

	var forced, timedOut int64
	if err := r.db.WithContext(ctx).Model(&models.Result{}).
		Where("quiz_id = ? AND submit_trigger = ?", quizID, models.TriggerViolation).
		Count(&forced).Error; err != nil {
		return nil, translateError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Result{}).
		Where("quiz_id = ? AND submit_trigger = ?", quizID, models.TriggerTimeUp).
		Count(&timedOut).Error; err != nil {
		return nil, translateError(err)
	}
	stats.ForcedSubmits = int(forced)
	stats.TimedOutSubmits = int(timedOut)

	return stats, nil
}

func (r *ResultPostgreSQL) applyFilters(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.Grade != nil {
		query = query.Where("grade = ?", *filters.Grade)
	}
	if filters.DateFrom != nil {
		query = query.Where("submitted_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("submitted_at <= ?", *filters.DateTo)
	}
	return query
}

func (r *ResultPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "total_score", "percentage", "submitted_at":
	default:
		sortBy = "submitted_at"
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
