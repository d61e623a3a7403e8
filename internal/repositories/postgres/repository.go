package postgres

import (
	"context"
	"errors"

	"github.com/quizforge/scoring-service/internal/repositories"
	"gorm.io/gorm"
)

// GormRepository implements repositories.Repository on top of gorm/postgres.
type GormRepository struct {
	db        *gorm.DB
	quiz      repositories.QuizRepository
	session   repositories.SessionRepository
	result    repositories.ResultRepository
	violation repositories.ViolationRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &GormRepository{
		db:        db,
		quiz:      NewQuizPostgreSQL(db),
		session:   NewSessionPostgreSQL(db),
		result:    NewResultPostgreSQL(db),
		violation: NewViolationPostgreSQL(db),
	}
}

func (r *GormRepository) Quiz() repositories.QuizRepository           { return r.quiz }
func (r *GormRepository) Session() repositories.SessionRepository     { return r.session }
func (r *GormRepository) Result() repositories.ResultRepository       { return r.result }
func (r *GormRepository) Violation() repositories.ViolationRepository { return r.violation }

// WithTx runs fn against a transactional repository; an error from fn rolls
// everything back.
func (r *GormRepository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// translateError maps gorm errors onto the repository sentinels. Requires the
// gorm connection to be opened with TranslateError so driver-specific unique
// violations surface as gorm.ErrDuplicatedKey.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repositories.ErrDuplicateKey
	default:
		return err
	}
}
