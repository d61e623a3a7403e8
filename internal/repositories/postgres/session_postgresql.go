package postgres

import (
	"context"

	"github.com/quizforge/scoring-service/internal/models"
	"github.com/quizforge/scoring-service/internal/repositories"
	"gorm.io/gorm"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s *SessionPostgreSQL) Create(ctx context.Context, session *models.AttemptSession) error {
	return translateError(s.db.WithContext(ctx).Create(session).Error)
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, id string) (*models.AttemptSession, error) {
	var session models.AttemptSession
	if err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetActive(ctx context.Context, quizID, studentID string) (*models.AttemptSession, error) {
	var session models.AttemptSession
	if err := s.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ? AND status = ?", quizID, studentID, models.AttemptInProgress).
		Order("started_at DESC").
		First(&session).Error; err != nil {
		return nil, translateError(err)
	}
	return &session, nil
}

func (s *SessionPostgreSQL) Update(ctx context.Context, session *models.AttemptSession) error {
	return translateError(s.db.WithContext(ctx).Save(session).Error)
}

type ViolationPostgreSQL struct {
	db *gorm.DB
}

func NewViolationPostgreSQL(db *gorm.DB) repositories.ViolationRepository {
	return &ViolationPostgreSQL{db: db}
}

func (v *ViolationPostgreSQL) Create(ctx context.Context, event *models.ViolationEvent) error {
	return translateError(v.db.WithContext(ctx).Create(event).Error)
}

func (v *ViolationPostgreSQL) ListBySession(ctx context.Context, sessionID string) ([]*models.ViolationEvent, error) {
	var events []*models.ViolationEvent
	if err := v.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, translateError(err)
	}
	return events, nil
}
