package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quizforge/scoring-service/internal/models"
	"github.com/quizforge/scoring-service/internal/repositories"
)

// fakeRepository is an in-memory repositories.Repository. It keeps enough
// real semantics for service tests: the unique (quiz, student) result index
// and not-found errors behave like the Postgres implementation.
type fakeRepository struct {
	mu         sync.Mutex
	quizzes    map[string]*models.Quiz
	sessions   map[string]*models.AttemptSession
	results    map[string]*models.Result
	violations map[string][]*models.ViolationEvent
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		quizzes:    make(map[string]*models.Quiz),
		sessions:   make(map[string]*models.AttemptSession),
		results:    make(map[string]*models.Result),
		violations: make(map[string][]*models.ViolationEvent),
	}
}

func (f *fakeRepository) Quiz() repositories.QuizRepository           { return (*fakeQuizRepo)(f) }
func (f *fakeRepository) Session() repositories.SessionRepository     { return (*fakeSessionRepo)(f) }
func (f *fakeRepository) Result() repositories.ResultRepository       { return (*fakeResultRepo)(f) }
func (f *fakeRepository) Violation() repositories.ViolationRepository { return (*fakeViolationRepo)(f) }

func (f *fakeRepository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

// ===== QUIZ =====

type fakeQuizRepo fakeRepository

func (f *fakeQuizRepo) Create(ctx context.Context, quiz *models.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quizzes[quiz.ID] = quiz
	return nil
}

func (f *fakeQuizRepo) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	return f.GetByIDWithQuestions(ctx, id)
}

func (f *fakeQuizRepo) GetByIDWithQuestions(ctx context.Context, id string) (*models.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	quiz, ok := f.quizzes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return quiz, nil
}

func (f *fakeQuizRepo) Update(ctx context.Context, quiz *models.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quizzes[quiz.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.quizzes[quiz.ID] = quiz
	return nil
}

func (f *fakeQuizRepo) UpdateStatus(ctx context.Context, id string, status models.QuizStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	quiz, ok := f.quizzes[id]
	if !ok {
		return repositories.ErrNotFound
	}
	quiz.Status = status
	return nil
}

func (f *fakeQuizRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quizzes[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.quizzes, id)
	return nil
}

func (f *fakeQuizRepo) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var quizzes []*models.Quiz
	for _, quiz := range f.quizzes {
		quizzes = append(quizzes, quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, int64(len(quizzes)), nil
}

// ===== SESSION =====

type fakeSessionRepo fakeRepository

func (f *fakeSessionRepo) Create(ctx context.Context, session *models.AttemptSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id string) (*models.AttemptSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionRepo) GetActive(ctx context.Context, quizID, studentID string) (*models.AttemptSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, session := range f.sessions {
		if session.QuizID == quizID && session.StudentID == studentID && session.Status == models.AttemptInProgress {
			copied := *session
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeSessionRepo) Update(ctx context.Context, session *models.AttemptSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[session.ID]; !ok {
		return repositories.ErrNotFound
	}
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

// ===== RESULT =====

type fakeResultRepo fakeRepository

func (f *fakeResultRepo) Create(ctx context.Context, result *models.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.results {
		if existing.QuizID == result.QuizID && existing.StudentID == result.StudentID {
			return repositories.ErrDuplicateKey
		}
	}
	copied := *result
	f.results[result.ID] = &copied
	return nil
}

func (f *fakeResultRepo) GetByID(ctx context.Context, id string) (*models.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result, ok := f.results[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *result
	return &copied, nil
}

func (f *fakeResultRepo) GetByQuizAndStudent(ctx context.Context, quizID, studentID string) (*models.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, result := range f.results {
		if result.QuizID == quizID && result.StudentID == studentID {
			copied := *result
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeResultRepo) Update(ctx context.Context, result *models.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.results[result.ID]; !ok {
		return repositories.ErrNotFound
	}
	copied := *result
	f.results[result.ID] = &copied
	return nil
}

func (f *fakeResultRepo) ListByQuiz(ctx context.Context, quizID string, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []*models.Result
	for _, result := range f.results {
		if result.QuizID == quizID {
			copied := *result
			results = append(results, &copied)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].SubmittedAt.Before(results[j].SubmittedAt) })
	return results, int64(len(results)), nil
}

func (f *fakeResultRepo) Stats(ctx context.Context, quizID string) (*repositories.ResultStats, error) {
	results, _, _ := f.ListByQuiz(ctx, quizID, repositories.ResultFilters{})
	stats := &repositories.ResultStats{TotalResults: len(results)}
	passed := 0
	for _, result := range results {
		stats.AverageScore += result.TotalScore
		if result.Percentage >= 40 {
			passed++
		}
		if result.SubmitTrigger == models.TriggerViolation {
			stats.ForcedSubmits++
		}
		if result.SubmitTrigger == models.TriggerTimeUp {
			stats.TimedOutSubmits++
		}
	}
	if len(results) > 0 {
		stats.AverageScore /= float64(len(results))
		stats.PassRate = float64(passed) / float64(len(results))
	}
	return stats, nil
}

// ===== VIOLATION =====

type fakeViolationRepo fakeRepository

func (f *fakeViolationRepo) Create(ctx context.Context, event *models.ViolationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.violations[event.SessionID] = append(f.violations[event.SessionID], event)
	return nil
}

func (f *fakeViolationRepo) ListBySession(ctx context.Context, sessionID string) ([]*models.ViolationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.violations[sessionID], nil
}

// ===== CACHE =====

// fakeCache is an in-memory cache.CacheService without TTL handling.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = payload
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.entries[key]
	if !ok {
		return fmt.Errorf("cache miss")
	}
	return json.Unmarshal(payload, dest)
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
