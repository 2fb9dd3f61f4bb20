package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"study-quiz-service/internal/domain"
)

// QuizStore keeps quizzes in a map keyed by id (useful for tests/demos).
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[int64]domain.Quiz
	nextID  int64
	clock   func() time.Time
}

func NewQuizStore(seed ...domain.Quiz) *QuizStore {
	s := &QuizStore{
		quizzes: make(map[int64]domain.Quiz),
		clock:   time.Now,
	}
	for _, q := range seed {
		if q.ID > s.nextID {
			s.nextID = q.ID
		}
		if q.Category == "" {
			q.Category = domain.DefaultCategory
		}
		s.quizzes[q.ID] = q
	}
	return s
}

func (s *QuizStore) CreateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if err := domain.ValidateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.clock()
	quiz.ID = s.nextID
	quiz.Category = quiz.CategoryOrDefault()
	quiz.Options = append([]string(nil), quiz.Options...)
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	s.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (s *QuizStore) GetByID(_ context.Context, id int64) (domain.Quiz, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	return quiz, ok, nil
}

func (s *QuizStore) ListByCategory(_ context.Context, category string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		if category == domain.AllCategories || q.Category == category {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteQuiz removes a quiz; results that reference it are left in place.
func (s *QuizStore) DeleteQuiz(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, id)
	return nil
}
