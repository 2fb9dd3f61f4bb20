package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"study-quiz-service/internal/domain"
)

// QuizStore is the read side of quiz storage used by play and stats.
// GetByID reports (zero, false, nil) when the quiz does not exist.
type QuizStore interface {
	GetByID(ctx context.Context, id int64) (domain.Quiz, bool, error)
	ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error)
}

// QuizWriter creates quizzes; used by import and seeding, never by the engine.
type QuizWriter interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
}

// SessionLedger persists sessions. GetSession reports (zero, false, nil) when absent.
type SessionLedger interface {
	CreateSession(ctx context.Context, session domain.Session) error
	UpdateSession(ctx context.Context, id string, update domain.SessionUpdate) error
	GetSession(ctx context.Context, id string) (domain.Session, bool, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// ResultLog is the append-only record of answered questions.
type ResultLog interface {
	AppendResult(ctx context.Context, result domain.Result) error
	ListResultsBySession(ctx context.Context, sessionID string) ([]domain.Result, error)
}

// Random yields uniform integers in [0, n). *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
}

// NewRandom returns a goroutine-safe Random seeded from seed.
func NewRandom(seed int64) Random {
	return &lockedRandom{rnd: rand.New(rand.NewSource(seed))}
}

// NewTimeSeededRandom seeds from the wall clock.
func NewTimeSeededRandom() Random {
	return NewRandom(time.Now().UnixNano())
}

type lockedRandom struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (r *lockedRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}
