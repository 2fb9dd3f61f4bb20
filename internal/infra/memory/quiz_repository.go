package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"study-quiz-service/internal/app"
	"study-quiz-service/internal/domain"
)

// QuizCache caches quiz reads with TTL to avoid repeated backing-store hits.
// Misses for deleted quizzes are not cached, so a quiz created later is found.
type QuizCache struct {
	store app.QuizStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand
	rndMu sync.Mutex

	mu    sync.RWMutex
	cache map[int64]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

type lookup struct {
	quiz  domain.Quiz
	found bool
}

func NewQuizCache(store app.QuizStore, ttl time.Duration) *QuizCache {
	return &QuizCache{
		store: store,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[int64]cachedQuiz),
	}
}

func (r *QuizCache) GetByID(ctx context.Context, id int64) (domain.Quiz, bool, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.quiz, true, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return lookup{quiz: entry.quiz, found: true}, nil
		}
		r.mu.RUnlock()

		quiz, found, err := r.store.GetByID(ctx, id)
		if err != nil || !found {
			return lookup{}, err
		}

		r.mu.Lock()
		r.cache[id] = cachedQuiz{
			quiz:      quiz,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return lookup{quiz: quiz, found: true}, nil
	})
	if err != nil {
		return domain.Quiz{}, false, err
	}
	res := result.(lookup)
	return res.quiz, res.found, nil
}

// ListByCategory always reads through; selection needs the current pool.
func (r *QuizCache) ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	return r.store.ListByCategory(ctx, category)
}

// Invalidate drops a cached quiz, e.g. after it was deleted.
func (r *QuizCache) Invalidate(_ context.Context, id int64) error {
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
	return nil
}

func (r *QuizCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
