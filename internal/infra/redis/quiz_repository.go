package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"study-quiz-service/internal/app"
	"study-quiz-service/internal/domain"
)

// QuizCache caches quizzes in Redis (one JSON value per quiz) and falls back
// to the backing store on a miss. Misses are never cached: a quiz deleted from
// the store simply expires out of Redis.
//
//	SET quiz:{id} {json} EX ttl
type QuizCache struct {
	client *redis.Client
	store  app.QuizStore
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

type lookup struct {
	quiz  domain.Quiz
	found bool
}

func NewQuizCache(client *redis.Client, store app.QuizStore, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		store:  store,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizCache) GetByID(ctx context.Context, id int64) (domain.Quiz, bool, error) {
	if quiz, ok := r.cached(ctx, id); ok {
		return quiz, true, nil
	}

	result, err, _ := r.sf.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, id); ok {
			return lookup{quiz: quiz, found: true}, nil
		}

		quiz, found, err := r.store.GetByID(ctx, id)
		if err != nil || !found {
			return lookup{}, err
		}

		if raw, err := json.Marshal(quiz); err == nil {
			// best-effort: a failed fill only costs another store read
			_ = r.client.Set(ctx, quizKey(id), raw, r.ttlWithJitter()).Err()
		}
		return lookup{quiz: quiz, found: true}, nil
	})
	if err != nil {
		return domain.Quiz{}, false, err
	}
	res := result.(lookup)
	return res.quiz, res.found, nil
}

// ListByCategory reads through; selection needs the current pool.
func (r *QuizCache) ListByCategory(ctx context.Context, category string) ([]domain.Quiz, error) {
	return r.store.ListByCategory(ctx, category)
}

// Invalidate drops a cached quiz.
func (r *QuizCache) Invalidate(ctx context.Context, id int64) error {
	return r.client.Del(ctx, quizKey(id)).Err()
}

func (r *QuizCache) cached(ctx context.Context, id int64) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, quizKey(id)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func quizKey(id int64) string {
	return "quiz:" + strconv.FormatInt(id, 10)
}

func (r *QuizCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
