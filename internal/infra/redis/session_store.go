package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"study-quiz-service/internal/domain"
)

const sessionIndexKey = "quiz:sessions"

// Ledger stores sessions and results in Redis. It implements app.SessionLedger
// and app.ResultLog.
//
//	SET   quiz:session:{id}          {session json}
//	ZADD  quiz:sessions              {startedAt ms} {id}
//	RPUSH quiz:session:{id}:results  {result json}
//	HSET  quiz:session:{id}:answered {quizID} {resultID}
//
// A non-zero ttl expires finished sessions; open sessions are kept until they
// finish or are swept.
type Ledger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLedger(client *redis.Client, ttl time.Duration) *Ledger {
	return &Ledger{client: client, ttl: ttl}
}

func (l *Ledger) CreateSession(ctx context.Context, session domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), raw, 0)
		pipe.ZAdd(ctx, sessionIndexKey, redis.Z{Score: float64(session.StartedAt.UnixMilli()), Member: session.ID})
		return nil
	})
	return err
}

func (l *Ledger) UpdateSession(ctx context.Context, id string, update domain.SessionUpdate) error {
	session, ok, err := l.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	endedAt := update.EndedAt
	score := update.Score
	session.EndedAt = &endedAt
	session.Score = &score

	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(id), raw, 0)
		if l.ttl > 0 {
			pipe.Expire(ctx, sessionKey(id), l.ttl)
			pipe.Expire(ctx, resultsKey(id), l.ttl)
			pipe.Expire(ctx, answeredKey(id), l.ttl)
		}
		return nil
	})
	return err
}

func (l *Ledger) GetSession(ctx context.Context, id string) (domain.Session, bool, error) {
	raw, err := l.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, false, fmt.Errorf("decode session %s: %w", id, err)
	}
	return session, true, nil
}

// ListSessions returns sessions ordered by start time. Index entries whose
// session key has expired are pruned.
func (l *Ledger) ListSessions(ctx context.Context) ([]domain.Session, error) {
	ids, err := l.client.ZRange(ctx, sessionIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	sessions := make([]domain.Session, 0, len(ids))
	if len(ids) == 0 {
		return sessions, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	values, err := l.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	stale := make([]interface{}, 0)
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var session domain.Session
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", ids[i], err)
		}
		sessions = append(sessions, session)
	}
	if len(stale) > 0 {
		_ = l.client.ZRem(ctx, sessionIndexKey, stale...).Err()
	}
	return sessions, nil
}

func (l *Ledger) DeleteSession(ctx context.Context, id string) error {
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id), resultsKey(id), answeredKey(id))
		pipe.ZRem(ctx, sessionIndexKey, id)
		return nil
	})
	return err
}

// appendResultScript pushes the result before marking the quiz answered, so a
// failed push leaves no answered flag behind.
var appendResultScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	return 0
end
redis.call('RPUSH', KEYS[2], ARGV[3])
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// AppendResult pushes a result unless one was already recorded for the same
// quiz in this session.
func (l *Ledger) AppendResult(ctx context.Context, result domain.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	keys := []string{answeredKey(result.SessionID), resultsKey(result.SessionID)}
	if err := appendResultScript.Run(ctx, l.client, keys, strconv.FormatInt(result.QuizID, 10), result.ID, raw).Err(); err != nil {
		return fmt.Errorf("append result for session %s: %w", result.SessionID, err)
	}
	return nil
}

func (l *Ledger) ListResultsBySession(ctx context.Context, sessionID string) ([]domain.Result, error) {
	values, err := l.client.LRange(ctx, resultsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	results := make([]domain.Result, 0, len(values))
	for _, raw := range values {
		var result domain.Result
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, fmt.Errorf("decode result for session %s: %w", sessionID, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func sessionKey(id string) string {
	return "quiz:session:" + id
}

func resultsKey(id string) string {
	return "quiz:session:" + id + ":results"
}

func answeredKey(id string) string {
	return "quiz:session:" + id + ":answered"
}
