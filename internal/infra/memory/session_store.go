package memory

import (
	"context"
	"sort"
	"sync"

	"study-quiz-service/internal/domain"
)

// Ledger is an in-memory implementation of app.SessionLedger and app.ResultLog.
type Ledger struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	results  map[string][]domain.Result
}

func NewLedger() *Ledger {
	return &Ledger{
		sessions: make(map[string]domain.Session),
		results:  make(map[string][]domain.Result),
	}
}

func (l *Ledger) CreateSession(_ context.Context, session domain.Session) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	session.QuizIDs = append([]int64(nil), session.QuizIDs...)
	l.sessions[session.ID] = session
	return nil
}

func (l *Ledger) UpdateSession(_ context.Context, id string, update domain.SessionUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	session, ok := l.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	endedAt := update.EndedAt
	score := update.Score
	session.EndedAt = &endedAt
	session.Score = &score
	l.sessions[id] = session
	return nil
}

func (l *Ledger) GetSession(_ context.Context, id string) (domain.Session, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	session, ok := l.sessions[id]
	return session, ok, nil
}

func (l *Ledger) ListSessions(_ context.Context) ([]domain.Session, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Session, 0, len(l.sessions))
	for _, s := range l.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (l *Ledger) DeleteSession(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sessions, id)
	delete(l.results, id)
	return nil
}

// AppendResult keeps the first result per (session, quiz) and ignores repeats.
func (l *Ledger) AppendResult(_ context.Context, result domain.Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.results[result.SessionID] {
		if existing.QuizID == result.QuizID {
			return nil
		}
	}
	l.results[result.SessionID] = append(l.results[result.SessionID], result)
	return nil
}

func (l *Ledger) ListResultsBySession(_ context.Context, sessionID string) ([]domain.Result, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Result, len(l.results[sessionID]))
	copy(out, l.results[sessionID])
	return out, nil
}
