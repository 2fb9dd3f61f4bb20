package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"study-quiz-service/internal/domain"
)

// SelectionPolicy decides what happens when the pool is smaller than the
// requested count.
type SelectionPolicy string

const (
	// PolicyClamp plays every available quiz when fewer than requested exist.
	PolicyClamp SelectionPolicy = "clamp"
	// PolicyStrict fails with *domain.InsufficientQuizzesError instead.
	PolicyStrict SelectionPolicy = "strict"
)

// ParseSelectionPolicy maps a config value to a policy; empty means clamp.
func ParseSelectionPolicy(raw string) (SelectionPolicy, error) {
	switch SelectionPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyClamp:
		return PolicyClamp, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown selection policy %q", raw)
	}
}

// PlayConfig holds the per-session play settings.
type PlayConfig struct {
	TimeLimit    time.Duration
	DefaultCount int
	Policy       SelectionPolicy
}

// DefaultQuestionCount is used when a start request does not name a count.
const DefaultQuestionCount = 10

// QuizService contains the play use cases: quiz selection, session creation
// and engine construction.
type QuizService struct {
	quizzes QuizStore
	ledger  SessionLedger
	results ResultLog
	cfg     PlayConfig
	opts    options
}

func NewQuizService(quizzes QuizStore, ledger SessionLedger, results ResultLog, cfg PlayConfig, opts ...Option) *QuizService {
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = DefaultTimeLimit
	}
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = DefaultQuestionCount
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyClamp
	}
	return &QuizService{
		quizzes: quizzes,
		ledger:  ledger,
		results: results,
		cfg:     cfg,
		opts:    buildOptions(opts),
	}
}

// SelectQuizzes draws up to count quiz ids from the category pool in
// uniformly shuffled order. The returned order is the question order.
func (s *QuizService) SelectQuizzes(ctx context.Context, category string, count int) ([]int64, error) {
	if count <= 0 {
		count = s.cfg.DefaultCount
	}
	pool, err := s.quizzes.ListByCategory(ctx, normalizeCategory(category))
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	if len(pool) == 0 {
		return nil, domain.ErrNoQuizzesAvailable
	}
	if len(pool) < count {
		if s.cfg.Policy == PolicyStrict {
			return nil, &domain.InsufficientQuizzesError{Available: len(pool), Requested: count}
		}
		count = len(pool)
	}

	ids := make([]int64, len(pool))
	for i, q := range pool {
		ids[i] = q.ID
	}
	fisherYates(len(ids), s.opts.rnd, func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids[:count], nil
}

// CreateSession selects quizzes and persists a new session row.
func (s *QuizService) CreateSession(ctx context.Context, category string, count int) (domain.Session, error) {
	ids, err := s.SelectQuizzes(ctx, category, count)
	if err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{
		ID:             s.opts.newID(),
		StartedAt:      s.opts.now(),
		QuizIDs:        ids,
		TotalQuestions: len(ids),
	}
	if c := normalizeCategory(category); c != domain.AllCategories {
		session.Category = c
	}
	if err := s.ledger.CreateSession(ctx, session); err != nil {
		s.opts.recorder.PersistenceFailed("create session")
		return domain.Session{}, &domain.PersistenceError{Op: "create session", Err: err}
	}

	s.opts.recorder.SessionStarted()
	s.opts.log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"category":   normalizeCategory(category),
		"total":      session.TotalQuestions,
	}).Info("session created")
	return session, nil
}

// StartSession creates a session and returns a loaded engine presenting the
// first question.
func (s *QuizService) StartSession(ctx context.Context, category string, count int) (*Engine, error) {
	session, err := s.CreateSession(ctx, category, count)
	if err != nil {
		return nil, err
	}
	engine := s.NewEngine(session)
	if _, err := engine.Load(ctx); err != nil {
		return engine, err
	}
	return engine, nil
}

// NewEngine builds an engine for an existing session with the service settings.
func (s *QuizService) NewEngine(session domain.Session) *Engine {
	return NewEngine(session, s.quizzes, s.ledger, s.results, s.cfg.TimeLimit, s.opts.apply()...)
}

// Categories lists the distinct quiz categories, sorted.
func (s *QuizService) Categories(ctx context.Context) ([]string, error) {
	quizzes, err := s.quizzes.ListByCategory(ctx, domain.AllCategories)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, q := range quizzes {
		c := q.CategoryOrDefault()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories, nil
}

// Quizzes lists quizzes in a category ("all" for every quiz).
func (s *QuizService) Quizzes(ctx context.Context, category string) ([]domain.Quiz, error) {
	return s.quizzes.ListByCategory(ctx, normalizeCategory(category))
}

func normalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return domain.AllCategories
	}
	return category
}
