package app

import (
	"context"
	"fmt"
	"math"
	"sort"

	"study-quiz-service/internal/domain"
)

// UnknownCategory groups results whose quiz no longer exists.
const UnknownCategory = "unknown"

const dailyWindow = 7

// Percentage is round(correct / total * 100), with an empty total defined as 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

func accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// StatsService is the read path over the session ledger and result log.
// Sessions without an end time are excluded from every aggregate.
type StatsService struct {
	quizzes QuizStore
	ledger  SessionLedger
	results ResultLog
	opts    options
}

func NewStatsService(quizzes QuizStore, ledger SessionLedger, results ResultLog, opts ...Option) *StatsService {
	return &StatsService{
		quizzes: quizzes,
		ledger:  ledger,
		results: results,
		opts:    buildOptions(opts),
	}
}

// SessionSummary returns the results view for one session.
func (s *StatsService) SessionSummary(ctx context.Context, sessionID string) (domain.SessionSummary, error) {
	session, ok, err := s.ledger.GetSession(ctx, sessionID)
	if err != nil {
		return domain.SessionSummary{}, fmt.Errorf("get session: %w", err)
	}
	if !ok {
		return domain.SessionSummary{}, domain.ErrSessionNotFound
	}
	results, err := s.results.ListResultsBySession(ctx, sessionID)
	if err != nil {
		return domain.SessionSummary{}, fmt.Errorf("list results: %w", err)
	}

	lookup := newQuizLookup(s.quizzes)
	answers := make([]domain.AnsweredQuiz, 0, len(results))
	score := 0
	for _, r := range results {
		if r.IsCorrect {
			score++
		}
		quiz, found, err := lookup.get(ctx, r.QuizID)
		if err != nil {
			return domain.SessionSummary{}, err
		}
		answer := domain.AnsweredQuiz{Result: r, QuizMissing: !found}
		if found {
			q := quiz
			answer.Quiz = &q
		}
		answers = append(answers, answer)
	}

	return domain.SessionSummary{
		Session:         session,
		Answers:         answers,
		Score:           score,
		TotalQuestions:  session.TotalQuestions,
		Percentage:      Percentage(score, session.TotalQuestions),
		DurationSeconds: durationSeconds(session),
	}, nil
}

// History lists sessions newest first, optionally filtered by the session's
// category label. Incomplete sessions are listed but flagged.
func (s *StatsService) History(ctx context.Context, category string) ([]domain.HistoryEntry, error) {
	sessions, err := s.ledger.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	category = normalizeCategory(category)

	entries := make([]domain.HistoryEntry, 0, len(sessions))
	for _, session := range sessions {
		if category != domain.AllCategories && session.Category != category {
			continue
		}
		entry := domain.HistoryEntry{
			Session:        session,
			Completed:      session.Completed(),
			TotalQuestions: session.TotalQuestions,
		}
		if entry.Completed {
			entry.Score = *session.Score
			entry.Percentage = Percentage(entry.Score, session.TotalQuestions)
			entry.DurationSeconds = durationSeconds(session)
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Session.StartedAt.After(entries[j].Session.StartedAt)
	})
	return entries, nil
}

// Overview aggregates accuracy across completed sessions, by category of the
// answered quiz and by day.
func (s *StatsService) Overview(ctx context.Context) (domain.Overview, error) {
	sessions, err := s.ledger.ListSessions(ctx)
	if err != nil {
		return domain.Overview{}, fmt.Errorf("list sessions: %w", err)
	}

	overview := domain.Overview{GeneratedAt: s.opts.now()}
	lookup := newQuizLookup(s.quizzes)
	byCategory := make(map[string]*domain.CategoryStat)
	byDay := make(map[string]*domain.DailyStat)

	for _, session := range sessions {
		if session.EndedAt == nil {
			continue
		}
		overview.CompletedSessions++

		results, err := s.results.ListResultsBySession(ctx, session.ID)
		if err != nil {
			return domain.Overview{}, fmt.Errorf("list results: %w", err)
		}
		for _, r := range results {
			overview.TotalAnswered++
			if r.IsCorrect {
				overview.Correct++
			}

			category := UnknownCategory
			quiz, found, err := lookup.get(ctx, r.QuizID)
			if err != nil {
				return domain.Overview{}, err
			}
			if found {
				category = quiz.CategoryOrDefault()
			}
			stat, ok := byCategory[category]
			if !ok {
				stat = &domain.CategoryStat{Category: category}
				byCategory[category] = stat
			}
			stat.Answered++
			if r.IsCorrect {
				stat.Correct++
			}
		}

		date := session.StartedAt.UTC().Format("2006-01-02")
		day, ok := byDay[date]
		if !ok {
			day = &domain.DailyStat{Date: date}
			byDay[date] = day
		}
		day.Sessions++
		if session.Score != nil {
			day.Score += *session.Score
		}
		day.Total += session.TotalQuestions
	}

	overview.Incorrect = overview.TotalAnswered - overview.Correct
	overview.Accuracy = accuracy(overview.Correct, overview.TotalAnswered)
	overview.Percentage = Percentage(overview.Correct, overview.TotalAnswered)

	overview.Categories = make([]domain.CategoryStat, 0, len(byCategory))
	for _, stat := range byCategory {
		stat.Accuracy = accuracy(stat.Correct, stat.Answered)
		stat.Percentage = Percentage(stat.Correct, stat.Answered)
		overview.Categories = append(overview.Categories, *stat)
	}
	sort.Slice(overview.Categories, func(i, j int) bool {
		return overview.Categories[i].Category < overview.Categories[j].Category
	})

	overview.Daily = make([]domain.DailyStat, 0, len(byDay))
	for _, day := range byDay {
		day.Accuracy = accuracy(day.Score, day.Total)
		overview.Daily = append(overview.Daily, *day)
	}
	sort.Slice(overview.Daily, func(i, j int) bool {
		return overview.Daily[i].Date < overview.Daily[j].Date
	})
	if len(overview.Daily) > dailyWindow {
		overview.Daily = overview.Daily[len(overview.Daily)-dailyWindow:]
	}
	return overview, nil
}

func durationSeconds(session domain.Session) int64 {
	if session.EndedAt == nil {
		return 0
	}
	return int64(math.Round(session.EndedAt.Sub(session.StartedAt).Seconds()))
}

// quizLookup memoizes quiz reads for one aggregation pass.
type quizLookup struct {
	store QuizStore
	cache map[int64]*domain.Quiz
}

func newQuizLookup(store QuizStore) *quizLookup {
	return &quizLookup{store: store, cache: make(map[int64]*domain.Quiz)}
}

func (l *quizLookup) get(ctx context.Context, id int64) (domain.Quiz, bool, error) {
	if q, ok := l.cache[id]; ok {
		if q == nil {
			return domain.Quiz{}, false, nil
		}
		return *q, true, nil
	}
	quiz, found, err := l.store.GetByID(ctx, id)
	if err != nil {
		return domain.Quiz{}, false, fmt.Errorf("get quiz %d: %w", id, err)
	}
	if !found {
		l.cache[id] = nil
		return domain.Quiz{}, false, nil
	}
	l.cache[id] = &quiz
	return quiz, true, nil
}
