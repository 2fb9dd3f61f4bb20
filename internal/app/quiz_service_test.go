package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"study-quiz-service/internal/app"
	"study-quiz-service/internal/domain"
	"study-quiz-service/internal/infra/memory"
)

func TestStartSessionSelectsFromCategory(t *testing.T) {
	ctx := context.Background()
	history := makeQuizzes("history", 1, 5)
	other := makeQuizzes("science", 100, 3)
	f := newFixture(t, app.PlayConfig{}, append(history, other...))

	session, err := f.service.CreateSession(ctx, "history", 3)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.TotalQuestions != 3 || len(session.QuizIDs) != 3 {
		t.Fatalf("expected 3 questions, got total=%d ids=%v", session.TotalQuestions, session.QuizIDs)
	}
	if session.Category != "history" {
		t.Fatalf("expected category history, got %q", session.Category)
	}
	seen := make(map[int64]bool)
	for _, id := range session.QuizIDs {
		if id < 1 || id > 5 {
			t.Fatalf("quiz %d is not from the history pool", id)
		}
		if seen[id] {
			t.Fatalf("duplicate quiz id %d", id)
		}
		seen[id] = true
	}

	stored, ok, _ := f.ledger.GetSession(ctx, session.ID)
	if !ok || !stored.StartedAt.Equal(f.clock.Now()) || stored.EndedAt != nil || stored.Score != nil {
		t.Fatalf("expected persisted open session, got %+v", stored)
	}
}

func TestStartSessionAllCategoriesLeavesCategoryEmpty(t *testing.T) {
	f := newFixture(t, app.PlayConfig{}, makeQuizzes("history", 1, 2))
	session, err := f.service.CreateSession(context.Background(), "all", 2)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Category != "" {
		t.Fatalf("expected no category for all, got %q", session.Category)
	}
}

func TestSelectionClampPolicy(t *testing.T) {
	f := newFixture(t, app.PlayConfig{Policy: app.PolicyClamp}, makeQuizzes("history", 1, 2))
	ids, err := f.service.SelectQuizzes(context.Background(), "history", 5)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected clamp to 2, got %d", len(ids))
	}
}

func TestSelectionStrictPolicy(t *testing.T) {
	f := newFixture(t, app.PlayConfig{Policy: app.PolicyStrict}, makeQuizzes("history", 1, 2))
	_, err := f.service.SelectQuizzes(context.Background(), "history", 5)
	var insufficient *domain.InsufficientQuizzesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientQuizzesError, got %v", err)
	}
	if insufficient.Available != 2 || insufficient.Requested != 5 {
		t.Fatalf("unexpected counts %+v", insufficient)
	}
}

func TestSelectionEmptyPool(t *testing.T) {
	f := newFixture(t, app.PlayConfig{}, makeQuizzes("history", 1, 2))
	if _, err := f.service.CreateSession(context.Background(), "art", 3); !errors.Is(err, domain.ErrNoQuizzesAvailable) {
		t.Fatalf("expected ErrNoQuizzesAvailable, got %v", err)
	}
	sessions, _ := f.ledger.ListSessions(context.Background())
	if len(sessions) != 0 {
		t.Fatalf("expected no session row, got %d", len(sessions))
	}
}

func TestSelectionDefaultCount(t *testing.T) {
	f := newFixture(t, app.PlayConfig{DefaultCount: 4}, makeQuizzes("history", 1, 6))
	ids, err := f.service.SelectQuizzes(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("expected default count 4, got %d", len(ids))
	}
}

func TestCreateSessionPersistenceFailure(t *testing.T) {
	quizzes := memory.NewQuizStore(parisQuiz())
	ledger := &failingCreates{Ledger: memory.NewLedger()}
	service := app.NewQuizService(quizzes, ledger, ledger, app.PlayConfig{})

	_, err := service.StartSession(context.Background(), "all", 1)
	var perr *domain.PersistenceError
	if !errors.As(err, &perr) || perr.Op != "create session" {
		t.Fatalf("expected create session PersistenceError, got %v", err)
	}
}

func TestCategories(t *testing.T) {
	quizzes := append(makeQuizzes("history", 1, 2), makeQuizzes("", 10, 1)...)
	quizzes = append(quizzes, makeQuizzes("art", 20, 1)...)
	f := newFixture(t, app.PlayConfig{}, quizzes)
	categories, err := f.service.Categories(context.Background())
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	want := []string{"art", domain.DefaultCategory, "history"}
	if fmt.Sprint(categories) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, categories)
	}
}

func TestParseSelectionPolicy(t *testing.T) {
	if p, err := app.ParseSelectionPolicy(""); err != nil || p != app.PolicyClamp {
		t.Fatalf("expected clamp default, got %q %v", p, err)
	}
	if p, err := app.ParseSelectionPolicy("Strict"); err != nil || p != app.PolicyStrict {
		t.Fatalf("expected strict, got %q %v", p, err)
	}
	if _, err := app.ParseSelectionPolicy("random"); err == nil {
		t.Fatalf("expected unknown policy error")
	}
}
