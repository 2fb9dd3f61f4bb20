package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"study-quiz-service/internal/app"
	"study-quiz-service/internal/domain"
	"study-quiz-service/internal/infra/memory"
)

var (
	_ app.SessionLedger = (*Ledger)(nil)
	_ app.ResultLog     = (*Ledger)(nil)
)

func TestLedgerStoresSessionsAndResults(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ledger := NewLedger(newClient(mr), time.Hour)
	ctx := context.Background()
	start := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"late", "early"} {
		s := domain.Session{ID: id, StartedAt: start.Add(time.Duration(1-i) * time.Hour), QuizIDs: []int64{1, 2}, TotalQuestions: 2}
		if err := ledger.CreateSession(ctx, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if !mr.Exists("quiz:session:early") {
		t.Fatalf("expected session key to be set")
	}

	sessions, err := ledger.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "early" {
		t.Fatalf("expected sessions ordered by start, got %+v", sessions)
	}

	_ = ledger.AppendResult(ctx, domain.Result{ID: "r1", SessionID: "early", QuizID: 1, IsCorrect: true, AnsweredAt: start})
	_ = ledger.AppendResult(ctx, domain.Result{ID: "r2", SessionID: "early", QuizID: 1, IsCorrect: false, AnsweredAt: start})
	_ = ledger.AppendResult(ctx, domain.Result{ID: "r3", SessionID: "early", QuizID: 2, SelectedOptionIndex: -1, AnsweredAt: start})
	results, err := ledger.ListResultsBySession(ctx, "early")
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != 2 || results[0].ID != "r1" || !results[1].TimedOut() {
		t.Fatalf("expected duplicate quiz result ignored, got %+v", results)
	}

	if err := ledger.UpdateSession(ctx, "early", domain.SessionUpdate{EndedAt: start.Add(time.Minute), Score: 1}); err != nil {
		t.Fatalf("update: %v", err)
	}
	session, ok, _ := ledger.GetSession(ctx, "early")
	if !ok || !session.Completed() || *session.Score != 1 {
		t.Fatalf("expected completed session, got %+v", session)
	}
	if ttl := mr.TTL("quiz:session:early"); ttl != time.Hour {
		t.Fatalf("expected finished session ttl, got %v", ttl)
	}
	if err := ledger.UpdateSession(ctx, "missing", domain.SessionUpdate{}); err != domain.ErrSessionNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLedgerDeleteAndExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ledger := NewLedger(newClient(mr), time.Minute)
	ctx := context.Background()
	now := time.Now()
	_ = ledger.CreateSession(ctx, domain.Session{ID: "a", StartedAt: now})
	_ = ledger.CreateSession(ctx, domain.Session{ID: "b", StartedAt: now.Add(time.Second)})
	_ = ledger.AppendResult(ctx, domain.Result{ID: "r", SessionID: "a", QuizID: 1})

	if err := ledger.DeleteSession(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("quiz:session:a") || mr.Exists("quiz:session:a:results") {
		t.Fatalf("expected session keys removed")
	}

	_ = ledger.UpdateSession(ctx, "b", domain.SessionUpdate{EndedAt: now, Score: 0})
	mr.FastForward(2 * time.Minute)
	sessions, err := ledger.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected expired session to be pruned, got %+v", sessions)
	}
	if members, _ := mr.ZMembers(sessionIndexKey); len(members) != 0 {
		t.Fatalf("expected index pruned, got %v", members)
	}
}

func TestLedgerAppendFailureLeavesQuizUnanswered(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ledger := NewLedger(newClient(mr), 0)
	ctx := context.Background()
	result := domain.Result{ID: "r1", SessionID: "s1", QuizID: 4, IsCorrect: true}

	// a string under the list key makes RPUSH fail with WRONGTYPE
	if err := mr.Set(resultsKey("s1"), "broken"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := ledger.AppendResult(ctx, result); err == nil {
		t.Fatalf("expected append to fail")
	}
	if mr.Exists(answeredKey("s1")) {
		t.Fatalf("failed append must not mark the quiz answered")
	}

	mr.Del(resultsKey("s1"))
	if err := ledger.AppendResult(ctx, result); err != nil {
		t.Fatalf("retry append: %v", err)
	}
	results, _ := ledger.ListResultsBySession(ctx, "s1")
	if len(results) != 1 || results[0].ID != "r1" {
		t.Fatalf("expected retried result stored, got %+v", results)
	}
}

func TestEngineAgainstRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	quizzes := NewQuizCache(client, memory.NewQuizStore(sampleQuiz()), time.Minute)
	ledger := NewLedger(client, 0)
	service := app.NewQuizService(quizzes, ledger, ledger, app.PlayConfig{}, app.WithRandom(app.NewRandom(5)))

	ctx := context.Background()
	engine, err := service.StartSession(ctx, "math", 1)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := engine.Snapshot()
	for pos, opt := range snap.Question.Options {
		if opt.OriginalIndex == 1 {
			engine.Answer(ctx, pos)
		}
	}
	if snap, err = engine.Next(ctx); err != nil || snap.State != app.StateFinished {
		t.Fatalf("expected finished, got %s err=%v", snap.State, err)
	}
	session, _, _ := ledger.GetSession(ctx, engine.SessionID())
	if *session.Score != 1 {
		t.Fatalf("expected score 1, got %d", *session.Score)
	}
}
