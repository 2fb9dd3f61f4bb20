package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"study-quiz-service/internal/app"
	"study-quiz-service/internal/domain"
	"study-quiz-service/internal/infra/memory"
)

type testEnv struct {
	ledger  *memory.Ledger
	quizzes *memory.QuizStore
	server  *httptest.Server
}

func newTestEnv(t *testing.T, timeLimit, tick time.Duration) *testEnv {
	t.Helper()
	ledger := memory.NewLedger()
	quizzes := memory.NewQuizStore(sampleQuiz())
	service := app.NewQuizService(quizzes, ledger, ledger, app.PlayConfig{TimeLimit: timeLimit}, app.WithRandom(app.NewRandom(11)))
	stats := app.NewStatsService(quizzes, ledger, ledger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/play", NewWSHandler(service, WithTickInterval(tick)).ServePlay)
	NewAPIHandler(service, stats, app.NewCatalog(quizzes, nil), nil).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &testEnv{ledger: ledger, quizzes: quizzes, server: server}
}

func (e *testEnv) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/play?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebSocketAnswerFlow(t *testing.T) {
	env := newTestEnv(t, 30*time.Second, time.Hour)
	conn := env.dial(t, "category=math&count=1")

	_, session := readNext(conn, t, "session")
	sessionID, _ := session["sessionId"].(string)
	if sessionID == "" || session["total"].(float64) != 1 {
		t.Fatalf("unexpected session payload %v", session)
	}
	_, question := readNext(conn, t, "question")
	options := question["question"].(map[string]any)["options"].([]any)
	correct := -1
	for pos, opt := range options {
		if opt.(map[string]any)["text"] == "4" {
			correct = pos
		}
	}
	if correct < 0 {
		t.Fatalf("correct option not presented: %v", options)
	}

	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"position": correct}})
	_, answered := readNext(conn, t, "answered")
	reveal := answered["reveal"].(map[string]any)
	if reveal["isCorrect"] != true || answered["score"].(float64) != 1 {
		t.Fatalf("expected correct reveal, got %v", answered)
	}

	// A repeated answer is ignored; next finishes the session.
	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"position": correct}})
	send(t, conn, map[string]any{"type": "next"})
	_, finished := readNext(conn, t, "finished")
	if finished["sessionId"] != sessionID || finished["score"].(float64) != 1 {
		t.Fatalf("unexpected finished payload %v", finished)
	}

	stored, ok, _ := env.ledger.GetSession(context.Background(), sessionID)
	if !ok || !stored.Completed() || *stored.Score != 1 {
		t.Fatalf("expected finished session row, got %+v", stored)
	}
	if results, _ := env.ledger.ListResultsBySession(context.Background(), sessionID); len(results) != 1 {
		t.Fatalf("expected exactly one result, got %d", len(results))
	}
}

func TestWebSocketTimeout(t *testing.T) {
	env := newTestEnv(t, 2*time.Second, 10*time.Millisecond)
	conn := env.dial(t, "count=1")

	readNext(conn, t, "session")
	readNext(conn, t, "question")
	_, tick := readNext(conn, t, "tick")
	if tick["remaining"].(float64) != 1 {
		t.Fatalf("expected 1s remaining after first tick, got %v", tick)
	}
	_, answered := readNext(conn, t, "answered")
	reveal := answered["reveal"].(map[string]any)
	if reveal["timedOut"] != true || reveal["selectedPosition"].(float64) != -1 {
		t.Fatalf("expected timeout reveal, got %v", reveal)
	}
}

func TestWebSocketInvalidPosition(t *testing.T) {
	env := newTestEnv(t, 30*time.Second, time.Hour)
	conn := env.dial(t, "")

	readNext(conn, t, "session")
	readNext(conn, t, "question")
	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"position": 9}})
	_, payload := readNext(conn, t, "error")
	if payload["reason"] != "InvalidOption" {
		t.Fatalf("expected InvalidOption, got %v", payload)
	}
	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{}})
	if _, payload := readNext(conn, t, "error"); payload["reason"] != "InvalidPayload" {
		t.Fatalf("expected InvalidPayload, got %v", payload)
	}
}

func TestWebSocketEmptyCategory(t *testing.T) {
	env := newTestEnv(t, 30*time.Second, time.Hour)
	conn := env.dial(t, "category=art")

	_, payload := readNext(conn, t, "error")
	if payload["reason"] != "NoQuizzesAvailable" {
		t.Fatalf("expected NoQuizzesAvailable, got %v", payload)
	}
	sessions, _ := env.ledger.ListSessions(context.Background())
	if len(sessions) != 0 {
		t.Fatalf("expected no session to be created")
	}
}

func TestWebSocketRejectsBadCount(t *testing.T) {
	env := newTestEnv(t, 30*time.Second, time.Hour)
	resp, err := http.Get(env.server.URL + "/ws/play?count=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	payload := map[string]any{}
	_ = json.Unmarshal(msg.Payload, &payload)
	return msg.Type, payload
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:                 1,
		Category:           "math",
		Question:           "What is 2 + 2?",
		Options:            []string{"3", "4", "5", "22"},
		CorrectOptionIndex: 1,
		Explanation:        "Basic arithmetic.",
	}
}
