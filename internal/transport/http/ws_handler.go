package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"study-quiz-service/internal/app"
	"study-quiz-service/internal/domain"
)

// WSHandler runs one quiz session per websocket connection. The connection
// goroutine owns the engine: inbound messages, timer ticks and shutdown are
// all handled from a single select loop.
type WSHandler struct {
	service   *app.QuizService
	upgrader  websocket.Upgrader
	log       logrus.FieldLogger
	tickEvery time.Duration
	msgRate   rate.Limit
	msgBurst  int
}

// WSOption customizes a WSHandler.
type WSOption func(*WSHandler)

// WithTickInterval sets how often the countdown advances by one second of
// game time. Tests shorten it; production keeps one second.
func WithTickInterval(d time.Duration) WSOption {
	return func(h *WSHandler) { h.tickEvery = d }
}

func WithWSLogger(log logrus.FieldLogger) WSOption {
	return func(h *WSHandler) { h.log = log }
}

// WithMessageRate limits inbound client messages per connection.
func WithMessageRate(perSecond float64, burst int) WSOption {
	return func(h *WSHandler) {
		h.msgRate = rate.Limit(perSecond)
		h.msgBurst = burst
	}
}

func NewWSHandler(service *app.QuizService, opts ...WSOption) *WSHandler {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	h := &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:       discard,
		tickEvery: time.Second,
		msgRate:   10,
		msgBurst:  5,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Position *int `json:"position"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
	Category  string `json:"category"`
	Total     int    `json:"total"`
	Playable  int    `json:"playable"`
	TimeLimit int    `json:"timeLimit"`
}

type tickPayload struct {
	Index     int `json:"index"`
	Remaining int `json:"remaining"`
	Elapsed   int `json:"elapsed"`
}

type finishedPayload struct {
	SessionID string `json:"sessionId"`
	Score     int    `json:"score"`
	Total     int    `json:"total"`
}

type errorPayload struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// Outbound message types.
const (
	msgSession  = "session"
	msgQuestion = "question"
	msgTick     = "tick"
	msgAnswered = "answered"
	msgFinished = "finished"
	msgError    = "error"
)

// ServePlay upgrades GET /ws/play?category=&count= and drives a new session.
func (h *WSHandler) ServePlay(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "count must be a non-negative integer", http.StatusBadRequest)
			return
		}
		count = n
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	engine, err := h.service.StartSession(ctx, category, count)
	if engine == nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: msgError, Payload: errorPayload{Reason: app.ErrorReason(err), Message: err.Error()}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	snap := engine.Snapshot()
	send <- outboundMessage[any]{Type: msgSession, Payload: sessionPayload{
		SessionID: snap.SessionID,
		Category:  categoryLabel(category),
		Total:     snap.Total,
		Playable:  snap.Playable,
		TimeLimit: snap.TimeLimit,
	}}
	if err != nil {
		send <- outboundMessage[any]{Type: msgError, Payload: errorPayload{Reason: snap.Reason, Message: err.Error()}}
	} else {
		send <- outboundMessage[any]{Type: msgQuestion, Payload: snap}
		h.play(ctx, conn, engine, send)
	}

	close(send)
	<-writerDone
}

// play is the session loop. Leaving it mid-question stops the countdown
// without recording anything; the open session is left for the sweeper.
func (h *WSHandler) play(ctx context.Context, conn *websocket.Conn, engine *app.Engine, send chan<- outboundMessage[any]) {
	log := h.log.WithField("session_id", engine.SessionID())
	inbound := make(chan inboundMessage)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(inbound)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-done:
				return
			}
		}
	}()

	limiter := rate.NewLimiter(h.msgRate, h.msgBurst)
	ticker := time.NewTicker(h.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if engine.Snapshot().State != app.StatePresenting {
				continue
			}
			snap := engine.Tick(ctx)
			if snap.State == app.StateAnswered {
				send <- outboundMessage[any]{Type: msgAnswered, Payload: snap}
				continue
			}
			send <- outboundMessage[any]{Type: msgTick, Payload: tickPayload{Index: snap.Index, Remaining: snap.Remaining, Elapsed: snap.Elapsed}}

		case msg, ok := <-inbound:
			if !ok {
				log.Debug("client left")
				return
			}
			if !limiter.Allow() {
				send <- outboundMessage[any]{Type: msgError, Payload: errorPayload{Reason: "RateLimited"}}
				continue
			}
			if finished := h.handle(ctx, engine, msg, send); finished {
				return
			}
		}
	}
}

// handle applies one client message and reports whether the session ended.
func (h *WSHandler) handle(ctx context.Context, engine *app.Engine, msg inboundMessage, send chan<- outboundMessage[any]) bool {
	switch msg.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Position == nil {
			send <- outboundMessage[any]{Type: msgError, Payload: errorPayload{Reason: "InvalidPayload", Message: "invalid answer payload"}}
			return false
		}
		before := engine.Snapshot().State
		snap, err := engine.Answer(ctx, *payload.Position)
		if errors.Is(err, domain.ErrInvalidOption) {
			send <- outboundMessage[any]{Type: msgError, Payload: errorPayload{Reason: "InvalidOption", Message: err.Error()}}
			return false
		}
		if before == app.StatePresenting && snap.State == app.StateAnswered {
			send <- outboundMessage[any]{Type: msgAnswered, Payload: snap}
		}
		return false

	case "next":
		before := engine.Snapshot().State
		snap, err := engine.Next(ctx)
		switch {
		case err != nil:
			send <- outboundMessage[any]{Type: msgError, Payload: errorPayload{Reason: snap.Reason, Message: err.Error()}}
			return true
		case snap.State == app.StateFinished:
			send <- outboundMessage[any]{Type: msgFinished, Payload: finishedPayload{SessionID: snap.SessionID, Score: snap.Score, Total: snap.Total}}
			return true
		case before == app.StateAnswered:
			send <- outboundMessage[any]{Type: msgQuestion, Payload: snap}
		}
		return false

	default:
		send <- outboundMessage[any]{Type: msgError, Payload: errorPayload{Reason: "UnsupportedMessage", Message: "unsupported message type"}}
		return false
	}
}

func categoryLabel(category string) string {
	if category == "" {
		return domain.AllCategories
	}
	return category
}
