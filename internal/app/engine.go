package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"study-quiz-service/internal/domain"
)

// State is a phase of the session state machine.
type State int

const (
	StateLoading State = iota
	StatePresenting
	StateAnswered
	StateFinished
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StatePresenting:
		return "presenting"
	case StateAnswered:
		return "answered"
	case StateFinished:
		return "finished"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether the state accepts no further transitions.
func (s State) IsTerminal() bool {
	return s == StateFinished || s == StateErrored
}

// Errored reasons surfaced to callers.
const (
	ReasonNoQuizzesFound = "NoQuizzesFound"
	ReasonQuizStore      = "QuizStoreError"
	ReasonPersistence    = "PersistenceError"
)

// Result outcomes reported to the Recorder.
const (
	OutcomeCorrect   = "correct"
	OutcomeIncorrect = "incorrect"
	OutcomeTimeout   = "timeout"
)

// DefaultTimeLimit is the per-question limit when none is configured.
const DefaultTimeLimit = 30 * time.Second

// QuestionView is the current question with its shuffled options.
type QuestionView struct {
	QuizID   int64                   `json:"quizId"`
	Category string                  `json:"category"`
	Text     string                  `json:"text"`
	Options  []domain.ShuffledOption `json:"options"`
}

// Reveal is exposed once the current question has been answered or timed out.
type Reveal struct {
	SelectedPosition int    `json:"selectedPosition"`
	CorrectPosition  int    `json:"correctPosition"`
	IsCorrect        bool   `json:"isCorrect"`
	TimedOut         bool   `json:"timedOut"`
	Explanation      string `json:"explanation,omitempty"`
}

// Snapshot is a read-only copy of the engine state. Total is the session's
// selected question count and the score denominator; Playable excludes quizzes
// deleted before load, which count as missed.
type Snapshot struct {
	SessionID string        `json:"sessionId"`
	State     State         `json:"state"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Playable  int           `json:"playable"`
	Question  *QuestionView `json:"question,omitempty"`
	TimeLimit int           `json:"timeLimit"`
	Remaining int           `json:"remaining"`
	Elapsed   int           `json:"elapsed"`
	Score     int           `json:"score"`
	Reveal    *Reveal       `json:"reveal,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

// Engine drives a single play-through. It owns its countdown, question index
// and running score; persisted state is reached only through the session id,
// so engines for different sessions never interfere.
type Engine struct {
	mu sync.Mutex

	session   domain.Session
	quizzes   QuizStore
	ledger    SessionLedger
	results   ResultLog
	timeLimit int
	opts      options
	log       logrus.FieldLogger

	state       State
	reason      string
	play        []domain.Quiz
	index       int
	shuffled    []domain.ShuffledOption
	answered    bool
	selected    int
	recorded    []domain.Result
	score       int
	timer       *Countdown
	expired     bool
	presentedAt time.Time
}

// NewEngine builds an engine in the Loading state for an already persisted session.
func NewEngine(session domain.Session, quizzes QuizStore, ledger SessionLedger, results ResultLog, timeLimit time.Duration, opts ...Option) *Engine {
	o := buildOptions(opts)
	seconds := int(timeLimit / time.Second)
	if seconds <= 0 {
		seconds = int(DefaultTimeLimit / time.Second)
	}
	e := &Engine{
		session:   session,
		quizzes:   quizzes,
		ledger:    ledger,
		results:   results,
		timeLimit: seconds,
		opts:      o,
		log:       o.log.WithField("session_id", session.ID),
		state:     StateLoading,
		selected:  domain.NoAnswer,
	}
	e.timer = NewCountdown(e.markExpired)
	return e
}

// SessionID returns the id of the session this engine drives.
func (e *Engine) SessionID() string {
	return e.session.ID
}

// Load resolves the session's quiz ids and presents the first question.
// Missing quizzes are dropped; if none remain the engine is Errored.
func (e *Engine) Load(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLoading {
		return e.snapshotLocked(), nil
	}

	play := make([]domain.Quiz, 0, len(e.session.QuizIDs))
	for _, id := range e.session.QuizIDs {
		quiz, ok, err := e.quizzes.GetByID(ctx, id)
		if err != nil {
			e.failLocked(ReasonQuizStore)
			return e.snapshotLocked(), fmt.Errorf("load quiz %d: %w", id, err)
		}
		if !ok {
			e.log.WithField("quiz_id", id).Warn("quiz referenced by session no longer exists")
			continue
		}
		play = append(play, quiz)
	}
	if dropped := len(e.session.QuizIDs) - len(play); dropped > 0 && len(play) > 0 {
		e.log.WithField("dropped", dropped).Info("deleted quizzes count as missed")
	}
	if len(play) == 0 {
		e.failLocked(ReasonNoQuizzesFound)
		return e.snapshotLocked(), domain.ErrNoQuizzesFound
	}

	e.play = play
	e.presentLocked(0)
	return e.snapshotLocked(), nil
}

// Answer commits the option at the given display position for the current
// question. Answering twice, or outside Presenting, is a silent no-op.
func (e *Engine) Answer(ctx context.Context, position int) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePresenting || e.answered {
		return e.snapshotLocked(), nil
	}
	if position < 0 || position >= len(e.shuffled) {
		return e.snapshotLocked(), domain.ErrInvalidOption
	}

	e.timer.Cancel()
	quiz := e.play[e.index]
	original := e.shuffled[position].OriginalIndex
	e.commitLocked(ctx, domain.Result{
		ID:                  e.opts.newID(),
		SessionID:           e.session.ID,
		QuizID:              quiz.ID,
		SelectedOptionIndex: original,
		IsCorrect:           original == quiz.CorrectOptionIndex,
		AnsweredAt:          e.opts.now(),
	}, position)
	return e.snapshotLocked(), nil
}

// Tick advances the countdown by one second. When it expires the question is
// recorded as timed out.
func (e *Engine) Tick(ctx context.Context) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePresenting {
		return e.snapshotLocked()
	}
	e.timer.Tick()
	if e.expired {
		e.expired = false
		e.timeoutLocked(ctx)
	}
	return e.snapshotLocked()
}

// Timeout records the current question as unanswered. It loses to an answer
// that was already committed.
func (e *Engine) Timeout(ctx context.Context) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timer.Cancel()
	e.timeoutLocked(ctx)
	return e.snapshotLocked()
}

// Next leaves the reveal state: either presents the following question or
// finishes the session.
func (e *Engine) Next(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateAnswered {
		return e.snapshotLocked(), nil
	}
	if e.index+1 < len(e.play) {
		e.presentLocked(e.index + 1)
		return e.snapshotLocked(), nil
	}
	if err := e.finishLocked(ctx); err != nil {
		return e.snapshotLocked(), err
	}
	return e.snapshotLocked(), nil
}

// Snapshot returns the current state without changing it.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Results returns the results this engine has committed, in order.
func (e *Engine) Results() []domain.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Result, len(e.recorded))
	copy(out, e.recorded)
	return out
}

func (e *Engine) totalQuestions() int {
	if e.session.TotalQuestions > 0 {
		return e.session.TotalQuestions
	}
	return len(e.session.QuizIDs)
}

func (e *Engine) markExpired() {
	e.expired = true
}

func (e *Engine) presentLocked(i int) {
	e.index = i
	e.shuffled = ShuffleOptions(e.play[i], e.opts.rnd)
	e.answered = false
	e.selected = domain.NoAnswer
	e.expired = false
	e.presentedAt = e.opts.now()
	e.state = StatePresenting
	e.timer.Start(e.timeLimit)
}

func (e *Engine) timeoutLocked(ctx context.Context) {
	if e.state != StatePresenting || e.answered {
		return
	}
	quiz := e.play[e.index]
	e.commitLocked(ctx, domain.Result{
		ID:                  e.opts.newID(),
		SessionID:           e.session.ID,
		QuizID:              quiz.ID,
		SelectedOptionIndex: domain.NoAnswer,
		IsCorrect:           false,
		AnsweredAt:          e.opts.now(),
	}, domain.NoAnswer)
}

// commitLocked appends the result and moves to Answered. A failed write is
// reported and otherwise ignored: the in-memory flow always advances.
func (e *Engine) commitLocked(ctx context.Context, result domain.Result, position int) {
	if err := e.results.AppendResult(ctx, result); err != nil {
		e.persistenceFailedLocked("append result", err, logrus.Fields{"quiz_id": result.QuizID, "index": e.index})
	}

	e.answered = true
	e.selected = position
	e.recorded = append(e.recorded, result)
	if result.IsCorrect {
		e.score++
	}
	e.state = StateAnswered

	outcome := OutcomeIncorrect
	switch {
	case result.TimedOut():
		outcome = OutcomeTimeout
	case result.IsCorrect:
		outcome = OutcomeCorrect
	}
	e.opts.recorder.ResultRecorded(outcome, result.AnsweredAt.Sub(e.presentedAt))
	e.log.WithFields(logrus.Fields{
		"quiz_id": result.QuizID,
		"index":   e.index,
		"outcome": outcome,
	}).Debug("result recorded")
}

func (e *Engine) finishLocked(ctx context.Context) error {
	score := 0
	for _, r := range e.recorded {
		if r.IsCorrect {
			score++
		}
	}
	endedAt := e.opts.now()
	if err := e.ledger.UpdateSession(ctx, e.session.ID, domain.SessionUpdate{EndedAt: endedAt, Score: score}); err != nil {
		perr := e.persistenceFailedLocked("finish session", err, nil)
		e.failLocked(ReasonPersistence + ": finish session")
		return perr
	}

	e.session.EndedAt = &endedAt
	e.session.Score = &score
	e.state = StateFinished
	e.opts.recorder.SessionFinished()
	e.log.WithFields(logrus.Fields{"score": score, "total": e.totalQuestions(), "played": len(e.play)}).Info("session finished")
	return nil
}

func (e *Engine) persistenceFailedLocked(op string, err error, fields logrus.Fields) error {
	perr := &domain.PersistenceError{Op: op, Err: err}
	e.log.WithFields(fields).WithError(err).Warn("persistence failed: " + op)
	e.opts.recorder.PersistenceFailed(op)
	if e.opts.persistHook != nil {
		e.opts.persistHook(perr)
	}
	return perr
}

func (e *Engine) failLocked(reason string) {
	e.timer.Cancel()
	e.state = StateErrored
	e.reason = reason
	e.opts.recorder.SessionErrored(reason)
	e.log.WithField("reason", reason).Warn("session errored")
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: e.session.ID,
		State:     e.state,
		Index:     e.index,
		Total:     e.totalQuestions(),
		Playable:  len(e.play),
		TimeLimit: e.timeLimit,
		Remaining: e.timer.Remaining(),
		Score:     e.score,
		Reason:    e.reason,
	}
	if e.state != StatePresenting && e.state != StateAnswered {
		return snap
	}

	quiz := e.play[e.index]
	options := make([]domain.ShuffledOption, len(e.shuffled))
	copy(options, e.shuffled)
	snap.Question = &QuestionView{
		QuizID:   quiz.ID,
		Category: quiz.CategoryOrDefault(),
		Text:     quiz.Question,
		Options:  options,
	}
	snap.Elapsed = e.timeLimit - snap.Remaining
	if e.answered {
		correct := domain.NoAnswer
		for pos, opt := range e.shuffled {
			if opt.OriginalIndex == quiz.CorrectOptionIndex {
				correct = pos
			}
		}
		last := e.recorded[len(e.recorded)-1]
		snap.Reveal = &Reveal{
			SelectedPosition: e.selected,
			CorrectPosition:  correct,
			IsCorrect:        last.IsCorrect,
			TimedOut:         last.TimedOut(),
			Explanation:      quiz.Explanation,
		}
	}
	return snap
}

// ErrorReason maps a start or load error to the reason string shown to users.
func ErrorReason(err error) string {
	var insufficient *domain.InsufficientQuizzesError
	switch {
	case errors.Is(err, domain.ErrNoQuizzesAvailable):
		return "NoQuizzesAvailable"
	case errors.As(err, &insufficient):
		return "InsufficientQuizzes"
	case errors.Is(err, domain.ErrNoQuizzesFound):
		return ReasonNoQuizzesFound
	default:
		return err.Error()
	}
}
