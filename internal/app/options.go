package app

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Recorder observes session lifecycle events. metrics.Metrics implements it.
type Recorder interface {
	SessionStarted()
	SessionFinished()
	SessionErrored(reason string)
	ResultRecorded(outcome string, latency time.Duration)
	PersistenceFailed(op string)
	SessionsSwept(n int)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted() {}
func (nopRecorder) SessionFinished() {}
func (nopRecorder) SessionErrored(string) {}
func (nopRecorder) ResultRecorded(string, time.Duration) {}
func (nopRecorder) PersistenceFailed(string) {}
func (nopRecorder) SessionsSwept(int) {}

type options struct {
	now         func() time.Time
	rnd         Random
	newID       func() string
	log         logrus.FieldLogger
	recorder    Recorder
	persistHook func(error)
}

// Option customizes services and engines; the same set applies to both.
type Option func(*options)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRandom injects the random source used for selection and option shuffling.
func WithRandom(rnd Random) Option {
	return func(o *options) { o.rnd = rnd }
}

// WithIDGenerator overrides uuid-based ids for sessions and results.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithPersistenceHook is called with a *domain.PersistenceError whenever a
// best-effort write fails. The in-memory flow continues regardless.
func WithPersistenceHook(hook func(error)) Option {
	return func(o *options) { o.persistHook = hook }
}

func buildOptions(opts []Option) options {
	o := options{
		now:      time.Now,
		newID:    uuid.NewString,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rnd == nil {
		o.rnd = NewTimeSeededRandom()
	}
	if o.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		o.log = discard
	}
	return o
}

func (o options) apply() []Option {
	return []Option{
		WithClock(o.now),
		WithRandom(o.rnd),
		WithIDGenerator(o.newID),
		WithLogger(o.log),
		WithRecorder(o.recorder),
		WithPersistenceHook(o.persistHook),
	}
}
