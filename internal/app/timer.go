package app

// TimerState is the lifecycle of a per-question countdown.
type TimerState int

const (
	TimerIdle TimerState = iota
	TimerRunning
	TimerExpired
)

func (s TimerState) String() string {
	switch s {
	case TimerRunning:
		return "running"
	case TimerExpired:
		return "expired"
	default:
		return "idle"
	}
}

// Countdown is a cooperative one-second countdown. Nothing runs in the
// background: the owner calls Tick once per second, so tests can drive it
// synchronously. onExpire fires exactly once per Start, from inside Tick.
type Countdown struct {
	state     TimerState
	remaining int
	onExpire  func()
}

func NewCountdown(onExpire func()) *Countdown {
	return &Countdown{onExpire: onExpire}
}

// Start discards any prior state and begins counting down from seconds.
func (c *Countdown) Start(seconds int) {
	c.remaining = seconds
	c.state = TimerRunning
	if seconds <= 0 {
		c.expire()
	}
}

// Cancel stops a running countdown without firing the callback.
// It is a no-op in any other state.
func (c *Countdown) Cancel() {
	if c.state != TimerRunning {
		return
	}
	c.state = TimerIdle
}

// Tick decrements the remaining time and reports whether this tick expired it.
func (c *Countdown) Tick() bool {
	if c.state != TimerRunning {
		return false
	}
	c.remaining--
	if c.remaining > 0 {
		return false
	}
	c.expire()
	return true
}

func (c *Countdown) expire() {
	c.remaining = 0
	c.state = TimerExpired
	if c.onExpire != nil {
		c.onExpire()
	}
}

func (c *Countdown) Remaining() int {
	return c.remaining
}

func (c *Countdown) State() TimerState {
	return c.state
}
