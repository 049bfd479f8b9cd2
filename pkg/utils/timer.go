package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Stage is one timed step of a pipeline.
type Stage struct {
	Name     string
	Start    time.Time
	Duration time.Duration
	done     bool
}

// StageTimer stops a running stage. Stop is safe to call more than once.
type StageTimer struct {
	timer *Timer
	name  string
}

// Stop records the stage duration and returns it.
func (st *StageTimer) Stop() time.Duration {
	return st.timer.stop(st.name)
}

// Timer records named pipeline stages in start order.
type Timer struct {
	mu     sync.Mutex
	name   string
	start  time.Time
	stages []*Stage
	clock  Clock
	logger Logger
}

// TimerOption configures a Timer instance.
type TimerOption func(*Timer)

// WithClock sets a custom clock for testability.
func WithClock(clock Clock) TimerOption {
	return func(t *Timer) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithLogger logs each stage at debug level when it stops.
func WithLogger(logger Logger) TimerOption {
	return func(t *Timer) {
		t.logger = logger
	}
}

// NewTimer creates a new Timer with the given name and options.
func NewTimer(name string, opts ...TimerOption) *Timer {
	t := &Timer{
		name:  name,
		clock: NewRealClock(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.start = t.clock.Now()
	return t
}

// Start begins timing a stage.
func (t *Timer) Start(name string) *StageTimer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages = append(t.stages, &Stage{Name: name, Start: t.clock.Now()})
	return &StageTimer{timer: t, name: name}
}

func (t *Timer) stop(name string) time.Duration {
	t.mu.Lock()
	var stage *Stage
	for i := len(t.stages) - 1; i >= 0; i-- {
		if t.stages[i].Name == name {
			stage = t.stages[i]
			break
		}
	}
	if stage == nil {
		t.mu.Unlock()
		return 0
	}
	if stage.done {
		t.mu.Unlock()
		return stage.Duration
	}
	stage.Duration = t.clock.Since(stage.Start)
	stage.done = true
	d := stage.Duration
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.Debug("%s: stage %s took %v", t.name, name, d)
	}
	return d
}

// Duration returns the recorded duration of the most recent stage with the
// given name, or zero.
func (t *Timer) Duration(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.stages) - 1; i >= 0; i-- {
		if t.stages[i].Name == name {
			return t.stages[i].Duration
		}
	}
	return 0
}

// Stages returns copies of all stages in start order.
func (t *Timer) Stages() []Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Stage, len(t.stages))
	for i, s := range t.stages {
		out[i] = *s
	}
	return out
}

// Total returns the time elapsed since the timer was created.
func (t *Timer) Total() time.Duration {
	return t.clock.Since(t.start)
}

// Millis returns the stage durations in milliseconds keyed by stage name.
func (t *Timer) Millis() map[string]int64 {
	stages := t.Stages()
	out := make(map[string]int64, len(stages))
	for _, s := range stages {
		out[s.Name] = s.Duration.Milliseconds()
	}
	return out
}

// Summary returns one line per stage followed by the total.
func (t *Timer) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s timing ===\n", t.name)
	for i, s := range t.Stages() {
		fmt.Fprintf(&sb, "%d. %s: %v\n", i+1, s.Name, s.Duration)
	}
	fmt.Fprintf(&sb, "total: %v\n", t.Total())
	return sb.String()
}
