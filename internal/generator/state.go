package generator

import (
	"errors"
	"fmt"
	"sync"
)

// State is a step of one submission's lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateRequesting State = "requesting"
	StateAssembling State = "assembling"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Outcome is the terminal result of the last run.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning"
	OutcomeFailure Outcome = "failure"
)

var ErrIllegalTransition = errors.New("illegal state transition")

var transitions = map[State][]State{
	StateIdle:       {StateValidating},
	StateValidating: {StateRequesting, StateIdle},
	StateRequesting: {StateAssembling, StateFailed},
	StateAssembling: {StateDone, StateFailed},
	StateDone:       {StateIdle},
	StateFailed:     {StateIdle},
}

// Progress is the percentage shown while in s.
func (s State) Progress() int {
	switch s {
	case StateValidating:
		return 10
	case StateRequesting:
		return 30
	case StateAssembling:
		return 60
	case StateDone:
		return 100
	default:
		return 0
	}
}

// Label is the i18n key describing s.
func (s State) Label() string {
	if s == StateIdle {
		return ""
	}
	return "status." + string(s)
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Status is the externally visible progress of one submission.
type Status struct {
	State    State   `json:"state"`
	Progress int     `json:"progress"`
	Label    string  `json:"label"`
	Busy     bool    `json:"busy"`
	Outcome  Outcome `json:"outcome,omitempty"`
	Message  string  `json:"message,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

// Tracker owns the Status of one submission. It is safe for concurrent readers.
type Tracker struct {
	mu       sync.RWMutex
	status   Status
	history  []State
	listener func(Status)
}

func NewTracker() *Tracker {
	return &Tracker{status: Status{State: StateIdle}}
}

// OnChange registers fn to receive every accepted transition.
func (t *Tracker) OnChange(fn func(Status)) {
	t.mu.Lock()
	t.listener = fn
	t.mu.Unlock()
}

func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// History lists every state entered since the tracker was created.
func (t *Tracker) History() []State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]State, len(t.history))
	copy(out, t.history)
	return out
}

func (t *Tracker) transition(to State) error {
	return t.update(to, func(*Status) {})
}

// finish enters a terminal or warning state and records the user-facing result.
func (t *Tracker) finish(to State, outcome Outcome, message, detail string) error {
	return t.update(to, func(s *Status) {
		s.Outcome = outcome
		s.Message = message
		s.Detail = detail
	})
}

func (t *Tracker) update(to State, mutate func(*Status)) error {
	t.mu.Lock()
	from := t.status.State
	if !canTransition(from, to) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}

	if from == StateIdle {
		t.status.Outcome = OutcomeNone
		t.status.Message = ""
		t.status.Detail = ""
	}
	t.status.State = to
	t.status.Progress = to.Progress()
	t.status.Label = to.Label()
	t.status.Busy = to != StateIdle
	mutate(&t.status)
	t.history = append(t.history, to)

	snapshot := t.status
	listener := t.listener
	t.mu.Unlock()

	if listener != nil {
		listener(snapshot)
	}
	return nil
}
