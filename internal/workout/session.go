package workout

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrSessionActive    = errors.New("session already active")
	ErrSessionNotActive = errors.New("no active session")
	ErrNothingToSave    = errors.New("nothing to save")
	ErrInvalidSet       = errors.New("invalid set")
)

type Status int

const (
	StatusIdle Status = iota
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusActive:
		return "active"
	default:
		return "unknown"
	}
}

// LoggedSet is one exercise line logged during a session.
type LoggedSet struct {
	Name   string  `json:"name"`
	Sets   int     `json:"sets"`
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
	XP     int64   `json:"xp"`
}

// Submission is the payload produced when a session finishes.
type Submission struct {
	Date     string      `json:"date"`
	Duration int         `json:"duration"`
	Items    []LoggedSet `json:"items"`
}

// PreviewXP is the XP the submission should earn, as the server will compute it.
func (s Submission) PreviewXP() int64 {
	var total int64
	for _, it := range s.Items {
		total += it.XP
	}
	return total
}

type SessionOption func(*Session)

// WithClock replaces time.Now, for tests and replays.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// Session is the client-side state machine of an in-progress workout.
// It is owned by one caller and is not safe for concurrent use.
type Session struct {
	now       func() time.Time
	status    Status
	startedAt time.Time
	items     []LoggedSet
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		now:    time.Now,
		status: StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Status() Status {
	return s.status
}

func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Items returns a copy of the log in insertion order.
func (s *Session) Items() []LoggedSet {
	return append([]LoggedSet(nil), s.items...)
}

func (s *Session) Elapsed() time.Duration {
	if s.status != StatusActive {
		return 0
	}
	return s.now().Sub(s.startedAt)
}

func (s *Session) PreviewXP() int64 {
	return Submission{Items: s.items}.PreviewXP()
}

func (s *Session) Start() error {
	if s.status == StatusActive {
		return ErrSessionActive
	}
	s.status = StatusActive
	s.startedAt = s.now()
	s.items = nil
	return nil
}

// AddSet appends a line to the active session. Negative or NaN weight is stored as 0.
// A line the server would refuse is rejected and leaves the log untouched.
func (s *Session) AddSet(name string, sets, reps int, weight float64) (LoggedSet, error) {
	if s.status != StatusActive {
		return LoggedSet{}, ErrSessionNotActive
	}

	name = strings.TrimSpace(name)
	if math.IsNaN(weight) || weight < 0 {
		weight = 0
	}
	if problem := itemProblem(name, sets, reps, weight); problem != "" {
		return LoggedSet{}, fmt.Errorf("%w: %s", ErrInvalidSet, problem)
	}

	ls := LoggedSet{
		Name:   name,
		Sets:   sets,
		Reps:   reps,
		Weight: weight,
		XP:     XPFor(sets, reps, weight),
	}
	s.items = append(s.items, ls)
	return ls, nil
}

// Finish closes the session and returns its payload. An empty session stays active.
func (s *Session) Finish() (Submission, error) {
	if s.status != StatusActive {
		return Submission{}, ErrSessionNotActive
	}
	if len(s.items) == 0 {
		return Submission{}, ErrNothingToSave
	}

	now := s.now()
	duration := int(now.Sub(s.startedAt) / time.Second)
	if duration < 0 {
		duration = 0
	}

	sub := Submission{
		Date:     now.Format(DateLayout),
		Duration: duration,
		Items:    s.items,
	}

	s.status = StatusIdle
	s.items = nil
	s.startedAt = time.Time{}
	return sub, nil
}

// Cancel discards the log and returns to idle.
func (s *Session) Cancel() error {
	if s.status != StatusActive {
		return ErrSessionNotActive
	}
	s.status = StatusIdle
	s.items = nil
	s.startedAt = time.Time{}
	return nil
}
