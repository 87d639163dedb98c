package workout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/2beens/liftandlevel/internal/progression"
)

const (
	DateLayout = "2006-01-02"

	// sanity limits, keep XP totals within a sane range
	MaxSets   = 1000
	MaxReps   = 1000
	MaxWeight = 2000.0
)

var (
	ErrValidation   = errors.New("invalid workout")
	ErrUserNotFound = errors.New("user not found")
)

// Item is a persisted exercise line of a workout.
type Item struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Sets   int     `json:"sets"`
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
	XP     int64   `json:"xp"`
}

// Workout is an immutable, committed session. XP is the sum of item XP.
type Workout struct {
	ID       int    `json:"id"`
	UserID   int    `json:"userId"`
	Date     string `json:"date"`
	Duration int    `json:"duration"`
	XP       int64  `json:"xp"`
	Items    []Item `json:"items"`
}

// NewItem is an exercise line as submitted by a client; any client-side XP is not decoded.
type NewItem struct {
	Name   string  `json:"name"`
	Sets   int     `json:"sets"`
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
}

// NewWorkout is the submission of a finished session.
type NewWorkout struct {
	UserID   int       `json:"-"`
	Date     string    `json:"date"`
	Duration int       `json:"duration"`
	Items    []NewItem `json:"items"`
}

// Committed is what the persistence transaction returns.
type Committed struct {
	Workout     Workout
	UserXP      int64
	Progression progression.Progression
}

// SubmitResult is the response to a successful submission.
type SubmitResult struct {
	Workout
	XPDelta int64  `json:"xpDelta"`
	UserXP  int64  `json:"userXp"`
	Level   int    `json:"level"`
	Rank    string `json:"rank"`
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ParseDate accepts a calendar date (YYYY-MM-DD) or an RFC 3339 timestamp, from which the date part is taken.
func ParseDate(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, validationErr("date is required")
	}
	if d, err := time.Parse(DateLayout, date); err == nil {
		return d, nil
	}
	if ts, err := time.Parse(time.RFC3339, date); err == nil {
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, validationErr("date %q is not a YYYY-MM-DD date", date)
}

// Validate checks the submission and returns an ErrValidation-wrapped error describing the first problem.
func (nw NewWorkout) Validate() error {
	if len(nw.Items) == 0 {
		return validationErr("items must not be empty")
	}
	if _, err := ParseDate(nw.Date); err != nil {
		return err
	}
	if nw.Duration < 0 {
		return validationErr("duration must not be negative")
	}
	for i, it := range nw.Items {
		if err := validateItem(it.Name, it.Sets, it.Reps, it.Weight); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func validateItem(name string, sets, reps int, weight float64) error {
	if problem := itemProblem(name, sets, reps, weight); problem != "" {
		return validationErr("%s", problem)
	}
	return nil
}

// itemProblem describes why a line would be refused, or returns "" for a valid one.
func itemProblem(name string, sets, reps int, weight float64) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "name is required"
	case sets <= 0 || sets > MaxSets:
		return fmt.Sprintf("sets must be between 1 and %d", MaxSets)
	case reps <= 0 || reps > MaxReps:
		return fmt.Sprintf("reps must be between 1 and %d", MaxReps)
	case math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 || weight > MaxWeight:
		return fmt.Sprintf("weight must be between 0 and %g", MaxWeight)
	}
	return ""
}

// UnmarshalJSON coerces sets, reps and weight sent as JSON numbers or numeric strings.
// Whole-valued floats are accepted as counts and a missing weight is 0.
func (ni *NewItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name   string `json:"name"`
		Sets   any    `json:"sets"`
		Reps   any    `json:"reps"`
		Weight any    `json:"weight"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	sets, err := wholeNumber("sets", raw.Sets)
	if err != nil {
		return err
	}
	reps, err := wholeNumber("reps", raw.Reps)
	if err != nil {
		return err
	}
	weight, err := coerceNumber("weight", raw.Weight)
	if err != nil {
		return err
	}

	*ni = NewItem{Name: raw.Name, Sets: sets, Reps: reps, Weight: weight}
	return nil
}

func coerceNumber(field string, v any) (float64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		v = strings.TrimSpace(val)
	case json.Number:
	default:
		return 0, validationErr("%s must be a number", field)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, validationErr("%s must be a number, got %q", field, fmt.Sprint(v))
	}
	return f, nil
}

func wholeNumber(field string, v any) (int, error) {
	f, err := coerceNumber(field, v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, validationErr("%s must be a whole number", field)
	}
	// anything this large fails the range check in Validate
	if f > math.MaxInt32 {
		f = math.MaxInt32
	} else if f < math.MinInt32 {
		f = math.MinInt32
	}
	return int(f), nil
}
