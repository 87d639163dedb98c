package workout

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/liftandlevel/internal/telemetry/metrics"
	"github.com/2beens/liftandlevel/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=workout_test

type workoutRepo interface {
	Add(ctx context.Context, w Workout) (*Committed, error)
	List(ctx context.Context, userID int) ([]Workout, error)
}

type Service struct {
	repo           workoutRepo
	metricsManager *metrics.Manager
}

func NewService(repo workoutRepo, metricsManager *metrics.Manager) *Service {
	return &Service{
		repo:           repo,
		metricsManager: metricsManager,
	}
}

// Submit validates a finished session, prices it and commits it.
// XP is always computed here, whatever the client previewed.
func (s *Service) Submit(ctx context.Context, nw NewWorkout) (_ *SubmitResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workout.submit")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", nw.UserID))

	if err := nw.Validate(); err != nil {
		return nil, err
	}

	items := Price(nw.Items)
	w := Workout{
		UserID:   nw.UserID,
		Date:     nw.Date,
		Duration: nw.Duration,
		XP:       TotalXP(items),
		Items:    items,
	}

	committed, err := s.repo.Add(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("add workout: %w", err)
	}

	s.metricsManager.ObserveWorkout(len(committed.Workout.Items), committed.Workout.XP)
	log.Debugf(
		"user %d committed workout %d: +%d xp, now %d xp (level %d, %s)",
		nw.UserID, committed.Workout.ID, committed.Workout.XP,
		committed.UserXP, committed.Progression.Level, committed.Progression.Rank,
	)

	return &SubmitResult{
		Workout: committed.Workout,
		XPDelta: committed.Workout.XP,
		UserXP:  committed.UserXP,
		Level:   committed.Progression.Level,
		Rank:    committed.Progression.Rank,
	}, nil
}

func (s *Service) History(ctx context.Context, userID int) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workout.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workouts, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	return workouts, nil
}
