package workout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/liftandlevel/internal/progression"
	"github.com/2beens/liftandlevel/internal/telemetry/tracing"
	"github.com/2beens/liftandlevel/pkg"
)

type Repo struct {
	db       *pgxpool.Pool
	resolver progression.Resolver
}

func NewRepo(db *pgxpool.Pool, resolver progression.Resolver) *Repo {
	return &Repo{
		db:       db,
		resolver: resolver,
	}
}

// Add stores the workout with its items and credits its XP to the user, all in one transaction.
// The XP increment happens in SQL under the user row lock, so concurrent commits for the same user serialize.
func (r *Repo) Add(ctx context.Context, w Workout) (_ *Committed, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("user.id", w.UserID),
		attribute.Int("workout.items", len(w.Items)),
		attribute.Int64("workout.xp", w.XP),
	)

	workoutDate, err := ParseDate(w.Date)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		// rollback must run even when ctx is already cancelled
		if rbErr := tx.Rollback(context.Background()); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("add workout for user %d, rollback: %s", w.UserID, rbErr)
		}
	}()

	if err = tx.QueryRow(
		ctx,
		`INSERT INTO workouts (user_id, workout_date, total_xp, duration)
			VALUES ($1, $2, $3, $4)
			RETURNING id;`,
		w.UserID, workoutDate, w.XP, w.Duration,
	).Scan(&w.ID); err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("insert workout: %w", err)
	}

	if err = insertItems(ctx, tx, w.ID, w.Items); err != nil {
		return nil, err
	}

	var userXP int64
	if err = tx.QueryRow(
		ctx,
		`UPDATE users SET xp = xp + $1 WHERE id = $2 RETURNING xp;`,
		w.XP, w.UserID,
	).Scan(&userXP); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("increment user xp: %w", err)
	}

	prog := r.resolver.Resolve(userXP)
	if _, err = tx.Exec(
		ctx,
		`UPDATE users SET level = $1, rank = $2 WHERE id = $3;`,
		prog.Level, prog.Rank, w.UserID,
	); err != nil {
		return nil, fmt.Errorf("update user progression: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	w.Date = workoutDate.Format(DateLayout)
	span.SetAttributes(attribute.Int("workout.id", w.ID), attribute.Int64("user.xp", userXP))

	return &Committed{
		Workout:     w,
		UserXP:      userXP,
		Progression: prog,
	}, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, workoutID int, items []Item) (err error) {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(
			`INSERT INTO workout_items (workout_id, name, sets, reps, weight, xp)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id;`,
			workoutID, it.Name, it.Sets, it.Reps, it.Weight, it.XP,
		)
	}

	br := tx.SendBatch(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close items batch: %w", closeErr)
		}
	}()

	for i := range items {
		if err := br.QueryRow().Scan(&items[i].ID); err != nil {
			if pkg.IsCheckViolationError(err) {
				return validationErr("item %d rejected by storage", i)
			}
			return fmt.Errorf("insert item %d: %w", i, err)
		}
	}
	return nil
}

// List returns all workouts of the user, newest date first, each with items in insertion order.
func (r *Repo) List(ctx context.Context, userID int) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workout.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, workout_date, duration, total_xp
			FROM workouts
			WHERE user_id = $1
			ORDER BY workout_date DESC, id DESC;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query workouts: %w", err)
	}
	defer rows.Close()

	workouts := make([]Workout, 0)
	byID := map[int]int{}
	var ids []int
	for rows.Next() {
		var w Workout
		var date time.Time
		if err := rows.Scan(&w.ID, &w.UserID, &date, &w.Duration, &w.XP); err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		w.Date = date.Format(DateLayout)
		w.Items = []Item{}
		byID[w.ID] = len(workouts)
		ids = append(ids, w.ID)
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workouts: %w", err)
	}
	rows.Close()

	span.SetAttributes(attribute.Int("workouts.count", len(workouts)))
	if len(ids) == 0 {
		return workouts, nil
	}

	itemRows, err := r.db.Query(
		ctx,
		`SELECT id, workout_id, name, sets, reps, weight, xp
			FROM workout_items
			WHERE workout_id = ANY($1)
			ORDER BY id ASC;`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query workout items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it Item
		var workoutID int
		if err := itemRows.Scan(&it.ID, &workoutID, &it.Name, &it.Sets, &it.Reps, &it.Weight, &it.XP); err != nil {
			return nil, fmt.Errorf("scan workout item: %w", err)
		}
		idx, ok := byID[workoutID]
		if !ok {
			continue
		}
		workouts[idx].Items = append(workouts[idx].Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workout items: %w", err)
	}

	return workouts, nil
}
