package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/liftandlevel/internal/progression"
	"github.com/2beens/liftandlevel/internal/telemetry/tracing"
	"github.com/2beens/liftandlevel/pkg"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Create inserts a user with zero XP at the given starting progression.
func (r *Repo) Create(ctx context.Context, nu NewUser, start progression.Progression) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user := &User{
		Name:         nu.Name,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		XP:           0,
		Level:        start.Level,
		Rank:         start.Rank,
	}
	if err := r.db.QueryRow(
		ctx,
		`INSERT INTO users (name, email, password_hash, xp, level, rank)
			VALUES ($1, $2, $3, 0, $4, $5)
			RETURNING id, created_at;`,
		nu.Name, nu.Email, nu.PasswordHash, start.Level, start.Rank,
	).Scan(&user.ID, &user.CreatedAt); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	return user, nil
}

const selectUser = `SELECT id, name, email, password_hash, xp, level, rank, created_at FROM users`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.XP, &u.Level, &u.Rank, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.getByEmail")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return scanUser(r.db.QueryRow(ctx, selectUser+` WHERE email = $1;`, email))
}

func (r *Repo) GetByID(ctx context.Context, id int) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.getByID")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", id))

	return scanUser(r.db.QueryRow(ctx, selectUser+` WHERE id = $1;`, id))
}

// RecomputeProgression re-derives level and rank of every user from stored XP.
// A row whose XP moved in the meantime is left to the commit that moved it.
func (r *Repo) RecomputeProgression(ctx context.Context, resolver progression.Resolver) (updated int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.recomputeProgression")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `SELECT id, xp, level, rank FROM users ORDER BY id;`)
	if err != nil {
		return 0, fmt.Errorf("query users: %w", err)
	}

	type change struct {
		id   int
		xp   int64
		prog progression.Progression
	}
	var changes []change
	for rows.Next() {
		var (
			id    int
			xp    int64
			level int
			rank  string
		)
		if err := rows.Scan(&id, &xp, &level, &rank); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan user: %w", err)
		}
		if prog := resolver.Resolve(xp); prog.Level != level || prog.Rank != rank {
			changes = append(changes, change{id: id, xp: xp, prog: prog})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate users: %w", err)
	}

	if len(changes) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, c := range changes {
		batch.Queue(
			`UPDATE users SET level = $1, rank = $2 WHERE id = $3 AND xp = $4;`,
			c.prog.Level, c.prog.Rank, c.id, c.xp,
		)
	}
	br := r.db.SendBatch(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close batch: %w", closeErr)
		}
	}()

	for _, c := range changes {
		tag, err := br.Exec()
		if err != nil {
			return updated, fmt.Errorf("update user %d: %w", c.id, err)
		}
		if tag.RowsAffected() == 0 {
			log.Debugf("user %d xp changed during recompute, skipped", c.id)
			continue
		}
		updated++
	}

	span.SetAttributes(attribute.Int("users.updated", updated))
	return updated, nil
}
