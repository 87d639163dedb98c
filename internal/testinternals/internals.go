// Package testinternals wires real dependencies for integration tests.
package testinternals

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/2beens/liftandlevel/internal/db"
	"github.com/2beens/liftandlevel/internal/progression"
	pkgtesting "github.com/2beens/liftandlevel/pkg/testing"
)

type Internals struct {
	Postgres pkgtesting.Postgres
	DBParams db.NewDBPoolParams
	DBPool   *pgxpool.Pool
}

// NewDBInternals starts postgres, migrates it and opens a pool closed on cleanup.
func NewDBInternals(t *testing.T) *Internals {
	t.Helper()

	pg := pkgtesting.StartPostgres(t)
	params := db.NewDBPoolParams{
		DBHost:     pg.Host,
		DBPort:     pg.Port,
		DBName:     pkgtesting.PostgresDBName,
		DBUser:     pkgtesting.PostgresUser,
		DBPassword: pkgtesting.PostgresPassword,
		MaxConns:   20,
	}
	require.NoError(t, db.RunMigrations(params.ConnString()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.NewDBPool(ctx, params)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return &Internals{
		Postgres: pg,
		DBParams: params,
		DBPool:   pool,
	}
}

// CreateUser inserts a user at the starting progression and returns its id.
func (i *Internals) CreateUser(t *testing.T) int {
	t.Helper()

	start := progression.Starting()
	var id int
	require.NoError(t, i.DBPool.QueryRow(
		context.Background(),
		`INSERT INTO users (name, email, password_hash, xp, level, rank)
			VALUES ($1, $2, 'x', 0, $3, $4)
			RETURNING id;`,
		gofakeit.Name(), gofakeit.UUID()+"@lift.test", start.Level, start.Rank,
	).Scan(&id))
	return id
}
