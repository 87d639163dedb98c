// Package testing starts throwaway postgres and redis containers for
// integration tests tagged with integration_test or all_tests.
package testing

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
)

const (
	PostgresUser     = "postgres"
	PostgresPassword = "postgres"
	PostgresDBName   = "liftandlevel"
)

type Postgres struct {
	Host string
	Port string
}

// DSN is usable both by pgx and by lib/pq.
func (p Postgres) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		PostgresUser, PostgresPassword, net.JoinHostPort(p.Host, p.Port), PostgresDBName,
	)
}

func newPool(t *testing.T) *dockertest.Pool {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %s", err)
	}
	pool.MaxWait = 60 * time.Second
	return pool
}

// StartPostgres runs a postgres container and waits until it accepts connections.
// The container is purged when the test finishes.
func StartPostgres(t *testing.T) Postgres {
	t.Helper()

	pool := newPool(t)
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=" + PostgresUser,
			"POSTGRES_PASSWORD=" + PostgresPassword,
			"POSTGRES_DB=" + PostgresDBName,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("purge postgres: %s", err)
		}
	})

	pg := Postgres{Host: "localhost", Port: resource.GetPort("5432/tcp")}
	require.NoError(t, pool.Retry(func() error {
		db, err := sql.Open("postgres", pg.DSN())
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}))

	return pg
}

// StartRedis runs a redis container and returns a connected client.
func StartRedis(t *testing.T) *redis.Client {
	t.Helper()

	pool := newPool(t)
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "6.2",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("purge redis: %s", err)
		}
	})

	rdb := redis.NewClient(&redis.Options{
		Addr: net.JoinHostPort("localhost", resource.GetPort("6379/tcp")),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	require.NoError(t, pool.Retry(func() error {
		return rdb.Ping(context.Background()).Err()
	}))

	return rdb
}
