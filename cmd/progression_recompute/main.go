// progression_recompute re-derives level and rank for every user from their
// stored XP. Run it after changing the level table.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/liftandlevel/internal/config"
	"github.com/2beens/liftandlevel/internal/db"
	"github.com/2beens/liftandlevel/internal/logging"
	"github.com/2beens/liftandlevel/internal/progression"
	"github.com/2beens/liftandlevel/internal/users"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	timeout := flag.Duration("timeout", 10*time.Minute, "give up after this long")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    cfg.LogLevel,
		Environment: cfg.Environment,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("LIFT_DB_PASSWORD"),
		SSLMode:    cfg.PostgresSSLMode,
		MaxConns:   2,
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer pool.Close()

	started := time.Now()
	updated, err := users.NewRepo(pool).RecomputeProgression(ctx, progression.Default())
	if err != nil {
		log.Fatalf("recompute progression: %s", err)
	}

	log.Infof("progression recomputed, %d users updated in %s", updated, time.Since(started))
}
