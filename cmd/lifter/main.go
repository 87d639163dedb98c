// lifter is a terminal client for the LiftAndLevel API: log sets during a
// workout, submit it for XP and browse the exercise catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/liftandlevel/internal/catalog"
	"github.com/2beens/liftandlevel/internal/client"
	"github.com/2beens/liftandlevel/internal/logging"
	"github.com/2beens/liftandlevel/internal/workout"
)

func main() {
	apiURL := flag.String("api", "http://localhost:9000", "base URL of the LiftAndLevel API")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    *logLevel,
		Environment: "cli",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiClient := client.New(*apiURL, nil)
	lookup := catalog.NewLookup(apiClient)
	defer lookup.Close()

	fmt.Println("LiftAndLevel, type 'help' for commands")
	r := newRepl(apiClient, lookup, workout.NewSession(), os.Stdout)
	if err := r.run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		log.Errorf("read input: %s", err)
	}

	if apiClient.Session() != nil {
		if err := apiClient.Logout(context.Background()); err != nil {
			log.Debugf("logout on exit: %s", err)
		}
	}
}
