package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/liftandlevel/internal/catalog"
	"github.com/2beens/liftandlevel/internal/client"
	"github.com/2beens/liftandlevel/internal/workout"
)

const searchWait = 5 * time.Second

type api interface {
	Session() *client.Session
	Register(ctx context.Context, name, email, password string) (*client.Session, error)
	Login(ctx context.Context, email, password string) (*client.Session, error)
	Logout(ctx context.Context) error
	SubmitWorkout(ctx context.Context, sub workout.Submission) (*workout.SubmitResult, error)
	History(ctx context.Context) ([]workout.Workout, error)
}

type repl struct {
	api     api
	lookup  *catalog.Lookup
	session *workout.Session
	out     io.Writer

	// finished but not accepted by the server yet
	pending *workout.Submission
}

func newRepl(a api, lookup *catalog.Lookup, session *workout.Session, out io.Writer) *repl {
	return &repl{
		api:     a,
		lookup:  lookup,
		session: session,
		out:     out,
	}
}

func (r *repl) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(r.out, format, args...); err != nil {
		log.Debugf("write output: %s", err)
	}
}

// run reads commands line by line until EOF, "quit" or ctx is done.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	r.printf("> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			if quit := r.exec(ctx, fields[0], fields[1:]); quit {
				return nil
			}
		}
		r.printf("> ")
	}
	return scanner.Err()
}

func (r *repl) exec(ctx context.Context, cmd string, args []string) (quit bool) {
	switch strings.ToLower(cmd) {
	case "help", "?":
		r.help()
	case "register":
		r.register(ctx, args)
	case "login":
		r.login(ctx, args)
	case "logout":
		r.logout(ctx)
	case "me":
		r.me()
	case "start":
		r.start()
	case "add":
		r.add(args)
	case "status":
		r.status()
	case "finish":
		r.finish(ctx)
	case "retry":
		r.retry(ctx)
	case "cancel":
		r.cancel()
	case "history":
		r.history(ctx)
	case "search":
		r.search(ctx, strings.Join(args, " "))
	case "quit", "exit":
		return true
	default:
		r.printf("unknown command %q, try 'help'\n", cmd)
	}
	return false
}

func (r *repl) help() {
	r.printf(`commands:
  register <email> <password> <name...>
  login <email> <password>
  logout
  me
  start
  add <sets> <reps> <weight> <exercise...>
  status
  finish
  retry
  cancel
  history
  search <query...>
  quit
`)
}

// explain turns an error into the message shown to the user.
func explain(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status >= 500 {
			return "something went wrong on the server, try again"
		}
		return apiErr.Message
	case errors.Is(err, client.ErrNotLoggedIn):
		return "log in first"
	case errors.Is(err, context.DeadlineExceeded):
		return "the server did not answer in time"
	default:
		return "could not reach the server"
	}
}

func (r *repl) register(ctx context.Context, args []string) {
	if len(args) < 3 {
		r.printf("usage: register <email> <password> <name...>\n")
		return
	}
	s, err := r.api.Register(ctx, strings.Join(args[2:], " "), args[0], args[1])
	if err != nil {
		log.Debugf("register: %s", err)
		r.printf("register failed: %s\n", explain(err))
		return
	}
	r.printf("welcome, %s! level %d %s\n", s.Name, s.Level, s.Rank)
}

func (r *repl) login(ctx context.Context, args []string) {
	if len(args) != 2 {
		r.printf("usage: login <email> <password>\n")
		return
	}
	s, err := r.api.Login(ctx, args[0], args[1])
	if err != nil {
		log.Debugf("login: %s", err)
		r.printf("login failed: %s\n", explain(err))
		return
	}
	r.printf("hi %s, %d XP, level %d %s\n", s.Name, s.XP, s.Level, s.Rank)
}

func (r *repl) logout(ctx context.Context) {
	if err := r.api.Logout(ctx); err != nil && !errors.Is(err, client.ErrNotLoggedIn) {
		log.Warnf("logout: %s", err)
	}
	r.pending = nil
	r.printf("logged out\n")
}

func (r *repl) me() {
	s := r.api.Session()
	if s == nil {
		r.printf("not logged in\n")
		return
	}
	r.printf("%s: %d XP, level %d %s\n", s.Name, s.XP, s.Level, s.Rank)
}

func (r *repl) start() {
	if err := r.session.Start(); err != nil {
		r.printf("%s\n", err)
		return
	}
	r.printf("workout started at %s\n", r.session.StartedAt().Format(time.Kitchen))
}

func (r *repl) add(args []string) {
	if len(args) < 4 {
		r.printf("usage: add <sets> <reps> <weight> <exercise...>\n")
		return
	}
	sets, err := strconv.Atoi(args[0])
	if err != nil {
		r.printf("sets must be a whole number\n")
		return
	}
	reps, err := strconv.Atoi(args[1])
	if err != nil {
		r.printf("reps must be a whole number\n")
		return
	}
	weight, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		weight = 0
	}

	ls, err := r.session.AddSet(strings.Join(args[3:], " "), sets, reps, weight)
	switch {
	case errors.Is(err, workout.ErrSessionNotActive):
		r.printf("start a workout first\n")
		return
	case errors.Is(err, workout.ErrInvalidSet):
		r.printf("%s\n", err)
		return
	case err != nil:
		r.printf("%s\n", err)
		return
	}
	r.printf("+%d XP  %s %dx%d @ %g (workout total %d XP)\n", ls.XP, ls.Name, ls.Sets, ls.Reps, ls.Weight, r.session.PreviewXP())
}

func (r *repl) status() {
	if r.session.Status() != workout.StatusActive {
		r.printf("idle")
		if r.pending != nil {
			r.printf(", one finished workout waiting for 'retry'")
		}
		r.printf("\n")
		return
	}
	r.printf("active for %s, %d XP so far\n", r.session.Elapsed().Round(time.Second), r.session.PreviewXP())
	for i, ls := range r.session.Items() {
		r.printf("  %d. %s %dx%d @ %g  %d XP\n", i+1, ls.Name, ls.Sets, ls.Reps, ls.Weight, ls.XP)
	}
}

func (r *repl) finish(ctx context.Context) {
	if r.api.Session() == nil {
		r.printf("log in first, your workout is kept\n")
		return
	}
	if r.pending != nil {
		r.printf("an earlier workout is still waiting to be saved, use 'retry' first; this one is kept\n")
		return
	}
	sub, err := r.session.Finish()
	switch {
	case errors.Is(err, workout.ErrNothingToSave):
		r.printf("nothing to save, add a set first\n")
		return
	case err != nil:
		r.printf("%s\n", err)
		return
	}
	r.pending = &sub
	r.submit(ctx)
}

func (r *repl) retry(ctx context.Context) {
	if r.pending == nil {
		r.printf("nothing to retry\n")
		return
	}
	r.submit(ctx)
}

func (r *repl) submit(ctx context.Context) {
	result, err := r.api.SubmitWorkout(ctx, *r.pending)
	if err != nil {
		log.Debugf("submit workout: %s", err)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			// the server will never take it as is
			r.pending = nil
			r.printf("workout rejected: %s\n", explain(err))
			return
		}
		r.printf("saving failed: %s; use 'retry'\n", explain(err))
		return
	}
	r.pending = nil
	r.printf("saved! +%d XP, total %d, level %d %s\n", result.XPDelta, result.UserXP, result.Level, result.Rank)
}

func (r *repl) cancel() {
	if err := r.session.Cancel(); err != nil {
		r.printf("%s\n", err)
		return
	}
	r.printf("workout discarded\n")
}

func (r *repl) history(ctx context.Context) {
	workouts, err := r.api.History(ctx)
	if err != nil {
		log.Warnf("fetch history: %s", err)
		r.printf("could not load history: %s\n", explain(err))
		workouts = nil
	}
	if len(workouts) == 0 {
		r.printf("no workouts yet\n")
		return
	}
	for _, w := range workouts {
		r.printf("%s  %d min  %d XP  (%d exercises)\n", w.Date, w.Duration/60, w.XP, len(w.Items))
	}
}

// search feeds q through the debounced lookup and waits for its result.
// A failed lookup falls back to the built-in exercise list.
func (r *repl) search(ctx context.Context, q string) {
	r.lookup.Query(q)

	timeout := time.NewTimer(searchWait)
	defer timeout.Stop()

	var exercises []catalog.Exercise
	for exercises == nil {
		select {
		case <-ctx.Done():
			return
		case <-timeout.C:
			r.printf("search timed out, showing built-in exercises\n")
			exercises = catalog.Fallback(q)
		case res, ok := <-r.lookup.Results():
			if !ok {
				return
			}
			if res.Query != q {
				continue
			}
			if res.Err != nil {
				log.Warnf("search exercises: %s", res.Err)
				exercises = catalog.Fallback(q)
			} else {
				exercises = res.Exercises
			}
		}
	}

	if len(exercises) == 0 {
		r.printf("no exercises match %q\n", q)
		return
	}
	for _, e := range exercises {
		if e.Category != "" {
			r.printf("  %s (%s)\n", e.Name, e.Category)
		} else {
			r.printf("  %s\n", e.Name)
		}
	}
}
