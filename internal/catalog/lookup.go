package catalog

import (
	"context"
	"sync"
	"time"
)

const DefaultQuietPeriod = 300 * time.Millisecond

type Searcher interface {
	Search(ctx context.Context, q string) ([]Exercise, error)
}

// Result is the outcome of the last settled query. On error Exercises is empty.
type Result struct {
	Query     string
	Exercises []Exercise
	Err       error
}

type LookupOption func(*Lookup)

func WithQuietPeriod(d time.Duration) LookupOption {
	return func(l *Lookup) {
		l.quiet = d
	}
}

type searchDone struct {
	gen    uint64
	result Result
}

// Lookup debounces a stream of search-as-you-type queries: only a query left alone for
// the quiet period is searched, a newer query cancels the search in flight, and
// results of superseded queries are never delivered.
type Lookup struct {
	searcher Searcher
	quiet    time.Duration

	mu     sync.Mutex
	latest string

	signal    chan struct{}
	completed chan searchDone
	results   chan Result
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewLookup(searcher Searcher, opts ...LookupOption) *Lookup {
	l := &Lookup{
		searcher:  searcher,
		quiet:     DefaultQuietPeriod,
		signal:    make(chan struct{}, 1),
		completed: make(chan searchDone),
		results:   make(chan Result, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.wg.Add(1)
	go l.run()
	return l
}

// Query records q as the latest query. It never blocks.
func (l *Lookup) Query(q string) {
	l.mu.Lock()
	l.latest = q
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Results delivers settled results. It is closed by Close.
func (l *Lookup) Results() <-chan Result {
	return l.results
}

// Close stops the worker, cancels any search in flight and closes Results.
func (l *Lookup) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.wg.Wait()
		close(l.results)
	})
}

func (l *Lookup) run() {
	defer l.wg.Done()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
		gen    uint64
		cancel context.CancelFunc
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timerC = nil
	}
	cancelInFlight := func() {
		if cancel != nil {
			cancel()
			cancel = nil
		}
	}
	defer cancelInFlight()

	for {
		select {
		case <-l.done:
			stopTimer()
			return

		case <-l.signal:
			gen++
			cancelInFlight()
			// a fresh timer, so no stale tick of the previous one can fire
			stopTimer()
			timer = time.NewTimer(l.quiet)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			l.mu.Lock()
			q := l.latest
			l.mu.Unlock()

			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			l.wg.Add(1)
			go l.search(ctx, gen, q)

		case d := <-l.completed:
			if d.gen != gen {
				// superseded while in flight
				continue
			}
			cancelInFlight()
			l.deliver(d.result)
		}
	}
}

func (l *Lookup) search(ctx context.Context, gen uint64, q string) {
	defer l.wg.Done()

	exercises, err := l.searcher.Search(ctx, q)
	if err != nil || exercises == nil {
		exercises = []Exercise{}
	}

	select {
	case l.completed <- searchDone{gen: gen, result: Result{Query: q, Exercises: exercises, Err: err}}:
	case <-l.done:
	}
}

// deliver keeps only the newest undelivered result.
func (l *Lookup) deliver(r Result) {
	select {
	case <-l.results:
	default:
	}
	l.results <- r
}
