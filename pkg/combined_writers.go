package pkg

import (
	"io"
	"sync"

	"go.uber.org/multierr"
)

// CombinedWriter fans every write out to all of its writers, e.g. stdout and a
// rotating log file. A failing writer does not stop the others.
type CombinedWriter struct {
	mu      sync.Mutex
	writers []io.Writer
	lastErr error
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{
		writers: append([]io.Writer(nil), writers...),
	}
}

// Write reports len(p) as long as one writer took the whole of p.
// Failures of the others are returned combined.
func (cw *CombinedWriter) Write(p []byte) (int, error) {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	var (
		err     error
		written bool
	)
	for _, w := range cw.writers {
		n, werr := w.Write(p)
		if werr == nil && n < len(p) {
			werr = io.ErrShortWrite
		}
		if werr != nil {
			err = multierr.Append(err, werr)
			continue
		}
		written = true
	}

	if err != nil {
		cw.lastErr = err
	}
	if !written && len(cw.writers) > 0 {
		return 0, err
	}
	return len(p), err
}

// LastErr is the most recent failure of any writer.
func (cw *CombinedWriter) LastErr() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.lastErr
}
