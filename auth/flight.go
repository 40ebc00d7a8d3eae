package auth

import "context"

// flight is the shared handle of an in-progress refresh. done is closed once
// the refresh has settled; err is written before that and read only after.
type flight struct {
	done chan struct{}
	err  error
}

func newFlight() *flight {
	return &flight{done: make(chan struct{})}
}

func (f *flight) settle(err error) {
	f.err = err
	close(f.done)
}

// wait blocks until the refresh settles or ctx is done.
func (f *flight) wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
