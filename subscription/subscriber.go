package subscription

import (
	"context"
	"sync"
)

type Subscriber struct {
	input chan Registration

	done      chan struct{}
	closeOnce sync.Once
}

func NewSubscriber() *Subscriber {
	return &Subscriber{
		input: make(chan Registration, 100),
		done:  make(chan struct{}),
	}
}

// Next blocks until a registration arrives or ctx is done.
func (s *Subscriber) Next(ctx context.Context) (*Registration, error) {
	select {
	case next := <-s.input:
		return &next, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.done) })
}
