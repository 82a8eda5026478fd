package dispatch

import (
	"context"
	"sync"
)

// Lifecycle guards a component that prepares (waits for the gateway,
// initializes handlers) and then subscribes to events. The lock is not held
// while preparing, so Stop can cancel a pending Start.
type Lifecycle struct {
	mu          sync.Mutex
	starting    context.CancelFunc
	unsubscribe func()
}

// Start runs prepare with a context that Stop cancels, then calls subscribe
// and keeps the returned unsubscribe func. prepare may be nil.
func (l *Lifecycle) Start(ctx context.Context, prepare func(context.Context) error, subscribe func() func()) error {
	l.mu.Lock()
	if l.unsubscribe != nil || l.starting != nil {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	l.starting = cancel
	l.mu.Unlock()
	defer cancel()

	var err error
	if prepare != nil {
		err = prepare(ctx)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.starting == nil {
		return ErrStartCancelled
	}
	l.starting = nil
	if err != nil {
		return err
	}
	l.unsubscribe = subscribe()
	return nil
}

// Stop unsubscribes a running component or cancels a pending Start
func (l *Lifecycle) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.unsubscribe != nil:
		l.unsubscribe()
		l.unsubscribe = nil
	case l.starting != nil:
		l.starting()
		l.starting = nil
	default:
		return ErrNotStarted
	}
	return nil
}

// Running reports whether the component is subscribed
func (l *Lifecycle) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unsubscribe != nil
}
