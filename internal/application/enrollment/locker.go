package enrollment

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
)

// ApplicationLocker serializes transitions on a single application.
// Lock blocks until the lock is held or ctx is done; the returned func releases it.
type ApplicationLocker interface {
	Lock(ctx context.Context, applicationID uuid.UUID) (unlock func(), err error)
}

// acquire takes the application lock. A lock that cannot be had in time is
// reported as a conflict so the caller retries.
func acquire(ctx context.Context, locker ApplicationLocker, applicationID uuid.UUID) (func(), error) {
	unlock, err := locker.Lock(ctx, applicationID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, enrollment.ErrConflict.WithField("application_id").WithCause(err)
	}
	return unlock, nil
}

// LocalLocker is an in-process keyed mutex. Use a distributed locker when
// more than one instance serves the same database.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyedLock
}

type keyedLock struct {
	ch      chan struct{}
	waiters int
}

// NewLocalLocker creates an empty LocalLocker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[uuid.UUID]*keyedLock)}
}

// Lock acquires the lock of applicationID
func (l *LocalLocker) Lock(ctx context.Context, applicationID uuid.UUID) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[applicationID]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[applicationID] = kl
	}
	kl.waiters++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(applicationID, kl, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(applicationID, kl, true) })
	}, nil
}

func (l *LocalLocker) release(applicationID uuid.UUID, kl *keyedLock, held bool) {
	if held {
		<-kl.ch
	}
	l.mu.Lock()
	kl.waiters--
	if kl.waiters == 0 {
		delete(l.locks, applicationID)
	}
	l.mu.Unlock()
}
