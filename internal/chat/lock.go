package chat

import (
	"context"
	"sync"
)

// LocalLock serializes users within one process. It stands in for the
// Redis lock when Redis is disabled.
type LocalLock struct {
	mu    sync.Mutex
	users map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocalLock() *LocalLock {
	return &LocalLock{users: make(map[int64]*userLock)}
}

func (l *LocalLock) WithLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	ul, ok := l.users[userID]
	if !ok {
		ul = &userLock{}
		l.users[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	defer func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.users, userID)
		}
		l.mu.Unlock()
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
