package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/signbilling/internal/clock"
)

type entry struct {
	token   string
	expires time.Time
}

// LocalLocker serializes runs inside one process.
type LocalLocker struct {
	mu    sync.Mutex
	clock clock.Clock
	held  map[string]entry
}

func NewLocalLocker(c clock.Clock) *LocalLocker {
	if c == nil {
		c = clock.SystemClock{}
	}
	return &LocalLocker{clock: c, held: make(map[string]entry)}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := validate(key, ttl); err != nil {
		return "", false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = entry{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (l *LocalLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.held[key]; ok && cur.token == token {
		delete(l.held, key)
	}
	return nil
}
