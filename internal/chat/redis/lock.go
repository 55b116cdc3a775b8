package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"storefront-bot/internal/logger"
)

// ErrBusy is returned when another action of the same user holds the lock
// for longer than the caller is willing to wait.
var ErrBusy = errors.New("conversation is busy")

const keyPrefix = "conversation_lock:"

// unlockScript deletes the key only if it still holds our token, so an
// expired lock taken over by someone else is never released by us.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ConversationLock serializes the actions of one user across bot instances.
type ConversationLock struct {
	Client *redis.Client
	TTL    time.Duration
	Wait   time.Duration
	Retry  time.Duration
	Logger *logger.Logger
}

func NewConversationLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *ConversationLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ConversationLock{
		Client: client,
		TTL:    ttl,
		Wait:   ttl,
		Retry:  50 * time.Millisecond,
		Logger: log,
	}
}

func lockKey(userID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, userID)
}

// TryLock takes the user's lock once. The returned token is needed to unlock.
func (l *ConversationLock) TryLock(ctx context.Context, userID int64) (string, bool, error) {
	token := uuid.New().String()
	ok, err := l.Client.SetNX(ctx, lockKey(userID), token, l.TTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("lock conversation %d: %w", userID, err)
	}
	return token, ok, nil
}

// Unlock releases the lock if token still owns it.
func (l *ConversationLock) Unlock(ctx context.Context, userID int64, token string) error {
	if err := unlockScript.Run(ctx, l.Client, []string{lockKey(userID)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("unlock conversation %d: %w", userID, err)
	}
	return nil
}

// WithLock runs fn while holding the user's lock, polling until Wait elapses.
func (l *ConversationLock) WithLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	deadline := time.Now().Add(l.Wait)
	for {
		token, ok, err := l.TryLock(ctx, userID)
		if err != nil {
			return err
		}
		if ok {
			defer func() {
				if err := l.Unlock(context.Background(), userID, token); err != nil {
					l.Logger.Warn("REDIS", err.Error())
				}
			}()
			return fn(ctx)
		}
		if time.Now().After(deadline) {
			l.Logger.Debug("REDIS", fmt.Sprintf("conversation %d still locked, giving up", userID))
			return ErrBusy
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.Retry):
		}
	}
}
