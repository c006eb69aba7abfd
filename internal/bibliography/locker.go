package bibliography

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

// BookLocker gives a per-book exclusive scope. Reference number allocation and
// reconciliation both run inside it, so numbering stays race-free even if
// sections of one book are ever generated concurrently.
type BookLocker interface {
	Lock(ctx context.Context, bookID uuid.UUID) (unlock func(), err error)
}

type localLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker serializes callers within this process only.
func NewLocalLocker() BookLocker {
	return &localLocker{slots: map[uuid.UUID]*lockSlot{}}
}

func (l *localLocker) Lock(ctx context.Context, bookID uuid.UUID) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[bookID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[bookID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(bookID, slot, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(bookID, slot, true) })
	}, nil
}

func (l *localLocker) release(bookID uuid.UUID, slot *lockSlot, held bool) {
	if held {
		<-slot.ch
	}
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, bookID)
	}
	l.mu.Unlock()
}

var errLockLost = errors.New("book lock expired before release")

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

type redisLocker struct {
	rdb    goredis.UniversalClient
	log    *logger.Logger
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

// NewRedisLocker holds the lock as a key with a random token and a TTL, so a
// crashed holder cannot block a book forever. Release only deletes the key
// while it still carries the holder's token.
func NewRedisLocker(rdb goredis.UniversalClient, log *logger.Logger, ttl time.Duration) BookLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &redisLocker{
		rdb:    rdb,
		log:    log.With("service", "RedisBookLocker"),
		prefix: "lectria:booklock:",
		ttl:    ttl,
		poll:   100 * time.Millisecond,
	}
}

func (l *redisLocker) Lock(ctx context.Context, bookID uuid.UUID) (func(), error) {
	key := l.prefix + bookID.String()
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire book lock: %w", err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			n, err := l.rdb.Eval(relCtx, releaseScript, []string{key}, token).Int()
			if err != nil {
				l.log.Warn("book lock release failed", "book_id", bookID, "error", err)
				return
			}
			if n == 0 {
				l.log.Warn("book lock release skipped", "book_id", bookID, "error", errLockLost)
			}
		})
	}, nil
}
