package bibliography

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

func TestLocalLockerSerializesPerBook(t *testing.T) {
	locker := NewLocalLocker()
	bookID := uuid.New()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), bookID)
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxInside)
	}
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocalLocker()
	bookID := uuid.New()
	unlock, err := locker.Lock(context.Background(), bookID)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, bookID); err == nil {
		t.Fatalf("expected timeout while lock is held")
	}

	// A different book is independent.
	other, err := locker.Lock(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Lock other book: %v", err)
	}
	other()
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis lock tests")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	defer rdb.Close()

	locker := NewRedisLocker(rdb, logger.Nop(), time.Second)
	bookID := uuid.New()
	unlock, err := locker.Lock(context.Background(), bookID)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, bookID); err == nil {
		t.Fatalf("expected second Lock to block")
	}
	unlock()
	again, err := locker.Lock(context.Background(), bookID)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	again()
}
