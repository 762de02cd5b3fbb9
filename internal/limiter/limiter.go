package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Upload throttles image and PDF uploads per user: a bounded number of
// in-flight uploads, plus a daily byte quota tracked in Redis so the quota
// survives restarts and is shared between instances.
type Upload struct {
	rdb         *redis.Client
	maxInflight int
	dailyBytes  int64

	mu  sync.Mutex
	sem map[string]chan struct{}
}

type Options struct {
	MaxInflight  int
	DailyQuotaMB int
}

// ErrQuotaExceeded is returned once a user exhausts the daily byte quota.
var ErrQuotaExceeded = fmt.Errorf("limiter: daily upload quota exceeded")

func New(rdb *redis.Client, opts Options) *Upload {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 4
	}
	if opts.DailyQuotaMB <= 0 {
		opts.DailyQuotaMB = 200
	}
	return &Upload{
		rdb:         rdb,
		maxInflight: opts.MaxInflight,
		dailyBytes:  int64(opts.DailyQuotaMB) << 20,
		sem:         map[string]chan struct{}{},
	}
}

func (u *Upload) quotaKey(userID string) string {
	return fmt.Sprintf("upload_quota:%s:%s", userID, time.Now().UTC().Format("2006-01-02"))
}

// Acquire reserves an upload slot and size bytes of today's quota. The
// returned release func must be called when the upload finishes.
func (u *Upload) Acquire(ctx context.Context, userID string, size int64) (func(), error) {
	total, err := u.rdb.IncrBy(ctx, u.quotaKey(userID), size).Result()
	if err != nil {
		// Redis being down must not block uploads; skip quota accounting.
		total = 0
	} else {
		// First write of the day sets the expiry.
		if total == size {
			u.rdb.Expire(ctx, u.quotaKey(userID), 48*time.Hour)
		}
		if total > u.dailyBytes {
			u.rdb.DecrBy(ctx, u.quotaKey(userID), size)
			return nil, ErrQuotaExceeded
		}
	}

	sem := u.userSem(userID)
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		u.rdb.DecrBy(context.WithoutCancel(ctx), u.quotaKey(userID), size)
		return nil, ctx.Err()
	}
	return func() { <-sem }, nil
}

func (u *Upload) userSem(userID string) chan struct{} {
	u.mu.Lock()
	defer u.mu.Unlock()
	sem, ok := u.sem[userID]
	if !ok {
		sem = make(chan struct{}, u.maxInflight)
		u.sem[userID] = sem
	}
	return sem
}
