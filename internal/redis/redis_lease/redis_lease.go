// Package redis_lease makes one process the single owner of a Redis
// namespace. Room state lives in process memory, so a second process
// sharing the namespace would serve a diverging copy of every room.
package redis_lease

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrLeaseHeld = errors.New("lease held by another process")
	ErrLeaseLost = errors.New("lease lost")
)

var (
	//go:embed renew.lua
	renewSrc string
	//go:embed release.lua
	releaseSrc string

	renewScript   = redis.NewScript(renewSrc)
	releaseScript = redis.NewScript(releaseSrc)
)

type Lease struct {
	rdb   redis.UniversalClient
	key   string
	owner string
	ttl   time.Duration
}

// Acquire claims key for owner. It fails with ErrLeaseHeld while another
// owner's lease has not expired.
func Acquire(ctx context.Context, rdb redis.UniversalClient, key, owner string, ttl time.Duration) (*Lease, error) {
	ok, err := rdb.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeaseHeld, key)
	}
	zap.L().Info("lease.acquired", zap.String("key", key), zap.String("owner", owner))
	return &Lease{rdb: rdb, key: key, owner: owner, ttl: ttl}, nil
}

func (l *Lease) renew(ctx context.Context) error {
	n, err := renewScript.Run(ctx, l.rdb, []string{l.key}, l.owner, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Keep renews the lease every interval until ctx is done. The returned
// channel is closed once the lease turns out to belong to someone else;
// transient Redis errors are only logged.
func (l *Lease) Keep(ctx context.Context, every time.Duration) <-chan struct{} {
	lost := make(chan struct{})
	tk := time.NewTicker(every)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				err := l.renew(ctx)
				switch {
				case err == nil:
				case errors.Is(err, ErrLeaseLost):
					zap.L().Error("lease.lost", zap.String("key", l.key))
					close(lost)
					return
				default:
					zap.L().Warn("lease.renew", zap.String("key", l.key), zap.Error(err))
				}
			}
		}
	}()
	return lost
}

// Release deletes the key if this process still owns it.
func (l *Lease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.owner).Err()
}
