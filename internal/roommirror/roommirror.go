// Package roommirror copies room summaries into Redis so that other tools
// can watch room occupancy without talking to the socket server.
package roommirror

import (
	"context"
	"encoding/json"
	"time"

	"roomsync/internal/redis/redis_keys"
	"roomsync/internal/registry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run mirrors the registry into ns every interval until ctx is cancelled.
// The caller must own ns: stale keys are judged against this registry only.
func Run(ctx context.Context, rdc redis.UniversalClient, reg *registry.Registry, ns redis_keys.Namespace, every time.Duration) {
	tk := time.NewTicker(every)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				if err := syncOnce(ctx, rdc, reg, ns); err != nil {
					zap.L().Warn("roommirror.sync", zap.Error(err))
				}
			}
		}
	}()
}

// syncOnce writes one hash per live room and removes the hashes of rooms
// that are gone, in a single MULTI/EXEC round-trip.
func syncOnce(ctx context.Context, rdc redis.UniversalClient, reg *registry.Registry, ns redis_keys.Namespace) error {
	prev, err := rdc.SMembers(ctx, ns.ActiveRooms()).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	sums := reg.Summaries()
	live := make(map[string]struct{}, len(sums))

	pipe := rdc.TxPipeline()
	for _, s := range sums {
		key := ns.Room(s.ID)
		live[key] = struct{}{}

		waiting, err := json.Marshal(s.Waiting)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, key,
			"members", s.Members,
			"waiting", string(waiting),
			"artifact_length", s.ArtifactLength,
			"updated_at", s.UpdatedAt.Unix(),
		)
		pipe.SAdd(ctx, ns.ActiveRooms(), key)
	}
	for _, key := range prev {
		if _, ok := live[key]; ok {
			continue
		}
		pipe.Del(ctx, key)
		pipe.SRem(ctx, ns.ActiveRooms(), key)
	}

	if pipe.Len() == 0 {
		return nil
	}
	_, err = pipe.Exec(ctx)
	return err
}
