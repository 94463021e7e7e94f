package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"roomsync/internal/redis/redis_keys"

	"github.com/redis/go-redis/v9"
)

// roomEvent is the payload published on a room channel. Sender lets every
// subscriber skip the acting participant's own connection.
type roomEvent struct {
	Sender string          `json:"sender"`
	Frame  json.RawMessage `json:"frame"`
}

// RedisFanout routes broadcasts through the room channels of one instance
// namespace. The namespace must be owned by this process (see
// redis_lease): room state is not shared, only the delivery path is.
type RedisFanout struct {
	rdb    redis.UniversalClient
	ns     redis_keys.Namespace
	subMgr *subscriptionManager
}

func NewRedisFanout(ctx context.Context, rdb redis.UniversalClient, hub *Hub, ns redis_keys.Namespace) *RedisFanout {
	return &RedisFanout{
		rdb:    rdb,
		ns:     ns,
		subMgr: newSubscriptionManager(ctx, redisSubscribe(rdb), ns.RoomEvents, hub),
	}
}

func (f *RedisFanout) Publish(ctx context.Context, roomID, senderID string, msg []byte) error {
	payload, err := json.Marshal(roomEvent{Sender: senderID, Frame: msg})
	if err != nil {
		return err
	}
	if err := f.rdb.Publish(ctx, f.ns.RoomEvents(roomID), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", roomID, err)
	}
	return nil
}

func (f *RedisFanout) Attach(roomID string) { f.subMgr.Subscribe(roomID) }
func (f *RedisFanout) Detach(roomID string) { f.subMgr.Unsubscribe(roomID) }
