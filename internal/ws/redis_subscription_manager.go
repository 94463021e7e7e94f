package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var errEmptyFrame = errors.New("room event without frame")

// subscribeFunc opens a subscription to channel that lives until ctx is
// done or the closer is called.
type subscribeFunc func(ctx context.Context, channel string) (<-chan *redis.Message, io.Closer)

func redisSubscribe(rdb redis.UniversalClient) subscribeFunc {
	return func(ctx context.Context, channel string) (<-chan *redis.Message, io.Closer) {
		ps := rdb.Subscribe(ctx, channel)
		return ps.Channel(), ps
	}
}

// subscriptionManager guarantees that we have **exactly one** Redis
// subscription per room channel ― no matter how many websocket clients sit
// in the same room.
type subscriptionManager struct {
	ctx       context.Context
	subscribe subscribeFunc
	channel   func(roomID string) string
	hub       *Hub
	mu        sync.Mutex
	subs      map[string]*subEntry // roomID ➜ subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(ctx context.Context, subscribe subscribeFunc, channel func(string) string, hub *Hub) *subscriptionManager {
	return &subscriptionManager{
		ctx:       ctx,
		subscribe: subscribe,
		channel:   channel,
		hub:       hub,
		subs:      make(map[string]*subEntry),
	}
}

// Subscribe ensures that the process is subscribed to the room's channel;
// subsequent calls for the same room only increment the ref‑counter.
func (sm *subscriptionManager) Subscribe(roomID string) {
	sm.mu.Lock()
	if e, ok := sm.subs[roomID]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	// First consumer → create the SUB and its fan‑out loop.
	ctx, cancel := context.WithCancel(sm.ctx)
	msgs, closer := sm.subscribe(ctx, sm.channel(roomID))

	sm.subs[roomID] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	go func() {
		defer closer.Close()
		sm.pump(ctx, roomID, msgs)
	}()
}

// Unsubscribe decrements the ref‑counter and tears the SUB down when the
// last websocket client leaves the room.
func (sm *subscriptionManager) Unsubscribe(roomID string) {
	sm.mu.Lock()
	e, ok := sm.subs[roomID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, roomID)
	sm.mu.Unlock()

	// Outside the lock → stop the fan‑out goroutine.
	e.cancel()
}

// pump hands every message on msgs to the room's local connections except
// the sender's, until ctx is done or msgs is closed.
func (sm *subscriptionManager) pump(ctx context.Context, roomID string, msgs <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok { // Redis connection closed.
				return
			}
			sender, frame, err := unwrapRoomEvent(m.Payload)
			if err != nil {
				zap.L().Warn("ws.unwrap_event_failed", zap.String("room", roomID), zap.Error(err))
				continue
			}
			sm.hub.Broadcast(roomID, sender, frame)
		}
	}
}

// unwrapRoomEvent splits
//
//	{"sender":"p1","frame":{"event":"server/message","args":[…]}}
//
// into the sender id and the raw frame that goes on the wire.
func unwrapRoomEvent(payload string) (string, []byte, error) {
	var ev roomEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return "", nil, err
	}
	if len(ev.Frame) == 0 {
		return "", nil, errEmptyFrame
	}
	return ev.Sender, ev.Frame, nil
}
