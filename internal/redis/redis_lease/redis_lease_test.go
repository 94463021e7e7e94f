package redis_lease

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	key = "roomsync:test:owner"
	ttl = 30 * time.Second
)

func TestAcquire(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectSetNX(key, "a", ttl).SetVal(true)
	l, err := Acquire(ctx, rdb, key, "a", ttl)
	require.NoError(t, err)
	require.NotNil(t, l)

	mock.ExpectSetNX(key, "b", ttl).SetVal(false)
	_, err = Acquire(ctx, rdb, key, "b", ttl)
	assert.ErrorIs(t, err, ErrLeaseHeld)

	mock.ExpectSetNX(key, "b", ttl).SetErr(errors.New("conn refused"))
	_, err = Acquire(ctx, rdb, key, "b", ttl)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrLeaseHeld)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRenew(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := &Lease{rdb: rdb, key: key, owner: "a", ttl: ttl}

	mock.ExpectEvalSha(renewScript.Hash(), []string{key}, "a", ttl.Milliseconds()).SetVal(int64(1))
	require.NoError(t, l.renew(context.Background()))

	mock.ExpectEvalSha(renewScript.Hash(), []string{key}, "a", ttl.Milliseconds()).SetVal(int64(0))
	assert.ErrorIs(t, l.renew(context.Background()), ErrLeaseLost)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKeep_SignalsLoss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := &Lease{rdb: rdb, key: key, owner: "a", ttl: ttl}

	mock.ExpectEvalSha(renewScript.Hash(), []string{key}, "a", ttl.Milliseconds()).SetErr(errors.New("timeout"))
	mock.ExpectEvalSha(renewScript.Hash(), []string{key}, "a", ttl.Milliseconds()).SetVal(int64(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	select {
	case <-l.Keep(ctx, 10*time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("lease loss not signalled")
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := &Lease{rdb: rdb, key: key, owner: "a", ttl: ttl}

	mock.ExpectEvalSha(releaseScript.Hash(), []string{key}, "a").SetVal(int64(1))
	require.NoError(t, l.Release(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
