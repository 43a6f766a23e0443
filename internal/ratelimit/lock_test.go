package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockerWithoutRedis(t *testing.T) {
	l := NewLocker(nil)
	assert.Nil(t, l)

	_, err := l.LockEmployee(context.Background(), snowflake.ID(1), time.Second)
	assert.ErrorIs(t, err, ErrLockUnavailable)
}

func TestLockEmployeeValidates(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	l := NewLocker(client)
	require.NotNil(t, l)

	_, err := l.LockEmployee(context.Background(), 0, time.Second)
	assert.Error(t, err)
	_, err = l.LockEmployee(context.Background(), snowflake.ID(7), 0)
	assert.Error(t, err)
}

func TestLeaseReleaseIsSafe(t *testing.T) {
	var lease *Lease
	assert.NoError(t, lease.Release(context.Background()))
	assert.NoError(t, (&Lease{}).Release(context.Background()))
}

func TestEmployeeLockKey(t *testing.T) {
	assert.Equal(t, "giftflow:lock:employee:42", employeeLockKey(snowflake.ID(42)))
}
