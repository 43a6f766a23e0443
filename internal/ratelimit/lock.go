package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const keyEmployeeLock = "giftflow:lock:employee:%s"

// Deletes the key only while it still holds the caller's token.
const leaseReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrLockUnavailable = errors.New("lock_unavailable")
	ErrLockHeld        = errors.New("lock_held")
)

// Locker hands out per-employee leases backed by Redis SET NX.
type Locker struct {
	client  *redis.Client
	release *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(leaseReleaseScript),
	}
}

// Lease is a held employee lock. Release is idempotent and safe on nil.
type Lease struct {
	locker     *Locker
	key        string
	token      string
	EmployeeID snowflake.ID
	ExpiresAt  time.Time
}

func employeeLockKey(employeeID snowflake.ID) string {
	return fmt.Sprintf(keyEmployeeLock, employeeID.String())
}

// LockEmployee takes the employee's lock for ttl. It returns ErrLockHeld when
// another lease is live.
func (l *Locker) LockEmployee(ctx context.Context, employeeID snowflake.ID, ttl time.Duration) (*Lease, error) {
	if l == nil || l.client == nil {
		return nil, ErrLockUnavailable
	}
	if employeeID == 0 {
		return nil, errors.New("lock employee id is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive, got %s", ttl)
	}

	lease := &Lease{
		locker:     l,
		key:        employeeLockKey(employeeID),
		token:      uuid.NewString(),
		EmployeeID: employeeID,
		ExpiresAt:  time.Now().Add(ttl),
	}
	ok, err := l.client.SetNX(ctx, lease.key, lease.token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return lease, nil
}

func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.locker == nil || l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	return l.locker.release.Run(ctx, l.locker.client, []string{l.key}, token).Err()
}
