package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutLimiterWithoutRedisAllows(t *testing.T) {
	l := NewCheckoutLimiter(nil, config.NewStaticStorefrontConfigHolder(config.DefaultStorefrontConfig()), nil)
	assert.False(t, l.Enabled())

	res, err := l.Allow(context.Background(), snowflake.ID(1))
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	release, err := l.Acquire(context.Background(), snowflake.ID(1))
	require.NoError(t, err)
	release()
}

func TestNilCheckoutLimiter(t *testing.T) {
	var l *CheckoutLimiter
	res, err := l.Allow(context.Background(), snowflake.ID(1))
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 10*time.Second, defaultBucketTTL(1, 5))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 0))
}

func TestCastHelpers(t *testing.T) {
	assert.Equal(t, int64(3), castToInt(int64(3)))
	assert.Equal(t, int64(2), castToInt(2.9))
	assert.Equal(t, 1.5, castToFloat("1.5"))
	assert.Equal(t, 0.0, castToFloat("x"))
}
