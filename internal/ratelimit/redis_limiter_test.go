package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowFailsOpenWithoutRedis(t *testing.T) {
	ctx := context.Background()

	var nilLimiter *Limiter
	assert.True(t, nilLimiter.Allow(ctx, "payment_verify", "user-1", 10, time.Minute))

	noClient := &Limiter{}
	assert.True(t, noClient.Allow(ctx, "payment_verify", "user-1", 10, time.Minute))

	withClient := NewLimiter(nil)
	assert.True(t, withClient.Allow(ctx, "payment_verify", "user-1", 0, time.Minute))
}
