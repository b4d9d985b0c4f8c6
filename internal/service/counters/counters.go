// Package counters keeps per-gateway order counters and the per-IP
// creation throttle in Redis. Both degrade to no-ops when Redis is not
// configured.
package counters

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gitlab.com/distributed_lab/logan/v3"

	"github.com/straight-pay/gateway-svc/internal/data"
)

type Counters struct {
	rdb *redis.Client
	log *logan.Entry
}

// New creates the counters facade. rdb may be nil, in which case every
// operation is a no-op.
func New(rdb *redis.Client, log *logan.Entry) *Counters {
	return &Counters{rdb: rdb, log: log.WithField("service", "counters")}
}

func (c *Counters) Enabled() bool {
	return c != nil && c.rdb != nil
}

func counterKey(gatewayID int64, status int32) string {
	return fmt.Sprintf("gateway:%d:order_counters:%s", gatewayID, data.StatusName(status))
}

func (c *Counters) Increment(ctx context.Context, gatewayID int64, status int32) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Incr(ctx, counterKey(gatewayID, status)).Err(); err != nil {
		c.log.WithError(err).Warn("failed to increment order counter")
	}
}

func (c *Counters) Decrement(ctx context.Context, gatewayID int64, status int32) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Decr(ctx, counterKey(gatewayID, status)).Err(); err != nil {
		c.log.WithError(err).Warn("failed to decrement order counter")
	}
}

// OrderTransitioned moves the order between status counters.
func (c *Counters) OrderTransitioned(ctx context.Context, gatewayID int64, from, to int32) {
	if from == to {
		return
	}
	c.Decrement(ctx, gatewayID, from)
	c.Increment(ctx, gatewayID, to)
}

const throttleWindow = time.Minute

// Deny reports whether the IP exceeded the per-gateway creation limit
// within the sliding window. Fails open: a Redis error never blocks a
// legitimate request.
func (c *Counters) Deny(ctx context.Context, gatewayID int64, ip string, limit int64) bool {
	if !c.Enabled() || limit <= 0 {
		return false
	}

	key := fmt.Sprintf("gateway:%d:throttle:%s", gatewayID, ip)
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		c.log.WithError(err).Warn("failed to increment throttle counter")
		return false
	}
	if n == 1 {
		if err = c.rdb.Expire(ctx, key, throttleWindow).Err(); err != nil {
			c.log.WithError(err).Warn("failed to expire throttle counter")
		}
	}
	return n > limit
}
