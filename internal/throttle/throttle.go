// Package throttle tracks failed logins and temporary bans per network
// block, backed by Redis so the state is shared across concurrent
// connections and survives restarts until the keys expire.
package throttle

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Smeruxa/STalk-Messenger/internal/metrics"
)

const (
	// banThreshold failed attempts within the window trigger a ban.
	banThreshold = 3
	// window bounds both the attempt counter and the ban flag.
	window = time.Hour
)

// LoginThrottle counts failed login attempts keyed by /24 subnet and
// bans the subnet after banThreshold failures. Redis errors degrade to
// fail-open: logins are never blocked because the throttle store is down.
type LoginThrottle struct {
	client *redis.Client
	logger zerolog.Logger
}

// New creates a login throttle. A nil client disables throttling
// entirely (development without Redis).
func New(client *redis.Client, logger zerolog.Logger) *LoginThrottle {
	return &LoginThrottle{client: client, logger: logger}
}

func triesKey(subnet string) string {
	return "login:tries:" + subnet
}

func banKey(subnet string) string {
	return "login:ban:" + subnet
}

// SubnetKey reduces a client address to its /24-equivalent prefix so
// that throttle state is shared by clients behind the same gateway.
// Non-IPv4 addresses fall back to the literal address.
func SubnetKey(addr string) string {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.*", v4[0], v4[1], v4[2])
	}
	return strings.TrimSpace(host)
}

// IsBanned reports whether the subnet currently has a ban flag set.
// Expired flags are evicted by Redis itself.
func (t *LoginThrottle) IsBanned(ctx context.Context, subnet string) bool {
	if t.client == nil {
		return false
	}
	exists, err := t.client.Exists(ctx, banKey(subnet)).Result()
	if err != nil {
		t.logger.Warn().Err(err).Str("subnet", subnet).Msg("throttle check failed, failing open")
		return false
	}
	return exists > 0
}

// RecordFailure increments the failed-attempt counter for the subnet.
// The first failure starts the 1-hour window; reaching the threshold
// sets a ban flag with its own 1-hour expiry.
func (t *LoginThrottle) RecordFailure(ctx context.Context, subnet string) {
	if t.client == nil {
		return
	}
	count, err := t.client.Incr(ctx, triesKey(subnet)).Result()
	if err != nil {
		t.logger.Warn().Err(err).Str("subnet", subnet).Msg("throttle increment failed")
		return
	}
	if count == 1 {
		t.client.Expire(ctx, triesKey(subnet), window)
	}
	metrics.LoginFailures.Inc()
	if count >= banThreshold {
		if err := t.client.Set(ctx, banKey(subnet), "1", window).Err(); err != nil {
			t.logger.Warn().Err(err).Str("subnet", subnet).Msg("throttle ban set failed")
			return
		}
		metrics.LoginBans.Inc()
		t.logger.Warn().
			Str("type", "security").
			Str("event", "subnet_banned").
			Str("subnet", subnet).
			Int64("failures", count).
			Msg("subnet banned after repeated login failures")
	}
}

// Clear removes the attempt counter after a successful login. A ban
// flag, once set, is left to expire on its own.
func (t *LoginThrottle) Clear(ctx context.Context, subnet string) {
	if t.client == nil {
		return
	}
	if err := t.client.Del(ctx, triesKey(subnet)).Err(); err != nil {
		t.logger.Warn().Err(err).Str("subnet", subnet).Msg("throttle clear failed")
	}
}
