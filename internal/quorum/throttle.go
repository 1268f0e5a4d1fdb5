package quorum

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flowmesh/flowmesh/internal/platform/envutil"
)

// Throttle rate-limits how often a given key (a signal id, a topic) may
// fire by holding a short-lived Redis key for the duration of the
// window; a second call inside the window is told to skip. Grounded on
// the same redis connection setup used elsewhere in this codebase
// (address-from-env, ping-on-construct), repurposed from a pub/sub
// transport to a shared cache.
type Throttle struct {
	rdb *goredis.Client
}

// ThrottleConfig mirrors the env-driven construction style used by other
// redis client setup in this codebase.
type ThrottleConfig struct {
	Addr     string
	Password string
	DB       int
}

func LoadThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		Addr:     envutil.String("FLOWMESH_REDIS_ADDR", "localhost:6379"),
		Password: envutil.String("FLOWMESH_REDIS_PASSWORD", ""),
		DB:       envutil.Int("FLOWMESH_REDIS_DB", 0),
	}
}

func NewThrottle(cfg ThrottleConfig) (*Throttle, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("quorum: redis ping: %w", err)
	}
	return &Throttle{rdb: rdb}, nil
}

// Allow reports whether key may fire now, given window. It uses SET NX
// with an expiry so the check-and-mark is a single atomic round trip.
func (t *Throttle) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := t.rdb.SetNX(ctx, "throttle:"+key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("quorum: throttle check: %w", err)
	}
	return ok, nil
}

func (t *Throttle) Close() error {
	return t.rdb.Close()
}
