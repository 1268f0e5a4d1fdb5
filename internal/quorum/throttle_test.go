package quorum

import (
	"context"
	"testing"
	"time"
)

// TestThrottleAllowsThenBlocksWithinWindow requires a reachable Redis
// instance and skips itself when none answers; it is exercised where
// FLOWMESH_REDIS_ADDR points at a real instance, not in a hermetic run.
func TestThrottleAllowsThenBlocksWithinWindow(t *testing.T) {
	cfg := LoadThrottleConfig()
	th, err := NewThrottle(cfg)
	if err != nil {
		t.Skipf("redis unreachable, skipping: %v", err)
	}
	defer th.Close()

	ctx := context.Background()
	key := "test-key"

	ok, err := th.Allow(ctx, key, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !ok {
		t.Fatal("expected first Allow to succeed")
	}

	ok, err = th.Allow(ctx, key, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatal("expected second Allow within window to be blocked")
	}
}
