package engine

import (
	"math/rand"
	"time"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

// computeBackoff applies exponential backoff with jitter:
// min * 2^(attempts-1), clamped to max, with a uniform ±jitterFrac
// perturbation, the same RetryPolicy backoff formula used by other
// retry-driving components in this codebase.
func computeBackoff(spec workflow.RetrySpec, attempts int) time.Duration {
	minB := time.Duration(spec.MinBackoffMs) * time.Millisecond
	maxB := time.Duration(spec.MaxBackoffMs) * time.Millisecond
	if minB <= 0 {
		minB = time.Second
	}
	if maxB <= 0 {
		maxB = 30 * time.Second
	}
	if attempts < 1 {
		attempts = 1
	}
	d := minB
	for i := 1; i < attempts; i++ {
		d *= 2
		if d > maxB {
			d = maxB
			break
		}
	}
	jitter := spec.JitterFrac
	if jitter <= 0 {
		jitter = 0.2
	}
	delta := float64(d) * jitter
	offset := (rand.Float64()*2 - 1) * delta
	d = time.Duration(float64(d) + offset)
	if d < 0 {
		d = minB
	}
	return d
}

func maxAttempts(spec workflow.RetrySpec) int {
	if spec.MaxAttempts <= 0 {
		return 5
	}
	return spec.MaxAttempts
}
