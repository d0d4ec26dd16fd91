// Package retry provides exponential backoff with jitter, shared by the
// executor's strategy-retry path and the notification callback pollers.
package retry

import (
	"math/rand/v2"
	"time"
)

// Config controls exponential backoff.
type Config struct {
	MaxRetries int           // max retry attempts (0 = no retry)
	BaseDelay  time.Duration // initial backoff delay
	MaxDelay   time.Duration // maximum backoff delay
}

// DefaultConfig returns sensible defaults (3 retries, 2s base, 30s cap).
func DefaultConfig() Config {
	return Config{MaxRetries: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
}

// PollBackoff is the cap used by long-poll transport-failure backoff (§4.L).
func PollBackoff() Config {
	return Config{MaxRetries: 0, BaseDelay: 1 * time.Second, MaxDelay: 60 * time.Second}
}

// Do runs fn, retrying on error with exponential backoff + jitter.
// Returns the first successful result or the last error after all retries.
func Do[T any](fn func() (T, error), cfg Config) (result T, attempts int, err error) {
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err = fn()
		if err == nil {
			return result, attempt + 1, nil
		}
		if attempt < cfg.MaxRetries {
			time.Sleep(Backoff(cfg.BaseDelay, cfg.MaxDelay, attempt))
		}
	}
	return result, cfg.MaxRetries + 1, err
}

// Backoff computes delay = min(base * 2^attempt, max) + jitter(±25%).
func Backoff(base, max time.Duration, attempt int) time.Duration {
	delay := base << uint(attempt)
	if delay > max || delay <= 0 {
		delay = max
	}

	quarter := delay / 4
	if quarter > 0 {
		jitter := time.Duration(rand.Int64N(int64(quarter*2))) - quarter
		delay += jitter
	}
	return delay
}

// NextPollDelay returns the next backoff delay for a poll loop's transport
// failure counter, capped at 60s per §4.L.
func NextPollDelay(failures int) time.Duration {
	cfg := PollBackoff()
	return Backoff(cfg.BaseDelay, cfg.MaxDelay, failures)
}
