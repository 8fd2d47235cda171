// Package loader wraps slow reads with a timeout-and-retry contract: a fetch
// that exceeds the deadline is abandoned and retried exactly once after a
// short backoff. Definitive failures (not found, access denied) are never
// retried.
package loader

import (
	"context"
	"strings"
	"time"

	"qrfeedback/internal/types"
)

const (
	// DefaultTimeout is how long a single fetch attempt may run.
	DefaultTimeout = 15 * time.Second
	// DefaultBackoff is the pause between the first timeout and the retry.
	DefaultBackoff = 2 * time.Second
)

// Options configures Load. The zero value uses the defaults above with real
// timers.
type Options struct {
	Timeout time.Duration
	Backoff time.Duration

	// After returns a channel that fires after d. Defaults to time.After.
	After func(d time.Duration) <-chan time.Time
	// Sleep pauses for d or until ctx is done. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnSlow is invoked when the first attempt times out, before the retry.
	// Surfaces the slow-connection state to the caller. May be nil.
	OnSlow func()
}

func (o *Options) withDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	if o.After == nil {
		o.After = time.After
	}
	if o.Sleep == nil {
		o.Sleep = func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

type fetchResult[T any] struct {
	value T
	err   error
}

// Load runs fetch with the timeout-and-retry contract:
//
//   - The attempt races fetch against the timeout. On timeout the in-flight
//     fetch is abandoned (its goroutine may still complete; the result is
//     discarded), OnSlow fires, and exactly one retry starts after the
//     backoff.
//   - A second timeout is terminal and yields a load-timeout error; the
//     caller decides how to recover (typically a manual refresh).
//   - A fetch error is surfaced immediately with no retry. Not-found and
//     access-denied errors in particular are definitive answers, not
//     transient failures.
func Load[T any](ctx context.Context, fetch func(context.Context) (T, error), opts Options) (T, error) {
	opts.withDefaults()
	var zero T

	for attempt := 0; attempt < 2; attempt++ {
		ch := make(chan fetchResult[T], 1)
		go func() {
			v, err := fetch(ctx)
			ch <- fetchResult[T]{value: v, err: err}
		}()

		select {
		case res := <-ch:
			if res.err != nil {
				return zero, res.err
			}
			return res.value, nil
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-opts.After(opts.Timeout):
			if attempt == 1 {
				return zero, types.NewAppError(types.ErrCodeLoadTimeout,
					"loading timed out after retry", nil)
			}
			if opts.OnSlow != nil {
				opts.OnSlow()
			}
			if err := opts.Sleep(ctx, opts.Backoff); err != nil {
				return zero, err
			}
		}
	}

	// Unreachable: the second attempt always returns above.
	return zero, types.NewAppError(types.ErrCodeLoadTimeout, "loading timed out", nil)
}

// IsDefinitive reports whether err is a definitive outcome (not found or
// access denied) rather than a transient failure. Callers use this to decide
// between the redirect contract and the retry affordance.
func IsDefinitive(err error) bool {
	appErr, ok := types.AsAppError(err)
	if !ok {
		return false
	}
	code := string(appErr.Code)
	return strings.HasPrefix(code, "not_found_") || strings.HasPrefix(code, "auth_")
}
