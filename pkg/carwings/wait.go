package carwings

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrPollExhausted is returned by Wait when every attempt came back not ready.
var ErrPollExhausted = errors.New("carwings: operation not ready after all poll attempts")

var errNotReady = errors.New("not ready")

// Wait calls poll every interval until it reports ready, returns an error, the
// attempts run out or ctx is done. attempts <= 0 polls until ctx is done. The
// first poll happens immediately.
//
// The session itself never waits; this is a convenience for callers that want
// the usual fixed cadence (the official app polls every 20 seconds).
func Wait(ctx context.Context, interval time.Duration, attempts int, poll func(ctx context.Context) (bool, error)) error {
	var b backoff.BackOff = backoff.NewConstantBackOff(interval)
	if attempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(attempts-1))
	}
	b = backoff.WithContext(b, ctx)

	err := backoff.Retry(func() error {
		ready, err := poll(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ready {
			return errNotReady
		}
		return nil
	}, b)
	if errors.Is(err, errNotReady) {
		return ErrPollExhausted
	}
	return err
}
