package service

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// withTimeout runs fn with a deadline of d and stops waiting once it passes.
// fn receives the bounded context; a provider that ignores it keeps running
// in the background but its result is discarded.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome{v: v, err: err}
	}()

	var zero T
	select {
	case o := <-ch:
		if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrProviderTimeout, d)
		}
		return o.v, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", ErrProviderTimeout, d)
		}
		return zero, ctx.Err()
	}
}
