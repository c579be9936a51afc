// Blocking operations for RxGo
// 阻塞操作：在调用方goroutine上等待序列终止
package rxgo

import (
	"context"
	"fmt"
)

// ============================================================================
// 阻塞操作实现
// ============================================================================

// Collect 订阅并阻塞直到序列终止，返回收到的所有值。
// 序列以错误终止或ctx取消时只返回错误。
func Collect[T any](ctx context.Context, source *Observable[T]) ([]T, error) {
	var values []T
	err := ForEach(ctx, source, func(value T) {
		values = append(values, value)
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// ForEach 对每个值调用action并阻塞直到序列终止
func ForEach[T any](ctx context.Context, source *Observable[T], action func(value T)) error {
	done := make(chan error, 1)
	sub := source.Subscribe(Observer[T]{
		Next:     action,
		Error:    func(err error) { done <- err },
		Complete: func() { done <- nil },
	})
	defer sub.Unsubscribe()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrUnsubscribed, context.Cause(ctx))
	}
}

// First 阻塞等待第一个值，序列为空时返回ErrEmpty
func First[T any](ctx context.Context, source *Observable[T]) (T, error) {
	values, err := Collect(ctx, Take[T](1)(source))
	if err != nil {
		var zero T
		return zero, err
	}
	if len(values) == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return values[0], nil
}

// Last 阻塞等待最后一个值，序列为空时返回ErrEmpty
func Last[T any](ctx context.Context, source *Observable[T]) (T, error) {
	var last T
	seen := false
	err := ForEach(ctx, source, func(value T) {
		last = value
		seen = true
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if !seen {
		return last, ErrEmpty
	}
	return last, nil
}
