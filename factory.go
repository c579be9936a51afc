// Factory functions for RxGo
// 创建操作符：从值、切片、通道、定时器等创建Observable
package rxgo

import (
	"context"
	"time"
)

// ============================================================================
// 基础创建操作符
// ============================================================================

// Just 依次发射给定的值然后完成
func Just[T any](values ...T) *Observable[T] {
	return FromSlice(values)
}

// Of Just的别名
func Of[T any](values ...T) *Observable[T] {
	return FromSlice(values)
}

// FromSlice 从切片创建Observable
func FromSlice[T any](values []T, options ...Option) *Observable[T] {
	return Create(func(s *Subscriber[T]) func() {
		for _, value := range values {
			if s.Closed() {
				return nil
			}
			s.Next(value)
		}
		s.Complete()
		return nil
	}, options...)
}

// Range 发射[start, start+count)之间的整数
func Range(start, count int, options ...Option) *Observable[int] {
	return Create(func(s *Subscriber[int]) func() {
		for i := start; i < start+count; i++ {
			if s.Closed() {
				return nil
			}
			s.Next(i)
		}
		s.Complete()
		return nil
	}, options...)
}

// Empty 立即完成
func Empty[T any](options ...Option) *Observable[T] {
	return Create(func(s *Subscriber[T]) func() {
		s.Complete()
		return nil
	}, options...)
}

// Never 永远不发射任何通知
func Never[T any](options ...Option) *Observable[T] {
	return Create(func(*Subscriber[T]) func() {
		return nil
	}, options...)
}

// Throw 立即以错误终止
func Throw[T any](err error, options ...Option) *Observable[T] {
	return Create(func(s *Subscriber[T]) func() {
		s.Error(err)
		return nil
	}, options...)
}

// Defer 每次订阅时才调用工厂函数创建Observable
func Defer[T any](factory func() *Observable[T], options ...Option) *Observable[T] {
	return Create(func(s *Subscriber[T]) func() {
		inner := factory()
		if inner == nil {
			s.Error(ErrNilObservable)
			return nil
		}
		child := newSubscriber(s.AsObserver(), inner.config)
		s.Add(child)
		inner.subscribeWith(child)
		return nil
	}, options...)
}

// FromChannel 从通道创建Observable，通道关闭时完成。
// 读取在独立的goroutine中进行，ctx取消或取消订阅时停止。
func FromChannel[T any](ctx context.Context, ch <-chan T, options ...Option) *Observable[T] {
	return Create(func(s *Subscriber[T]) func() {
		ctx, cancel := context.WithCancel(ctx)
		go func() {
			for {
				select {
				case <-ctx.Done():
					if err := context.Cause(ctx); err != nil && !s.Closed() {
						s.Error(err)
					}
					return
				case value, ok := <-ch:
					if !ok {
						s.Complete()
						return
					}
					s.Next(value)
				}
			}
		}()
		return cancel
	}, options...)
}

// ============================================================================
// 时间相关创建操作符
// ============================================================================

// Interval 每隔period发射一个递增的序号，从0开始
func Interval(period time.Duration, options ...Option) *Observable[int] {
	config := newConfig(nil, options)
	return newObservable(func(s *Subscriber[int]) func() {
		counter := 0
		ticker := SchedulePeriodically(config.Scheduler, func() {
			n := counter
			counter++
			s.Next(n)
		}, period)
		return ticker.Unsubscribe
	}, config)
}

// Timer 延迟delay后发射0然后完成
func Timer(delay time.Duration, options ...Option) *Observable[int] {
	config := newConfig(nil, options)
	return newObservable(func(s *Subscriber[int]) func() {
		timer := config.Scheduler.ScheduleWithDelay(func() {
			s.Next(0)
			s.Complete()
		}, delay)
		return timer.Unsubscribe
	}, config)
}
