// Transformation operators for RxGo
// 转换和过滤操作符：Map, Filter, Scan, Take, Skip 等
package rxgo

import "sync"

// ============================================================================
// 转换操作符
// ============================================================================

// Map 转换每个值；转换函数返回错误或panic时以错误终止
func Map[T, R any](transformer func(value T) (R, error)) OperatorFunc[T, R] {
	return func(source *Observable[T]) *Observable[R] {
		return lift(source, func(downstream *Subscriber[R], _ *Subscription) Observer[T] {
			return Observer[T]{
				Next: func(value T) {
					var result R
					var err error
					if perr := recoverAsError(func() { result, err = transformer(value) }); perr != nil {
						err = perr
					}
					if err != nil {
						downstream.Error(err)
						return
					}
					downstream.Next(result)
				},
				Error:    downstream.Error,
				Complete: downstream.Complete,
			}
		})
	}
}

// Filter 只转发满足谓词的值
func Filter[T any](predicate func(value T) bool) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return lift(source, func(downstream *Subscriber[T], _ *Subscription) Observer[T] {
			return Observer[T]{
				Next: func(value T) {
					var ok bool
					if err := recoverAsError(func() { ok = predicate(value) }); err != nil {
						downstream.Error(err)
						return
					}
					if ok {
						downstream.Next(value)
					}
				},
				Error:    downstream.Error,
				Complete: downstream.Complete,
			}
		})
	}
}

// Scan 累加器操作符，每个值都发射新的累加结果。
// 每次订阅都从seed重新开始。
func Scan[T, A any](accumulator func(acc A, value T) (A, error), seed A) OperatorFunc[T, A] {
	return func(source *Observable[T]) *Observable[A] {
		return lift(source, func(downstream *Subscriber[A], _ *Subscription) Observer[T] {
			var mu sync.Mutex
			acc := seed
			return Observer[T]{
				Next: func(value T) {
					mu.Lock()
					var next A
					var err error
					if perr := recoverAsError(func() { next, err = accumulator(acc, value) }); perr != nil {
						err = perr
					}
					if err == nil {
						acc = next
					}
					mu.Unlock()

					if err != nil {
						downstream.Error(err)
						return
					}
					downstream.Next(next)
				},
				Error:    downstream.Error,
				Complete: downstream.Complete,
			}
		})
	}
}

// Reduce 归约操作符，完成时发射最终的累加结果
func Reduce[T, A any](accumulator func(acc A, value T) (A, error), seed A) OperatorFunc[T, A] {
	return func(source *Observable[T]) *Observable[A] {
		return lift(source, func(downstream *Subscriber[A], _ *Subscription) Observer[T] {
			acc := seed
			return Observer[T]{
				Next: func(value T) {
					var next A
					var err error
					if perr := recoverAsError(func() { next, err = accumulator(acc, value) }); perr != nil {
						err = perr
					}
					if err != nil {
						downstream.Error(err)
						return
					}
					acc = next
				},
				Error: downstream.Error,
				Complete: func() {
					downstream.Next(acc)
					downstream.Complete()
				},
			}
		})
	}
}

// ============================================================================
// 过滤操作符
// ============================================================================

// Take 取前N个值后完成并取消源订阅
func Take[T any](count int) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		if count <= 0 {
			return Empty[T](WithConfig(source.config))
		}
		return lift(source, func(downstream *Subscriber[T], upstream *Subscription) Observer[T] {
			var mu sync.Mutex
			taken := 0
			return Observer[T]{
				Next: func(value T) {
					mu.Lock()
					if taken >= count {
						mu.Unlock()
						return
					}
					taken++
					last := taken == count
					mu.Unlock()

					downstream.Next(value)
					if last {
						upstream.Unsubscribe()
						downstream.Complete()
					}
				},
				Error:    downstream.Error,
				Complete: downstream.Complete,
			}
		})
	}
}

// Skip 跳过前N个值
func Skip[T any](count int) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return lift(source, func(downstream *Subscriber[T], _ *Subscription) Observer[T] {
			var mu sync.Mutex
			skipped := 0
			return Observer[T]{
				Next: func(value T) {
					mu.Lock()
					if skipped < count {
						skipped++
						mu.Unlock()
						return
					}
					mu.Unlock()
					downstream.Next(value)
				},
				Error:    downstream.Error,
				Complete: downstream.Complete,
			}
		})
	}
}

// TakeWhile 转发值直到谓词返回false，然后完成
func TakeWhile[T any](predicate func(value T) bool) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return lift(source, func(downstream *Subscriber[T], upstream *Subscription) Observer[T] {
			return Observer[T]{
				Next: func(value T) {
					var ok bool
					if err := recoverAsError(func() { ok = predicate(value) }); err != nil {
						downstream.Error(err)
						return
					}
					if !ok {
						upstream.Unsubscribe()
						downstream.Complete()
						return
					}
					downstream.Next(value)
				},
				Error:    downstream.Error,
				Complete: downstream.Complete,
			}
		})
	}
}

// TakeUntil 转发值直到notifier发射第一个值
func TakeUntil[T, N any](notifier *Observable[N]) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return newObservable(func(downstream *Subscriber[T]) func() {
			subscribeInner(downstream.Subscription, notifier, Observer[N]{
				Next:  func(N) { downstream.Complete() },
				Error: downstream.Error,
			})
			if downstream.Closed() {
				return nil
			}
			inner := newSubscriber(downstream.AsObserver(), source.config)
			downstream.Add(inner)
			source.subscribeWith(inner)
			return nil
		}, source.config)
	}
}

// DistinctUntilChanged 丢弃与前一个值相同的值
func DistinctUntilChanged[T comparable]() OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return lift(source, func(downstream *Subscriber[T], _ *Subscription) Observer[T] {
			var mu sync.Mutex
			var last T
			hasLast := false
			return Observer[T]{
				Next: func(value T) {
					mu.Lock()
					if hasLast && last == value {
						mu.Unlock()
						return
					}
					last = value
					hasLast = true
					mu.Unlock()
					downstream.Next(value)
				},
				Error:    downstream.Error,
				Complete: downstream.Complete,
			}
		})
	}
}

// StartWith 在源的值之前先发射给定的值
func StartWith[T any](values ...T) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return Concat(FromSlice(values, WithConfig(source.config)), source)
	}
}
