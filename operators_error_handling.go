// Error handling operators for RxGo
// 错误处理操作符实现，包含Catch, Retry, BackOffRetry
package rxgo

import (
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
)

// ============================================================================
// 错误处理操作符实现
// ============================================================================

// Catch 错误捕获操作符，当发生错误时切换到handler返回的Observable；
// handler返回nil时转发原来的错误
func Catch[T any](handler func(err error) *Observable[T]) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return newObservable(func(downstream *Subscriber[T]) func() {
			inner := newSubscriber(Observer[T]{
				Next:     downstream.Next,
				Complete: downstream.Complete,
				Error: func(err error) {
					var fallback *Observable[T]
					if perr := recoverAsError(func() { fallback = handler(err) }); perr != nil {
						downstream.Error(perr)
						return
					}
					if fallback == nil {
						downstream.Error(err)
						return
					}
					child := newSubscriber(downstream.AsObserver(), fallback.config)
					downstream.Add(child)
					fallback.subscribeWith(child)
				},
			}, source.config)
			downstream.Add(inner)
			source.subscribeWith(inner)
			return nil
		}, source.config)
	}
}

// Retry 重试操作符，发生错误时重新订阅源，最多count次；count<0表示无限重试
func Retry[T any](count int) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return newObservable(func(downstream *Subscriber[T]) func() {
			var (
				mu       sync.Mutex
				attempts int
				running  bool
				again    bool
			)

			// 同步失败的源在循环中重新订阅，避免递归
			var subscribe func()
			subscribe = func() {
				mu.Lock()
				if running {
					again = true
					mu.Unlock()
					return
				}
				running = true
				mu.Unlock()

				for {
					if downstream.Closed() {
						mu.Lock()
						running = false
						mu.Unlock()
						return
					}

					var inner *Subscriber[T]
					inner = newSubscriber(Observer[T]{
						Next:     downstream.Next,
						Complete: downstream.Complete,
						Error: func(err error) {
							mu.Lock()
							attempts++
							retry := count < 0 || attempts <= count
							mu.Unlock()

							if !retry {
								downstream.Error(err)
								return
							}
							downstream.Remove(inner)
							subscribe()
						},
					}, source.config)
					downstream.Add(inner)
					source.subscribeWith(inner)

					mu.Lock()
					if !again {
						running = false
						mu.Unlock()
						return
					}
					again = false
					mu.Unlock()
				}
			}

			subscribe()
			return nil
		}, source.config)
	}
}

// BackOffRetry 按退避策略重试：每次出错后等待NextBackOff()再重新订阅，
// 策略返回backoff.Stop时转发最后一个错误。订阅开始时重置策略。
//
// 所有订阅共享同一个policy，backoff.BackOff不是并发安全的，
// 结果会被多次或并发订阅时使用BackOffRetryWith。
func BackOffRetry[T any](policy backoff.BackOff, options ...Option) OperatorFunc[T, T] {
	return BackOffRetryWith[T](func() backoff.BackOff { return policy }, options...)
}

// BackOffRetryWith 与BackOffRetry相同，但每次订阅调用newPolicy创建独立的策略
func BackOffRetryWith[T any](newPolicy func() backoff.BackOff, options ...Option) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		config := newConfig(source.config, options)
		return newObservable(func(downstream *Subscriber[T]) func() {
			timer := &serialTimer{}
			downstream.Add(timer)
			policy := newPolicy()
			policy.Reset()

			var subscribe func()
			subscribe = func() {
				var inner *Subscriber[T]
				inner = newSubscriber(Observer[T]{
					Next:     downstream.Next,
					Complete: downstream.Complete,
					Error: func(err error) {
						wait := policy.NextBackOff()
						if wait == backoff.Stop {
							downstream.Error(fmt.Errorf("rxgo: retries exhausted: %w", err))
							return
						}
						downstream.Remove(inner)
						timer.set(config.Scheduler, wait, subscribe)
					},
				}, source.config)
				downstream.Add(inner)
				source.subscribeWith(inner)
			}

			subscribe()
			return nil
		}, config)
	}
}
