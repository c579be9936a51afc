// Advanced operators and factory functions for RxGo
// 高级操作符和工厂函数实现，包含Generate, Using, GroupBy, WithLatestFrom, Timestamp等
package rxgo

import (
	"sync"
	"time"
)

// ============================================================================
// 高级工厂函数
// ============================================================================

// Generate 使用状态机同步生成序列：condition为true时发射resultSelector(state)，然后用iterate推进状态
func Generate[S, T any](initialState S, condition func(state S) bool, iterate func(state S) S, resultSelector func(state S) T, options ...Option) *Observable[T] {
	return newObservable(func(subscriber *Subscriber[T]) func() {
		for state := initialState; condition(state); state = iterate(state) {
			if subscriber.Closed() {
				return nil
			}
			subscriber.Next(resultSelector(state))
		}
		subscriber.Complete()
		return nil
	}, newConfig(nil, options))
}

// Using 每次订阅创建一个资源，用它构造Observable；订阅结束时释放资源
func Using[R, T any](resourceFactory func() (R, error), observableFactory func(resource R) *Observable[T], dispose func(resource R), options ...Option) *Observable[T] {
	return newObservable(func(downstream *Subscriber[T]) func() {
		resource, err := resourceFactory()
		if err != nil {
			downstream.Error(err)
			return nil
		}

		var once sync.Once
		release := func() {
			once.Do(func() {
				if dispose != nil {
					dispose(resource)
				}
			})
		}

		var source *Observable[T]
		if perr := recoverAsError(func() { source = observableFactory(resource) }); perr != nil {
			release()
			downstream.Error(perr)
			return nil
		}
		if source == nil {
			release()
			downstream.Error(ErrNilObservable)
			return nil
		}
		inner := newSubscriber(downstream.AsObserver(), source.config)
		downstream.Add(inner)
		source.subscribeWith(inner)
		return release
	}, newConfig(nil, options))
}

// ============================================================================
// 分组
// ============================================================================

// GroupedObservable 同一个键的所有值组成的热序列
type GroupedObservable[K comparable, T any] struct {
	*Observable[T]
	Key K
}

// GroupBy 根据键选择器对值进行分组。
// 每出现一个新键就发射一个GroupedObservable，订阅者需要在收到分组时立即订阅，
// 否则会错过该分组的值。源终止时所有分组随之终止。
func GroupBy[T any, K comparable](keySelector func(value T) K) OperatorFunc[T, *GroupedObservable[K, T]] {
	return func(source *Observable[T]) *Observable[*GroupedObservable[K, T]] {
		return lift(source, func(downstream *Subscriber[*GroupedObservable[K, T]], _ *Subscription) Observer[T] {
			groups := make(map[K]*PublishSubject[T])
			var order []*PublishSubject[T]

			terminate := func(n Notification[T]) {
				for _, group := range order {
					if n.Kind == KindError {
						group.Error(n.Err)
					} else {
						group.Complete()
					}
				}
			}

			return Observer[T]{
				Next: func(value T) {
					var key K
					if err := recoverAsError(func() { key = keySelector(value) }); err != nil {
						terminate(ErrorNotification[T](err))
						downstream.Error(err)
						return
					}
					group, exists := groups[key]
					if !exists {
						group = NewPublishSubject[T](WithConfig(source.config))
						groups[key] = group
						order = append(order, group)
						downstream.Next(&GroupedObservable[K, T]{Observable: group.AsObservable(), Key: key})
					}
					group.Next(value)
				},
				Error: func(err error) {
					terminate(ErrorNotification[T](err))
					downstream.Error(err)
				},
				Complete: func() {
					terminate(CompleteNotification[T]())
					downstream.Complete()
				},
			}
		})
	}
}

// ============================================================================
// 组合操作符扩展
// ============================================================================

// WithLatestFrom 源发射值时与other的最新值组合。
// other还没有值时源的值被丢弃；other完成不影响结果，other出错时结果以同样的错误终止。
func WithLatestFrom[T, U, R any](other *Observable[U], combiner func(value T, latest U) (R, error)) OperatorFunc[T, R] {
	return func(source *Observable[T]) *Observable[R] {
		return newObservable(func(downstream *Subscriber[R]) func() {
			var (
				mu       sync.Mutex
				latest   U
				hasValue bool
			)

			subscribeInner(downstream.Subscription, other, Observer[U]{
				Next: func(value U) {
					mu.Lock()
					latest, hasValue = value, true
					mu.Unlock()
				},
				Error: downstream.Error,
			})
			if downstream.Closed() {
				return nil
			}

			subscribeInner(downstream.Subscription, source, Observer[T]{
				Next: func(value T) {
					mu.Lock()
					ready, current := hasValue, latest
					mu.Unlock()
					if !ready {
						return
					}
					var result R
					var err error
					if perr := recoverAsError(func() { result, err = combiner(value, current) }); perr != nil {
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
			})
			return nil
		}, source.config)
	}
}

// Race Amb的别名
func Race[T any](observables ...*Observable[T]) *Observable[T] {
	return Amb(observables...)
}

// ============================================================================
// 时间标记
// ============================================================================

// Timestamped 带有到达时间的值
type Timestamped[T any] struct {
	Value     T
	Timestamp time.Time
}

// TimeIntervalValue 带有与上一个值（或订阅时刻）间隔的值
type TimeIntervalValue[T any] struct {
	Value    T
	Interval time.Duration
}

// Timestamp 用调度器的当前时间标记每个值
func Timestamp[T any]() OperatorFunc[T, Timestamped[T]] {
	return func(source *Observable[T]) *Observable[Timestamped[T]] {
		scheduler := source.config.Scheduler
		return Map(func(value T) (Timestamped[T], error) {
			return Timestamped[T]{Value: value, Timestamp: scheduler.Now()}, nil
		})(source)
	}
}

// TimeInterval 计算每个值与前一个值之间的间隔，第一个值相对于订阅时刻
func TimeInterval[T any]() OperatorFunc[T, TimeIntervalValue[T]] {
	return func(source *Observable[T]) *Observable[TimeIntervalValue[T]] {
		scheduler := source.config.Scheduler
		return lift(source, func(downstream *Subscriber[TimeIntervalValue[T]], _ *Subscription) Observer[T] {
			last := scheduler.Now()
			return Observer[T]{
				Next: func(value T) {
					now := scheduler.Now()
					interval := now.Sub(last)
					last = now
					downstream.Next(TimeIntervalValue[T]{Value: value, Interval: interval})
				},
				Error:    downstream.Error,
				Complete: downstream.Complete,
			}
		})
	}
}
