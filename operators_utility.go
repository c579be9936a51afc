// Utility operators for RxGo
// 工具操作符实现，包含ToSlice, ToMap, Materialize, Dematerialize, DefaultIfEmpty等
package rxgo

// ============================================================================
// 收集操作符
// ============================================================================

// ToSlice 完成时以切片形式发射所有值
func ToSlice[T any]() OperatorFunc[T, []T] {
	return Reduce(func(acc []T, value T) ([]T, error) {
		return append(acc, value), nil
	}, []T(nil))
}

// ToMap 完成时发射以keySelector为键的map，键相同时保留后到的值
func ToMap[T any, K comparable](keySelector func(value T) K) OperatorFunc[T, map[K]T] {
	return func(source *Observable[T]) *Observable[map[K]T] {
		return Defer(func() *Observable[map[K]T] {
			return Reduce(func(acc map[K]T, value T) (map[K]T, error) {
				acc[keySelector(value)] = value
				return acc, nil
			}, make(map[K]T))(source)
		}, WithConfig(source.config))
	}
}

// ============================================================================
// 通知操作符
// ============================================================================

// Materialize 把每个通知（包括终止通知）作为值发射，然后完成
func Materialize[T any]() OperatorFunc[T, Notification[T]] {
	return func(source *Observable[T]) *Observable[Notification[T]] {
		return lift(source, func(downstream *Subscriber[Notification[T]], _ *Subscription) Observer[T] {
			return Observer[T]{
				Next: func(value T) {
					downstream.Next(NextNotification(value))
				},
				Error: func(err error) {
					downstream.Next(ErrorNotification[T](err))
					downstream.Complete()
				},
				Complete: func() {
					downstream.Next(CompleteNotification[T]())
					downstream.Complete()
				},
			}
		})
	}
}

// Dematerialize Materialize的逆操作，把通知值还原为对应的通知
func Dematerialize[T any]() OperatorFunc[Notification[T], T] {
	return func(source *Observable[Notification[T]]) *Observable[T] {
		return lift(source, func(downstream *Subscriber[T], _ *Subscription) Observer[Notification[T]] {
			return Observer[Notification[T]]{
				Next: func(n Notification[T]) {
					n.Accept(downstream.AsObserver())
				},
				Error:    downstream.Error,
				Complete: downstream.Complete,
			}
		})
	}
}

// ============================================================================
// 空序列处理
// ============================================================================

// DefaultIfEmpty 源没有发射任何值就完成时发射默认值
func DefaultIfEmpty[T any](defaultValue T) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return lift(source, func(downstream *Subscriber[T], _ *Subscription) Observer[T] {
			seen := false
			return Observer[T]{
				Next: func(value T) {
					seen = true
					downstream.Next(value)
				},
				Error: downstream.Error,
				Complete: func() {
					if !seen {
						downstream.Next(defaultValue)
					}
					downstream.Complete()
				},
			}
		})
	}
}

// SwitchIfEmpty 源没有发射任何值就完成时切换到other
func SwitchIfEmpty[T any](other *Observable[T]) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return newObservable(func(downstream *Subscriber[T]) func() {
			seen := false
			inner := newSubscriber(Observer[T]{
				Next: func(value T) {
					seen = true
					downstream.Next(value)
				},
				Error: downstream.Error,
				Complete: func() {
					if seen {
						downstream.Complete()
						return
					}
					if other == nil {
						downstream.Error(ErrNilObservable)
						return
					}
					child := newSubscriber(downstream.AsObserver(), other.config)
					downstream.Add(child)
					other.subscribeWith(child)
				},
			}, source.config)
			downstream.Add(inner)
			source.subscribeWith(inner)
			return nil
		}, source.config)
	}
}

// IgnoreElements 丢弃所有值，只转发终止通知
func IgnoreElements[T any]() OperatorFunc[T, T] {
	return Filter(func(T) bool { return false })
}
