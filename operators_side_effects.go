// Side effect operators for RxGo
// 副作用操作符实现
package rxgo

// Tap 在转发每个通知之前调用观察者的对应回调。
// 回调panic时以错误终止。
func Tap[T any](observer Observer[T]) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return lift(source, func(downstream *Subscriber[T], _ *Subscription) Observer[T] {
			return Observer[T]{
				Next: func(value T) {
					if observer.Next != nil {
						if err := recoverAsError(func() { observer.Next(value) }); err != nil {
							downstream.Error(err)
							return
						}
					}
					downstream.Next(value)
				},
				Error: func(err error) {
					if observer.Error != nil {
						if perr := recoverAsError(func() { observer.Error(err) }); perr != nil {
							err = perr
						}
					}
					downstream.Error(err)
				},
				Complete: func() {
					if observer.Complete != nil {
						if err := recoverAsError(observer.Complete); err != nil {
							downstream.Error(err)
							return
						}
					}
					downstream.Complete()
				},
			}
		})
	}
}

// DoOnNext 每个值到达时执行副作用
func DoOnNext[T any](action func(value T)) OperatorFunc[T, T] {
	return Tap(Observer[T]{Next: action})
}

// DoOnError 发生错误时执行副作用
func DoOnError[T any](action func(err error)) OperatorFunc[T, T] {
	return Tap(Observer[T]{Error: action})
}

// DoOnComplete 完成时执行副作用
func DoOnComplete[T any](action func()) OperatorFunc[T, T] {
	return Tap(Observer[T]{Complete: action})
}

// Finalize 订阅结束（完成、错误或取消订阅）时执行一次action
func Finalize[T any](action func()) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return newObservable(func(downstream *Subscriber[T]) func() {
			inner := newSubscriber(downstream.AsObserver(), source.config)
			downstream.Add(inner)
			source.subscribeWith(inner)
			return action
		}, source.config)
	}
}
