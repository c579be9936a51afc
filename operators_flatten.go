// Flattening operators for RxGo
// 高阶Observable的展平策略：concat、merge、switch、exhaust
package rxgo

import (
	"sync"
)

// ============================================================================
// Merge / Concat
// ============================================================================

// MergeAll 每个内部Observable到达时立即订阅，交错转发所有值。
// concurrency<=0 表示不限制同时订阅的数量，超出的内部Observable排队等待。
func MergeAll[T any](concurrency int) OperatorFunc[*Observable[T], T] {
	return func(source *Observable[*Observable[T]]) *Observable[T] {
		return mergeInternals(source, concurrency, identityProject[T])
	}
}

// ConcatAll 严格按到达顺序逐个订阅内部Observable，前一个完成后才订阅下一个
func ConcatAll[T any]() OperatorFunc[*Observable[T], T] {
	return MergeAll[T](1)
}

// MergeMap 把每个值映射为Observable并合并
func MergeMap[T, R any](project func(value T) (*Observable[R], error), concurrency int) OperatorFunc[T, R] {
	return func(source *Observable[T]) *Observable[R] {
		return mergeInternals(source, concurrency, project)
	}
}

// ConcatMap 把每个值映射为Observable并按顺序连接
func ConcatMap[T, R any](project func(value T) (*Observable[R], error)) OperatorFunc[T, R] {
	return MergeMap(project, 1)
}

func identityProject[T any](inner *Observable[T]) (*Observable[T], error) {
	return inner, nil
}

// callProject 调用映射函数，把panic和nil结果转换为错误
func callProject[T, R any](project func(value T) (*Observable[R], error), value T) (*Observable[R], error) {
	var inner *Observable[R]
	var err error
	if perr := recoverAsError(func() { inner, err = project(value) }); perr != nil {
		return nil, perr
	}
	if err == nil && inner == nil {
		return nil, ErrNilObservable
	}
	return inner, err
}

// mergeInternals 同时最多订阅concurrency个内部Observable，其余的排队。
// 外部完成且所有内部都完成后才完成。
func mergeInternals[T, R any](source *Observable[T], concurrency int, project func(value T) (*Observable[R], error)) *Observable[R] {
	return newObservable(func(downstream *Subscriber[R]) func() {
		var (
			mu        sync.Mutex
			active    int
			buffer    []*Observable[R]
			outerDone bool
		)

		checkComplete := func() {
			mu.Lock()
			done := outerDone && active == 0 && len(buffer) == 0
			mu.Unlock()
			if done {
				downstream.Complete()
			}
		}

		var start func(inner *Observable[R])
		onInnerComplete := func() {
			mu.Lock()
			if len(buffer) > 0 {
				next := buffer[0]
				buffer = buffer[1:]
				mu.Unlock()
				start(next)
				return
			}
			active--
			mu.Unlock()
			checkComplete()
		}
		start = func(inner *Observable[R]) {
			subscribeInner(downstream.Subscription, inner, Observer[R]{
				Next:     downstream.Next,
				Error:    downstream.Error,
				Complete: onInnerComplete,
			})
		}

		outer := newSubscriber(Observer[T]{
			Next: func(value T) {
				inner, err := callProject(project, value)
				if err != nil {
					downstream.Error(err)
					return
				}

				mu.Lock()
				if concurrency > 0 && active >= concurrency {
					buffer = append(buffer, inner)
					mu.Unlock()
					return
				}
				active++
				mu.Unlock()
				start(inner)
			},
			Error: downstream.Error,
			Complete: func() {
				mu.Lock()
				outerDone = true
				mu.Unlock()
				checkComplete()
			},
		}, source.config)

		downstream.Add(outer)
		source.subscribeWith(outer)
		return nil
	}, source.config)
}

// ============================================================================
// Switch
// ============================================================================

// SwitchAll 只保留最新到达的内部订阅，新的内部Observable到达时取消前一个
func SwitchAll[T any]() OperatorFunc[*Observable[T], T] {
	return func(source *Observable[*Observable[T]]) *Observable[T] {
		return switchInternals(source, identityProject[T])
	}
}

// SwitchMap 把每个值映射为Observable，只转发最新的那个
func SwitchMap[T, R any](project func(value T) (*Observable[R], error)) OperatorFunc[T, R] {
	return func(source *Observable[T]) *Observable[R] {
		return switchInternals(source, project)
	}
}

func switchInternals[T, R any](source *Observable[T], project func(value T) (*Observable[R], error)) *Observable[R] {
	return newObservable(func(downstream *Subscriber[R]) func() {
		var (
			mu        sync.Mutex
			current   *Subscriber[R]
			outerDone bool
		)

		outer := newSubscriber(Observer[T]{
			Next: func(value T) {
				inner, err := callProject(project, value)
				if err != nil {
					downstream.Error(err)
					return
				}

				var self *Subscriber[R]
				self = newSubscriber(Observer[R]{
					Next:  downstream.Next,
					Error: downstream.Error,
					Complete: func() {
						mu.Lock()
						if current == self {
							current = nil
						}
						done := outerDone && current == nil
						mu.Unlock()

						downstream.Remove(self)
						if done {
							downstream.Complete()
						}
					},
				}, inner.config)

				mu.Lock()
				previous := current
				current = self
				mu.Unlock()

				if previous != nil {
					previous.Unsubscribe()
					downstream.Remove(previous)
				}
				downstream.Add(self)
				inner.subscribeWith(self)
			},
			Error: downstream.Error,
			Complete: func() {
				mu.Lock()
				outerDone = true
				done := current == nil
				mu.Unlock()
				if done {
					downstream.Complete()
				}
			},
		}, source.config)

		downstream.Add(outer)
		source.subscribeWith(outer)
		return nil
	}, source.config)
}

// ============================================================================
// Exhaust
// ============================================================================

// ExhaustAll 有内部订阅活跃时忽略新到达的内部Observable
func ExhaustAll[T any]() OperatorFunc[*Observable[T], T] {
	return func(source *Observable[*Observable[T]]) *Observable[T] {
		return exhaustInternals(source, identityProject[T])
	}
}

// ExhaustMap 把值映射为Observable，前一个未完成时丢弃新值
func ExhaustMap[T, R any](project func(value T) (*Observable[R], error)) OperatorFunc[T, R] {
	return func(source *Observable[T]) *Observable[R] {
		return exhaustInternals(source, project)
	}
}

func exhaustInternals[T, R any](source *Observable[T], project func(value T) (*Observable[R], error)) *Observable[R] {
	return newObservable(func(downstream *Subscriber[R]) func() {
		var (
			mu        sync.Mutex
			active    bool
			outerDone bool
		)

		outer := newSubscriber(Observer[T]{
			Next: func(value T) {
				mu.Lock()
				if active {
					mu.Unlock()
					return
				}
				active = true
				mu.Unlock()

				inner, err := callProject(project, value)
				if err != nil {
					downstream.Error(err)
					return
				}
				subscribeInner(downstream.Subscription, inner, Observer[R]{
					Next:  downstream.Next,
					Error: downstream.Error,
					Complete: func() {
						mu.Lock()
						active = false
						done := outerDone
						mu.Unlock()
						if done {
							downstream.Complete()
						}
					},
				})
			},
			Error: downstream.Error,
			Complete: func() {
				mu.Lock()
				outerDone = true
				done := !active
				mu.Unlock()
				if done {
					downstream.Complete()
				}
			},
		}, source.config)

		downstream.Add(outer)
		source.subscribeWith(outer)
		return nil
	}, source.config)
}
