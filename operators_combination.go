// Combination operators for RxGo
// 组合操作符实现，包含Merge, Concat, Zip, CombineLatest, Amb
package rxgo

import (
	"sync"
)

// ============================================================================
// 组合操作符实现
// ============================================================================

// Merge 同时订阅所有Observable并交错转发它们的值
func Merge[T any](observables ...*Observable[T]) *Observable[T] {
	return MergeAll[T](0)(FromSlice(observables))
}

// Concat 依次订阅每个Observable，前一个完成后才订阅下一个
func Concat[T any](observables ...*Observable[T]) *Observable[T] {
	return ConcatAll[T]()(FromSlice(observables))
}

// Zip 压缩操作符，按顺序把两个Observable的对应项配对。
// 任一源完成且它的队列已经取空时完成。
func Zip[A, B, R any](first *Observable[A], second *Observable[B], zipper func(a A, b B) (R, error)) *Observable[R] {
	return newObservable(func(downstream *Subscriber[R]) func() {
		var (
			mu           sync.Mutex
			queue1       []A
			queue2       []B
			done1, done2 bool
		)

		// drain 取出所有可配对的项；调用方持有锁
		drain := func() (pairs []func() (R, error), finished bool) {
			for len(queue1) > 0 && len(queue2) > 0 {
				a, b := queue1[0], queue2[0]
				queue1, queue2 = queue1[1:], queue2[1:]
				pairs = append(pairs, func() (R, error) { return zipper(a, b) })
			}
			finished = (done1 && len(queue1) == 0) || (done2 && len(queue2) == 0)
			return pairs, finished
		}

		flush := func(pairs []func() (R, error), finished bool) {
			for _, pair := range pairs {
				var result R
				var err error
				if perr := recoverAsError(func() { result, err = pair() }); perr != nil {
					err = perr
				}
				if err != nil {
					downstream.Error(err)
					return
				}
				downstream.Next(result)
			}
			if finished {
				downstream.Complete()
			}
		}

		subscribeInner(downstream.Subscription, first, Observer[A]{
			Next: func(a A) {
				mu.Lock()
				queue1 = append(queue1, a)
				pairs, finished := drain()
				mu.Unlock()
				flush(pairs, finished)
			},
			Error: downstream.Error,
			Complete: func() {
				mu.Lock()
				done1 = true
				pairs, finished := drain()
				mu.Unlock()
				flush(pairs, finished)
			},
		})
		if downstream.Closed() {
			return nil
		}
		subscribeInner(downstream.Subscription, second, Observer[B]{
			Next: func(b B) {
				mu.Lock()
				queue2 = append(queue2, b)
				pairs, finished := drain()
				mu.Unlock()
				flush(pairs, finished)
			},
			Error: downstream.Error,
			Complete: func() {
				mu.Lock()
				done2 = true
				pairs, finished := drain()
				mu.Unlock()
				flush(pairs, finished)
			},
		})
		return nil
	}, first.config)
}

// CombineLatest 组合最新值操作符，任一源发射值时与另一个源的最新值组合。
// 两个源都发射过值之后才开始发射；两个源都完成后完成。
// 某个源没有发射任何值就完成时，结果立即完成。
func CombineLatest[A, B, R any](first *Observable[A], second *Observable[B], combiner func(a A, b B) (R, error)) *Observable[R] {
	return newObservable(func(downstream *Subscriber[R]) func() {
		var (
			mu                   sync.Mutex
			latest1              A
			latest2              B
			hasValue1, hasValue2 bool
			completed            int
		)

		emit := func(a A, b B) {
			var result R
			var err error
			if perr := recoverAsError(func() { result, err = combiner(a, b) }); perr != nil {
				err = perr
			}
			if err != nil {
				downstream.Error(err)
				return
			}
			downstream.Next(result)
		}

		complete := func(hasValue func() bool) func() {
			return func() {
				mu.Lock()
				completed++
				done := completed == 2 || !hasValue()
				mu.Unlock()
				if done {
					downstream.Complete()
				}
			}
		}

		subscribeInner(downstream.Subscription, first, Observer[A]{
			Next: func(a A) {
				mu.Lock()
				latest1, hasValue1 = a, true
				ready, b := hasValue2, latest2
				mu.Unlock()
				if ready {
					emit(a, b)
				}
			},
			Error:    downstream.Error,
			Complete: complete(func() bool { return hasValue1 }),
		})
		if downstream.Closed() {
			return nil
		}
		subscribeInner(downstream.Subscription, second, Observer[B]{
			Next: func(b B) {
				mu.Lock()
				latest2, hasValue2 = b, true
				ready, a := hasValue1, latest1
				mu.Unlock()
				if ready {
					emit(a, b)
				}
			},
			Error:    downstream.Error,
			Complete: complete(func() bool { return hasValue2 }),
		})
		return nil
	}, first.config)
}

// ============================================================================
// Amb 竞速
// ============================================================================

// Amb 竞速操作符，第一个发出任何通知的源获胜，其余源的订阅被取消
func Amb[T any](observables ...*Observable[T]) *Observable[T] {
	if len(observables) == 0 {
		return Empty[T]()
	}
	if len(observables) == 1 {
		return observables[0]
	}

	return newObservable(func(downstream *Subscriber[T]) func() {
		var mu sync.Mutex
		winner := -1
		subscribers := make([]*Subscriber[T], len(observables))

		// claim 尝试成为获胜者，返回是否可以转发通知
		claim := func(index int) bool {
			mu.Lock()
			if winner == -1 {
				winner = index
				losers := make([]*Subscriber[T], 0, len(subscribers)-1)
				for i, s := range subscribers {
					if i != index && s != nil {
						losers = append(losers, s)
					}
				}
				mu.Unlock()
				for _, s := range losers {
					s.Unsubscribe()
					downstream.Remove(s)
				}
				return true
			}
			won := winner == index
			mu.Unlock()
			return won
		}

		for i, obs := range observables {
			index := i
			inner := newSubscriber(Observer[T]{
				Next: func(value T) {
					if claim(index) {
						downstream.Next(value)
					}
				},
				Error: func(err error) {
					if claim(index) {
						downstream.Error(err)
					}
				},
				Complete: func() {
					if claim(index) {
						downstream.Complete()
					}
				},
			}, obs.config)

			mu.Lock()
			lost := winner != -1
			subscribers[index] = inner
			mu.Unlock()
			if lost {
				break
			}

			downstream.Add(inner)
			obs.subscribeWith(inner)
		}
		return nil
	}, observables[0].config)
}
