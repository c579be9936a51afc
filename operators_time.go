// Time-based operators for RxGo
// 时间操作符实现，包含ThrottleTime, Delay, Debounce, Timeout
package rxgo

import (
	"fmt"
	"sync"
	"time"
)

// ============================================================================
// 定时器管理
// ============================================================================

// timerToken 标识timerSet中的一个定时器
type timerToken struct {
	id uint64
}

// timerSet 活跃定时器的集合，取消订阅时取消所有尚未触发的定时器
type timerSet struct {
	mu     sync.Mutex
	closed bool
	nextID uint64
	timers map[*timerToken]*Subscription
}

func newTimerSet() *timerSet {
	return &timerSet{timers: make(map[*timerToken]*Subscription)}
}

// schedule 调度一个定时器，触发时先从集合中移除再执行action
func (ts *timerSet) schedule(scheduler Scheduler, delay time.Duration, action func()) {
	ts.mu.Lock()
	if ts.closed {
		ts.mu.Unlock()
		return
	}
	ts.nextID++
	token := &timerToken{id: ts.nextID}
	ts.timers[token] = nil
	ts.mu.Unlock()

	timer := scheduler.ScheduleWithDelay(func() {
		ts.mu.Lock()
		_, live := ts.timers[token]
		delete(ts.timers, token)
		ts.mu.Unlock()
		if live {
			action()
		}
	}, delay)

	ts.mu.Lock()
	if _, live := ts.timers[token]; live {
		ts.timers[token] = timer
		ts.mu.Unlock()
		return
	}
	closed := ts.closed
	ts.mu.Unlock()
	if closed {
		timer.Unsubscribe()
	}
}

// Len 尚未触发的定时器数量
func (ts *timerSet) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.timers)
}

// Unsubscribe 取消所有定时器
func (ts *timerSet) Unsubscribe() {
	ts.mu.Lock()
	if ts.closed {
		ts.mu.Unlock()
		return
	}
	ts.closed = true
	timers := ts.timers
	ts.timers = nil
	ts.mu.Unlock()

	for _, timer := range timers {
		if timer != nil {
			timer.Unsubscribe()
		}
	}
}

// serialTimer 同一时刻只保留最新的一个定时器，设置新定时器时取消旧的
type serialTimer struct {
	mu      sync.Mutex
	closed  bool
	seq     uint64
	current *Subscription
}

// set 取消之前的定时器并调度新的，只有仍是最新定时器时action才会执行
func (st *serialTimer) set(scheduler Scheduler, delay time.Duration, action func()) {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return
	}
	st.seq++
	seq := st.seq
	previous := st.current
	st.current = nil
	st.mu.Unlock()

	if previous != nil {
		previous.Unsubscribe()
	}

	timer := scheduler.ScheduleWithDelay(func() {
		st.mu.Lock()
		stale := st.closed || st.seq != seq
		if !stale {
			st.current = nil
		}
		st.mu.Unlock()
		if !stale {
			action()
		}
	}, delay)

	st.mu.Lock()
	if !st.closed && st.seq == seq {
		st.current = timer
		st.mu.Unlock()
		return
	}
	st.mu.Unlock()
	timer.Unsubscribe()
}

// clear 取消当前定时器但允许之后继续设置
func (st *serialTimer) clear() {
	st.mu.Lock()
	st.seq++
	current := st.current
	st.current = nil
	st.mu.Unlock()

	if current != nil {
		current.Unsubscribe()
	}
}

// Unsubscribe 取消当前定时器并拒绝之后的设置
func (st *serialTimer) Unsubscribe() {
	st.mu.Lock()
	st.closed = true
	current := st.current
	st.current = nil
	st.mu.Unlock()

	if current != nil {
		current.Unsubscribe()
	}
}

// ============================================================================
// 时间操作符实现
// ============================================================================

// ThrottleTime 节流操作符：转发第一个值，之后在duration内忽略后续的值
func ThrottleTime[T any](duration time.Duration, options ...Option) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		config := newConfig(source.config, options)
		return lift(source, func(downstream *Subscriber[T], _ *Subscription) Observer[T] {
			var mu sync.Mutex
			throttled := false
			window := &serialTimer{}
			downstream.Add(window)

			return Observer[T]{
				Next: func(value T) {
					mu.Lock()
					if throttled {
						mu.Unlock()
						return
					}
					throttled = true
					mu.Unlock()

					window.set(config.Scheduler, duration, func() {
						mu.Lock()
						throttled = false
						mu.Unlock()
					})
					downstream.Next(value)
				},
				Error:    downstream.Error,
				Complete: downstream.Complete,
			}
		})
	}
}

// Delay 延迟操作符：每个值使用独立的定时器延迟duration后发射。
// 定时器可能在不同的goroutine上触发，值按到达顺序排队，每次触发取出队首，
// 所以发射顺序与源的顺序一致。
// 源完成时如果还有未发射的值，完成信号等到它们全部发射后再发送；错误立即转发。
func Delay[T any](duration time.Duration, options ...Option) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		config := newConfig(source.config, options)
		return lift(source, func(downstream *Subscriber[T], _ *Subscription) Observer[T] {
			var (
				mu         sync.Mutex
				queue      []T
				ready      int
				draining   bool
				sourceDone bool
			)
			timers := newTimerSet()
			downstream.Add(timers)

			// fire 每个到期的定时器让队首的一个值可以发射；同一时刻只有一个goroutine在发射
			fire := func() {
				mu.Lock()
				ready++
				if draining {
					mu.Unlock()
					return
				}
				draining = true
				for ready > 0 && len(queue) > 0 {
					value := queue[0]
					queue = queue[1:]
					ready--
					mu.Unlock()

					downstream.Next(value)

					mu.Lock()
				}
				draining = false
				done := sourceDone && len(queue) == 0
				mu.Unlock()
				if done {
					downstream.Complete()
				}
			}

			return Observer[T]{
				Next: func(value T) {
					mu.Lock()
					queue = append(queue, value)
					mu.Unlock()

					timers.schedule(config.Scheduler, duration, fire)
				},
				Error: downstream.Error,
				Complete: func() {
					mu.Lock()
					sourceDone = true
					done := len(queue) == 0 && !draining
					mu.Unlock()
					if done {
						downstream.Complete()
					}
				},
			}
		})
	}
}

// Debounce 防抖操作符，只有在duration内没有新值时才发射最后一个值。
// 源完成时立即发射尚未发射的最后一个值。
func Debounce[T any](duration time.Duration, options ...Option) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		config := newConfig(source.config, options)
		return lift(source, func(downstream *Subscriber[T], _ *Subscription) Observer[T] {
			var mu sync.Mutex
			var latest T
			hasValue := false
			timer := &serialTimer{}
			downstream.Add(timer)

			flush := func() {
				mu.Lock()
				value, ok := latest, hasValue
				hasValue = false
				mu.Unlock()
				if ok {
					downstream.Next(value)
				}
			}

			return Observer[T]{
				Next: func(value T) {
					mu.Lock()
					latest = value
					hasValue = true
					mu.Unlock()
					timer.set(config.Scheduler, duration, flush)
				},
				Error: downstream.Error,
				Complete: func() {
					timer.clear()
					flush()
					downstream.Complete()
				},
			}
		})
	}
}

// Timeout 超时操作符，订阅后或上一个值之后duration内没有通知则以ErrTimeout终止
func Timeout[T any](duration time.Duration, options ...Option) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		config := newConfig(source.config, options)
		return lift(source, func(downstream *Subscriber[T], _ *Subscription) Observer[T] {
			timer := &serialTimer{}
			downstream.Add(timer)

			arm := func() {
				timer.set(config.Scheduler, duration, func() {
					downstream.Error(fmt.Errorf("%w: no notification within %s", ErrTimeout, duration))
				})
			}
			arm()

			return Observer[T]{
				Next: func(value T) {
					arm()
					downstream.Next(value)
				},
				Error: func(err error) {
					timer.Unsubscribe()
					downstream.Error(err)
				},
				Complete: func() {
					timer.Unsubscribe()
					downstream.Complete()
				},
			}
		})
	}
}
