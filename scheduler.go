// Scheduler implementations for RxGo
// 调度器是宿主定时器的抽象，时间相关操作符只通过它获取时间和定时器
package rxgo

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ============================================================================
// 调度器接口
// ============================================================================

// Scheduler 调度器接口，控制任务执行时机。
// 返回的Subscription取消尚未执行的任务。
type Scheduler interface {
	// Now 调度器的当前时间
	Now() time.Time
	// Schedule 尽快执行一个任务
	Schedule(action func()) *Subscription
	// ScheduleWithDelay 延迟执行一个任务
	ScheduleWithDelay(action func(), delay time.Duration) *Subscription
}

// ============================================================================
// 定时器调度器 - Timer Scheduler
// ============================================================================

// timerScheduler 基于time.AfterFunc，任务在定时器goroutine上执行
type timerScheduler struct{}

// NewTimerScheduler 创建定时器调度器
func NewTimerScheduler() Scheduler {
	return &timerScheduler{}
}

// Now 返回墙上时间
func (s *timerScheduler) Now() time.Time {
	return time.Now()
}

// Schedule 在新goroutine中执行任务
func (s *timerScheduler) Schedule(action func()) *Subscription {
	return s.ScheduleWithDelay(action, 0)
}

// ScheduleWithDelay 延迟执行任务
func (s *timerScheduler) ScheduleWithDelay(action func(), delay time.Duration) *Subscription {
	var cancelled int32
	timer := time.AfterFunc(delay, func() {
		if atomic.LoadInt32(&cancelled) == 0 {
			action()
		}
	})

	return NewSubscription(func() {
		atomic.StoreInt32(&cancelled, 1)
		timer.Stop()
	})
}

// ============================================================================
// 立即调度器 - Immediate Scheduler
// ============================================================================

// immediateScheduler 在调用方goroutine中同步执行，延迟任务阻塞等待
type immediateScheduler struct{}

// NewImmediateScheduler 创建立即调度器
func NewImmediateScheduler() Scheduler {
	return &immediateScheduler{}
}

// Now 返回墙上时间
func (s *immediateScheduler) Now() time.Time {
	return time.Now()
}

// Schedule 立即执行任务
func (s *immediateScheduler) Schedule(action func()) *Subscription {
	action()
	return newClosedSubscription()
}

// ScheduleWithDelay 睡眠后在当前goroutine执行任务
func (s *immediateScheduler) ScheduleWithDelay(action func(), delay time.Duration) *Subscription {
	if delay > 0 {
		time.Sleep(delay)
	}
	action()
	return newClosedSubscription()
}

// ============================================================================
// 测试调度器 - Test Scheduler
// ============================================================================

// TestScheduler 虚拟时间调度器，只有调用AdvanceTimeBy/AdvanceTimeTo时任务才会执行
type TestScheduler struct {
	mu    sync.Mutex
	clock time.Time
	seq   uint64
	queue []*scheduledAction
}

// scheduledAction 调度的动作
type scheduledAction struct {
	due       time.Time
	seq       uint64
	action    func()
	cancelled bool
}

// NewTestScheduler 创建测试调度器，虚拟时钟从Unix零点开始
func NewTestScheduler() *TestScheduler {
	return &TestScheduler{clock: time.Unix(0, 0)}
}

// Now 返回虚拟时间
func (s *TestScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// Schedule 在当前虚拟时间调度任务
func (s *TestScheduler) Schedule(action func()) *Subscription {
	return s.ScheduleWithDelay(action, 0)
}

// ScheduleWithDelay 在虚拟时间now+delay调度任务
func (s *TestScheduler) ScheduleWithDelay(action func(), delay time.Duration) *Subscription {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	s.seq++
	entry := &scheduledAction{due: s.clock.Add(delay), seq: s.seq, action: action}
	// 保持按时间排序，同一时刻按调度顺序执行
	i := sort.Search(len(s.queue), func(i int) bool {
		return s.queue[i].due.After(entry.due)
	})
	s.queue = append(s.queue, nil)
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = entry
	s.mu.Unlock()

	return NewSubscription(func() {
		s.mu.Lock()
		entry.cancelled = true
		s.mu.Unlock()
	})
}

// AdvanceTimeBy 推进虚拟时间
func (s *TestScheduler) AdvanceTimeBy(duration time.Duration) {
	s.AdvanceTimeTo(s.Now().Add(duration))
}

// AdvanceTimeTo 推进虚拟时间到指定时刻，执行所有到期的任务
func (s *TestScheduler) AdvanceTimeTo(target time.Time) {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].due.After(target) {
			if target.After(s.clock) {
				s.clock = target
			}
			s.mu.Unlock()
			return
		}
		entry := s.queue[0]
		s.queue = s.queue[1:]
		if entry.due.After(s.clock) {
			s.clock = entry.due
		}
		cancelled := entry.cancelled
		s.mu.Unlock()

		// 解锁后执行，允许任务调度新任务
		if !cancelled {
			entry.action()
		}
	}
}

// Pending 返回尚未执行且未取消的任务数量
func (s *TestScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, entry := range s.queue {
		if !entry.cancelled {
			n++
		}
	}
	return n
}

// ============================================================================
// 默认调度器
// ============================================================================

var (
	// DefaultScheduler 默认调度器
	DefaultScheduler Scheduler = NewTimerScheduler()

	// ImmediateScheduler 立即调度器实例
	ImmediateScheduler Scheduler = NewImmediateScheduler()
)

// ============================================================================
// 调度器辅助函数
// ============================================================================

// SchedulePeriodically 以固定周期重复调度任务，直到返回的订阅被取消
func SchedulePeriodically(scheduler Scheduler, action func(), period time.Duration) *Subscription {
	sub := NewSubscription(nil)
	var mu sync.Mutex
	var current *Subscription

	var tick func()
	tick = func() {
		if sub.IsUnsubscribed() {
			return
		}
		action()
		mu.Lock()
		if !sub.IsUnsubscribed() {
			current = scheduler.ScheduleWithDelay(tick, period)
		}
		mu.Unlock()
	}

	mu.Lock()
	current = scheduler.ScheduleWithDelay(tick, period)
	mu.Unlock()

	sub.AddFunc(func() {
		mu.Lock()
		c := current
		mu.Unlock()
		c.Unsubscribe()
	})
	return sub
}
