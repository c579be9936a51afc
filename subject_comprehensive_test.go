// Subject comprehensive tests for RxGo
// 全面的Subject测试，验证所有Subject类型的正确行为
package rxgo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// PublishSubject 详细测试
// ============================================================================

func TestPublishSubjectComprehensive(t *testing.T) {
	t.Run("晚到的订阅者只收到订阅之后的值", func(t *testing.T) {
		subject := NewPublishSubject[int]()
		a := newRecorder[int]()
		b := newRecorder[int]()

		subject.Subscribe(a.observer())
		subject.Next(1)
		subject.Next(2)
		subject.Subscribe(b.observer())
		subject.Next(3)

		assert.Equal(t, []int{1, 2, 3}, a.Values())
		assert.Equal(t, []int{3}, b.Values())
	})

	t.Run("按注册顺序同步广播", func(t *testing.T) {
		subject := NewPublishSubject[string]()
		var order []string
		subject.Subscribe(NextObserver(func(v string) { order = append(order, "a"+v) }))
		subject.Subscribe(NextObserver(func(v string) { order = append(order, "b"+v) }))

		subject.Next("1")
		subject.Next("2")

		assert.Equal(t, []string{"a1", "b1", "a2", "b2"}, order)
	})

	t.Run("终止后清空观察者并向新订阅者重放终止", func(t *testing.T) {
		subject := NewPublishSubject[int]()
		early := newRecorder[int]()
		subject.Subscribe(early.observer())
		require.Equal(t, 1, subject.ObserverCount())

		boom := errors.New("boom")
		subject.Error(boom)
		subject.Next(1)
		subject.Complete()

		assert.False(t, subject.HasObservers())
		assert.Equal(t, boom, early.Err())
		assert.Equal(t, 1, early.Terminations())

		late := newRecorder[int]()
		sub := subject.Subscribe(late.observer())
		assert.Empty(t, late.Values())
		assert.Equal(t, boom, late.Err())
		assert.True(t, sub.IsUnsubscribed())
	})

	t.Run("取消订阅后从注册表移除", func(t *testing.T) {
		subject := NewPublishSubject[int]()
		rec := newRecorder[int]()
		sub := subject.Subscribe(rec.observer())
		subject.Next(1)

		sub.Unsubscribe()
		subject.Next(2)

		assert.Equal(t, []int{1}, rec.Values())
		assert.Equal(t, 0, subject.ObserverCount())
	})

	t.Run("广播过程中取消订阅的观察者不再收到当前值", func(t *testing.T) {
		subject := NewPublishSubject[int]()
		var second *Subscription
		first := newRecorder[int]()
		rec := newRecorder[int]()

		subject.Subscribe(Observer[int]{Next: func(v int) {
			first.observer().Next(v)
			second.Unsubscribe()
		}})
		second = subject.Subscribe(rec.observer())

		subject.Next(1)
		subject.Next(2)

		assert.Equal(t, []int{1, 2}, first.Values())
		assert.Empty(t, rec.Values())
	})

	t.Run("观察者在回调中取消自己的订阅", func(t *testing.T) {
		subject := NewPublishSubject[int]()
		var self *Subscription
		var got []int
		after := newRecorder[int]()

		self = subject.Subscribe(NextObserver(func(v int) {
			got = append(got, v)
			self.Unsubscribe()
		}))
		subject.Subscribe(after.observer())

		subject.Next(1)
		subject.Next(2)

		assert.Equal(t, []int{1}, got)
		assert.Equal(t, []int{1, 2}, after.Values())
	})

	t.Run("一个观察者panic不影响其他观察者", func(t *testing.T) {
		var reported []error
		subject := NewPublishSubject[int](WithErrorReporter(func(err error) {
			reported = append(reported, err)
		}))
		rec := newRecorder[int]()

		subject.Subscribe(NextObserver(func(int) { panic("bad observer") }))
		subject.Subscribe(rec.observer())

		require.NotPanics(t, func() { subject.Next(7) })
		assert.Equal(t, []int{7}, rec.Values())
		assert.Len(t, reported, 1)
	})

	t.Run("作为Observer订阅其他Observable", func(t *testing.T) {
		subject := NewPublishSubject[int]()
		rec := newRecorder[int]()
		subject.AsObservable().Subscribe(rec.observer())

		Just(1, 2).Subscribe(subject.AsObserver())

		assert.Equal(t, []int{1, 2}, rec.Values())
		assert.True(t, rec.Completed())
	})
}

// ============================================================================
// BehaviorSubject 详细测试
// ============================================================================

func TestBehaviorSubjectComprehensive(t *testing.T) {
	t.Run("新订阅者立即收到当前值", func(t *testing.T) {
		subject := NewBehaviorSubject(0)
		subject.Next(1)
		subject.Next(2)

		rec := newRecorder[int]()
		subject.Subscribe(rec.observer())
		assert.Equal(t, []int{2}, rec.Values())

		subject.Next(3)
		assert.Equal(t, []int{2, 3}, rec.Values())
	})

	t.Run("没有推送时收到初始值", func(t *testing.T) {
		subject := NewBehaviorSubject("seed")
		rec := newRecorder[string]()
		subject.AsObservable().Subscribe(rec.observer())

		assert.Equal(t, []string{"seed"}, rec.Values())
		value, err := subject.Value()
		require.NoError(t, err)
		assert.Equal(t, "seed", value)
	})

	t.Run("完成后的订阅者只收到完成信号", func(t *testing.T) {
		subject := NewBehaviorSubject(1)
		subject.Complete()

		rec := newRecorder[int]()
		subject.Subscribe(rec.observer())

		assert.Empty(t, rec.Values())
		assert.True(t, rec.Completed())
	})

	t.Run("以错误终止后Value返回错误", func(t *testing.T) {
		subject := NewBehaviorSubject(1)
		boom := errors.New("boom")
		subject.Error(boom)

		_, err := subject.Value()
		assert.ErrorIs(t, err, boom)
	})
}

// ============================================================================
// ReplaySubject 详细测试
// ============================================================================

func TestReplaySubjectComprehensive(t *testing.T) {
	t.Run("只重放最近的N个值", func(t *testing.T) {
		subject := NewReplaySubject[int](3)
		for i := 1; i <= 5; i++ {
			subject.Next(i)
		}

		rec := newRecorder[int]()
		subject.Subscribe(rec.observer())

		assert.Equal(t, []int{3, 4, 5}, rec.Values())
		assert.Equal(t, []int{3, 4, 5}, subject.BufferedValues())
	})

	t.Run("重放之后继续接收实时值", func(t *testing.T) {
		subject := NewReplaySubject[int](0)
		subject.Next(1)

		rec := newRecorder[int]()
		subject.Subscribe(rec.observer())
		subject.Next(2)

		assert.Equal(t, []int{1, 2}, rec.Values())
	})

	t.Run("终止后先重放缓存再重放终止", func(t *testing.T) {
		subject := NewReplaySubject[int](2)
		subject.Next(1)
		subject.Next(2)
		subject.Next(3)
		subject.Complete()

		rec := newRecorder[int]()
		subject.Subscribe(rec.observer())

		assert.Equal(t, []int{2, 3}, rec.Values())
		assert.Equal(t, []Kind{KindNext, KindNext, KindComplete}, rec.Kinds())
	})

	t.Run("时间窗口外的值不再重放", func(t *testing.T) {
		scheduler := NewTestScheduler()
		subject := NewReplaySubject[int](0,
			WithWindow(100*time.Millisecond),
			WithReplayOptions(WithScheduler(scheduler)),
		)

		subject.Next(1)
		scheduler.AdvanceTimeBy(60 * time.Millisecond)
		subject.Next(2)
		scheduler.AdvanceTimeBy(60 * time.Millisecond)

		rec := newRecorder[int]()
		subject.Subscribe(rec.observer())
		assert.Equal(t, []int{2}, rec.Values())
	})
}

// ============================================================================
// AsyncSubject 详细测试
// ============================================================================

func TestAsyncSubjectComprehensive(t *testing.T) {
	t.Run("完成前后的订阅者都只收到最后一个值", func(t *testing.T) {
		subject := NewAsyncSubject[int]()
		early := newRecorder[int]()
		subject.Subscribe(early.observer())

		subject.Next(1)
		assert.Empty(t, early.Values())
		subject.Next(2)
		assert.Empty(t, early.Values())
		subject.Complete()

		late := newRecorder[int]()
		subject.Subscribe(late.observer())

		assert.Equal(t, []int{2}, early.Values())
		assert.True(t, early.Completed())
		assert.Equal(t, []int{2}, late.Values())
		assert.True(t, late.Completed())
	})

	t.Run("没有值时只发送完成", func(t *testing.T) {
		subject := NewAsyncSubject[int]()
		subject.Complete()

		rec := newRecorder[int]()
		subject.Subscribe(rec.observer())

		assert.Empty(t, rec.Values())
		assert.True(t, rec.Completed())
	})

	t.Run("错误终止时丢弃记录的值", func(t *testing.T) {
		subject := NewAsyncSubject[int]()
		rec := newRecorder[int]()
		subject.Subscribe(rec.observer())

		boom := errors.New("boom")
		subject.Next(1)
		subject.Error(boom)
		subject.Complete()

		assert.Empty(t, rec.Values())
		assert.ErrorIs(t, rec.Err(), boom)
		assert.Equal(t, 1, rec.Terminations())
	})
}

func TestSubjectInterface(t *testing.T) {
	subjects := map[string]Subject[int]{
		"publish":  NewPublishSubject[int](),
		"behavior": NewBehaviorSubject(0),
		"replay":   NewReplaySubject[int](1),
		"async":    NewAsyncSubject[int](),
	}

	for name, subject := range subjects {
		t.Run(name, func(t *testing.T) {
			rec := newRecorder[int]()
			sub := subject.Subscribe(rec.observer())
			assert.True(t, subject.HasObservers())

			sub.Unsubscribe()
			assert.False(t, subject.HasObservers())
			assert.Equal(t, 0, subject.ObserverCount())
		})
	}
}

// ============================================================================
// 投递顺序
// ============================================================================

func TestSubjectDeliveryOrder(t *testing.T) {
	t.Run("回调中重入推送时所有观察者看到相同的顺序", func(t *testing.T) {
		subject := NewPublishSubject[int]()
		a := newRecorder[int]()
		b := newRecorder[int]()
		subject.Subscribe(NextObserver(func(v int) {
			a.observer().Next(v)
			if v == 1 {
				subject.Next(2)
			}
		}))
		subject.Subscribe(b.observer())

		subject.Next(1)

		assert.Equal(t, []int{1, 2}, a.Values())
		assert.Equal(t, []int{1, 2}, b.Values())
	})

	t.Run("回调中重入的终止排在当前值之后", func(t *testing.T) {
		subject := NewPublishSubject[int]()
		b := newRecorder[int]()
		subject.Subscribe(NextObserver(func(int) { subject.Complete() }))
		subject.Subscribe(b.observer())

		subject.Next(1)

		assert.Equal(t, []Kind{KindNext, KindComplete}, b.Kinds())
	})

	// 第一个重放值的回调里另一个goroutine推送新值并等待它返回
	primeWithConcurrentNext := func(subject Subject[int]) *recorder[int] {
		rec := newRecorder[int]()
		primed := false
		subject.Subscribe(NextObserver(func(v int) {
			rec.observer().Next(v)
			if !primed {
				primed = true
				done := make(chan struct{})
				go func() {
					subject.Next(1)
					close(done)
				}()
				<-done
			}
		}))
		subject.Next(2)
		return rec
	}

	t.Run("BehaviorSubject订阅时并发推送的值不会丢失", func(t *testing.T) {
		subject := NewBehaviorSubject(0)
		rec := primeWithConcurrentNext(subject)

		assert.Equal(t, []int{0, 1, 2}, rec.Values())
		value, err := subject.Value()
		require.NoError(t, err)
		assert.Equal(t, 2, value)
	})

	t.Run("ReplaySubject订阅时并发推送的值不会丢失", func(t *testing.T) {
		subject := NewReplaySubject[int](0)
		subject.Next(0)
		rec := primeWithConcurrentNext(subject)

		assert.Equal(t, []int{0, 1, 2}, rec.Values())
		assert.Equal(t, []int{0, 1, 2}, subject.BufferedValues())
	})
}
