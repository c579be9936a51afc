package rxgo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactories(t *testing.T) {
	t.Run("Just和Of", func(t *testing.T) {
		rec := newRecorder[string]()
		Of("x", "y").Subscribe(rec.observer())
		assert.Equal(t, []string{"x", "y"}, rec.Values())
		assert.True(t, rec.Completed())
	})

	t.Run("Defer工厂返回nil", func(t *testing.T) {
		rec := newRecorder[int]()
		Defer(func() *Observable[int] { return nil }).Subscribe(rec.observer())
		assert.ErrorIs(t, rec.Err(), ErrNilObservable)
	})

	t.Run("Range", func(t *testing.T) {
		rec := newRecorder[int]()
		Range(5, 3).Subscribe(rec.observer())
		assert.Equal(t, []int{5, 6, 7}, rec.Values())
	})

	t.Run("Empty Never Throw", func(t *testing.T) {
		empty := newRecorder[int]()
		Empty[int]().Subscribe(empty.observer())
		assert.Equal(t, []Kind{KindComplete}, empty.Kinds())

		never := newRecorder[int]()
		sub := Never[int]().Subscribe(never.observer())
		assert.Empty(t, never.Kinds())
		assert.False(t, sub.IsUnsubscribed())
		sub.Unsubscribe()

		boom := errors.New("boom")
		thrown := newRecorder[int]()
		Throw[int](boom).Subscribe(thrown.observer())
		assert.Equal(t, []Kind{KindError}, thrown.Kinds())
		assert.ErrorIs(t, thrown.Err(), boom)
	})

	t.Run("Defer每次订阅调用工厂", func(t *testing.T) {
		calls := 0
		obs := Defer(func() *Observable[int] {
			calls++
			return Just(calls)
		})
		assert.Equal(t, 0, calls)

		first := newRecorder[int]()
		second := newRecorder[int]()
		obs.Subscribe(first.observer())
		obs.Subscribe(second.observer())

		assert.Equal(t, []int{1}, first.Values())
		assert.Equal(t, []int{2}, second.Values())
	})
}

func TestFromChannel(t *testing.T) {
	t.Run("通道关闭时完成", func(t *testing.T) {
		ch := make(chan int, 3)
		ch <- 1
		ch <- 2
		ch <- 3
		close(ch)

		values, err := Collect(context.Background(), FromChannel(context.Background(), ch))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, values)
	})

	t.Run("ctx取消时以错误终止", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ch := make(chan int)
		errs := make(chan error, 1)
		FromChannel(ctx, ch).Subscribe(Observer[int]{Error: func(err error) { errs <- err }})

		cancel()
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("没有收到错误")
		}
	})

	t.Run("取消订阅后不再投递", func(t *testing.T) {
		ch := make(chan int)
		got := make(chan int, 4)
		completed := false
		sub := FromChannel(context.Background(), ch).Subscribe(Observer[int]{
			Next:     func(v int) { got <- v },
			Complete: func() { completed = true },
		})

		ch <- 1
		assert.Equal(t, 1, <-got)
		sub.Unsubscribe()

		select {
		case ch <- 2:
		case <-time.After(20 * time.Millisecond):
		}
		assert.Empty(t, got)
		assert.False(t, completed)
	})
}
