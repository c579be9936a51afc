// Aggregation operators tests for RxGo
// 聚合操作符测试
package rxgo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountSumAverage(t *testing.T) {
	t.Run("计数", func(t *testing.T) {
		rec := newRecorder[int]()
		Count[string]()(Just("a", "b", "c")).Subscribe(rec.observer())

		assert.Equal(t, []int{3}, rec.Values())
		assert.True(t, rec.Completed())
	})

	t.Run("空序列计数为0", func(t *testing.T) {
		rec := newRecorder[int]()
		Count[int]()(Empty[int]()).Subscribe(rec.observer())
		assert.Equal(t, []int{0}, rec.Values())
	})

	t.Run("求和", func(t *testing.T) {
		rec := newRecorder[float64]()
		Sum[float64]()(Just(1.5, 2.5, 3.0)).Subscribe(rec.observer())
		assert.Equal(t, []float64{7}, rec.Values())
	})

	t.Run("平均值", func(t *testing.T) {
		rec := newRecorder[float64]()
		Average[int]()(Range(1, 4)).Subscribe(rec.observer())

		assert.Equal(t, []float64{2.5}, rec.Values())
		assert.True(t, rec.Completed())
	})

	t.Run("空序列平均值", func(t *testing.T) {
		rec := newRecorder[float64]()
		Average[int]()(Empty[int]()).Subscribe(rec.observer())
		assert.ErrorIs(t, rec.Err(), ErrEmpty)
	})

	t.Run("错误原样转发", func(t *testing.T) {
		boom := errors.New("boom")
		rec := newRecorder[int]()
		Sum[int]()(Concat(Just(1), Throw[int](boom))).Subscribe(rec.observer())

		assert.Empty(t, rec.Values())
		assert.ErrorIs(t, rec.Err(), boom)
	})
}

func TestMinMax(t *testing.T) {
	t.Run("最小值与最大值", func(t *testing.T) {
		minRec := newRecorder[int]()
		maxRec := newRecorder[int]()
		source := Just(3, 1, 4, 1, 5, 9, 2, 6)

		Min[int]()(source).Subscribe(minRec.observer())
		Max[int]()(source).Subscribe(maxRec.observer())

		assert.Equal(t, []int{1}, minRec.Values())
		assert.Equal(t, []int{9}, maxRec.Values())
	})

	t.Run("字符串按字典序比较", func(t *testing.T) {
		rec := newRecorder[string]()
		Max[string]()(Just("pear", "apple", "zucchini")).Subscribe(rec.observer())
		assert.Equal(t, []string{"zucchini"}, rec.Values())
	})

	t.Run("空序列", func(t *testing.T) {
		rec := newRecorder[int]()
		Min[int]()(Empty[int]()).Subscribe(rec.observer())

		assert.Empty(t, rec.Values())
		assert.ErrorIs(t, rec.Err(), ErrEmpty)
	})
}

func TestConditionalAggregation(t *testing.T) {
	even := func(v int) bool { return v%2 == 0 }

	t.Run("All全部满足", func(t *testing.T) {
		rec := newRecorder[bool]()
		All(even)(Just(2, 4, 6)).Subscribe(rec.observer())

		assert.Equal(t, []bool{true}, rec.Values())
		assert.True(t, rec.Completed())
	})

	t.Run("All遇到不满足的值立即取消源", func(t *testing.T) {
		source := NewPublishSubject[int]()
		rec := newRecorder[bool]()
		All(even)(source.AsObservable()).Subscribe(rec.observer())

		source.Next(2)
		assert.Empty(t, rec.Values())
		source.Next(3)

		assert.Equal(t, []bool{false}, rec.Values())
		assert.True(t, rec.Completed())
		assert.False(t, source.HasObservers())
	})

	t.Run("Any", func(t *testing.T) {
		found := newRecorder[bool]()
		Any(even)(Just(1, 3, 4, 5)).Subscribe(found.observer())
		assert.Equal(t, []bool{true}, found.Values())

		missing := newRecorder[bool]()
		Any(even)(Just(1, 3)).Subscribe(missing.observer())
		assert.Equal(t, []bool{false}, missing.Values())
	})

	t.Run("Contains", func(t *testing.T) {
		rec := newRecorder[bool]()
		Contains("b")(Just("a", "b", "c")).Subscribe(rec.observer())
		assert.Equal(t, []bool{true}, rec.Values())
	})

	t.Run("谓词panic转换为错误", func(t *testing.T) {
		rec := newRecorder[bool]()
		Any(func(int) bool { panic("bad predicate") })(Just(1)).Subscribe(rec.observer())

		var panicErr *PanicError
		assert.ErrorAs(t, rec.Err(), &panicErr)
		assert.Equal(t, "bad predicate", panicErr.Value)
	})
}

func TestElementAt(t *testing.T) {
	t.Run("发射指定位置的值并取消源", func(t *testing.T) {
		source := NewPublishSubject[string]()
		rec := newRecorder[string]()
		ElementAt[string](1)(source.AsObservable()).Subscribe(rec.observer())

		source.Next("a")
		source.Next("b")

		assert.Equal(t, []string{"b"}, rec.Values())
		assert.True(t, rec.Completed())
		assert.False(t, source.HasObservers())
	})

	t.Run("序列太短", func(t *testing.T) {
		rec := newRecorder[int]()
		ElementAt[int](5)(Just(1, 2)).Subscribe(rec.observer())

		assert.ErrorIs(t, rec.Err(), ErrOutOfRange)
		assert.Contains(t, rec.Err().Error(), "length 2")
	})

	t.Run("负数索引", func(t *testing.T) {
		rec := newRecorder[int]()
		ElementAt[int](-1)(Just(1)).Subscribe(rec.observer())
		assert.ErrorIs(t, rec.Err(), ErrOutOfRange)
	})
}
