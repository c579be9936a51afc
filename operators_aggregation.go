// Aggregation operators for RxGo
// 聚合操作符实现，包含Count, Min, Max, Sum, Average, All, Any, Contains, ElementAt
package rxgo

import (
	"cmp"
	"fmt"
)

// Number 可以求和与求平均的数值类型
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ============================================================================
// 聚合操作符实现
// ============================================================================

// Count 完成时发射源发射的值的数量
func Count[T any]() OperatorFunc[T, int] {
	return Reduce(func(n int, _ T) (int, error) { return n + 1, nil }, 0)
}

// Min 完成时发射最小值，源为空时以ErrEmpty终止
func Min[T cmp.Ordered]() OperatorFunc[T, T] {
	return extremum(func(candidate, current T) bool { return candidate < current })
}

// Max 完成时发射最大值，源为空时以ErrEmpty终止
func Max[T cmp.Ordered]() OperatorFunc[T, T] {
	return extremum(func(candidate, current T) bool { return candidate > current })
}

// extremum 保留使better返回true的值
func extremum[T any](better func(candidate, current T) bool) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return lift(source, func(downstream *Subscriber[T], _ *Subscription) Observer[T] {
			var current T
			hasValue := false
			return Observer[T]{
				Next: func(value T) {
					if !hasValue || better(value, current) {
						current = value
						hasValue = true
					}
				},
				Error: downstream.Error,
				Complete: func() {
					if !hasValue {
						downstream.Error(ErrEmpty)
						return
					}
					downstream.Next(current)
					downstream.Complete()
				},
			}
		})
	}
}

// Sum 完成时发射所有值的和，源为空时发射0
func Sum[T Number]() OperatorFunc[T, T] {
	return Reduce(func(acc, value T) (T, error) { return acc + value, nil }, T(0))
}

// Average 完成时发射平均值，源为空时以ErrEmpty终止
func Average[T Number]() OperatorFunc[T, float64] {
	return func(source *Observable[T]) *Observable[float64] {
		return lift(source, func(downstream *Subscriber[float64], _ *Subscription) Observer[T] {
			var sum float64
			count := 0
			return Observer[T]{
				Next: func(value T) {
					sum += float64(value)
					count++
				},
				Error: downstream.Error,
				Complete: func() {
					if count == 0 {
						downstream.Error(ErrEmpty)
						return
					}
					downstream.Next(sum / float64(count))
					downstream.Complete()
				},
			}
		})
	}
}

// ============================================================================
// 条件聚合
// ============================================================================

// All 所有值都满足谓词时发射true；遇到第一个不满足的值立即发射false并取消源
func All[T any](predicate func(value T) bool) OperatorFunc[T, bool] {
	return firstMatch(func(value T) bool { return !predicate(value) }, false, true)
}

// Any 存在满足谓词的值时立即发射true并取消源，否则完成时发射false
func Any[T any](predicate func(value T) bool) OperatorFunc[T, bool] {
	return firstMatch(predicate, true, false)
}

// Contains 源发射过target时发射true
func Contains[T comparable](target T) OperatorFunc[T, bool] {
	return Any(func(value T) bool { return value == target })
}

// firstMatch 第一个使match为true的值到达时发射onMatch，源完成时发射onComplete
func firstMatch[T any](match func(value T) bool, onMatch, onComplete bool) OperatorFunc[T, bool] {
	return func(source *Observable[T]) *Observable[bool] {
		return lift(source, func(downstream *Subscriber[bool], upstream *Subscription) Observer[T] {
			return Observer[T]{
				Next: func(value T) {
					var matched bool
					if err := recoverAsError(func() { matched = match(value) }); err != nil {
						downstream.Error(err)
						return
					}
					if matched {
						upstream.Unsubscribe()
						downstream.Next(onMatch)
						downstream.Complete()
					}
				},
				Error: downstream.Error,
				Complete: func() {
					downstream.Next(onComplete)
					downstream.Complete()
				},
			}
		})
	}
}

// ElementAt 发射第index个值（从0开始）后完成；源的值不够时以ErrOutOfRange终止
func ElementAt[T any](index int) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		if index < 0 {
			return Throw[T](fmt.Errorf("%w: index %d", ErrOutOfRange, index), WithConfig(source.config))
		}
		return lift(source, func(downstream *Subscriber[T], upstream *Subscription) Observer[T] {
			seen := 0
			return Observer[T]{
				Next: func(value T) {
					if seen == index {
						upstream.Unsubscribe()
						downstream.Next(value)
						downstream.Complete()
						return
					}
					seen++
				},
				Error: downstream.Error,
				Complete: func() {
					downstream.Error(fmt.Errorf("%w: index %d, length %d", ErrOutOfRange, index, seen))
				},
			}
		})
	}
}
