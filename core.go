// Package rxgo provides reactive programming primitives for Go
// 基于泛型的响应式流核心：惰性单播Observable、Subject多播、操作符组合与可连接共享
package rxgo

import (
	"errors"
	"fmt"
	"log/slog"
)

// ============================================================================
// 通知类型定义
// ============================================================================

// Kind 通知的种类
type Kind int

const (
	// KindNext 数据通知
	KindNext Kind = iota
	// KindError 错误终止通知
	KindError
	// KindComplete 完成终止通知
	KindComplete
)

// String 返回通知种类的名称
func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindError:
		return "error"
	case KindComplete:
		return "complete"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Notification 表示流中的一个通知，包含值、错误或完成信号
type Notification[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// IsTerminal 检查是否是终止通知
func (n Notification[T]) IsTerminal() bool {
	return n.Kind != KindNext
}

// Accept 将通知分发给观察者对应的回调
func (n Notification[T]) Accept(observer Observer[T]) {
	switch n.Kind {
	case KindNext:
		if observer.Next != nil {
			observer.Next(n.Value)
		}
	case KindError:
		if observer.Error != nil {
			observer.Error(n.Err)
		}
	case KindComplete:
		if observer.Complete != nil {
			observer.Complete()
		}
	}
}

// NextNotification 创建数据通知
func NextNotification[T any](value T) Notification[T] {
	return Notification[T]{Kind: KindNext, Value: value}
}

// ErrorNotification 创建错误通知
func ErrorNotification[T any](err error) Notification[T] {
	return Notification[T]{Kind: KindError, Err: err}
}

// CompleteNotification 创建完成通知
func CompleteNotification[T any]() Notification[T] {
	return Notification[T]{Kind: KindComplete}
}

// ============================================================================
// 观察者
// ============================================================================

// Observer 观察者，三个回调都是可选的，缺失的回调视为空操作
type Observer[T any] struct {
	Next     func(value T)
	Error    func(err error)
	Complete func()
}

// NextObserver 用单个函数构造只关心数据的观察者
func NextObserver[T any](next func(value T)) Observer[T] {
	return Observer[T]{Next: next}
}

// OperatorFunc 可管道化的操作符，把一个Observable转换为另一个
type OperatorFunc[T, R any] func(source *Observable[T]) *Observable[R]

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrTimeout 在规定时间内没有收到通知
	ErrTimeout = errors.New("rxgo: timeout")
	// ErrEmpty 序列在产生任何值之前就完成了
	ErrEmpty = errors.New("rxgo: sequence contains no elements")
	// ErrUnsubscribed 等待结果时订阅已被取消
	ErrUnsubscribed = errors.New("rxgo: unsubscribed before termination")
	// ErrOutOfRange 序列的长度不足
	ErrOutOfRange = errors.New("rxgo: index out of range")
	// ErrNilObservable 映射函数或工厂函数返回了nil Observable
	ErrNilObservable = errors.New("rxgo: nil observable")
)

// PanicError 生产者、转换函数或回调中恢复的panic
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("rxgo: recovered panic: %v", e.Value)
}

// Unwrap 当panic的值本身是error时返回它
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// recoverAsError 执行fn并把panic转换为错误
func recoverAsError(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	fn()
	return nil
}

// ============================================================================
// 配置选项
// ============================================================================

// Option 配置选项接口
type Option interface {
	Apply(config *Config)
}

// OptionFunc 函数形式的配置选项
type OptionFunc func(config *Config)

// Apply 应用配置
func (f OptionFunc) Apply(config *Config) {
	f(config)
}

// Config 配置结构
type Config struct {
	// Scheduler 时间相关操作符使用的调度器
	Scheduler Scheduler
	// Logger 诊断日志
	Logger *slog.Logger
	// ErrorReporter 接收回调和清理函数中恢复的panic，设置后不再写日志
	ErrorReporter func(err error)
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Scheduler: DefaultScheduler,
	}
}

// WithScheduler 指定调度器
func WithScheduler(scheduler Scheduler) Option {
	return OptionFunc(func(config *Config) {
		config.Scheduler = scheduler
	})
}

// WithLogger 指定日志记录器
func WithLogger(logger *slog.Logger) Option {
	return OptionFunc(func(config *Config) {
		config.Logger = logger
	})
}

// WithErrorReporter 指定错误上报函数
func WithErrorReporter(reporter func(err error)) Option {
	return OptionFunc(func(config *Config) {
		config.ErrorReporter = reporter
	})
}

// WithConfig 复制一份已有的配置
func WithConfig(other *Config) Option {
	return OptionFunc(func(config *Config) {
		if other != nil {
			*config = *other
		}
	})
}

// newConfig 基于父配置应用选项，父配置为nil时使用默认配置
func newConfig(parent *Config, options []Option) *Config {
	config := DefaultConfig()
	if parent != nil {
		*config = *parent
	}
	for _, opt := range options {
		if opt != nil {
			opt.Apply(config)
		}
	}
	if config.Scheduler == nil {
		config.Scheduler = DefaultScheduler
	}
	return config
}
