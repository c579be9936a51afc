// Subject implementations for RxGo
// 实现Subject系统，包括PublishSubject、BehaviorSubject、ReplaySubject、AsyncSubject
package rxgo

import (
	"slices"
	"sync"
	"time"
)

// ============================================================================
// Subject 主题接口
// ============================================================================

// Subject 既是Observable又是Observer
type Subject[T any] interface {
	// Next 发送下一个值
	Next(value T)
	// Error 发送错误
	Error(err error)
	// Complete 发送完成信号
	Complete()

	// Subscribe 订阅观察者
	Subscribe(observer Observer[T]) *Subscription
	// AsObservable 以Observable的形式暴露，可以接入操作符
	AsObservable() *Observable[T]
	// AsObserver 以Observer的形式暴露，可以订阅其他Observable
	AsObserver() Observer[T]

	// HasObservers 检查是否有观察者
	HasObservers() bool
	// ObserverCount 获取观察者数量
	ObserverCount() int
}

// ============================================================================
// subjectCore - 观察者注册表
// ============================================================================

// subjectCore 有序的观察者注册表和终止状态。
// 广播遍历快照，遍历过程中取消订阅的观察者已关闭，不会再收到通知。
// 广播进行中（重入或来自其他goroutine）到达的通知进入pending，
// 由正在广播的调用按顺序取出，所以每个观察者看到的顺序都相同。
type subjectCore[T any] struct {
	mu        sync.Mutex
	observers []*Subscriber[T]
	terminal  *Notification[T]
	config    *Config

	emitting bool
	pending  []Notification[T]

	// onNext 值出队时在持锁状态下更新主题自身的状态
	onNext func(value T)
	// replayTerminal 向终止后才订阅的观察者重放终止状态
	replayTerminal func(subscriber *Subscriber[T], n Notification[T])
}

// subscribe 注册订阅者；若主题已终止，只向它重放终止通知。
// prime在持锁时调用，返回的值先于之后的任何广播投递给该订阅者。
func (c *subjectCore[T]) subscribe(subscriber *Subscriber[T], prime func() []T) {
	c.mu.Lock()
	if c.terminal != nil {
		n := *c.terminal
		c.mu.Unlock()
		if c.replayTerminal != nil {
			c.replayTerminal(subscriber, n)
		} else {
			n.Accept(subscriber.AsObserver())
		}
		return
	}
	if subscriber.Closed() {
		c.mu.Unlock()
		return
	}
	c.observers = append(c.observers, subscriber)
	reserved := prime != nil && subscriber.reserve(prime())
	c.mu.Unlock()

	subscriber.AddFunc(func() {
		c.remove(subscriber)
	})
	if reserved {
		subscriber.drain()
	}
}

// remove 从注册表移除订阅者
func (c *subjectCore[T]) remove(subscriber *Subscriber[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := slices.Index(c.observers, subscriber); i >= 0 {
		c.observers = slices.Delete(c.observers, i, i+1)
	}
}

// next 按注册顺序同步广播
func (c *subjectCore[T]) next(value T) {
	c.mu.Lock()
	if c.terminal != nil {
		c.mu.Unlock()
		return
	}
	c.pushLocked(NextNotification(value))
}

// terminate 设置终止状态，排在之前的值之后通知当前观察者并清空注册表
func (c *subjectCore[T]) terminate(n Notification[T]) {
	c.mu.Lock()
	if c.terminal != nil {
		c.mu.Unlock()
		return
	}
	c.terminal = &n
	c.pushLocked(n)
}

// pushLocked 通知入队；没有广播在进行时由当前调用负责广播。调用方持有锁，返回时锁已释放
func (c *subjectCore[T]) pushLocked(n Notification[T]) {
	c.pending = append(c.pending, n)
	if c.emitting {
		c.mu.Unlock()
		return
	}
	c.emitting = true
	c.mu.Unlock()

	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.emitting = false
			c.mu.Unlock()
			return
		}
		n := c.pending[0]
		c.pending = c.pending[1:]

		var observers []*Subscriber[T]
		if n.IsTerminal() {
			observers = c.observers
			c.observers = nil
		} else {
			if c.onNext != nil {
				c.onNext(n.Value)
			}
			observers = slices.Clone(c.observers)
		}
		c.mu.Unlock()

		for _, observer := range observers {
			n.Accept(observer.AsObserver())
		}
	}
}

// isTerminated 检查是否已终止
func (c *subjectCore[T]) isTerminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminal != nil
}

func (c *subjectCore[T]) observerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

// ============================================================================
// PublishSubject - 发布主题
// ============================================================================

// PublishSubject 发布主题，只向当前订阅者发送新的值
type PublishSubject[T any] struct {
	core subjectCore[T]
}

// NewPublishSubject 创建新的发布主题
func NewPublishSubject[T any](options ...Option) *PublishSubject[T] {
	return &PublishSubject[T]{core: subjectCore[T]{config: newConfig(nil, options)}}
}

// Subscribe 订阅观察者
func (ps *PublishSubject[T]) Subscribe(observer Observer[T]) *Subscription {
	subscriber := newSubscriber(observer, ps.core.config)
	ps.core.subscribe(subscriber, nil)
	return subscriber.Subscription
}

// Next 发送下一个值
func (ps *PublishSubject[T]) Next(value T) { ps.core.next(value) }

// Error 发送错误
func (ps *PublishSubject[T]) Error(err error) { ps.core.terminate(ErrorNotification[T](err)) }

// Complete 发送完成信号
func (ps *PublishSubject[T]) Complete() { ps.core.terminate(CompleteNotification[T]()) }

// AsObservable 以Observable的形式暴露
func (ps *PublishSubject[T]) AsObservable() *Observable[T] {
	return newObservable(func(subscriber *Subscriber[T]) func() {
		ps.core.subscribe(subscriber, nil)
		return nil
	}, ps.core.config)
}

// AsObserver 返回Observer
func (ps *PublishSubject[T]) AsObserver() Observer[T] {
	return Observer[T]{Next: ps.Next, Error: ps.Error, Complete: ps.Complete}
}

// HasObservers 检查是否有观察者
func (ps *PublishSubject[T]) HasObservers() bool { return ps.core.observerCount() > 0 }

// ObserverCount 获取观察者数量
func (ps *PublishSubject[T]) ObserverCount() int { return ps.core.observerCount() }

// ============================================================================
// BehaviorSubject - 行为主题
// ============================================================================

// BehaviorSubject 行为主题，保存当前值，新订阅者会立即收到当前值
type BehaviorSubject[T any] struct {
	core  subjectCore[T]
	value T
}

// NewBehaviorSubject 创建新的行为主题
func NewBehaviorSubject[T any](initialValue T, options ...Option) *BehaviorSubject[T] {
	bs := &BehaviorSubject[T]{
		core:  subjectCore[T]{config: newConfig(nil, options)},
		value: initialValue,
	}
	bs.core.onNext = func(value T) {
		bs.value = value
	}
	return bs
}

// Subscribe 订阅观察者，先同步发送当前值，之后的值排在当前值后面
func (bs *BehaviorSubject[T]) Subscribe(observer Observer[T]) *Subscription {
	subscriber := newSubscriber(observer, bs.core.config)
	bs.subscribe(subscriber)
	return subscriber.Subscription
}

func (bs *BehaviorSubject[T]) subscribe(subscriber *Subscriber[T]) {
	bs.core.subscribe(subscriber, func() []T {
		return []T{bs.value}
	})
}

// Next 更新当前值并广播
func (bs *BehaviorSubject[T]) Next(value T) { bs.core.next(value) }

// Error 发送错误
func (bs *BehaviorSubject[T]) Error(err error) { bs.core.terminate(ErrorNotification[T](err)) }

// Complete 发送完成信号
func (bs *BehaviorSubject[T]) Complete() { bs.core.terminate(CompleteNotification[T]()) }

// Value 获取当前值；主题以错误终止时返回该错误
func (bs *BehaviorSubject[T]) Value() (T, error) {
	bs.core.mu.Lock()
	defer bs.core.mu.Unlock()

	if bs.core.terminal != nil && bs.core.terminal.Kind == KindError {
		var zero T
		return zero, bs.core.terminal.Err
	}
	return bs.value, nil
}

// AsObservable 以Observable的形式暴露
func (bs *BehaviorSubject[T]) AsObservable() *Observable[T] {
	return newObservable(func(subscriber *Subscriber[T]) func() {
		bs.subscribe(subscriber)
		return nil
	}, bs.core.config)
}

// AsObserver 返回Observer
func (bs *BehaviorSubject[T]) AsObserver() Observer[T] {
	return Observer[T]{Next: bs.Next, Error: bs.Error, Complete: bs.Complete}
}

// HasObservers 检查是否有观察者
func (bs *BehaviorSubject[T]) HasObservers() bool { return bs.core.observerCount() > 0 }

// ObserverCount 获取观察者数量
func (bs *BehaviorSubject[T]) ObserverCount() int { return bs.core.observerCount() }

// ============================================================================
// ReplaySubject - 重放主题
// ============================================================================

// ReplayOption ReplaySubject的配置
type ReplayOption func(rs *replayConfig)

type replayConfig struct {
	window  time.Duration
	options []Option
}

// WithWindow 只重放在窗口时间内产生的值
func WithWindow(window time.Duration) ReplayOption {
	return func(rc *replayConfig) {
		rc.window = window
	}
}

// WithReplayOptions 为ReplaySubject指定通用配置（例如调度器）
func WithReplayOptions(options ...Option) ReplayOption {
	return func(rc *replayConfig) {
		rc.options = append(rc.options, options...)
	}
}

// replayEntry 缓存的值及其时间戳
type replayEntry[T any] struct {
	value T
	at    time.Time
}

// ReplaySubject 重放主题，缓存有限数量（可选有限时间窗口）的值，
// 新订阅者会先收到缓存的值（从旧到新）。
type ReplaySubject[T any] struct {
	core     subjectCore[T]
	maxCount int
	window   time.Duration
	buffer   []replayEntry[T]
}

// NewReplaySubject 创建新的重放主题，maxCount<=0 表示不限制数量
func NewReplaySubject[T any](maxCount int, options ...ReplayOption) *ReplaySubject[T] {
	rc := &replayConfig{}
	for _, opt := range options {
		opt(rc)
	}

	rs := &ReplaySubject[T]{
		core:     subjectCore[T]{config: newConfig(nil, rc.options)},
		maxCount: maxCount,
		window:   rc.window,
	}
	rs.core.onNext = func(value T) {
		now := rs.core.config.Scheduler.Now()
		rs.buffer = append(rs.buffer, replayEntry[T]{value: value, at: now})
		rs.trimLocked(now)
	}
	rs.core.replayTerminal = func(subscriber *Subscriber[T], n Notification[T]) {
		for _, value := range rs.snapshot() {
			subscriber.Next(value)
		}
		n.Accept(subscriber.AsObserver())
	}
	return rs
}

// Subscribe 订阅观察者，先同步重放缓存，之后的值排在缓存后面
func (rs *ReplaySubject[T]) Subscribe(observer Observer[T]) *Subscription {
	subscriber := newSubscriber(observer, rs.core.config)
	rs.subscribe(subscriber)
	return subscriber.Subscription
}

func (rs *ReplaySubject[T]) subscribe(subscriber *Subscriber[T]) {
	rs.core.subscribe(subscriber, rs.valuesLocked)
}

// Next 添加到缓存并广播
func (rs *ReplaySubject[T]) Next(value T) { rs.core.next(value) }

// Error 发送错误
func (rs *ReplaySubject[T]) Error(err error) { rs.core.terminate(ErrorNotification[T](err)) }

// Complete 发送完成信号
func (rs *ReplaySubject[T]) Complete() { rs.core.terminate(CompleteNotification[T]()) }

// BufferedValues 获取当前可重放的值
func (rs *ReplaySubject[T]) BufferedValues() []T {
	return rs.snapshot()
}

// snapshot 按订阅时刻的时间窗口过滤后的缓存副本
func (rs *ReplaySubject[T]) snapshot() []T {
	rs.core.mu.Lock()
	defer rs.core.mu.Unlock()
	return rs.valuesLocked()
}

// valuesLocked 淘汰过期值后返回缓存副本，调用方持有锁
func (rs *ReplaySubject[T]) valuesLocked() []T {
	rs.trimLocked(rs.core.config.Scheduler.Now())
	values := make([]T, len(rs.buffer))
	for i, entry := range rs.buffer {
		values[i] = entry.value
	}
	return values
}

// trimLocked 淘汰超出数量或时间窗口的旧值，调用方持有锁
func (rs *ReplaySubject[T]) trimLocked(now time.Time) {
	drop := 0
	if rs.maxCount > 0 && len(rs.buffer) > rs.maxCount {
		drop = len(rs.buffer) - rs.maxCount
	}
	if rs.window > 0 {
		for drop < len(rs.buffer) && now.Sub(rs.buffer[drop].at) > rs.window {
			drop++
		}
	}
	if drop > 0 {
		rs.buffer = slices.Delete(rs.buffer, 0, drop)
	}
}

// AsObservable 以Observable的形式暴露
func (rs *ReplaySubject[T]) AsObservable() *Observable[T] {
	return newObservable(func(subscriber *Subscriber[T]) func() {
		rs.subscribe(subscriber)
		return nil
	}, rs.core.config)
}

// AsObserver 返回Observer
func (rs *ReplaySubject[T]) AsObserver() Observer[T] {
	return Observer[T]{Next: rs.Next, Error: rs.Error, Complete: rs.Complete}
}

// HasObservers 检查是否有观察者
func (rs *ReplaySubject[T]) HasObservers() bool { return rs.core.observerCount() > 0 }

// ObserverCount 获取观察者数量
func (rs *ReplaySubject[T]) ObserverCount() int { return rs.core.observerCount() }

// ============================================================================
// AsyncSubject - 异步主题
// ============================================================================

// AsyncSubject 异步主题，只在完成时发送最后一个值
type AsyncSubject[T any] struct {
	core      subjectCore[T]
	lastValue T
	hasValue  bool
}

// NewAsyncSubject 创建新的异步主题
func NewAsyncSubject[T any](options ...Option) *AsyncSubject[T] {
	as := &AsyncSubject[T]{core: subjectCore[T]{config: newConfig(nil, options)}}
	as.core.replayTerminal = func(subscriber *Subscriber[T], n Notification[T]) {
		if n.Kind == KindComplete {
			if value, ok := as.last(); ok {
				subscriber.Next(value)
			}
		}
		n.Accept(subscriber.AsObserver())
	}
	return as
}

// Subscribe 订阅观察者
func (as *AsyncSubject[T]) Subscribe(observer Observer[T]) *Subscription {
	subscriber := newSubscriber(observer, as.core.config)
	as.core.subscribe(subscriber, nil)
	return subscriber.Subscription
}

// Next 记录最后一个值但不发送
func (as *AsyncSubject[T]) Next(value T) {
	as.core.mu.Lock()
	defer as.core.mu.Unlock()

	if as.core.terminal != nil {
		return
	}
	as.lastValue = value
	as.hasValue = true
}

// Error 发送错误，丢弃记录的值
func (as *AsyncSubject[T]) Error(err error) { as.core.terminate(ErrorNotification[T](err)) }

// Complete 发送最后一个值然后完成
func (as *AsyncSubject[T]) Complete() {
	if as.core.isTerminated() {
		return
	}
	if value, ok := as.last(); ok {
		as.core.next(value)
	}
	as.core.terminate(CompleteNotification[T]())
}

func (as *AsyncSubject[T]) last() (T, bool) {
	as.core.mu.Lock()
	defer as.core.mu.Unlock()
	return as.lastValue, as.hasValue
}

// AsObservable 以Observable的形式暴露
func (as *AsyncSubject[T]) AsObservable() *Observable[T] {
	return newObservable(func(subscriber *Subscriber[T]) func() {
		as.core.subscribe(subscriber, nil)
		return nil
	}, as.core.config)
}

// AsObserver 返回Observer
func (as *AsyncSubject[T]) AsObserver() Observer[T] {
	return Observer[T]{Next: as.Next, Error: as.Error, Complete: as.Complete}
}

// HasObservers 检查是否有观察者
func (as *AsyncSubject[T]) HasObservers() bool { return as.core.observerCount() > 0 }

// ObserverCount 获取观察者数量
func (as *AsyncSubject[T]) ObserverCount() int { return as.core.observerCount() }
