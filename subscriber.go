package rxgo

import "sync"

// ============================================================================
// Subscriber 订阅者
// ============================================================================

// Subscriber 包装一个Observer，是生产者推送通知的唯一通道。
//
// 保证最多一个终止通知：Error或Complete之后的所有通知都被丢弃。
// 通知是串行投递的，回调中重入或其他goroutine并发推送的通知会排队，
// 在当前回调返回后按顺序投递。
type Subscriber[T any] struct {
	*Subscription

	observer Observer[T]
	config   *Config

	mu       sync.Mutex
	stopped  bool
	emitting bool
	queue    []Notification[T]
}

// NewSubscriber 创建订阅者
func NewSubscriber[T any](observer Observer[T], options ...Option) *Subscriber[T] {
	return newSubscriber(observer, newConfig(nil, options))
}

func newSubscriber[T any](observer Observer[T], config *Config) *Subscriber[T] {
	return &Subscriber[T]{
		Subscription: &Subscription{config: config},
		observer:     observer,
		config:       config,
	}
}

// Next 发送下一个值
func (s *Subscriber[T]) Next(value T) {
	s.emit(NextNotification(value))
}

// Error 发送错误并终止
func (s *Subscriber[T]) Error(err error) {
	s.emit(ErrorNotification[T](err))
}

// Complete 发送完成信号并终止
func (s *Subscriber[T]) Complete() {
	s.emit(CompleteNotification[T]())
}

// Closed 检查是否已终止或已取消订阅
func (s *Subscriber[T]) Closed() bool {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	return stopped || s.IsUnsubscribed()
}

// AsObserver 返回把通知转发给该订阅者的Observer
func (s *Subscriber[T]) AsObserver() Observer[T] {
	return Observer[T]{
		Next:     s.Next,
		Error:    s.Error,
		Complete: s.Complete,
	}
}

// emit 串行投递通知
func (s *Subscriber[T]) emit(n Notification[T]) {
	s.mu.Lock()
	if s.stopped || s.IsUnsubscribed() {
		s.mu.Unlock()
		return
	}
	if n.IsTerminal() {
		s.stopped = true
	}
	s.queue = append(s.queue, n)
	if s.emitting {
		s.mu.Unlock()
		return
	}
	s.emitting = true
	s.mu.Unlock()

	s.drain()
}

// reserve 把值排在队列最前面并占住投递权，返回true时调用方必须随后调用drain。
// 在reserve和drain之间到达的通知排在这些值之后。
func (s *Subscriber[T]) reserve(values []T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.IsUnsubscribed() || len(values) == 0 {
		return false
	}
	prefix := make([]Notification[T], 0, len(values)+len(s.queue))
	for _, value := range values {
		prefix = append(prefix, NextNotification(value))
	}
	s.queue = append(prefix, s.queue...)
	if s.emitting {
		return false
	}
	s.emitting = true
	return true
}

// drain 依次投递队列中的通知直到队列为空，调用方持有投递权
func (s *Subscriber[T]) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.emitting = false
			s.mu.Unlock()
			return
		}
		n := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.deliver(n)
	}
}

// deliver 调用观察者回调，回调中的panic被恢复并上报，不影响其他观察者
func (s *Subscriber[T]) deliver(n Notification[T]) {
	if s.IsUnsubscribed() {
		return
	}
	if err := recoverAsError(func() { n.Accept(s.observer) }); err != nil {
		s.config.report("subscriber", n.Kind.String(), err)
	}
	if n.IsTerminal() {
		s.Unsubscribe()
	}
}
