package rxgo

import (
	"sync"
)

// ============================================================================
// 生命周期管理
// ============================================================================

// Unsubscriber 可以被取消的资源
type Unsubscriber interface {
	Unsubscribe()
}

// teardownFunc 把普通函数适配为Unsubscriber
type teardownFunc struct {
	fn func()
}

func (t *teardownFunc) Unsubscribe() {
	t.fn()
}

// Subscription 订阅句柄，管理一次执行的清理逻辑和子订阅
//
// Unsubscribe 是幂等的：自身的清理函数最多执行一次，
// 之后按添加顺序释放每个子订阅。已释放后添加的子订阅会被立即释放。
type Subscription struct {
	mu       sync.Mutex
	closed   bool
	teardown func()
	children []Unsubscriber
	config   *Config
}

// NewSubscription 创建订阅，teardown 可以为nil
func NewSubscription(teardown func()) *Subscription {
	return &Subscription{teardown: teardown}
}

// newClosedSubscription 创建一个已经释放的订阅
func newClosedSubscription() *Subscription {
	return &Subscription{closed: true}
}

// Add 添加子订阅
func (s *Subscription) Add(child Unsubscriber) {
	if child == nil {
		return
	}
	if other, ok := child.(*Subscription); ok && other == s {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.runChild(child)
		return
	}
	s.children = append(s.children, child)
	s.mu.Unlock()
}

// AddFunc 添加清理函数
func (s *Subscription) AddFunc(fn func()) {
	if fn == nil {
		return
	}
	s.Add(&teardownFunc{fn: fn})
}

// Remove 移除子订阅但不释放它
func (s *Subscription) Remove(child Unsubscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i:i], s.children[i+1:]...)
			return
		}
	}
}

// Unsubscribe 取消订阅
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	teardown := s.teardown
	children := s.children
	s.teardown = nil
	s.children = nil
	s.mu.Unlock()

	if teardown != nil {
		if err := recoverAsError(teardown); err != nil {
			s.config.report("subscription", "teardown", err)
		}
	}
	for _, child := range children {
		s.runChild(child)
	}
}

// IsUnsubscribed 检查是否已取消订阅
func (s *Subscription) IsUnsubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// runChild 释放子订阅，panic被恢复并上报
func (s *Subscription) runChild(child Unsubscriber) {
	if err := recoverAsError(child.Unsubscribe); err != nil {
		s.config.report("subscription", "teardown", err)
	}
}
