package rxgo

import (
	"sync"
)

// recorder 记录观察者收到的所有通知，可以在多个goroutine中使用
type recorder[T any] struct {
	mu            sync.Mutex
	notifications []Notification[T]
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{}
}

func (r *recorder[T]) observer() Observer[T] {
	return Observer[T]{
		Next:     func(value T) { r.add(NextNotification(value)) },
		Error:    func(err error) { r.add(ErrorNotification[T](err)) },
		Complete: func() { r.add(CompleteNotification[T]()) },
	}
}

func (r *recorder[T]) add(n Notification[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// Values 收到的所有值
func (r *recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	values := []T{}
	for _, n := range r.notifications {
		if n.Kind == KindNext {
			values = append(values, n.Value)
		}
	}
	return values
}

// Err 收到的错误，没有则为nil
func (r *recorder[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.notifications {
		if n.Kind == KindError {
			return n.Err
		}
	}
	return nil
}

// Completed 是否收到完成信号
func (r *recorder[T]) Completed() bool {
	return r.count(KindComplete) > 0
}

// Terminations 终止通知的数量
func (r *recorder[T]) Terminations() int {
	return r.count(KindComplete) + r.count(KindError)
}

func (r *recorder[T]) count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, notification := range r.notifications {
		if notification.Kind == kind {
			n++
		}
	}
	return n
}

// Kinds 按顺序返回通知的种类
func (r *recorder[T]) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]Kind, len(r.notifications))
	for i, n := range r.notifications {
		kinds[i] = n.Kind
	}
	return kinds
}
