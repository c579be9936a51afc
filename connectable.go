// ConnectableObservable implementation for RxGo
// 可连接的Observable：通过内部Subject把一次单播执行共享给多个订阅者
package rxgo

import (
	"log/slog"
	"sync"
)

// ============================================================================
// ConnectableObservable 实现
// ============================================================================

// ConnectableObservable 订阅者订阅内部的连接器Subject，
// Connect 才会让连接器订阅源Observable。
type ConnectableObservable[T any] struct {
	source  *Observable[T]
	factory func() Subject[T]
	config  *Config

	mu         sync.Mutex
	subject    Subject[T]
	connection *Subscription
	refCount   int
}

// Publish 使用PublishSubject作为连接器
func Publish[T any](source *Observable[T]) *ConnectableObservable[T] {
	return Multicast(source, func() Subject[T] {
		return NewPublishSubject[T](WithConfig(source.config))
	})
}

// Multicast 使用factory创建的Subject作为连接器，每个连接周期创建一个新的
func Multicast[T any](source *Observable[T], factory func() Subject[T]) *ConnectableObservable[T] {
	return &ConnectableObservable[T]{
		source:  source,
		factory: factory,
		config:  source.config,
	}
}

// subjectLocked 返回当前连接器，调用方持有锁
func (co *ConnectableObservable[T]) subjectLocked() Subject[T] {
	if co.subject == nil {
		co.subject = co.factory()
	}
	return co.subject
}

func (co *ConnectableObservable[T]) currentSubject() Subject[T] {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.subjectLocked()
}

// Subscribe 订阅连接器
func (co *ConnectableObservable[T]) Subscribe(observer Observer[T]) *Subscription {
	return co.currentSubject().Subscribe(observer)
}

// AsObservable 以Observable的形式暴露，订阅不会触发连接
func (co *ConnectableObservable[T]) AsObservable() *Observable[T] {
	return newObservable(func(subscriber *Subscriber[T]) func() {
		subscriber.Add(co.currentSubject().Subscribe(subscriber.AsObserver()))
		return nil
	}, co.config)
}

// Connect 让连接器订阅源Observable；已连接时直接返回现有连接。
// 源终止或连接被取消后，下一次Connect会使用新的连接器开始新的周期。
func (co *ConnectableObservable[T]) Connect() *Subscription {
	co.mu.Lock()
	if co.connection != nil {
		connection := co.connection
		co.mu.Unlock()
		return connection
	}
	subject := co.subjectLocked()
	connection := &Subscription{config: co.config}
	co.connection = connection
	co.mu.Unlock()

	co.config.debug("connectable connected")

	connection.AddFunc(func() {
		co.mu.Lock()
		if co.connection == connection {
			co.connection = nil
			co.subject = nil
		}
		co.mu.Unlock()
		co.config.debug("connectable disconnected")
	})

	inner := newSubscriber(Observer[T]{
		Next: subject.Next,
		Error: func(err error) {
			subject.Error(err)
			connection.Unsubscribe()
		},
		Complete: func() {
			subject.Complete()
			connection.Unsubscribe()
		},
	}, co.source.config)
	connection.Add(inner)
	co.source.subscribeWith(inner)
	return connection
}

// IsConnected 检查是否已连接
func (co *ConnectableObservable[T]) IsConnected() bool {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.connection != nil
}

// RefCount 返回一个按引用计数自动连接/断开的Observable：
// 第一个订阅者触发连接，最后一个订阅者取消时释放连接。
func (co *ConnectableObservable[T]) RefCount() *Observable[T] {
	return newObservable(func(subscriber *Subscriber[T]) func() {
		co.mu.Lock()
		co.refCount++
		first := co.refCount == 1
		subject := co.subjectLocked()
		co.mu.Unlock()

		subscriber.AddFunc(func() {
			co.mu.Lock()
			co.refCount--
			last := co.refCount == 0
			connection := co.connection
			co.mu.Unlock()

			if last && connection != nil {
				co.config.debug("connectable released", slog.Int("refCount", 0))
				connection.Unsubscribe()
			}
		})

		subscriber.Add(subject.Subscribe(subscriber.AsObserver()))
		if first && !subscriber.Closed() {
			co.Connect()
		}
		return nil
	}, co.config)
}

// AutoConnect 第count个订阅者到达时自动连接，之后不会自动断开
func (co *ConnectableObservable[T]) AutoConnect(count int) *Observable[T] {
	var mu sync.Mutex
	subscribers := 0
	return newObservable(func(subscriber *Subscriber[T]) func() {
		subscriber.Add(co.currentSubject().Subscribe(subscriber.AsObserver()))

		mu.Lock()
		subscribers++
		connect := subscribers == count || (count <= 0 && subscribers == 1)
		mu.Unlock()
		if connect {
			co.Connect()
		}
		return nil
	}, co.config)
}

// ============================================================================
// 共享操作符
// ============================================================================

// Share 把源转换为按引用计数共享的Observable
func Share[T any]() OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return Publish(source).RefCount()
	}
}

// ShareReplay 按引用计数共享，并向后来的订阅者重放最近的bufferSize个值
func ShareReplay[T any](bufferSize int) OperatorFunc[T, T] {
	return func(source *Observable[T]) *Observable[T] {
		return Multicast(source, func() Subject[T] {
			return NewReplaySubject[T](bufferSize, WithReplayOptions(WithConfig(source.config)))
		}).RefCount()
	}
}
