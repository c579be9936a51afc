// Observable implementation for RxGo
// 惰性单播Observable的核心实现
package rxgo

// ============================================================================
// Observable 核心实现
// ============================================================================

// Producer 生产者函数，向订阅者推送通知并返回清理函数（可以为nil）
type Producer[T any] func(subscriber *Subscriber[T]) func()

// Observable 惰性单播序列。
//
// 每次订阅都会以新的Subscriber同步调用一次生产者，订阅之间不共享任何状态。
type Observable[T any] struct {
	producer Producer[T]
	config   *Config
}

// Create 用生产者函数创建Observable
func Create[T any](producer func(subscriber *Subscriber[T]) func(), options ...Option) *Observable[T] {
	return newObservable(producer, newConfig(nil, options))
}

func newObservable[T any](producer Producer[T], config *Config) *Observable[T] {
	return &Observable[T]{producer: producer, config: config}
}

// Subscribe 订阅观察者
func (o *Observable[T]) Subscribe(observer Observer[T]) *Subscription {
	subscriber := newSubscriber(observer, o.config)
	o.subscribeWith(subscriber)
	return subscriber.Subscription
}

// SubscribeWithCallbacks 使用回调函数订阅，任何回调都可以为nil
func (o *Observable[T]) SubscribeWithCallbacks(onNext func(T), onError func(error), onComplete func()) *Subscription {
	return o.Subscribe(Observer[T]{Next: onNext, Error: onError, Complete: onComplete})
}

// subscribeWith 以已有的订阅者运行生产者。
// 生产者中的panic会转换为错误通知，不会传播到调用方。
func (o *Observable[T]) subscribeWith(subscriber *Subscriber[T]) {
	var teardown func()
	err := recoverAsError(func() {
		teardown = o.producer(subscriber)
	})
	if err != nil {
		if subscriber.Closed() {
			o.config.report("observable", "producer", err)
		} else {
			subscriber.Error(err)
		}
		return
	}
	subscriber.AddFunc(teardown)
}

// Pipe 从左到右依次应用同类型的操作符
func (o *Observable[T]) Pipe(operators ...OperatorFunc[T, T]) *Observable[T] {
	result := o
	for _, op := range operators {
		result = op(result)
	}
	return result
}

// Config 返回Observable的配置
func (o *Observable[T]) Config() Config {
	return *o.config
}

// ============================================================================
// 类型变换的管道
// ============================================================================

// Pipe2 依次应用两个操作符
func Pipe2[A, B, C any](source *Observable[A], op1 OperatorFunc[A, B], op2 OperatorFunc[B, C]) *Observable[C] {
	return op2(op1(source))
}

// Pipe3 依次应用三个操作符
func Pipe3[A, B, C, D any](source *Observable[A], op1 OperatorFunc[A, B], op2 OperatorFunc[B, C], op3 OperatorFunc[C, D]) *Observable[D] {
	return op3(op2(op1(source)))
}

// Pipe4 依次应用四个操作符
func Pipe4[A, B, C, D, E any](source *Observable[A], op1 OperatorFunc[A, B], op2 OperatorFunc[B, C], op3 OperatorFunc[C, D], op4 OperatorFunc[D, E]) *Observable[E] {
	return op4(op3(op2(op1(source))))
}

// Pipe5 依次应用五个操作符
func Pipe5[A, B, C, D, E, F any](source *Observable[A], op1 OperatorFunc[A, B], op2 OperatorFunc[B, C], op3 OperatorFunc[C, D], op4 OperatorFunc[D, E], op5 OperatorFunc[E, F]) *Observable[F] {
	return op5(op4(op3(op2(op1(source)))))
}

// ============================================================================
// 操作符辅助函数
// ============================================================================

// lift 创建新的Observable：订阅时用build构造的Observer订阅源，
// 源订阅作为下游订阅者的子订阅，下游取消或终止时源订阅随之释放。
func lift[T, R any](source *Observable[T], build func(downstream *Subscriber[R], upstream *Subscription) Observer[T]) *Observable[R] {
	return newObservable(func(downstream *Subscriber[R]) func() {
		inner := newSubscriber[T](Observer[T]{}, source.config)
		inner.observer = build(downstream, inner.Subscription)
		downstream.Add(inner)
		source.subscribeWith(inner)
		return nil
	}, source.config)
}

// subscribeInner 订阅内部Observable，内部订阅挂到parent上，完成后从parent移除
func subscribeInner[T any](parent *Subscription, source *Observable[T], observer Observer[T]) *Subscriber[T] {
	inner := newSubscriber(observer, source.config)
	complete := observer.Complete
	inner.observer.Complete = func() {
		parent.Remove(inner)
		if complete != nil {
			complete()
		}
	}
	parent.Add(inner)
	source.subscribeWith(inner)
	return inner
}
