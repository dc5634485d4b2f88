package events

// Handler 事件处理器
type Handler interface {
	// HandleEvent 处理单个事件
	// 返回的 error 只用于记录，事件不会重试
	HandleEvent(event Event) error
}

// HandlerFunc 函数适配器，把普通函数用作 Handler
type HandlerFunc func(event Event) error

// HandleEvent 实现 Handler 接口
func (f HandlerFunc) HandleEvent(event Event) error {
	return f(event)
}

// EventBus 进程内事件总线
// 发布是异步的，订阅方通过返回的函数取消订阅
type EventBus interface {
	// Subscribe 订阅单个事件类型
	Subscribe(eventType EventType, handler Handler) (unsubscribe func())

	// SubscribeMultiple 用同一个处理器订阅多个事件类型
	SubscribeMultiple(eventTypes []EventType, handler Handler) (unsubscribe func())

	// Publish 异步发布事件，分发给所有匹配订阅者
	Publish(event Event)

	// Close 停止接收新事件并等待在途事件处理完成
	Close()
}
