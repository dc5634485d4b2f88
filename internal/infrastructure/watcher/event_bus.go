// Package watcher 提供文件监听和事件分发功能
package watcher

import (
	"log/slog"
	"sync"

	"github.com/docbridge/backend/internal/domain/events"
	"github.com/docbridge/backend/internal/infrastructure/log"
)

// eventBusImpl EventBus 的实现
// 订阅按自增 ID 登记，取消订阅凭 ID 移除，
// 处理器本身（可能是函数值）不参与比较
type eventBusImpl struct {
	mu       sync.RWMutex
	handlers map[events.EventType]map[uint64]events.Handler
	nextID   uint64
	closed   bool

	// wg 等待所有在途事件处理完成
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewEventBus 创建新的事件总线实例
func NewEventBus() events.EventBus {
	return &eventBusImpl{
		handlers: make(map[events.EventType]map[uint64]events.Handler),
		logger:   log.NewModuleLogger("watcher", "event_bus"),
	}
}

// Subscribe 订阅特定类型的事件
func (b *eventBusImpl) Subscribe(eventType events.EventType, handler events.Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[uint64]events.Handler)
	}
	b.handlers[eventType][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[eventType], id)
	}
}

// SubscribeMultiple 订阅多个类型的事件
func (b *eventBusImpl) SubscribeMultiple(eventTypes []events.EventType, handler events.Handler) func() {
	unsubscribers := make([]func(), 0, len(eventTypes))
	for _, eventType := range eventTypes {
		unsubscribers = append(unsubscribers, b.Subscribe(eventType, handler))
	}

	return func() {
		for _, unsub := range unsubscribers {
			unsub()
		}
	}
}

// Publish 异步发布事件
func (b *eventBusImpl) Publish(event events.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := make([]events.Handler, 0, len(b.handlers[event.Type()]))
	for _, handler := range b.handlers[event.Type()] {
		handlers = append(handlers, handler)
	}
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	b.logger.Debug("Publishing event",
		"type", event.Type(),
		"handlers_count", len(handlers),
	)

	for _, handler := range handlers {
		b.wg.Add(1)
		go b.dispatchToHandler(event, handler)
	}
}

// dispatchToHandler 分发事件到单个处理器
// 单个处理器 panic 不影响其他处理器
func (b *eventBusImpl) dispatchToHandler(event events.Event, handler events.Handler) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				"type", event.Type(),
				"panic", r,
			)
		}
	}()

	if err := handler.HandleEvent(event); err != nil {
		b.logger.Error("Handler returned error",
			"type", event.Type(),
			"error", err,
		)
	}
}

// Close 关闭事件总线，等待在途事件处理完成
func (b *eventBusImpl) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("Event bus closed")
}
