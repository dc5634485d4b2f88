// Package events 定义领域事件类型和接口
// 用于系统内部的事件驱动通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 受监控文件相关事件类型
const (
	// MonitoredFileCreated 监控目录内文件创建事件
	MonitoredFileCreated EventType = "monitored.file.created"
	// MonitoredFileModified 监控目录内文件修改事件
	MonitoredFileModified EventType = "monitored.file.modified"
	// MonitoredFileDeleted 监控目录内文件删除事件
	MonitoredFileDeleted EventType = "monitored.file.deleted"
)

// Event 领域事件接口
// 所有事件类型都必须实现此接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}
