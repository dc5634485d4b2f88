package events

import "time"

// MonitoredFileEvent 受监控目录内的文件变更事件
// 当监控目录下支持的文档文件发生变更时触发
type MonitoredFileEvent struct {
	// EventType 事件类型（created/modified/deleted）
	EventType EventType
	// FilePath 文件完整路径
	FilePath string
	// ModTime 文件最后修改时间，删除事件时为零值
	ModTime time.Time
	// FileSize 文件大小（字节），删除事件时为 0
	FileSize int64
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *MonitoredFileEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *MonitoredFileEvent) Timestamp() time.Time {
	return e.EventTime
}
