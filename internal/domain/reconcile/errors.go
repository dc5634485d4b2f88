package reconcile

import "errors"

// 对账相关错误
var (
	// ErrJobNotFound 任务不存在
	ErrJobNotFound = errors.New("reconciliation job not found")
	// ErrJobAlreadyFinished 任务已结束，不能取消
	ErrJobAlreadyFinished = errors.New("job already completed")
	// ErrNoMonitoredDirs 没有配置监控目录
	ErrNoMonitoredDirs = errors.New("no monitored directories configured")
	// ErrCollectionBusy 同一集合上已有任务在运行
	ErrCollectionBusy = errors.New("a reconciliation job is already running for this collection")
)
