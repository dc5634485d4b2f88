package reconcile

// JobRepository 对账任务仓储接口
// 任务记录必须在进程重启后仍然可见
type JobRepository interface {
	// Save 写入或覆盖任务记录
	Save(job *Job) error
	// Get 按 ID 读取，不存在时返回 (nil, nil)
	Get(id string) (*Job, error)
	// List 按开始时间倒序列出任务
	List(limit int) ([]*Job, error)
	// MarkInterrupted 将所有仍处于 running 状态的任务标记为 failed，
	// 返回受影响的任务数。进程启动时调用，清理上次崩溃遗留的任务
	MarkInterrupted(reason string) (int, error)
}

// 设置与运行统计的键
const (
	SettingScheduleTime  = "reconciliation_schedule"
	SettingDeleteMissing = "reconciliation_delete_missing"
	SettingBatchSize     = "reconciliation_batch_size"
	SettingMonitoredDirs = "monitored_directories"
	StatLastRun          = "last_reconciliation"
	StatLastRunDuration  = "last_reconciliation_duration"
	StatLastRunFiles     = "last_reconciliation_files"
	StatTotalDocuments   = "total_documents"
)

// SettingsStore 进程级键值设置面
// 调度器与对账任务以读为主；配置修改在下一次触发时生效，无需重启
type SettingsStore interface {
	// Get 读取键值，不存在时返回 defaultValue
	Get(key, defaultValue string) (string, error)
	// Set 写入键值
	Set(key, value string) error
	// All 列出全部键值
	All() (map[string]string, error)
}
