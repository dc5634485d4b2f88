package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/docbridge/backend/internal/domain/reconcile"
	"github.com/docbridge/backend/internal/infrastructure/config"
	"github.com/docbridge/backend/internal/infrastructure/log"
)

// Scheduler 每日定时对账调度器
// 每天在配置的 HH:MM 触发一次对账；调度时间、delete_missing 和
// batch_size 都在触发时刻从设置表读取，修改设置无需重启即可生效
type Scheduler struct {
	service  *Service
	settings reconcile.SettingsStore
	cfg      *config.ReconcileConfig
	logger   *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewScheduler 创建调度器
func NewScheduler(service *Service, settings reconcile.SettingsStore, cfg *config.ReconcileConfig) *Scheduler {
	return &Scheduler{
		service:  service,
		settings: settings,
		cfg:      cfg,
		logger:   log.NewModuleLogger("reconcile", "scheduler"),
		stopCh:   make(chan struct{}),
	}
}

// NextRun 计算下一次触发时刻
// 当天的 HH:MM 仍在未来则取当天，否则取明天
func NextRun(now time.Time, schedule string) (time.Time, error) {
	parsed, err := time.Parse("15:04", schedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule %q, expected HH:MM: %w", schedule, err)
	}

	next := time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// Start 启动调度循环
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
	s.logger.Info("Reconciliation scheduler started")
}

// Stop 停止调度循环并等待退出
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info("Reconciliation scheduler stopped")
}

// loop 调度主循环：睡到下一个触发时刻，触发后重新计算
func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		next, err := s.NextFireTime()
		if err != nil {
			s.logger.Error("Invalid schedule setting, scheduler paused", "error", err)
			// 设置损坏时每小时重试一次，等待设置被修复
			next = time.Now().Add(time.Hour)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.fire()
		}
	}
}

// NextFireTime 读取当前调度设置并计算触发时刻
// 设置值解析失败时回退到配置的默认时刻
func (s *Scheduler) NextFireTime() (time.Time, error) {
	schedule, err := s.settings.Get(reconcile.SettingScheduleTime, s.cfg.DefaultSchedule)
	if err != nil {
		schedule = s.cfg.DefaultSchedule
	}
	next, err := NextRun(time.Now(), schedule)
	if err != nil {
		s.logger.Warn("Invalid schedule setting, using default",
			"schedule", schedule,
			"default", s.cfg.DefaultSchedule,
		)
		return NextRun(time.Now(), s.cfg.DefaultSchedule)
	}
	return next, nil
}

// fire 触发一次对账，选项在此刻从设置表读取
func (s *Scheduler) fire() {
	opts := reconcile.Options{
		DeleteMissing: s.readBoolSetting(reconcile.SettingDeleteMissing, false),
		BatchSize:     s.readIntSetting(reconcile.SettingBatchSize, s.cfg.DefaultBatchSize),
	}

	job, err := s.service.StartReconciliation(context.Background(), opts)
	if err != nil {
		s.logger.Warn("Scheduled reconciliation not started", "error", err)
		return
	}
	if job.Status.IsTerminal() {
		s.logger.Warn("Scheduled reconciliation failed immediately",
			"job_id", job.ID,
			"status", job.Status,
			"errors", job.ErrorDetails,
		)
		return
	}
	s.logger.Info("Scheduled reconciliation started", "job_id", job.ID)
}

// readBoolSetting 读取布尔设置
func (s *Scheduler) readBoolSetting(key string, defaultValue bool) bool {
	raw, err := s.settings.Get(key, strconv.FormatBool(defaultValue))
	if err != nil {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

// readIntSetting 读取整数设置
func (s *Scheduler) readIntSetting(key string, defaultValue int) int {
	raw, err := s.settings.Get(key, strconv.Itoa(defaultValue))
	if err != nil {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
