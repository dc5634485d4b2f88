package document

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docbridge/backend/internal/domain/document"
	"github.com/docbridge/backend/internal/infrastructure/log"
)

// 同步状态
const (
	// StatusSynchronized 两个存储完全一致
	StatusSynchronized = "synchronized"
	// StatusMinorDrift 存在漂移但覆盖率不低于 90%
	StatusMinorDrift = "minor_drift"
	// StatusOutOfSync 覆盖率低于 90%
	StatusOutOfSync = "out_of_sync"
)

// minorDriftThreshold 轻微漂移的覆盖率下限
const minorDriftThreshold = 90.0

// ConsistencyEngine 一致性引擎
// 计算两个存储之间的漂移并修复；修复只改向量库，关系库永远不动
type ConsistencyEngine struct {
	repo    document.Repository
	vectors document.VectorStore
	logger  *slog.Logger
}

// NewConsistencyEngine 创建一致性引擎
func NewConsistencyEngine(repo document.Repository, vectors document.VectorStore) *ConsistencyEngine {
	return &ConsistencyEngine{
		repo:    repo,
		vectors: vectors,
		logger:  log.NewModuleLogger("document", "consistency"),
	}
}

// DriftReport 漂移报告
type DriftReport struct {
	RelationalCount  int      `json:"relational_count"`
	VectorCount      int      `json:"vector_count"`
	OnlyInRelational []string `json:"only_in_relational"`
	OnlyInVector     []string `json:"only_in_vector"`
	// Coverage 覆盖率 min(r, v) / r * 100，关系库为空时按 100 计
	Coverage float64 `json:"coverage"`
	// Status synchronized / minor_drift / out_of_sync
	Status string `json:"status"`
}

// ComputeDrift 计算两个存储之间的漂移
func (e *ConsistencyEngine) ComputeDrift(ctx context.Context) (*DriftReport, error) {
	relationalIDs, err := e.repo.ListIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to list relational store: %w", err)
	}

	vectorIDs, err := e.vectors.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vector store: %w", err)
	}

	relationalSet := make(map[string]bool, len(relationalIDs))
	for _, id := range relationalIDs {
		relationalSet[id] = true
	}
	vectorSet := make(map[string]bool, len(vectorIDs))
	for _, id := range vectorIDs {
		vectorSet[id] = true
	}

	report := &DriftReport{
		RelationalCount:  len(relationalIDs),
		VectorCount:      len(vectorIDs),
		OnlyInRelational: []string{},
		OnlyInVector:     []string{},
	}

	for _, id := range relationalIDs {
		if !vectorSet[id] {
			report.OnlyInRelational = append(report.OnlyInRelational, id)
		}
	}
	for _, id := range vectorIDs {
		if !relationalSet[id] {
			report.OnlyInVector = append(report.OnlyInVector, id)
		}
	}

	report.Coverage = coverage(report.RelationalCount, report.VectorCount)
	report.Status = classify(report)

	return report, nil
}

// coverage 计算覆盖率，关系库为空时按 100 计
func coverage(relationalCount, vectorCount int) float64 {
	if relationalCount == 0 {
		return 100
	}
	smaller := relationalCount
	if vectorCount < smaller {
		smaller = vectorCount
	}
	return float64(smaller) / float64(relationalCount) * 100
}

// classify 根据漂移集合和覆盖率判定同步状态
func classify(report *DriftReport) string {
	if len(report.OnlyInRelational) == 0 && len(report.OnlyInVector) == 0 {
		return StatusSynchronized
	}
	if report.Coverage >= minorDriftThreshold {
		return StatusMinorDrift
	}
	return StatusOutOfSync
}

// RepairReport 修复报告
// 每个失败的修复都被逐条记录，不静默吞掉部分失败
type RepairReport struct {
	// RepairedInVector 向量库中修复（补插或清除）的记录数
	RepairedInVector int `json:"repaired_in_vector"`
	// RepairedInRelational 关系库修复数，修复从不改关系库，恒为 0
	RepairedInRelational int      `json:"repaired_in_relational"`
	Errors               []string `json:"errors"`
}

// Repair 修复漂移
// 只存在于关系库的文档按向量化条件补插投影；
// 只存在于向量库的记录直接删除；单条失败记录后继续
func (e *ConsistencyEngine) Repair(ctx context.Context) (*RepairReport, error) {
	drift, err := e.ComputeDrift(ctx)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{Errors: []string{}}

	for _, id := range drift.OnlyInRelational {
		doc, err := e.repo.Get(id)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("get %s: %v", id, err))
			continue
		}
		if doc == nil {
			// 漂移计算后被并发删除，跳过
			continue
		}

		// 重新执行向量化条件检查，不符合的文档本就不该有投影
		if !document.ShouldVectorize(doc.Content, doc.Metadata) {
			continue
		}

		err = e.vectors.Add(ctx,
			[]string{doc.ID},
			[]string{doc.Content},
			[]document.Metadata{doc.Metadata},
		)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("insert %s: %v", id, err))
			continue
		}
		report.RepairedInVector++
	}

	for _, id := range drift.OnlyInVector {
		if err := e.vectors.Delete(ctx, []string{id}); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("delete %s: %v", id, err))
			continue
		}
		report.RepairedInVector++
	}

	e.logger.Info("Repair completed",
		"repaired_in_vector", report.RepairedInVector,
		"errors", len(report.Errors),
	)

	return report, nil
}

// Health 双存储健康状态
type Health struct {
	RelationalOK bool `json:"relational_ok"`
	VectorOK     bool `json:"vector_ok"`
	Overall      bool `json:"overall"`
}

// HealthCheck 轻量健康检查
// 每个存储独立探测，一边故障不掩盖另一边的状态
func (e *ConsistencyEngine) HealthCheck(ctx context.Context) *Health {
	health := &Health{}

	if _, err := e.repo.Count(); err == nil {
		health.RelationalOK = true
	} else {
		e.logger.Warn("Relational store health check failed", "error", err)
	}

	if _, err := e.vectors.Count(ctx); err == nil {
		health.VectorOK = true
	} else {
		e.logger.Warn("Vector store health check failed", "error", err)
	}

	health.Overall = health.RelationalOK && health.VectorOK
	return health
}
