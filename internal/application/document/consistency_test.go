package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbridge/backend/internal/domain/document"
)

func newTestEngine() (*ConsistencyEngine, *fakeRepository, *fakeVectorStore) {
	repo := newFakeRepository()
	vectors := newFakeVectorStore()
	return NewConsistencyEngine(repo, vectors), repo, vectors
}

func seedRelational(t *testing.T, repo *fakeRepository, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, repo.Upsert(textDoc(id, "这是一段足够长的可向量化正文 "+id)))
	}
}

func seedVector(t *testing.T, vectors *fakeVectorStore, ids ...string) {
	t.Helper()
	for _, id := range ids {
		err := vectors.Add(context.Background(),
			[]string{id},
			[]string{"这是一段足够长的可向量化正文 " + id},
			[]document.Metadata{document.NewMetadata()},
		)
		require.NoError(t, err)
	}
}

func TestComputeDriftSynchronized(t *testing.T) {
	engine, repo, vectors := newTestEngine()
	seedRelational(t, repo, "a", "b")
	seedVector(t, vectors, "a", "b")

	report, err := engine.ComputeDrift(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSynchronized, report.Status)
	assert.Equal(t, float64(100), report.Coverage)
	assert.Empty(t, report.OnlyInRelational)
	assert.Empty(t, report.OnlyInVector)
}

func TestComputeDriftMinorDrift(t *testing.T) {
	engine, repo, vectors := newTestEngine()
	// 10 个文档缺 1 个投影，覆盖率 90%
	ids := []string{"d0", "d1", "d2", "d3", "d4", "d5", "d6", "d7", "d8", "d9"}
	seedRelational(t, repo, ids...)
	seedVector(t, vectors, ids[:9]...)

	report, err := engine.ComputeDrift(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusMinorDrift, report.Status)
	assert.Equal(t, float64(90), report.Coverage)
	assert.Equal(t, []string{"d9"}, report.OnlyInRelational)
}

func TestComputeDriftOutOfSync(t *testing.T) {
	engine, repo, vectors := newTestEngine()
	seedRelational(t, repo, "a", "b", "c", "d")
	seedVector(t, vectors, "a")

	report, err := engine.ComputeDrift(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusOutOfSync, report.Status)
	assert.Equal(t, float64(25), report.Coverage)
	assert.ElementsMatch(t, []string{"b", "c", "d"}, report.OnlyInRelational)
}

func TestComputeDriftEmptyRelational(t *testing.T) {
	engine, _, vectors := newTestEngine()
	seedVector(t, vectors, "orphan")

	report, err := engine.ComputeDrift(context.Background())
	require.NoError(t, err)
	// 关系库为空时覆盖率按 100 计，但孤儿投影仍构成漂移
	assert.Equal(t, float64(100), report.Coverage)
	assert.Equal(t, StatusMinorDrift, report.Status)
	assert.Equal(t, []string{"orphan"}, report.OnlyInVector)
}

func TestComputeDriftBothEmpty(t *testing.T) {
	engine, _, _ := newTestEngine()

	report, err := engine.ComputeDrift(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSynchronized, report.Status)
	assert.NotNil(t, report.OnlyInRelational)
	assert.NotNil(t, report.OnlyInVector)
}

func TestRepairInsertsMissingProjections(t *testing.T) {
	engine, repo, vectors := newTestEngine()
	seedRelational(t, repo, "a", "b")
	seedVector(t, vectors, "a")

	report, err := engine.Repair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.RepairedInVector)
	assert.Equal(t, 0, report.RepairedInRelational)
	assert.Empty(t, report.Errors)

	_, ok := vectors.rows["b"]
	assert.True(t, ok, "缺失的投影应被补插")
}

func TestRepairSkipsIneligibleDocuments(t *testing.T) {
	engine, repo, vectors := newTestEngine()
	require.NoError(t, repo.Upsert(textDoc("binary", "BINARY_FILE:a1b2 report.pdf")))

	report, err := engine.Repair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.RepairedInVector)
	assert.Empty(t, report.Errors)

	_, ok := vectors.rows["binary"]
	assert.False(t, ok, "不可向量化文档不应被补插")
}

func TestRepairRemovesOrphanProjections(t *testing.T) {
	engine, repo, vectors := newTestEngine()
	seedVector(t, vectors, "orphan")

	report, err := engine.Repair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.RepairedInVector)
	assert.Empty(t, vectors.rows, "孤儿投影应被删除")

	// 修复绝不写关系库
	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRepairReachesFixedPoint(t *testing.T) {
	engine, repo, vectors := newTestEngine()
	seedRelational(t, repo, "a", "b", "c")
	seedVector(t, vectors, "a", "orphan")

	_, err := engine.Repair(context.Background())
	require.NoError(t, err)

	report, err := engine.ComputeDrift(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSynchronized, report.Status, "一次修复后应达到同步")

	// 再次修复是空操作
	second, err := engine.Repair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.RepairedInVector)
	assert.Empty(t, second.Errors)
}

func TestRepairContinuesAfterErrors(t *testing.T) {
	engine, repo, vectors := newTestEngine()
	seedRelational(t, repo, "a", "b")

	// 向量库不可写，每个待修复条目各记一条错误
	vectors.fail = true
	_, err := engine.Repair(context.Background())
	assert.Error(t, err, "漂移计算依赖向量库枚举，完全不可用时应报错")

	// 恢复后修复正常完成
	vectors.fail = false
	report, err := engine.Repair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.RepairedInVector)
	assert.Empty(t, report.Errors)
	_, aOK := repo.docs["a"]
	_, bOK := repo.docs["b"]
	assert.True(t, aOK && bOK, "修复不应改动关系库")
}

func TestHealthCheck(t *testing.T) {
	engine, repo, vectors := newTestEngine()

	health := engine.HealthCheck(context.Background())
	assert.True(t, health.RelationalOK)
	assert.True(t, health.VectorOK)
	assert.True(t, health.Overall)

	vectors.fail = true
	health = engine.HealthCheck(context.Background())
	assert.True(t, health.RelationalOK, "向量库故障不应掩盖关系库状态")
	assert.False(t, health.VectorOK)
	assert.False(t, health.Overall)

	repo.fail = true
	health = engine.HealthCheck(context.Background())
	assert.False(t, health.Overall)
}
