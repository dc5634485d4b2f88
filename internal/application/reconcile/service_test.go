package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbridge/backend/internal/application/dedup"
	"github.com/docbridge/backend/internal/domain/reconcile"
	"github.com/docbridge/backend/internal/infrastructure/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Vector: config.VectorConfig{CollectionName: "documents"},
		Reconcile: config.ReconcileConfig{
			DefaultSchedule:  "03:00",
			DefaultBatchSize: 100,
		},
	}
}

func newTestService(t *testing.T) (*Service, *fakeJobRepo, *fakeSettings, *fakePathStore, *fakeIngestor) {
	t.Helper()
	jobs := newFakeJobRepo()
	settings := newFakeSettings()
	vectors := newFakePathStore()
	ingestor := newFakeIngestor()
	service := NewService(jobs, settings, ingestor, vectors, nil, testConfig())
	return service, jobs, settings, vectors, ingestor
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// waitTerminal 轮询任务直到进入终态
func waitTerminal(t *testing.T, jobs *fakeJobRepo, id string) *reconcile.Job {
	t.Helper()
	require.Eventually(t, func() bool {
		job, err := jobs.Get(id)
		return err == nil && job != nil && job.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond, "任务应在限定时间内结束")

	job, err := jobs.Get(id)
	require.NoError(t, err)
	return job
}

func TestPartition(t *testing.T) {
	files := []reconcile.FileInfo{
		{Path: "/docs/a.pdf", Hash: "ha"},
		{Path: "/docs/b.txt", Hash: "hb"},
		{Path: "/docs/c.md", Hash: "hc"},
	}
	vectorPaths := map[string]string{
		"/docs/b.txt":    "doc-b",
		"/docs/gone.csv": "doc-gone",
	}

	toAdd, toCheck, toRemove := Partition(files, vectorPaths)

	// to_add 与 to_check 合起来恰好覆盖全部文件，互不重叠
	assert.Equal(t, len(files), len(toAdd)+len(toCheck))
	addPaths := make(map[string]bool)
	for _, file := range toAdd {
		addPaths[file.Path] = true
	}
	for _, entry := range toCheck {
		assert.False(t, addPaths[entry.File.Path], "同一路径不应同时出现在两组")
	}

	assert.Len(t, toAdd, 2)
	assert.Len(t, toCheck, 1)
	assert.Equal(t, "doc-b", toCheck[0].DocumentID)
	require.Len(t, toRemove, 1)
	assert.Equal(t, "/docs/gone.csv", toRemove[0].Path)
	assert.Equal(t, "doc-gone", toRemove[0].DocumentID)
}

func TestPartitionEmptySets(t *testing.T) {
	toAdd, toCheck, toRemove := Partition(nil, nil)
	assert.Empty(t, toAdd)
	assert.Empty(t, toCheck)
	assert.Empty(t, toRemove)
}

func TestStartReconciliationWithoutMonitoredDirsFailsJob(t *testing.T) {
	service, jobs, _, _, ingestor := newTestService(t)

	job, err := service.StartReconciliation(context.Background(), reconcile.Options{})
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusFailed, job.Status)
	assert.Contains(t, job.ErrorDetails, reconcile.ErrNoMonitoredDirs.Error())
	assert.NotNil(t, job.EndTime)

	// 失败任务落库，调度触发的场景也能在任务历史里看到
	saved, err := jobs.Get(job.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, reconcile.StatusFailed, saved.Status)
	assert.Empty(t, ingestor.ingestedPaths())
}

func TestStartReconciliationReturnsSnapshot(t *testing.T) {
	service, jobs, _, _, _ := newTestService(t)
	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		writeTestFile(t, dir, fmt.Sprintf("f%02d.txt", i), "snapshot content")
	}
	require.NoError(t, service.SetMonitoredDirs([]string{dir}))

	job, err := service.StartReconciliation(context.Background(), reconcile.Options{BatchSize: 1})
	require.NoError(t, err)

	// 后台任务运行期间反复序列化返回值，不应与计数更新发生数据竞争
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, err := json.Marshal(job); err != nil {
				return
			}
			saved, err := jobs.Get(job.ID)
			if err == nil && saved != nil && saved.Status.IsTerminal() {
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("序列化协程未退出")
	}

	finished := waitTerminal(t, jobs, job.ID)
	assert.Equal(t, reconcile.StatusCompleted, finished.Status)
	assert.Equal(t, 50, finished.Counters.ProcessedFiles)

	// 返回值是启动时刻的快照，不随后台任务变化
	assert.Equal(t, reconcile.StatusRunning, job.Status)
	assert.Equal(t, 0, job.Counters.ProcessedFiles)
}

func TestReconciliationAddsNewFiles(t *testing.T) {
	service, jobs, settings, _, ingestor := newTestService(t)
	dir := t.TempDir()
	writeTestFile(t, dir, "a.pdf", "pdf content a")
	writeTestFile(t, dir, "b.pdf", "pdf content b")
	writeTestFile(t, dir, "ignored.exe", "binary")
	require.NoError(t, service.SetMonitoredDirs([]string{dir}))

	job, err := service.StartReconciliation(context.Background(), reconcile.Options{})
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusRunning, job.Status)

	finished := waitTerminal(t, jobs, job.ID)
	assert.Equal(t, reconcile.StatusCompleted, finished.Status)
	assert.Equal(t, 2, finished.Counters.TotalFiles, "不支持的扩展名不应计入")
	assert.Equal(t, 2, finished.Counters.AddedFiles)
	assert.Equal(t, 0, finished.Counters.UpdatedFiles)
	assert.Equal(t, 0, finished.Counters.RemovedFiles)
	assert.Equal(t, 2, finished.Counters.ProcessedFiles)
	assert.NotNil(t, finished.EndTime)
	assert.Len(t, ingestor.ingestedPaths(), 2)

	// 完成后运行统计落盘
	lastRun, err := settings.Get(reconcile.StatLastRun, "")
	require.NoError(t, err)
	assert.NotEmpty(t, lastRun)
	lastFiles, err := settings.Get(reconcile.StatLastRunFiles, "")
	require.NoError(t, err)
	assert.Equal(t, "2", lastFiles)
}

func TestReconciliationChecksExistingFiles(t *testing.T) {
	service, jobs, _, vectors, ingestor := newTestService(t)
	dir := t.TempDir()
	unchanged := writeTestFile(t, dir, "same.txt", "stable content")
	changed := writeTestFile(t, dir, "changed.txt", "new content")
	require.NoError(t, service.SetMonitoredDirs([]string{dir}))

	unchangedHash, err := dedup.HashFile(unchanged)
	require.NoError(t, err)
	vectors.sourcePaths[unchanged] = "doc-same"
	vectors.sourcePaths[changed] = "doc-changed"
	ingestor.recordedHash["doc-same"] = unchangedHash
	ingestor.recordedHash["doc-changed"] = "stale-hash"

	job, err := service.StartReconciliation(context.Background(), reconcile.Options{})
	require.NoError(t, err)

	finished := waitTerminal(t, jobs, job.ID)
	assert.Equal(t, reconcile.StatusCompleted, finished.Status)
	assert.Equal(t, 0, finished.Counters.AddedFiles)
	assert.Equal(t, 1, finished.Counters.UpdatedFiles, "只有哈希变化的文件才重新入库")
	assert.Equal(t, 2, finished.Counters.ProcessedFiles)
	assert.Equal(t, []string{changed}, ingestor.reingested)
}

func TestReconciliationRemovesMissingFiles(t *testing.T) {
	service, jobs, _, vectors, ingestor := newTestService(t)
	dir := t.TempDir()
	require.NoError(t, service.SetMonitoredDirs([]string{dir}))
	vectors.sourcePaths["/gone/a.pdf"] = "doc-gone"

	// delete_missing 关闭时不删除
	job, err := service.StartReconciliation(context.Background(), reconcile.Options{DeleteMissing: false})
	require.NoError(t, err)
	finished := waitTerminal(t, jobs, job.ID)
	assert.Equal(t, reconcile.StatusCompleted, finished.Status)
	assert.Equal(t, 0, finished.Counters.RemovedFiles)
	assert.Empty(t, ingestor.removed)

	// delete_missing 开启时删除
	job, err = service.StartReconciliation(context.Background(), reconcile.Options{DeleteMissing: true})
	require.NoError(t, err)
	finished = waitTerminal(t, jobs, job.ID)
	assert.Equal(t, reconcile.StatusCompleted, finished.Status)
	assert.Equal(t, 1, finished.Counters.RemovedFiles)
	assert.Equal(t, []string{"doc-gone"}, ingestor.removed)
}

func TestReconciliationContinuesAfterFileErrors(t *testing.T) {
	service, jobs, _, _, ingestor := newTestService(t)
	dir := t.TempDir()
	bad := writeTestFile(t, dir, "bad.txt", "will fail")
	writeTestFile(t, dir, "good.txt", "will succeed")
	require.NoError(t, service.SetMonitoredDirs([]string{dir}))
	ingestor.failPaths[bad] = true

	job, err := service.StartReconciliation(context.Background(), reconcile.Options{})
	require.NoError(t, err)

	finished := waitTerminal(t, jobs, job.ID)
	assert.Equal(t, reconcile.StatusCompleted, finished.Status, "单文件失败不应导致任务失败")
	assert.Equal(t, 1, finished.Counters.AddedFiles)
	assert.Equal(t, 1, finished.Counters.Errors)
	assert.Equal(t, 2, finished.Counters.ProcessedFiles)
	assert.NotEmpty(t, finished.ErrorDetails)
}

func TestReconciliationFailsOnUnreadableDir(t *testing.T) {
	service, jobs, _, _, _ := newTestService(t)
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	require.NoError(t, service.SetMonitoredDirs([]string{missing}))

	job, err := service.StartReconciliation(context.Background(), reconcile.Options{})
	require.NoError(t, err, "目录校验在任务内进行，启动本身应成功")

	finished := waitTerminal(t, jobs, job.ID)
	assert.Equal(t, reconcile.StatusFailed, finished.Status)
	assert.NotEmpty(t, finished.ErrorDetails)
	assert.NotNil(t, finished.EndTime)
}

func TestReconciliationFailsWhenVectorStoreUnavailable(t *testing.T) {
	service, jobs, _, vectors, _ := newTestService(t)
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "content")
	require.NoError(t, service.SetMonitoredDirs([]string{dir}))
	vectors.fail = true

	job, err := service.StartReconciliation(context.Background(), reconcile.Options{})
	require.NoError(t, err)

	finished := waitTerminal(t, jobs, job.ID)
	assert.Equal(t, reconcile.StatusFailed, finished.Status)
}

func TestReconciliationRejectsBusyCollection(t *testing.T) {
	service, jobs, _, _, ingestor := newTestService(t)
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "content")
	require.NoError(t, service.SetMonitoredDirs([]string{dir}))

	gate := make(chan struct{})
	ingestor.gate = gate

	job, err := service.StartReconciliation(context.Background(), reconcile.Options{})
	require.NoError(t, err)

	// 第一个任务还卡在入库，同集合的第二次启动被拒绝
	_, err = service.StartReconciliation(context.Background(), reconcile.Options{})
	assert.ErrorIs(t, err, reconcile.ErrCollectionBusy)

	// 不同集合不受影响
	other, err := service.StartReconciliation(context.Background(),
		reconcile.Options{CollectionName: "other"})
	require.NoError(t, err)

	close(gate)
	waitTerminal(t, jobs, job.ID)
	waitTerminal(t, jobs, other.ID)

	// 任务结束后集合可再次启动
	again, err := service.StartReconciliation(context.Background(), reconcile.Options{})
	require.NoError(t, err)
	waitTerminal(t, jobs, again.ID)
}

func TestCancelBetweenBatches(t *testing.T) {
	service, jobs, _, _, ingestor := newTestService(t)
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeTestFile(t, dir, name, "content "+name)
	}
	require.NoError(t, service.SetMonitoredDirs([]string{dir}))

	gate := make(chan struct{})
	ingestor.gate = gate

	job, err := service.StartReconciliation(context.Background(), reconcile.Options{BatchSize: 1})
	require.NoError(t, err)

	require.NoError(t, service.Cancel(job.ID))
	close(gate)

	finished := waitTerminal(t, jobs, job.ID)
	assert.Equal(t, reconcile.StatusCancelled, finished.Status)
	assert.Less(t, finished.Counters.ProcessedFiles, finished.Counters.TotalFiles,
		"取消应在批次之间生效，不处理完全部文件")
	assert.NotNil(t, finished.EndTime)
}

func TestCancelFinishedJob(t *testing.T) {
	service, jobs, _, _, _ := newTestService(t)

	job := reconcile.NewJob("job-1", "documents", false, 10)
	job.Complete()
	require.NoError(t, jobs.Save(job))

	err := service.Cancel("job-1")
	assert.ErrorIs(t, err, reconcile.ErrJobAlreadyFinished)
}

func TestCancelUnknownJob(t *testing.T) {
	service, _, _, _, _ := newTestService(t)

	err := service.Cancel("missing")
	assert.ErrorIs(t, err, reconcile.ErrJobNotFound)
}

func TestGetJob(t *testing.T) {
	service, jobs, _, _, _ := newTestService(t)
	require.NoError(t, jobs.Save(reconcile.NewJob("job-1", "documents", false, 10)))

	job, err := service.GetJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)

	_, err = service.GetJob("missing")
	assert.ErrorIs(t, err, reconcile.ErrJobNotFound)
}

func TestRecoverInterrupted(t *testing.T) {
	service, jobs, _, _, _ := newTestService(t)
	require.NoError(t, jobs.Save(reconcile.NewJob("stale", "documents", false, 10)))
	done := reconcile.NewJob("done", "documents", false, 10)
	done.Complete()
	require.NoError(t, jobs.Save(done))

	affected, err := service.RecoverInterrupted()
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	stale, err := service.GetJob("stale")
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusFailed, stale.Status)
}
