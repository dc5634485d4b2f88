package reconcile

import (
	"context"
	"errors"
	"sync"

	"github.com/docbridge/backend/internal/domain/document"
	"github.com/docbridge/backend/internal/domain/reconcile"
)

// fakeJobRepo 内存任务仓储
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*reconcile.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*reconcile.Job)}
}

func (r *fakeJobRepo) Save(job *reconcile.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	clone.ErrorDetails = append([]string(nil), job.ErrorDetails...)
	r.jobs[job.ID] = &clone
	return nil
}

func (r *fakeJobRepo) Get(id string) (*reconcile.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	clone := *job
	return &clone, nil
}

func (r *fakeJobRepo) List(limit int) ([]*reconcile.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]*reconcile.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		clone := *job
		jobs = append(jobs, &clone)
	}
	return jobs, nil
}

func (r *fakeJobRepo) MarkInterrupted(reason string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	affected := 0
	for _, job := range r.jobs {
		if job.Status == reconcile.StatusRunning {
			job.Fail(reason)
			affected++
		}
	}
	return affected, nil
}

var _ reconcile.JobRepository = (*fakeJobRepo)(nil)

// fakeSettings 内存设置面
type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: make(map[string]string)}
}

func (s *fakeSettings) Get(key, defaultValue string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value, ok := s.values[key]; ok {
		return value, nil
	}
	return defaultValue, nil
}

func (s *fakeSettings) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *fakeSettings) All() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make(map[string]string, len(s.values))
	for k, v := range s.values {
		all[k] = v
	}
	return all, nil
}

var _ reconcile.SettingsStore = (*fakeSettings)(nil)

// fakePathStore 只提供 source_path 枚举的向量库桩
type fakePathStore struct {
	mu          sync.Mutex
	sourcePaths map[string]string
	fail        bool
}

func newFakePathStore() *fakePathStore {
	return &fakePathStore{sourcePaths: make(map[string]string)}
}

func (s *fakePathStore) ListSourcePaths(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.New("vector store unavailable")
	}
	paths := make(map[string]string, len(s.sourcePaths))
	for k, v := range s.sourcePaths {
		paths[k] = v
	}
	return paths, nil
}

func (s *fakePathStore) EnsureCollection(ctx context.Context, name string) error { return nil }
func (s *fakePathStore) Add(ctx context.Context, ids []string, texts []string, metadatas []document.Metadata) error {
	return nil
}
func (s *fakePathStore) GetByIDs(ctx context.Context, ids []string) ([]document.VectorRow, error) {
	return nil, nil
}
func (s *fakePathStore) Query(ctx context.Context, text string, limit int, filter document.Metadata) ([]document.ScoredRow, error) {
	return nil, nil
}
func (s *fakePathStore) Delete(ctx context.Context, ids []string) error { return nil }
func (s *fakePathStore) Count(ctx context.Context) (int, error)         { return 0, nil }
func (s *fakePathStore) ListIDs(ctx context.Context) ([]string, error)  { return nil, nil }
func (s *fakePathStore) ListCollections(ctx context.Context) ([]string, error) {
	return []string{"documents"}, nil
}

var _ document.VectorStore = (*fakePathStore)(nil)

// fakeIngestor 记录调用的入库桩
// gate 非空时 Ingest 会阻塞，用于构造可控的取消时机
type fakeIngestor struct {
	mu            sync.Mutex
	gate          chan struct{}
	recordedHash  map[string]string
	failPaths     map[string]bool
	ingested      []string
	reingested    []string
	removed       []string
	documentCount int
}

func newFakeIngestor() *fakeIngestor {
	return &fakeIngestor{
		recordedHash: make(map[string]string),
		failPaths:    make(map[string]bool),
	}
}

func (f *fakeIngestor) Ingest(ctx context.Context, file reconcile.FileInfo) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPaths[file.Path] {
		return "", errors.New("ingest failed: " + file.Path)
	}
	f.ingested = append(f.ingested, file.Path)
	f.documentCount++
	return "doc-" + file.Path, nil
}

func (f *fakeIngestor) Reingest(ctx context.Context, documentID string, file reconcile.FileInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPaths[file.Path] {
		return errors.New("reingest failed: " + file.Path)
	}
	f.reingested = append(f.reingested, file.Path)
	return nil
}

func (f *fakeIngestor) Remove(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, documentID)
	return nil
}

func (f *fakeIngestor) RecordedHash(ctx context.Context, documentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recordedHash[documentID], nil
}

func (f *fakeIngestor) DocumentCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.documentCount, nil
}

func (f *fakeIngestor) ingestedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ingested...)
}

var _ Ingestor = (*fakeIngestor)(nil)
