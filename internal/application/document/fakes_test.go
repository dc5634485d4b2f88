package document

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/docbridge/backend/internal/domain/document"
)

var errStoreDown = errors.New("store unavailable")

// fakeRepository 内存关系库，支持故障注入
type fakeRepository struct {
	docs map[string]*document.Document
	fail bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{docs: make(map[string]*document.Document)}
}

func (r *fakeRepository) Upsert(doc *document.Document) error {
	if r.fail {
		return errStoreDown
	}
	clone := *doc
	clone.Metadata = doc.Metadata.Clone()
	r.docs[doc.ID] = &clone
	return nil
}

func (r *fakeRepository) Get(id string) (*document.Document, error) {
	if r.fail {
		return nil, errStoreDown
	}
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	clone := *doc
	clone.Metadata = doc.Metadata.Clone()
	return &clone, nil
}

func (r *fakeRepository) Delete(id string) (bool, error) {
	if r.fail {
		return false, errStoreDown
	}
	_, ok := r.docs[id]
	delete(r.docs, id)
	return ok, nil
}

func (r *fakeRepository) List(limit, offset int) ([]*document.Document, error) {
	if r.fail {
		return nil, errStoreDown
	}
	ids, _ := r.ListIDs()
	docs := make([]*document.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, r.docs[id])
	}
	return docs, nil
}

func (r *fakeRepository) ListIDs() ([]string, error) {
	if r.fail {
		return nil, errStoreDown
	}
	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *fakeRepository) Count() (int, error) {
	if r.fail {
		return 0, errStoreDown
	}
	return len(r.docs), nil
}

func (r *fakeRepository) CountCreatedSince(since time.Time) (int, error) {
	if r.fail {
		return 0, errStoreDown
	}
	count := 0
	for _, doc := range r.docs {
		if !doc.CreatedAt().Before(since) {
			count++
		}
	}
	return count, nil
}

var _ document.Repository = (*fakeRepository)(nil)

// fakeVectorStore 内存向量库，按子串匹配模拟相似度
type fakeVectorStore struct {
	rows map[string]document.VectorRow
	fail bool
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{rows: make(map[string]document.VectorRow)}
}

func (s *fakeVectorStore) EnsureCollection(ctx context.Context, name string) error {
	if s.fail {
		return errStoreDown
	}
	return nil
}

func (s *fakeVectorStore) Add(ctx context.Context, ids []string, texts []string, metadatas []document.Metadata) error {
	if s.fail {
		return errStoreDown
	}
	if len(ids) != len(texts) || len(ids) != len(metadatas) {
		return document.ErrBatchLengthMismatch
	}
	for i, id := range ids {
		s.rows[id] = document.VectorRow{
			ID:       id,
			Content:  texts[i],
			Metadata: metadatas[i].Clone(),
		}
	}
	return nil
}

func (s *fakeVectorStore) GetByIDs(ctx context.Context, ids []string) ([]document.VectorRow, error) {
	if s.fail {
		return nil, errStoreDown
	}
	rows := make([]document.VectorRow, 0, len(ids))
	for _, id := range ids {
		if row, ok := s.rows[id]; ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (s *fakeVectorStore) Query(ctx context.Context, text string, limit int, filter document.Metadata) ([]document.ScoredRow, error) {
	if s.fail {
		return nil, errStoreDown
	}
	results := []document.ScoredRow{}
	for _, id := range s.sortedIDs() {
		row := s.rows[id]
		if !strings.Contains(row.Content, text) {
			continue
		}
		matched := true
		for k, v := range filter {
			if row.Metadata.GetString(k) != v.AsString() {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		results = append(results, document.ScoredRow{VectorRow: row, Score: 1})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (s *fakeVectorStore) Delete(ctx context.Context, ids []string) error {
	if s.fail {
		return errStoreDown
	}
	for _, id := range ids {
		delete(s.rows, id)
	}
	return nil
}

func (s *fakeVectorStore) Count(ctx context.Context) (int, error) {
	if s.fail {
		return 0, errStoreDown
	}
	return len(s.rows), nil
}

func (s *fakeVectorStore) ListIDs(ctx context.Context) ([]string, error) {
	if s.fail {
		return nil, errStoreDown
	}
	return s.sortedIDs(), nil
}

func (s *fakeVectorStore) ListCollections(ctx context.Context) ([]string, error) {
	if s.fail {
		return nil, errStoreDown
	}
	return []string{"documents"}, nil
}

func (s *fakeVectorStore) ListSourcePaths(ctx context.Context) (map[string]string, error) {
	if s.fail {
		return nil, errStoreDown
	}
	paths := make(map[string]string)
	for id, row := range s.rows {
		if p := row.Metadata.GetString(document.MetaKeySourcePath); p != "" {
			paths[p] = id
		}
	}
	return paths, nil
}

func (s *fakeVectorStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ document.VectorStore = (*fakeVectorStore)(nil)
