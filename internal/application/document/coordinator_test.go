package document

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbridge/backend/internal/domain/document"
)

func newTestCoordinator() (*Coordinator, *fakeRepository, *fakeVectorStore) {
	repo := newFakeRepository()
	vectors := newFakeVectorStore()
	return NewCoordinator(repo, vectors), repo, vectors
}

func textDoc(id, content string) *document.Document {
	return document.NewDocument(id, content, nil)
}

func TestCoordinatorAdd(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	ctx := context.Background()

	result, err := coordinator.Add(ctx, textDoc("doc-1", "这是一段足够长的可向量化正文"))
	require.NoError(t, err)
	assert.True(t, result.Vectorized, "可向量化文档应写入向量库")

	_, ok := repo.docs["doc-1"]
	assert.True(t, ok, "文档应写入关系库")
	_, ok = vectors.rows["doc-1"]
	assert.True(t, ok, "投影应写入向量库")
}

func TestCoordinatorAddRequiresID(t *testing.T) {
	coordinator, _, _ := newTestCoordinator()

	_, err := coordinator.Add(context.Background(), textDoc("", "content"))
	assert.ErrorIs(t, err, document.ErrIDRequired)
}

func TestCoordinatorAddIneligibleSkipsVectorStore(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	ctx := context.Background()

	cases := []*document.Document{
		textDoc("short", "太短"),
		textDoc("binary-marker", "BINARY_FILE:a1b2c3 document.pdf"),
		document.NewDocument("binary-flag", "这是一段足够长的正文内容",
			document.Metadata{document.MetaKeyIsBinary: document.Bool(true)}),
		document.NewDocument("image", "这是一段足够长的正文内容",
			document.Metadata{document.MetaKeyFileType: document.String("image/png")}),
	}

	for _, doc := range cases {
		result, err := coordinator.Add(ctx, doc)
		require.NoError(t, err, doc.ID)
		assert.False(t, result.Vectorized, doc.ID)

		_, inRepo := repo.docs[doc.ID]
		assert.True(t, inRepo, "不可向量化文档仍应写入关系库: %s", doc.ID)
		_, inVectors := vectors.rows[doc.ID]
		assert.False(t, inVectors, "不可向量化文档绝不应出现在向量库: %s", doc.ID)
	}
}

func TestCoordinatorAddVectorFailureIsPartial(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	vectors.fail = true

	result, err := coordinator.Add(context.Background(), textDoc("doc-1", "这是一段足够长的可向量化正文"))
	require.NoError(t, err, "向量库故障不应导致新增失败")
	assert.False(t, result.Vectorized)
	assert.NotEmpty(t, result.VectorDetail)

	_, ok := repo.docs["doc-1"]
	assert.True(t, ok, "关系库写入应保留")
}

func TestCoordinatorAddRelationalFailureIsFatal(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	repo.fail = true

	_, err := coordinator.Add(context.Background(), textDoc("doc-1", "这是一段足够长的可向量化正文"))
	assert.Error(t, err, "关系库故障应导致整体失败")
	assert.Empty(t, vectors.rows, "关系库失败后不应写向量库")
}

func TestCoordinatorAddIsIdempotent(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	ctx := context.Background()

	doc := textDoc("doc-1", "这是第一版的足够长正文内容")
	_, err := coordinator.Add(ctx, doc)
	require.NoError(t, err)

	doc.Content = "这是第二版的足够长正文内容"
	_, err = coordinator.Add(ctx, doc)
	require.NoError(t, err)

	assert.Equal(t, 1, len(repo.docs))
	assert.Equal(t, 1, len(vectors.rows))
	assert.Equal(t, "这是第二版的足够长正文内容", repo.docs["doc-1"].Content)
	assert.Equal(t, "这是第二版的足够长正文内容", vectors.rows["doc-1"].Content)
}

func TestCoordinatorGet(t *testing.T) {
	coordinator, _, _ := newTestCoordinator()
	ctx := context.Background()

	_, err := coordinator.Add(ctx, textDoc("doc-1", "这是一段足够长的可向量化正文"))
	require.NoError(t, err)

	doc, err := coordinator.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "这是一段足够长的可向量化正文", doc.Content)
}

func TestCoordinatorGetNotFound(t *testing.T) {
	coordinator, _, _ := newTestCoordinator()

	_, err := coordinator.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestCoordinatorGetFallsBackToVectorStore(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	ctx := context.Background()

	_, err := coordinator.Add(ctx, textDoc("doc-1", "这是一段足够长的可向量化正文"))
	require.NoError(t, err)

	// 关系库故障时应从向量库投影重建文档
	repo.fail = true
	doc, err := coordinator.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, vectors.rows["doc-1"].Content, doc.Content)
}

func TestCoordinatorUpdateMetadataOnly(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	ctx := context.Background()

	_, err := coordinator.Add(ctx, textDoc("doc-1", "这是一段足够长的可向量化正文"))
	require.NoError(t, err)
	originalContent := vectors.rows["doc-1"].Content

	err = coordinator.Update(ctx, "doc-1", &UpdateRequest{
		Metadata: document.Metadata{"category": document.String("report")},
	})
	require.NoError(t, err)

	assert.Equal(t, "report", repo.docs["doc-1"].Metadata.GetString("category"))
	assert.NotEmpty(t, repo.docs["doc-1"].Metadata.GetString(document.MetaKeyUpdatedAt))
	// 正文未变，向量投影保持不动
	assert.Equal(t, originalContent, vectors.rows["doc-1"].Content)
}

func TestCoordinatorUpdateContentReinsertsVector(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	ctx := context.Background()

	doc := document.NewDocument("doc-1", "这是第一版的足够长正文内容",
		document.Metadata{"author": document.String("alice")})
	_, err := coordinator.Add(ctx, doc)
	require.NoError(t, err)

	newContent := "这是第二版的足够长正文内容"
	err = coordinator.Update(ctx, "doc-1", &UpdateRequest{
		Content:  &newContent,
		Metadata: document.Metadata{"reviewed": document.Bool(true)},
	})
	require.NoError(t, err)

	row, ok := vectors.rows["doc-1"]
	require.True(t, ok, "正文变更后投影应被重插")
	assert.Equal(t, newContent, row.Content)
	// 投影元数据是两侧的合并视图
	assert.Equal(t, "alice", row.Metadata.GetString("author"))
	assert.True(t, row.Metadata.GetBool("reviewed"))
	assert.Equal(t, newContent, repo.docs["doc-1"].Content)
}

func TestCoordinatorUpdateContentToIneligibleRemovesVector(t *testing.T) {
	coordinator, _, vectors := newTestCoordinator()
	ctx := context.Background()

	_, err := coordinator.Add(ctx, textDoc("doc-1", "这是一段足够长的可向量化正文"))
	require.NoError(t, err)

	newContent := "太短"
	err = coordinator.Update(ctx, "doc-1", &UpdateRequest{Content: &newContent})
	require.NoError(t, err)

	_, ok := vectors.rows["doc-1"]
	assert.False(t, ok, "正文变为不可向量化后投影应被删除且不重插")
}

func TestCoordinatorUpdateNotFound(t *testing.T) {
	coordinator, _, _ := newTestCoordinator()

	err := coordinator.Update(context.Background(), "missing", &UpdateRequest{})
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestCoordinatorDelete(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	ctx := context.Background()

	_, err := coordinator.Add(ctx, textDoc("doc-1", "这是一段足够长的可向量化正文"))
	require.NoError(t, err)

	result, err := coordinator.Delete(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, result.RelationalDeleted)
	assert.True(t, result.VectorDeleted)
	assert.Empty(t, repo.docs)
	assert.Empty(t, vectors.rows)
}

func TestCoordinatorDeleteSucceedsWithOneStore(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	ctx := context.Background()

	_, err := coordinator.Add(ctx, textDoc("doc-1", "这是一段足够长的可向量化正文"))
	require.NoError(t, err)

	// 关系库故障但向量库可用，删除仍算成功
	repo.fail = true
	result, err := coordinator.Delete(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, result.RelationalDeleted)
	assert.True(t, result.VectorDeleted)
	assert.Empty(t, vectors.rows)
}

func TestCoordinatorDeleteBothStoresFailed(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	repo.fail = true
	vectors.fail = true

	_, err := coordinator.Delete(context.Background(), "doc-1")
	assert.ErrorIs(t, err, document.ErrBothStoresFailed)
}

func TestCoordinatorSearchSimilar(t *testing.T) {
	coordinator, _, _ := newTestCoordinator()
	ctx := context.Background()

	_, err := coordinator.Add(ctx, document.NewDocument("doc-1", "季度财务汇总报告正文内容",
		document.Metadata{"category": document.String("finance")}))
	require.NoError(t, err)
	_, err = coordinator.Add(ctx, document.NewDocument("doc-2", "季度人事变动汇总正文内容",
		document.Metadata{"category": document.String("hr")}))
	require.NoError(t, err)

	results := coordinator.SearchSimilar(ctx, "汇总", 10, nil)
	assert.Len(t, results, 2)
	for _, row := range results {
		assert.GreaterOrEqual(t, row.Score, float32(0), "得分不应为负")
	}

	filtered := coordinator.SearchSimilar(ctx, "汇总", 10,
		document.Metadata{"category": document.String("finance")})
	require.Len(t, filtered, 1)
	assert.Equal(t, "doc-1", filtered[0].ID)
}

func TestCoordinatorSearchSimilarNeverNil(t *testing.T) {
	coordinator, _, vectors := newTestCoordinator()
	vectors.fail = true

	results := coordinator.SearchSimilar(context.Background(), "any", 10, nil)
	assert.NotNil(t, results, "向量库故障时应返回空列表而非 nil")
	assert.Empty(t, results)
}

func TestCoordinatorListAllIDs(t *testing.T) {
	coordinator, repo, _ := newTestCoordinator()
	ctx := context.Background()

	_, err := coordinator.Add(ctx, textDoc("doc-1", "这是一段足够长的可向量化正文"))
	require.NoError(t, err)
	_, err = coordinator.Add(ctx, textDoc("doc-2", "太短"))
	require.NoError(t, err)

	ids := coordinator.ListAllIDs(ctx)
	assert.ElementsMatch(t, []string{"doc-1", "doc-2"}, ids)

	// 关系库故障时回退到向量库，不可向量化的 doc-2 不在其中
	repo.fail = true
	ids = coordinator.ListAllIDs(ctx)
	assert.Equal(t, []string{"doc-1"}, ids)
}

func TestCoordinatorListAllIDsNeverNil(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	repo.fail = true
	vectors.fail = true

	ids := coordinator.ListAllIDs(context.Background())
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestCoordinatorGetStatistics(t *testing.T) {
	coordinator, _, _ := newTestCoordinator()
	ctx := context.Background()

	_, err := coordinator.Add(ctx, textDoc("doc-1", "这是一段足够长的可向量化正文"))
	require.NoError(t, err)
	_, err = coordinator.Add(ctx, textDoc("doc-2", "太短"))
	require.NoError(t, err)

	// 昨天创建的文档不计入 documents_today
	oldMeta := document.NewMetadata()
	oldMeta.SetString(document.MetaKeyCreatedAt, time.Now().AddDate(0, 0, -1).Format(time.RFC3339))
	_, err = coordinator.Add(ctx, document.NewDocument("doc-old", "这是一段足够长的可向量化正文", oldMeta))
	require.NoError(t, err)

	stats := coordinator.GetStatistics(ctx)
	assert.Equal(t, 3, stats.RelationalCount)
	assert.Equal(t, 2, stats.VectorCount)
	assert.Equal(t, 2, stats.DocumentsToday)
	assert.NotEmpty(t, stats.Collections)
}

func TestCoordinatorResetAll(t *testing.T) {
	coordinator, repo, vectors := newTestCoordinator()
	ctx := context.Background()

	for _, id := range []string{"doc-1", "doc-2", "doc-3"} {
		_, err := coordinator.Add(ctx, textDoc(id, "这是一段足够长的可向量化正文 "+id))
		require.NoError(t, err)
	}

	relationalDeleted, vectorDeleted, err := coordinator.ResetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, relationalDeleted)
	assert.Equal(t, 3, vectorDeleted)
	assert.Empty(t, repo.docs)
	assert.Empty(t, vectors.rows)
}
