package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbridge/backend/internal/application/dedup"
)

func TestScan(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	writeTestFile(t, dir, "a.pdf", "pdf bytes")
	writeTestFile(t, nested, "b.md", "# markdown")
	writeTestFile(t, dir, "skip.exe", "binary")

	files, skipped, err := Scan([]string{dir})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, files, 2, "递归扫描且只收集支持的扩展名")

	byPath := make(map[string]bool)
	for _, file := range files {
		byPath[file.Path] = true
		assert.NotEmpty(t, file.Hash)
		assert.Greater(t, file.Size, int64(0))
		assert.False(t, file.ModifiedTime.IsZero())
	}
	assert.True(t, byPath[filepath.Join(dir, "a.pdf")])
	assert.True(t, byPath[filepath.Join(nested, "b.md")])
}

func TestScanHashMatchesContent(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "doc.txt", "hello world")

	files, _, err := Scan([]string{dir})
	require.NoError(t, err)
	require.Len(t, files, 1)

	expected, err := dedup.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, expected, files[0].Hash)
}

func TestScanMissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	_, _, err := Scan([]string{missing})
	assert.Error(t, err, "目录不可读是任务级致命错误")
}

func TestScanMultipleDirs(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeTestFile(t, dirA, "a.txt", "content a")
	writeTestFile(t, dirB, "b.txt", "content b")

	files, _, err := Scan([]string{dirA, dirB})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
