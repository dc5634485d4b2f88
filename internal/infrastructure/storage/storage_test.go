package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// setupTestDB 创建临时测试数据库并初始化表结构
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	// 创建临时目录
	tmpDir, err := os.MkdirTemp("", "docbridge_test_*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)

	// 启用 WAL 模式
	_, err = db.Exec("PRAGMA journal_mode=WAL;")
	require.NoError(t, err)

	// 初始化表结构
	require.NoError(t, InitTables(db))

	// 清理函数
	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}
