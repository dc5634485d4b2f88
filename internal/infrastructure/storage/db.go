package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/docbridge/backend/internal/infrastructure/config"
)

// GetDBPath 获取 docbridge 数据库路径
// Windows: %USERPROFILE%\.docbridge\docbridge.db
// macOS/Linux: ~/.docbridge/docbridge.db
func GetDBPath() (string, error) {
	dataDir := config.GetDataDir()
	if dataDir == "" {
		return "", fmt.Errorf("failed to resolve data directory")
	}

	return filepath.Join(dataDir, "docbridge.db"), nil
}

// OpenDB 打开默认路径下的数据库连接
func OpenDB() (*sql.DB, error) {
	dbPath, err := GetDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}
	return OpenDBAt(dbPath)
}

// OpenDBAt 打开指定路径的数据库连接
func OpenDBAt(dbPath string) (*sql.DB, error) {
	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// 打开数据库连接
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 启用 WAL 模式，提升并发读写能力
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ProvideDB 提供数据库连接（用于依赖注入）
// 配置未指定路径时使用数据目录下的默认路径
func ProvideDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	if cfg.Path != "" {
		db, err = OpenDBAt(cfg.Path)
	} else {
		db, err = OpenDB()
	}
	if err != nil {
		return nil, err
	}

	if err := InitTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitTables 初始化数据库表结构
func InitTables(db *sql.DB) error {
	// 创建 documents 表
	createDocumentsSQL := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT
	);`

	if _, err := db.Exec(createDocumentsSQL); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	// 创建 file_hashes 表
	createHashesSQL := `
	CREATE TABLE IF NOT EXISTS file_hashes (
		file_hash TEXT NOT NULL,
		file_name TEXT NOT NULL,
		document_id TEXT NOT NULL,
		upload_time TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		client_id TEXT NOT NULL DEFAULT 'system',
		original_path TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (file_hash, client_id, original_path)
	);`

	if _, err := db.Exec(createHashesSQL); err != nil {
		return fmt.Errorf("failed to create file_hashes table: %w", err)
	}

	// 创建索引
	createHashIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_file_hashes_hash ON file_hashes(file_hash);
	CREATE INDEX IF NOT EXISTS idx_file_hashes_document_id ON file_hashes(document_id);
	CREATE INDEX IF NOT EXISTS idx_file_hashes_client_path ON file_hashes(client_id, original_path);`

	if _, err := db.Exec(createHashIndexSQL); err != nil {
		return fmt.Errorf("failed to create file_hashes indexes: %w", err)
	}

	// 创建 reconciliation_jobs 表
	createJobsSQL := `
	CREATE TABLE IF NOT EXISTS reconciliation_jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		total_files INTEGER NOT NULL DEFAULT 0,
		processed_files INTEGER NOT NULL DEFAULT 0,
		added_files INTEGER NOT NULL DEFAULT 0,
		updated_files INTEGER NOT NULL DEFAULT 0,
		removed_files INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		error_details TEXT,
		collection_name TEXT NOT NULL DEFAULT '',
		delete_missing INTEGER NOT NULL DEFAULT 0,
		batch_size INTEGER NOT NULL DEFAULT 100
	);`

	if _, err := db.Exec(createJobsSQL); err != nil {
		return fmt.Errorf("failed to create reconciliation_jobs table: %w", err)
	}

	createJobsIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_reconciliation_jobs_status ON reconciliation_jobs(status);
	CREATE INDEX IF NOT EXISTS idx_reconciliation_jobs_start_time ON reconciliation_jobs(start_time);`

	if _, err := db.Exec(createJobsIndexSQL); err != nil {
		return fmt.Errorf("failed to create reconciliation_jobs indexes: %w", err)
	}

	// 创建 app_settings 表
	createSettingsSQL := `
	CREATE TABLE IF NOT EXISTS app_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`

	if _, err := db.Exec(createSettingsSQL); err != nil {
		return fmt.Errorf("failed to create app_settings table: %w", err)
	}

	return nil
}
