package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/docbridge/backend/internal/domain/reconcile"
)

// settingsRepository 应用设置 SQLite 仓储实现
type settingsRepository struct {
	db *sql.DB
}

var _ reconcile.SettingsStore = (*settingsRepository)(nil)

// NewSettingsRepository 创建应用设置仓储实例
func NewSettingsRepository(db *sql.DB) reconcile.SettingsStore {
	return &settingsRepository{db: db}
}

// Get 读取键值，不存在时返回 defaultValue
func (r *settingsRepository) Get(key, defaultValue string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return defaultValue, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query setting: %w", err)
	}
	return value, nil
}

// Set 写入键值
func (r *settingsRepository) Set(key, value string) error {
	query := `
	INSERT INTO app_settings (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	if _, err := r.db.Exec(query, key, value, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}

	return nil
}

// All 列出全部键值
func (r *settingsRepository) All() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settings: %w", err)
	}

	return settings, nil
}
