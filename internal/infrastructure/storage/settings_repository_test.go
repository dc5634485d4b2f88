package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbridge/backend/internal/domain/reconcile"
)

func TestSettingsRepository_GetDefault(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(db)

	value, err := repo.Get(reconcile.SettingScheduleTime, "03:00")
	require.NoError(t, err)
	assert.Equal(t, "03:00", value, "未设置的键应返回默认值")
}

func TestSettingsRepository_SetAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(db)

	require.NoError(t, repo.Set(reconcile.SettingScheduleTime, "04:30"))

	value, err := repo.Get(reconcile.SettingScheduleTime, "03:00")
	require.NoError(t, err)
	assert.Equal(t, "04:30", value)

	// 覆盖写入
	require.NoError(t, repo.Set(reconcile.SettingScheduleTime, "05:00"))

	value, err = repo.Get(reconcile.SettingScheduleTime, "03:00")
	require.NoError(t, err)
	assert.Equal(t, "05:00", value)
}

func TestSettingsRepository_All(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSettingsRepository(db)

	require.NoError(t, repo.Set(reconcile.SettingScheduleTime, "02:00"))
	require.NoError(t, repo.Set(reconcile.SettingBatchSize, "200"))

	all, err := repo.All()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		reconcile.SettingScheduleTime: "02:00",
		reconcile.SettingBatchSize:    "200",
	}, all)
}
