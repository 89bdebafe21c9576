package storage

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/botfleet-backend/database"
	"github.com/Ananth-NQI/botfleet-backend/internal/config"
	"github.com/Ananth-NQI/botfleet-backend/internal/models"
)

// newTestDatabaseStore connects to the PostgreSQL instance described by the
// DB_* variables and skips when DB_HOST is unset
func newTestDatabaseStore(t *testing.T) *DatabaseStore {
	t.Helper()
	if os.Getenv("DB_HOST") == "" {
		t.Skip("DB_HOST not set, skipping PostgreSQL store tests")
	}

	cfg, err := config.Load(config.New())
	require.NoError(t, err)
	db, err := database.Connect(cfg.Database, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Ping(db))

	t.Cleanup(func() {
		db.Unscoped().Where("session_key LIKE ?", "storetest-%").Delete(&models.SessionCredential{})
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewDatabaseStore(db)
}

func TestDatabaseStoreUpsertAndHardDelete(t *testing.T) {
	store := newTestDatabaseStore(t)
	ctx := context.Background()
	key := "storetest-user-a"

	_, found, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save(ctx, key, []byte("creds-1")))
	require.NoError(t, store.Save(ctx, key, []byte("creds-2")))

	creds, found, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("creds-2"), creds)

	var rows int64
	require.NoError(t, store.db.Unscoped().Model(&models.SessionCredential{}).Where("session_key = ?", key).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.db.Unscoped().Model(&models.SessionCredential{}).Where("session_key = ?", key).Count(&rows).Error)
	assert.Equal(t, int64(0), rows)

	// the unique key is reusable after a hard delete
	require.NoError(t, store.Save(ctx, key, []byte("creds-3")))
	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key))
}

func TestDatabaseStoreRejectsEmptyKey(t *testing.T) {
	store := newTestDatabaseStore(t)
	assert.Error(t, store.Save(context.Background(), "", []byte("x")))
}
