package outbox

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`
		CREATE TABLE outbox_events (
			id TEXT PRIMARY KEY DEFAULT (lower(
				hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-4' ||
				substr(hex(randomblob(2)), 2) || '-a' ||
				substr(hex(randomblob(2)), 2) || '-' || hex(randomblob(6))
			)),
			topic TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			attempt_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			published_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`).Error)
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestEmitAndDrainLifecycle(t *testing.T) {
	db := newOutboxDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, "mm-retention-events")

	userID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(tx, EventCancellationStarted, userID, map[string]any{"variant": "B"})
	})
	require.NoError(t, err)

	rows, err := repo.FetchUnpublished(10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "mm-retention-events", rows[0].Topic)
	require.Equal(t, EventCancellationStarted, rows[0].EventType)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.Equal(t, userID, envelope.UserID)
	require.NotEmpty(t, envelope.EventID)

	require.NoError(t, repo.MarkFailed(rows[0].ID, errors.New("topic unavailable")))
	rows, err = repo.FetchUnpublished(10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)

	require.NoError(t, repo.MarkPublished(rows[0].ID))
	rows, err = repo.FetchUnpublished(10, 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), "mm-retention-events")
	err := svc.Emit(nil, EventCancellationUpdated, uuid.New(), nil)
	require.Error(t, err)
}
