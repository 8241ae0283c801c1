package services

import (
	"context"
	"testing"
	"time"

	"lorebridge/internal/models"
	"lorebridge/internal/store"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RequestLog{}))
	return db
}

func TestRequestLogServiceFlushOnStop(t *testing.T) {
	db := newTestDB(t)
	memStore := store.NewMemoryStore()
	defer memStore.Close()

	svc := NewRequestLogService(db, memStore)
	svc.Start()

	svc.Record(&models.RequestLog{
		Model:       "gpt-4o",
		MappedModel: "deepseek-chat",
		IsSuccess:   true,
		StatusCode:  200,
		Duration:    42,
		IsStream:    true,
	})
	svc.Record(&models.RequestLog{
		Model:      "gpt-4o",
		IsSuccess:  false,
		StatusCode: 502,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svc.Stop(ctx)

	var count int64
	require.NoError(t, db.Model(&models.RequestLog{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var failed models.RequestLog
	require.NoError(t, db.Where("is_success = ?", false).First(&failed).Error)
	assert.Equal(t, 502, failed.StatusCode)
	assert.NotEmpty(t, failed.ID)
	assert.False(t, failed.Timestamp.IsZero())
}

func TestRequestLogServiceCounters(t *testing.T) {
	db := newTestDB(t)
	memStore := store.NewMemoryStore()
	defer memStore.Close()

	svc := NewRequestLogService(db, memStore)

	svc.Record(&models.RequestLog{IsSuccess: true})
	svc.Record(&models.RequestLog{IsSuccess: true})
	svc.Record(&models.RequestLog{IsSuccess: false})

	total, success, failure := svc.Counters()
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), success)
	assert.Equal(t, int64(1), failure)
}
