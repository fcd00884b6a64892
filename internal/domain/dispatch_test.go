package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestDailyDispatchRecord_CompositeKey(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&DailyDispatchRecord{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	now := time.Now().UTC()
	first := &DailyDispatchRecord{UserID: "u1", DispatchDate: "2025-01-01", DispatchedAt: now}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("first claim: %v", err)
	}

	// Same user, same day → rejected by the primary key.
	again := &DailyDispatchRecord{UserID: "u1", DispatchDate: "2025-01-01", DispatchedAt: now.Add(time.Minute)}
	if err := db.Create(again).Error; err == nil {
		t.Fatalf("expected primary key violation for same (user, date)")
	}

	// Next day and other users are independent claims.
	for _, rec := range []*DailyDispatchRecord{
		{UserID: "u1", DispatchDate: "2025-01-02", DispatchedAt: now},
		{UserID: "u2", DispatchDate: "2025-01-01", DispatchedAt: now},
	} {
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("claim %+v: %v", rec, err)
		}
	}

	var n int64
	if err := db.Model(&DailyDispatchRecord{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 claim rows, got %d", n)
	}

	var got DailyDispatchRecord
	if err := db.First(&got, "user_id = ? AND dispatch_date = ?", "u1", "2025-01-01").Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !got.DispatchedAt.Equal(first.DispatchedAt) {
		t.Fatalf("dispatched_at overwritten: got %v want %v", got.DispatchedAt, first.DispatchedAt)
	}
}
