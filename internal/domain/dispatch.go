// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// DailyDispatchRecord is the claim row for one user's daily push. Its
// existence alone means "already handled today": the composite primary key
// (user_id, dispatch_date) lets only one firing win, across processes.
//
// DispatchDate is the calendar date in the scheduler's timezone, formatted
// as YYYY-MM-DD.
type DailyDispatchRecord struct {
	UserID       string    `gorm:"type:char(36);primaryKey"`
	DispatchDate string    `gorm:"type:char(10);primaryKey"`
	DispatchedAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (DailyDispatchRecord) TableName() string { return "daily_dispatch_records" }
