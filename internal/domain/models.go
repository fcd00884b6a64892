// Package domain defines the persistence models for registered users, their
// survey responses and the daily dispatch claims. These types are mapped with
// GORM and shared across the repository and service layers.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// User is a person reachable on the chat platform. A user is created once on
// first verified contact and is never deleted by the application.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - PlatformUserID: chat-platform user identifier; unique.
//   - ExternalToken: opaque random token embedded in outward-facing links; unique.
//   - DisplayName: best-effort profile name; may be empty.
//   - CreatedAt: set on insert.
//   - UpdatedAt: bumped when the display name changes.
type User struct {
	ID             string    `json:"id"               gorm:"type:char(36);primaryKey"`
	PlatformUserID string    `json:"platform_user_id" gorm:"type:varchar(64);not null;uniqueIndex:ux_users_platform_user_id"`
	ExternalToken  string    `json:"-"                gorm:"type:varchar(64);not null;uniqueIndex:ux_users_external_token"`
	DisplayName    string    `json:"display_name"     gorm:"type:varchar(255);not null;default:''"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// SurveyResponse is one stored form submission. Rows are append-only and the
// computed score is never rewritten after insert.
//
// UserID is nil only for submissions kept in the unresolved bucket; for those
// rows UnresolvedToken carries whatever token text the payload held so an
// operator can relink them later. (user_id, submitted_at) is unique.
//
// UnresolvedKey is the redelivery key of an unresolved row that carried a
// token: a digest of token, submission time and answers. It is nil for
// resolved rows and for token-less submissions, which are never merged.
type SurveyResponse struct {
	ID              string         `json:"id"               gorm:"type:char(36);primaryKey"`
	UserID          *string        `json:"user_id"          gorm:"type:char(36);uniqueIndex:ux_responses_user_submitted,priority:1"`
	SubmittedAt     time.Time      `json:"submitted_at"     gorm:"not null;uniqueIndex:ux_responses_user_submitted,priority:2;index"`
	RawAnswers      datatypes.JSON `json:"raw_answers"      gorm:"not null"`
	ComputedScore   float64        `json:"computed_score"   gorm:"not null"`
	UnresolvedToken string         `json:"unresolved_token,omitempty" gorm:"type:varchar(255);not null;default:''"`
	UnresolvedKey   *string        `json:"-"                gorm:"type:char(64);uniqueIndex:ux_responses_unresolved_key"`
	CreatedAt       time.Time      `json:"created_at"`

	// User is the resolved submitter. Responses follow their user on delete.
	User *User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SurveyResponse.
func (SurveyResponse) TableName() string { return "survey_responses" }
