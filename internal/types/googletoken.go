package types

import (
	"time"

	"github.com/google/uuid"
)

// GoogleToken holds the per-user OAuth credentials pushed by the frontend
// after the Google consent flow. Access tokens are refreshed server-side and
// written back here.
type GoogleToken struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User         *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	AccessToken  string    `gorm:"not null;column:access_token" json:"-"`
	RefreshToken string    `gorm:"column:refresh_token" json:"-"`
	TokenType    string    `gorm:"column:token_type" json:"token_type"`
	ExpiresAt    time.Time `gorm:"column:expires_at" json:"expires_at"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (GoogleToken) TableName() string {
	return "google_token"
}
