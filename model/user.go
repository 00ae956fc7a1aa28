package model

import "time"

// User is a registered account.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:128;not null" json:"email"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"size:72;not null" json:"-"`
	DisplayName  string    `gorm:"size:50" json:"display_name"`
	AvatarURL    string    `gorm:"size:255" json:"avatar_url"`
	Color        string    `gorm:"size:7" json:"color"` // accent color assigned at registration, #rrggbb
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
