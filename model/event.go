package model

import (
	"time"

	"gorm.io/datatypes"
)

// Event types.
const (
	EventTypePlan   = "plan"
	EventTypeRecord = "record"
)

// Moods an event may carry.
const (
	MoodHappy   = "happy"
	MoodCalm    = "calm"
	MoodSad     = "sad"
	MoodExcited = "excited"
	MoodTired   = "tired"
)

// Event is a dated journal entry or plan owned by one user.
type Event struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64          `gorm:"index;not null" json:"user_id"`
	EventDate datatypes.Date `gorm:"not null" json:"event_date"`
	Title     string         `gorm:"size:120;not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	ImageURL  *string        `gorm:"size:255" json:"image_url"`
	EventType string         `gorm:"size:10;default:record" json:"event_type"`
	Mood      *string        `gorm:"size:10" json:"mood"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
