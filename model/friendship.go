package model

import "time"

// Friendship statuses.
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipRejected = "rejected"
	FriendshipBlocked  = "blocked"
)

// Friendship is the single row for an unordered pair of users.
// UserID always holds the numerically smaller id and FriendID the larger,
// so the composite unique index enforces at most one row per pair.
// RequestedBy records which side sent the request; authorization and the
// sender/receiver projection derive from it, never from slot position.
type Friendship struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"uniqueIndex:idx_friendship_pair;not null" json:"user_id"`
	FriendID    int64     `gorm:"uniqueIndex:idx_friendship_pair;not null" json:"friend_id"`
	RequestedBy int64     `gorm:"not null" json:"requested_by"`
	Status      string    `gorm:"size:10;default:pending" json:"status"`
	RequestedAt time.Time `json:"requested_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
