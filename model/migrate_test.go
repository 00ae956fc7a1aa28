package model_test

import (
	"testing"
	"time"

	"github.com/ayutane/daylink/model"
	"github.com/ayutane/daylink/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// User
	u := &model.User{Email: "a@example.com", Username: "alice", PasswordHash: "hash", Color: "#112233"}
	require.NoError(t, db.Create(u).Error)
	assert.Greater(t, u.ID, int64(0))

	var found model.User
	require.NoError(t, db.First(&found, u.ID).Error)
	assert.Equal(t, "alice", found.Username)

	// Event
	mood := model.MoodHappy
	ev := &model.Event{
		UserID:    u.ID,
		EventDate: datatypes.Date(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)),
		Title:     "First entry",
		Content:   "Hello",
		EventType: model.EventTypeRecord,
		Mood:      &mood,
	}
	require.NoError(t, db.Create(ev).Error)
	assert.Greater(t, ev.ID, int64(0))

	// Friendship
	other := &model.User{Email: "b@example.com", Username: "bob", PasswordHash: "hash", Color: "#112233"}
	require.NoError(t, db.Create(other).Error)
	f := &model.Friendship{
		UserID:      u.ID,
		FriendID:    other.ID,
		RequestedBy: u.ID,
		Status:      model.FriendshipPending,
		RequestedAt: time.Now(),
	}
	require.NoError(t, db.Create(f).Error)
}

func TestUserUniqueConstraints(t *testing.T) {
	db := testutil.SetupTestDB(t)

	require.NoError(t, db.Create(&model.User{Email: "a@example.com", Username: "alice", PasswordHash: "x"}).Error)
	assert.Error(t, db.Create(&model.User{Email: "a@example.com", Username: "other", PasswordHash: "x"}).Error)
	assert.Error(t, db.Create(&model.User{Email: "other@example.com", Username: "alice", PasswordHash: "x"}).Error)
}

func TestFriendshipPairUniqueIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)

	f := &model.Friendship{UserID: 1, FriendID: 2, RequestedBy: 1, Status: model.FriendshipPending, RequestedAt: time.Now()}
	require.NoError(t, db.Create(f).Error)

	// Same ordered pair again must hit the composite unique index.
	dup := &model.Friendship{UserID: 1, FriendID: 2, RequestedBy: 2, Status: model.FriendshipPending, RequestedAt: time.Now()}
	assert.Error(t, db.Create(dup).Error)

	// Another pair sharing one side is fine.
	ok := &model.Friendship{UserID: 1, FriendID: 3, RequestedBy: 3, Status: model.FriendshipPending, RequestedAt: time.Now()}
	assert.NoError(t, db.Create(ok).Error)
}
