package rest

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFriends(t *testing.T, r *gin.Engine, sender, recipient string) {
	t.Helper()
	req := sendFriendRequest(t, r, sender, usernameOf(t, r, recipient))
	w := doJSON(t, r, http.MethodPost, "/api/friends/accept", recipient, gin.H{"friendship_id": req["id"]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func usernameOf(t *testing.T, r *gin.Engine, token string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	return dataOf(t, w)["username"].(string)
}

func TestMergeRequiresAcceptedFriendship(t *testing.T) {
	r := newTestServer(t)
	alice := registerUser(t, r, "alice@example.com", "alice")
	registerUser(t, r, "bob@example.com", "bob")

	// Strangers cannot merge.
	w := doJSON(t, r, http.MethodGet, "/api/merge/bob", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Pending is not enough either.
	sendFriendRequest(t, r, alice, "bob")
	w = doJSON(t, r, http.MethodGet, "/api/merge/bob", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not friends", envelope(t, w)["message"])
}

func TestMergeTimelines(t *testing.T) {
	r := newTestServer(t)
	alice := registerUser(t, r, "alice@example.com", "alice")
	bob := registerUser(t, r, "bob@example.com", "bob")
	makeFriends(t, r, alice, bob)

	createEvent(t, r, alice, "2026-05-01", "Alice's day")
	createEvent(t, r, alice, "2026-05-03", "Alice later")
	createEvent(t, r, bob, "2026-05-02", "Bob's day")

	w := doJSON(t, r, http.MethodGet, "/api/merge/bob", alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, w)

	me := data["me"].(map[string]interface{})
	friend := data["friend"].(map[string]interface{})
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, "bob", friend["username"])
	assert.Len(t, me["events"].([]interface{}), 2)
	assert.Len(t, friend["events"].([]interface{}), 1)

	// Each side is newest-first.
	myEvents := me["events"].([]interface{})
	first := myEvents[0].(map[string]interface{})
	assert.Equal(t, "2026-05-03", first["event_date"])

	// The view is symmetric.
	w = doJSON(t, r, http.MethodGet, "/api/merge/alice", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = dataOf(t, w)
	assert.Equal(t, "bob", data["me"].(map[string]interface{})["username"])
}

func TestMergeEdgeCases(t *testing.T) {
	r := newTestServer(t)
	alice := registerUser(t, r, "alice@example.com", "alice")

	w := doJSON(t, r, http.MethodGet, "/api/merge/alice", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/merge/ghost", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMergeAfterUnfriend(t *testing.T) {
	r := newTestServer(t)
	alice := registerUser(t, r, "alice@example.com", "alice")
	bob := registerUser(t, r, "bob@example.com", "bob")
	makeFriends(t, r, alice, bob)

	w := doJSON(t, r, http.MethodGet, "/api/merge/bob", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/friends/bob", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Access is gone the moment the friendship is.
	w = doJSON(t, r, http.MethodGet, "/api/merge/bob", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
