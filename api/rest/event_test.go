package rest

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createEvent(t *testing.T, r *gin.Engine, token, date, title string) map[string]interface{} {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/events", token, gin.H{
		"event_date": date,
		"title":      title,
		"content":    "some content",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return dataOf(t, w)
}

func TestEventCreateJSON(t *testing.T) {
	r := newTestServer(t)
	token := registerUser(t, r, "alice@example.com", "alice")

	w := doJSON(t, r, http.MethodPost, "/api/events", token, gin.H{
		"event_date": "2026-05-01",
		"title":      "Concert",
		"content":    "Front row",
		"event_type": "plan",
		"mood":       "excited",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := dataOf(t, w)
	assert.Equal(t, "2026-05-01", data["event_date"])
	assert.Equal(t, "plan", data["event_type"])
	assert.Equal(t, "excited", data["mood"])
	assert.Nil(t, data["image_url"])
	// IDs are serialized as strings.
	assert.IsType(t, "", data["id"])
}

func TestEventCreateMultipartWithImage(t *testing.T) {
	r := newTestServer(t)
	token := registerUser(t, r, "alice@example.com", "alice")

	w := doMultipart(t, r, http.MethodPost, "/api/events", token, map[string]string{
		"event_date": "2026-05-01",
		"title":      "Picnic",
		"content":    "Sunny day",
	}, fileField{field: "image", filename: "pic.png", contentType: "image/png", payload: []byte("fakepng")})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := dataOf(t, w)
	img, _ := data["image_url"].(string)
	// The stored /uploads/... reference comes back absolutized.
	assert.Contains(t, img, "http://")
	assert.Contains(t, img, "/uploads/")
}

func TestEventCreateRejectsBadImageType(t *testing.T) {
	r := newTestServer(t)
	token := registerUser(t, r, "alice@example.com", "alice")

	w := doMultipart(t, r, http.MethodPost, "/api/events", token, map[string]string{
		"event_date": "2026-05-01",
		"title":      "T",
		"content":    "C",
	}, fileField{field: "image", filename: "evil.svg", contentType: "image/svg+xml", payload: []byte("<svg/>")})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventCreateValidation(t *testing.T) {
	r := newTestServer(t)
	token := registerUser(t, r, "alice@example.com", "alice")

	w := doJSON(t, r, http.MethodPost, "/api/events", token, gin.H{
		"title": "no date or content",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/events", token, gin.H{
		"event_date": "01/05/2026",
		"title":      "T",
		"content":    "C",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventListAndGet(t *testing.T) {
	r := newTestServer(t)
	token := registerUser(t, r, "alice@example.com", "alice")
	other := registerUser(t, r, "bob@example.com", "bob")

	created := createEvent(t, r, token, "2026-05-01", "Mine")
	createEvent(t, r, other, "2026-05-02", "Theirs")

	w := doJSON(t, r, http.MethodGet, "/api/events", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := listOf(t, w)
	require.Len(t, list, 1)

	id := created["id"].(string)
	w = doJSON(t, r, http.MethodGet, "/api/events/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Mine", dataOf(t, w)["title"])

	// Someone else's event: forbidden, not leaked as not-found.
	w = doJSON(t, r, http.MethodGet, "/api/events/"+id, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/events/99999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/events/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventUpdateJSON(t *testing.T) {
	r := newTestServer(t)
	token := registerUser(t, r, "alice@example.com", "alice")
	created := createEvent(t, r, token, "2026-05-01", "Before")
	id := created["id"].(string)

	w := doJSON(t, r, http.MethodPut, "/api/events/"+id, token, gin.H{
		"title": "After",
		"mood":  "happy",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, w)
	assert.Equal(t, "After", data["title"])
	assert.Equal(t, "happy", data["mood"])
	// Untouched fields persist.
	assert.Equal(t, "2026-05-01", data["event_date"])
	assert.Equal(t, "some content", data["content"])
}

func TestEventUpdateReplacesImage(t *testing.T) {
	r := newTestServer(t)
	token := registerUser(t, r, "alice@example.com", "alice")

	w := doMultipart(t, r, http.MethodPost, "/api/events", token, map[string]string{
		"event_date": "2026-05-01",
		"title":      "T",
		"content":    "C",
	}, fileField{field: "image", filename: "old.png", contentType: "image/png", payload: []byte("old")})
	require.Equal(t, http.StatusCreated, w.Code)
	id := dataOf(t, w)["id"].(string)
	oldURL := dataOf(t, w)["image_url"].(string)

	w = doMultipart(t, r, http.MethodPut, "/api/events/"+id, token, nil,
		fileField{field: "image", filename: "new.png", contentType: "image/png", payload: []byte("new")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	newURL := dataOf(t, w)["image_url"].(string)
	assert.NotEqual(t, oldURL, newURL)
}

func TestEventUpdateRemoveImage(t *testing.T) {
	r := newTestServer(t)
	token := registerUser(t, r, "alice@example.com", "alice")

	w := doMultipart(t, r, http.MethodPost, "/api/events", token, map[string]string{
		"event_date": "2026-05-01",
		"title":      "T",
		"content":    "C",
	}, fileField{field: "image", filename: "pic.png", contentType: "image/png", payload: []byte("x")})
	require.Equal(t, http.StatusCreated, w.Code)
	id := dataOf(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodPut, "/api/events/"+id, token, gin.H{
		"remove_image": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, dataOf(t, w)["image_url"])
}

func TestEventUpdateOwnership(t *testing.T) {
	r := newTestServer(t)
	token := registerUser(t, r, "alice@example.com", "alice")
	other := registerUser(t, r, "bob@example.com", "bob")
	created := createEvent(t, r, token, "2026-05-01", "Mine")
	id := created["id"].(string)

	w := doJSON(t, r, http.MethodPut, "/api/events/"+id, other, gin.H{"title": "Hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEventDelete(t *testing.T) {
	r := newTestServer(t)
	token := registerUser(t, r, "alice@example.com", "alice")
	other := registerUser(t, r, "bob@example.com", "bob")
	created := createEvent(t, r, token, "2026-05-01", "Mine")
	id := created["id"].(string)

	w := doJSON(t, r, http.MethodDelete, "/api/events/"+id, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/events/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/events/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
