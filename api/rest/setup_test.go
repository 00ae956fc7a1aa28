package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/ayutane/daylink/config"
	mw "github.com/ayutane/daylink/middleware"
	"github.com/ayutane/daylink/service"
	"github.com/ayutane/daylink/testutil"
	"github.com/ayutane/daylink/upload"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestServer wires the full route tree against an in-memory database,
// mirroring the wiring in main.
func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTL: time.Hour}

	store, err := upload.NewStore(t.TempDir(), 5, 2, logger)
	require.NoError(t, err)

	userSvc := service.NewUserService(db)
	eventSvc := service.NewEventService(db)
	friendSvc := service.NewFriendshipService(db, userSvc)

	authH := NewAuthHandler(userSvc, c, sec)
	userH := NewUserHandler(userSvc, store)
	eventH := NewEventHandler(eventSvc, store, logger)
	friendH := NewFriendHandler(friendSvc, userSvc)
	mergeH := NewMergeHandler(friendSvc, userSvc, eventSvc)

	auth := mw.Auth(sec, c, db)

	r := gin.New()
	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/register", authH.Register)
		authG.POST("/login", authH.Login)
		authG.POST("/logout", auth, authH.Logout)

		usersG := api.Group("/users")
		usersG.GET("/me", auth, userH.Me)
		usersG.PUT("/me", auth, userH.UpdateMe)
		usersG.GET("/search", auth, userH.Search)
		usersG.GET("/:username", userH.PublicProfile)

		eventsG := api.Group("/events")
		eventsG.Use(auth)
		eventsG.POST("", eventH.Create)
		eventsG.GET("", eventH.List)
		eventsG.GET("/:id", eventH.GetByID)
		eventsG.PUT("/:id", eventH.Update)
		eventsG.DELETE("/:id", eventH.Delete)

		friendsG := api.Group("/friends")
		friendsG.Use(auth)
		friendsG.POST("/request", friendH.Request)
		friendsG.POST("/accept", friendH.Accept)
		friendsG.POST("/reject", friendH.Reject)
		friendsG.GET("", friendH.List)
		friendsG.GET("/requests", friendH.Requests)
		friendsG.DELETE("/request/:friendshipId", friendH.DeleteByID)
		friendsG.DELETE("/:username", friendH.DeleteByUsername)

		mergeG := api.Group("/merge")
		mergeG.Use(auth)
		mergeG.GET("/:username", mergeH.Merge)
	}
	return r
}

// doJSON performs a request with an optional bearer token and JSON body.
func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// doMultipart performs a multipart form request with optional file fields.
type fileField struct {
	field       string
	filename    string
	contentType string
	payload     []byte
}

func doMultipart(t *testing.T, r *gin.Engine, method, path, token string, fields map[string]string, files ...fileField) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.payload)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// envelope decodes the standard response body.
func envelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	body := envelope(t, w)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "data missing in %s", w.Body.String())
	return data
}

func listOf(t *testing.T, w *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	body := envelope(t, w)
	data, ok := body["data"].([]interface{})
	require.True(t, ok, "data list missing in %s", w.Body.String())
	return data
}

// registerUser registers a user and returns the bearer token.
func registerUser(t *testing.T, r *gin.Engine, email, username string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    email,
		"username": username,
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := dataOf(t, w)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}
