package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bit2swaz/foodstagram/internal/api/ratelimit"
	"github.com/bit2swaz/foodstagram/internal/chef"
	"github.com/bit2swaz/foodstagram/internal/database"
	"github.com/bit2swaz/foodstagram/internal/recipe"
	"github.com/bit2swaz/foodstagram/pkg/storage/local"
)

type fakeProvider struct {
	calls     atomic.Int32
	err       error
	videoURI  string
	videoData string
}

func (f *fakeProvider) GenerateRecipe(_ context.Context, in chef.Input) (*recipe.Recipe, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &recipe.Recipe{
		DishName:    "Jollof Rice",
		Origin:      "Nigeria",
		Difficulty:  recipe.DifficultyMedium,
		Ingredients: []string{"rice", "tomatoes"},
	}, nil
}

func (f *fakeProvider) GenerateVideo(_ context.Context, dishName, origin string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.videoURI, nil
}

func (f *fakeProvider) FetchVideo(_ context.Context, uri string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.videoData)), nil
}

var frozen = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, limit int, opts Options) (*Server, *fakeProvider) {
	t.Helper()
	provider := &fakeProvider{videoURI: "https://provider.example/files/v1:download", videoData: "mp4-bytes"}
	limiter := ratelimit.New(limit, time.Minute, ratelimit.WithClock(func() time.Time { return frozen }))
	srv := NewServer(database.NewMemoryStore(), provider, limiter, zap.NewNop(), opts)
	return srv, provider
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func fromIP(ip string) http.Header {
	return http.Header{"X-Forwarded-For": []string{ip}}
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func register(t *testing.T, h http.Handler, name, email string) SessionResponse {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/register", RegisterRequest{Name: name, Email: email}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, 10, Options{})
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestGenerateRateLimited(t *testing.T) {
	srv, provider := newTestServer(t, 10, Options{TrustProxyHeaders: true})
	h := srv.Handler()
	input := chef.Input{Kind: chef.KindText, Value: "jollof rice"}

	for i := 0; i < 10; i++ {
		rec := doRequest(t, h, http.MethodPost, "/api/v1/recipes/generate", input, fromIP("203.0.113.7"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, int32(10), provider.calls.Load())

	rec := doRequest(t, h, http.MethodPost, "/api/v1/recipes/generate", input, fromIP("203.0.113.7"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60000", rec.Header().Get("X-RateLimit-Reset"))

	var body rateLimitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
	assert.Equal(t, int64(60000), body.ResetInMs)
	assert.Equal(t, int32(10), provider.calls.Load(), "rejected calls never reach the provider")

	rec = doRequest(t, h, http.MethodPost, "/api/v1/recipes/generate", input, fromIP("198.51.100.1"))
	assert.Equal(t, http.StatusOK, rec.Code, "a different identity is admitted")
	assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestAuthenticatedIdentityIsSeparateFromIP(t *testing.T) {
	srv, _ := newTestServer(t, 1, Options{TrustProxyHeaders: true})
	h := srv.Handler()
	session := register(t, h, "Ada", "ada@example.com")
	input := chef.Input{Kind: chef.KindRandom}

	rec := doRequest(t, h, http.MethodPost, "/api/v1/recipes/generate", input, fromIP("203.0.113.7"))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, h, http.MethodPost, "/api/v1/recipes/generate", input, fromIP("203.0.113.7"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	header := bearer(session.Token)
	header.Set("X-Forwarded-For", "203.0.113.7")
	rec = doRequest(t, h, http.MethodPost, "/api/v1/recipes/generate", input, header)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForwardedForIgnoredWithoutTrust(t *testing.T) {
	srv, provider := newTestServer(t, 2, Options{})
	h := srv.Handler()
	input := chef.Input{Kind: chef.KindText, Value: "ramen"}

	// httptest requests share one RemoteAddr; rotating the header must not
	// mint fresh identities.
	for i := 0; i < 2; i++ {
		rec := doRequest(t, h, http.MethodPost, "/api/v1/recipes/generate", input, fromIP(fmt.Sprintf("10.0.0.%d", i)))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
	for i := 2; i < 10; i++ {
		rec := doRequest(t, h, http.MethodPost, "/api/v1/recipes/generate", input, fromIP(fmt.Sprintf("10.0.0.%d", i)))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, "request %d", i+1)
	}
	assert.Equal(t, int32(2), provider.calls.Load())
}

func TestInvalidInputDoesNotConsumeQuota(t *testing.T) {
	srv, provider := newTestServer(t, 1, Options{})
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/v1/recipes/generate", chef.Input{Kind: "poem"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/recipes/generate", chef.Input{Kind: chef.KindText, Value: "pho"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestProviderErrorStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"capacity", chef.MapError(&chef.ProviderError{Provider: "gemini", StatusCode: 429, Message: "quota"}, chef.OpRequest), http.StatusServiceUnavailable},
		{"auth", &chef.Error{Kind: chef.ErrAuth, Message: "auth"}, http.StatusBadGateway},
		{"safety", &chef.Error{Kind: chef.ErrSafety, Message: "safety"}, http.StatusUnprocessableEntity},
		{"link", &chef.Error{Kind: chef.ErrLinkUnreadable, Message: "link"}, http.StatusUnprocessableEntity},
		{"not found", &chef.Error{Kind: chef.ErrNotFound, Message: "gone"}, http.StatusNotFound},
		{"unknown", &chef.Error{Kind: chef.ErrUnknown, Message: "boom"}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, provider := newTestServer(t, 10, Options{})
			provider.err = tc.err

			rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/recipes/generate", chef.Input{Kind: chef.KindRandom}, nil)
			assert.Equal(t, tc.want, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestVideoArchivedToMedia(t *testing.T) {
	media, err := local.New(t.TempDir(), "http://media.test")
	require.NoError(t, err)

	srv, _ := newTestServer(t, 10, Options{Media: media, MediaFiles: media})
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/v1/recipes/video", VideoRequest{DishName: "Jollof Rice", Origin: "Nigeria"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp VideoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.VideoURI, "http://media.test/media/videos/"), resp.VideoURI)
	assert.True(t, strings.HasSuffix(resp.VideoURI, ".mp4"))

	path := strings.TrimPrefix(resp.VideoURI, "http://media.test")
	rec = doRequest(t, h, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mp4-bytes", rec.Body.String())
}

func TestVideoWithoutMediaReturnsProviderURI(t *testing.T) {
	srv, provider := newTestServer(t, 10, Options{})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/recipes/video", VideoRequest{DishName: "Pho"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VideoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, provider.videoURI, resp.VideoURI)
}

func TestAuthFlow(t *testing.T) {
	srv, _ := newTestServer(t, 10, Options{})
	h := srv.Handler()

	session := register(t, h, "Ada", "Ada@Example.com")
	assert.Equal(t, "ada@example.com", session.User.Email)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/register", RegisterRequest{Name: "Other", Email: "ada@example.com"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: "nobody@example.com"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: "ADA@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var login SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, session.User.ID, login.User.ID)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/auth/logout", nil, bearer(login.Token))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/cookbook", nil, bearer(login.Token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "logged out token is rejected")

	rec = doRequest(t, h, http.MethodGet, "/api/v1/cookbook", nil, bearer(session.Token))
	assert.Equal(t, http.StatusOK, rec.Code, "other sessions survive")
}

func TestSessionExpiry(t *testing.T) {
	now := frozen
	srv, _ := newTestServer(t, 10, Options{SessionTTL: time.Hour, Now: func() time.Time { return now.Add(-2 * time.Hour) }})
	h := srv.Handler()

	session := register(t, h, "Ada", "ada@example.com")
	rec := doRequest(t, h, http.MethodGet, "/api/v1/cookbook", nil, bearer(session.Token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCookbook(t *testing.T) {
	srv, _ := newTestServer(t, 10, Options{})
	h := srv.Handler()
	ada := register(t, h, "Ada", "ada@example.com")
	bob := register(t, h, "Bob", "bob@example.com")

	rec := doRequest(t, h, http.MethodGet, "/api/v1/cookbook", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	jollof := recipe.Recipe{DishName: "Jollof Rice", Origin: "Nigeria", Difficulty: recipe.DifficultyMedium}
	rec = doRequest(t, h, http.MethodPost, "/api/v1/cookbook/toggle", jollof, bearer(ada.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var toggled ToggleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.True(t, toggled.Saved)
	require.NotEmpty(t, toggled.ID)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/cookbook", nil, bearer(ada.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []recipe.Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Jollof Rice", list[0].DishName)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/cookbook/"+toggled.ID, nil, bearer(bob.Token))
	assert.Equal(t, http.StatusNotFound, rec.Code, "recipes are scoped to their owner")

	stars := 9
	rec = doRequest(t, h, http.MethodPatch, "/api/v1/cookbook/"+toggled.ID, UpdateRecipeRequest{UserRating: &stars}, bearer(ada.Token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stars = 4
	notes := "less pepper"
	rec = doRequest(t, h, http.MethodPatch, "/api/v1/cookbook/"+toggled.ID, UpdateRecipeRequest{UserRating: &stars, UserNotes: &notes}, bearer(ada.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	var updated recipe.Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 4, updated.UserRating)
	assert.Equal(t, "less pepper", updated.UserNotes)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/cookbook/toggle", jollof, bearer(ada.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.False(t, toggled.Saved)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/cookbook", nil, bearer(ada.Token))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/cookbook", jollof, bearer(ada.Token))
	require.Equal(t, http.StatusCreated, rec.Code)
	var saved recipe.Recipe
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))

	rec = doRequest(t, h, http.MethodDelete, "/api/v1/cookbook/"+saved.ID, nil, bearer(ada.Token))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doRequest(t, h, http.MethodDelete, "/api/v1/cookbook/"+saved.ID, nil, bearer(ada.Token))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFormatRetryAfter(t *testing.T) {
	assert.Equal(t, "1", formatRetryAfter(0))
	assert.Equal(t, "1", formatRetryAfter(200*time.Millisecond))
	assert.Equal(t, "2", formatRetryAfter(1001*time.Millisecond))
	assert.Equal(t, "60", formatRetryAfter(time.Minute))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "10.0.0.1", clientIP(req), "forwarding headers alone are not trusted")

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", clientIP(req), "bare address as set by RealIP")
}
