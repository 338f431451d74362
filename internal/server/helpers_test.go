package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"whereismypet/internal/config"
	"whereismypet/internal/featureflags"
	"whereismypet/internal/location"
	"whereismypet/internal/models"
	"whereismypet/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func testConfig() *config.Config {
	return &config.Config{
		Port:                  "0",
		Env:                   "test",
		AllowedOrigins:        "http://localhost:5173",
		FeatureFlags:          "strict_location=on,live_catalog=on",
		DBDriver:              "sqlite",
		JWTSecret:             testSecret,
		GeoAPIBaseURL:         "http://127.0.0.1:1",
		GeoAPITimeoutSeconds:  1,
		ImageHostUploadPreset: "test",
		ImageHostTimeoutSecs:  1,
		ImageMaxUploadSizeMB:  1,
		CatalogRecentLimit:    10,
		ViewCounterWorkers:    2,
		ViewCounterQueueSize:  64,
		OrphanSweepSchedule:   "@hourly",
	}
}

type testEnv struct {
	s   *Server
	app *fiber.App
	db  *gorm.DB
}

// newTestEnv builds a server over an in-memory database without Redis.
// Options run before the services are rebuilt, so they may swap repositories
// or collaborators.
func newTestEnv(t *testing.T, opts ...func(*config.Config, *Server)) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	cfg := testConfig()

	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	for _, opt := range opts {
		opt(cfg, s)
	}
	s.wireServices()

	return &testEnv{s: s, app: s.newApp(), db: db}
}

func withFlags(raw string) func(*config.Config, *Server) {
	return func(cfg *config.Config, s *Server) {
		cfg.FeatureFlags = raw
		s.featureFlags = featureflags.NewManager(raw)
	}
}

func tokenFor(t *testing.T, userID string, verified bool) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":            userID,
		"email":          userID + "@example.com",
		"email_verified": verified,
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) makeAdmin(t *testing.T, userID string) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.User{ID: userID, Email: userID + "@example.com", IsAdmin: true}).Error)
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *http.Response {
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
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// createPost creates a valid post through the API and returns it.
func (e *testEnv) createPost(t *testing.T, ownerID string) models.Post {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/posts", validPostBody(), tokenFor(t, ownerID, true))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.Post](t, resp)
}

func validPostBody() map[string]interface{} {
	return map[string]interface{}{
		"title":              "Lost tabby near the market",
		"description":        "Orange tabby, answers to Simit, blue collar.",
		"image_url":          "https://img.example.com/simit.webp",
		"passport_image_url": "https://img.example.com/simit-passport.webp",
		"location": map[string]string{
			"city":         "Istanbul",
			"district":     "Kadikoy",
			"neighborhood": "Moda",
			"street":       "Moda Cd. 12",
		},
		"pet_name":     "Simit",
		"pet_type":     "cat",
		"contact_info": "+90 555 000 0000",
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// MockImageUploader is a mock of the image host uploader
type MockImageUploader struct {
	mock.Mock
}

func (m *MockImageUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	args := m.Called(ctx, filename)
	return args.String(0), args.Error(1)
}

// MockLocationLister is a mock of the location directory
type MockLocationLister struct {
	mock.Mock
}

func (m *MockLocationLister) ListProvinces(ctx context.Context) []location.Node {
	return m.Called(ctx).Get(0).([]location.Node)
}

func (m *MockLocationLister) ListDistricts(ctx context.Context, provinceID int) []location.Node {
	return m.Called(ctx, provinceID).Get(0).([]location.Node)
}

func (m *MockLocationLister) ListNeighborhoods(ctx context.Context, districtID int) []location.Node {
	return m.Called(ctx, districtID).Get(0).([]location.Node)
}

// MockPostRepository is a mock of the PostRepository interface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	return m.Called(ctx, post).Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Post, error) {
	args := m.Called(ctx, ownerID)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *MockPostRepository) ListRecent(ctx context.Context, limit int) ([]models.Post, error) {
	args := m.Called(ctx, limit)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *MockPostRepository) ListAll(ctx context.Context) ([]models.Post, error) {
	args := m.Called(ctx)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.Post) error {
	return m.Called(ctx, post).Error(0)
}

func (m *MockPostRepository) UpdateStatus(ctx context.Context, id string, status models.PostStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockPostRepository) IncrementViewCount(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPostRepository) DeleteCascade(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
