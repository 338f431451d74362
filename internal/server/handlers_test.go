package server

import (
	"context"
	"net/http"
	"testing"

	"whereismypet/internal/cache"
	"whereismypet/internal/config"
	"whereismypet/internal/location"
	"whereismypet/internal/models"
	"whereismypet/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHealthChecks(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/health/ready", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]interface{}](t, resp)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "disabled", checks["redis"])
}

func TestSwaggerDocs(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/swagger/doc.json", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := decode[struct {
		BasePath string                            `json:"basePath"`
		Paths    map[string]map[string]interface{} `json:"paths"`
	}](t, resp)
	assert.Equal(t, "/api", doc.BasePath)
	assert.Contains(t, doc.Paths["/posts"], "get")
	assert.Contains(t, doc.Paths["/posts"], "post")
	assert.Contains(t, doc.Paths["/posts/{id}/view"], "post")
	assert.NotContains(t, doc.Paths["/posts/{id}"], "post")
}

func TestSubmitReport(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	post := env.createPost(t, "owner-1")
	path := "/api/posts/" + post.ID + "/reports"

	tests := []struct {
		name   string
		path   string
		reason string
		token  string
		want   int
	}{
		{"anonymous spam", path, "spam", "", http.StatusAccepted},
		{"signed-in reporter", path, "Commercial", tokenFor(t, "reporter-1", true), http.StatusAccepted},
		{"unknown reason", path, "bogus", "", http.StatusBadRequest},
		{"missing post", "/api/posts/nope/reports", "spam", "", http.StatusNotFound},
		{"bad token", path, "spam", "garbage", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		resp := env.do(t, http.MethodPost, tt.path, map[string]string{"reason_code": tt.reason}, tt.token)
		assert.Equal(t, tt.want, resp.StatusCode, tt.name)
		if tt.want == http.StatusAccepted {
			assert.NotEmpty(t, decode[map[string]string](t, resp)["id"], tt.name)
		}
	}

	var reports []models.Report
	require.NoError(t, env.db.Find(&reports).Error)
	require.Len(t, reports, 2)
	byReason := map[models.ReasonCode]models.Report{}
	for _, r := range reports {
		byReason[r.ReasonCode] = r
	}
	assert.Nil(t, byReason[models.ReasonSpam].ReporterID)
	require.NotNil(t, byReason[models.ReasonCommercial].ReporterID)
	assert.Equal(t, "reporter-1", *byReason[models.ReasonCommercial].ReporterID)
}

func TestAdminRoutes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.makeAdmin(t, "admin-1")
	admin := tokenFor(t, "admin-1", true)

	post := env.createPost(t, "owner-1")
	resp := env.do(t, http.MethodPost, "/api/posts/"+post.ID+"/reports", map[string]string{"reason_code": "spam"}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/admin/reports", nil, tokenFor(t, "owner-1", true))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/admin/reports?post_id="+post.ID, nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Report](t, resp), 1)

	resp = env.do(t, http.MethodGet, "/api/admin/reports?post_id=other", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Report](t, resp))

	resp = env.do(t, http.MethodGet, "/api/admin/posts?q=tabby", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[postsPage](t, resp).Total)

	resp = env.do(t, http.MethodGet, "/api/admin/feature-flags", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	flags := decode[map[string]map[string]interface{}](t, resp)
	assert.Equal(t, "on", flags["raw"]["strict_location"])
	assert.Equal(t, true, flags["evaluated"]["live_catalog"])

	// An orphaned comment left behind by an older client.
	require.NoError(t, env.db.Create(&models.Comment{PostID: "gone", UserID: "u", Content: "hi"}).Error)
	resp = env.do(t, http.MethodPost, "/api/admin/maintenance/orphans", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	swept := decode[map[string]map[string]int64](t, resp)
	assert.Equal(t, int64(1), swept["deleted"]["comments"])
}

func TestCommentsNotifyOwner(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	post := env.createPost(t, "owner-1")
	commentsPath := "/api/posts/" + post.ID + "/comments"

	resp := env.do(t, http.MethodPost, commentsPath, map[string]string{"content": "Saw it near the pier"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, commentsPath, map[string]string{"content": "   "}, tokenFor(t, "helper", true))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, commentsPath, map[string]string{"content": "Saw it near the pier"}, tokenFor(t, "helper", true))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = env.do(t, http.MethodPost, commentsPath, map[string]string{"content": "Thanks, checking"}, tokenFor(t, "owner-1", true))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, commentsPath, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Comment](t, resp), 2)

	owner := tokenFor(t, "owner-1", true)
	resp = env.do(t, http.MethodGet, "/api/users/me/notifications", nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decode[[]models.Notification](t, resp)
	require.Len(t, items, 1, "the owner's own comment must not notify them")
	assert.Equal(t, models.NotificationCommentCreated, items[0].Type)

	resp = env.do(t, http.MethodPost, "/api/users/me/notifications/"+items[0].ID+"/read", nil, tokenFor(t, "helper", true))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/users/me/notifications/"+items[0].ID+"/read", nil, owner)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccountRoutes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	post := env.createPost(t, "owner-1")
	env.createPost(t, "owner-2")
	owner := tokenFor(t, "owner-1", true)

	resp := env.do(t, http.MethodGet, "/api/users/me", nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[models.User](t, resp)
	assert.Equal(t, "owner-1@example.com", me.Email)
	assert.True(t, me.EmailVerified)

	resp = env.do(t, http.MethodGet, "/api/users/me/posts?q=simit", nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[postsPage](t, resp)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, post.ID, page.Posts[0].ID)

	resp = env.do(t, http.MethodDelete, "/api/users/me", nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{post.ID}, decode[map[string][]string](t, resp)["deleted_posts"])

	resp = env.do(t, http.MethodGet, "/api/posts/"+post.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	all, err := env.s.postRepo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLocationRoutes(t *testing.T) {
	t.Parallel()
	dir := new(MockLocationLister)
	dir.On("ListProvinces", mock.Anything).Return([]location.Node{{ID: 34, Name: "Istanbul", Level: location.LevelProvince}})
	dir.On("ListDistricts", mock.Anything, 34).Return([]location.Node{{ID: 1, Name: "Kadikoy", Level: location.LevelDistrict}})
	dir.On("ListNeighborhoods", mock.Anything, 1).Return([]location.Node{})

	env := newTestEnv(t, func(_ *config.Config, s *Server) { s.locations = dir })

	tests := []struct {
		path  string
		want  int
		count int
	}{
		{"/api/locations/provinces", http.StatusOK, 1},
		{"/api/locations/provinces/34/districts", http.StatusOK, 1},
		{"/api/locations/districts/1/neighborhoods", http.StatusOK, 0},
		{"/api/locations/provinces/abc/districts", http.StatusBadRequest, -1},
		{"/api/locations/districts/0/neighborhoods", http.StatusBadRequest, -1},
	}
	for _, tt := range tests {
		resp := env.do(t, http.MethodGet, tt.path, nil, "")
		require.Equal(t, tt.want, resp.StatusCode, tt.path)
		if tt.count >= 0 {
			nodes := decode[[]location.Node](t, resp)
			assert.NotNil(t, nodes, tt.path)
			assert.Len(t, nodes, tt.count, tt.path)
		}
	}
	dir.AssertNotCalled(t, "ListDistricts", mock.Anything, 0)
}

func TestLocationRoutes_UnreachableServiceIsEmpty(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/locations/provinces", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]location.Node](t, resp))
}

func TestCatalogWebSocket(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/ws/catalog", nil, "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/ws/catalog?token=garbage", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	off := newTestEnv(t, withFlags("live_catalog=off"))
	resp = off.do(t, http.MethodGet, "/api/ws/catalog", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerWithRedis(t *testing.T) {
	t.Parallel()
	mr, rdb := testutil.NewRedis(t)
	db := testutil.NewSQLiteDB(t)

	s, err := NewServerWithDeps(testConfig(), db, rdb)
	require.NoError(t, err)
	env := &testEnv{s: s, app: s.newApp(), db: db}

	resp := env.do(t, http.MethodGet, "/health/ready", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	checks := decode[map[string]interface{}](t, resp)["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["redis"])

	env.createPost(t, "owner-1")
	resp = env.do(t, http.MethodGet, "/api/posts", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, mr.Exists(cache.RecentPostsKey(10)), "recent window should be cached")

	env.createPost(t, "owner-1")
	assert.False(t, mr.Exists(cache.RecentPostsKey(10)), "a new post invalidates the recent window")

	resp = env.do(t, http.MethodGet, "/api/posts", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decode[postsPage](t, resp).Total)
}
