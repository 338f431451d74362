package server

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"whereismypet/internal/config"
	"whereismypet/internal/location"
	"whereismypet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		mutate         func(map[string]interface{})
		token          bool
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Success",
			mutate:         func(map[string]interface{}) {},
			token:          true,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing Title",
			mutate:         func(b map[string]interface{}) { b["title"] = "" },
			token:          true,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "title is required",
		},
		{
			name: "Partial Location",
			mutate: func(b map[string]interface{}) {
				b["location"] = map[string]string{"city": "Istanbul"}
			},
			token:          true,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "location.district is required",
		},
		{
			name:           "Anonymous",
			mutate:         func(map[string]interface{}) {},
			token:          false,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)

			body := validPostBody()
			tt.mutate(body)
			token := ""
			if tt.token {
				token = tokenFor(t, "owner-1", true)
			}

			resp := env.do(t, http.MethodPost, "/api/posts", body, token)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedError != "" {
				errResp := decode[models.ErrorResponse](t, resp)
				assert.Equal(t, tt.expectedError, errResp.Error)
				assert.Equal(t, models.CodeValidation, errResp.Code)
			}
			if tt.expectedStatus != http.StatusCreated {
				all, err := env.s.postRepo.ListAll(context.Background())
				require.NoError(t, err)
				assert.Empty(t, all, "nothing may be persisted on failure")
			}
		})
	}
}

func TestCreateThenGetPost(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	created := env.createPost(t, "owner-1")
	assert.Equal(t, models.StatusActive, created.Status)
	assert.Equal(t, int64(0), created.ViewCount)
	assert.Equal(t, "owner-1@example.com", created.OwnerEmail)

	resp := env.do(t, http.MethodGet, "/api/posts/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.Post](t, resp)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Location, got.Location)

	resp = env.do(t, http.MethodGet, "/api/posts/does-not-exist", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreatePost_RequiresVerifiedEmailWhenFlagged(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, withFlags("strict_location=on,require_verified_email=on"))

	resp := env.do(t, http.MethodPost, "/api/posts", validPostBody(), tokenFor(t, "owner-1", false))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/posts", validPostBody(), tokenFor(t, "owner-1", true))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func multipartPost(t *testing.T, files map[string]string, overrides ...map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"title":        "Found beagle",
		"description":  "Friendly beagle found near the ferry.",
		"city":         "Izmir",
		"district":     "Konak",
		"neighborhood": "Alsancak",
		"street":       "Kibris Sehitleri Cd.",
		"pet_type":     "dog",
	}
	for _, o := range overrides {
		for k, v := range o {
			fields[k] = v
		}
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("not really an image"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCreatePost_MultipartUploadsBothImages(t *testing.T) {
	t.Parallel()
	uploader := new(MockImageUploader)
	uploader.On("Upload", mock.Anything, "dog.jpg").Return("https://img.example.com/dog.webp", nil).Once()
	uploader.On("Upload", mock.Anything, "passport.png").Return("https://img.example.com/passport.webp", nil).Once()

	env := newTestEnv(t, func(_ *config.Config, s *Server) { s.uploader = uploader })

	body, contentType := multipartPost(t, map[string]string{"image": "dog.jpg", "passport_image": "passport.png"})
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "owner-1", true))

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	post := decode[models.Post](t, resp)
	assert.Equal(t, "https://img.example.com/dog.webp", post.ImageURL)
	assert.Equal(t, "https://img.example.com/passport.webp", post.PassportImageURL)
	assert.Equal(t, "Konak", post.Location.District)
	uploader.AssertExpectations(t)
}

func TestCreatePost_UploadFailureAbortsCreation(t *testing.T) {
	t.Parallel()
	uploader := new(MockImageUploader)
	uploader.On("Upload", mock.Anything, "dog.jpg").
		Return("", models.NewUploadError(errors.New("host unavailable")))

	env := newTestEnv(t, func(_ *config.Config, s *Server) { s.uploader = uploader })

	body, contentType := multipartPost(t, map[string]string{"image": "dog.jpg", "passport_image": "passport.png"})
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "owner-1", true))

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, models.CodeUpstream, decode[models.ErrorResponse](t, resp).Code)

	all, err := env.s.postRepo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	uploader.AssertNotCalled(t, "Upload", mock.Anything, "passport.png")
}

func TestCreatePost_MultipartRejectsBadFormBeforeUpload(t *testing.T) {
	t.Parallel()
	uploader := new(MockImageUploader)
	env := newTestEnv(t, func(_ *config.Config, s *Server) { s.uploader = uploader })

	tests := []struct {
		name      string
		overrides map[string]string
		wantError string
	}{
		{"blank title", map[string]string{"title": " "}, "title is required"},
		{"missing neighborhood", map[string]string{"neighborhood": ""}, "location.neighborhood is required"},
		{"bad location id", map[string]string{"province_id": "x"}, "Invalid province_id"},
	}
	for _, tt := range tests {
		body, contentType := multipartPost(t, map[string]string{"image": "dog.jpg", "passport_image": "passport.png"}, tt.overrides)
		req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, "owner-1", true))

		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tt.name)
		assert.Equal(t, tt.wantError, decode[models.ErrorResponse](t, resp).Error, tt.name)
		_ = resp.Body.Close()
	}

	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestCreatePost_ResolvesLocationIDs(t *testing.T) {
	t.Parallel()
	dir := new(MockLocationLister)
	dir.On("ListProvinces", mock.Anything).Return([]location.Node{{ID: 34, Name: "Istanbul", Level: location.LevelProvince}})
	dir.On("ListDistricts", mock.Anything, 34).Return([]location.Node{{ID: 1421, Name: "Kadikoy", Level: location.LevelDistrict}})
	dir.On("ListNeighborhoods", mock.Anything, 1421).Return([]location.Node{{ID: 40001, Name: "Moda", Level: location.LevelNeighborhood}})
	env := newTestEnv(t, func(_ *config.Config, s *Server) { s.locations = dir })
	owner := tokenFor(t, "owner-1", true)

	body := validPostBody()
	body["location"] = map[string]string{"street": "Bahariye Cd. 5"}
	body["province_id"] = 34
	body["district_id"] = 1421
	body["neighborhood_id"] = 40001

	resp := env.do(t, http.MethodPost, "/api/posts", body, owner)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[models.Post](t, resp)
	assert.Equal(t, models.Location{City: "Istanbul", District: "Kadikoy", Neighborhood: "Moda", Street: "Bahariye Cd. 5"}, post.Location)

	body["district_id"] = 9999
	resp = env.do(t, http.MethodPost, "/api/posts", body, owner)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown district 9999", decode[models.ErrorResponse](t, resp).Error)

	all, err := env.s.postRepo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListPosts_FiltersAndEnvelope(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/posts", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decode[postsPage](t, resp)
	assert.NotNil(t, empty.Posts)
	assert.Equal(t, 0, empty.Total)

	env.createPost(t, "owner-1")
	other := validPostBody()
	other["title"] = "Found parrot"
	other["description"] = "Green parrot on a balcony"
	other["location"] = map[string]string{"city": "Ankara", "district": "Cankaya", "neighborhood": "Kizilay", "street": "Ataturk Blv."}
	resp = env.do(t, http.MethodPost, "/api/posts", other, tokenFor(t, "owner-2", true))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	tests := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"?q=PARROT", 1},
		{"?city=Istanbul", 1},
		{"?city=Ankara&district=Kadikoy", 0},
		{"?sort=oldest", 2},
	}
	for _, tt := range tests {
		resp := env.do(t, http.MethodGet, "/api/posts"+tt.query, nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		page := decode[postsPage](t, resp)
		assert.Equal(t, tt.want, page.Total, tt.query)
		assert.Len(t, page.Posts, tt.want, tt.query)
	}
}

func TestListPosts_StoreErrorHidesCause(t *testing.T) {
	t.Parallel()
	repo := new(MockPostRepository)
	repo.On("ListRecent", mock.Anything, 10).Return(nil, models.NewStoreError(errors.New("connection reset")))

	env := newTestEnv(t, func(_ *config.Config, s *Server) { s.postRepo = repo })

	resp := env.do(t, http.MethodGet, "/api/posts", nil, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	errResp := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, models.CodeStore, errResp.Code)
	assert.Empty(t, errResp.Details)
	repo.AssertExpectations(t)
}

func TestUpdatePost(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	post := env.createPost(t, "owner-1")

	resp := env.do(t, http.MethodPut, "/api/posts/"+post.ID,
		map[string]interface{}{"title": "Hijacked"}, tokenFor(t, "stranger", true))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/posts/"+post.ID,
		map[string]interface{}{"title": "Still missing: Simit", "status": "found"}, tokenFor(t, "owner-1", true))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[models.Post](t, resp)
	assert.Equal(t, "Still missing: Simit", updated.Title)
	assert.Equal(t, post.Description, updated.Description)
	assert.Equal(t, models.StatusActive, updated.Status, "update never touches status")
}

func TestSetPostStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.makeAdmin(t, "admin-1")
	post := env.createPost(t, "owner-1")
	path := "/api/posts/" + post.ID + "/status"

	steps := []struct {
		name   string
		path   string
		user   string
		status string
		want   int
	}{
		{"stranger cannot mark found", path, "stranger", "found", http.StatusForbidden},
		{"unknown status", path, "owner-1", "lost", http.StatusBadRequest},
		{"owner marks found", path, "owner-1", "found", http.StatusOK},
		{"owner marks found again", path, "owner-1", "found", http.StatusOK},
		{"owner cannot reopen", path, "owner-1", "active", http.StatusBadRequest},
		{"non-admin cannot use admin route", "/api/admin/posts/" + post.ID + "/status", "owner-1", "active", http.StatusForbidden},
		{"admin reopens", "/api/admin/posts/" + post.ID + "/status", "admin-1", "active", http.StatusOK},
		{"admin cannot resolve someone else's post", "/api/admin/posts/" + post.ID + "/status", "admin-1", "found", http.StatusForbidden},
	}
	for _, step := range steps {
		resp := env.do(t, http.MethodPost, step.path, map[string]string{"status": step.status}, tokenFor(t, step.user, true))
		assert.Equal(t, step.want, resp.StatusCode, step.name)
	}

	got, err := env.s.postRepo.GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
}

func TestDeletePost(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.makeAdmin(t, "admin-1")
	first := env.createPost(t, "owner-1")
	second := env.createPost(t, "owner-1")

	resp := env.do(t, http.MethodDelete, "/api/posts/"+first.ID, nil, tokenFor(t, "stranger", true))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/posts/"+first.ID, nil, tokenFor(t, "owner-1", true))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/posts/"+first.ID, nil, tokenFor(t, "owner-1", true))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/admin/posts/"+second.ID, nil, tokenFor(t, "admin-1", true))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/posts/"+second.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestViews(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.s.views.Start()
	t.Cleanup(func() { _ = env.s.views.Stop(context.Background()) })

	post := env.createPost(t, "owner-1")

	// One visit: the list click-through records the view, then the detail
	// page and the owner's edit screen read the post.
	resp := env.do(t, http.MethodPost, "/api/posts/"+post.ID+"/view", nil, "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	for i := 0; i < 2; i++ {
		resp = env.do(t, http.MethodGet, "/api/posts/"+post.ID, nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	env.s.views.Flush()
	got, err := env.s.postRepo.GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ViewCount)

	resp = env.do(t, http.MethodPost, "/api/posts/"+post.ID+"/view", nil, "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	env.s.views.Flush()
	got, err = env.s.postRepo.GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ViewCount)
}

func TestUploadImage(t *testing.T) {
	t.Parallel()
	uploader := new(MockImageUploader)
	uploader.On("Upload", mock.Anything, "cat.png").Return("https://img.example.com/cat.webp", nil)
	env := newTestEnv(t, func(_ *config.Config, s *Server) { s.uploader = uploader })

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "cat.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png bytes"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads/images", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "owner-1", true))
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "https://img.example.com/cat.webp", decode[map[string]string](t, resp)["url"])

	resp = env.do(t, http.MethodPost, "/api/uploads/images", nil, tokenFor(t, "owner-1", true))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
