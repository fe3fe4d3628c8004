package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"ravencube/internal/auth"
	"ravencube/internal/config"
	"ravencube/internal/models"
	"ravencube/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret    = "test-secret-that-is-long-enough-for-hs256"
	testUserAgent = "Mozilla/5.0 (X11; Linux x86_64) ravencube-tests"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for unit tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Port:                 "0",
		Env:                  "test",
		JWTSecret:            testSecret,
		MediaDir:             t.TempDir(),
		ImageMaxUploadSizeMB: 5,
		ImageFolder:          "RavenCube/posts",
		ShieldMode:           "LIVE",
	}
}

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	images   *testutil.ImageStoreStub
	verifier *auth.JWTVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	images := testutil.NewImageStoreStub()
	s := NewServer(testConfig(t), db, nil, WithImageStore(images), WithoutMetrics())
	return &testEnv{
		app:      s.App(),
		db:       db,
		images:   images,
		verifier: auth.NewJWTVerifier(testSecret, "", ""),
	}
}

func (e *testEnv) token(t *testing.T, subject string) string {
	t.Helper()
	tok, err := e.verifier.Mint(auth.Identity{Subject: subject, Email: "someone@example.com"}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) tokenFor(t *testing.T, user *models.User) string {
	return e.token(t, user.AuthSubject)
}

// do sends a JSON request and returns the status and raw body.
func (e *testEnv) do(t *testing.T, method, target, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("User-Agent", testUserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func multipartPost(t *testing.T, target, token, content string, image []byte) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	require.NoError(t, w.WriteField("content", content))
	if image != nil {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="image"; filename="photo.png"`}
		h["Content-Type"] = []string{"image/png"}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("User-Agent", testUserAgent)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// --- humanizeParam (pure function, no HTTP) ---

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"postId", "post ID"},
		{"targetId", "target ID"},
		{"notificationItemId", "notification item ID"},
		{"username", "username"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

// --- parsePagination ---

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})
	app.Get("/all", func(c *fiber.Ctx) error {
		p := parsePagination(c, 0)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	tests := []struct {
		target string
		limit  float64
		offset float64
	}{
		{"/items", 25, 0},
		{"/items?limit=10&offset=30", 10, 30},
		{"/items?limit=500", 100, 0},
		{"/items?limit=-1&offset=-5", 25, 0},
		{"/items?limit=abc", 25, 0},
		{"/all", 0, 0},
		{"/all?limit=10", 10, 0},
		{"/all?limit=500", 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.limit, body["limit"])
			assert.Equal(t, tt.offset, body["offset"])
		})
	}
}

// --- parseID ---

func TestParseID_Invalid(t *testing.T) {
	app := fiber.New()
	app.Get("/posts/:postId", func(c *fiber.Ctx) error {
		id, err := parseID(c, "postId")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	for _, raw := range []string{"abc", "0", "-3"} {
		t.Run(raw, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/posts/"+raw, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "Invalid post ID", body.Error)
			assert.Equal(t, models.CodeValidation, body.Code)
		})
	}
}
