package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"hst-backend/internal/pkg/apperr"
	"hst-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func storeSession(t *testing.T, mr *miniredis.Miniredis, sid string, u SessionUser) {
	b, err := json.Marshal(map[string]interface{}{"user": u})
	require.NoError(t, err)
	require.NoError(t, mr.Set(DefaultSessionPrefix+sid, string(b)))
}

func protectedApp(rdb *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(Tracing())
	app.Use(Session(rdb, SessionConfig{}))
	app.Post("/void", RequireAuth(), AuthorizePermission(constants.VoidCertificates), func(c *fiber.Ctx) error {
		return c.SendString(Actor(c))
	})
	return app
}

func TestSessionAndPermissions(t *testing.T) {
	mr, rdb := newRedis(t)
	storeSession(t, mr, "admin-sid", SessionUser{UserID: "u-admin", Role: constants.Admin})
	storeSession(t, mr, "viewer-sid", SessionUser{UserID: "u-viewer", Role: constants.Viewer})
	app := protectedApp(rdb)

	cases := []struct {
		cookie string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"unknown", http.StatusUnauthorized},
		{"viewer-sid", http.StatusForbidden},
		{"s:admin-sid.signature", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/void", nil)
		if tc.cookie != "" {
			req.Header.Set("Cookie", DefaultSessionCookie+"="+tc.cookie)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, tc.cookie)
		if tc.want == http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, "u-admin", string(body))
		}
	}
}

func signCookie(id, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id))
	return "s%3A" + id + "." + base64.RawStdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSession_VerifiesSignatureWithSecret(t *testing.T) {
	mr, rdb := newRedis(t)
	storeSession(t, mr, "admin-sid", SessionUser{UserID: "u-admin", Role: constants.Admin})
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(Session(rdb, SessionConfig{Secret: "keyboard cat"}))
	app.Post("/void", RequireAuth(), AuthorizePermission(constants.VoidCertificates), func(c *fiber.Ctx) error {
		return c.SendString(Actor(c))
	})

	cases := []struct {
		cookie string
		want   int
	}{
		{signCookie("admin-sid", "keyboard cat"), http.StatusOK},
		{signCookie("admin-sid", "other secret"), http.StatusUnauthorized},
		{"s:admin-sid.signature", http.StatusUnauthorized},
		{"admin-sid", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/void", nil)
		req.Header.Set("Cookie", DefaultSessionCookie+"="+tc.cookie)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, tc.cookie)
	}
}

func TestSession_RedisDownIsAnonymous(t *testing.T) {
	mr, rdb := newRedis(t)
	storeSession(t, mr, "admin-sid", SessionUser{UserID: "u-admin", Role: constants.Admin})
	mr.Close()

	req := httptest.NewRequest(http.MethodPost, "/void", nil)
	req.Header.Set("Cookie", DefaultSessionCookie+"=admin-sid")
	resp, err := protectedApp(rdb).Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestErrorHandler_MapsDomainErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/busy", func(c *fiber.Ctx) error {
		return apperr.New(apperr.KindLockTimeout, "Certificate counter is busy, please retry")
	})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("pq: connection reset") })
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/busy", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	errObj := body["error"].(map[string]interface{})
	assert.Equal(t, true, errObj["details"].(map[string]interface{})["retryable"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(raw), "connection reset")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestTracing_PropagatesValidIDs(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetTraceID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-Id", "3f1c3f6e-2a51-4c1e-9d1b-1f2b3c4d5e6f")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "3f1c3f6e-2a51-4c1e-9d1b-1f2b3c4d5e6f", resp.Header.Get("X-Trace-Id"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-Id", "<script>")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, "<script>", resp.Header.Get("X-Trace-Id"))
	assert.Len(t, resp.Header.Get("X-Trace-Id"), 36)
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".helpinghands.org", DevPassword: "pw"}))
	app.Post("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	check := func(origin, devPw, method string, want int) {
		req := httptest.NewRequest(method, "/", nil)
		req.Header.Set("Origin", origin)
		if devPw != "" {
			req.Header.Set("dev-password", devPw)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, origin)
	}
	check("https://admin.helpinghands.org", "", http.MethodPost, http.StatusOK)
	check("https://evil.example", "", http.MethodPost, http.StatusForbidden)
	check("https://evil.example", "pw", http.MethodPost, http.StatusOK)
	check("http://localhost:5173", "", http.MethodOptions, http.StatusNoContent)
}

func TestHealthMarker_CountsRequestsAndErrors(t *testing.T) {
	mr, rdb := newRedis(t)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(HealthMarker(rdb))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/fail", func(c *fiber.Ctx) error { return errors.New("db gone") })
	app.Get("/health/json", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for _, p := range []string{"/ok", "/fail", "/health/json"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, p, nil))
		require.NoError(t, err)
	}

	total, err := rdb.Get(context.Background(), KeyReqTotal).Int()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	errs, err := rdb.Get(context.Background(), KeyReqErrors).Int()
	require.NoError(t, err)
	assert.Equal(t, 1, errs)
	logLen, err := mr.List(KeyErrorLog)
	require.NoError(t, err)
	assert.Len(t, logLen, 1)
}
