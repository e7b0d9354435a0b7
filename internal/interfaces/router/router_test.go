package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hst-backend/internal/config"
	"hst-backend/internal/infrastructure/artifacts"
	"hst-backend/internal/infrastructure/renderer"
	"hst-backend/internal/middleware"
	"hst-backend/internal/pkg/constants"
	"hst-backend/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pdfRenderer struct{}

func (pdfRenderer) Render(_ context.Context, p renderer.Payload) ([]byte, error) {
	return []byte("%PDF " + p.CertificateNo), nil
}

type testApp struct {
	app *fiber.App
	mr  *miniredis.Miniredis
}

func setupApp(t *testing.T) *testApp {
	db := testutil.OpenDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		CertificatePrefix: "HST-80G",
		MinDonationAmount: 100,
		RenderConcurrency: 2,
		RenderTimeout:     time.Second,
		HealthAdminKey:    "k",
		Org:               config.OrgDefaults{Name: "Helping Hands Seva Trust"},
	}
	svcs, err := BuildServices(context.Background(), cfg, db, rdb, Options{
		Renderer:  pdfRenderer{},
		Artifacts: &artifacts.FileStore{Fs: afero.NewMemMapFs(), Dir: "/certs"},
	})
	require.NoError(t, err)
	t.Cleanup(svcs.Close)

	b, _ := json.Marshal(map[string]interface{}{"user": middleware.SessionUser{UserID: "staff-1", Role: constants.Admin}})
	require.NoError(t, mr.Set(middleware.DefaultSessionPrefix+"admin", string(b)))
	b, _ = json.Marshal(map[string]interface{}{"user": middleware.SessionUser{UserID: "viewer-1", Role: constants.Viewer}})
	require.NoError(t, mr.Set(middleware.DefaultSessionPrefix+"viewer", string(b)))

	return &testApp{app: NewApp(cfg, svcs), mr: mr}
}

func (a *testApp) do(t *testing.T, method, path, session string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("Cookie", middleware.DefaultSessionCookie+"="+session)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]interface{}
	if resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func dataField(out map[string]interface{}, path ...string) interface{} {
	var cur interface{} = out["data"]
	for _, p := range path {
		cur = cur.(map[string]interface{})[p]
	}
	return cur
}

func TestDonationToCertificateFlow(t *testing.T) {
	a := setupApp(t)

	submission := map[string]interface{}{
		"donor":        map[string]interface{}{"name": "Meera Nair", "email": "meera@example.org"},
		"amount":       1500,
		"payment_mode": "upi",
		"donated_at":   "2025-04-02T10:00:00Z",
	}
	resp, out := a.do(t, http.MethodPost, "/api/v1/donations/submit", "", submission)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	donationID := dataField(out, "donation", "donation_id").(string)
	assert.Equal(t, "PENDING", dataField(out, "donation", "status"))

	resp, _ = a.do(t, http.MethodPost, "/api/v1/certificates/issue", "", map[string]interface{}{"donation_id": donationID})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = a.do(t, http.MethodPost, "/api/v1/certificates/issue", "viewer", map[string]interface{}{"donation_id": donationID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, out = a.do(t, http.MethodPost, "/api/v1/certificates/issue", "admin", map[string]interface{}{"donation_id": donationID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, out)

	resp, _ = a.do(t, http.MethodPatch, "/api/v1/donations/"+donationID+"/status", "admin", map[string]interface{}{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out = a.do(t, http.MethodPost, "/api/v1/certificates/issue", "admin", map[string]interface{}{"donation_id": donationID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "HST-80G-2025-0001", dataField(out, "certificate_no"))
	certID := dataField(out, "certificate_id").(string)

	resp, out = a.do(t, http.MethodPost, "/api/v1/certificates/issue", "admin", map[string]interface{}{"donation_id": donationID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, out)

	resp, _ = a.do(t, http.MethodPost, "/api/v1/certificates/"+certID+"/void", "admin", map[string]interface{}{"reason": "wrong donor name"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = a.do(t, http.MethodPost, "/api/v1/certificates/"+certID+"/void", "admin", map[string]interface{}{"reason": "again"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, out = a.do(t, http.MethodGet, "/api/v1/certificates?year=2025", "viewer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["data"], 1)

	resp, out = a.do(t, http.MethodGet, "/api/v1/certificates/counters", "viewer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["data"], 1)
}

func TestDirectCertificateAndPreview(t *testing.T) {
	a := setupApp(t)

	resp, out := a.do(t, http.MethodPost, "/api/v1/donations/direct-certificate", "admin", map[string]interface{}{
		"donor":        map[string]interface{}{"name": "Ravi Kumar", "phone": "+91 99000 11111"},
		"amount":       99,
		"payment_mode": "cash",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, out)

	resp, out = a.do(t, http.MethodPost, "/api/v1/donations/direct-certificate", "admin", map[string]interface{}{
		"donor":        map[string]interface{}{"name": "Ravi Kumar", "phone": "+91 99000 11111"},
		"amount":       100,
		"payment_mode": "cash",
		"donated_at":   "2024-11-20T00:00:00Z",
		"orientation":  "landscape",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, out)
	assert.Equal(t, "HST-80G-2024-0001", dataField(out, "certificate", "certificate_no"))

	resp, _ = a.do(t, http.MethodPost, "/api/v1/certificates/preview", "viewer", map[string]interface{}{
		"donor":    map[string]interface{}{"name": "Someone New"},
		"donation": map[string]interface{}{"amount": 500, "payment_mode": "cash", "donated_at": "2025-01-05"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	doc, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "%PDF HST-80G-2025-PREVIEW", string(doc))

	resp, out = a.do(t, http.MethodGet, "/api/v1/certificates/counters", "viewer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["data"], 1)
}

func TestSettingsAndMetrics(t *testing.T) {
	a := setupApp(t)

	resp, _ := a.do(t, http.MethodPut, "/api/v1/settings", "viewer", map[string]interface{}{"certificate_prefix": "HHT"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, out := a.do(t, http.MethodPut, "/api/v1/settings", "admin", map[string]interface{}{"certificate_prefix": "HHT"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "HHT", dataField(out, "certificate_prefix"))

	resp, _ = a.do(t, http.MethodPost, "/api/v1/donations/direct-certificate", "admin", map[string]interface{}{
		"donor": map[string]interface{}{"name": "Anil"}, "amount": 250, "payment_mode": "cash",
		"donated_at": "2025-02-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mresp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(mresp.Body)
	assert.Contains(t, string(body), `hst_certificates_issued_total{year="2025"} 1`)
	assert.Contains(t, string(body), `hst_donations_submitted_total{path="direct"} 1`)
}
