package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/royalty/internal/catalog"
	"github.com/JonMunkholm/royalty/internal/config"
	"github.com/JonMunkholm/royalty/internal/core"
	"github.com/JonMunkholm/royalty/internal/entitlement"
	"github.com/JonMunkholm/royalty/internal/metrics"
	"github.com/JonMunkholm/royalty/internal/store"
	"github.com/JonMunkholm/royalty/internal/web/middleware"
)

const (
	testSecret = "test-secret-key-for-royalty-server-0123456789"
	testTenant = "client-1"
)

type testEnv struct {
	server *Server
	store  *store.Memory
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Import:   config.ImportConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second, Workers: 1, Timeout: time.Minute},
		Export:   config.ExportConfig{Workers: 2},
		Security: config.SecurityConfig{JWTSecret: testSecret},
	}
	for _, m := range mutate {
		m(cfg)
	}

	mem := store.NewMemory()
	require.NoError(t, mem.Save(context.Background(), &catalog.Client{ID: testTenant, Name: "Label"}))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := core.NewService(mem, m, core.Options{BatchWorkers: cfg.Import.Workers, FlattenWorkers: cfg.Export.Workers})

	return &testEnv{server: NewServer(svc, cfg, m, reg), store: mem}
}

func token(t *testing.T, p entitlement.Principal) string {
	t.Helper()
	tok, err := middleware.SignPrincipal(testSecret, p, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, req *http.Request, p *entitlement.Principal) *httptest.ResponseRecorder {
	t.Helper()
	if p != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, *p))
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func importRequest(t *testing.T, kind string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/"+kind, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func withTenant(req *http.Request, tenant string) *http.Request {
	req.URL.RawQuery = "tenant=" + tenant
	return req
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "royalty_http_requests_total")
}

func TestImportExport(t *testing.T) {
	env := newTestEnv(t)
	member := &entitlement.Principal{TenantID: testTenant}

	rec := env.do(t, importRequest(t, "payees", map[string]string{
		"file": "name,vatNo\nAcme,GB001\n,\nBeta,GB002\n",
	}), member)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result core.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Succeeded, 2)
	assert.Equal(t, 2, env.store.Len(catalog.KindPayee))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/export/payee", nil), member)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,name,address"))
}

func TestImportContractWithTerms(t *testing.T) {
	env := newTestEnv(t)
	member := &entitlement.Principal{TenantID: testTenant}

	rec := env.do(t, importRequest(t, "contract", map[string]string{
		"file":        "name,type\nDeal A,royalty\n",
		"terms_sales": "contractName,territory,rate\nDeal A,WW,0.25\n",
	}), member)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/export/contract/terms/sales", nil), member)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Deal A,,,,WW,0.25,")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/export/contract/terms/bonus", nil), member)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImport_Errors(t *testing.T) {
	env := newTestEnv(t)
	member := &entitlement.Principal{TenantID: testTenant}

	tests := []struct {
		name     string
		req      *http.Request
		p        *entitlement.Principal
		wantCode int
		wantErr  string
	}{
		{
			name:     "no token",
			req:      importRequest(t, "payee", map[string]string{"file": "vatNo\nx\n"}),
			wantCode: http.StatusUnauthorized,
			wantErr:  "AUTH002",
		},
		{
			name:     "other tenant",
			req:      withTenant(importRequest(t, "payee", map[string]string{"file": "vatNo\nx\n"}), testTenant),
			p:        &entitlement.Principal{TenantID: "client-2", ParentID: "p"},
			wantCode: http.StatusForbidden,
			wantErr:  "AUTH001",
		},
		{
			name:     "unknown kind",
			req:      importRequest(t, "invoice", map[string]string{"file": "vatNo\nx\n"}),
			p:        member,
			wantCode: http.StatusBadRequest,
			wantErr:  "VAL005",
		},
		{
			name:     "export-only kind",
			req:      importRequest(t, "cost", map[string]string{"file": "description\nx\n"}),
			p:        member,
			wantCode: http.StatusBadRequest,
			wantErr:  "VAL005",
		},
		{
			name:     "no file",
			req:      importRequest(t, "payee", map[string]string{}),
			p:        member,
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE004",
		},
		{
			name:     "no header",
			req:      importRequest(t, "payee", map[string]string{"file": "a,b\n1,2\n"}),
			p:        member,
			wantCode: http.StatusBadRequest,
			wantErr:  "VAL006",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.req, tt.p)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Code)
		})
	}
}

func TestGetEntity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w := &catalog.Work{ID: catalog.NewID(), ClientID: testTenant, Identifier: "T-1", Title: "Song"}
	require.NoError(t, env.store.Save(ctx, w))

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/entities/work/"+w.ID, nil), &entitlement.Principal{TenantID: testTenant})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Song"`)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/entities/work/"+w.ID, nil), &entitlement.Principal{TenantID: "client-2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/entities/work/"+catalog.NewID(), nil), &entitlement.Principal{TenantID: testTenant})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLayoutsAndTemplate(t *testing.T) {
	env := newTestEnv(t)
	p := &entitlement.Principal{TenantID: testTenant}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/layouts", nil), p)
	require.Equal(t, http.StatusOK, rec.Code)
	var layouts []LayoutInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layouts))
	assert.Len(t, layouts, 7)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/template/works", nil), p)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "id,identifier,title,composer,publisher,aliases,salesReturnsRights,costsRights\n", rec.Body.String())
}

func TestAPIKeyRequired(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"k1"}
	})
	p := &entitlement.Principal{TenantID: testTenant}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/layouts", nil), p)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/layouts", nil)
	req.Header.Set("X-API-Key", "k1")
	rec = env.do(t, req, p)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ImportLimit: 1}
	})

	for i := 0; i < 2; i++ {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("1.2.3.4"))
	assert.False(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("5.6.7.8"))

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.allow("1.2.3.4"))
}
