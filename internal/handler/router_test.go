package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/catalog/catalog-go/internal/cache"
	"github.com/catalog/catalog-go/internal/crypto"
	"github.com/catalog/catalog-go/internal/metrics"
	"github.com/catalog/catalog-go/internal/repository/memstore"
	"github.com/catalog/catalog-go/internal/service"
)

func init() {
	crypto.HashCost = bcrypt.MinCost
}

type testServer struct {
	handler http.Handler
	codec   *crypto.TokenCodec
	redis   *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.DiscardHandler)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	codec, err := crypto.NewTokenCodec("test-secret", "HS256", time.Hour)
	require.NoError(t, err)

	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lookup := cache.NewLookup(cache.NewRedisStoreFromClient(client), time.Second, collector, logger)

	store := memstore.New()
	auth := service.NewAuthService(store.Users(), codec, nil, collector, logger)

	handler := NewRouter(ctx, RouterConfig{
		Auth:               auth,
		Users:              service.NewUserService(store.Users()),
		Products:           service.NewProductService(store.Products(), store.Users(), lookup),
		Logger:             logger,
		Metrics:            collector,
		Gatherer:           reg,
		AuthRateLimitRPS:   100,
		AuthRateLimitBurst: 100,
	})

	return &testServer{handler: handler, codec: codec, redis: m}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) registerAnn(t *testing.T) map[string]any {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/register", `{"name":"Ann","email":"ann@x.com","password":"pw1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](t, w)
}

func (s *testServer) annToken(t *testing.T) string {
	t.Helper()
	w := s.login(t, "ann@x.com", "pw1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[map[string]string](t, w)["access_token"]
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = s.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["message"], "Welcome")
}

func TestRouter_RegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	user := s.registerAnn(t)
	assert.Equal(t, "ann@x.com", user["email"])
	assert.NotContains(t, user, "hashed_password")

	w := s.login(t, "ann@x.com", "pw1")
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[map[string]string](t, w)
	assert.NotEmpty(t, token["access_token"])
	assert.Equal(t, "bearer", token["token_type"])
}

func TestRouter_LoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.registerAnn(t)

	w := s.login(t, "ann@x.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "Incorrect email or password", decode[map[string]string](t, w)["detail"])
}

func TestRouter_RegisterDuplicateAndInvalid(t *testing.T) {
	s := newTestServer(t)
	s.registerAnn(t)

	w := s.do(t, http.MethodPost, "/auth/register", `{"name":"Ann","email":"ann@x.com","password":"pw1"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/auth/register", `{"name":"Bob","email":"not-an-email","password":"pw1"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodPost, "/auth/register", `{"name":`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_RegisterPasswordOver72Bytes(t *testing.T) {
	s := newTestServer(t)

	body := `{"name":"Bob","email":"bob@x.com","password":"` + strings.Repeat("a", 80) + `"}`
	w := s.do(t, http.MethodPost, "/auth/register", body, "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["detail"], "72 bytes")
}

func TestRouter_Me(t *testing.T) {
	s := newTestServer(t)
	s.registerAnn(t)

	w := s.do(t, http.MethodGet, "/auth/me", "", s.annToken(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ann", decode[map[string]any](t, w)["name"])

	w = s.do(t, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_ListWithCreators(t *testing.T) {
	s := newTestServer(t)
	ann := s.registerAnn(t)
	token := s.annToken(t)

	body := `{"name":"Widget","description":"steel","price":9.5,"category":"tools","creator_id":"` + ann["id"].(string) + `"}`
	w := s.do(t, http.MethodPost, "/products", body, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/products/withUsers", "", token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	listing := decode[[]map[string]any](t, w)
	require.Len(t, listing, 1)
	assert.Equal(t, "Widget", listing[0]["name"])
	creator := listing[0]["creator"].(map[string]any)
	assert.Equal(t, "ann@x.com", creator["email"])
	assert.NotContains(t, creator, "hashed_password")

	assert.True(t, s.redis.Exists(service.ListingCacheKey))
}

func TestRouter_ListWithCreatorsRequiresToken(t *testing.T) {
	s := newTestServer(t)
	s.registerAnn(t)

	w := s.do(t, http.MethodGet, "/products/withUsers", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, s.redis.Exists(service.ListingCacheKey))
}

func TestRouter_ExpiredAndForeignTokensLookAlike(t *testing.T) {
	s := newTestServer(t)
	s.registerAnn(t)

	expired, err := s.codec.EncodeWithExpiry("ann@x.com", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	foreign, err := crypto.NewTokenCodec("other-secret", "HS256", time.Hour)
	require.NoError(t, err)
	wrongKey, err := foreign.Encode("ann@x.com")
	require.NoError(t, err)

	expiredResp := s.do(t, http.MethodGet, "/products/withUsers", "", expired)
	wrongKeyResp := s.do(t, http.MethodGet, "/products/withUsers", "", wrongKey)

	assert.Equal(t, http.StatusUnauthorized, expiredResp.Code)
	assert.Equal(t, expiredResp.Code, wrongKeyResp.Code)
	assert.Equal(t, expiredResp.Body.String(), wrongKeyResp.Body.String())
	assert.Equal(t, expiredResp.Header().Get("WWW-Authenticate"), wrongKeyResp.Header().Get("WWW-Authenticate"))
}

func TestRouter_ProductLifecycle(t *testing.T) {
	s := newTestServer(t)
	ann := s.registerAnn(t)
	creatorID := ann["id"].(string)

	w := s.do(t, http.MethodPost, "/products", `{"name":"Widget","price":0,"category":"tools","creator_id":"`+creatorID+`"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodPost, "/products", `{"name":"Widget","price":1,"category":"tools","creator_id":"6f1b1c1e-0000-4000-8000-000000000000"}`, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/products", `{"name":"Widget","price":1,"category":"tools","creator_id":"`+creatorID+`"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]any](t, w)["id"].(string)

	w = s.do(t, http.MethodPut, "/products/"+id, `{"name":"Gadget","price":2,"category":"tools","creator_id":"`+creatorID+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Gadget", decode[map[string]any](t, w)["name"])

	w = s.do(t, http.MethodGet, "/products", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = s.do(t, http.MethodDelete, "/products/"+id, "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/products/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/products/not-an-id", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_UserLifecycle(t *testing.T) {
	s := newTestServer(t)
	ann := s.registerAnn(t)
	id := ann["id"].(string)

	w := s.do(t, http.MethodGet, "/users", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = s.do(t, http.MethodPut, "/users/"+id, `{"name":"Annie","email":"ann@x.com"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Annie", decode[map[string]any](t, w)["name"])

	w = s.do(t, http.MethodGet, "/users/not-an-id", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, "/users/"+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User deleted", decode[map[string]string](t, w)["message"])

	w = s.do(t, http.MethodGet, "/users/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Metrics(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/products/withUsers", "", "garbage")

	w := s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `catalog_auth_failures_total{reason="invalid"} 1`)
	assert.Contains(t, w.Body.String(), `catalog_http_responses_total{status_code="401"} 1`)
}
