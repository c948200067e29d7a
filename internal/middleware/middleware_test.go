package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/conference-timetable/internal/access"
	"github.com/iliyamo/conference-timetable/internal/config"
	"github.com/iliyamo/conference-timetable/internal/model"
	"github.com/iliyamo/conference-timetable/internal/timetable"
	"github.com/iliyamo/conference-timetable/internal/utils"
)

const secret = "test-secret"

func token(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, role, 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	return tok.Token
}

// serve runs a request through mw and returns the recorder and the viewer
// the final handler saw.
func serve(t *testing.T, method, auth string, mws ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, access.Viewer) {
	t.Helper()
	e := echo.New()
	var seen access.Viewer
	h := func(c echo.Context) error {
		seen = ViewerFrom(c)
		return c.String(http.StatusOK, "ok")
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	req := httptest.NewRequest(method, "/", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec, seen
}

func TestJWTAuth(t *testing.T) {
	tests := []struct {
		name   string
		auth   string
		status int
		want   access.Viewer
	}{
		{"valid", "Bearer " + token(t, 7, utils.RoleManager), http.StatusOK, access.Viewer{UserID: 7, Role: utils.RoleManager}},
		{"missing", "", http.StatusUnauthorized, access.Viewer{}},
		{"not bearer", "Basic abc", http.StatusUnauthorized, access.Viewer{}},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, access.Viewer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, v := serve(t, http.MethodGet, tt.auth, JWTAuth(secret))
			if rec.Code != tt.status || v != tt.want {
				t.Fatalf("status = %d viewer = %+v, want %d %+v", rec.Code, v, tt.status, tt.want)
			}
		})
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	other, err := utils.NewAccessToken("other", 7, utils.RoleAdmin, 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	rec, _ := serve(t, http.MethodGet, "Bearer "+other.Token, JWTAuth(secret))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestOptionalJWT(t *testing.T) {
	rec, v := serve(t, http.MethodGet, "", OptionalJWT(secret))
	if rec.Code != http.StatusOK || !v.IsGuest() {
		t.Fatalf("guest: status = %d viewer = %+v", rec.Code, v)
	}
	rec, v = serve(t, http.MethodGet, "Bearer "+token(t, 3, utils.RoleViewer), OptionalJWT(secret))
	if rec.Code != http.StatusOK || v.UserID != 3 {
		t.Fatalf("user: status = %d viewer = %+v", rec.Code, v)
	}
	rec, _ = serve(t, http.MethodGet, "Bearer nope", OptionalJWT(secret))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token: status = %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	guard := RequireRole(utils.RoleManager, utils.RoleAdmin)
	rec, _ := serve(t, http.MethodPost, "Bearer "+token(t, 3, utils.RoleViewer), JWTAuth(secret), guard)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("viewer: status = %d, want 403", rec.Code)
	}
	rec, _ = serve(t, http.MethodPost, "Bearer "+token(t, 3, utils.RoleAdmin), JWTAuth(secret), guard)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: status = %d, want 200", rec.Code)
	}
}

func TestSubject(t *testing.T) {
	tests := []struct {
		in   any
		want uint64
		ok   bool
	}{
		{float64(12), 12, true},
		{"12", 12, true},
		{float64(0), 0, false},
		{float64(1.5), 0, false},
		{"x", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := subject(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("subject(%v) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDisabledRedisMiddlewaresPassThrough(t *testing.T) {
	cache := NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)
	limit := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil)
	for i := 0; i < 3; i++ {
		rec, _ := serve(t, http.MethodGet, "", cache, limit)
		if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
			t.Fatalf("status = %d X-Cache = %q", rec.Code, rec.Header().Get("X-Cache"))
		}
	}
	if NewCacheInvalidator(config.CacheConfig{Enabled: true}, nil) != nil {
		t.Fatal("invalidator without redis")
	}
	var ci *CacheInvalidator
	if err := ci.InvalidateEvent(context.Background(), 1); err != nil {
		t.Fatalf("nil InvalidateEvent: %v", err)
	}
}

func TestUnreachableRedisFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	cache := NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "c"}, rdb)
	limit := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1, WriteCapacity: 1, RefillTokens: 1,
		RefillInterval: time.Second, TTL: time.Minute}, rdb)
	rec, _ := serve(t, http.MethodGet, "", limit, cache)
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "MISS" || rec.Body.String() != "ok" {
		t.Fatalf("status = %d X-Cache = %q body = %q", rec.Code, rec.Header().Get("X-Cache"), rec.Body.String())
	}
}

func TestCacheKeyFrom(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	key := func(path string, params []string, query string, v access.Viewer) string {
		req := httptest.NewRequest(http.MethodGet, "/x?"+query, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath(path)
		if params != nil {
			c.SetParamNames("id")
			c.SetParamValues(params...)
		}
		c.Set(ctxViewer, v)
		return cacheKeyFrom(cfg, c)
	}
	a := key("/v1/events/:id/timetable", []string{"5"}, "", access.Viewer{})
	if !strings.HasPrefix(a, "cache:event:5:") {
		t.Fatalf("event key = %q", a)
	}
	if b := key("/v1/events/:id/timetable", []string{"6"}, "", access.Viewer{}); b == a {
		t.Fatal("different events share a key")
	}
	if b := key("/v1/events/:id/timetable", []string{"5"}, "", access.Viewer{UserID: 9}); b == a {
		t.Fatal("guest and user share a key")
	}
	if b := key("/v1/events/:id/timetable", []string{"5"}, "detail=all", access.Viewer{}); b == a {
		t.Fatal("query ignored")
	}
	if c := key("/v1/categories/timetable", nil, "ids=1", access.Viewer{}); !strings.HasPrefix(c, "cache:category:") {
		t.Fatalf("category key = %q", c)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Fatalf("decodePayload = %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0}); ok {
		t.Fatal("short payload decoded")
	}
}

func TestRateKeySeparatesWrites(t *testing.T) {
	e := echo.New()
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip", Capacity: 10, WriteCapacity: 2}
	read := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	write := e.NewContext(httptest.NewRequest(http.MethodPatch, "/", nil), httptest.NewRecorder())
	if buildRateKey(cfg, read) == buildRateKey(cfg, write) {
		t.Fatal("reads and writes share a bucket")
	}
	if bucketCapacity(cfg, http.MethodGet) != 10 || bucketCapacity(cfg, http.MethodPatch) != 2 {
		t.Fatal("wrong bucket capacity")
	}
	if retryAfterSeconds(1) != 1 || retryAfterSeconds(-5) != 0 {
		t.Fatal("retryAfterSeconds")
	}
}

type countingStore struct{ top int }

func (s *countingStore) ListTopLevelEntries(context.Context, uint64, timetable.LoadOptions) ([]*model.TimetableEntry, error) {
	s.top++
	return nil, nil
}

func (s *countingStore) ListNestedEntries(context.Context, uint64) ([]*model.TimetableEntry, error) {
	return nil, nil
}

func TestTimetableScope(t *testing.T) {
	store := &countingStore{}
	e := echo.New()
	h := TimetableScope(store)(func(c echo.Context) error {
		sc := timetable.ScopeFrom(c.Request().Context())
		if sc == nil {
			t.Fatal("no scope on request context")
		}
		for i := 0; i < 2; i++ {
			if _, err := sc.TopLevelEntries(c.Request().Context(), 1); err != nil {
				return err
			}
		}
		return c.NoContent(http.StatusNoContent)
	})
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if err := h(e.NewContext(req, httptest.NewRecorder())); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if store.top != 2 {
		t.Fatalf("store calls = %d, want one per request", store.top)
	}
}

func TestRequestID(t *testing.T) {
	rec, _ := serve(t, http.MethodGet, "", RequestID())
	id := rec.Header().Get(echo.HeaderXRequestID)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q: %v", id, err)
	}
}
