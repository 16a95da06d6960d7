package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/config"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	body := []byte(`{"id":1}`)

	bs, err := encodePayload(http.StatusOK, hdr, body)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	status, gotHdr, gotBody, ok := decodePayload(bs)
	if !ok {
		t.Fatal("expected decodable payload")
	}
	if status != http.StatusOK {
		t.Errorf("expected status 200, got %d", status)
	}
	if gotHdr.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected header %v", gotHdr)
	}
	if !bytes.Equal(gotBody, body) {
		t.Errorf("expected body %q, got %q", body, gotBody)
	}
}

func TestDecodePayloadTruncated(t *testing.T) {
	for _, bs := range [][]byte{nil, {1, 2, 3}, {0, 0, 0, 200, 0, 0, 0, 99}} {
		if _, _, _, ok := decodePayload(bs); ok {
			t.Errorf("expected decode failure for %v", bs)
		}
	}
}

func TestCacheKeyStrategies(t *testing.T) {
	makeCtx := func(target string) echo.Context {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/v1/scripts")
		return c
	}
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	withQuery := cacheKeyFrom(cfg, makeCtx("/v1/scripts?area_id=2"))
	without := cacheKeyFrom(cfg, makeCtx("/v1/scripts"))
	if withQuery == without {
		t.Error("route_query keys must differ by query string")
	}

	cfg.KeyStrategy = "route"
	withQuery = cacheKeyFrom(cfg, makeCtx("/v1/scripts?area_id=2"))
	without = cacheKeyFrom(cfg, makeCtx("/v1/scripts"))
	if withQuery != without {
		t.Error("route keys must ignore the query string")
	}
}

func TestCacheKeyPerUser(t *testing.T) {
	makeCtx := func(uid uint64) echo.Context {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/v1/me")
		if uid != 0 {
			c.Set("user_id", uid)
		}
		return c
	}
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	// Two authenticated callers on the same route must never share an
	// entry; the same caller must.
	userA := cacheKeyFrom(cfg, makeCtx(1))
	userB := cacheKeyFrom(cfg, makeCtx(2))
	if userA == userB {
		t.Error("keys for different users must differ")
	}
	if again := cacheKeyFrom(cfg, makeCtx(1)); again != userA {
		t.Error("key for the same user must be stable")
	}
	if anon := cacheKeyFrom(cfg, makeCtx(0)); anon == userA {
		t.Error("anonymous key must not collide with a user's key")
	}
}

func TestRedisCacheDisabledPassThrough(t *testing.T) {
	mw := NewRedisCache(config.CacheConfig{Enabled: false}, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := mw(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if err := h(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("expected plain pass-through, got %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Cache") != "" {
		t.Error("disabled cache must not set X-Cache")
	}
}
