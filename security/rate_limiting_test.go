package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScanEvent(userAgent string) *core.RequestEvent {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", nil)
	req.RemoteAddr = "192.0.2.1:51234"
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	e := &core.RequestEvent{}
	e.Request = req
	e.Response = httptest.NewRecorder()
	return e
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 30, time.Minute)

	key := "ratelimit:scan:192.0.2.1"
	redisMock.ExpectIncr(key).SetVal(1)
	redisMock.ExpectExpire(key, time.Minute).SetVal(true)

	called := false
	handler := limiter.Wrap("scan", func(e *core.RequestEvent) error {
		called = true
		return nil
	})

	err := handler(newScanEvent("Mozilla/5.0"))
	require.NoError(t, err)
	assert.True(t, called)
	require.NoError(t, redisMock.ExpectationsWereMet())
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 30, time.Minute)

	key := "ratelimit:scan:192.0.2.1"
	redisMock.ExpectIncr(key).SetVal(31)

	called := false
	handler := limiter.Wrap("scan", func(e *core.RequestEvent) error {
		called = true
		return nil
	})

	err := handler(newScanEvent("Mozilla/5.0"))
	assert.Error(t, err)
	assert.False(t, called)
	require.NoError(t, redisMock.ExpectationsWereMet())
}

func TestRateLimiter_RejectsBots(t *testing.T) {
	db, _ := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 30, time.Minute)

	called := false
	handler := limiter.Wrap("scan", func(e *core.RequestEvent) error {
		called = true
		return nil
	})

	for _, ua := range []string{"Googlebot/2.1", "my-crawler", "SpiderThing", "price-scraper 1.0"} {
		err := handler(newScanEvent(ua))
		assert.Error(t, err, "user agent %q", ua)
	}
	assert.False(t, called)
}

func TestRateLimiter_FailsOpenWithoutRedis(t *testing.T) {
	limiter := NewRateLimiter(nil, 30, time.Minute)

	called := false
	handler := limiter.Wrap("scan", func(e *core.RequestEvent) error {
		called = true
		return nil
	})

	require.NoError(t, handler(newScanEvent("Mozilla/5.0")))
	assert.True(t, called)
}

func TestIsSuspiciousUserAgent(t *testing.T) {
	assert.True(t, isSuspiciousUserAgent("GoogleBot"))
	assert.True(t, isSuspiciousUserAgent("web-crawler/2"))
	assert.False(t, isSuspiciousUserAgent("Mozilla/5.0 (X11; Linux x86_64)"))
	assert.False(t, isSuspiciousUserAgent(""))
}
