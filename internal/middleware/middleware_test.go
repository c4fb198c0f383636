package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterRefillsContinuously(t *testing.T) {
	now := time.Unix(1700000000, 0)
	lim := newLimiter(2)

	assert.True(t, lim.AllowN(now, 1))
	assert.True(t, lim.AllowN(now, 1))
	assert.False(t, lim.AllowN(now, 1))

	// 半秒补充一个令牌，不必等到下一整秒
	assert.True(t, lim.AllowN(now.Add(500*time.Millisecond), 1))
	assert.False(t, lim.AllowN(now.Add(500*time.Millisecond), 1))

	// 空闲再久也不超过桶容量
	later := now.Add(time.Minute)
	assert.True(t, lim.AllowN(later, 1))
	assert.True(t, lim.AllowN(later, 1))
	assert.False(t, lim.AllowN(later, 1))
}

func TestRateLimitReturns429(t *testing.T) {
	h := RateLimit(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/9/1/1", nil))
		codes[rec.Code]++
	}
	assert.GreaterOrEqual(t, codes[http.StatusTooManyRequests], 3)
	assert.GreaterOrEqual(t, codes[http.StatusNoContent], 1)
}

func TestAllowList(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	a := NewAllowList([]string{"10.1.0.0/16", "192.0.2.5", "garbage"}, "X-Real-IP", nil)
	h := a.Wrap(ok)

	cases := []struct {
		remote, header string
		want           int
	}{
		{"10.1.2.3:5555", "", http.StatusOK},
		{"192.0.2.5:80", "", http.StatusOK},
		{"198.51.100.1:80", "", http.StatusForbidden},
		{"198.51.100.1:80", "10.1.9.9, 198.51.100.1", http.StatusOK},
		{"198.51.100.1:80", "nonsense", http.StatusForbidden},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
		req.RemoteAddr = c.remote
		if c.header != "" {
			req.Header.Set("X-Real-IP", c.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, c.want, rec.Code, "%s %s", c.remote, c.header)
	}

	empty := NewAllowList(nil, "", nil)
	assert.True(t, empty.Empty())
	rec := httptest.NewRecorder()
	empty.Wrap(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
