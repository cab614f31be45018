package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/qbank-core/internal/auth"
	"github.com/stemsi/qbank-core/internal/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiterRefillsPerInterval(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("user:1"))
	assert.True(t, rl.allow("user:1"))
	assert.False(t, rl.allow("user:1"))
	assert.True(t, rl.allow("user:2"))

	now = now.Add(time.Minute)
	assert.True(t, rl.allow("user:1"))

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.visitors)
}

func TestRequireJWT(t *testing.T) {
	tokens, err := auth.NewTokenService("secret", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", RequireJWT(tokens), func(c *gin.Context) {
		id, ok := auth.IdentityFromContext(c.Request.Context())
		require.True(t, ok)
		fromGin, ok := GetIdentity(c)
		require.True(t, ok)
		assert.Equal(t, id, fromGin)
		c.String(http.StatusOK, "%d", id.UserID)
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	token, err := tokens.Generate(1001)
	require.NoError(t, err)
	rec := call("Bearer " + token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1001", rec.Body.String())

	rec = call("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_REQUIRED")

	rec = call("Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_INVALID")

	expired, err := auth.NewTokenService("secret", -time.Minute)
	require.NoError(t, err)
	old, err := expired.Generate(1001)
	require.NoError(t, err)
	rec = call("Bearer " + old)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_EXPIRED")
}

func TestBrotliCompressesLargeBodiesOnly(t *testing.T) {
	large := strings.Repeat("question ", 400)

	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{MinLength: 1024}))
	r.GET("/large", func(c *gin.Context) {
		// Several writes, the last one below the threshold on its own.
		c.Writer.WriteString(large[:2000])
		c.Writer.WriteString(large[2000:])
	})
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/large", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=0.9")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(rec.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, large, string(body))

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRequestIDKeepsWellFormedClientIDs(t *testing.T) {
	r := gin.New()
	r.Use(response.RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(response.ContextKeyRequestID)) })

	call := func(id string) string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if id != "" {
			req.Header.Set("X-Request-ID", id)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, rec.Body.String(), rec.Header().Get("X-Request-ID"))
		return rec.Body.String()
	}

	assert.Equal(t, "trace-01.a_b", call("trace-01.a_b"))
	assert.Len(t, call(""), 36)
	assert.Len(t, call("bad id\n"), 36)
	assert.Len(t, call(strings.Repeat("x", 65)), 36)
}

func TestRequireJWTAcceptsQueryTokenOnUpgradeOnly(t *testing.T) {
	tokens, err := auth.NewTokenService("secret", time.Hour)
	require.NoError(t, err)
	token, err := tokens.Generate(7)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/feed", RequireJWT(tokens), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/feed?token="+token, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/feed?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
