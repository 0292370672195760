package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret []byte, sub, org string, expiresIn time.Duration) string {
	t.Helper()
	claims := Claims{
		OrganizationID: org,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return signed
}

// ──────────────────────────────────────────────
// AUTH
// ──────────────────────────────────────────────

func TestAuthMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(AuthMiddleware(testSecret))
	router.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c), "org": OrganizationID(c)})
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid token",
			header:     "Bearer " + signToken(t, testSecret, "user-1", "org-1", time.Hour),
			wantStatus: http.StatusOK,
			wantBody:   `{"org":"org-1","user":"user-1"}`,
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"missing bearer token"}`,
		},
		{
			name:       "not a bearer token",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"missing bearer token"}`,
		},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, []byte("other"), "user-1", "org-1", time.Hour),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"invalid token"}`,
		},
		{
			name:       "expired",
			header:     "Bearer " + signToken(t, testSecret, "user-1", "org-1", -time.Minute),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"token expired"}`,
		},
		{
			name:       "no organization",
			header:     "Bearer " + signToken(t, testSecret, "user-1", "", time.Hour),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"invalid token"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.JSONEq(t, tc.wantBody, w.Body.String())
		})
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{OrganizationID: "org-1", RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(unsigned, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// ──────────────────────────────────────────────
// IDEMPOTENCY
// ──────────────────────────────────────────────

func newIdempotentRouter(t *testing.T, calls *int32) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger, _ := test.NewNullLogger()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		SetIdentity(c, c.GetHeader("X-User"), "org-1")
		c.Next()
	})
	router.Use(IdempotencyMiddleware(client, logger))
	router.POST("/trips/:id/points", func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(http.StatusCreated, gin.H{"seq": n})
	})
	router.GET("/trips/:id", func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(http.StatusOK, gin.H{"seq": n})
	})
	return router, mr
}

func doRequest(router *gin.Engine, method, path, user, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-User", user)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotencyMiddleware_ReplaysResponse(t *testing.T) {
	var calls int32
	router, _ := newIdempotentRouter(t, &calls)

	first := doRequest(router, http.MethodPost, "/trips/t1/points", "user-1", "k1")
	second := doRequest(router, http.MethodPost, "/trips/t1/points", "user-1", "k1")

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_KeysAreScoped(t *testing.T) {
	var calls int32
	router, _ := newIdempotentRouter(t, &calls)

	doRequest(router, http.MethodPost, "/trips/t1/points", "user-1", "k1")
	doRequest(router, http.MethodPost, "/trips/t1/points", "user-2", "k1")
	doRequest(router, http.MethodPost, "/trips/t2/points", "user-1", "k1")

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_Passthrough(t *testing.T) {
	var calls int32
	router, mr := newIdempotentRouter(t, &calls)

	// No key.
	doRequest(router, http.MethodPost, "/trips/t1/points", "user-1", "")
	doRequest(router, http.MethodPost, "/trips/t1/points", "user-1", "")
	// Reads are never cached.
	doRequest(router, http.MethodGet, "/trips/t1", "user-1", "k2")
	doRequest(router, http.MethodGet, "/trips/t1", "user-1", "k2")
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))

	// Redis down: requests still go through.
	mr.Close()
	w := doRequest(router, http.MethodPost, "/trips/t1/points", "user-1", "k3")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

// ──────────────────────────────────────────────
// REQUEST LOGGER
// ──────────────────────────────────────────────

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/missing", "/boom"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, logrus.ErrorLevel, entries[2].Level)
	assert.Equal(t, "/boom", entries[2].Data["route"])
	assert.Equal(t, http.StatusInternalServerError, entries[2].Data["status"])
}
