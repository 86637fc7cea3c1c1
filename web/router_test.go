package web

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iris-contrib/httpexpect/v2"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/httptest"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"nw-social/internal/auth"
	"nw-social/internal/credentials"
	"nw-social/internal/users"
	"nw-social/internal/users/userstest"
)

func newTestRouter(t *testing.T, limiter *RateLimiter) (*Router, *userstest.Memory) {
	t.Helper()
	repo := userstest.NewMemory()
	tokens := credentials.NewTokens("test-secret", time.Hour)

	logger := log.New()
	logger.SetLevel(log.PanicLevel)

	r := NewRouter(Options{
		Auth:        auth.NewService(repo, tokens, bcrypt.MinCost),
		Users:       users.NewService(repo, bcrypt.MinCost),
		Tokens:      tokens,
		AuthLimiter: limiter,
		Logger:      logger,
	})
	r.Init()
	return r, repo
}

func signup(e *httpexpect.Expect, username string) string {
	return e.POST("/signup").
		WithJSON(iris.Map{"username": username, "password": "p1", "firstName": "A", "lastName": "L"}).
		Expect().Status(iris.StatusCreated).
		JSON().Object().Value("token").String().Raw()
}

func profileID(e *httpexpect.Expect, token string) string {
	return e.GET("/profile").WithHeader("Authorization", "Bearer "+token).
		Expect().Status(iris.StatusOK).
		JSON().Object().Value("id").String().Raw()
}

func TestScenario(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	e := httptest.New(t, r.App)

	aliceToken := signup(e, "alice")
	require.NotEmpty(t, aliceToken)

	e.POST("/signin").WithJSON(iris.Map{"username": "alice", "password": "wrong"}).
		Expect().Status(iris.StatusUnauthorized)

	e.GET("/profile").Expect().Status(iris.StatusUnauthorized).
		JSON().Object().Value("message").String().Equal("unauthorized")

	bobToken := signup(e, "bob")
	bobID := profileID(e, bobToken)

	e.PUT("/follow/"+bobID).WithHeader("Authorization", "Bearer "+aliceToken).
		Expect().Status(iris.StatusOK)
	e.PUT("/follow/"+bobID).WithHeader("Authorization", "Bearer "+aliceToken).
		Expect().Status(iris.StatusBadRequest)
}

func TestSignupRoute(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	e := httptest.New(t, r.App)

	obj := e.POST("/signup").
		WithJSON(iris.Map{"username": "alice", "password": "p1", "firstName": "A", "lastName": "L", "about": "hi"}).
		Expect().Status(iris.StatusCreated).JSON().Object()
	obj.Value("message").String().NotEmpty()
	obj.Value("token").String().NotEmpty()

	e.POST("/signup").
		WithJSON(iris.Map{"username": "alice", "password": "p1", "firstName": "A", "lastName": "L"}).
		Expect().Status(iris.StatusBadRequest).
		JSON().Object().Value("message").String().Equal("username already taken")

	invalid := e.POST("/signup").WithJSON(iris.Map{"username": "carol"}).
		Expect().Status(iris.StatusBadRequest).JSON().Object()
	invalid.Value("error").String().Contains("password is required")

	// 40 runes, 80 bytes
	e.POST("/signup").
		WithJSON(iris.Map{"username": "dave", "password": strings.Repeat("é", 40), "firstName": "A", "lastName": "L"}).
		Expect().Status(iris.StatusBadRequest).
		JSON().Object().Value("error").String().Contains("password must be at most 72 bytes")

	e.POST("/signup").WithJSON(iris.Map{"username": 42, "password": "p1", "firstName": "A", "lastName": "L"}).
		Expect().Status(iris.StatusBadRequest)
}

func TestSigninRoute(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	e := httptest.New(t, r.App)
	signup(e, "alice")

	token := e.POST("/signin").WithJSON(iris.Map{"username": "alice", "password": "p1"}).
		Expect().Status(iris.StatusOK).
		JSON().Object().Value("token").String().Raw()

	// a signin token authenticates like a signup token, with or without the scheme
	e.GET("/profile").WithHeader("Authorization", token).Expect().Status(iris.StatusOK)

	e.POST("/signin").WithJSON(iris.Map{"username": "nobody", "password": "p1"}).
		Expect().Status(iris.StatusForbidden)
	e.POST("/signin").WithJSON(iris.Map{"username": "alice"}).
		Expect().Status(iris.StatusBadRequest)
}

func TestProfileNeverExposesPassword(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	e := httptest.New(t, r.App)

	alice := signup(e, "alice")
	bob := signup(e, "bob")
	aliceID := profileID(e, alice)

	e.PUT("/follow/"+aliceID).WithHeader("Authorization", "Bearer "+bob).
		Expect().Status(iris.StatusOK)

	profile := e.GET("/profile").WithHeader("Authorization", "Bearer "+alice).
		Expect().Status(iris.StatusOK).JSON().Object()
	profile.NotContainsKey("password")
	profile.Value("username").String().Equal("alice")

	followers := e.GET("/followers").WithHeader("Authorization", "Bearer "+alice).
		Expect().Status(iris.StatusOK).JSON().Object()
	followers.Value("length").Number().Equal(1)
	user := followers.Value("user").Object()
	user.NotContainsKey("password")
	list := user.Value("followers").Array()
	list.Length().Equal(1)
	list.Element(0).Object().NotContainsKey("password")
	list.Element(0).Object().Value("username").String().Equal("bob")
	require.NotContains(t, e.GET("/followers").WithHeader("Authorization", "Bearer "+alice).
		Expect().Body().Raw(), "$2a$")
}

func TestUpdateProfileRoute(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	e := httptest.New(t, r.App)
	token := signup(e, "alice")

	e.PUT("/updateProfile").WithHeader("Authorization", "Bearer "+token).
		WithJSON(iris.Map{"username": "alice", "password": "p2", "firstName": "Al", "lastName": "Ice", "about": "new"}).
		Expect().Status(iris.StatusOK)

	e.PUT("/updateProfile").WithHeader("Authorization", "Bearer "+token).
		WithJSON(iris.Map{"username": "alice", "firstName": "Al", "lastName": "Ice"}).
		Expect().Status(iris.StatusBadRequest)

	e.POST("/signin").WithJSON(iris.Map{"username": "alice", "password": "p1"}).
		Expect().Status(iris.StatusUnauthorized)
	e.POST("/signin").WithJSON(iris.Map{"username": "alice", "password": "p2"}).
		Expect().Status(iris.StatusOK)

	e.PUT("/updateProfile").
		WithJSON(iris.Map{"username": "alice", "password": "p2", "firstName": "Al", "lastName": "Ice"}).
		Expect().Status(iris.StatusUnauthorized)
}

func TestFollowRoute(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	e := httptest.New(t, r.App)
	alice := signup(e, "alice")
	aliceID := profileID(e, alice)

	e.PUT("/follow/not-an-id").WithHeader("Authorization", "Bearer "+alice).
		Expect().Status(iris.StatusBadRequest)
	e.PUT("/follow/"+aliceID).WithHeader("Authorization", "Bearer "+alice).
		Expect().Status(iris.StatusBadRequest)
	e.PUT("/follow/000000000000000000000001").WithHeader("Authorization", "Bearer "+alice).
		Expect().Status(iris.StatusForbidden)
	e.PUT("/follow/"+aliceID).WithHeader("Authorization", "Bearer not.a.token").
		Expect().Status(iris.StatusUnauthorized)

	// a valid token for an account that no longer exists
	ghost, err := r.Tokens.Issue(primitive.NewObjectID())
	require.NoError(t, err)
	e.PUT("/follow/"+aliceID).WithHeader("Authorization", "Bearer "+ghost).
		Expect().Status(iris.StatusUnauthorized)
	e.GET("/profile").WithHeader("Authorization", "Bearer "+ghost).
		Expect().Status(iris.StatusUnauthorized)
}

func TestInternalErrorsAreSanitised(t *testing.T) {
	r, repo := newTestRouter(t, nil)
	e := httptest.New(t, r.App)
	alice := signup(e, "alice")
	bobID := profileID(e, signup(e, "bob"))

	repo.FollowErr = errInjected
	body := e.PUT("/follow/"+bobID).WithHeader("Authorization", "Bearer "+alice).
		Expect().Status(iris.StatusInternalServerError).Body().Raw()
	require.NotContains(t, body, errInjected.Error())
	require.Contains(t, body, "internal server error")
}

func TestPanicBecomesInternalError(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	r.App.Get("/boom", func(ctx iris.Context) {
		panic("nil map write")
	})
	e := httptest.New(t, r.App)

	body := e.GET("/boom").Expect().Status(iris.StatusInternalServerError).Body().Raw()
	require.Contains(t, body, "message")
	require.NotContains(t, body, "nil map write")

	e.GET("/healthz").Expect().Status(iris.StatusOK)
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerWindow: 2, Window: time.Hour, Burst: 2})
	r, _ := newTestRouter(t, limiter)
	e := httptest.New(t, r.App)

	for i := 0; i < 2; i++ {
		e.POST("/signin").WithJSON(iris.Map{"username": "x", "password": "y"}).
			Expect().Status(iris.StatusForbidden)
	}
	resp := e.POST("/signin").WithJSON(iris.Map{"username": "x", "password": "y"}).
		Expect().Status(iris.StatusTooManyRequests)
	resp.Header("Retry-After").NotEmpty()

	// only signup and signin are limited
	e.GET("/healthz").Expect().Status(iris.StatusOK)
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	e := httptest.New(t, r.App)

	e.GET("/healthz").Expect().Status(iris.StatusOK).
		JSON().Object().Value("status").String().Equal("ok")
	e.GET("/readyz").Expect().Status(iris.StatusServiceUnavailable)

	r.DB = pingerFunc(func() error { return nil })
	e.GET("/readyz").Expect().Status(iris.StatusOK)

	e.GET("/metrics").Expect().Status(iris.StatusOK).
		Body().Contains("social_http_requests_total")
}

func TestRequestID(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	e := httptest.New(t, r.App)

	e.GET("/healthz").WithHeader("X-Request-ID", "abc").Expect().
		Header("X-Request-ID").Equal("abc")
	e.GET("/healthz").Expect().Header("X-Request-ID").NotEmpty()
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name, remote, xff, real, want string
	}{
		{"public peer ignores headers", "203.0.113.9:5000", "198.51.100.1", "", "203.0.113.9"},
		{"proxy forwards first public hop", "10.0.0.2:5000", "192.168.1.4, 198.51.100.1", "", "198.51.100.1"},
		{"proxy falls back to real ip", "10.0.0.2:5000", "", "198.51.100.7", "198.51.100.7"},
		{"proxy without headers", "10.0.0.2:5000", "", "", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ClientIP(tt.remote, tt.xff, tt.real))
		})
	}
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", bearerToken("Bearer abc"))
	require.Equal(t, "abc", bearerToken("bearer  abc"))
	require.Equal(t, "abc", bearerToken("abc"))
	require.Equal(t, "", bearerToken(""))
}

func TestRateLimiterAllow(t *testing.T) {
	require.Nil(t, NewRateLimiter(RateLimitConfig{}))

	l := NewRateLimiter(RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 1})
	ok, _ := l.Allow("a")
	require.True(t, ok)
	ok, delay := l.Allow("a")
	require.False(t, ok)
	require.Greater(t, delay, time.Duration(0))
	ok, _ = l.Allow("b")
	require.True(t, ok)
}

var errInjected = errors.New("mongo: connection pool cleared for 10.1.2.3")

type pingerFunc func() error

func (f pingerFunc) Ping(_ context.Context) error { return f() }
