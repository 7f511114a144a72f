package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/locojk/GNG-5300-Group-Backend/internal/auth"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
	"github.com/locojk/GNG-5300-Group-Backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newProtectedApp(tokens *auth.TokenManager, calls *int) *fiber.App {
	app := fiber.New()
	app.Get("/protected", AuthRequired(tokens), func(c *fiber.Ctx) error {
		*calls++
		identity, ok := auth.FromContext(c.UserContext())
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(identity.UserID.Hex())
	})
	return app
}

func TestAuthRequiredRejectsBadRequests(t *testing.T) {
	tokens := auth.NewTokenManager("secret-a", time.Hour, time.Hour)
	foreign := auth.NewTokenManager("secret-b", time.Hour, time.Hour)
	foreignToken, _, err := foreign.IssueAccessToken(primitive.NewObjectID().Hex(), "user")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"missing token", "Bearer"},
		{"garbage token", "Bearer not-a-jwt"},
		{"foreign signature", "Bearer " + foreignToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			app := newProtectedApp(tokens, &calls)
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if resp.StatusCode != fiber.StatusUnauthorized {
				t.Fatalf("Expected status 401, got %d", resp.StatusCode)
			}
			if calls != 0 {
				t.Fatalf("Expected handler not to run, ran %d times", calls)
			}
		})
	}
}

func TestAuthRequiredExpiredToken(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour, time.Hour)
	issuedAt := time.Now().Add(-2 * time.Hour)
	tokens.SetClock(func() time.Time { return issuedAt })
	token, _, err := tokens.IssueAccessToken(primitive.NewObjectID().Hex(), "user")
	require.NoError(t, err)
	tokens.SetClock(time.Now)

	calls := 0
	app := newProtectedApp(tokens, &calls)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "expired")
	assert.Zero(t, calls)
}

func TestAuthRequiredBindsIdentity(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour, time.Hour)
	userID := primitive.NewObjectID()
	token, _, err := tokens.IssueAccessToken(userID.Hex(), "user")
	require.NoError(t, err)

	calls := 0
	app := newProtectedApp(tokens, &calls)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, userID.Hex(), string(body))
	assert.Equal(t, 1, calls)
}

func TestRoleRequired(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour, time.Hour)
	app := fiber.New()
	app.Get("/admin", AuthRequired(tokens), RoleRequired("admin"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for role, want := range map[string]int{"admin": fiber.StatusNoContent, "user": fiber.StatusForbidden} {
		token, _, err := tokens.IssueAccessToken(primitive.NewObjectID().Hex(), role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "role %s", role)
	}
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	app := fiber.New()
	app.Post("/login", RateLimit(rdb, "login", RateLimitConfig{Enabled: true, Limit: 2, Window: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, statuses)

	mr.FastForward(2 * time.Minute)
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	cases := map[string]fiber.Handler{
		"redis down": RateLimit(rdb, "login", RateLimitConfig{Enabled: true, Limit: 1, Window: time.Minute}),
		"no client":  RateLimit(nil, "login", RateLimitConfig{Enabled: true, Limit: 1, Window: time.Minute}),
		"disabled":   RateLimit(rdb, "login", RateLimitConfig{Enabled: false, Limit: 1, Window: time.Minute}),
	}
	for name, limiter := range cases {
		app := fiber.New()
		app.Post("/login", limiter, func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})
		for i := 0; i < 3; i++ {
			resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode, name)
		}
	}
}

func TestCorrelationCopiesRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(Correlation())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(observability.CorrelationID(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "req-123", string(body))
}

type stubAccounts struct {
	user *models.User
	err  error
}

func (s stubAccounts) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user := *s.user
	user.ID = id
	return &user, nil
}

func TestActiveUserRequired(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour, time.Hour)

	tests := []struct {
		name      string
		accounts  stubAccounts
		wantCode  int
		wantCalls int
	}{
		{"active", stubAccounts{user: &models.User{Status: models.UserStatusActive, Role: models.RoleUser}}, fiber.StatusOK, 1},
		{"deleted", stubAccounts{user: &models.User{Status: models.UserStatusDeleted, Role: models.RoleUser}}, fiber.StatusForbidden, 0},
		{"banned", stubAccounts{user: &models.User{Status: models.UserStatusBanned, Role: models.RoleUser}}, fiber.StatusForbidden, 0},
		{"unknown", stubAccounts{err: repository.ErrNotFound}, fiber.StatusUnauthorized, 0},
		{"lookup failure", stubAccounts{err: errors.New("connection reset")}, fiber.StatusInternalServerError, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			app := fiber.New()
			app.Get("/me", AuthRequired(tokens), ActiveUserRequired(tc.accounts, nil), func(c *fiber.Ctx) error {
				calls++
				return c.SendStatus(fiber.StatusOK)
			})

			token, _, err := tokens.IssueAccessToken(primitive.NewObjectID().Hex(), models.RoleUser)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if resp.StatusCode != tc.wantCode {
				t.Fatalf("Expected status %d, got %d", tc.wantCode, resp.StatusCode)
			}
			if calls != tc.wantCalls {
				t.Fatalf("Expected handler to run %d times, ran %d", tc.wantCalls, calls)
			}
		})
	}
}

func TestActiveUserRequiredUsesStoredRole(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour, time.Hour)
	app := fiber.New()
	demoted := stubAccounts{user: &models.User{Status: models.UserStatusActive, Role: models.RoleUser}}
	app.Get("/admin", AuthRequired(tokens), ActiveUserRequired(demoted, nil), RoleRequired(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	token, _, err := tokens.IssueAccessToken(primitive.NewObjectID().Hex(), models.RoleAdmin)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestCheckRateLimitRepairsCounterWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	const key = "rl:login:ip:10.0.0.1"
	require.NoError(t, mr.Set(key, "5"))

	allowed, err := CheckRateLimit(ctx, rdb, "login", "ip:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(2 * time.Minute)
	allowed, err = CheckRateLimit(ctx, rdb, "login", "ip:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestCheckRateLimitKeepsWindowAcrossHits(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	_, err := CheckRateLimit(ctx, rdb, "register", "ip:10.0.0.2", 5, time.Minute)
	require.NoError(t, err)
	mr.FastForward(20 * time.Second)
	_, err = CheckRateLimit(ctx, rdb, "register", "ip:10.0.0.2", 5, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 40*time.Second, mr.TTL("rl:register:ip:10.0.0.2"))
	got, err := mr.Get("rl:register:ip:10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}
