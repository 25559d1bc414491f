package middleware

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medextract/medextract/api/internal/config"
	"github.com/medextract/medextract/api/internal/pkg/database"
)

// getTestRedis returns a Redis connection for integration tests.
// Returns nil if Redis is not available (skips tests).
func getTestRedis(t *testing.T) *database.RedisDB {
	if os.Getenv("REDIS_TEST_HOST") == "" {
		t.Skip("Skipping integration test: REDIS_TEST_HOST not set")
		return nil
	}

	cfg := config.RedisConfig{
		Host: os.Getenv("REDIS_TEST_HOST"),
		Port: 6379,
		DB:   1,
	}

	db, err := database.NewRedis(context.Background(), cfg)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to Redis: %v", err)
		return nil
	}
	return db
}

func newRateLimitApp(db *database.RedisDB, clientKey string, max int) *fiber.App {
	cfg := DefaultRateLimitConfig()
	cfg.Max = max
	cfg.Window = time.Minute
	cfg.KeyGenerator = func(*fiber.Ctx) string { return clientKey }
	cfg.Skip = nil

	app := fiber.New()
	app.Use(NewRateLimitMiddleware(db.Client, cfg).Handler())
	app.Get("/resource", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestRateLimitMiddleware_EnforcesLimit(t *testing.T) {
	db := getTestRedis(t)
	defer db.Close()

	const clientKey = "test-ratelimit-enforce"
	ctx := context.Background()
	db.Del(ctx, "medextract:ratelimit:"+clientKey)
	defer db.Del(ctx, "medextract:ratelimit:"+clientKey)

	app := newRateLimitApp(db, clientKey, 2)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/resource", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/resource", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestRateLimitMiddleware_CountsDownRemaining(t *testing.T) {
	db := getTestRedis(t)
	defer db.Close()

	const clientKey = "test-ratelimit-remaining"
	ctx := context.Background()
	db.Del(ctx, "medextract:ratelimit:"+clientKey)
	defer db.Del(ctx, "medextract:ratelimit:"+clientKey)

	app := newRateLimitApp(db, clientKey, 5)

	resp, err := app.Test(httptest.NewRequest("GET", "/resource", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, "4", resp.Header.Get("X-RateLimit-Remaining"))

	resp, err = app.Test(httptest.NewRequest("GET", "/resource", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, "3", resp.Header.Get("X-RateLimit-Remaining"))
}

func TestRateLimitMiddleware_SkipsHealthEndpoints(t *testing.T) {
	db := getTestRedis(t)
	defer db.Close()

	const clientKey = "test-ratelimit-skip"
	ctx := context.Background()
	db.Del(ctx, "medextract:ratelimit:"+clientKey)
	defer db.Del(ctx, "medextract:ratelimit:"+clientKey)

	cfg := DefaultRateLimitConfig()
	cfg.Max = 1
	cfg.KeyGenerator = func(*fiber.Ctx) string { return clientKey }

	app := fiber.New()
	app.Use(NewRateLimitMiddleware(db.Client, cfg).Handler())
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	// Health checks never consume the budget.
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}
