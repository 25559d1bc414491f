package rediscache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medextract/medextract/api/internal/config"
	"github.com/medextract/medextract/api/internal/pkg/database"
	"github.com/medextract/medextract/api/internal/tool"
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

func TestLookupCache_RoundTrip(t *testing.T) {
	db := getTestRedis(t)
	defer db.Close()

	cache := NewLookupCache(db, time.Minute)
	ctx := context.Background()

	code := &tool.CachedCode{
		Code:    "I10",
		System:  "http://hl7.org/fhir/sid/icd-10-cm",
		Display: "Essential (primary) hypertension",
		Match:   "exact",
	}

	require.NoError(t, cache.PutCode(ctx, "icd10", "hypertension", code))
	defer func() { _ = cache.Invalidate(ctx, "icd10", "hypertension") }()

	got, err := cache.GetCode(ctx, "icd10", "hypertension")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, code, got)
}

func TestLookupCache_MissingKeyIsAMiss(t *testing.T) {
	db := getTestRedis(t)
	defer db.Close()

	cache := NewLookupCache(db, time.Minute)

	got, err := cache.GetCode(context.Background(), "rxnorm", "no-such-term")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLookupCache_CorruptEntryIsAMiss(t *testing.T) {
	db := getTestRedis(t)
	defer db.Close()

	cache := NewLookupCache(db, time.Minute)
	ctx := context.Background()

	key := cacheKey("icd10", "corrupt")
	require.NoError(t, db.Set(ctx, key, "{not json", time.Minute))
	defer func() { _ = db.Del(ctx, key) }()

	got, err := cache.GetCode(ctx, "icd10", "corrupt")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLookupCache_VocabulariesDoNotCollide(t *testing.T) {
	db := getTestRedis(t)
	defer db.Close()

	cache := NewLookupCache(db, time.Minute)
	ctx := context.Background()

	icd := &tool.CachedCode{Code: "I10", Match: "exact"}
	require.NoError(t, cache.PutCode(ctx, "icd10", "shared-term", icd))
	defer func() { _ = cache.Invalidate(ctx, "icd10", "shared-term") }()

	got, err := cache.GetCode(ctx, "rxnorm", "shared-term")
	require.NoError(t, err)
	assert.Nil(t, got)
}
