package tool

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	t.Run("OK carries payload and metadata", func(t *testing.T) {
		r := OK("payload", "search_term", "hypertension")

		assert.True(t, r.Success)
		assert.Empty(t, r.Error)
		assert.Equal(t, "payload", r.Data)
		assert.Equal(t, "hypertension", r.Metadata["search_term"])
	})

	t.Run("Fail carries error and metadata", func(t *testing.T) {
		r := Fail("not found", "search_term", "xyz")

		assert.False(t, r.Success)
		assert.Equal(t, "not found", r.Error)
		assert.Nil(t, r.Data)
		assert.Equal(t, "xyz", r.Metadata["search_term"])
	})

	t.Run("metadata always includes a timestamp", func(t *testing.T) {
		for _, r := range []Result{OK(nil), Fail("boom")} {
			ts, ok := r.Metadata["timestamp"].(string)
			require.True(t, ok)
			_, err := time.Parse(time.RFC3339Nano, ts)
			assert.NoError(t, err)
		}
	})

	t.Run("odd metadata pairs are ignored", func(t *testing.T) {
		r := OK(nil, "key", "value", "dangling")
		assert.Equal(t, "value", r.Metadata["key"])
		assert.NotContains(t, r.Metadata, "dangling")
	})
}

func TestRunBatch(t *testing.T) {
	t.Run("results preserve input order under concurrency", func(t *testing.T) {
		items := make([]string, 50)
		for i := range items {
			items[i] = fmt.Sprintf("term-%d", i)
		}

		results := runBatch(context.Background(), items, func(_ context.Context, item string) Result {
			time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
			return OK(item)
		})

		require.Len(t, results, len(items))
		for i, r := range results {
			assert.True(t, r.Success)
			assert.Equal(t, items[i], r.Data)
		}
	})

	t.Run("a panic in one item fails only that index", func(t *testing.T) {
		items := []string{"ok-1", "boom", "ok-2"}

		results := runBatch(context.Background(), items, func(_ context.Context, item string) Result {
			if item == "boom" {
				panic("lookup exploded")
			}
			return OK(item)
		})

		require.Len(t, results, 3)
		assert.True(t, results[0].Success)
		assert.False(t, results[1].Success)
		assert.Contains(t, results[1].Error, "lookup exploded")
		assert.True(t, results[2].Success)
	})
}
