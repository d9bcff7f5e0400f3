package implementation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startup-hunter-be/internal/repository/contract"
	"startup-hunter-be/pkg/store"
)

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "session:abc", sessionKey("abc"))
}

// Runs against a live Redis when REDIS_TEST_URL is set.
func TestRedisSessionRepository(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	repo := NewRedisSessionRepository(client, time.Minute)
	id := uuid.NewString()
	defer repo.Delete(ctx, id)

	s := store.NewSession(id, "u-1", "pets", map[string]interface{}{"market": "US"}, time.Now())
	assert.ErrorIs(t, repo.Update(ctx, s), contract.ErrSessionNotFound)
	require.NoError(t, repo.Create(ctx, s))
	assert.ErrorIs(t, repo.Create(ctx, s), contract.ErrSessionExists)

	s.Trends = []store.Trend{{ID: "trend-1", Title: "Pet AI", Score: 70}}
	s.Stage = store.StageTrendsReady
	require.NoError(t, repo.Update(ctx, s))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.StageTrendsReady, got.Stage)
	assert.Equal(t, "Pet AI", got.Trends[0].Title)
	assert.Equal(t, "US", got.UserContext["market"])

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, contract.ErrSessionNotFound)
}
