package repository

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-tools/internal/models"
)

func newRedisRepo(t *testing.T) (*RedisLeaveRepository, string) {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	employeeID := "T-" + uuid.NewString()
	t.Cleanup(func() {
		_ = client.Del(context.Background(), balanceKey(employeeID), historyKey(employeeID)).Err()
	})
	return NewRedisLeaveRepository(client), employeeID
}

func TestRedisSeedFindApply(t *testing.T) {
	repo, id := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Seed(ctx, []models.LeaveAccount{{EmployeeID: id, Balance: 3, History: []string{"2024-12-25"}}}))
	// second seed must not reset state
	require.NoError(t, repo.Seed(ctx, []models.LeaveAccount{{EmployeeID: id, Balance: 99}}))

	account, err := repo.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, account.Balance)
	assert.Equal(t, []string{"2024-12-25"}, account.History)

	account, err = repo.Apply(ctx, id, []string{"2025-04-17", "2025-04-18"})
	require.NoError(t, err)
	assert.Equal(t, 1, account.Balance)
	assert.Equal(t, []string{"2024-12-25", "2025-04-17", "2025-04-18"}, account.History)

	_, err = repo.Apply(ctx, id, []string{"a", "b"})
	var insufficient *InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Available)

	account, err = repo.Apply(ctx, id, []string{})
	require.NoError(t, err)
	assert.Equal(t, 1, account.Balance)
}

func TestRedisUnknownEmployee(t *testing.T) {
	repo, id := newRedisRepo(t)

	_, err := repo.Find(context.Background(), id)
	assert.ErrorIs(t, err, ErrLeaveAccountNotFound)

	_, err = repo.Apply(context.Background(), id, []string{"2025-01-01"})
	assert.ErrorIs(t, err, ErrLeaveAccountNotFound)
}

// hashTag mirrors the cluster slot rule: only the text inside the first {...} is hashed.
func hashTag(key string) string {
	start := strings.Index(key, "{")
	if start < 0 {
		return key
	}
	end := strings.Index(key[start+1:], "}")
	if end <= 0 {
		return key
	}
	return key[start+1 : start+1+end]
}

func TestLeaveKeysShareHashSlot(t *testing.T) {
	for _, id := range []string{"E001", "E002", "T-with:colon"} {
		assert.Equal(t, id, hashTag(balanceKey(id)))
		assert.Equal(t, hashTag(balanceKey(id)), hashTag(historyKey(id)))
	}
	assert.NotEqual(t, hashTag(balanceKey("E001")), hashTag(historyKey("E002")))
}
