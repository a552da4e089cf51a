package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/campus-tools/internal/models"
)

const leaveKeyPrefix = "campus:leave:"

// KEYS[1] balance, KEYS[2] history list, ARGV dates.
// Returns {1, remaining, history} on success, {0} when missing, {-1, balance} when short.
var applyLeaveScript = redis.NewScript(`
local balance = redis.call('GET', KEYS[1])
if not balance then
  return {0}
end
balance = tonumber(balance)
local requested = #ARGV
if requested > balance then
  return {-1, balance}
end
local remaining = redis.call('DECRBY', KEYS[1], requested)
if requested > 0 then
  redis.call('RPUSH', KEYS[2], unpack(ARGV))
end
return {1, remaining, redis.call('LRANGE', KEYS[2], 0, -1)}
`)

// KEYS[1] balance, KEYS[2] history list, ARGV[1] balance, ARGV[2..] history.
var seedLeaveScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('DEL', KEYS[2])
for i = 2, #ARGV do
  redis.call('RPUSH', KEYS[2], ARGV[i])
end
return 1
`)

// RedisLeaveRepository stores accounts in Redis so several server replicas share one
// leave store. Apply runs as a Lua script which makes check-then-mutate atomic.
type RedisLeaveRepository struct {
	client redis.UniversalClient
}

// NewRedisLeaveRepository constructs a Redis-backed repository.
func NewRedisLeaveRepository(client redis.UniversalClient) *RedisLeaveRepository {
	return &RedisLeaveRepository{client: client}
}

// Both keys of an account share the {employeeID} hash tag so the scripts and the
// MULTI in Find stay on one cluster slot.
func balanceKey(employeeID string) string {
	return leaveKeyPrefix + "{" + employeeID + "}:balance"
}

func historyKey(employeeID string) string {
	return leaveKeyPrefix + "{" + employeeID + "}:history"
}

// Find loads balance and history in one MULTI/EXEC round trip.
func (r *RedisLeaveRepository) Find(ctx context.Context, employeeID string) (*models.LeaveAccount, error) {
	var balanceCmd *redis.StringCmd
	var historyCmd *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		balanceCmd = pipe.Get(ctx, balanceKey(employeeID))
		historyCmd = pipe.LRange(ctx, historyKey(employeeID), 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis load leave account %s: %w", employeeID, err)
	}

	balance, err := balanceCmd.Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrLeaveAccountNotFound
		}
		return nil, fmt.Errorf("redis parse balance %s: %w", employeeID, err)
	}
	history, err := historyCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis load history %s: %w", employeeID, err)
	}

	return &models.LeaveAccount{EmployeeID: employeeID, Balance: balance, History: nonNil(history)}, nil
}

// Apply books all dates or none.
func (r *RedisLeaveRepository) Apply(ctx context.Context, employeeID string, dates []string) (*models.LeaveAccount, error) {
	args := make([]interface{}, len(dates))
	for i, d := range dates {
		args[i] = d
	}

	raw, err := applyLeaveScript.Run(ctx, r.client, []string{balanceKey(employeeID), historyKey(employeeID)}, args...).Slice()
	if err != nil {
		return nil, fmt.Errorf("redis apply leave %s: %w", employeeID, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("redis apply leave %s: empty script reply", employeeID)
	}

	switch code, _ := raw[0].(int64); code {
	case 0:
		return nil, ErrLeaveAccountNotFound
	case -1:
		available, _ := raw[1].(int64)
		return nil, &InsufficientBalanceError{Requested: len(dates), Available: int(available)}
	case 1:
		remaining, _ := raw[1].(int64)
		return &models.LeaveAccount{EmployeeID: employeeID, Balance: int(remaining), History: toStrings(raw[2])}, nil
	default:
		return nil, fmt.Errorf("redis apply leave %s: unexpected reply %v", employeeID, raw[0])
	}
}

// Seed inserts accounts that do not exist yet.
func (r *RedisLeaveRepository) Seed(ctx context.Context, accounts []models.LeaveAccount) error {
	for _, account := range accounts {
		args := make([]interface{}, 0, len(account.History)+1)
		args = append(args, account.Balance)
		for _, d := range account.History {
			args = append(args, d)
		}
		keys := []string{balanceKey(account.EmployeeID), historyKey(account.EmployeeID)}
		if err := seedLeaveScript.Run(ctx, r.client, keys, args...).Err(); err != nil {
			return fmt.Errorf("redis seed leave account %s: %w", account.EmployeeID, err)
		}
	}
	return nil
}

func toStrings(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
