package alert

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	id "lexgate/pkg/domain"
)

// RedisWindow is a sliding failure window shared across instances. Each
// failure is a member of a per-user sorted set scored by unix nanos; stale
// members are trimmed before counting, and the key expires on its own once
// the user stops failing.
type RedisWindow struct {
	client *goredis.Client
	window time.Duration
}

// NewRedisWindow creates a Redis-backed sliding window.
func NewRedisWindow(client *goredis.Client, window time.Duration) *RedisWindow {
	return &RedisWindow{client: client, window: window}
}

func failureKey(firmID id.FirmID, userID id.UserID) string {
	return fmt.Sprintf("authfail:%s:%s", firmID, userID)
}

func (w *RedisWindow) RecordFailure(ctx context.Context, firmID id.FirmID, userID id.UserID, at time.Time) (int, error) {
	key := failureKey(firmID, userID)
	cutoff := at.Add(-w.window).UnixNano()

	pipe := w.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", cutoff))
	pipe.ZAdd(ctx, key, goredis.Z{
		Score:  float64(at.UnixNano()),
		Member: fmt.Sprintf("%d", at.UnixNano()),
	})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, w.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record auth failure: %w", err)
	}
	return int(count.Val()), nil
}
