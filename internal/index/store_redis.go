package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/sentinel"
)

// RedisStore keeps projections as JSON strings plus a per-firm recency
// sorted set scored by last activity. Version-aware last-write-wins runs in
// a Lua script so concurrent projector workers cannot interleave the
// compare and the write.
type RedisStore struct {
	client *goredis.Client
}

// NewRedisStore creates a Redis-backed index store.
func NewRedisStore(client *goredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func projectionKey(firmID id.FirmID, convID id.ConversationID) string {
	return fmt.Sprintf("idx:%s:%s", firmID, convID)
}

func recencyKey(firmID id.FirmID) string {
	return fmt.Sprintf("idx:recent:%s", firmID)
}

// upsertScript writes the projection only when the incoming version is not
// older than the stored one. KEYS[1] projection, KEYS[2] recency zset,
// ARGV[1] json, ARGV[2] version, ARGV[3] activity score, ARGV[4] member.
var upsertScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local decoded = cjson.decode(cur)
  if tonumber(decoded['version']) > tonumber(ARGV[2]) then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[4])
return 1
`)

func (s *RedisStore) Upsert(ctx context.Context, p Projection) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal projection: %w", err)
	}

	err = upsertScript.Run(ctx, s.client,
		[]string{projectionKey(p.FirmID, p.ConversationID), recencyKey(p.FirmID)},
		payload,
		p.Version,
		float64(p.LastActivity.UnixMilli()),
		p.ConversationID.String(),
	).Err()
	if err != nil {
		return fmt.Errorf("upsert projection: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, firmID id.FirmID, convID id.ConversationID) (Projection, error) {
	raw, err := s.client.Get(ctx, projectionKey(firmID, convID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Projection{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Projection{}, fmt.Errorf("get projection: %w", err)
	}

	var p Projection
	if err := json.Unmarshal(raw, &p); err != nil {
		return Projection{}, fmt.Errorf("unmarshal projection: %w", err)
	}
	return p, nil
}

func (s *RedisStore) Recent(ctx context.Context, firmID id.FirmID, limit int) ([]Projection, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	members, err := s.client.ZRevRange(ctx, recencyKey(firmID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent projections: %w", err)
	}

	out := make([]Projection, 0, len(members))
	for _, member := range members {
		convID, err := id.ParseConversationID(member)
		if err != nil {
			continue
		}
		p, err := s.Get(ctx, firmID, convID)
		if errors.Is(err, sentinel.ErrNotFound) {
			// Projection removed between the zset read and the get.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *RedisStore) Remove(ctx context.Context, firmID id.FirmID, convID id.ConversationID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, projectionKey(firmID, convID))
	pipe.ZRem(ctx, recencyKey(firmID), convID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove projection: %w", err)
	}
	return nil
}
