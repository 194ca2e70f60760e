package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/lattisimo/posher-v/pkg/util"
)

// redisKey is the list all journal records are appended to. A shared Redis
// lets operators running poshv across a fleet aggregate migration history
// in one place.
const redisKey = "poshv:journal"

// RedisStore appends records to a Redis list.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to journal redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Append implements Store.
func (s *RedisStore) Append(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal journal record: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.RPush(ctx, redisKey, data).Err(); err != nil {
		return fmt.Errorf("append journal record: %w", err)
	}
	return nil
}

// Query implements Store.
func (s *RedisStore) Query(filter Filter) ([]Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lines, err := s.client.LRange(ctx, redisKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	var records []Record
	for i, line := range lines {
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			util.Warnf("journal: skipping malformed redis entry %d: %v", i, err)
			continue
		}
		if matches(&rec, filter) {
			records = append(records, rec)
		}
	}
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[len(records)-filter.Limit:]
	}
	return records, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
