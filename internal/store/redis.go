package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abbaskhalil042/smart-talk/internal/models"
)

const (
	messageCacheTTL = 24 * time.Hour
	presenceTTL     = 5 * time.Minute
)

// RedisStore handles Redis operations for the recent-message cache and
// room presence. All of its operations are best-effort from the caller's
// perspective.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// projectMessagesKey returns the key for a project's recent-message list.
func projectMessagesKey(projectID string) string {
	return fmt.Sprintf("project:%s:messages", projectID)
}

// presenceKey returns the key for a project's online-user set.
func presenceKey(projectID string) string {
	return fmt.Sprintf("project:%s:online", projectID)
}

// CacheMessage appends a message to the project's recent-message list.
// A plain list keeps cache order identical to log order; sorting by
// timestamp would not, under network jitter.
func (s *RedisStore) CacheMessage(ctx context.Context, projectID string, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := projectMessagesKey(projectID)

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, string(data))
	pipe.LTrim(ctx, key, -500, -1)
	pipe.Expire(ctx, key, messageCacheTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentMessages retrieves up to limit cached messages in log order.
func (s *RedisStore) RecentMessages(ctx context.Context, projectID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}

	key := projectMessagesKey(projectID)
	results, err := s.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(results))
	for _, data := range results {
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// MarkOnline records a user as present in a project's room.
func (s *RedisStore) MarkOnline(ctx context.Context, projectID, userID string) error {
	key := presenceKey(projectID)

	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, key, userID)
	pipe.Expire(ctx, key, presenceTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// MarkOffline removes a user from a project's online set.
func (s *RedisStore) MarkOffline(ctx context.Context, projectID, userID string) error {
	return s.client.SRem(ctx, presenceKey(projectID), userID).Err()
}

// OnlineUsers returns the users currently present in a project's room.
func (s *RedisStore) OnlineUsers(ctx context.Context, projectID string) ([]string, error) {
	return s.client.SMembers(ctx, presenceKey(projectID)).Result()
}
