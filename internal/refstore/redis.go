// ABOUTME: Redis implementation of the Store interface using go-redis
// ABOUTME: One hash record per conversation under a configurable key prefix

package refstore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix is the prefix for conversation reference hash keys.
const DefaultKeyPrefix = "bot_conv_ref:"

// scanBatchSize is the COUNT hint for SCAN enumeration.
const scanBatchSize = 100

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string        // defaults to DefaultKeyPrefix
	Timeout   time.Duration // per-operation timeout, defaults to 5s
}

// RedisStore implements Store on a Redis hash per conversation. The client
// connection is long-lived and safe for concurrent use; Redis serializes
// physical access on its end, so no locking happens here.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisStore connects to Redis and verifies connectivity. An unreachable
// backend fails store construction.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	logger := slog.Default().With("component", "redisstore")

	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	logger.Info("redis store initialized", "addr", opts.Addr, "db", opts.DB, "prefix", opts.KeyPrefix)
	return &RedisStore{client: client, prefix: opts.KeyPrefix, logger: logger}, nil
}

func (s *RedisStore) key(conversationID string) string {
	return s.prefix + conversationID
}

// Upsert writes the full flat record as one hash. HSET replaces every field,
// so a concurrent reader sees either the old record or the new one.
func (s *RedisStore) Upsert(ctx context.Context, conversationID string, ref *ConversationReference) error {
	record := EncodeRecord(ref)
	if err := s.client.HSet(ctx, s.key(conversationID), record).Err(); err != nil {
		return fmt.Errorf("writing conversation reference %s: %w", conversationID, err)
	}
	return nil
}

// Get returns the record or ErrNotFound. Engine failures degrade to
// ErrNotFound after logging; read paths never propagate backend errors.
func (s *RedisStore) Get(ctx context.Context, conversationID string) (*ConversationReference, error) {
	record, err := s.client.HGetAll(ctx, s.key(conversationID)).Result()
	if err != nil {
		s.logger.Error("failed to read conversation reference", "conversation_id", conversationID, "error", err)
		return nil, ErrNotFound
	}
	if len(record) == 0 {
		return nil, ErrNotFound
	}
	return DecodeRecord(record), nil
}

// ListAll enumerates all prefixed keys via SCAN and returns their records.
// Engine failures degrade to an empty snapshot after logging.
func (s *RedisStore) ListAll(ctx context.Context) (map[string]*ConversationReference, error) {
	out := make(map[string]*ConversationReference)

	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		record, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			s.logger.Error("failed to read conversation reference", "key", key, "error", err)
			continue
		}
		if len(record) == 0 {
			continue
		}
		out[strings.TrimPrefix(key, s.prefix)] = DecodeRecord(record)
	}
	if err := iter.Err(); err != nil {
		s.logger.Error("failed to enumerate conversation references", "error", err)
		return map[string]*ConversationReference{}, nil
	}
	return out, nil
}

// Delete removes the hash for conversationID; unknown ids are a no-op.
func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, s.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("deleting conversation reference %s: %w", conversationID, err)
	}
	return nil
}

// Clear removes every prefixed key.
func (s *RedisStore) Clear(ctx context.Context) error {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("enumerating conversation references: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clearing conversation references: %w", err)
	}
	return nil
}

// Diagnostics queries INFO and reports version, client count, memory usage
// and the number of stored references.
func (s *RedisStore) Diagnostics(ctx context.Context) (*EngineStatus, error) {
	info, err := s.client.Info(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("querying redis info: %w", err)
	}

	fields := parseInfo(info)
	status := &EngineStatus{
		Engine:     "redis",
		Version:    fields["redis_version"],
		UsedMemory: fields["used_memory_human"],
	}
	if n, err := strconv.Atoi(fields["connected_clients"]); err == nil {
		status.ConnectedClients = n
	}

	count := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("counting conversation references: %w", err)
	}
	status.TotalRecords = count

	return status, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// parseInfo splits a redis INFO response into key/value pairs.
func parseInfo(info string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			fields[k] = v
		}
	}
	return fields
}
