package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"turbotransfer/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const historyKey = "turbotransfer:transfers"

// RedisStore keeps the history in a capped Redis list.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, key: historyKey, logger: logger}
}

func (s *RedisStore) Append(ctx context.Context, rec models.TransferRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.key, data)
		pipe.LTrim(ctx, s.key, -HistoryLimit, -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("Analytics: redis append failed: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]models.TransferRecord, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("Analytics: redis read failed: %w", err)
	}
	history := make([]models.TransferRecord, 0, len(raw))
	for _, item := range raw {
		var rec models.TransferRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			s.logger.Warn("Analytics: skipping malformed record", zap.Error(err))
			continue
		}
		history = append(history, rec)
	}
	return history, nil
}
