package utils

import (
	"context"
	"fmt"
	"time"

	"turbotransfer/config"

	"github.com/go-redis/redis/v8"
)

// AnalyticsCacheClient is the Redis client backing transfer history when the
// redis analytics backend is selected.
var AnalyticsCacheClient *redis.Client

// InitAnalyticsCache connects to the analytics Redis DB and verifies it answers.
func InitAnalyticsCache() error {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisAnalyticsDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to Redis (Analytics): %w", err)
	}
	AnalyticsCacheClient = client
	return nil
}

// CloseAnalyticsCache releases the analytics client if one was opened.
func CloseAnalyticsCache() {
	if AnalyticsCacheClient != nil {
		_ = AnalyticsCacheClient.Close()
		AnalyticsCacheClient = nil
	}
}
