// db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/model"
)

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

func CacheStandard(ctx context.Context, standard *model.Standard) error {
	standardJSON, err := json.Marshal(standard)
	if err != nil {
		return fmt.Errorf("failed to marshal standard: %w", err)
	}

	key := fmt.Sprintf("standard:%s", standard.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, standardJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache standard: %w", err)
	}

	logger.Debug("Standard cached successfully", zap.String("standardID", standard.ID))
	return nil
}

func GetCachedStandard(ctx context.Context, standardID string) (*model.Standard, error) {
	key := fmt.Sprintf("standard:%s", standardID)
	standardJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Standard not found in cache", zap.String("standardID", standardID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get standard from cache: %w", err)
	}

	var standard model.Standard
	err = json.Unmarshal([]byte(standardJSON), &standard)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal standard: %w", err)
	}

	logger.Debug("Standard retrieved from cache", zap.String("standardID", standardID))
	return &standard, nil
}

func DeleteCachedStandard(ctx context.Context, standardID string) error {
	key := fmt.Sprintf("standard:%s", standardID)
	if err := RedisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cached standard: %w", err)
	}
	return nil
}

func CacheRule(ctx context.Context, rule *model.PolicyRule) error {
	ruleJSON, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("failed to marshal rule: %w", err)
	}

	key := fmt.Sprintf("rule:%s", rule.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, ruleJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache rule: %w", err)
	}

	logger.Debug("Rule cached successfully", zap.String("ruleID", rule.ID))
	return nil
}

func GetCachedRule(ctx context.Context, ruleID string) (*model.PolicyRule, error) {
	key := fmt.Sprintf("rule:%s", ruleID)
	ruleJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Rule not found in cache", zap.String("ruleID", ruleID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get rule from cache: %w", err)
	}

	var rule model.PolicyRule
	err = json.Unmarshal([]byte(ruleJSON), &rule)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule: %w", err)
	}

	return &rule, nil
}

func DeleteCachedRule(ctx context.Context, ruleID string) error {
	key := fmt.Sprintf("rule:%s", ruleID)
	if err := RedisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cached rule: %w", err)
	}
	return nil
}

func CacheReport(ctx context.Context, report *model.ComplianceReport, ttl time.Duration) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	key := fmt.Sprintf("report:%s", report.ID)
	err = RedisClient.Set(ctx, key, reportJSON, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}

	logger.Debug("Report cached successfully", zap.String("reportID", report.ID))
	return nil
}

func GetCachedReport(ctx context.Context, reportID string) (*model.ComplianceReport, error) {
	key := fmt.Sprintf("report:%s", reportID)
	reportJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Report not found in cache", zap.String("reportID", reportID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get report from cache: %w", err)
	}

	var report model.ComplianceReport
	err = json.Unmarshal([]byte(reportJSON), &report)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}
