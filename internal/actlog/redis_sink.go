package actlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSinkConfig 描述 Redis 分发器的连接参数。
type RedisSinkConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
	MaxLen   int64
}

// RedisSink 将活动记录以 JSON 形式 LPUSH 到 Redis list，供面板消费。
type RedisSink struct {
	client *redis.Client
	key    string
	maxLen int64
}

// NewRedisSink 创建 Redis 分发器实例。
func NewRedisSink(cfg RedisSinkConfig) (*RedisSink, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	key := cfg.Key
	if key == "" {
		key = "agentsim:activity"
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 1024
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return &RedisSink{client: client, key: key, maxLen: maxLen}, nil
}

// Emit 将记录推入 Redis 并裁剪超出上限的历史。
func (s *RedisSink) Emit(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化活动记录失败: %w", err)
	}
	if err := s.client.LPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("Redis 推送活动记录失败: %w", err)
	}
	if err := s.client.LTrim(ctx, s.key, 0, s.maxLen-1).Err(); err != nil {
		return fmt.Errorf("Redis 裁剪活动记录失败: %w", err)
	}
	return nil
}

// Close 关闭 Redis 连接。
func (s *RedisSink) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
