// Package redisstate 提供 StateRepository 接口的 Redis 实现。
// 这里只存放派生数据：最近消息缓存、房间活跃度、限流计数器。
// 全部 key 可随时丢弃重建，消息真相始终在数据库。
package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/baijianruoli/bot-chat/internal/domain"
)

// recentCacheSize 每个房间最近消息缓存的最大条数
const recentCacheSize = 50

// RedisStateRepository 是 StateRepository 接口的 Redis 实现
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository 创建 RedisStateRepository 实例
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "chat:"
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key helpers ---

func (r *RedisStateRepository) recentKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:recent", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) activityKey() string {
	return r.keyPrefix + "rooms:activity"
}

// CacheMessage 写透最近消息缓存：LPUSH 最新一条并裁剪到固定长度
func (r *RedisStateRepository) CacheMessage(ctx context.Context, roomID string, msg *domain.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis: marshal message %s: %w", msg.MsgID, err)
	}
	key := r.recentKey(roomID)

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, recentCacheSize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: cache message for room %s: %w", roomID, err)
	}
	return nil
}

// RecentMessages 读取最近消息缓存，按时间正序返回
func (r *RedisStateRepository) RecentMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > recentCacheSize {
		limit = recentCacheSize
	}
	key := r.recentKey(roomID)
	raw, err := r.client.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read recent messages for room %s: %w", roomID, err)
	}

	// 列表头是最新消息，反向解码得到时间正序
	msgs := make([]domain.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg domain.Message
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			// 缓存损坏不致命，丢弃整个缓存由调用方回填
			logrus.WithError(err).WithField("room_id", roomID).Warn("Corrupt entry in recent message cache, dropping cache")
			_ = r.client.Del(ctx, key).Err()
			return nil, nil
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// BackfillRecent 用数据库里的一页消息重建缓存 (msgs 为时间正序)
func (r *RedisStateRepository) BackfillRecent(ctx context.Context, roomID string, msgs []domain.Message) error {
	key := r.recentKey(roomID)

	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)
	for i := range msgs {
		payload, err := json.Marshal(&msgs[i])
		if err != nil {
			return fmt.Errorf("redis: marshal message %s for backfill: %w", msgs[i].MsgID, err)
		}
		// 正序遍历 + LPUSH，列表头最终是最新一条
		pipe.LPush(ctx, key, payload)
	}
	pipe.LTrim(ctx, key, 0, recentCacheSize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: backfill recent messages for room %s: %w", roomID, err)
	}
	return nil
}

// TouchRoomActivity 以当前毫秒时间戳更新房间活跃度 ZSET
func (r *RedisStateRepository) TouchRoomActivity(ctx context.Context, roomID string) error {
	err := r.client.ZAdd(ctx, r.activityKey(), &redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: roomID,
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: touch activity for room %s: %w", roomID, err)
	}
	return nil
}

// IdleRooms 返回最近活动早于 olderThan 的房间
func (r *RedisStateRepository) IdleRooms(ctx context.Context, olderThan time.Time) ([]string, error) {
	max := strconv.FormatInt(olderThan.UnixMilli(), 10)
	ids, err := r.client.ZRangeByScore(ctx, r.activityKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: query idle rooms: %w", err)
	}
	return ids, nil
}

// CleanupRoomState 删除房间的全部派生 key
func (r *RedisStateRepository) CleanupRoomState(ctx context.Context, roomID string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.recentKey(roomID))
	pipe.ZRem(ctx, r.activityKey(), roomID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: cleanup state for room %s: %w", roomID, err)
	}
	return nil
}

// CheckRateLimit 用 INCR + EXPIRE 管道实现固定窗口限流
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := r.keyPrefix + "ratelimit:" + key

	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate limit check for %s: %w", key, err)
	}

	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit result for %s: %w", key, err)
	}
	return count > int64(limit), nil
}
