package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/chkobba/internal/game/session"
)

const (
	// Redis key 前缀
	roomKeyPrefix    = "chkobba:room:"
	sessionKeyPrefix = "chkobba:session:"

	// 房间数据过期时间
	roomExpiration = 2 * time.Hour
	// 会话数据过期时间
	sessionExpiration = 10 * time.Minute
)

// RoomRecord 房间快照（用于 Redis 序列化）
type RoomRecord struct {
	Code      string           `json:"code"`
	GameMode  string           `json:"game_mode"`
	CreatedAt int64            `json:"created_at"`
	UpdatedAt int64            `json:"updated_at"`
	Snapshot  session.Snapshot `json:"snapshot"`
}

// RedisStore Redis 存储
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// --- 房间存储 ---

// SaveRoom 保存房间快照，每次保存都会刷新过期时间
func (rs *RedisStore) SaveRoom(ctx context.Context, rec *RoomRecord) error {
	if rec == nil {
		return nil
	}
	if rec.UpdatedAt == 0 {
		rec.UpdatedAt = time.Now().Unix()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("序列化房间数据失败: %w", err)
	}
	return rs.client.Set(ctx, roomKeyPrefix+rec.Code, data, roomExpiration).Err()
}

// LoadRoom 加载房间快照，不存在时返回 nil
func (rs *RedisStore) LoadRoom(ctx context.Context, code string) (*RoomRecord, error) {
	data, err := rs.client.Get(ctx, roomKeyPrefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var rec RoomRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("反序列化房间数据失败: %w", err)
	}
	return &rec, nil
}

// DeleteRoom 删除房间快照
func (rs *RedisStore) DeleteRoom(ctx context.Context, code string) error {
	return rs.client.Del(ctx, roomKeyPrefix+code).Err()
}

// GetAllRoomCodes 获取所有已保存的房间号
func (rs *RedisStore) GetAllRoomCodes(ctx context.Context) ([]string, error) {
	var codes []string
	iter := rs.client.Scan(ctx, 0, roomKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		codes = append(codes, iter.Val()[len(roomKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

// SetRoomExpiration 设置房间过期时间
func (rs *RedisStore) SetRoomExpiration(ctx context.Context, code string, expiration time.Duration) error {
	return rs.client.Expire(ctx, roomKeyPrefix+code, expiration).Err()
}

// --- 会话存储 ---

// PlayerSessionData 玩家会话数据（用于 Redis 序列化）
type PlayerSessionData struct {
	PlayerID       string
	PlayerName     string
	ReconnectToken string
	RoomCode       string
	IsOnline       bool
	DisconnectedAt int64
}

// SaveSession 保存会话到 Redis hash
func (rs *RedisStore) SaveSession(ctx context.Context, ps *PlayerSessionData) error {
	data := map[string]any{
		"player_id":       ps.PlayerID,
		"player_name":     ps.PlayerName,
		"token":           ps.ReconnectToken,
		"room_code":       ps.RoomCode,
		"is_online":       ps.IsOnline,
		"disconnected_at": ps.DisconnectedAt,
	}

	key := sessionKeyPrefix + ps.PlayerID
	pipe := rs.client.TxPipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, sessionExpiration)
	_, err := pipe.Exec(ctx)
	return err
}

// LoadSession 从 Redis 加载会话，不存在时返回 nil
func (rs *RedisStore) LoadSession(ctx context.Context, playerID string) (*PlayerSessionData, error) {
	data, err := rs.client.HGetAll(ctx, sessionKeyPrefix+playerID).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	disconnectedAt, _ := strconv.ParseInt(data["disconnected_at"], 10, 64)
	return &PlayerSessionData{
		PlayerID:       data["player_id"],
		PlayerName:     data["player_name"],
		ReconnectToken: data["token"],
		RoomCode:       data["room_code"],
		IsOnline:       data["is_online"] == "1",
		DisconnectedAt: disconnectedAt,
	}, nil
}

// DeleteSession 删除会话
func (rs *RedisStore) DeleteSession(ctx context.Context, playerID string) error {
	return rs.client.Del(ctx, sessionKeyPrefix+playerID).Err()
}
