package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/server/storage"
)

const (
	// 默认重连等待时间，与房间内的断线等待一致
	defaultReconnectTimeout = 40 * time.Second
	// 会话过期时间
	sessionExpireTime = 10 * time.Minute
	// 单次 Redis 写入超时
	storeTimeout = 2 * time.Second
)

// Store 会话镜像存储，便于运维排查在线状态
type Store interface {
	SaveSession(ctx context.Context, ps *storage.PlayerSessionData) error
	DeleteSession(ctx context.Context, playerID string) error
}

// PlayerSession 玩家会话（用于断线重连）
type PlayerSession struct {
	PlayerID       string
	PlayerName     string
	ReconnectToken string
	RoomCode       string

	DisconnectedAt time.Time // 断线时间
	IsOnline       bool      // 是否在线

	mu sync.RWMutex
}

func (ps *PlayerSession) record() *storage.PlayerSessionData {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	rec := &storage.PlayerSessionData{
		PlayerID:       ps.PlayerID,
		PlayerName:     ps.PlayerName,
		ReconnectToken: ps.ReconnectToken,
		RoomCode:       ps.RoomCode,
		IsOnline:       ps.IsOnline,
	}
	if !ps.DisconnectedAt.IsZero() {
		rec.DisconnectedAt = ps.DisconnectedAt.Unix()
	}
	return rec
}

// Room 玩家所在房间号
func (ps *PlayerSession) Room() string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.RoomCode
}

// Options 会话管理参数
type Options struct {
	ReconnectTimeout time.Duration
	Store            Store // 可为 nil
	Logger           *zap.Logger
}

// SessionManager 会话管理器
type SessionManager struct {
	sessions map[string]*PlayerSession // playerID -> session
	tokens   map[string]string         // token -> playerID
	mu       sync.RWMutex

	reconnectTimeout time.Duration
	store            Store
	log              *zap.Logger
}

// NewSessionManager 创建会话管理器，ctx 结束时清理协程退出
func NewSessionManager(ctx context.Context, opts Options) *SessionManager {
	if opts.ReconnectTimeout <= 0 {
		opts.ReconnectTimeout = defaultReconnectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	sm := &SessionManager{
		sessions:         make(map[string]*PlayerSession),
		tokens:           make(map[string]string),
		reconnectTimeout: opts.ReconnectTimeout,
		store:            opts.Store,
		log:              opts.Logger.Named("session"),
	}

	// 启动会话清理协程
	go sm.cleanupLoop(ctx)

	return sm
}

// CreateSession 创建新会话
func (sm *SessionManager) CreateSession(playerID, playerName string) *PlayerSession {
	sm.mu.Lock()
	token := generateToken()
	session := &PlayerSession{
		PlayerID:       playerID,
		PlayerName:     playerName,
		ReconnectToken: token,
		IsOnline:       true,
	}
	sm.sessions[playerID] = session
	sm.tokens[token] = playerID
	sm.mu.Unlock()

	sm.mirror(session)
	return session
}

// GetSession 获取会话
func (sm *SessionManager) GetSession(playerID string) *PlayerSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[playerID]
}

// GetSessionByToken 通过 token 获取会话
func (sm *SessionManager) GetSessionByToken(token string) *PlayerSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	playerID, ok := sm.tokens[token]
	if !ok {
		return nil
	}
	return sm.sessions[playerID]
}

// update 修改会话字段并同步到存储
func (sm *SessionManager) update(playerID string, fn func(ps *PlayerSession)) {
	sm.mu.RLock()
	session, ok := sm.sessions[playerID]
	sm.mu.RUnlock()
	if !ok {
		return
	}

	session.mu.Lock()
	fn(session)
	session.mu.Unlock()
	sm.mirror(session)
}

// SetOffline 设置玩家离线
func (sm *SessionManager) SetOffline(playerID string) {
	sm.update(playerID, func(ps *PlayerSession) {
		ps.IsOnline = false
		ps.DisconnectedAt = time.Now()
	})
}

// SetOnline 设置玩家上线
func (sm *SessionManager) SetOnline(playerID string) {
	sm.update(playerID, func(ps *PlayerSession) {
		ps.IsOnline = true
		ps.DisconnectedAt = time.Time{}
	})
}

// SetRoom 设置玩家所在房间
func (sm *SessionManager) SetRoom(playerID, roomCode string) {
	sm.update(playerID, func(ps *PlayerSession) {
		ps.RoomCode = roomCode
	})
}

// SetName 记录入座时使用的名字，重连后沿用
func (sm *SessionManager) SetName(playerID, name string) {
	sm.update(playerID, func(ps *PlayerSession) {
		ps.PlayerName = name
	})
}

// DeleteSession 删除会话
func (sm *SessionManager) DeleteSession(playerID string) {
	sm.mu.Lock()
	session, ok := sm.sessions[playerID]
	if ok {
		delete(sm.tokens, session.ReconnectToken)
		delete(sm.sessions, playerID)
	}
	sm.mu.Unlock()

	if ok && sm.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := sm.store.DeleteSession(ctx, playerID); err != nil {
			sm.log.Warn("删除会话失败", zap.String("player", playerID), zap.Error(err))
		}
	}
}

// CanReconnect 检查玩家是否可以重连
func (sm *SessionManager) CanReconnect(token, playerID string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	storedPlayerID, ok := sm.tokens[token]
	if !ok || storedPlayerID != playerID {
		return false
	}

	session, ok := sm.sessions[playerID]
	if !ok {
		return false
	}

	session.mu.RLock()
	defer session.mu.RUnlock()

	// 检查是否在重连时限内
	if !session.IsOnline && time.Since(session.DisconnectedAt) > sm.reconnectTimeout {
		return false
	}

	return true
}

// IsOnline 检查玩家是否在线
func (sm *SessionManager) IsOnline(playerID string) bool {
	sm.mu.RLock()
	session, ok := sm.sessions[playerID]
	sm.mu.RUnlock()

	if !ok {
		return false
	}

	session.mu.RLock()
	defer session.mu.RUnlock()
	return session.IsOnline
}

// mirror 把会话写入存储
func (sm *SessionManager) mirror(session *PlayerSession) {
	if sm.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := sm.store.SaveSession(ctx, session.record()); err != nil {
		sm.log.Warn("保存会话失败", zap.String("player", session.PlayerID), zap.Error(err))
	}
}

// cleanupLoop 定期清理过期会话
func (sm *SessionManager) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sm.cleanup(now)
		}
	}
}

// cleanup 清理离线超过会话过期时间的会话
func (sm *SessionManager) cleanup(now time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for playerID, session := range sm.sessions {
		session.mu.RLock()
		expired := !session.IsOnline && now.Sub(session.DisconnectedAt) > sessionExpireTime
		session.mu.RUnlock()
		if expired {
			delete(sm.tokens, session.ReconnectToken)
			delete(sm.sessions, playerID)
		}
	}
}

// generateToken 生成随机 token
func generateToken() string {
	bytes := make([]byte, 32)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
