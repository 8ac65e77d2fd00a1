package room

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/game/session"
	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/server/storage"
	"github.com/palemoky/chkobba/internal/types"
)

const (
	roomCodeLength = 6            // 房间号长度
	roomCodeChars  = "0123456789" // 房间号字符集
)

// SnapshotStore 房间快照持久化
type SnapshotStore interface {
	SaveRoom(ctx context.Context, rec *storage.RoomRecord) error
	DeleteRoom(ctx context.Context, code string) error
}

// ResultRecorder 对局结算记录（排行榜）
type ResultRecorder interface {
	RecordResult(ctx context.Context, result session.Result) error
}

// Room 游戏房间：一个会话加上在座玩家的在线连接
// 实现 session.Notifier，把会话的通知转发给对应客户端
type Room struct {
	Code      string
	GameMode  string
	CreatedAt time.Time

	session *session.Session
	clients map[string]types.ClientInterface // playerID -> 当前连接

	mu sync.RWMutex
}

func newRoom(code, gameMode string) *Room {
	return &Room{
		Code:      code,
		GameMode:  gameMode,
		CreatedAt: time.Now(),
		clients:   make(map[string]types.ClientInterface),
	}
}

// Session 房间的游戏会话
func (r *Room) Session() *session.Session {
	return r.session
}

// Summary 房间会话的轻量状态
func (r *Room) Summary() session.Summary {
	return r.session.Summary()
}

// Broadcast 发送给所有在线玩家
func (r *Room) Broadcast(msg *protocol.Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		c.SendMessage(msg)
	}
}

// SendTo 发送给指定玩家，离线时丢弃
func (r *Room) SendTo(playerID string, msg *protocol.Message) {
	r.mu.RLock()
	c := r.clients[playerID]
	r.mu.RUnlock()
	if c != nil {
		c.SendMessage(msg)
	}
}

// attach 绑定玩家的连接，重连时替换旧连接
func (r *Room) attach(c types.ClientInterface) {
	r.mu.Lock()
	r.clients[c.GetID()] = c
	r.mu.Unlock()
	c.SetRoom(r.Code)
}

// detach 解绑玩家的连接；c 非空时只在仍是同一连接时解绑
func (r *Room) detach(playerID string, c types.ClientInterface) types.ClientInterface {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.clients[playerID]
	if !ok || (c != nil && cur != c) {
		return nil
	}
	delete(r.clients, playerID)
	return cur
}

// Client 获取玩家当前连接
func (r *Room) Client(playerID string) types.ClientInterface {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[playerID]
}

// detachAll 解绑所有连接并清除客户端的房间标记
func (r *Room) detachAll() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]types.ClientInterface)
	r.mu.Unlock()

	for _, c := range clients {
		if c.GetRoom() == r.Code {
			c.SetRoom("")
		}
	}
}

// ToListItem 转换为房间列表项
func (r *Room) ToListItem() protocol.RoomListItem {
	sum := r.Summary()
	return protocol.RoomListItem{
		RoomCode:    r.Code,
		GameMode:    r.GameMode,
		Phase:       string(sum.Phase),
		PlayerCount: sum.PlayerCount,
		MaxPlayers:  sum.Capacity,
	}
}

// Options 房间管理参数
type Options struct {
	Session         session.Options
	RoomTimeout     time.Duration // 等待阶段房间超时
	CleanupDelay    time.Duration // 游戏结束后房间保留时长
	CleanupInterval time.Duration // 清理扫描间隔
}

func (o Options) withDefaults() Options {
	if o.RoomTimeout <= 0 {
		o.RoomTimeout = 10 * time.Minute
	}
	if o.CleanupDelay <= 0 {
		o.CleanupDelay = 5 * time.Second
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = time.Minute
	}
	return o
}

// RoomManager 房间管理器
type RoomManager struct {
	store    SnapshotStore  // 可为 nil
	recorder ResultRecorder // 可为 nil
	opts     Options
	log      *zap.Logger
	ctx      context.Context

	rooms   map[string]*Room
	players map[string]string // playerID -> 房间号
	mu      sync.RWMutex

	// 串行化加入流程，保证查找与入座是原子的
	joinMu sync.Mutex
}

// NewRoomManager 创建房间管理器，ctx 结束时清理协程退出
func NewRoomManager(ctx context.Context, store SnapshotStore, recorder ResultRecorder, opts Options, log *zap.Logger) *RoomManager {
	if log == nil {
		log = zap.NewNop()
	}
	rm := &RoomManager{
		store:    store,
		recorder: recorder,
		opts:     opts.withDefaults(),
		log:      log.Named("room"),
		ctx:      ctx,
		rooms:    make(map[string]*Room),
		players:  make(map[string]string),
	}

	// 启动房间清理协程
	go rm.cleanupLoop(ctx)

	return rm
}
