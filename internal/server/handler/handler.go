package handler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/apperrors"
	"github.com/palemoky/chkobba/internal/game/room"
	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
	"github.com/palemoky/chkobba/internal/server/session"
	"github.com/palemoky/chkobba/internal/server/storage"
	"github.com/palemoky/chkobba/internal/types"
)

// requestTimeout 单条消息等待会话应答的上限
const requestTimeout = 5 * time.Second

// Leaderboard 战绩与排行榜查询
type Leaderboard interface {
	GetPlayerStats(ctx context.Context, playerID string) (*storage.PlayerStats, error)
	GetPlayerRank(ctx context.Context, playerID string) (int64, error)
	GetLeaderboard(ctx context.Context, boardType string, offset, limit int) ([]protocol.LeaderboardEntry, error)
}

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server         types.ServerInterface
	RoomManager    *room.RoomManager
	Leaderboard    Leaderboard // 可为 nil
	SessionManager *session.SessionManager
	Logger         *zap.Logger
}

// Handler 消息处理器
type Handler struct {
	server         types.ServerInterface
	roomManager    *room.RoomManager
	leaderboard    Leaderboard
	sessionManager *session.SessionManager
	log            *zap.Logger
	handlers       map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(ctx context.Context, client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &Handler{
		server:         deps.Server,
		roomManager:    deps.RoomManager,
		leaderboard:    deps.Leaderboard,
		sessionManager: deps.SessionManager,
		log:            deps.Logger.Named("handler"),
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing:      h.handlePing,
		protocol.MsgReconnect: h.handleReconnect,

		// 房间操作
		protocol.MsgJoin:       h.handleJoin,
		protocol.MsgLeave:      h.handleLeave,
		protocol.MsgSelectTeam: h.handleSelectTeam,

		// 游戏操作
		protocol.MsgPlayCard:     h.handlePlayCard,
		protocol.MsgCaptureCards: h.handleCaptureCards,
		protocol.MsgKoom:         h.handleKoom,
		protocol.MsgReorderHand:  h.handleReorderHand,

		// 信息查询
		protocol.MsgGetStats:       h.handleGetStats,
		protocol.MsgGetLeaderboard: h.handleGetLeaderboard,
		protocol.MsgGetRoomList:    h.handleGetRoomList,
	}
}

// Handle 处理一条客户端消息，msg 在返回后不再被引用
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	handler, ok := h.handlers[msg.Type]
	if !ok {
		h.log.Warn("⚠️ 未知消息类型",
			zap.String("type", string(msg.Type)),
			zap.String("player", client.GetID()),
			zap.Int("payload_bytes", len(msg.Payload)))
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	handler(ctx, client, msg)
}

// parse 解析并校验 payload，失败时回复 invalid 错误
func parse[T any](client types.ClientInterface, msg *protocol.Message) (*T, bool) {
	payload, err := codec.ParsePayload[T](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeInvalidMsg, err.Error()))
		return nil, false
	}
	return payload, true
}

// sendError 把错误回复给客户端，游戏错误带上错误码
func (h *Handler) sendError(client types.ClientInterface, err error) {
	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		client.SendMessage(codec.NewErrorMessageWithText(gameErr.Code, gameErr.Message))
		return
	}
	h.log.Warn("处理消息失败", zap.String("player", client.GetID()), zap.Error(err))
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
}
