package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
	"github.com/palemoky/chkobba/internal/types"
)

// handlePing 处理心跳消息
func (h *Handler) handlePing(_ context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.PingPayload](msg)
	if err != nil {
		return
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: payload.Timestamp,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}

// handleReconnect 新连接凭令牌接管旧的玩家身份，在房间中时恢复座位
func (h *Handler) handleReconnect(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.ReconnectPayload](client, msg)
	if !ok {
		return
	}

	if !h.sessionManager.CanReconnect(payload.Token, payload.PlayerID) {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeReconnect))
		return
	}
	ps := h.sessionManager.GetSession(payload.PlayerID)
	if ps == nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeReconnect))
		return
	}

	// 丢弃这条连接建立时分配的临时身份
	tempID := client.GetID()
	if tempID != ps.PlayerID {
		if h.roomManager.GetRoomByPlayerID(tempID) != nil {
			client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInRoom))
			return
		}
		h.server.UnregisterClient(tempID)
		h.sessionManager.DeleteSession(tempID)
	}

	client.SetIdentity(ps.PlayerID, ps.PlayerName)
	old := h.server.GetClientByID(ps.PlayerID)
	h.server.RegisterClient(ps.PlayerID, client)
	if old != nil && old != client {
		// 半开的旧连接，断开后不会再触发离线处理
		old.Close()
	}
	h.sessionManager.SetOnline(ps.PlayerID)

	resp := protocol.ReconnectedPayload{
		PlayerID:   ps.PlayerID,
		PlayerName: ps.PlayerName,
	}
	if h.roomManager.GetRoomByPlayerID(ps.PlayerID) != nil {
		rm, state, err := h.roomManager.Reconnect(ctx, client)
		if err != nil {
			h.log.Info("恢复房间失败", zap.String("player", ps.PlayerID), zap.Error(err))
			h.sessionManager.SetRoom(ps.PlayerID, "")
		} else {
			resp.RoomCode = rm.Code
			resp.State = state
		}
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgReconnected, resp))
	h.log.Info("🔄 玩家重连成功", zap.String("player", ps.PlayerID), zap.String("room", resp.RoomCode))
}
