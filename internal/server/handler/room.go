package handler

import (
	"context"

	"github.com/palemoky/chkobba/internal/apperrors"
	"github.com/palemoky/chkobba/internal/game/room"
	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/types"
)

// handleJoin 按模式加入房间，维护模式下拒绝
func (h *Handler) handleJoin(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.JoinPayload](client, msg)
	if !ok {
		return
	}
	if h.server.IsMaintenanceMode() {
		h.sendError(client, apperrors.ErrMaintenance)
		return
	}

	rm, err := h.roomManager.Join(ctx, client, payload.Name, payload.GameMode, payload.TeamID)
	if err != nil {
		h.sendError(client, err)
		return
	}

	id := client.GetID()
	h.sessionManager.SetName(id, payload.Name)
	h.sessionManager.SetRoom(id, rm.Code)
}

// handleLeave 主动离开房间
func (h *Handler) handleLeave(ctx context.Context, client types.ClientInterface, _ *protocol.Message) {
	if err := h.roomManager.Leave(ctx, client); err != nil {
		h.sendError(client, err)
		return
	}
	h.sessionManager.SetRoom(client.GetID(), "")
}

// handleSelectTeam 2v2 等待阶段换队
func (h *Handler) handleSelectTeam(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.SelectTeamPayload](client, msg)
	if !ok {
		return
	}
	rm, ok := h.roomOf(client)
	if !ok {
		return
	}
	if err := rm.Session().SelectTeam(ctx, client.GetID(), payload.TeamID); err != nil {
		h.sendError(client, err)
	}
}

// roomOf 玩家所在房间，不在房间时回复错误
func (h *Handler) roomOf(client types.ClientInterface) (*room.Room, bool) {
	rm := h.roomManager.GetRoomByPlayerID(client.GetID())
	if rm == nil {
		h.sendError(client, apperrors.ErrNotInRoom)
		return nil, false
	}
	return rm, true
}
