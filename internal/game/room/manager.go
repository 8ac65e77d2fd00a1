package room

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/apperrors"
	"github.com/palemoky/chkobba/internal/game/session"
	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
	"github.com/palemoky/chkobba/internal/types"
)

// Join 按模式加入一个等待中的房间，没有空位时新建房间
func (rm *RoomManager) Join(ctx context.Context, client types.ClientInterface, name, gameMode, teamID string) (*Room, error) {
	if gameMode != protocol.ModeTeam {
		gameMode = protocol.ModeIndividual
	}
	playerID := client.GetID()
	if cur := rm.GetRoomByPlayerID(playerID); cur != nil {
		// 已结束的房间只是在等待销毁
		if cur.Summary().Phase != session.PhaseFinished {
			return nil, apperrors.ErrAlreadyInRoom
		}
		rm.forget(cur, playerID)
	}

	rm.joinMu.Lock()
	defer rm.joinMu.Unlock()

	room, err := rm.seat(ctx, rm.findWaiting(gameMode), client, name, teamID, gameMode)
	if errors.Is(err, apperrors.ErrRoomFull) || errors.Is(err, apperrors.ErrGameStarted) {
		// 找到的房间恰好满员或已开局，换一个新房间
		room, err = rm.seat(ctx, nil, client, name, teamID, gameMode)
	}
	if err != nil {
		return nil, err
	}

	rm.mu.Lock()
	rm.players[playerID] = room.Code
	rm.mu.Unlock()

	joined := protocol.JoinedPayload{RoomCode: room.Code, PlayerID: playerID, GameMode: gameMode}
	if st, err := room.session.State(ctx, playerID); err == nil {
		for _, p := range st.Players {
			if p.ID == playerID {
				joined.TeamID = p.TeamID
			}
		}
	}
	client.SendMessage(codec.MustNewMessage(protocol.MsgJoined, joined))

	rm.log.Info("🏠 玩家加入房间", zap.String("room", room.Code), zap.String("player", name), zap.String("mode", gameMode))
	return room, nil
}

// seat 把玩家放进房间；room 为 nil 时按 gameMode 新建
func (rm *RoomManager) seat(ctx context.Context, room *Room, client types.ClientInterface, name, teamID, gameMode string) (*Room, error) {
	created := false
	if room == nil {
		room = rm.createRoom(gameMode)
		created = true
	}

	// 先绑定连接，入座时的广播才能送达本人
	room.attach(client)
	if err := room.session.Join(ctx, client.GetID(), name, teamID); err != nil {
		room.detach(client.GetID(), client)
		client.SetRoom("")
		if created {
			rm.dispose(room.Code)
		}
		return nil, err
	}
	return room, nil
}

// findWaiting 找一个同模式、等待中且未满的房间，优先最早创建的
func (rm *RoomManager) findWaiting(gameMode string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	var best *Room
	for _, room := range rm.rooms {
		if room.GameMode != gameMode {
			continue
		}
		sum := room.Summary()
		if sum.Phase != session.PhaseWaiting || sum.PlayerCount >= sum.Capacity {
			continue
		}
		if best == nil || room.CreatedAt.Before(best.CreatedAt) {
			best = room
		}
	}
	return best
}

// createRoom 新建房间并启动会话
func (rm *RoomManager) createRoom(gameMode string) *Room {
	rm.mu.Lock()
	code := rm.generateRoomCode()
	room := newRoom(code, gameMode)
	room.session = session.New(rm.ctx, code, gameMode, room, rm.opts.Session, rm.hooksFor(room), rm.log)
	rm.rooms[code] = room
	rm.mu.Unlock()

	room.session.Start()
	rm.log.Info("🏠 创建房间", zap.String("room", code), zap.String("mode", gameMode))
	return room
}

// Leave 主动离开房间
func (rm *RoomManager) Leave(ctx context.Context, client types.ClientInterface) error {
	playerID := client.GetID()
	room := rm.GetRoomByPlayerID(playerID)
	if room == nil {
		return apperrors.ErrNotInRoom
	}

	// 先解绑，离开者不再收到本房间的后续广播
	room.detach(playerID, client)
	err := room.session.Leave(ctx, playerID)
	if err != nil && !errors.Is(err, apperrors.ErrPlayerNotFound) {
		room.attach(client)
		return err
	}
	if client.GetRoom() == room.Code {
		client.SetRoom("")
	}
	rm.forget(room, playerID)
	rm.log.Info("🚪 玩家离开房间", zap.String("room", room.Code), zap.String("player", playerID))
	return nil
}

// Disconnect 连接断开：等待阶段直接离开，游戏中进入重连等待
func (rm *RoomManager) Disconnect(ctx context.Context, client types.ClientInterface) {
	playerID := client.GetID()
	room := rm.GetRoomByPlayerID(playerID)
	if room == nil {
		return
	}
	// 已被新连接替换时不做处理
	if room.detach(playerID, client) == nil {
		return
	}

	if room.Summary().Phase == session.PhaseWaiting {
		if err := room.session.Leave(ctx, playerID); err != nil && !errors.Is(err, apperrors.ErrPlayerNotFound) {
			rm.log.Warn("离开房间失败", zap.String("room", room.Code), zap.Error(err))
		}
		rm.forget(room, playerID)
		return
	}

	if err := room.session.Disconnect(ctx, playerID); err != nil && !errors.Is(err, apperrors.ErrPlayerNotFound) {
		rm.log.Warn("标记离线失败", zap.String("room", room.Code), zap.Error(err))
	}
}

// Reconnect 新连接接管玩家在房间中的座位，返回该玩家视角的状态
func (rm *RoomManager) Reconnect(ctx context.Context, client types.ClientInterface) (*Room, *protocol.GameStateDTO, error) {
	playerID := client.GetID()
	room := rm.GetRoomByPlayerID(playerID)
	if room == nil {
		return nil, nil, apperrors.ErrNotInRoom
	}

	room.attach(client)
	if err := room.session.Resume(ctx, playerID); err != nil {
		room.detach(playerID, client)
		client.SetRoom("")
		return nil, nil, err
	}

	st, err := room.session.State(ctx, playerID)
	if err != nil {
		return room, nil, err
	}
	rm.log.Info("📶 玩家重连到房间", zap.String("room", room.Code), zap.String("player", playerID))
	return room, &st, nil
}

// GetRoom 获取房间
func (rm *RoomManager) GetRoom(code string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[code]
}

// GetRoomByPlayerID 获取玩家所在房间
func (rm *RoomManager) GetRoomByPlayerID(playerID string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	code, ok := rm.players[playerID]
	if !ok {
		return nil
	}
	return rm.rooms[code]
}

// GetRoomList 获取房间列表，等待中的房间排在前面
func (rm *RoomManager) GetRoomList() []protocol.RoomListItem {
	rm.mu.RLock()
	rooms := make([]*Room, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		rooms = append(rooms, room)
	}
	rm.mu.RUnlock()

	items := make([]protocol.RoomListItem, 0, len(rooms))
	for _, room := range rooms {
		items = append(items, room.ToListItem())
	}
	slices.SortFunc(items, func(a, b protocol.RoomListItem) int {
		aw, bw := a.Phase == string(session.PhaseWaiting), b.Phase == string(session.PhaseWaiting)
		if aw != bw {
			if aw {
				return -1
			}
			return 1
		}
		return strings.Compare(a.RoomCode, b.RoomCode)
	})
	return items
}

// GetActiveGamesCount 获取进行中的游戏数量
func (rm *RoomManager) GetActiveGamesCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	count := 0
	for _, room := range rm.rooms {
		if room.Summary().Phase == session.PhasePlaying {
			count++
		}
	}
	return count
}

// forget 解除玩家与房间的关联，房间空了且未开局时销毁
func (rm *RoomManager) forget(room *Room, playerID string) {
	rm.mu.Lock()
	if rm.players[playerID] == room.Code {
		delete(rm.players, playerID)
	}
	rm.mu.Unlock()

	if c := room.detach(playerID, nil); c != nil && c.GetRoom() == room.Code {
		c.SetRoom("")
	}

	sum := room.Summary()
	if sum.Phase == session.PhaseWaiting && sum.PlayerCount == 0 {
		rm.dispose(room.Code)
	}
}
