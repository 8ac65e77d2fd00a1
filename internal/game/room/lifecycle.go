package room

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/game/session"
	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
	"github.com/palemoky/chkobba/internal/server/storage"
)

// storeTimeout 单次 Redis 写入的超时
const storeTimeout = 3 * time.Second

// hooksFor 会话事件回调，均在会话之外的 goroutine 中执行
func (rm *RoomManager) hooksFor(room *Room) session.Hooks {
	return session.Hooks{
		OnPlayerRemoved: func(playerID string) {
			rm.forget(room, playerID)
		},
		OnRoundEnd: func(snap session.Snapshot) {
			rm.persist(room, snap)
		},
		OnGameEnd: func(result session.Result) {
			rm.onGameEnd(room, result)
		},
	}
}

func (rm *RoomManager) onGameEnd(room *Room, result session.Result) {
	rm.log.Info("🏁 游戏结束",
		zap.String("room", room.Code),
		zap.String("winner", result.Winner),
		zap.String("team", result.WinningTeam),
		zap.Bool("forced", result.Forced),
		zap.Int("rounds", result.Rounds))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(rm.ctx), storeTimeout)
	defer cancel()

	if rm.recorder != nil {
		if err := rm.recorder.RecordResult(ctx, result); err != nil {
			rm.log.Warn("记录战绩失败", zap.String("room", room.Code), zap.Error(err))
		}
	}
	if snap, err := room.session.Snapshot(ctx); err == nil {
		rm.persist(room, snap)
	}

	// 保留一小段时间让客户端收到结算，再销毁房间
	time.AfterFunc(rm.opts.CleanupDelay, func() { rm.dispose(room.Code) })
}

// persist 保存房间快照到 Redis
func (rm *RoomManager) persist(room *Room, snap session.Snapshot) {
	if rm.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(rm.ctx), storeTimeout)
	defer cancel()

	rec := &storage.RoomRecord{
		Code:      room.Code,
		GameMode:  room.GameMode,
		CreatedAt: room.CreatedAt.Unix(),
		Snapshot:  snap,
	}
	if err := rm.store.SaveRoom(ctx, rec); err != nil {
		rm.log.Warn("保存房间快照失败", zap.String("room", room.Code), zap.Error(err))
	}
}

// dispose 销毁房间：关闭会话，解除所有玩家关联，删除快照
func (rm *RoomManager) dispose(code string) {
	rm.mu.Lock()
	room, ok := rm.rooms[code]
	if !ok {
		rm.mu.Unlock()
		return
	}
	delete(rm.rooms, code)
	for playerID, c := range rm.players {
		if c == code {
			delete(rm.players, playerID)
		}
	}
	rm.mu.Unlock()

	room.session.Close()
	room.detachAll()

	if rm.store != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(rm.ctx), storeTimeout)
		defer cancel()
		if err := rm.store.DeleteRoom(ctx, code); err != nil {
			rm.log.Warn("删除房间快照失败", zap.String("room", code), zap.Error(err))
		}
	}
	rm.log.Info("🧹 房间已销毁", zap.String("room", code))
}

// generateRoomCode 生成房间号，调用方需持有 rm.mu
func (rm *RoomManager) generateRoomCode() string {
	for {
		code := make([]byte, roomCodeLength)
		for i := range code {
			code[i] = roomCodeChars[rand.IntN(len(roomCodeChars))]
		}
		codeStr := string(code)
		if _, exists := rm.rooms[codeStr]; !exists {
			return codeStr
		}
	}
}

// cleanupLoop 定期清理超时房间
func (rm *RoomManager) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(rm.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rm.cleanup(now)
		}
	}
}

// cleanup 清理等待超时的房间和残留的已结束房间
func (rm *RoomManager) cleanup(now time.Time) {
	rm.mu.RLock()
	var expired []*Room
	for _, room := range rm.rooms {
		sum := room.Summary()
		switch {
		case sum.Phase == session.PhaseWaiting && now.Sub(room.CreatedAt) > rm.opts.RoomTimeout:
			expired = append(expired, room)
		case sum.Phase == session.PhaseFinished && now.Sub(room.CreatedAt) > rm.opts.CleanupDelay:
			expired = append(expired, room)
		}
	}
	rm.mu.RUnlock()

	for _, room := range expired {
		if room.Summary().Phase == session.PhaseWaiting {
			// 通知所有玩家房间已关闭
			room.Broadcast(codec.NewErrorMessageWithText(protocol.ErrCodeRoomNotFound, "Room timed out and was closed."))
			rm.log.Info("⏰ 房间等待超时", zap.String("room", room.Code))
		}
		rm.dispose(room.Code)
	}
}

// Shutdown 销毁所有房间
func (rm *RoomManager) Shutdown() {
	rm.mu.RLock()
	codes := make([]string, 0, len(rm.rooms))
	for code := range rm.rooms {
		codes = append(codes, code)
	}
	rm.mu.RUnlock()

	for _, code := range codes {
		rm.dispose(code)
	}
}
