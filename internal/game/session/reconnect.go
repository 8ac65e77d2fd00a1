package session

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/apperrors"
	"github.com/palemoky/chkobba/internal/protocol"
)

// graceTimer 断线等待计时器
type graceTimer struct {
	timer *time.Timer
	gen   uint64
}

// disconnect 非主动断线：标记离线并开始等待重连
func (s *Session) disconnect(playerID string) error {
	_, p := s.findPlayer(playerID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}
	if !p.Connected {
		return nil
	}
	p.Connected = false

	s.cancelGrace(playerID)
	s.graceGen++
	gen := s.graceGen
	s.grace[playerID] = &graceTimer{
		gen: gen,
		timer: time.AfterFunc(s.opts.ReconnectGrace, func() {
			s.post(graceExpiredMsg{playerID: playerID, gen: gen})
		}),
	}

	s.log.Info("⏸️ 玩家离线，等待重连", zap.String("player", p.Name), zap.Duration("grace", s.opts.ReconnectGrace))
	s.broadcast(protocol.MsgPlayerOffline, protocol.PlayerOfflinePayload{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Timeout:    int(s.opts.ReconnectGrace / time.Second),
	})

	if s.phase != PhasePlaying || !s.ensurePlayable() {
		return nil
	}
	// 离线玩家不占用回合，立即代为出牌
	if s.currentTurn == playerID {
		s.autoPlay(p)
	}
	return nil
}

// ensurePlayable 在座或在线人数不足时强制结束，返回 false 表示已结束
func (s *Session) ensurePlayable() bool {
	if len(s.players) >= s.mode.minPlayers() && s.mode.enoughConnected(s) {
		return true
	}
	s.forceEnd(protocol.ReasonInsufficientPlayers)
	return false
}

// resume 重连：已在线时什么都不做
func (s *Session) resume(playerID string) error {
	_, p := s.findPlayer(playerID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}
	if p.Connected {
		return nil
	}
	p.Connected = true
	s.cancelGrace(playerID)

	s.log.Info("▶️ 玩家重连", zap.String("player", p.Name))
	s.broadcast(protocol.MsgPlayerOnline, protocol.PlayerOnlinePayload{PlayerID: p.ID, PlayerName: p.Name})
	return nil
}

func (s *Session) cancelGrace(playerID string) {
	if g, ok := s.grace[playerID]; ok {
		g.timer.Stop()
		delete(s.grace, playerID)
	}
}

func (s *Session) cancelAllGrace() {
	for id := range s.grace {
		s.cancelGrace(id)
	}
}

func (s *Session) onGraceExpired(playerID string, gen uint64) {
	g, ok := s.grace[playerID]
	if !ok || g.gen != gen {
		return
	}
	delete(s.grace, playerID)
	// 对局结束后保留座位，直到房间销毁
	if s.phase == PhaseFinished {
		return
	}

	_, p := s.findPlayer(playerID)
	if p == nil || p.Connected {
		return
	}
	s.log.Info("⌛ 重连超时，移除玩家", zap.String("player", p.Name))
	s.removePlayer(playerID)
}

// leave 主动离开，立即移除
func (s *Session) leave(playerID string) error {
	_, p := s.findPlayer(playerID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}
	s.cancelGrace(playerID)
	s.removePlayer(playerID)
	return nil
}

// removePlayer 移除玩家并检查是否还能继续游戏
func (s *Session) removePlayer(playerID string) {
	idx, p := s.findPlayer(playerID)
	if p == nil {
		return
	}

	if s.phase == PhasePlaying {
		// 手牌和吃到的牌回到牌堆，保证总数不变
		s.deck = append(s.deck, p.Hand...)
		s.deck = append(s.deck, p.Captured...)
		p.Hand, p.Captured = nil, nil
		if s.lastCapturePlayerID == playerID {
			s.lastCapturePlayerID = ""
		}
	}

	pos := slices.Index(s.turnOrder, playerID)
	s.players = slices.Delete(s.players, idx, idx+1)
	s.turnOrder = slices.DeleteFunc(s.turnOrder, func(id string) bool { return id == playerID })
	s.pending.removePlayer(playerID)
	if s.roster != nil {
		s.roster.Remove(playerID)
	}

	s.broadcast(protocol.MsgPlayerLeave, protocol.PlayerLeavePayload{ID: p.ID, Name: p.Name})
	if s.hooks.OnPlayerRemoved != nil {
		go s.hooks.OnPlayerRemoved(playerID)
	}

	if s.phase != PhasePlaying || !s.ensurePlayable() {
		return
	}
	// 轮到被移除的玩家时交给顺序中的下一位
	if s.currentTurn == playerID && pos >= 0 && len(s.turnOrder) > 0 {
		s.activateTurn(s.turnOrder[pos%len(s.turnOrder)])
	}
}
