package session

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/game/rule"
	"github.com/palemoky/chkobba/internal/protocol"
)

// --- 回合切换 ---

// nextTurn 返回出牌顺序中当前玩家的下一位，当前玩家不在顺序中时从头开始
func (s *Session) nextTurn() string {
	if len(s.turnOrder) == 0 {
		return ""
	}
	i := slices.Index(s.turnOrder, s.currentTurn)
	return s.turnOrder[(i+1)%len(s.turnOrder)]
}

func (s *Session) advanceTurn() {
	if next := s.nextTurn(); next != "" {
		s.activateTurn(next)
	}
}

// activateTurn 切换当前玩家，重置计时器并广播
func (s *Session) activateTurn(playerID string) {
	_, p := s.findPlayer(playerID)
	if p == nil || s.phase != PhasePlaying {
		return
	}
	for _, other := range s.players {
		other.IsCurrentTurn = false
	}
	p.IsCurrentTurn = true
	s.currentTurn = p.ID
	s.turnStartTime = s.now()
	s.turnNumber++
	// 未完成的吃牌选择只在本回合内有效
	s.pending.clear()
	s.armTurnClock()

	s.broadcast(protocol.MsgTurnChange, protocol.TurnChangePayload{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		TurnNumber: s.turnNumber,
		Timeout:    int(s.opts.TurnTimeout / time.Second),
	})

	// 轮到等待重连的队员时不等计时器，直接代为出牌
	if !p.Connected && s.mode.enoughConnected(s) {
		s.autoPlay(p)
	}
}

// --- 出牌计时 ---

// armTurnClock 同一会话只保留一个计时器，重新计时前先取消旧的
func (s *Session) armTurnClock() {
	s.cancelTurnClock()
	s.turnGen++
	gen := s.turnGen
	s.turnTimer = time.AfterFunc(s.opts.TurnTimeout, func() {
		s.post(turnTimeoutMsg{gen: gen})
	})
}

func (s *Session) cancelTurnClock() {
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
	// 已经触发但尚未处理的提议也随之失效
	s.turnGen++
}

// onTurnTimeout 出牌超时，由服务器代为出牌
func (s *Session) onTurnTimeout(gen uint64) {
	if gen != s.turnGen || s.phase != PhasePlaying {
		return
	}
	s.turnTimer = nil

	_, p := s.findPlayer(s.currentTurn)
	if p == nil {
		s.advanceTurn()
		return
	}

	s.log.Info("⏰ 出牌超时，自动出牌", zap.String("player", p.Name), zap.Int("turn", s.turnNumber))
	s.autoPlay(p)
}

// autoPlay 代为出牌：第一张手牌能吃就吃，否则放到桌面
func (s *Session) autoPlay(p *Player) {
	if !p.Connected {
		s.log.Info("🤖 玩家离线，代为出牌", zap.String("player", p.Name), zap.Int("turn", s.turnNumber))
	}
	s.broadcast(protocol.MsgPlayerTimeout, protocol.PlayerTimeoutPayload{PlayerID: p.ID})

	if len(p.Hand) > 0 {
		played := p.Hand[0]
		if c := rule.CanCapture(played, s.table); c.Capturable() {
			s.capture(p, played, c.Cards)
		} else {
			s.placeOnTable(p, played)
		}
	}
	s.afterMove()
}
