package session

import (
	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/game/card"
	"github.com/palemoky/chkobba/internal/game/score"
	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/convert"
)

// tryStart 满足当前模式的开局条件时开始游戏
func (s *Session) tryStart() {
	if s.phase != PhaseWaiting || !s.mode.canStart(s) {
		return
	}
	s.startGame()
}

func (s *Session) startGame() {
	s.phase = PhasePlaying
	s.round = 1
	s.turnNumber = 0
	s.winner, s.winningTeam, s.endReason = "", "", ""
	for _, p := range s.players {
		p.Score = 0
		p.Kooms = 0
	}
	if s.roster != nil {
		s.roster.ResetScores()
	}
	s.resetRound()

	s.log.Info("🎮 游戏开始", zap.String("mode", s.mode.name()), zap.Strings("turnOrder", s.turnOrder))
	s.broadcast(protocol.MsgGameStart, protocol.GameStartPayload{
		Players:   s.playerInfos(),
		TurnOrder: s.turnOrder,
		FirstTurn: s.turnOrder[0],
	})
	s.activateTurn(s.turnOrder[0])
}

// resetRound 新一副牌：清空手牌、吃牌和桌面，洗牌后发桌面牌和手牌，重算出牌顺序
func (s *Session) resetRound() {
	for _, p := range s.players {
		p.Hand = nil
		p.Captured = nil
		p.LastCapture = false
		p.IsCurrentTurn = false
	}
	s.lastCapturePlayerID = ""
	s.currentTurn = ""
	s.pending.clear()

	s.deck = card.NewShuffledDeck(s.rng)
	s.dealHands()
	s.table = s.deck.Draw(TableStarter)
	s.turnOrder = s.mode.turnOrder(s)
}

// dealHands 按出牌顺序轮流发牌，每人 HandSize 张
func (s *Session) dealHands() {
	order := s.mode.turnOrder(s)
	for range HandSize {
		for _, id := range order {
			if len(s.deck) == 0 {
				return
			}
			if _, p := s.findPlayer(id); p != nil {
				p.Hand = append(p.Hand, s.deck.Draw(1)...)
			}
		}
	}
}

func (s *Session) allHandsEmpty() bool {
	for _, p := range s.players {
		if len(p.Hand) > 0 {
			return false
		}
	}
	return true
}

// afterMove 每次出牌后：手牌全空时补牌或结束本局，否则轮到下一位
func (s *Session) afterMove() {
	if s.phase != PhasePlaying {
		return
	}
	if s.allHandsEmpty() {
		if len(s.deck) == 0 {
			s.endRound()
			return
		}
		s.dealHands()
		s.log.Debug("🃏 补牌", zap.Int("deck", len(s.deck)))
	}
	s.advanceTurn()
}

// endRound 剩余桌面牌归最后吃牌者，计分，判定胜负或开始下一局
func (s *Session) endRound() {
	if _, last := s.findPlayer(s.lastCapturePlayerID); last != nil {
		last.Captured = append(last.Captured, s.table...)
		s.table = nil
		last.LastCapture = true
	}

	piles := make([]score.Pile, len(s.players))
	for i, p := range s.players {
		piles[i] = score.Pile{PlayerID: p.ID, Captured: p.Captured, LastCapture: p.LastCapture}
	}
	s.lastScores = score.Breakdowns(piles)
	points := make(map[string]int, len(s.lastScores))
	for _, b := range s.lastScores {
		points[b.PlayerID] = b.Total
	}
	s.mode.applyRoundScores(s, points)

	s.log.Info("🏁 本局结束", zap.Int("round", s.round), zap.Any("points", points))
	s.fireRoundEnd()

	if playerID, teamID, ok := s.mode.winner(s); ok {
		s.finish(playerID, teamID)
		return
	}
	s.startNewRound()
}

func (s *Session) startNewRound() {
	s.round++
	s.resetRound()

	s.broadcast(protocol.MsgNewRound, protocol.NewRoundPayload{
		Round:  s.round,
		Scores: convert.BreakdownsToScores(s.lastScores),
	})
	s.activateTurn(s.turnOrder[0])
}

// finish 正常结束，记录赢家
func (s *Session) finish(playerID, teamID string) {
	s.enterFinished()
	s.winner, s.winningTeam = playerID, teamID

	payload := protocol.GameEndPayload{
		Winner:      playerID,
		WinningTeam: teamID,
		Scores:      convert.BreakdownsToScores(s.lastScores),
		Players:     s.playerInfos(),
		Teams:       s.teamInfos(),
	}
	if _, p := s.findPlayer(playerID); p != nil {
		payload.PlayerName = p.Name
	}
	if s.roster != nil {
		if t, ok := s.roster.Get(teamID); ok {
			payload.TeamName = t.Name
		}
	}

	s.log.Info("🏆 游戏结束", zap.String("winner", playerID), zap.String("team", teamID), zap.Int("round", s.round))
	s.broadcast(protocol.MsgGameEnd, payload)
	s.fireGameEnd()
}

// forceEnd 人数不足强制结束，不判胜负
func (s *Session) forceEnd(reason string) {
	s.enterFinished()
	s.endReason = reason

	s.log.Warn("⛔ 游戏强制结束", zap.String("reason", reason), zap.Int("players", len(s.players)))
	s.broadcast(protocol.MsgGameEnd, protocol.GameEndPayload{Reason: reason})
	s.fireGameEnd()
}

func (s *Session) enterFinished() {
	s.phase = PhaseFinished
	s.cancelTurnClock()
	s.cancelAllGrace()
	s.pending.clear()
	s.currentTurn = ""
	for _, p := range s.players {
		p.IsCurrentTurn = false
	}
}

func (s *Session) fireGameEnd() {
	if s.hooks.OnGameEnd == nil {
		return
	}
	result := s.result()
	go s.hooks.OnGameEnd(result)
}

func (s *Session) fireRoundEnd() {
	if s.hooks.OnRoundEnd == nil {
		return
	}
	snap := s.snapshot()
	go s.hooks.OnRoundEnd(snap)
}

func (s *Session) result() Result {
	r := Result{
		RoomCode:    s.code,
		GameMode:    s.mode.name(),
		Forced:      s.endReason != "",
		Reason:      s.endReason,
		Winner:      s.winner,
		WinningTeam: s.winningTeam,
		Rounds:      s.round,
		Players:     make([]PlayerResult, len(s.players)),
	}
	for i, p := range s.players {
		r.Players[i] = PlayerResult{
			ID:     p.ID,
			Name:   p.Name,
			TeamID: p.TeamID,
			Score:  p.Score,
			Kooms:  p.Kooms,
			Won:    !r.Forced && (p.ID == s.winner || (s.winningTeam != "" && p.TeamID == s.winningTeam)),
		}
	}
	return r
}
