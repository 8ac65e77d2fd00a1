package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/apperrors"
	"github.com/palemoky/chkobba/internal/game/card"
	"github.com/palemoky/chkobba/internal/game/rule"
	"github.com/palemoky/chkobba/internal/protocol"
)

// --- 加入与组队 ---

func (s *Session) join(playerID, name, teamID string) error {
	if _, p := s.findPlayer(playerID); p != nil {
		return nil
	}
	if s.phase != PhaseWaiting {
		return apperrors.ErrGameStarted
	}
	if len(s.players) >= s.mode.capacity() {
		return apperrors.ErrRoomFull
	}

	p := &Player{ID: playerID, Name: name, Connected: true}
	if s.roster != nil {
		assigned, err := s.roster.Assign(playerID, teamID)
		if err != nil {
			return err
		}
		p.TeamID = assigned
	}
	s.players = append(s.players, p)

	s.log.Info("👤 玩家加入", zap.String("player", name), zap.String("team", p.TeamID),
		zap.Int("players", len(s.players)))
	s.broadcast(protocol.MsgPlayerJoin, protocol.PlayerJoinPayload{ID: p.ID, Name: p.Name, TeamID: p.TeamID})

	s.tryStart()
	return nil
}

func (s *Session) selectTeam(playerID, teamID string) error {
	if s.roster == nil || s.phase != PhaseWaiting {
		return apperrors.ErrInvalidTeamSelection
	}
	_, p := s.findPlayer(playerID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}

	assigned, err := s.roster.Move(playerID, teamID)
	if err != nil {
		return err
	}
	p.TeamID = assigned

	s.broadcast(protocol.MsgTeamChange, protocol.TeamChangePayload{
		PlayerID: playerID,
		TeamID:   assigned,
		Teams:    s.teamInfos(),
	})
	s.tryStart()
	return nil
}

// --- 出牌 ---

// turnPlayer 校验阶段与回合，返回当前玩家
func (s *Session) turnPlayer(playerID string) (*Player, error) {
	switch s.phase {
	case PhaseWaiting:
		return nil, apperrors.ErrGameNotStart
	case PhaseFinished:
		return nil, apperrors.ErrGameFinished
	}
	_, p := s.findPlayer(playerID)
	if p == nil {
		return nil, apperrors.ErrPlayerNotFound
	}
	if s.currentTurn != playerID {
		return nil, apperrors.ErrNotYourTurn
	}
	return p, nil
}

func (s *Session) playCard(playerID, cardID string) error {
	p, err := s.turnPlayer(playerID)
	if err != nil {
		return err
	}
	played, ok := card.Find(p.Hand, cardID)
	if !ok {
		return apperrors.ErrCardNotInHand
	}

	s.placeOnTable(p, played)
	s.sendTo(playerID, protocol.MsgPlaySuccess, protocol.PlaySuccessPayload{
		CardID:   cardID,
		CardName: cardName(played),
	})
	s.afterMove()
	return nil
}

// captureCards 增量吃牌：先校验本次新增的牌都在桌上，再合并进选择并判定
func (s *Session) captureCards(playerID, cardID string, ids []string) error {
	p, err := s.turnPlayer(playerID)
	if err != nil {
		return err
	}
	played, ok := card.Find(p.Hand, cardID)
	if !ok {
		return apperrors.ErrCardNotInHand
	}
	if len(ids) == 0 {
		return apperrors.ErrInvalidCapture
	}
	for _, id := range ids {
		if card.IndexOf(s.table, id) < 0 {
			return apperrors.ErrCardNotOnTable
		}
	}

	now := s.now()
	entry := s.pending.merge(playerID, cardID, ids, now)
	selected := make([]card.Card, 0, len(entry.CapturedCardIDs))
	for _, id := range entry.CapturedCardIDs {
		if c, ok := card.Find(s.table, id); ok {
			selected = append(selected, c)
		}
	}

	switch rule.ValidateSelection(played, selected) {
	case rule.Complete:
		s.pending.remove(playerID, cardID)
		s.capture(p, played, selected)
		s.sendTo(playerID, protocol.MsgCaptureSuccess, protocol.CaptureSuccessPayload{
			CardID:        cardID,
			CardName:      cardName(played),
			CapturedCount: len(selected),
		})
		s.afterMove()
		return nil

	case rule.Overshoot:
		s.pending.remove(playerID, cardID)
		return apperrors.ErrInvalidCapture
	}

	// 仍不足目标值：超过短时窗口则判定失败，否则回报进度
	if now.Sub(entry.CaptureTime) > s.opts.CaptureExpiry {
		s.pending.remove(playerID, cardID)
		s.log.Debug("⌛ 吃牌选择过期", zap.String("player", playerID), zap.String("card", cardID))
		return apperrors.ErrInvalidCapture
	}
	s.sendTo(playerID, protocol.MsgCardSelected, protocol.CardSelectedPayload{
		CardID:      cardID,
		SelectedIDs: card.IDs(selected),
		PendingSum:  card.SumValues(selected),
		TargetValue: played.Value(),
	})
	return nil
}

func (s *Session) koom(playerID, cardID string) error {
	p, err := s.turnPlayer(playerID)
	if err != nil {
		return err
	}
	if len(p.Hand) != 1 {
		return apperrors.ErrKoomNotLastCard
	}
	played, ok := card.Find(p.Hand, cardID)
	if !ok {
		return apperrors.ErrCardNotInHand
	}
	if !rule.CanKoom(played, s.table, true) {
		return apperrors.ErrCannotKoom
	}

	taken := make([]card.Card, len(s.table))
	copy(taken, s.table)
	s.capture(p, played, taken)
	p.Kooms++

	s.log.Info("💥 Koom", zap.String("player", p.Name), zap.Int("captured", len(taken)))
	s.sendTo(playerID, protocol.MsgKoomSuccess, protocol.KoomSuccessPayload{
		CardID:        cardID,
		CardName:      cardName(played),
		CapturedCount: len(taken),
	})
	if s.roster != nil {
		s.broadcast(protocol.MsgTeamKoom, protocol.TeamKoomPayload{PlayerID: playerID, TeamID: p.TeamID})
	}
	s.afterMove()
	return nil
}

func (s *Session) reorderHand(playerID string, ids []string) error {
	_, p := s.findPlayer(playerID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}
	if !card.IsPermutation(p.Hand, ids) {
		return apperrors.ErrInvalidReorder
	}
	reordered := make([]card.Card, len(ids))
	for i, id := range ids {
		reordered[i], _ = card.Find(p.Hand, id)
	}
	p.Hand = reordered
	return nil
}

// --- 状态变更原语 ---

// placeOnTable 手牌打到桌面
func (s *Session) placeOnTable(p *Player, played card.Card) {
	p.Hand, _ = card.Remove(p.Hand, played.ID)
	s.table = append(s.table, played)
}

// capture moves played from the hand and taken from the table into p's pile.
func (s *Session) capture(p *Player, played card.Card, taken []card.Card) {
	ids := card.IDs(taken)
	p.Hand, _ = card.Remove(p.Hand, played.ID)
	s.table = card.RemoveAll(s.table, ids)
	s.pending.removeCardIDs(ids)

	p.Captured = append(p.Captured, played)
	p.Captured = append(p.Captured, taken...)
	s.lastCapturePlayerID = p.ID
}

func cardName(c card.Card) string {
	return fmt.Sprintf("%s of %s", c.Rank, string(c.Suit))
}
