package session

import (
	"slices"
	"time"

	"github.com/palemoky/chkobba/internal/game/card"
	"github.com/palemoky/chkobba/internal/game/team"
	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/convert"
)

// Snapshot 完整状态的深拷贝，用于持久化与测试
type Snapshot struct {
	RoomCode            string           `json:"roomCode"`
	GameMode            string           `json:"gameMode"`
	Phase               Phase            `json:"gamePhase"`
	Players             []PlayerState    `json:"players"`
	Teams               []team.Team      `json:"teams,omitempty"`
	Deck                []card.Card      `json:"deck"`
	TableCards          []card.Card      `json:"tableCards"`
	CurrentTurn         string           `json:"currentTurn"`
	TurnOrder           []string         `json:"turnOrder"`
	TurnStartTime       time.Time        `json:"turnStartTime"`
	TurnNumber          int              `json:"turnNumber"`
	Round               int              `json:"round"`
	LastCapturePlayerID string           `json:"lastCapturePlayerId"`
	Winner              string           `json:"winner,omitempty"`
	WinningTeam         string           `json:"winningTeam,omitempty"`
	EndReason           string           `json:"endReason,omitempty"`
	PendingCaptures     []PendingCapture `json:"pendingCaptures,omitempty"`
}

// PlayerState 玩家状态副本
type PlayerState struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Hand          []card.Card `json:"hand"`
	Captured      []card.Card `json:"captured"`
	IsCurrentTurn bool        `json:"isCurrentTurn"`
	Connected     bool        `json:"connected"`
	Score         int         `json:"score"`
	LastCapture   bool        `json:"lastCapture"`
	TeamID        string      `json:"teamId,omitempty"`
	Kooms         int         `json:"kooms"`
}

// CardCount 所有位置的牌数之和
func (s Snapshot) CardCount() int {
	n := len(s.Deck) + len(s.TableCards)
	for _, p := range s.Players {
		n += len(p.Hand) + len(p.Captured)
	}
	return n
}

// AllCardIDs 所有位置的牌 ID，用于检查重复
func (s Snapshot) AllCardIDs() []string {
	ids := card.IDs(s.Deck)
	ids = append(ids, card.IDs(s.TableCards)...)
	for _, p := range s.Players {
		ids = append(ids, card.IDs(p.Hand)...)
		ids = append(ids, card.IDs(p.Captured)...)
	}
	return ids
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		RoomCode:            s.code,
		GameMode:            s.mode.name(),
		Phase:               s.phase,
		Players:             make([]PlayerState, len(s.players)),
		Deck:                slices.Clone(s.deck),
		TableCards:          slices.Clone(s.table),
		CurrentTurn:         s.currentTurn,
		TurnOrder:           slices.Clone(s.turnOrder),
		TurnStartTime:       s.turnStartTime,
		TurnNumber:          s.turnNumber,
		Round:               s.round,
		LastCapturePlayerID: s.lastCapturePlayerID,
		Winner:              s.winner,
		WinningTeam:         s.winningTeam,
		EndReason:           s.endReason,
		PendingCaptures:     s.pending.list(),
	}
	for i, p := range s.players {
		snap.Players[i] = PlayerState{
			ID:            p.ID,
			Name:          p.Name,
			Hand:          slices.Clone(p.Hand),
			Captured:      slices.Clone(p.Captured),
			IsCurrentTurn: p.IsCurrentTurn,
			Connected:     p.Connected,
			Score:         p.Score,
			LastCapture:   p.LastCapture,
			TeamID:        p.TeamID,
			Kooms:         p.Kooms,
		}
	}
	if s.roster != nil {
		for _, t := range s.roster.Teams() {
			cp := *t
			cp.Members = slices.Clone(t.Members)
			snap.Teams = append(snap.Teams, cp)
		}
	}
	return snap
}

// stateFor 观察者视图：只包含 viewerID 自己的手牌
func (s *Session) stateFor(viewerID string) protocol.GameStateDTO {
	dto := protocol.GameStateDTO{
		RoomCode:            s.code,
		Phase:               string(s.phase),
		GameMode:            s.mode.name(),
		Players:             s.playerInfos(),
		Teams:               s.teamInfos(),
		Hand:                []protocol.CardInfo{},
		TableCards:          convert.CardsToInfos(s.table),
		DeckCount:           len(s.deck),
		CurrentTurn:         s.currentTurn,
		TurnOrder:           slices.Clone(s.turnOrder),
		TurnNumber:          s.turnNumber,
		Round:               s.round,
		LastCapturePlayerID: s.lastCapturePlayerID,
		Winner:              s.winner,
		WinningTeam:         s.winningTeam,
	}
	if !s.turnStartTime.IsZero() {
		dto.TurnStartTime = s.turnStartTime.UnixMilli()
	}
	if _, p := s.findPlayer(viewerID); p != nil {
		dto.Hand = convert.CardsToInfos(p.Hand)
	}
	return dto
}

// publishStates 定时向每个在线玩家推送各自视角的状态
func (s *Session) publishStates() {
	if s.notifier == nil {
		return
	}
	for _, p := range s.players {
		if p.Connected {
			s.sendTo(p.ID, protocol.MsgState, s.stateFor(p.ID))
		}
	}
}

func (s *Session) playerInfos() []protocol.PlayerInfo {
	infos := make([]protocol.PlayerInfo, len(s.players))
	for i, p := range s.players {
		infos[i] = protocol.PlayerInfo{
			ID:            p.ID,
			Name:          p.Name,
			HandCount:     len(p.Hand),
			CapturedCount: len(p.Captured),
			IsCurrentTurn: p.IsCurrentTurn,
			Connected:     p.Connected,
			Score:         p.Score,
			LastCapture:   p.LastCapture,
			TeamID:        p.TeamID,
			Kooms:         p.Kooms,
		}
	}
	return infos
}

func (s *Session) teamInfos() []protocol.TeamInfo {
	if s.roster == nil {
		return nil
	}
	teams := s.roster.Teams()
	infos := make([]protocol.TeamInfo, len(teams))
	for i, t := range teams {
		infos[i] = protocol.TeamInfo{
			ID:          t.ID,
			Name:        t.Name,
			MemberCount: t.MemberCount,
			Score:       t.Score,
			Members:     slices.Clone(t.Members),
		}
	}
	return infos
}
