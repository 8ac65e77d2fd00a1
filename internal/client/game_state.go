package client

import (
	"github.com/palemoky/chkobba/internal/game/card"
	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
	"github.com/palemoky/chkobba/internal/protocol/convert"
)

// GameState 客户端视角的对局状态，由服务器推送的消息驱动
type GameState struct {
	PlayerID string

	RoomCode string
	GameMode string
	Phase    string

	Hand  []card.Card
	Table []card.Card

	Players     []protocol.PlayerInfo
	Teams       []protocol.TeamInfo
	CurrentTurn string
	TurnNumber  int
	Round       int
	DeckCount   int

	// 结束时填写
	Winner      string
	WinningTeam string
	EndReason   string
	Finished    bool

	CardCounter *CardCounter
}

// NewGameState creates an empty state for playerID.
func NewGameState(playerID string) *GameState {
	return &GameState{
		PlayerID:    playerID,
		CardCounter: NewCardCounter(),
	}
}

// Apply 处理一条服务器消息，返回状态是否变化
func (gs *GameState) Apply(msg *protocol.Message) bool {
	switch msg.Type {
	case protocol.MsgJoined:
		p, err := codec.ParsePayload[protocol.JoinedPayload](msg)
		if err != nil {
			return false
		}
		gs.Reset()
		gs.RoomCode = p.RoomCode
		gs.GameMode = p.GameMode
		return true

	case protocol.MsgGameStart:
		p, err := codec.ParsePayload[protocol.GameStartPayload](msg)
		if err != nil {
			return false
		}
		gs.Players = p.Players
		gs.CurrentTurn = p.FirstTurn
		gs.Finished = false
		return true

	case protocol.MsgNewRound:
		p, err := codec.ParsePayload[protocol.NewRoundPayload](msg)
		if err != nil {
			return false
		}
		// 新一局重新洗牌，记牌从头开始
		gs.Round = p.Round
		gs.CardCounter.Reset()
		return true

	case protocol.MsgTurnChange:
		p, err := codec.ParsePayload[protocol.TurnChangePayload](msg)
		if err != nil {
			return false
		}
		gs.CurrentTurn = p.PlayerID
		gs.TurnNumber = p.TurnNumber
		return true

	case protocol.MsgState:
		p, err := codec.ParsePayload[protocol.GameStateDTO](msg)
		if err != nil {
			return false
		}
		gs.applySnapshot(p)
		return true

	case protocol.MsgReconnected:
		p, err := codec.ParsePayload[protocol.ReconnectedPayload](msg)
		if err != nil {
			return false
		}
		gs.PlayerID = p.PlayerID
		if p.State == nil {
			return false
		}
		gs.applySnapshot(p.State)
		return true

	case protocol.MsgGameEnd:
		p, err := codec.ParsePayload[protocol.GameEndPayload](msg)
		if err != nil {
			return false
		}
		gs.Winner = p.Winner
		gs.WinningTeam = p.WinningTeam
		gs.EndReason = p.Reason
		gs.Finished = true
		return true
	}
	return false
}

func (gs *GameState) applySnapshot(s *protocol.GameStateDTO) {
	if s.Round != gs.Round {
		gs.CardCounter.Reset()
	}
	gs.RoomCode = s.RoomCode
	gs.GameMode = s.GameMode
	gs.Phase = s.Phase
	gs.Hand = infosToCards(s.Hand)
	gs.Table = infosToCards(s.TableCards)
	gs.Players = s.Players
	gs.Teams = s.Teams
	gs.CurrentTurn = s.CurrentTurn
	gs.TurnNumber = s.TurnNumber
	gs.Round = s.Round
	gs.DeckCount = s.DeckCount
	gs.Winner = s.Winner
	gs.WinningTeam = s.WinningTeam

	gs.CardCounter.Observe(gs.Hand)
	gs.CardCounter.Observe(gs.Table)
}

// IsMyTurn 是否轮到自己
func (gs *GameState) IsMyTurn() bool {
	return !gs.Finished && gs.PlayerID != "" && gs.CurrentTurn == gs.PlayerID && len(gs.Hand) > 0
}

// Reset clears everything except the player identity.
func (gs *GameState) Reset() {
	*gs = GameState{
		PlayerID:    gs.PlayerID,
		CardCounter: NewCardCounter(),
	}
}

func infosToCards(infos []protocol.CardInfo) []card.Card {
	cards := make([]card.Card, len(infos))
	for i, info := range infos {
		cards[i] = convert.InfoToCard(info)
	}
	return cards
}
