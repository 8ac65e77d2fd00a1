package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/apperrors"
	"github.com/palemoky/chkobba/internal/game/card"
	"github.com/palemoky/chkobba/internal/game/team"
	"github.com/palemoky/chkobba/internal/protocol"
)

// lastTrickFixture 牌堆已空，p1 手里只剩一张牌，p2 手牌已空，上一次吃牌的是 p2
func lastTrickFixture(t *testing.T) (*Session, *recorder) {
	t.Helper()
	s, rec := startIndividual(t)
	p1, p2 := player(t, s, "p1"), player(t, s, "p2")

	s.deck = nil
	s.table = []card.Card{hearts("tk", card.RankK)}
	p1.Hand = []card.Card{hearts("x", card.Rank2)}
	p1.Captured = nil
	p2.Hand = nil
	p2.Captured = []card.Card{cc("seven", card.Coins, card.Rank7), cc("five", card.Coins, card.Rank5)}
	s.lastCapturePlayerID = "p2"
	return s, rec
}

func TestEndRound_AwardsTableAndStartsNewRound(t *testing.T) {
	t.Parallel()

	s, rec := lastTrickFixture(t)
	roundEnd := make(chan Snapshot, 1)
	s.hooks.OnRoundEnd = func(snap Snapshot) { roundEnd <- snap }

	require.NoError(t, s.playCard("p1", "x"))

	// 4 cards, 2 coins, seven of coins, last capture
	p2 := player(t, s, "p2")
	assert.Equal(t, 5, p2.Score)
	assert.Equal(t, 0, player(t, s, "p1").Score)

	require.Len(t, s.lastScores, 2)
	assert.Equal(t, "p2", s.lastScores[1].PlayerID)
	assert.Equal(t, 4, s.lastScores[1].Cards)
	assert.Equal(t, 1, s.lastScores[1].LastCapture)
	assert.Equal(t, 5, s.lastScores[1].Total)

	select {
	case snap := <-roundEnd:
		assert.Equal(t, 1, snap.Round)
		assert.Empty(t, snap.TableCards)
		assert.True(t, snap.Players[1].LastCapture)
		assert.Len(t, snap.Players[1].Captured, 4)
	case <-time.After(time.Second):
		t.Fatal("round end hook not called")
	}

	// the next round is dealt from a fresh deck
	assert.Equal(t, PhasePlaying, s.phase)
	assert.Equal(t, 2, s.round)
	assert.Len(t, s.table, TableStarter)
	assert.Len(t, s.deck, card.DeckSize-2*HandSize-TableStarter)
	assert.Empty(t, p2.Captured)
	assert.False(t, p2.LastCapture)
	assert.Empty(t, s.lastCapturePlayerID)
	assert.Equal(t, "p1", s.currentTurn)

	nr := decode[protocol.NewRoundPayload](t, rec.lastBroadcast(protocol.MsgNewRound))
	assert.Equal(t, 2, nr.Round)
	require.Len(t, nr.Scores, 2)
	assert.Equal(t, 5, nr.Scores[1].Total)
	assert.Zero(t, rec.count(protocol.MsgGameEnd))
}

func TestEndRound_WinnerFinishesGame(t *testing.T) {
	t.Parallel()

	s, rec := lastTrickFixture(t)
	player(t, s, "p2").Score = 8
	results := make(chan Result, 1)
	s.hooks.OnGameEnd = func(r Result) { results <- r }

	require.NoError(t, s.playCard("p1", "x"))

	assert.Equal(t, PhaseFinished, s.phase)
	assert.Equal(t, "p2", s.winner)
	assert.Empty(t, s.currentTurn)
	assert.Nil(t, s.turnTimer)
	for _, p := range s.players {
		assert.False(t, p.IsCurrentTurn)
	}

	end := decode[protocol.GameEndPayload](t, rec.lastBroadcast(protocol.MsgGameEnd))
	assert.Equal(t, "p2", end.Winner)
	assert.Equal(t, "Sami", end.PlayerName)
	assert.Empty(t, end.Reason)

	select {
	case r := <-results:
		assert.False(t, r.Forced)
		assert.Equal(t, "p2", r.Winner)
		require.Len(t, r.Players, 2)
		assert.False(t, r.Players[0].Won)
		assert.True(t, r.Players[1].Won)
		assert.Equal(t, 13, r.Players[1].Score)
	case <-time.After(time.Second):
		t.Fatal("game end hook not called")
	}

	// terminal: no further moves
	assert.ErrorIs(t, s.playCard("p1", "x"), apperrors.ErrGameFinished)
}

func TestEndRound_TeamScores(t *testing.T) {
	t.Parallel()

	s, rec := startTeam(t)
	for _, p := range s.players {
		p.Hand, p.Captured = nil, nil
	}
	s.deck = nil
	s.table = []card.Card{hearts("tk", card.RankK)}
	player(t, s, "a1").Hand = []card.Card{hearts("x", card.Rank2)}
	player(t, s, "a1").Captured = []card.Card{cc("seven", card.Coins, card.Rank7), cc("five", card.Coins, card.Rank5)}
	player(t, s, "a2").Captured = []card.Card{hearts("h2", card.Rank2), hearts("h3", card.Rank3)}
	player(t, s, "b2").Captured = []card.Card{hearts("h4", card.Rank4)}
	s.lastCapturePlayerID = "b1"

	require.NoError(t, s.playCard("a1", "x"))

	// a1: coins 2 + seven 1, b1: last capture 1; card counts tie at 2
	a, _ := s.roster.Get(team.TeamA)
	b, _ := s.roster.Get(team.TeamB)
	assert.Equal(t, 3, a.Score)
	assert.Equal(t, 1, b.Score)
	assert.Equal(t, 3, player(t, s, "a1").Score)
	assert.Equal(t, 1, player(t, s, "b1").Score)
	assert.Equal(t, 2, s.round)
	assert.Equal(t, 1, rec.count(protocol.MsgNewRound))
}

func TestEndRound_TeamWinner(t *testing.T) {
	t.Parallel()

	s, rec := startTeam(t)
	for _, p := range s.players {
		p.Hand, p.Captured = nil, nil
	}
	s.deck = nil
	s.table = nil
	player(t, s, "a1").Hand = []card.Card{hearts("x", card.Rank2)}
	player(t, s, "b2").Captured = []card.Card{cc("seven", card.Coins, card.Rank7)}
	s.lastCapturePlayerID = "b2"
	b, _ := s.roster.Get(team.TeamB)
	b.Score = 9

	require.NoError(t, s.playCard("a1", "x"))

	assert.Equal(t, PhaseFinished, s.phase)
	assert.Equal(t, team.TeamB, s.winningTeam)
	end := decode[protocol.GameEndPayload](t, rec.lastBroadcast(protocol.MsgGameEnd))
	assert.Equal(t, team.TeamB, end.WinningTeam)
	assert.Equal(t, "Team 2", end.TeamName)
	require.Len(t, end.Teams, 2)

	r := s.result()
	for _, p := range r.Players {
		assert.Equal(t, p.TeamID == team.TeamB, p.Won, p.ID)
	}
}

func TestAfterMove_RefillsHandsFromDeck(t *testing.T) {
	t.Parallel()

	s, _ := startIndividual(t)
	p1, p2 := player(t, s, "p1"), player(t, s, "p2")
	p1.Hand = []card.Card{hearts("x", card.Rank2)}
	p2.Hand = nil
	deckBefore := len(s.deck)

	require.NoError(t, s.playCard("p1", "x"))

	assert.Len(t, p1.Hand, HandSize)
	assert.Len(t, p2.Hand, HandSize)
	assert.Len(t, s.deck, deckBefore-2*HandSize)
	assert.Equal(t, 1, s.round)
	assert.Equal(t, "p2", s.currentTurn)
}

func TestAutoPlay_ConservesCards(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mode string
		ids  []string
		seed uint64
	}{
		{"1v1 seed 1", protocol.ModeIndividual, []string{"p1", "p2"}, 1},
		{"1v1 seed 99", protocol.ModeIndividual, []string{"p1", "p2"}, 99},
		{"2v2 seed 3", protocol.ModeTeam, []string{"a1", "b1", "a2", "b2"}, 3},
		{"2v2 seed 2026", protocol.ModeTeam, []string{"a1", "b1", "a2", "b2"}, 2026},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := Options{TurnTimeout: time.Hour, ReconnectGrace: time.Hour, SnapshotInterval: -1, Seed: tt.seed}
			s := New(context.Background(), "9999", tt.mode, newRecorder(), opts, Hooks{}, zap.NewNop())
			t.Cleanup(func() {
				s.stopTimers()
				s.Close()
			})
			for _, id := range tt.ids {
				require.NoError(t, s.join(id, id, ""))
			}
			require.Equal(t, PhasePlaying, s.phase)

			for step := 0; step < 5000 && s.phase == PhasePlaying; step++ {
				s.onTurnTimeout(s.turnGen)
				assertInvariants(t, s)
				if t.Failed() {
					return
				}
			}
			assert.Equal(t, PhaseFinished, s.phase)
			assert.True(t, s.winner != "" || s.winningTeam != "")
		})
	}
}

func assertInvariants(t *testing.T, s *Session) {
	t.Helper()
	snap := s.snapshot()

	ids := snap.AllCardIDs()
	assert.Len(t, ids, card.DeckSize)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate card %s", id)
		seen[id] = true
	}

	active := 0
	for _, p := range snap.Players {
		if p.IsCurrentTurn {
			active++
			assert.Equal(t, snap.CurrentTurn, p.ID)
		}
	}
	if snap.Phase == PhasePlaying {
		assert.Equal(t, 1, active)
	} else {
		assert.Zero(t, active)
	}

	for _, pc := range snap.PendingCaptures {
		for _, id := range pc.CapturedCardIDs {
			assert.GreaterOrEqual(t, card.IndexOf(snap.TableCards, id), 0)
		}
	}
}
