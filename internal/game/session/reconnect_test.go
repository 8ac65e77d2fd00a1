package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/chkobba/internal/apperrors"
	"github.com/palemoky/chkobba/internal/game/card"
	"github.com/palemoky/chkobba/internal/protocol"
)

func TestDisconnectResume_Idempotent(t *testing.T) {
	t.Parallel()

	s, rec := startTeam(t)
	b1 := player(t, s, "b1")

	require.NoError(t, s.disconnect("b1"))
	assert.False(t, b1.Connected)
	assert.Contains(t, s.grace, "b1")
	offline := decode[protocol.PlayerOfflinePayload](t, rec.lastBroadcast(protocol.MsgPlayerOffline))
	assert.Equal(t, "b1", offline.PlayerID)
	assert.Equal(t, int(time.Hour/time.Second), offline.Timeout)

	require.NoError(t, s.disconnect("b1"))
	assert.Equal(t, 1, rec.count(protocol.MsgPlayerOffline))

	require.NoError(t, s.resume("b1"))
	assert.True(t, b1.Connected)
	assert.NotContains(t, s.grace, "b1")
	assert.Equal(t, 1, rec.count(protocol.MsgPlayerOnline))

	require.NoError(t, s.resume("b1"))
	assert.Equal(t, 1, rec.count(protocol.MsgPlayerOnline))

	// 队友在线，对局继续
	assert.Equal(t, PhasePlaying, s.phase)
	assert.Len(t, s.players, 4)
	assert.Equal(t, "a1", s.currentTurn)

	assert.ErrorIs(t, s.disconnect("ghost"), apperrors.ErrPlayerNotFound)
	assert.ErrorIs(t, s.resume("ghost"), apperrors.ErrPlayerNotFound)
}

func TestDisconnect_IndividualForcesEnd(t *testing.T) {
	t.Parallel()

	s, rec := startIndividual(t)
	results := make(chan Result, 1)
	s.hooks.OnGameEnd = func(r Result) { results <- r }

	require.NoError(t, s.disconnect("p2"))
	assert.Equal(t, PhaseFinished, s.phase)
	assert.Equal(t, protocol.ReasonInsufficientPlayers, s.endReason)
	assert.Empty(t, s.currentTurn)
	assert.Nil(t, s.turnTimer)
	assert.Empty(t, s.grace)
	// 座位保留，仍可重连查看结算
	assert.Len(t, s.players, 2)
	assert.Zero(t, rec.count(protocol.MsgPlayerLeave))
	assert.Equal(t, 1, rec.count(protocol.MsgGameEnd))

	// 已结束的对局不再切换回合
	s.advanceTurn()
	assert.Empty(t, s.currentTurn)
	require.NoError(t, s.resume("p2"))
	assert.Equal(t, PhaseFinished, s.phase)
	assert.Equal(t, 1, rec.count(protocol.MsgGameEnd))

	select {
	case r := <-results:
		assert.True(t, r.Forced)
		assert.Equal(t, protocol.ReasonInsufficientPlayers, r.Reason)
	case <-time.After(time.Second):
		t.Fatal("game end hook not called")
	}
}

func TestDisconnect_TeamNeedsAvailableMember(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		offline []string
		want    Phase
	}{
		{"one per team", []string{"a2", "b1"}, PhasePlaying},
		{"both of team1", []string{"a2", "a1"}, PhaseFinished},
		{"both of team2", []string{"b2", "b1"}, PhaseFinished},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, rec := startTeam(t)
			for _, id := range tt.offline {
				require.NoError(t, s.disconnect(id))
			}
			assert.Equal(t, tt.want, s.phase)
			assert.Len(t, s.players, 4)
			if tt.want == PhaseFinished {
				assert.Equal(t, protocol.ReasonInsufficientPlayers, s.endReason)
				assert.Equal(t, 1, rec.count(protocol.MsgGameEnd))
				return
			}
			assert.Zero(t, rec.count(protocol.MsgGameEnd))
			_, p := s.findPlayer(s.currentTurn)
			require.NotNil(t, p)
			assert.True(t, p.Connected, "turn rests on %s", p.ID)
		})
	}
}

func TestDisconnect_AutoPlaysForAbsentTurnHolder(t *testing.T) {
	t.Parallel()

	s, rec := startTeam(t)
	require.Equal(t, "a1", s.currentTurn)

	require.NoError(t, s.disconnect("a1"))
	assert.Len(t, player(t, s, "a1").Hand, HandSize-1)
	assert.Equal(t, "b1", s.currentTurn)
	assert.Equal(t, 1, rec.count(protocol.MsgPlayerTimeout))
	assert.Equal(t, 40, s.snapshot().CardCount())
}

func TestActivateTurn_SkipsWaitForAbsentPlayer(t *testing.T) {
	t.Parallel()

	s, rec := startTeam(t)
	require.NoError(t, s.disconnect("a2"))
	s.activateTurn("b1")

	s.advanceTurn()
	assert.Len(t, player(t, s, "a2").Hand, HandSize-1)
	assert.Equal(t, "b2", s.currentTurn)
	assert.True(t, player(t, s, "b2").IsCurrentTurn)
	assert.False(t, player(t, s, "a2").IsCurrentTurn)
	timeout := decode[protocol.PlayerTimeoutPayload](t, rec.lastBroadcast(protocol.MsgPlayerTimeout))
	assert.Equal(t, "a2", timeout.PlayerID)
}

func TestGraceExpired_RemovesPlayerAndForcesEnd(t *testing.T) {
	t.Parallel()

	s, rec := startTeam(t)
	removed := make(chan string, 1)
	results := make(chan Result, 1)
	s.hooks.OnPlayerRemoved = func(id string) { removed <- id }
	s.hooks.OnGameEnd = func(r Result) { results <- r }

	require.NoError(t, s.disconnect("a2"))
	require.Equal(t, PhasePlaying, s.phase)
	gen := s.grace["a2"].gen

	// stale proposal is ignored
	s.onGraceExpired("a2", gen-1)
	assert.Len(t, s.players, 4)

	s.onGraceExpired("a2", gen)
	assert.Len(t, s.players, 3)
	assert.Equal(t, PhaseFinished, s.phase)
	assert.Equal(t, protocol.ReasonInsufficientPlayers, s.endReason)
	assert.Empty(t, s.winner)

	end := decode[protocol.GameEndPayload](t, rec.lastBroadcast(protocol.MsgGameEnd))
	assert.Equal(t, protocol.ReasonInsufficientPlayers, end.Reason)
	assert.Empty(t, end.Winner)

	// the removed player's cards went back to the deck
	assert.Len(t, s.snapshot().AllCardIDs(), card.DeckSize)

	select {
	case id := <-removed:
		assert.Equal(t, "a2", id)
	case <-time.After(time.Second):
		t.Fatal("remove hook not called")
	}
	select {
	case r := <-results:
		assert.True(t, r.Forced)
		assert.Equal(t, protocol.ReasonInsufficientPlayers, r.Reason)
		for _, p := range r.Players {
			assert.False(t, p.Won)
		}
	case <-time.After(time.Second):
		t.Fatal("game end hook not called")
	}
}

func TestGraceExpired_IgnoredAfterResume(t *testing.T) {
	t.Parallel()

	s, _ := startTeam(t)
	require.NoError(t, s.disconnect("b1"))
	gen := s.grace["b1"].gen
	require.NoError(t, s.resume("b1"))

	s.onGraceExpired("b1", gen)
	assert.Len(t, s.players, 4)
	assert.Equal(t, PhasePlaying, s.phase)
}

func TestGraceExpired_KeepsSeatAfterGameEnd(t *testing.T) {
	t.Parallel()

	s, rec := startTeam(t)
	removed := make(chan string, 1)
	s.hooks.OnPlayerRemoved = func(id string) { removed <- id }

	require.NoError(t, s.disconnect("a2"))
	gen := s.grace["a2"].gen
	require.NoError(t, s.disconnect("a1"))
	require.Equal(t, PhaseFinished, s.phase)
	// 结束时所有重连等待一并取消
	assert.Empty(t, s.grace)

	// 已经触发的提议迟到
	s.onGraceExpired("a2", gen)

	// 结束后才断线的玩家同样保留座位
	require.NoError(t, s.disconnect("b1"))
	require.Contains(t, s.grace, "b1")
	s.onGraceExpired("b1", s.grace["b1"].gen)

	assert.Len(t, s.players, 4)
	assert.Zero(t, rec.count(protocol.MsgPlayerLeave))
	assert.Equal(t, 1, rec.count(protocol.MsgGameEnd))
	select {
	case id := <-removed:
		t.Fatalf("unexpected removal of %s", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLeave(t *testing.T) {
	t.Parallel()

	t.Run("waiting room", func(t *testing.T) {
		t.Parallel()
		s, rec := newTestSession(t, protocol.ModeTeam)
		require.NoError(t, s.join("a1", "A", ""))
		require.NoError(t, s.join("b1", "B", ""))

		require.NoError(t, s.leave("a1"))
		assert.Len(t, s.players, 1)
		assert.Equal(t, PhaseWaiting, s.phase)
		assert.Empty(t, s.roster.TeamOf("a1"))
		assert.Equal(t, 1, rec.count(protocol.MsgPlayerLeave))
		assert.Zero(t, rec.count(protocol.MsgGameEnd))

		assert.ErrorIs(t, s.leave("a1"), apperrors.ErrPlayerNotFound)
	})

	t.Run("team game below four players", func(t *testing.T) {
		t.Parallel()
		s, rec := startTeam(t)
		require.NoError(t, s.disconnect("a2"))

		require.NoError(t, s.leave("a2"))
		assert.NotContains(t, s.grace, "a2")
		assert.Equal(t, PhaseFinished, s.phase)
		assert.Equal(t, 1, rec.count(protocol.MsgGameEnd))
		assert.Len(t, s.snapshot().AllCardIDs(), card.DeckSize)
	})
}

func TestRemovePlayer_HandsOverTurn(t *testing.T) {
	t.Parallel()

	// 不会强制结束的情况只在最少人数以上出现，这里放宽最少人数直接验证交接顺序
	s, _ := startTeam(t)
	s.mode = looseTeamMode{}
	require.Equal(t, "a1", s.currentTurn)

	s.removePlayer("a1")
	assert.Equal(t, PhasePlaying, s.phase)
	assert.Equal(t, []string{"b1", "a2", "b2"}, s.turnOrder)
	assert.Equal(t, "b1", s.currentTurn)
	assert.True(t, player(t, s, "b1").IsCurrentTurn)

	s.activateTurn("b2")
	s.removePlayer("b2")
	assert.Equal(t, "b1", s.currentTurn)
}

type looseTeamMode struct{ teamMode }

func (looseTeamMode) minPlayers() int { return 1 }
