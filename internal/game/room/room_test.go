package room

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/apperrors"
	"github.com/palemoky/chkobba/internal/game/session"
	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/server/storage"
	"github.com/palemoky/chkobba/internal/testutil"
)

func testOptions() Options {
	return Options{
		Session: session.Options{
			TurnTimeout:      time.Hour,
			ReconnectGrace:   time.Hour,
			SnapshotInterval: -1,
			Seed:             11,
		},
		RoomTimeout:     time.Hour,
		CleanupDelay:    20 * time.Millisecond,
		CleanupInterval: time.Hour,
	}
}

func newTestManager(t *testing.T, store SnapshotStore, recorder ResultRecorder, opts Options) *RoomManager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	rm := NewRoomManager(ctx, store, recorder, opts, zap.NewNop())
	t.Cleanup(func() {
		rm.Shutdown()
		cancel()
	})
	return rm
}

func permissiveStore() *testutil.MockRedisStore {
	store := new(testutil.MockRedisStore)
	store.On("SaveRoom", mock.Anything, mock.Anything).Return(nil).Maybe()
	store.On("DeleteRoom", mock.Anything, mock.Anything).Return(nil).Maybe()
	return store
}

func join(t *testing.T, rm *RoomManager, id, mode string) (*testutil.SimpleClient, *Room) {
	t.Helper()
	c := testutil.NewSimpleClient(id, "Player-"+id)
	room, err := rm.Join(context.Background(), c, c.GetName(), mode, "")
	require.NoError(t, err)
	return c, room
}

func TestRoomManager_JoinOrCreate(t *testing.T) {
	t.Parallel()

	rm := newTestManager(t, nil, nil, testOptions())

	c1, r1 := join(t, rm, "p1", protocol.ModeIndividual)
	assert.Equal(t, r1.Code, c1.GetRoom())
	assert.Len(t, r1.Code, roomCodeLength)

	joined, ok := testutil.LastPayload[protocol.JoinedPayload](c1, protocol.MsgJoined)
	require.True(t, ok)
	assert.Equal(t, r1.Code, joined.RoomCode)
	assert.Equal(t, protocol.ModeIndividual, joined.GameMode)

	// 第二个 1v1 玩家进入同一房间并开局
	c2, r2 := join(t, rm, "p2", protocol.ModeIndividual)
	assert.Same(t, r1, r2)
	assert.Equal(t, session.PhasePlaying, r1.Summary().Phase)
	assert.Equal(t, 1, c1.Count(protocol.MsgGameStart))
	assert.Equal(t, 1, c2.Count(protocol.MsgGameStart))

	// 满员后新建房间
	_, r3 := join(t, rm, "p3", protocol.ModeIndividual)
	assert.NotEqual(t, r1.Code, r3.Code)

	// 不同模式不会混在一起
	c4, r4 := join(t, rm, "t1", protocol.ModeTeam)
	assert.NotEqual(t, r3.Code, r4.Code)
	teamJoined, ok := testutil.LastPayload[protocol.JoinedPayload](c4, protocol.MsgJoined)
	require.True(t, ok)
	assert.Equal(t, "team1", teamJoined.TeamID)

	assert.Same(t, r1, rm.GetRoomByPlayerID("p2"))
	assert.Same(t, r4, rm.GetRoom(r4.Code))
	assert.Equal(t, 1, rm.GetActiveGamesCount())

	list := rm.GetRoomList()
	require.Len(t, list, 3)
	assert.Equal(t, string(session.PhaseWaiting), list[0].Phase)
	assert.Equal(t, string(session.PhaseWaiting), list[1].Phase)
	assert.Equal(t, string(session.PhasePlaying), list[2].Phase)
	assert.Equal(t, r1.Code, list[2].RoomCode)
	assert.Equal(t, 2, list[2].MaxPlayers)
}

func TestRoomManager_JoinRejected(t *testing.T) {
	t.Parallel()

	rm := newTestManager(t, nil, nil, testOptions())
	c1, _ := join(t, rm, "p1", protocol.ModeIndividual)

	_, err := rm.Join(context.Background(), c1, "again", protocol.ModeIndividual, "")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyInRoom)

	assert.Len(t, rm.GetRoomList(), 1)
}

func TestRoomManager_LeaveWaitingDisposesEmptyRoom(t *testing.T) {
	t.Parallel()

	store := permissiveStore()
	rm := newTestManager(t, store, nil, testOptions())
	c1, room := join(t, rm, "p1", protocol.ModeTeam)

	require.NoError(t, rm.Leave(context.Background(), c1))
	assert.Empty(t, c1.GetRoom())
	assert.Nil(t, rm.GetRoom(room.Code))
	store.AssertCalled(t, "DeleteRoom", mock.Anything, room.Code)

	select {
	case <-room.Session().Done():
	case <-time.After(time.Second):
		t.Fatal("session not closed")
	}

	assert.ErrorIs(t, rm.Leave(context.Background(), c1), apperrors.ErrNotInRoom)
}

func TestRoomManager_DisconnectWhileWaiting(t *testing.T) {
	t.Parallel()

	rm := newTestManager(t, nil, nil, testOptions())
	c1, room := join(t, rm, "a1", protocol.ModeTeam)
	c2, _ := join(t, rm, "b1", protocol.ModeTeam)

	rm.Disconnect(context.Background(), c1)
	assert.Nil(t, rm.GetRoomByPlayerID("a1"))
	assert.Equal(t, 1, room.Summary().PlayerCount)
	assert.Equal(t, 1, c2.Count(protocol.MsgPlayerLeave))
}

func TestRoomManager_DisconnectAndReconnect(t *testing.T) {
	t.Parallel()

	rm := newTestManager(t, nil, nil, testOptions())
	c1, room := join(t, rm, "a1", protocol.ModeTeam)
	join(t, rm, "b1", protocol.ModeTeam)
	join(t, rm, "a2", protocol.ModeTeam)
	c4, _ := join(t, rm, "b2", protocol.ModeTeam)
	require.Equal(t, session.PhasePlaying, room.Summary().Phase)
	ctx := context.Background()

	rm.Disconnect(ctx, c4)
	assert.Nil(t, room.Client("b2"))
	// 队友在线，断线仍保留座位，对局继续
	assert.Same(t, room, rm.GetRoomByPlayerID("b2"))
	assert.Equal(t, session.PhasePlaying, room.Summary().Phase)
	offline, ok := testutil.LastPayload[protocol.PlayerOfflinePayload](c1, protocol.MsgPlayerOffline)
	require.True(t, ok)
	assert.Equal(t, "b2", offline.PlayerID)

	fresh := testutil.NewSimpleClient("b2", "Player-b2")
	got, st, err := rm.Reconnect(ctx, fresh)
	require.NoError(t, err)
	assert.Same(t, room, got)
	assert.Equal(t, room.Code, fresh.GetRoom())
	assert.Len(t, st.Hand, session.HandSize)
	assert.Equal(t, string(session.PhasePlaying), st.Phase)
	assert.Equal(t, 1, c1.Count(protocol.MsgPlayerOnline))

	// 旧连接迟到的断开不影响新连接
	rm.Disconnect(ctx, c4)
	assert.Same(t, fresh, room.Client("b2"))
	assert.Equal(t, 1, c1.Count(protocol.MsgPlayerOffline))

	_, _, err = rm.Reconnect(ctx, testutil.NewSimpleClient("ghost", "Ghost"))
	assert.ErrorIs(t, err, apperrors.ErrNotInRoom)
}

func TestRoomManager_DisconnectEndsIndividualGame(t *testing.T) {
	t.Parallel()

	rm := newTestManager(t, nil, nil, testOptions())
	c1, room := join(t, rm, "p1", protocol.ModeIndividual)
	c2, _ := join(t, rm, "p2", protocol.ModeIndividual)

	rm.Disconnect(context.Background(), c2)
	assert.Equal(t, session.PhaseFinished, room.Summary().Phase)
	end, ok := testutil.LastPayload[protocol.GameEndPayload](c1, protocol.MsgGameEnd)
	require.True(t, ok)
	assert.Equal(t, protocol.ReasonInsufficientPlayers, end.Reason)
	assert.Zero(t, c1.Count(protocol.MsgPlayerLeave))

	assert.Eventually(t, func() bool {
		return rm.GetRoom(room.Code) == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Nil(t, rm.GetRoomByPlayerID("p2"))
}

func TestRoomManager_LeaveDuringPlayForcesEnd(t *testing.T) {
	t.Parallel()

	results := make(chan session.Result, 1)
	recorder := new(testutil.MockRecorder)
	recorder.On("RecordResult", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { results <- args.Get(1).(session.Result) }).
		Return(nil).Once()

	store := permissiveStore()
	rm := newTestManager(t, store, recorder, testOptions())
	c1, room := join(t, rm, "p1", protocol.ModeIndividual)
	c2, _ := join(t, rm, "p2", protocol.ModeIndividual)

	require.NoError(t, rm.Leave(context.Background(), c1))

	end, ok := testutil.LastPayload[protocol.GameEndPayload](c2, protocol.MsgGameEnd)
	require.True(t, ok)
	assert.Equal(t, protocol.ReasonInsufficientPlayers, end.Reason)
	// 离开的玩家不再收到房间消息
	assert.Zero(t, c1.Count(protocol.MsgGameEnd))

	select {
	case r := <-results:
		assert.True(t, r.Forced)
		assert.Equal(t, room.Code, r.RoomCode)
	case <-time.After(2 * time.Second):
		t.Fatal("result not recorded")
	}

	assert.Eventually(t, func() bool {
		return rm.GetRoom(room.Code) == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, c2.GetRoom())
	assert.Nil(t, rm.GetRoomByPlayerID("p2"))
	store.AssertCalled(t, "SaveRoom", mock.Anything, mock.MatchedBy(func(rec *storage.RoomRecord) bool {
		return rec.Code == room.Code && rec.Snapshot.Phase == session.PhaseFinished
	}))
	store.AssertCalled(t, "DeleteRoom", mock.Anything, room.Code)
}

func TestRoomManager_CleanupExpiredWaitingRoom(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.RoomTimeout = time.Minute
	rm := newTestManager(t, nil, nil, opts)
	c1, room := join(t, rm, "p1", protocol.ModeIndividual)

	rm.cleanup(time.Now())
	assert.NotNil(t, rm.GetRoom(room.Code))

	rm.cleanup(time.Now().Add(2 * time.Minute))
	assert.Nil(t, rm.GetRoom(room.Code))
	assert.Empty(t, c1.GetRoom())

	errMsg, ok := testutil.LastPayload[protocol.ErrorPayload](c1, protocol.MsgError)
	require.True(t, ok)
	assert.Equal(t, protocol.ErrCodeRoomNotFound, errMsg.Code)
}

func TestRoomManager_PersistsToRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := storage.NewRedisStore(client)

	opts := testOptions()
	opts.CleanupDelay = time.Hour
	rm := newTestManager(t, store, nil, opts)
	c1, room := join(t, rm, "p1", protocol.ModeIndividual)
	join(t, rm, "p2", protocol.ModeIndividual)
	ctx := context.Background()

	require.NoError(t, rm.Leave(ctx, c1))

	var rec *storage.RoomRecord
	require.Eventually(t, func() bool {
		var err error
		rec, err = store.LoadRoom(ctx, room.Code)
		return err == nil && rec != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, protocol.ModeIndividual, rec.GameMode)
	assert.Equal(t, session.PhaseFinished, rec.Snapshot.Phase)
	assert.Equal(t, 40, rec.Snapshot.CardCount())

	rm.Shutdown()
	rec, err := store.LoadRoom(ctx, room.Code)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRoom_Notifier(t *testing.T) {
	t.Parallel()

	r := newRoom("000001", protocol.ModeIndividual)
	c1 := testutil.NewSimpleClient("p1", "Ali")
	c2 := testutil.NewSimpleClient("p2", "Sami")
	r.attach(c1)
	r.attach(c2)

	r.Broadcast(&protocol.Message{Type: protocol.MsgTurnChange})
	r.SendTo("p2", &protocol.Message{Type: protocol.MsgPlaySuccess})
	r.SendTo("nobody", &protocol.Message{Type: protocol.MsgPlaySuccess})

	assert.Equal(t, 1, c1.Count(protocol.MsgTurnChange))
	assert.Equal(t, 1, c2.Count(protocol.MsgTurnChange))
	assert.Zero(t, c1.Count(protocol.MsgPlaySuccess))
	assert.Equal(t, 1, c2.Count(protocol.MsgPlaySuccess))

	// 只解绑同一个连接
	assert.Nil(t, r.detach("p1", testutil.NewSimpleClient("p1", "Ali")))
	assert.Same(t, c1, r.detach("p1", c1))

	r.detachAll()
	assert.Empty(t, c2.GetRoom())
	assert.Nil(t, r.Client("p2"))
}

func TestGenerateRoomCode(t *testing.T) {
	t.Parallel()

	rm := &RoomManager{rooms: make(map[string]*Room)}
	seen := make(map[string]bool)
	for range 50 {
		code := rm.generateRoomCode()
		assert.Len(t, code, roomCodeLength)
		assert.NotContains(t, seen, code)
		seen[code] = true
		rm.rooms[code] = nil
	}
}
