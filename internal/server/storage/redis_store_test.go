package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/chkobba/internal/game/card"
	"github.com/palemoky/chkobba/internal/game/session"
	"github.com/palemoky/chkobba/internal/protocol"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	client, mr := newTestClient(t)
	return NewRedisStore(client), mr
}

func TestRedisStore_SaveLoadDeleteRoom(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	rec := &RoomRecord{
		Code:      "123456",
		GameMode:  protocol.ModeIndividual,
		CreatedAt: time.Now().Unix(),
		Snapshot: session.Snapshot{
			RoomCode:   "123456",
			Phase:      session.PhasePlaying,
			Round:      2,
			TableCards: []card.Card{{ID: "t1", Suit: card.Coins, Rank: card.Rank7}},
			Players: []session.PlayerState{
				{ID: "p1", Name: "Ali", Score: 4, Kooms: 1},
			},
		},
	}

	require.NoError(t, store.SaveRoom(ctx, rec))
	assert.NotZero(t, rec.UpdatedAt)
	assert.InDelta(t, roomExpiration.Seconds(), mr.TTL(roomKeyPrefix+"123456").Seconds(), 1)

	loaded, err := store.LoadRoom(ctx, "123456")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, protocol.ModeIndividual, loaded.GameMode)
	assert.Equal(t, session.PhasePlaying, loaded.Snapshot.Phase)
	assert.Equal(t, 2, loaded.Snapshot.Round)
	assert.Equal(t, rec.Snapshot.TableCards, loaded.Snapshot.TableCards)
	assert.Equal(t, 1, loaded.Snapshot.Players[0].Kooms)

	codes, err := store.GetAllRoomCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"123456"}, codes)

	require.NoError(t, store.SetRoomExpiration(ctx, "123456", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL(roomKeyPrefix+"123456"))

	require.NoError(t, store.DeleteRoom(ctx, "123456"))
	loaded, err = store.LoadRoom(ctx, "123456")
	assert.NoError(t, err)
	assert.Nil(t, loaded)

	// nil 记录直接忽略
	assert.NoError(t, store.SaveRoom(ctx, nil))
}

func TestRedisStore_LoadRoomCorrupted(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	require.NoError(t, mr.Set(roomKeyPrefix+"bad", "{not json"))

	_, err := store.LoadRoom(context.Background(), "bad")
	assert.Error(t, err)
}

func TestRedisStore_Session(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	ps := &PlayerSessionData{
		PlayerID:       "p1",
		PlayerName:     "Ali",
		ReconnectToken: "tok",
		RoomCode:       "654321",
		IsOnline:       false,
		DisconnectedAt: 1700000000,
	}
	require.NoError(t, store.SaveSession(ctx, ps))
	assert.Equal(t, sessionExpiration, mr.TTL(sessionKeyPrefix+"p1"))

	loaded, err := store.LoadSession(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, ps, loaded)

	missing, err := store.LoadSession(ctx, "ghost")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.DeleteSession(ctx, "p1"))
	loaded, err = store.LoadSession(ctx, "p1")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}
