//go:build !production

package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/chkobba/internal/game/session"
	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/server/storage"
)

// MockRecorder 对局结算记录 mock
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordResult(ctx context.Context, result session.Result) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// MockRedisStore 房间快照存储 mock
type MockRedisStore struct {
	mock.Mock
}

func (m *MockRedisStore) SaveRoom(ctx context.Context, rec *storage.RoomRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRedisStore) DeleteRoom(ctx context.Context, roomCode string) error {
	args := m.Called(ctx, roomCode)
	return args.Error(0)
}

// MockLeaderboard 排行榜查询 mock
type MockLeaderboard struct {
	mock.Mock
}

func (m *MockLeaderboard) GetPlayerStats(ctx context.Context, playerID string) (*storage.PlayerStats, error) {
	args := m.Called(ctx, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PlayerStats), args.Error(1)
}

func (m *MockLeaderboard) GetPlayerRank(ctx context.Context, playerID string) (int64, error) {
	args := m.Called(ctx, playerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLeaderboard) GetLeaderboard(ctx context.Context, boardType string, offset, limit int) ([]protocol.LeaderboardEntry, error) {
	args := m.Called(ctx, boardType, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]protocol.LeaderboardEntry), args.Error(1)
}
