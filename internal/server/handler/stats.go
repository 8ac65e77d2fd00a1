package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
	"github.com/palemoky/chkobba/internal/server/storage"
	"github.com/palemoky/chkobba/internal/types"
)

// handleGetStats 个人战绩，没有记录时返回全零
func (h *Handler) handleGetStats(ctx context.Context, client types.ClientInterface, _ *protocol.Message) {
	if h.leaderboard == nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
		return
	}

	id := client.GetID()
	stats, err := h.leaderboard.GetPlayerStats(ctx, id)
	if err != nil {
		h.sendError(client, err)
		return
	}
	if stats == nil {
		stats = &storage.PlayerStats{PlayerID: id, PlayerName: client.GetName()}
	}

	rank, err := h.leaderboard.GetPlayerRank(ctx, id)
	if err != nil {
		h.log.Debug("查询排名失败", zap.String("player", id), zap.Error(err))
		rank = -1
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgStatsResult, protocol.StatsResultPayload{
		PlayerID:      stats.PlayerID,
		PlayerName:    stats.PlayerName,
		TotalGames:    stats.TotalGames,
		Wins:          stats.Wins,
		Losses:        stats.Losses,
		WinRate:       stats.WinRate(),
		Points:        stats.Points,
		Kooms:         stats.Kooms,
		Score:         stats.Score,
		Rank:          int(rank),
		CurrentStreak: stats.CurrentStreak,
		MaxWinStreak:  stats.MaxWinStreak,
	}))
}

// handleGetLeaderboard 排行榜分页查询
func (h *Handler) handleGetLeaderboard(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.GetLeaderboardPayload](client, msg)
	if !ok {
		return
	}
	if h.leaderboard == nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
		return
	}

	boardType := payload.Type
	if boardType == "" {
		boardType = storage.BoardTotal
	}
	entries, err := h.leaderboard.GetLeaderboard(ctx, boardType, payload.Offset, payload.Limit)
	if err != nil {
		h.sendError(client, err)
		return
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgLeaderboardResult, protocol.LeaderboardResultPayload{
		Type:    boardType,
		Entries: entries,
	}))
}

// handleGetRoomList 房间列表
func (h *Handler) handleGetRoomList(_ context.Context, client types.ClientInterface, _ *protocol.Message) {
	client.SendMessage(codec.MustNewMessage(protocol.MsgRoomListResult, protocol.RoomListResultPayload{
		Rooms: h.roomManager.GetRoomList(),
	}))
}
