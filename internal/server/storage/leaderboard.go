package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/chkobba/internal/game/session"
	"github.com/palemoky/chkobba/internal/protocol"
)

const (
	// Redis key
	playerStatsKey    = "chkobba:player:stats:"
	leaderboardKey    = "chkobba:leaderboard:score"
	dailyLeaderboard  = "chkobba:leaderboard:daily:"
	weeklyLeaderboard = "chkobba:leaderboard:weekly:"
)

// 排行榜类型
const (
	BoardTotal  = "total"
	BoardDaily  = "daily"
	BoardWeekly = "weekly"
)

// PlayerStats 玩家统计数据
type PlayerStats struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`

	// 总计
	TotalGames int `json:"total_games"` // 总场次
	Wins       int `json:"wins"`        // 胜场
	Losses     int `json:"losses"`      // 败场

	// 模式分开统计
	IndividualGames int `json:"individual_games"`
	IndividualWins  int `json:"individual_wins"`
	TeamGames       int `json:"team_games"`
	TeamWins        int `json:"team_wins"`

	// 牌局累计
	Points int `json:"points"` // 累计得分
	Kooms  int `json:"kooms"`  // 累计 koom 次数

	// 积分
	Score int `json:"score"` // 当前积分

	// 连胜/连败
	CurrentStreak int `json:"current_streak"` // 正数为连胜，负数为连败
	MaxWinStreak  int `json:"max_win_streak"` // 最大连胜

	// 时间
	LastPlayedAt int64 `json:"last_played_at"`
	CreatedAt    int64 `json:"created_at"`
}

// WinRate 胜率（百分比）
func (s *PlayerStats) WinRate() float64 {
	if s.TotalGames == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.TotalGames) * 100
}

// 积分规则
const (
	WinIndividual  = 20
	WinTeam        = 15
	LoseIndividual = -10
	LoseTeam       = -5
	KoomBonus      = 2 // 每次 koom 加分

	// 连胜加成
	StreakBonus3  = 5
	StreakBonus5  = 10
	StreakBonus10 = 20
)

// LeaderboardManager 排行榜管理器
type LeaderboardManager struct {
	redis *redis.Client
	now   func() time.Time
}

// NewLeaderboardManager 创建排行榜管理器
func NewLeaderboardManager(client *redis.Client) *LeaderboardManager {
	return &LeaderboardManager{redis: client, now: time.Now}
}

// GetPlayerStats 获取玩家统计，未参与过游戏返回 nil
func (lm *LeaderboardManager) GetPlayerStats(ctx context.Context, playerID string) (*PlayerStats, error) {
	data, err := lm.redis.Get(ctx, playerStatsKey+playerID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var stats PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("反序列化玩家统计失败: %w", err)
	}
	return &stats, nil
}

// SavePlayerStats 保存玩家统计
func (lm *LeaderboardManager) SavePlayerStats(ctx context.Context, stats *PlayerStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return lm.redis.Set(ctx, playerStatsKey+stats.PlayerID, data, 0).Err()
}

func (lm *LeaderboardManager) getOrCreateStats(ctx context.Context, playerID, playerName string) (*PlayerStats, error) {
	stats, err := lm.GetPlayerStats(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &PlayerStats{
			PlayerID:   playerID,
			PlayerName: playerName,
			CreatedAt:  lm.now().Unix(),
		}
	}
	return stats, nil
}

// updateModeStats 更新模式相关统计并返回基础积分变化
func updateModeStats(stats *PlayerStats, gameMode string, isWinner bool) int {
	switch {
	case gameMode == protocol.ModeTeam && isWinner:
		stats.TeamGames++
		stats.TeamWins++
		return WinTeam
	case gameMode == protocol.ModeTeam:
		stats.TeamGames++
		return LoseTeam
	case isWinner:
		stats.IndividualGames++
		stats.IndividualWins++
		return WinIndividual
	default:
		stats.IndividualGames++
		return LoseIndividual
	}
}

// updateWinLossStats 更新胜负统计和连胜/连败
func updateWinLossStats(stats *PlayerStats, isWinner bool) {
	if isWinner {
		stats.Wins++
		stats.CurrentStreak = max(1, stats.CurrentStreak+1)
	} else {
		stats.Losses++
		stats.CurrentStreak = min(-1, stats.CurrentStreak-1)
	}

	if stats.CurrentStreak > stats.MaxWinStreak {
		stats.MaxWinStreak = stats.CurrentStreak
	}
}

// calculateStreakBonus 计算连胜加成
func calculateStreakBonus(streak int) int {
	switch {
	case streak >= 10:
		return StreakBonus10
	case streak >= 5:
		return StreakBonus5
	case streak >= 3:
		return StreakBonus3
	default:
		return 0
	}
}

// RecordResult 记录一局的结算，强制结束的对局不计入
func (lm *LeaderboardManager) RecordResult(ctx context.Context, result session.Result) error {
	if result.Forced {
		return nil
	}
	for _, p := range result.Players {
		if err := lm.recordPlayer(ctx, result.GameMode, p); err != nil {
			return fmt.Errorf("record %s: %w", p.ID, err)
		}
	}
	return nil
}

func (lm *LeaderboardManager) recordPlayer(ctx context.Context, gameMode string, p session.PlayerResult) error {
	stats, err := lm.getOrCreateStats(ctx, p.ID, p.Name)
	if err != nil {
		return err
	}

	stats.PlayerName = p.Name
	stats.TotalGames++
	stats.Points += p.Score
	stats.Kooms += p.Kooms
	stats.LastPlayedAt = lm.now().Unix()

	scoreChange := updateModeStats(stats, gameMode, p.Won)
	updateWinLossStats(stats, p.Won)
	scoreChange += calculateStreakBonus(stats.CurrentStreak) + p.Kooms*KoomBonus
	stats.Score = max(0, stats.Score+scoreChange)

	if err := lm.SavePlayerStats(ctx, stats); err != nil {
		return err
	}
	return lm.UpdateLeaderboard(ctx, stats)
}

func (lm *LeaderboardManager) dailyKey() string {
	return dailyLeaderboard + lm.now().Format("2006-01-02")
}

func (lm *LeaderboardManager) weeklyKey() string {
	year, week := lm.now().ISOWeek()
	return fmt.Sprintf("%s%d-W%02d", weeklyLeaderboard, year, week)
}

// UpdateLeaderboard 更新总榜、日榜和周榜
func (lm *LeaderboardManager) UpdateLeaderboard(ctx context.Context, stats *PlayerStats) error {
	member := redis.Z{Score: float64(stats.Score), Member: stats.PlayerID}

	pipe := lm.redis.TxPipeline()
	pipe.ZAdd(ctx, leaderboardKey, member)
	pipe.ZAdd(ctx, lm.dailyKey(), member)
	pipe.Expire(ctx, lm.dailyKey(), 48*time.Hour)
	pipe.ZAdd(ctx, lm.weeklyKey(), member)
	pipe.Expire(ctx, lm.weeklyKey(), 8*24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// GetLeaderboard 获取排行榜（从高到低）
func (lm *LeaderboardManager) GetLeaderboard(ctx context.Context, boardType string, offset, limit int) ([]protocol.LeaderboardEntry, error) {
	key := leaderboardKey
	switch boardType {
	case BoardDaily:
		key = lm.dailyKey()
	case BoardWeekly:
		key = lm.weeklyKey()
	}
	if limit <= 0 {
		limit = 10
	}

	results, err := lm.redis.ZRevRangeWithScores(ctx, key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]protocol.LeaderboardEntry, 0, len(results))
	for i, result := range results {
		playerID, _ := result.Member.(string)
		stats, err := lm.GetPlayerStats(ctx, playerID)
		if err != nil || stats == nil {
			continue
		}

		entries = append(entries, protocol.LeaderboardEntry{
			Rank:       offset + i + 1,
			PlayerID:   playerID,
			PlayerName: stats.PlayerName,
			Score:      int(result.Score),
			Wins:       stats.Wins,
			WinRate:    stats.WinRate(),
		})
	}
	return entries, nil
}

// GetPlayerRank 获取玩家总榜排名，未上榜返回 -1
func (lm *LeaderboardManager) GetPlayerRank(ctx context.Context, playerID string) (int64, error) {
	rank, err := lm.redis.ZRevRank(ctx, leaderboardKey, playerID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil
		}
		return -1, err
	}
	return rank + 1, nil // Redis 排名从 0 开始
}
