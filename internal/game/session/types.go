package session

import (
	"time"

	"github.com/palemoky/chkobba/internal/game/card"
	"github.com/palemoky/chkobba/internal/protocol"
)

// Phase 游戏阶段
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished" // 终态
)

// 发牌常量
const (
	HandSize     = 3
	TableStarter = 4
)

// Player 玩家，只由会话 goroutine 读写
type Player struct {
	ID            string
	Name          string
	Hand          []card.Card
	Captured      []card.Card
	IsCurrentTurn bool
	Connected     bool
	Score         int
	LastCapture   bool
	TeamID        string
	Kooms         int
}

// Options 时间参数，零值字段使用默认值；SnapshotInterval 为负时不推送快照
type Options struct {
	TurnTimeout          time.Duration
	ReconnectGrace       time.Duration
	CaptureExpiry        time.Duration
	CaptureSweepAge      time.Duration
	CaptureSweepInterval time.Duration
	SnapshotInterval     time.Duration
	// Seed 固定洗牌种子，0 表示按时间取种子
	Seed uint64
}

// DefaultOptions 默认时间参数
func DefaultOptions() Options {
	return Options{
		TurnTimeout:          30 * time.Second,
		ReconnectGrace:       40 * time.Second,
		CaptureExpiry:        5 * time.Second,
		CaptureSweepAge:      10 * time.Second,
		CaptureSweepInterval: 60 * time.Second,
		SnapshotInterval:     50 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TurnTimeout <= 0 {
		o.TurnTimeout = d.TurnTimeout
	}
	if o.ReconnectGrace <= 0 {
		o.ReconnectGrace = d.ReconnectGrace
	}
	if o.CaptureExpiry <= 0 {
		o.CaptureExpiry = d.CaptureExpiry
	}
	if o.CaptureSweepAge <= 0 {
		o.CaptureSweepAge = d.CaptureSweepAge
	}
	if o.CaptureSweepInterval <= 0 {
		o.CaptureSweepInterval = d.CaptureSweepInterval
	}
	if o.SnapshotInterval == 0 {
		o.SnapshotInterval = d.SnapshotInterval
	}
	return o
}

// Notifier delivers outbound messages. Calls happen on the session goroutine in
// mutation order; implementations must not block and must not call back into the Session.
type Notifier interface {
	Broadcast(msg *protocol.Message)
	SendTo(playerID string, msg *protocol.Message)
}

// Hooks 会话事件回调，均在独立 goroutine 中执行
type Hooks struct {
	OnGameEnd       func(Result)
	OnRoundEnd      func(Snapshot)
	OnPlayerRemoved func(playerID string)
}

// Result 一局游戏的最终结果
type Result struct {
	RoomCode    string         `json:"roomCode"`
	GameMode    string         `json:"gameMode"`
	Forced      bool           `json:"forced"`
	Reason      string         `json:"reason,omitempty"`
	Winner      string         `json:"winner,omitempty"`
	WinningTeam string         `json:"winningTeam,omitempty"`
	Rounds      int            `json:"rounds"`
	Players     []PlayerResult `json:"players"`
}

// PlayerResult 单个玩家的结算
type PlayerResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TeamID string `json:"teamId,omitempty"`
	Score  int    `json:"score"`
	Kooms  int    `json:"kooms"`
	Won    bool   `json:"won"`
}

// Summary 供房间列表等外部读取的轻量状态，无需进入会话 goroutine
type Summary struct {
	Phase       Phase
	GameMode    string
	PlayerCount int
	Capacity    int
}
