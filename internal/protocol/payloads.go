package protocol

// --- 客户端请求 Payloads ---
// validate 标签在 codec.ParsePayload 中统一校验

// ReconnectPayload 断线重连请求
type ReconnectPayload struct {
	Token    string `json:"token" validate:"required"`    // 重连令牌
	PlayerID string `json:"playerId" validate:"required"` // 玩家 ID
}

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// JoinPayload 加入请求，gameMode 为空时默认 1v1
type JoinPayload struct {
	Name     string `json:"name" validate:"required,max=32"`
	GameMode string `json:"gameMode,omitempty" validate:"omitempty,oneof=1v1 2v2"`
	TeamID   string `json:"teamId,omitempty" validate:"omitempty,oneof=team1 team2"`
}

// SelectTeamPayload 选择队伍
type SelectTeamPayload struct {
	TeamID string `json:"teamId" validate:"required,oneof=team1 team2"`
}

// PlayCardPayload 出牌请求
type PlayCardPayload struct {
	CardID string `json:"cardId" validate:"required"`
}

// CaptureCardsPayload 吃牌请求，capturedCardIds 为本次新增的桌面牌
type CaptureCardsPayload struct {
	CardID          string   `json:"cardId" validate:"required"`
	CapturedCardIDs []string `json:"capturedCardIds" validate:"required,min=1,dive,required"`
}

// KoomPayload koom 请求
type KoomPayload struct {
	CardID string `json:"cardId" validate:"required"`
}

// ReorderHandPayload 调整手牌顺序
type ReorderHandPayload struct {
	NewHand []CardInfo `json:"newHand" validate:"required,dive"`
}

// GetLeaderboardPayload 获取排行榜请求
type GetLeaderboardPayload struct {
	Type   string `json:"type" validate:"omitempty,oneof=total daily weekly"`
	Offset int    `json:"offset" validate:"min=0"`
	Limit  int    `json:"limit" validate:"min=0,max=100"`
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	PlayerID       string `json:"playerId"`
	PlayerName     string `json:"playerName"`
	ReconnectToken string `json:"reconnectToken"` // 重连令牌
}

// ReconnectedPayload 重连成功响应
type ReconnectedPayload struct {
	PlayerID   string        `json:"playerId"`
	PlayerName string        `json:"playerName"`
	RoomCode   string        `json:"roomCode,omitempty"` // 如果在房间中
	State      *GameStateDTO `json:"state,omitempty"`    // 如果在房间中
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"clientTimestamp"`
	ServerTimestamp int64 `json:"serverTimestamp"` // 毫秒
}

// PlayerOfflinePayload 玩家掉线通知
type PlayerOfflinePayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Timeout    int    `json:"timeout"` // 等待重连超时（秒）
}

// PlayerOnlinePayload 玩家上线通知
type PlayerOnlinePayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// JoinedPayload 加入成功，仅发给本人
type JoinedPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	GameMode string `json:"gameMode"`
	TeamID   string `json:"teamId,omitempty"`
}

// PlayerJoinPayload 玩家加入通知
type PlayerJoinPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TeamID string `json:"teamId,omitempty"`
}

// PlayerLeavePayload 玩家离开通知
type PlayerLeavePayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TeamChangePayload 队伍变化通知
type TeamChangePayload struct {
	PlayerID string     `json:"playerId"`
	TeamID   string     `json:"teamId"`
	Teams    []TeamInfo `json:"teams"`
}

// GameStartPayload 游戏开始通知
type GameStartPayload struct {
	Players   []PlayerInfo `json:"players"`
	TurnOrder []string     `json:"turnOrder"`
	FirstTurn string       `json:"firstTurn"`
}

// TurnChangePayload 回合切换通知
type TurnChangePayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	TurnNumber int    `json:"turnNumber"`
	Timeout    int    `json:"timeout"` // 秒
}

// NewRoundPayload 新一局开始
type NewRoundPayload struct {
	Round  int          `json:"round"`
	Scores []RoundScore `json:"scores"` // 上一局的得分明细
}

// RoundScore 单个玩家一局的得分明细
type RoundScore struct {
	PlayerID     string `json:"playerId"`
	Cards        int    `json:"cards"`
	Coins        int    `json:"coins"`
	MostCards    int    `json:"mostCards"`
	MostCoins    int    `json:"mostCoins"`
	SevenOfCoins int    `json:"sevenOfCoins"`
	LastCapture  int    `json:"lastCapture"`
	Total        int    `json:"total"`
}

// GameEndPayload 游戏结束通知
// 个人胜利填 Winner，队伍胜利额外填 WinningTeam，强制结束只填 Reason
type GameEndPayload struct {
	Winner      string       `json:"winner,omitempty"`
	PlayerName  string       `json:"playerName,omitempty"`
	WinningTeam string       `json:"winningTeam,omitempty"`
	TeamName    string       `json:"teamName,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Scores      []RoundScore `json:"scores,omitempty"`
	Players     []PlayerInfo `json:"players,omitempty"`
	Teams       []TeamInfo   `json:"teams,omitempty"`
}

// PlayerTimeoutPayload 玩家超时通知
type PlayerTimeoutPayload struct {
	PlayerID string `json:"playerId"`
}

// TeamKoomPayload 队伍 koom 通知
type TeamKoomPayload struct {
	PlayerID string `json:"playerId"`
	TeamID   string `json:"teamId"`
}

// PlaySuccessPayload 出牌回执
type PlaySuccessPayload struct {
	CardID   string `json:"cardId"`
	CardName string `json:"cardName"`
}

// CaptureSuccessPayload 吃牌回执
type CaptureSuccessPayload struct {
	CardID        string `json:"cardId"`
	CardName      string `json:"cardName"`
	CapturedCount int    `json:"capturedCount"`
}

// KoomSuccessPayload koom 回执
type KoomSuccessPayload struct {
	CardID        string `json:"cardId"`
	CardName      string `json:"cardName"`
	CapturedCount int    `json:"capturedCount"`
}

// CardSelectedPayload 吃牌选择进度
type CardSelectedPayload struct {
	CardID      string   `json:"cardId"`
	SelectedIDs []string `json:"selectedIds"`
	PendingSum  int      `json:"pendingSum"`
	TargetValue int      `json:"targetValue"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StatsResultPayload 个人统计结果
type StatsResultPayload struct {
	PlayerID      string  `json:"playerId"`
	PlayerName    string  `json:"playerName"`
	TotalGames    int     `json:"totalGames"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"winRate"`
	Points        int     `json:"points"`
	Kooms         int     `json:"kooms"`
	Score         int     `json:"score"`
	Rank          int     `json:"rank"`
	CurrentStreak int     `json:"currentStreak"`
	MaxWinStreak  int     `json:"maxWinStreak"`
}

// LeaderboardResultPayload 排行榜结果
type LeaderboardResultPayload struct {
	Type    string             `json:"type"`
	Entries []LeaderboardEntry `json:"entries"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Score      int     `json:"score"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"winRate"`
}

// RoomListResultPayload 房间列表结果
type RoomListResultPayload struct {
	Rooms []RoomListItem `json:"rooms"`
}

// RoomListItem 房间列表项
type RoomListItem struct {
	RoomCode    string `json:"roomCode"`
	GameMode    string `json:"gameMode"`
	Phase       string `json:"phase"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
}

// --- 通用数据结构 ---

// GameStateDTO 状态快照，定时推送给每个在座玩家，也用于重连恢复
// Hand 只包含查看者自己的手牌，其他玩家只暴露张数
type GameStateDTO struct {
	RoomCode            string       `json:"roomCode"`
	Phase               string       `json:"gamePhase"`
	GameMode            string       `json:"gameMode"`
	Players             []PlayerInfo `json:"players"`
	Teams               []TeamInfo   `json:"teams,omitempty"`
	Hand                []CardInfo   `json:"hand"`
	TableCards          []CardInfo   `json:"tableCards"`
	DeckCount           int          `json:"deckCount"`
	CurrentTurn         string       `json:"currentTurn"`
	TurnOrder           []string     `json:"turnOrder,omitempty"`
	TurnStartTime       int64        `json:"turnStartTime"` // 毫秒
	TurnNumber          int          `json:"turnNumber"`
	Round               int          `json:"round"`
	LastCapturePlayerID string       `json:"lastCapturePlayerId"`
	Winner              string       `json:"winner,omitempty"`
	WinningTeam         string       `json:"winningTeam,omitempty"`
}

// PlayerInfo 玩家信息
type PlayerInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	HandCount     int    `json:"handCount"`
	CapturedCount int    `json:"capturedCount"`
	IsCurrentTurn bool   `json:"isCurrentTurn"`
	Connected     bool   `json:"connected"`
	Score         int    `json:"score"`
	LastCapture   bool   `json:"lastCapture"`
	TeamID        string `json:"teamId,omitempty"`
	Kooms         int    `json:"kooms"`
}

// TeamInfo 队伍信息
type TeamInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	MemberCount int      `json:"memberCount"`
	Score       int      `json:"score"`
	Members     []string `json:"members"`
}

// CardInfo 牌信息
type CardInfo struct {
	ID    string `json:"id" validate:"required"`
	Suit  string `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value,omitempty"`
}
