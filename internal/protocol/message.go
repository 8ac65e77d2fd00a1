package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgReconnect MessageType = "reconnect" // 断线重连
	MsgPing      MessageType = "ping"      // 心跳 ping

	// 房间操作
	MsgJoin       MessageType = "join"       // 加入（按模式匹配房间）
	MsgLeave      MessageType = "leave"      // 主动离开
	MsgSelectTeam MessageType = "selectTeam" // 选择队伍（仅 2v2 等待阶段）

	// 游戏操作
	MsgPlayCard     MessageType = "playCard"     // 出牌到桌面
	MsgCaptureCards MessageType = "captureCards" // 吃牌（可分多次提交）
	MsgKoom         MessageType = "koom"         // 最后一张牌清台
	MsgReorderHand  MessageType = "reorderHand"  // 调整手牌顺序

	// 查询
	MsgGetStats       MessageType = "getStats"       // 获取个人统计
	MsgGetLeaderboard MessageType = "getLeaderboard" // 获取排行榜
	MsgGetRoomList    MessageType = "getRoomList"    // 获取房间列表
)

// 服务端 → 客户端 消息类型
const (
	// 连接相关
	MsgConnected     MessageType = "connected"     // 连接成功
	MsgReconnected   MessageType = "reconnected"   // 重连成功
	MsgPong          MessageType = "pong"          // 心跳 pong
	MsgPlayerOffline MessageType = "playerOffline" // 玩家掉线通知
	MsgPlayerOnline  MessageType = "playerOnline"  // 玩家上线通知

	// 房间相关
	MsgJoined      MessageType = "joined"      // 加入成功（仅发给本人）
	MsgPlayerJoin  MessageType = "playerJoin"  // 有玩家加入
	MsgPlayerLeave MessageType = "playerLeave" // 有玩家离开
	MsgTeamChange  MessageType = "teamChange"  // 队伍变化

	// 游戏流程
	MsgGameStart     MessageType = "gameStart"
	MsgTurnChange    MessageType = "turnChange"
	MsgNewRound      MessageType = "newRound"
	MsgGameEnd       MessageType = "gameEnd"
	MsgPlayerTimeout MessageType = "playerTimeout"
	MsgTeamKoom      MessageType = "teamKoom"
	MsgState         MessageType = "state" // 定时推送的状态快照

	// 操作回执（仅发给操作者）
	MsgPlaySuccess    MessageType = "playSuccess"
	MsgCaptureSuccess MessageType = "captureSuccess"
	MsgKoomSuccess    MessageType = "koomSuccess"
	MsgCardSelected   MessageType = "cardSelected" // 吃牌选择进度

	// 查询结果
	MsgStatsResult       MessageType = "statsResult"
	MsgLeaderboardResult MessageType = "leaderboardResult"
	MsgRoomListResult    MessageType = "roomListResult"

	// 错误
	MsgError MessageType = "error"
)

// 游戏模式
const (
	ModeIndividual = "1v1"
	ModeTeam       = "2v2"
)

// 强制结束原因
const ReasonInsufficientPlayers = "insufficient_players"
