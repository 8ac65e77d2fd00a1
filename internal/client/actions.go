package client

import (
	"context"
	"fmt"
	"time"

	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
)

// ServerError 服务器返回的错误消息
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// --- 房间 ---

// Join 按模式加入房间，gameMode 为空时为 1v1
func (c *Client) Join(name, gameMode, teamID string) error {
	return c.sendPayload(protocol.MsgJoin, protocol.JoinPayload{Name: name, GameMode: gameMode, TeamID: teamID})
}

// Leave 离开房间
func (c *Client) Leave() error {
	return c.sendPayload(protocol.MsgLeave, nil)
}

// SelectTeam 选择队伍
func (c *Client) SelectTeam(teamID string) error {
	return c.sendPayload(protocol.MsgSelectTeam, protocol.SelectTeamPayload{TeamID: teamID})
}

// --- 对局 ---

// PlayCard 出牌到桌面
func (c *Client) PlayCard(cardID string) error {
	return c.sendPayload(protocol.MsgPlayCard, protocol.PlayCardPayload{CardID: cardID})
}

// CaptureCards 吃牌，capturedIDs 为本次新增选择的桌面牌
func (c *Client) CaptureCards(cardID string, capturedIDs []string) error {
	return c.sendPayload(protocol.MsgCaptureCards, protocol.CaptureCardsPayload{CardID: cardID, CapturedCardIDs: capturedIDs})
}

// Koom 用最后一张手牌清台
func (c *Client) Koom(cardID string) error {
	return c.sendPayload(protocol.MsgKoom, protocol.KoomPayload{CardID: cardID})
}

// ReorderHand 调整手牌顺序，只需要牌 ID
func (c *Client) ReorderHand(cardIDs []string) error {
	hand := make([]protocol.CardInfo, len(cardIDs))
	for i, id := range cardIDs {
		hand[i] = protocol.CardInfo{ID: id}
	}
	return c.sendPayload(protocol.MsgReorderHand, protocol.ReorderHandPayload{NewHand: hand})
}

// --- 查询 ---

// Ping 发送心跳，延迟在收到 pong 后更新
func (c *Client) Ping() error {
	return c.sendPayload(protocol.MsgPing, protocol.PingPayload{Timestamp: time.Now().UnixMilli()})
}

// GetStats 请求个人统计
func (c *Client) GetStats() error {
	return c.sendPayload(protocol.MsgGetStats, nil)
}

// GetLeaderboard 请求排行榜
func (c *Client) GetLeaderboard(boardType string, offset, limit int) error {
	return c.sendPayload(protocol.MsgGetLeaderboard, protocol.GetLeaderboardPayload{Type: boardType, Offset: offset, Limit: limit})
}

// GetRoomList 请求房间列表
func (c *Client) GetRoomList() error {
	return c.sendPayload(protocol.MsgGetRoomList, nil)
}

// StartHeartbeat 按间隔发送 ping 直到 ctx 结束或客户端关闭
func (c *Client) StartHeartbeat(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-ticker.C:
				if !c.Reconnecting() {
					_ = c.Ping()
				}
			}
		}
	}()
}

// --- 请求/响应 ---

// Request 发送请求并等待指定类型的响应，服务器返回错误时转为 *ServerError
func Request[T any](ctx context.Context, c *Client, send func() error, reply protocol.MessageType) (*T, error) {
	if err := send(); err != nil {
		return nil, err
	}
	msg, err := c.WaitFor(ctx, reply, protocol.MsgError)
	if err != nil {
		return nil, err
	}
	if msg.Type == protocol.MsgError {
		p, perr := codec.ParsePayload[protocol.ErrorPayload](msg)
		if perr != nil {
			return nil, perr
		}
		return nil, &ServerError{Code: p.Code, Message: p.Message}
	}
	return codec.ParsePayload[T](msg)
}
