package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小
	maxMessageSize = 4096

	// 发送缓冲区大小
	sendBufferSize = 256

	// 超速次数上限，超过后断开
	maxRateWarnings = 5

	// 断线处理的超时
	disconnectTimeout = 5 * time.Second
)

// Client 代表一个连接的玩家
type Client struct {
	IP string // 客户端 IP 地址

	id     string
	name   string
	roomID string

	server *Server
	conn   *websocket.Conn
	send   chan []byte
	log    *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClient 创建新客户端，分配临时 ID 和随机昵称
func NewClient(s *Server, conn *websocket.Conn, ip string) *Client {
	id := uuid.New().String()
	return &Client{
		IP:     ip,
		id:     id,
		name:   GenerateNickname(),
		server: s,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		log:    s.log.With(zap.String("ip", ip)),
	}
}

// ReadPump 从 WebSocket 读取消息，连接断开时负责善后
func (c *Client) ReadPump() {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("💥 ReadPump panic", zap.Any("panic", r), zap.Stack("stack"))
		}
		c.handleDisconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("读取错误", zap.String("player", c.GetID()), zap.Error(err))
			}
			return
		}

		allowed, warning := c.server.messageLimiter.AllowMessage(c.GetID())
		if !allowed {
			c.log.Warn("⚠️ 客户端消息过于频繁", zap.String("player", c.GetID()))
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeRateLimit))
			if c.server.messageLimiter.GetWarningCount(c.GetID()) > maxRateWarnings {
				c.log.Warn("🚫 客户端多次超速，断开连接", zap.String("player", c.GetID()))
				return
			}
			continue
		}
		if warning {
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeRateLimit))
		}

		msg, err := codec.Decode(data)
		if err != nil {
			c.log.Debug("消息解析错误", zap.Error(err))
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			continue
		}

		c.server.handler.Handle(c, msg)
		codec.PutMessage(msg)
	}
}

// WritePump 向 WebSocket 写入消息并定时发送 ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送消息给客户端，不阻塞；缓冲区满时关闭连接
func (c *Client) SendMessage(msg *protocol.Message) {
	data, err := codec.Encode(msg)
	if err != nil {
		c.log.Error("消息编码错误", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	full := false
	select {
	case c.send <- data:
	default:
		full = true
	}
	c.mu.RUnlock()

	if full {
		c.log.Warn("客户端发送缓冲区已满", zap.String("player", c.GetID()))
		c.Close()
	}
}

// handleDisconnect 连接断开：离线标记保留会话，房间内进入重连等待
func (c *Client) handleDisconnect() {
	// 已被重连的新连接替换时不做处理
	if !c.server.unregisterClient(c) {
		return
	}

	id := c.GetID()
	c.server.messageLimiter.ClearRateLimit(id)
	c.server.sessionManager.SetOffline(id)

	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	c.server.roomManager.Disconnect(ctx, c)
}

// Close 关闭客户端连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// GetID 玩家 ID
func (c *Client) GetID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// GetName 玩家昵称
func (c *Client) GetName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// SetIdentity 重连成功后沿用旧的玩家身份
func (c *Client) SetIdentity(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	c.name = name
}

// SetRoom 设置客户端所在房间
func (c *Client) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// GetRoom 获取客户端所在房间
func (c *Client) GetRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}
