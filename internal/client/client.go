package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBufferSize    = 256
	receiveBufferSize = 256

	defaultReconnectAttempts = 5
	defaultReconnectInterval = 2 * time.Second
)

// ErrClosed 客户端已关闭
var ErrClosed = errors.New("client closed")

// Options 客户端选项
type Options struct {
	Logger *zap.Logger

	// AutoReconnect 连接意外断开时用重连令牌恢复身份
	AutoReconnect     bool
	ReconnectAttempts int
	ReconnectInterval time.Duration
}

// Client 无界面的 WebSocket 客户端，供机器人和集成测试使用
type Client struct {
	ServerURL string

	// 回调在读协程中执行，不要阻塞
	OnMessage   func(*protocol.Message)
	OnReconnect func()
	OnClose     func()

	opts    Options
	log     *zap.Logger
	receive chan *protocol.Message
	done    chan struct{}

	mu             sync.RWMutex
	conn           *websocket.Conn
	send           chan []byte
	playerID       string
	playerName     string
	reconnectToken string
	closed         bool

	// 重连期间服务器先下发的临时身份，重连失败时改用它
	fresh        *protocol.ConnectedPayload
	reconnecting atomic.Bool
	latency      atomic.Int64
}

// New 创建客户端，serverURL 形如 ws://host:port/ws
func New(serverURL string, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = defaultReconnectAttempts
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = defaultReconnectInterval
	}
	return &Client{
		ServerURL: serverURL,
		opts:      opts,
		log:       opts.Logger,
		receive:   make(chan *protocol.Message, receiveBufferSize),
		done:      make(chan struct{}),
	}
}

// Connect 建立连接并等待服务器分配身份
func (c *Client) Connect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return err
	}
	if _, err := c.WaitFor(ctx, protocol.MsgConnected); err != nil {
		return fmt.Errorf("等待连接确认失败: %w", err)
	}
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, c.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("连接 %s 失败: %w", c.ServerURL, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.Close()
		return ErrClosed
	}
	send := make(chan []byte, sendBufferSize)
	c.conn = ws
	c.send = send
	c.mu.Unlock()

	stop := make(chan struct{})
	go c.writePump(ws, send, stop)
	go c.readPump(ws, stop)
	return nil
}

// readPump 读取服务器消息，连接结束时决定重连还是关闭
func (c *Client) readPump(ws *websocket.Conn, stop chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("💥 readPump panic", zap.Any("panic", r), zap.Stack("stack"))
		}
		close(stop)
		_ = ws.Close()
		c.handleReadExit()
	}()

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("读取错误", zap.Error(err))
			}
			return
		}

		msg, err := codec.Decode(data)
		if err != nil {
			c.log.Debug("消息解析错误", zap.Error(err))
			continue
		}
		c.processMessage(msg)
	}
}

func (c *Client) handleReadExit() {
	if c.isClosed() {
		return
	}
	if c.opts.AutoReconnect && c.ReconnectToken() != "" && c.reconnecting.CompareAndSwap(false, true) {
		go c.tryReconnect()
		return
	}
	c.Close()
}

func (c *Client) processMessage(msg *protocol.Message) {
	reconnected := c.handleInternalMessage(msg)

	if c.OnMessage != nil {
		c.OnMessage(msg)
	}

	// 消费方跟不上时丢弃
	select {
	case c.receive <- msg:
	default:
	}

	if reconnected && c.OnReconnect != nil {
		c.OnReconnect()
	}
}

// handleInternalMessage 维护身份和延迟，重连成功时返回 true
func (c *Client) handleInternalMessage(msg *protocol.Message) bool {
	switch msg.Type {
	case protocol.MsgConnected:
		p, err := codec.ParsePayload[protocol.ConnectedPayload](msg)
		if err != nil {
			return false
		}
		if c.reconnecting.Load() {
			c.mu.Lock()
			c.fresh = p
			c.mu.Unlock()
			return false
		}
		c.setIdentity(p.PlayerID, p.PlayerName, p.ReconnectToken)

	case protocol.MsgReconnected:
		p, err := codec.ParsePayload[protocol.ReconnectedPayload](msg)
		if err != nil {
			return false
		}
		c.mu.Lock()
		c.playerID = p.PlayerID
		c.playerName = p.PlayerName
		c.fresh = nil
		c.mu.Unlock()
		c.reconnecting.Store(false)
		c.log.Info("🔄 重连成功", zap.String("player", p.PlayerID))
		return true

	case protocol.MsgError:
		p, err := codec.ParsePayload[protocol.ErrorPayload](msg)
		if err != nil || p.Code != protocol.ErrCodeReconnect || !c.reconnecting.Load() {
			return false
		}
		// 旧会话已过期，沿用这条连接的新身份
		c.mu.Lock()
		if c.fresh != nil {
			c.playerID = c.fresh.PlayerID
			c.playerName = c.fresh.PlayerName
			c.reconnectToken = c.fresh.ReconnectToken
			c.fresh = nil
		}
		c.mu.Unlock()
		c.reconnecting.Store(false)
		c.log.Warn("⚠️ 重连被拒绝，使用新身份", zap.String("player", c.PlayerID()))

	case protocol.MsgPong:
		p, err := codec.ParsePayload[protocol.PongPayload](msg)
		if err == nil {
			c.latency.Store(time.Now().UnixMilli() - p.ClientTimestamp)
		}
	}
	return false
}

// writePump 写出消息并定时发送 ping
func (c *Client) writePump(ws *websocket.Conn, send chan []byte, stop chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case message := <-send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-stop:
			return

		case <-c.done:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// tryReconnect 按间隔重试，用重连令牌恢复原身份
func (c *Client) tryReconnect() {
	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(c.opts.ReconnectInterval):
		}

		c.log.Info("🔌 尝试重连", zap.Int("attempt", attempt), zap.Int("max", c.opts.ReconnectAttempts))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.dial(ctx)
		cancel()
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			c.log.Debug("重连失败", zap.Error(err))
			continue
		}

		if err := c.sendPayload(protocol.MsgReconnect, protocol.ReconnectPayload{
			Token:    c.ReconnectToken(),
			PlayerID: c.PlayerID(),
		}); err != nil {
			c.log.Debug("发送重连请求失败", zap.Error(err))
			continue
		}
		return
	}

	c.log.Warn("❌ 重连次数用尽")
	c.reconnecting.Store(false)
	c.Close()
}

// SendMessage 编码并排队发送，不阻塞
func (c *Client) SendMessage(msg *protocol.Message) error {
	data, err := codec.Encode(msg)
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.send == nil {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

func (c *Client) sendPayload(msgType protocol.MessageType, payload any) error {
	msg, err := codec.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// Receive 返回收到的消息流
func (c *Client) Receive() <-chan *protocol.Message {
	return c.receive
}

// WaitFor 阻塞直到收到任一指定类型的消息，其余消息被丢弃
func (c *Client) WaitFor(ctx context.Context, types ...protocol.MessageType) (*protocol.Message, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, ErrClosed
		case msg := <-c.receive:
			for _, t := range types {
				if msg.Type == t {
					return msg, nil
				}
			}
		}
	}
}

// Close 关闭连接，不再重连
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	if c.OnClose != nil {
		c.OnClose()
	}
}

// Done 客户端关闭时关闭
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Drop 断开底层连接但保留身份，开启自动重连时会触发重连
func (c *Client) Drop() {
	c.mu.RLock()
	ws := c.conn
	c.mu.RUnlock()
	if ws != nil {
		_ = ws.Close()
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) setIdentity(id, name, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
	c.playerName = name
	c.reconnectToken = token
}

// PlayerID 当前玩家 ID
func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// PlayerName 当前玩家昵称
func (c *Client) PlayerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerName
}

// ReconnectToken 重连令牌
func (c *Client) ReconnectToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnectToken
}

// Latency 最近一次 ping 的往返延迟
func (c *Client) Latency() time.Duration {
	return time.Duration(c.latency.Load()) * time.Millisecond
}

// Reconnecting 是否正在重连
func (c *Client) Reconnecting() bool {
	return c.reconnecting.Load()
}
