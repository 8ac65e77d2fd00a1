//go:build !production

package testutil

import (
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/chkobba/internal/protocol"
)

// MockClient 实现 types.ClientInterface 的 mock
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) GetName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) SetIdentity(id, name string) {
	m.Called(id, name)
}

func (m *MockClient) GetRoom() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) SetRoom(roomCode string) {
	m.Called(roomCode)
}

func (m *MockClient) SendMessage(msg *protocol.Message) {
	m.Called(msg)
}

func (m *MockClient) Close() {
	m.Called()
}

// SimpleClient 记录收到消息的客户端，不使用 testify（会话 goroutine 会并发调用 SendMessage）
type SimpleClient struct {
	mu       sync.Mutex
	id       string
	name     string
	roomCode string
	messages []*protocol.Message
	closed   bool
}

// NewSimpleClient 创建客户端
func NewSimpleClient(id, name string) *SimpleClient {
	return &SimpleClient{id: id, name: name}
}

func (c *SimpleClient) GetID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *SimpleClient) GetName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *SimpleClient) SetIdentity(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id, c.name = id, name
}

func (c *SimpleClient) GetRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode
}

func (c *SimpleClient) SetRoom(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = code
}

func (c *SimpleClient) SendMessage(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

func (c *SimpleClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// IsClosed 是否已关闭
func (c *SimpleClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Messages 收到的所有消息副本
func (c *SimpleClient) Messages() []*protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*protocol.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Count 某类型消息的数量
func (c *SimpleClient) Count(t protocol.MessageType) int {
	n := 0
	for _, m := range c.Messages() {
		if m.Type == t {
			n++
		}
	}
	return n
}

// Last 某类型的最后一条消息，没有时返回 nil
func (c *SimpleClient) Last(t protocol.MessageType) *protocol.Message {
	msgs := c.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == t {
			return msgs[i]
		}
	}
	return nil
}

// LastPayload 解析某类型最后一条消息的 payload
func LastPayload[T any](c *SimpleClient, t protocol.MessageType) (T, bool) {
	var out T
	msg := c.Last(t)
	if msg == nil {
		return out, false
	}
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		return out, false
	}
	return out, true
}
