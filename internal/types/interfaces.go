package types

import (
	"github.com/palemoky/chkobba/internal/protocol"
)

// ServerInterface 定义服务器接口（用于打破循环依赖）
type ServerInterface interface {
	IsMaintenanceMode() bool
	GetOnlineCount() int
	BroadcastToLobby(msg *protocol.Message)
	GetClientByID(id string) ClientInterface
	RegisterClient(id string, client ClientInterface)
	UnregisterClient(id string)
}

// ClientInterface 定义客户端接口
// SendMessage 不能阻塞：会话 goroutine 通过房间直接调用它
type ClientInterface interface {
	GetID() string
	GetName() string
	// SetIdentity 重连成功后沿用旧的玩家身份
	SetIdentity(id, name string)
	GetRoom() string
	SetRoom(code string)
	SendMessage(msg *protocol.Message)
	Close()
}
