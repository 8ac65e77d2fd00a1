package session

import "github.com/palemoky/chkobba/internal/protocol"

// msg 会话邮箱中的消息，客户端意图与定时器提议共用同一入口
type msg interface{ isSessionMsg() }

type joinMsg struct {
	playerID string
	name     string
	teamID   string
	reply    chan error
}

type playCardMsg struct {
	playerID string
	cardID   string
	reply    chan error
}

type captureMsg struct {
	playerID string
	cardID   string
	ids      []string
	reply    chan error
}

type koomMsg struct {
	playerID string
	cardID   string
	reply    chan error
}

type reorderMsg struct {
	playerID string
	ids      []string
	reply    chan error
}

type selectTeamMsg struct {
	playerID string
	teamID   string
	reply    chan error
}

type leaveMsg struct {
	playerID string
	reply    chan error
}

type disconnectMsg struct {
	playerID string
	reply    chan error
}

type resumeMsg struct {
	playerID string
	reply    chan error
}

type stateMsg struct {
	viewerID string
	reply    chan protocol.GameStateDTO
}

type snapshotMsg struct {
	reply chan Snapshot
}

// 定时器提议，处理前校验 generation
type turnTimeoutMsg struct{ gen uint64 }

type graceExpiredMsg struct {
	playerID string
	gen      uint64
}

func (joinMsg) isSessionMsg()         {}
func (playCardMsg) isSessionMsg()     {}
func (captureMsg) isSessionMsg()      {}
func (koomMsg) isSessionMsg()         {}
func (reorderMsg) isSessionMsg()      {}
func (selectTeamMsg) isSessionMsg()   {}
func (leaveMsg) isSessionMsg()        {}
func (disconnectMsg) isSessionMsg()   {}
func (resumeMsg) isSessionMsg()       {}
func (stateMsg) isSessionMsg()        {}
func (snapshotMsg) isSessionMsg()     {}
func (turnTimeoutMsg) isSessionMsg()  {}
func (graceExpiredMsg) isSessionMsg() {}
