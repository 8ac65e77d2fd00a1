// Package session 一个房间的权威游戏状态机。
//
// 所有状态只由一个 goroutine 读写：客户端意图和定时器触发都投递到同一个邮箱，
// 按到达顺序逐条处理，因此无需加锁。定时器只“提议”变更，处理时用 generation
// 和阶段校验丢弃过期的提议。
package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/apperrors"
	"github.com/palemoky/chkobba/internal/game/card"
	"github.com/palemoky/chkobba/internal/game/score"
	"github.com/palemoky/chkobba/internal/game/team"
	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
)

const inboxSize = 64

// Session 游戏会话
type Session struct {
	code     string
	mode     modeStrategy
	opts     Options
	notifier Notifier
	hooks    Hooks
	log      *zap.Logger
	rng      *rand.Rand
	now      func() time.Time

	inbox  chan msg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	summary atomic.Pointer[Summary]

	// 以下字段只在会话 goroutine 中访问
	players             []*Player
	roster              *team.Roster // 仅 2v2
	deck                card.Deck
	table               []card.Card
	phase               Phase
	currentTurn         string
	turnOrder           []string
	turnStartTime       time.Time
	turnNumber          int
	round               int
	lastCapturePlayerID string
	winner              string
	winningTeam         string
	endReason           string
	lastScores          []score.Breakdown

	pending *pendingTable

	turnTimer *time.Timer
	turnGen   uint64
	grace     map[string]*graceTimer
	graceGen  uint64
}

// New creates a session in the waiting phase. Call Start to run its loop.
// gameMode is protocol.ModeIndividual or protocol.ModeTeam.
func New(parent context.Context, code, gameMode string, notifier Notifier, opts Options, hooks Hooks, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		code:     code,
		mode:     modeFor(gameMode),
		opts:     opts,
		notifier: notifier,
		hooks:    hooks,
		log:      log.With(zap.String("room", code)),
		rng:      card.NewSeededRand(seed),
		now:      time.Now,
		inbox:    make(chan msg, inboxSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		phase:    PhaseWaiting,
		pending:  newPendingTable(),
		grace:    make(map[string]*graceTimer),
	}
	if s.mode.teams() {
		s.roster = team.NewRoster()
	}
	s.publishSummary()
	return s
}

// Start runs the session loop in its own goroutine.
func (s *Session) Start() {
	go s.loop()
}

// Close stops the loop and every timer. Safe to call more than once.
func (s *Session) Close() {
	s.cancel()
}

// Done is closed once the loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Code 房间号
func (s *Session) Code() string {
	return s.code
}

// GameMode 游戏模式
func (s *Session) GameMode() string {
	return s.mode.name()
}

// Summary returns the latest phase and seat count without entering the loop.
func (s *Session) Summary() Summary {
	return *s.summary.Load()
}

func (s *Session) loop() {
	defer close(s.done)
	defer s.stopTimers()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("💥 会话 goroutine panic",
				zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()

	sweep := time.NewTicker(s.opts.CaptureSweepInterval)
	defer sweep.Stop()

	var snapshots <-chan time.Time
	if s.opts.SnapshotInterval > 0 {
		t := time.NewTicker(s.opts.SnapshotInterval)
		defer t.Stop()
		snapshots = t.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case m := <-s.inbox:
			s.handle(m)
			s.publishSummary()
		case <-sweep.C:
			if n := s.pending.sweep(s.now(), s.opts.CaptureSweepAge); n > 0 {
				s.log.Debug("🧹 清理过期吃牌选择", zap.Int("count", n))
			}
		case <-snapshots:
			s.publishStates()
		}
	}
}

func (s *Session) handle(m msg) {
	switch m := m.(type) {
	case joinMsg:
		m.reply <- s.settle(s.join(m.playerID, m.name, m.teamID))
	case playCardMsg:
		m.reply <- s.settle(s.playCard(m.playerID, m.cardID))
	case captureMsg:
		m.reply <- s.settle(s.captureCards(m.playerID, m.cardID, m.ids))
	case koomMsg:
		m.reply <- s.settle(s.koom(m.playerID, m.cardID))
	case reorderMsg:
		m.reply <- s.settle(s.reorderHand(m.playerID, m.ids))
	case selectTeamMsg:
		m.reply <- s.settle(s.selectTeam(m.playerID, m.teamID))
	case leaveMsg:
		m.reply <- s.settle(s.leave(m.playerID))
	case disconnectMsg:
		m.reply <- s.settle(s.disconnect(m.playerID))
	case resumeMsg:
		m.reply <- s.settle(s.resume(m.playerID))
	case stateMsg:
		m.reply <- s.stateFor(m.viewerID)
	case snapshotMsg:
		m.reply <- s.snapshot()
	case turnTimeoutMsg:
		s.onTurnTimeout(m.gen)
	case graceExpiredMsg:
		s.onGraceExpired(m.playerID, m.gen)
	default:
		s.log.Warn("⚠️ 未知会话消息", zap.String("type", fmt.Sprintf("%T", m)))
	}
}

// post 投递消息，会话关闭后丢弃
func (s *Session) post(m msg) bool {
	select {
	case s.inbox <- m:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// call 投递请求并等待回复
func call[T any](ctx context.Context, s *Session, m msg, reply chan T) (T, error) {
	var zero T
	select {
	case s.inbox <- m:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.ctx.Done():
		return zero, apperrors.ErrSessionClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, apperrors.ErrSessionClosed
	}
}

func (s *Session) request(ctx context.Context, m msg, reply chan error) error {
	err, callErr := call(ctx, s, m, reply)
	if callErr != nil {
		return callErr
	}
	return err
}

// --- 公开的阻塞接口，均经由邮箱串行执行 ---

// Join seats a player. teamID is only honoured in team mode and may be empty.
func (s *Session) Join(ctx context.Context, playerID, name, teamID string) error {
	reply := make(chan error, 1)
	return s.request(ctx, joinMsg{playerID: playerID, name: name, teamID: teamID, reply: reply}, reply)
}

// PlayCard 出一张牌到桌面
func (s *Session) PlayCard(ctx context.Context, playerID, cardID string) error {
	reply := make(chan error, 1)
	return s.request(ctx, playCardMsg{playerID: playerID, cardID: cardID, reply: reply}, reply)
}

// CaptureCards adds table card ids to the player's running selection for cardID.
func (s *Session) CaptureCards(ctx context.Context, playerID, cardID string, capturedIDs []string) error {
	reply := make(chan error, 1)
	ids := append([]string(nil), capturedIDs...)
	return s.request(ctx, captureMsg{playerID: playerID, cardID: cardID, ids: ids, reply: reply}, reply)
}

// Koom 用最后一张手牌清台
func (s *Session) Koom(ctx context.Context, playerID, cardID string) error {
	reply := make(chan error, 1)
	return s.request(ctx, koomMsg{playerID: playerID, cardID: cardID, reply: reply}, reply)
}

// ReorderHand 调整手牌顺序，newHand 必须是当前手牌的一个排列
func (s *Session) ReorderHand(ctx context.Context, playerID string, newHand []string) error {
	reply := make(chan error, 1)
	ids := append([]string(nil), newHand...)
	return s.request(ctx, reorderMsg{playerID: playerID, ids: ids, reply: reply}, reply)
}

// SelectTeam 等待阶段换队
func (s *Session) SelectTeam(ctx context.Context, playerID, teamID string) error {
	reply := make(chan error, 1)
	return s.request(ctx, selectTeamMsg{playerID: playerID, teamID: teamID, reply: reply}, reply)
}

// Leave removes the player immediately, bypassing the grace window.
func (s *Session) Leave(ctx context.Context, playerID string) error {
	reply := make(chan error, 1)
	return s.request(ctx, leaveMsg{playerID: playerID, reply: reply}, reply)
}

// Disconnect marks an involuntary disconnect and starts the grace window.
func (s *Session) Disconnect(ctx context.Context, playerID string) error {
	reply := make(chan error, 1)
	return s.request(ctx, disconnectMsg{playerID: playerID, reply: reply}, reply)
}

// Resume reattaches a disconnected player. Resuming a connected player is a no-op.
func (s *Session) Resume(ctx context.Context, playerID string) error {
	reply := make(chan error, 1)
	return s.request(ctx, resumeMsg{playerID: playerID, reply: reply}, reply)
}

// State returns the observer view for viewerID (own hand visible, others as counts).
func (s *Session) State(ctx context.Context, viewerID string) (protocol.GameStateDTO, error) {
	reply := make(chan protocol.GameStateDTO, 1)
	return call(ctx, s, stateMsg{viewerID: viewerID, reply: reply}, reply)
}

// Snapshot returns a deep copy of the full canonical state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	return call(ctx, s, snapshotMsg{reply: reply}, reply)
}

// --- 内部工具 ---

func (s *Session) publishSummary() {
	s.summary.Store(&Summary{
		Phase:       s.phase,
		GameMode:    s.mode.name(),
		PlayerCount: len(s.players),
		Capacity:    s.mode.capacity(),
	})
}

// settle 在回复调用方之前刷新摘要，调用返回后 Summary 即可见
func (s *Session) settle(err error) error {
	s.publishSummary()
	return err
}

func (s *Session) findPlayer(playerID string) (int, *Player) {
	for i, p := range s.players {
		if p.ID == playerID {
			return i, p
		}
	}
	return -1, nil
}

func (s *Session) broadcast(msgType protocol.MessageType, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(codec.MustNewMessage(msgType, payload))
}

func (s *Session) sendTo(playerID string, msgType protocol.MessageType, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.SendTo(playerID, codec.MustNewMessage(msgType, payload))
}

func (s *Session) stopTimers() {
	s.cancelTurnClock()
	for id := range s.grace {
		s.cancelGrace(id)
	}
}
