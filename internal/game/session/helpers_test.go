package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/game/card"
	"github.com/palemoky/chkobba/internal/protocol"
)

// recorder 记录会话发出的所有消息
type recorder struct {
	mu         sync.Mutex
	broadcasts []*protocol.Message
	direct     map[string][]*protocol.Message
}

func newRecorder() *recorder {
	return &recorder{direct: make(map[string][]*protocol.Message)}
}

func (r *recorder) Broadcast(msg *protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, msg)
}

func (r *recorder) SendTo(playerID string, msg *protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct[playerID] = append(r.direct[playerID], msg)
}

func (r *recorder) broadcastTypes() []protocol.MessageType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]protocol.MessageType, len(r.broadcasts))
	for i, m := range r.broadcasts {
		types[i] = m.Type
	}
	return types
}

func (r *recorder) count(t protocol.MessageType) int {
	n := 0
	for _, mt := range r.broadcastTypes() {
		if mt == t {
			n++
		}
	}
	return n
}

func (r *recorder) lastBroadcast(t protocol.MessageType) *protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.broadcasts) - 1; i >= 0; i-- {
		if r.broadcasts[i].Type == t {
			return r.broadcasts[i]
		}
	}
	return nil
}

func (r *recorder) lastSent(playerID string, t protocol.MessageType) *protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.direct[playerID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == t {
			return msgs[i]
		}
	}
	return nil
}

func (r *recorder) sentCount(playerID string, t protocol.MessageType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.direct[playerID] {
		if m.Type == t {
			n++
		}
	}
	return n
}

func decode[T any](t *testing.T, msg *protocol.Message) T {
	t.Helper()
	require.NotNil(t, msg)
	var v T
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}

// newTestSession 不启动 goroutine，测试直接调用内部处理函数；计时器时长足够长不会触发
func newTestSession(t *testing.T, mode string) (*Session, *recorder) {
	t.Helper()
	rec := newRecorder()
	opts := Options{
		TurnTimeout:      time.Hour,
		ReconnectGrace:   time.Hour,
		SnapshotInterval: -1,
		Seed:             42,
	}
	s := New(context.Background(), "1234", mode, rec, opts, Hooks{}, zap.NewNop())
	t.Cleanup(func() {
		s.stopTimers()
		s.Close()
	})
	return s, rec
}

// startedSession 运行完整的会话 goroutine
func startedSession(t *testing.T, mode string, opts Options, hooks Hooks) (*Session, *recorder) {
	t.Helper()
	rec := newRecorder()
	if opts.Seed == 0 {
		opts.Seed = 7
	}
	s := New(context.Background(), "5678", mode, rec, opts, hooks, zap.NewNop())
	s.Start()
	t.Cleanup(func() {
		s.Close()
		<-s.Done()
	})
	return s, rec
}

func startIndividual(t *testing.T) (*Session, *recorder) {
	t.Helper()
	s, rec := newTestSession(t, protocol.ModeIndividual)
	require.NoError(t, s.join("p1", "Ali", ""))
	require.NoError(t, s.join("p2", "Sami", ""))
	require.Equal(t, PhasePlaying, s.phase)
	return s, rec
}

func startTeam(t *testing.T) (*Session, *recorder) {
	t.Helper()
	s, rec := newTestSession(t, protocol.ModeTeam)
	require.NoError(t, s.join("a1", "Amine", "team1"))
	require.NoError(t, s.join("b1", "Bilel", ""))
	require.NoError(t, s.join("a2", "Aziz", "team1"))
	require.NoError(t, s.join("b2", "Badis", ""))
	require.Equal(t, PhasePlaying, s.phase)
	return s, rec
}

func player(t *testing.T, s *Session, id string) *Player {
	t.Helper()
	_, p := s.findPlayer(id)
	require.NotNil(t, p, "player %s", id)
	return p
}

func cc(id string, suit card.Suit, rank card.Rank) card.Card {
	return card.Card{ID: id, Suit: suit, Rank: rank}
}

func hearts(id string, rank card.Rank) card.Card {
	return cc(id, card.Hearts, rank)
}
