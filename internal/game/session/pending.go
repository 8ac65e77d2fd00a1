package session

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// pendingKey 按 (玩家, 出的牌) 区分进行中的吃牌选择
type pendingKey struct {
	playerID string
	cardID   string
}

// PendingCapture 一次分多条消息提交的吃牌选择
type PendingCapture struct {
	PlayerID        string    `json:"playerId"`
	PlayedCardID    string    `json:"playedCardId"`
	CapturedCardIDs []string  `json:"capturedCardIds"` // 去重，按提交顺序
	CaptureTime     time.Time `json:"captureTime"`     // 第一条消息的时间
}

type pendingTable struct {
	entries map[pendingKey]*PendingCapture
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[pendingKey]*PendingCapture)}
}

func (t *pendingTable) get(playerID, cardID string) (*PendingCapture, bool) {
	e, ok := t.entries[pendingKey{playerID, cardID}]
	return e, ok
}

// merge adds ids to the entry for (playerID, cardID), creating it at now if absent.
// Returns the entry after the merge.
func (t *pendingTable) merge(playerID, cardID string, ids []string, now time.Time) *PendingCapture {
	key := pendingKey{playerID, cardID}
	e, ok := t.entries[key]
	if !ok {
		e = &PendingCapture{PlayerID: playerID, PlayedCardID: cardID, CaptureTime: now}
		t.entries[key] = e
	}
	for _, id := range ids {
		if !slices.Contains(e.CapturedCardIDs, id) {
			e.CapturedCardIDs = append(e.CapturedCardIDs, id)
		}
	}
	return e
}

func (t *pendingTable) remove(playerID, cardID string) {
	delete(t.entries, pendingKey{playerID, cardID})
}

// removeCardIDs drops ids that left the table from every entry.
func (t *pendingTable) removeCardIDs(ids []string) {
	for _, e := range t.entries {
		e.CapturedCardIDs = slices.DeleteFunc(e.CapturedCardIDs, func(id string) bool {
			return slices.Contains(ids, id)
		})
	}
}

// removePlayer 玩家离开时清理其全部选择
func (t *pendingTable) removePlayer(playerID string) {
	for key := range t.entries {
		if key.playerID == playerID {
			delete(t.entries, key)
		}
	}
}

func (t *pendingTable) clear() {
	clear(t.entries)
}

// sweep removes entries started more than maxAge before now and reports how many.
func (t *pendingTable) sweep(now time.Time, maxAge time.Duration) int {
	n := 0
	for key, e := range t.entries {
		if now.Sub(e.CaptureTime) > maxAge {
			delete(t.entries, key)
			n++
		}
	}
	return n
}

func (t *pendingTable) size() int {
	return len(t.entries)
}

// list 返回副本，按玩家和牌排序，供快照使用
func (t *pendingTable) list() []PendingCapture {
	out := make([]PendingCapture, 0, len(t.entries))
	for _, e := range t.entries {
		cp := *e
		cp.CapturedCardIDs = slices.Clone(e.CapturedCardIDs)
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b PendingCapture) int {
		return cmp.Or(strings.Compare(a.PlayerID, b.PlayerID), strings.Compare(a.PlayedCardID, b.PlayedCardID))
	})
	return out
}
