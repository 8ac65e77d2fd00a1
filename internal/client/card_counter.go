package client

import (
	"github.com/palemoky/chkobba/internal/game/card"
)

// CardCounter 记牌器：记录本局已经见过的牌，推算每个点数还剩几张没露面
type CardCounter struct {
	seen      map[string]bool
	remaining map[card.Rank]int
}

// NewCardCounter creates a counter for a full 40-card deck.
func NewCardCounter() *CardCounter {
	cc := &CardCounter{}
	cc.Reset()
	return cc
}

// Reset 每个点数 4 张
func (cc *CardCounter) Reset() {
	cc.seen = make(map[string]bool)
	cc.remaining = make(map[card.Rank]int, len(card.Ranks))
	for _, r := range card.Ranks {
		cc.remaining[r] = len(card.Suits)
	}
}

// Observe 记录见过的牌，同一张牌只计一次
func (cc *CardCounter) Observe(cards []card.Card) {
	for _, c := range cards {
		if c.ID == "" || cc.seen[c.ID] {
			continue
		}
		cc.seen[c.ID] = true
		if cc.remaining[c.Rank] > 0 {
			cc.remaining[c.Rank]--
		}
	}
}

// Unseen 该点数还有几张未露面
func (cc *CardCounter) Unseen(r card.Rank) int {
	return cc.remaining[r]
}

// Remaining returns a copy of the per-rank unseen counts.
func (cc *CardCounter) Remaining() map[card.Rank]int {
	out := make(map[card.Rank]int, len(cc.remaining))
	for r, n := range cc.remaining {
		out[r] = n
	}
	return out
}

// SeenCount 已见过的牌数
func (cc *CardCounter) SeenCount() int {
	return len(cc.seen)
}
