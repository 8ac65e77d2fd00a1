package client

import (
	"github.com/palemoky/chkobba/internal/game/card"
	"github.com/palemoky/chkobba/internal/game/rule"
)

// MoveKind 出牌动作类型
type MoveKind int

const (
	MovePlay MoveKind = iota
	MoveCapture
	MoveKoom
)

func (k MoveKind) String() string {
	switch k {
	case MoveCapture:
		return "capture"
	case MoveKoom:
		return "koom"
	default:
		return "play"
	}
}

// Move 一次完整的出牌决定
type Move struct {
	Kind     MoveKind
	Card     card.Card
	Captured []card.Card
}

// CapturedIDs 吃牌时提交的桌面牌 ID
func (m Move) CapturedIDs() []string {
	return card.IDs(m.Captured)
}

// ChooseMove 简单贪心：能 koom 就 koom，能吃就吃收益最高的一组，否则丢最安全的牌
// 手牌为空时返回 false
func ChooseMove(hand, table []card.Card, counter *CardCounter) (Move, bool) {
	if len(hand) == 0 {
		return Move{}, false
	}

	if len(hand) == 1 && rule.CanKoom(hand[0], table, true) {
		return Move{Kind: MoveKoom, Card: hand[0], Captured: table}, true
	}

	best, bestGain, found := Move{}, -1, false
	for _, c := range hand {
		for _, set := range rule.CaptureCandidates(c, table) {
			gain := captureGain(c, set, len(table))
			if gain > bestGain {
				best = Move{Kind: MoveCapture, Card: c, Captured: set}
				bestGain, found = gain, true
			}
		}
	}
	if found {
		return best, true
	}

	return Move{Kind: MovePlay, Card: safestDiscard(hand, counter)}, true
}

// captureGain 收益：方块 7 最重，其次方块和牌数，清台额外加分
func captureGain(played card.Card, set []card.Card, tableSize int) int {
	gain := 0
	for _, c := range append([]card.Card{played}, set...) {
		gain++
		if c.Suit == card.Coins {
			gain += 2
		}
		if c.IsSevenOfCoins() {
			gain += 10
		}
	}
	if len(set) == tableSize {
		gain += 3
	}
	return gain
}

// safestDiscard 丢出后最不容易被对手吃掉、价值最低的牌
func safestDiscard(hand []card.Card, counter *CardCounter) card.Card {
	best, bestRisk := hand[0], discardRisk(hand[0], counter)
	for _, c := range hand[1:] {
		if r := discardRisk(c, counter); r < bestRisk {
			best, bestRisk = c, r
		}
	}
	return best
}

func discardRisk(c card.Card, counter *CardCounter) int {
	risk := 0
	if counter != nil {
		risk += 2 * counter.Unseen(c.Rank)
	} else {
		risk += 2 * len(card.Suits)
	}
	if c.Suit == card.Coins {
		risk += 3
	}
	if c.IsSevenOfCoins() {
		risk += 20
	}
	return risk
}
