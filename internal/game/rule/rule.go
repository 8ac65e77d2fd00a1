// Package rule 吃牌规则：同点吃、凑数吃、以及最后一张牌的 koom。
package rule

import (
	"github.com/palemoky/chkobba/internal/game/card"
)

// Mode 吃牌方式，同点吃与凑数吃互斥
type Mode int

const (
	None      Mode = iota
	RankMatch      // 同点吃：吃掉桌面所有同点牌
	SumMatch       // 凑数吃：桌面若干张牌点数之和等于出的牌
)

var modeNames = map[Mode]string{
	None:      "none",
	RankMatch: "rank",
	SumMatch:  "sum",
}

func (m Mode) String() string {
	return modeNames[m]
}

// Capture is the outcome of CanCapture.
type Capture struct {
	Mode  Mode
	Cards []card.Card
}

// Capturable reports whether any table card would be taken.
func (c Capture) Capturable() bool {
	return c.Mode != None && len(c.Cards) > 0
}

// CanCapture decides what playing played onto table would take.
// Same-rank cards win over any sum: when at least one exists the capture is all of them.
// Otherwise the first exact-sum subset in search order is returned.
func CanCapture(played card.Card, table []card.Card) Capture {
	if direct := directMatches(played, table); len(direct) > 0 {
		return Capture{Mode: RankMatch, Cards: direct}
	}
	var found []card.Card
	forEachSubset(table, func(subset []card.Card) bool {
		if card.SumValues(subset) == played.Value() {
			found = subset
			return false
		}
		return true
	})
	if found == nil {
		return Capture{Mode: None}
	}
	return Capture{Mode: SumMatch, Cards: found}
}

// CaptureCandidates lists every acceptable capture set for played, in tie-break order.
// With a rank match there is exactly one candidate.
func CaptureCandidates(played card.Card, table []card.Card) [][]card.Card {
	if direct := directMatches(played, table); len(direct) > 0 {
		return [][]card.Card{direct}
	}
	var out [][]card.Card
	forEachSubset(table, func(subset []card.Card) bool {
		if card.SumValues(subset) == played.Value() {
			out = append(out, subset)
		}
		return true
	})
	return out
}

// CanKoom reports whether played may be used for a koom: it must be the last card
// in hand and it must capture something. A successful koom takes the whole table.
func CanKoom(played card.Card, table []card.Card, isLastCardInHand bool) bool {
	return isLastCardInHand && CanCapture(played, table).Capturable()
}

func directMatches(played card.Card, table []card.Card) []card.Card {
	var matches []card.Card
	for _, c := range table {
		if c.Rank == played.Rank {
			matches = append(matches, c)
		}
	}
	return matches
}

// forEachSubset visits the non-empty subsets of table by increasing size, and within
// a size by lexicographic order of table indices. visit returns false to stop.
// Each subset passed to visit is a fresh slice.
func forEachSubset(table []card.Card, visit func([]card.Card) bool) {
	n := len(table)
	idx := make([]int, 0, n)
	for size := 1; size <= n; size++ {
		idx = idx[:size]
		for i := range idx {
			idx[i] = i
		}
		for {
			subset := make([]card.Card, size)
			for i, j := range idx {
				subset[i] = table[j]
			}
			if !visit(subset) {
				return
			}
			if !nextCombination(idx, n) {
				break
			}
		}
	}
}

// nextCombination advances idx to the next k-combination of [0,n) in lexicographic order.
func nextCombination(idx []int, n int) bool {
	k := len(idx)
	i := k - 1
	for i >= 0 && idx[i] == n-k+i {
		i--
	}
	if i < 0 {
		return false
	}
	idx[i]++
	for j := i + 1; j < k; j++ {
		idx[j] = idx[j-1] + 1
	}
	return true
}
