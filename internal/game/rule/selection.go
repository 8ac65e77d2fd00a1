package rule

import "github.com/palemoky/chkobba/internal/game/card"

// Verdict 增量选牌的判定结果
type Verdict int

const (
	Partial   Verdict = iota // 点数和仍小于目标，继续等待选牌
	Complete                 // 同点或点数和恰好相等，可以结算
	Overshoot                // 点数和达到或超过目标但不合法
)

var verdictNames = map[Verdict]string{
	Partial:   "partial",
	Complete:  "complete",
	Overshoot: "overshoot",
}

func (v Verdict) String() string {
	return verdictNames[v]
}

// ValidateSelection judges a client's running selection for played.
// Only the selection itself is checked: every card shares played's rank, or the values
// sum exactly to played's value. This is intentionally looser than CanCapture, which
// is what auto-play uses.
func ValidateSelection(played card.Card, selected []card.Card) Verdict {
	if len(selected) == 0 {
		return Partial
	}
	if sameRank(played, selected) {
		return Complete
	}
	sum := card.SumValues(selected)
	target := played.Value()
	switch {
	case sum == target:
		return Complete
	case sum > target:
		return Overshoot
	default:
		return Partial
	}
}

func sameRank(played card.Card, selected []card.Card) bool {
	for _, c := range selected {
		if c.Rank != played.Rank {
			return false
		}
	}
	return true
}
