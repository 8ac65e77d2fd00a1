// Package score 回合结束时的计分
package score

import "github.com/palemoky/chkobba/internal/game/card"

// 各项得分
const (
	MostCardsPoints    = 1
	MostCoinsPoints    = 2
	SevenOfCoinsPoints = 1
	LastCapturePoints  = 1
)

// WinThreshold 获胜所需累计分数
const WinThreshold = 11

// Pile is one player's captured cards at round end.
type Pile struct {
	PlayerID    string
	Captured    []card.Card
	LastCapture bool
}

// Breakdown 单个玩家本回合的得分明细
type Breakdown struct {
	PlayerID     string `json:"playerId"`
	Cards        int    `json:"cards"`
	Coins        int    `json:"coins"`
	MostCards    int    `json:"mostCards"`
	MostCoins    int    `json:"mostCoins"`
	SevenOfCoins int    `json:"sevenOfCoins"`
	LastCapture  int    `json:"lastCapture"`
	Total        int    `json:"total"`
}

// Breakdowns scores every pile, preserving input order.
// Most cards and most coins go only to a strict maximum; a tie awards nobody.
func Breakdowns(piles []Pile) []Breakdown {
	out := make([]Breakdown, len(piles))
	for i, p := range piles {
		out[i] = Breakdown{PlayerID: p.PlayerID, Cards: len(p.Captured), Coins: countCoins(p.Captured)}
		if hasSevenOfCoins(p.Captured) {
			out[i].SevenOfCoins = SevenOfCoinsPoints
		}
		if p.LastCapture {
			out[i].LastCapture = LastCapturePoints
		}
	}

	if i := strictMax(out, func(b Breakdown) int { return b.Cards }); i >= 0 {
		out[i].MostCards = MostCardsPoints
	}
	if i := strictMax(out, func(b Breakdown) int { return b.Coins }); i >= 0 {
		out[i].MostCoins = MostCoinsPoints
	}

	for i := range out {
		b := &out[i]
		b.Total = b.MostCards + b.MostCoins + b.SevenOfCoins + b.LastCapture
	}
	return out
}

// Calculate returns the round points per player id.
func Calculate(piles []Pile) map[string]int {
	points := make(map[string]int, len(piles))
	for _, b := range Breakdowns(piles) {
		points[b.PlayerID] = b.Total
	}
	return points
}

// AggregateTeams sums individual round points per team. Players with no team are skipped.
func AggregateTeams(points map[string]int, teamOf map[string]string) map[string]int {
	totals := make(map[string]int)
	for playerID, p := range points {
		if teamID := teamOf[playerID]; teamID != "" {
			totals[teamID] += p
		}
	}
	return totals
}

// strictMax returns the index of the unique maximum, or -1 on a tie or zero maximum.
func strictMax(bs []Breakdown, key func(Breakdown) int) int {
	best, idx, tied := 0, -1, false
	for i, b := range bs {
		v := key(b)
		switch {
		case v > best:
			best, idx, tied = v, i, false
		case v == best && v > 0:
			tied = true
		}
	}
	if tied {
		return -1
	}
	return idx
}

func countCoins(cards []card.Card) int {
	n := 0
	for _, c := range cards {
		if c.Suit == card.Coins {
			n++
		}
	}
	return n
}

func hasSevenOfCoins(cards []card.Card) bool {
	for _, c := range cards {
		if c.IsSevenOfCoins() {
			return true
		}
	}
	return false
}
