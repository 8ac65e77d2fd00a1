package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/chkobba/internal/game/card"
)

func pile(suit card.Suit, ranks ...card.Rank) []card.Card {
	cards := make([]card.Card, len(ranks))
	for i, r := range ranks {
		cards[i] = card.Card{ID: string(suit) + string(r), Suit: suit, Rank: r}
	}
	return cards
}

func TestBreakdowns_AllAwards(t *testing.T) {
	t.Parallel()

	winner := append(pile(card.Coins, card.Rank7, card.RankA, card.Rank2), pile(card.Hearts, card.RankK)...)
	loser := pile(card.Spades, card.Rank3, card.Rank4)

	got := Breakdowns([]Pile{
		{PlayerID: "p1", Captured: winner, LastCapture: true},
		{PlayerID: "p2", Captured: loser},
	})
	require.Len(t, got, 2)

	assert.Equal(t, Breakdown{
		PlayerID: "p1", Cards: 4, Coins: 3,
		MostCards: 1, MostCoins: 2, SevenOfCoins: 1, LastCapture: 1, Total: 5,
	}, got[0])
	assert.Equal(t, 0, got[1].Total)
}

func TestBreakdowns_Ties(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		piles []Pile
		want  map[string]int
	}{
		{
			name: "card count tie awards nobody",
			piles: []Pile{
				{PlayerID: "a", Captured: pile(card.Hearts, card.Rank2, card.Rank3)},
				{PlayerID: "b", Captured: pile(card.Spades, card.Rank2, card.Rank3)},
			},
			want: map[string]int{"a": 0, "b": 0},
		},
		{
			name: "coin tie awards nobody but card count still counts",
			piles: []Pile{
				{PlayerID: "a", Captured: append(pile(card.Coins, card.Rank2), pile(card.Hearts, card.Rank3)...)},
				{PlayerID: "b", Captured: pile(card.Coins, card.Rank3)},
			},
			want: map[string]int{"a": 1, "b": 0},
		},
		{
			name: "seven of coins alone",
			piles: []Pile{
				{PlayerID: "a", Captured: pile(card.Hearts, card.Rank2, card.Rank3)},
				{PlayerID: "b", Captured: pile(card.Spades, card.Rank2, card.Rank3)},
				{PlayerID: "c", Captured: pile(card.Coins, card.Rank7)},
			},
			want: map[string]int{"a": 0, "b": 0, "c": 3},
		},
		{
			name: "empty piles",
			piles: []Pile{
				{PlayerID: "a"},
				{PlayerID: "b", LastCapture: true},
			},
			want: map[string]int{"a": 0, "b": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Calculate(tt.piles))
		})
	}
}

func TestAggregateTeams(t *testing.T) {
	t.Parallel()

	points := map[string]int{"a1": 3, "a2": 1, "b1": 2, "solo": 4}
	teamOf := map[string]string{"a1": "team1", "a2": "team1", "b1": "team2"}

	assert.Equal(t, map[string]int{"team1": 4, "team2": 2}, AggregateTeams(points, teamOf))
}
