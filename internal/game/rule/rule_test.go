package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/chkobba/internal/game/card"
)

func c(id string, r card.Rank) card.Card {
	return card.Card{ID: id, Suit: card.Hearts, Rank: r}
}

func TestCanCapture(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		played   card.Card
		table    []card.Card
		wantMode Mode
		wantIDs  []string
	}{
		{
			name:     "sum of two cards",
			played:   c("p", card.Rank7),
			table:    []card.Card{c("t3", card.Rank3), c("t4", card.Rank4)},
			wantMode: SumMatch,
			wantIDs:  []string{"t3", "t4"},
		},
		{
			name:     "rank match takes every same-rank card",
			played:   c("p", card.Rank5),
			table:    []card.Card{c("a", card.Rank5), c("b", card.Rank2), c("c", card.Rank3), c("d", card.Rank5)},
			wantMode: RankMatch,
			wantIDs:  []string{"a", "d"},
		},
		{
			name:     "rank match excludes sum mode",
			played:   c("p", card.RankK),
			table:    []card.Card{c("k", card.RankK), c("q", card.RankQ), c("a", card.RankA)},
			wantMode: RankMatch,
			wantIDs:  []string{"k"},
		},
		{
			name:     "face card by value",
			played:   c("p", card.RankJ),
			table:    []card.Card{c("a", card.Rank6), c("b", card.Rank2)},
			wantMode: SumMatch,
			wantIDs:  []string{"a", "b"},
		},
		{
			name:     "nothing matches",
			played:   c("p", card.Rank2),
			table:    []card.Card{c("a", card.Rank3), c("b", card.RankK)},
			wantMode: None,
		},
		{
			name:     "empty table",
			played:   c("p", card.Rank2),
			wantMode: None,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CanCapture(tt.played, tt.table)
			assert.Equal(t, tt.wantMode, got.Mode)
			assert.Equal(t, tt.wantMode != None, got.Capturable())
			if tt.wantIDs != nil {
				assert.Equal(t, tt.wantIDs, card.IDs(got.Cards))
			}
		})
	}
}

func TestCanCapture_TieBreak(t *testing.T) {
	t.Parallel()

	t.Run("smaller subset wins over earlier table position", func(t *testing.T) {
		t.Parallel()
		// {1,2,3} comes first by table order but {2,4} is smaller
		table := []card.Card{c("a1", card.RankA), c("b2", card.Rank2), c("c3", card.Rank3), c("d4", card.Rank4)}
		got := CanCapture(c("p", card.Rank6), table)
		require.True(t, got.Capturable())
		assert.Equal(t, []string{"b2", "d4"}, card.IDs(got.Cards))
	})

	t.Run("same size resolves by table order", func(t *testing.T) {
		t.Parallel()
		table := []card.Card{c("x3", card.Rank3), c("y1", card.RankA), c("z3", card.Rank3), c("w1", card.RankA)}
		got := CanCapture(c("p", card.Rank4), table)
		require.True(t, got.Capturable())
		assert.Equal(t, []string{"x3", "y1"}, card.IDs(got.Cards))
	})

	t.Run("rank match preferred over any sum", func(t *testing.T) {
		t.Parallel()
		table := []card.Card{c("a", card.Rank2), c("b", card.Rank3), c("q", card.RankQ)}
		got := CanCapture(c("p", card.RankQ), table)
		// Q matches Q directly, so rank mode
		assert.Equal(t, RankMatch, got.Mode)

		table = []card.Card{c("a", card.Rank2), c("b", card.Rank3), c("five", card.Rank5)}
		got = CanCapture(c("p", card.Rank5), table)
		assert.Equal(t, RankMatch, got.Mode)
		assert.Equal(t, []string{"five"}, card.IDs(got.Cards))
	})
}

func TestCaptureCandidates(t *testing.T) {
	t.Parallel()

	table := []card.Card{c("a1", card.RankA), c("b2", card.Rank2), c("c3", card.Rank3), c("d4", card.Rank4)}
	got := CaptureCandidates(c("p", card.Rank6), table)

	var ids [][]string
	for _, set := range got {
		ids = append(ids, card.IDs(set))
	}
	assert.Equal(t, [][]string{
		{"b2", "d4"},
		{"a1", "b2", "c3"},
	}, ids)

	// first candidate agrees with CanCapture
	assert.Equal(t, card.IDs(CanCapture(c("p", card.Rank6), table).Cards), ids[0])

	assert.Len(t, CaptureCandidates(c("p", card.RankA), table), 1)
	assert.Empty(t, CaptureCandidates(c("p", card.RankK), []card.Card{c("x", card.RankA)}))
}

func TestCanKoom(t *testing.T) {
	t.Parallel()

	table := []card.Card{c("t3", card.Rank3), c("t4", card.Rank4), c("k", card.RankK)}

	tests := []struct {
		name   string
		played card.Card
		last   bool
		want   bool
	}{
		{"last card with sum", c("p", card.Rank7), true, true},
		{"last card with rank match", c("p", card.RankK), true, true},
		{"not last card", c("p", card.Rank7), false, false},
		{"last card without capture", c("p", card.RankA), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CanKoom(tt.played, table, tt.last))
		})
	}
}

func TestNextCombination(t *testing.T) {
	t.Parallel()

	idx := []int{0, 1}
	var seen [][]int
	for {
		seen = append(seen, append([]int(nil), idx...))
		if !nextCombination(idx, 4) {
			break
		}
	}
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}, seen)
}

func TestForEachSubset_Count(t *testing.T) {
	t.Parallel()

	table := make([]card.Card, 10)
	n := 0
	forEachSubset(table, func([]card.Card) bool { n++; return true })
	assert.Equal(t, 1<<10-1, n)
}
