package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palemoky/chkobba/internal/game/card"
)

func TestValidateSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		played   card.Card
		selected []card.Card
		want     Verdict
	}{
		{"empty selection", c("p", card.Rank7), nil, Partial},
		{"exact sum", c("p", card.Rank7), []card.Card{c("a", card.Rank3), c("b", card.Rank4)}, Complete},
		{"under target", c("p", card.Rank7), []card.Card{c("a", card.Rank3)}, Partial},
		{"over target", c("p", card.Rank7), []card.Card{c("a", card.Rank3), c("b", card.Rank5)}, Overshoot},
		{"two of the same rank", c("p", card.Rank3), []card.Card{c("a", card.Rank3), c("b", card.Rank3)}, Complete},
		{"single same rank", c("p", card.RankQ), []card.Card{c("q", card.RankQ)}, Complete},
		{"mixed rank over target", c("p", card.Rank3), []card.Card{c("a", card.Rank3), c("b", card.RankA)}, Overshoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ValidateSelection(tt.played, tt.selected))
		})
	}
}

// The incremental path accepts any exact sum, even when a rank match exists on the table.
func TestValidateSelection_LooserThanCanCapture(t *testing.T) {
	t.Parallel()

	played := c("p", card.Rank5)
	table := []card.Card{c("five", card.Rank5), c("two", card.Rank2), c("three", card.Rank3)}

	assert.Equal(t, RankMatch, CanCapture(played, table).Mode)
	assert.Equal(t, Complete, ValidateSelection(played, table[1:]))
}
