package card

import "fmt"

// Suit 花色
type Suit string

// Rank 点数
type Rank string

// Card is immutable once dealt; ID is unique across a deck.
type Card struct {
	ID   string `json:"id"`
	Suit Suit   `json:"suit"`
	Rank Rank   `json:"rank"`
}

const (
	Coins  Suit = "carreau" // 方块，计分花色
	Hearts Suit = "coeur"
	Spades Suit = "pique"
	Clubs  Suit = "trefle"
)

const (
	RankA Rank = "A"
	Rank2 Rank = "2"
	Rank3 Rank = "3"
	Rank4 Rank = "4"
	Rank5 Rank = "5"
	Rank6 Rank = "6"
	Rank7 Rank = "7"
	RankJ Rank = "J"
	RankQ Rank = "Q"
	RankK Rank = "K"
)

// Suits and Ranks in deck generation order.
var (
	Suits = []Suit{Coins, Hearts, Spades, Clubs}
	Ranks = []Rank{RankA, Rank2, Rank3, Rank4, Rank5, Rank6, Rank7, RankJ, RankQ, RankK}
)

// rankValues 点数对应的吃牌数值
var rankValues = map[Rank]int{
	RankA: 1,
	Rank2: 2,
	Rank3: 3,
	Rank4: 4,
	Rank5: 5,
	Rank6: 6,
	Rank7: 7,
	RankJ: 8,
	RankQ: 9,
	RankK: 10,
}

var suitSymbols = map[Suit]string{
	Coins:  "♦",
	Hearts: "♥",
	Spades: "♠",
	Clubs:  "♣",
}

// Value returns the capture value of the rank, 0 for an unknown rank.
func (r Rank) Value() int {
	return rankValues[r]
}

// Valid reports whether r is one of the ten deck ranks.
func (r Rank) Valid() bool {
	_, ok := rankValues[r]
	return ok
}

func (s Suit) String() string {
	if symbol, ok := suitSymbols[s]; ok {
		return symbol
	}
	return string(s)
}

// Value is shorthand for c.Rank.Value().
func (c Card) Value() int {
	return c.Rank.Value()
}

// IsSevenOfCoins 是否为方块 7
func (c Card) IsSevenOfCoins() bool {
	return c.Suit == Coins && c.Rank == Rank7
}

func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Suit, c.Rank)
}
