package card

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// DeckSize 一副牌的张数（去掉 8、9、10 的西班牙牌）
const DeckSize = 40

// Deck 一副牌
type Deck []Card

// NewDeck returns the 40 cards of suit x rank, each with a fresh uuid.
func NewDeck() Deck {
	deck := make(Deck, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{ID: uuid.NewString(), Suit: s, Rank: r})
		}
	}
	return deck
}

// NewRand returns a time-seeded source for production shuffles.
func NewRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return NewSeededRand(seed)
}

// NewSeededRand returns a deterministic source, used by tests and replays.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Shuffle 返回一个新的洗好的牌组（Fisher–Yates），原牌组不变
func Shuffle(d Deck, rng *rand.Rand) Deck {
	shuffled := make(Deck, len(d))
	copy(shuffled, d)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// NewShuffledDeck 创建并洗好一副新牌
func NewShuffledDeck(rng *rand.Rand) Deck {
	return Shuffle(NewDeck(), rng)
}

// Draw removes up to n cards from the top of the deck.
func (d *Deck) Draw(n int) []Card {
	if n > len(*d) {
		n = len(*d)
	}
	drawn := make([]Card, n)
	copy(drawn, (*d)[:n])
	*d = (*d)[n:]
	return drawn
}
