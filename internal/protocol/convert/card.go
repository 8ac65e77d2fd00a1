package convert

import (
	"github.com/palemoky/chkobba/internal/game/card"
	"github.com/palemoky/chkobba/internal/game/score"
	"github.com/palemoky/chkobba/internal/protocol"
)

// CardToInfo 将 card.Card 转换为 protocol.CardInfo
func CardToInfo(c card.Card) protocol.CardInfo {
	return protocol.CardInfo{
		ID:    c.ID,
		Suit:  string(c.Suit),
		Rank:  string(c.Rank),
		Value: c.Value(),
	}
}

// CardsToInfos 将 []card.Card 转换为 []protocol.CardInfo
func CardsToInfos(cards []card.Card) []protocol.CardInfo {
	infos := make([]protocol.CardInfo, len(cards))
	for i, c := range cards {
		infos[i] = CardToInfo(c)
	}
	return infos
}

// InfoToCard 将 protocol.CardInfo 转换为 card.Card，Value 由 Rank 推导，忽略客户端传值
func InfoToCard(info protocol.CardInfo) card.Card {
	return card.Card{
		ID:   info.ID,
		Suit: card.Suit(info.Suit),
		Rank: card.Rank(info.Rank),
	}
}

// InfoIDs 提取客户端提交的牌 ID，只信任 ID
func InfoIDs(infos []protocol.CardInfo) []string {
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	return ids
}

// BreakdownsToScores 将回合得分明细转换为协议结构
func BreakdownsToScores(bs []score.Breakdown) []protocol.RoundScore {
	out := make([]protocol.RoundScore, len(bs))
	for i, b := range bs {
		out[i] = protocol.RoundScore{
			PlayerID:     b.PlayerID,
			Cards:        b.Cards,
			Coins:        b.Coins,
			MostCards:    b.MostCards,
			MostCoins:    b.MostCoins,
			SevenOfCoins: b.SevenOfCoins,
			LastCapture:  b.LastCapture,
			Total:        b.Total,
		}
	}
	return out
}
