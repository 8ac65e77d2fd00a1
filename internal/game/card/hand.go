package card

import "slices"

// IndexOf 返回 id 在牌组中的位置，不存在返回 -1
func IndexOf(cards []Card, id string) int {
	return slices.IndexFunc(cards, func(c Card) bool { return c.ID == id })
}

// Find returns the card with the given id.
func Find(cards []Card, id string) (Card, bool) {
	if i := IndexOf(cards, id); i >= 0 {
		return cards[i], true
	}
	return Card{}, false
}

// Remove deletes the card with the given id, preserving order.
func Remove(cards []Card, id string) ([]Card, bool) {
	i := IndexOf(cards, id)
	if i < 0 {
		return cards, false
	}
	return slices.Delete(cards, i, i+1), true
}

// RemoveAll deletes every card whose id is in ids.
func RemoveAll(cards []Card, ids []string) []Card {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return slices.DeleteFunc(cards, func(c Card) bool {
		_, ok := set[c.ID]
		return ok
	})
}

// IDs 提取牌的 ID 列表
func IDs(cards []Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

// SumValues 计算牌面数值之和
func SumValues(cards []Card) int {
	sum := 0
	for _, c := range cards {
		sum += c.Value()
	}
	return sum
}

// IsPermutation reports whether next holds exactly the same ids as current,
// each exactly once, in any order.
func IsPermutation(current []Card, next []string) bool {
	if len(current) != len(next) {
		return false
	}
	counts := make(map[string]int, len(current))
	for _, c := range current {
		counts[c.ID]++
	}
	for _, id := range next {
		if counts[id] == 0 {
			return false
		}
		counts[id]--
	}
	return true
}
