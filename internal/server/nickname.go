package server

import "math/rand/v2"

// 昵称词库
var (
	adjectives = []string{
		"勇敢的", "聪明的", "快乐的", "神秘的", "酷炫的",
		"优雅的", "可爱的", "威武的", "沉稳的", "活泼的",
		"机智的", "潇洒的", "淡定的", "闪亮的", "高冷的",
	}

	nouns = []string{
		"骆驼", "椰枣", "橄榄", "茉莉", "海鸥",
		"沙狐", "石榴", "薄荷", "金雀", "羚羊",
		"海豚", "猎鹰", "无花果", "仙人掌", "绿茶",
	}
)

// GenerateNickname 生成随机昵称，入座前的默认名字
func GenerateNickname() string {
	return adjectives[rand.IntN(len(adjectives))] + nouns[rand.IntN(len(nouns))]
}
