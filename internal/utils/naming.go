package utils

import (
	"strings"
	"unicode"
)

// ToSnakeCase 把类型名转换为输出文件名使用的蛇形命名
//
//	UserView    → user_view
//	HTTPServer  → http_server
//	UserIDs     → user_ids
//	OrderV2     → order_v2
//
// 连续大写视为一个缩略词，缩略词后紧跟的单个 s 视为复数
func ToSnakeCase(name string) string {
	runes := []rune(name)
	var sb strings.Builder
	sb.Grow(len(name) + 4)

	for i, r := range runes {
		if !unicode.IsUpper(r) {
			sb.WriteRune(r)
			continue
		}
		if i > 0 && wordStart(runes, i) {
			sb.WriteByte('_')
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// wordStart runes[i] 为大写时，判断是否开始一个新单词
func wordStart(runes []rune, i int) bool {
	prev := runes[i-1]
	if prev == '_' || prev == '.' || prev == '/' || prev == '-' {
		return false
	}
	if !unicode.IsUpper(prev) {
		return true
	}
	// 缩略词的最后一个字母后接小写单词：HTTPServer 中的 S
	if i+1 >= len(runes) || !unicode.IsLower(runes[i+1]) {
		return false
	}
	return !pluralSuffix(runes, i+1)
}

// pluralSuffix runes[j] 是否为缩略词后的复数 s，例如 IDs、URLsView
func pluralSuffix(runes []rune, j int) bool {
	if runes[j] != 's' {
		return false
	}
	return j+1 == len(runes) || !unicode.IsLower(runes[j+1])
}
