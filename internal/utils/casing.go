package utils

import (
	"strings"
	"unicode"
)

// ToSnakeCase 将 camelCase / PascalCase 标识符转为 snake_case。
// 旧代 IDL 中指令名、账户名、参数名均为 camelCase，迁移时统一改写；
// 大写串按缩写词处理（HTTPServer → http_server），数字跟随前一个词。
func ToSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 && needBoundary(runes, i) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// needBoundary 判断 runes[i]（大写字母）前是否需要插入下划线：
// 前一个字符是小写/数字，或当前处于缩写串结尾（下一个字符是小写）。
func needBoundary(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
		return true
	}
	return false
}
