// Package textutil 提供分类器、RBAC 策略和查询引擎共用的文本归一化。
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold 转为小写、去掉变音符号并合并连续空白，
// 例如 "  Jefe   de Sección " 变为 "jefe de seccion"。
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}
