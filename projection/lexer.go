package projection

import (
	"unicode"
	"unicode/utf8"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceToken = iota
	identifierToken
	commaToken
	dotToken
	openParenToken
	closeParenToken
)

var (
	whitespaceMatcher = parsly.NewToken(whitespaceToken, "Whitespace", matcher.NewWhiteSpace())
	identMatcher      = parsly.NewToken(identifierToken, "Identifier", &identifierMatch{})
	commaMatcher      = parsly.NewToken(commaToken, "','", matcher.NewByte(','))
	dotMatcher        = parsly.NewToken(dotToken, "'.'", matcher.NewByte('.'))
	openParenMatcher  = parsly.NewToken(openParenToken, "'('", matcher.NewByte('('))
	closeParenMatcher = parsly.NewToken(closeParenToken, "')'", matcher.NewByte(')'))
)

// identifierMatch 匹配 Go 标识符（支持 Unicode 字母）
type identifierMatch struct{}

func (i *identifierMatch) Match(cursor *parsly.Cursor) int {
	pos := cursor.Pos
	for pos < cursor.InputSize {
		r, size := utf8.DecodeRune(cursor.Input[pos:cursor.InputSize])
		if pos == cursor.Pos {
			if !isIdentifierStart(r) {
				return 0
			}
		} else if !isIdentifierPart(r) {
			break
		}
		pos += size
	}
	return pos - cursor.Pos
}

func isIdentifierStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentifierPart(r rune) bool {
	return isIdentifierStart(r) || unicode.IsDigit(r)
}

// IsIdentifier 判断 s 是否为合法标识符
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentifierStart(r) {
			return false
		}
		if !isIdentifierPart(r) {
			return false
		}
	}
	return true
}
