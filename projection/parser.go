package projection

import (
	"fmt"
	"unicode/utf8"

	"github.com/viant/parsly"
)

const deriveKeyword = "derive"

// directiveParser 递归下降解析器
//
//	directive       := '(' target (',' body)? ','? ')'
//	body            := fields (',' derive)? | derive
//	fields          := Ident (',' Ident)*
//	derive          := 'derive' '(' (Path (',' Path)* ','?)? ')'
//	Path            := Ident ('.' Ident)*
type directiveParser struct {
	raw    RawAnnotation
	cursor *parsly.Cursor
}

// ParseDirective 解析单个注解的参数，例如 (NewUser, ID, derive(Debug, validate.Struct))
// 语法错误返回 *GrammarError，位置为该注解所在位置
func ParseDirective(raw RawAnnotation) (*Directive, error) {
	p := &directiveParser{
		raw:    raw,
		cursor: parsly.NewCursor(raw.Span.Filename, []byte(raw.Args), 0),
	}
	return p.parse()
}

func (p *directiveParser) parse() (*Directive, error) {
	if m, offset := p.next(openParenMatcher); m.Code != openParenToken {
		return nil, p.errorf(offset, "缺少 '('，格式: @%s(Name, Field...)", p.raw.Name)
	}

	d := &Directive{
		Name: p.raw.Name,
		Span: p.raw.Span,
	}

	m, offset := p.next(identMatcher)
	if m.Code != identifierToken {
		return nil, p.unexpected(m, offset, "目标结构体名称")
	}
	d.Target = m.Text(p.cursor)
	if d.Target == deriveKeyword {
		return nil, p.errorf(offset, "缺少目标结构体名称")
	}

	for {
		// 目标名或字段之后：',' 或 ')'
		m, offset = p.next(commaMatcher, closeParenMatcher)
		switch m.Code {
		case closeParenToken:
			return d, p.expectEnd()
		case commaToken:
		default:
			return nil, p.unexpected(m, offset, "',' 或 ')'")
		}

		// 逗号之后：字段名、derive(...) 或 ')'（末尾逗号）
		m, offset = p.next(closeParenMatcher, identMatcher)
		switch m.Code {
		case closeParenToken:
			return d, p.expectEnd()
		case identifierToken:
		default:
			return nil, p.unexpected(m, offset, "字段名")
		}

		name := m.Text(p.cursor)
		if name == deriveKeyword {
			if d.Derive != nil {
				return nil, p.errorf(offset, "derive(...) 只能出现一次")
			}
			derive, err := p.parseDerive()
			if err != nil {
				return nil, err
			}
			d.Derive = derive
			continue
		}
		if d.Derive != nil {
			return nil, p.errorf(offset, "字段 %q 不能出现在 derive(...) 之后", name)
		}
		d.Fields = append(d.Fields, name)
	}
}

// parseDerive 解析 derive 关键字之后的 (...) 部分
func (p *directiveParser) parseDerive() (*Derive, error) {
	if m, offset := p.next(openParenMatcher); m.Code != openParenToken {
		return nil, p.errorf(offset, "derive 之后缺少 '('")
	}

	derive := &Derive{Paths: []Path{}}
	for {
		m, offset := p.next(closeParenMatcher, identMatcher)
		switch m.Code {
		case closeParenToken:
			return derive, nil
		case identifierToken:
		case parsly.EOF:
			return nil, p.errorf(offset, "derive(...) 缺少 ')'")
		default:
			return nil, p.unexpected(m, offset, "能力注解名称")
		}

		path, err := p.parsePath(m.Text(p.cursor))
		if err != nil {
			return nil, err
		}
		derive.Paths = append(derive.Paths, path)

		m, offset = p.next(commaMatcher, closeParenMatcher)
		switch m.Code {
		case commaToken:
		case closeParenToken:
			return derive, nil
		case parsly.EOF:
			return nil, p.errorf(offset, "derive(...) 缺少 ')'")
		default:
			return nil, p.unexpected(m, offset, "',' 或 ')'")
		}
	}
}

// parsePath 解析 a.b.c 形式的限定名，first 为已读取的第一段
func (p *directiveParser) parsePath(first string) (Path, error) {
	path := Path{Segments: []string{first}}
	for {
		pos := p.cursor.Pos
		if m, _ := p.next(dotMatcher); m.Code != dotToken {
			p.cursor.Pos = pos
			return path, nil
		}
		m, offset := p.next(identMatcher)
		if m.Code != identifierToken {
			return Path{}, p.unexpected(m, offset, "'.' 之后的标识符")
		}
		path.Segments = append(path.Segments, m.Text(p.cursor))
	}
}

// expectEnd 最外层 ')' 之后不允许有其他内容
func (p *directiveParser) expectEnd() error {
	_ = p.cursor.MatchOne(whitespaceMatcher)
	if p.cursor.Pos < p.cursor.InputSize {
		return p.errorf(p.cursor.Pos, "')' 之后存在多余内容")
	}
	return nil
}

// next 跳过空白后匹配 tokens 之一，同时返回 token 的起始偏移
func (p *directiveParser) next(tokens ...*parsly.Token) (*parsly.TokenMatch, int) {
	_ = p.cursor.MatchOne(whitespaceMatcher)
	offset := p.cursor.Pos
	return p.cursor.MatchAfterOptional(whitespaceMatcher, tokens...), offset
}

func (p *directiveParser) unexpected(m *parsly.TokenMatch, offset int, expected string) error {
	if m.Code == parsly.EOF {
		return p.errorf(offset, "缺少 ')'，期望 %s", expected)
	}
	return p.errorf(offset, "期望 %s，实际为 %q", expected, p.tokenAt(offset))
}

// tokenAt 返回 offset 处的一个字符或标识符，用于错误提示
func (p *directiveParser) tokenAt(offset int) string {
	args := p.raw.Args
	if offset >= len(args) {
		return ""
	}
	r, size := utf8.DecodeRuneInString(args[offset:])
	end := offset + size
	if isIdentifierStart(r) {
		for end < len(args) {
			r, size = utf8.DecodeRuneInString(args[end:])
			if !isIdentifierPart(r) {
				break
			}
			end += size
		}
	}
	return args[offset:end]
}

func (p *directiveParser) errorf(offset int, format string, args ...any) error {
	return &GrammarError{
		Directive: p.raw.Name,
		Args:      p.raw.Args,
		Offset:    offset,
		Msg:       fmt.Sprintf(format, args...),
		Span:      p.raw.Span,
	}
}
