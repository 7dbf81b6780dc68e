package plugin

import (
	"bytes"
	"go/ast"
	"go/token"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/donutnomad/omitpick/projection"
	"github.com/samber/lo"
	"github.com/viant/parsly"
)

const (
	nameToken = iota
	argsToken
)

var (
	nameMatcher = parsly.NewToken(nameToken, "annotation name", &nameMatch{})
	argsMatcher = parsly.NewToken(argsToken, "annotation args", &argsBlock{})
)

type nameMatch struct{}

func (nameMatch) Match(cursor *parsly.Cursor) int {
	input := cursor.Input[cursor.Pos:cursor.InputSize]
	matched := 0
	for matched < len(input) {
		r, size := utf8.DecodeRune(input[matched:])
		if r == '_' || unicode.IsLetter(r) || (matched > 0 && unicode.IsDigit(r)) {
			matched += size
			continue
		}
		break
	}
	return matched
}

// argsBlock 匹配紧跟在注解名后的括号块，支持嵌套
// 括号未闭合时匹配到行尾，由注解的解析器报告错误
type argsBlock struct{}

func (argsBlock) Match(cursor *parsly.Cursor) int {
	input := cursor.Input[cursor.Pos:cursor.InputSize]
	if len(input) == 0 || input[0] != '(' {
		return 0
	}
	depth := 0
	for i, b := range input {
		switch b {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		case '\n', '\r':
			return i
		}
	}
	return len(input)
}

// ParseAnnotations 从注释文本中解析所有注解，位置从第 1 行第 1 列开始计算
func ParseAnnotations(comment string) []*Annotation {
	return scanText(comment, projection.Span{Line: 1, Column: 1})
}

// ParseCommentAnnotations 从 ast.CommentGroup 中解析注解，保留源文件中的精确位置
func ParseCommentAnnotations(fset *token.FileSet, group *ast.CommentGroup) []*Annotation {
	if group == nil {
		return nil
	}
	var result []*Annotation
	for _, c := range group.List {
		pos := fset.Position(c.Slash)
		base := projection.Span{
			Filename: pos.Filename,
			Line:     pos.Line,
			Column:   pos.Column,
			Offset:   pos.Offset,
		}
		result = append(result, scanText(c.Text, base)...)
	}
	return result
}

// scanText 查找 @Name 或 @Name(...)，base 为 text 首字节的位置
func scanText(text string, base projection.Span) []*Annotation {
	cursor := parsly.NewCursor(base.Filename, []byte(text), 0)

	var result []*Annotation
	for cursor.Pos < cursor.InputSize {
		idx := bytes.IndexByte(cursor.Input[cursor.Pos:cursor.InputSize], '@')
		if idx < 0 {
			break
		}
		at := cursor.Pos + idx
		cursor.Pos = at + 1

		// 跳过 user@example.com 这类文本
		if prev, _ := utf8.DecodeLastRuneInString(text[:at]); at > 0 && (isNamePart(prev) || prev == '.') {
			continue
		}

		name := cursor.MatchOne(nameMatcher)
		if name.Code != nameToken {
			continue
		}
		ann := &Annotation{Name: name.Text(cursor)}
		if args := cursor.MatchOne(argsMatcher); args.Code == argsToken {
			ann.Args = args.Text(cursor)
		}
		ann.Raw = text[at:cursor.Pos]
		ann.Span = spanAt(text, at, base)
		ann.Span.End = ann.Span.Offset + len(ann.Raw)
		result = append(result, ann)
	}
	return result
}

func spanAt(text string, at int, base projection.Span) projection.Span {
	s := base
	s.Offset = base.Offset + at
	prefix := text[:at]
	if nl := strings.LastIndexByte(prefix, '\n'); nl >= 0 {
		s.Line = base.Line + strings.Count(prefix, "\n")
		s.Column = at - nl
	} else {
		s.Column = base.Column + at
	}
	return s
}

func isNamePart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// FilterByNames 过滤指定名称的注解
func FilterByNames(annotations []*Annotation, names ...string) []*Annotation {
	if len(names) == 0 {
		return annotations
	}
	return lo.Filter(annotations, func(ann *Annotation, _ int) bool {
		return lo.Contains(names, ann.Name)
	})
}

// HasAnnotation 检查是否包含指定注解
func HasAnnotation(annotations []*Annotation, name string) bool {
	return GetAnnotation(annotations, name) != nil
}

// GetAnnotation 获取第一个指定名称的注解
func GetAnnotation(annotations []*Annotation, name string) *Annotation {
	ann, _ := lo.Find(annotations, func(ann *Annotation) bool {
		return ann.Name == name
	})
	return ann
}

// RawAnnotations 转换为投影核心使用的注解列表
func RawAnnotations(annotations []*Annotation) []projection.RawAnnotation {
	return lo.Map(annotations, func(ann *Annotation, _ int) projection.RawAnnotation {
		return ann.RawAnnotation()
	})
}
