package projection

import (
	"fmt"
	"strings"
)

// Mode 字段投影模式
type Mode int

const (
	ModeOmit Mode = iota + 1 // 排除指定字段
	ModePick                 // 仅保留指定字段
)

func (m Mode) String() string {
	switch m {
	case ModeOmit:
		return "Omit"
	case ModePick:
		return "Pick"
	default:
		return "unknown"
	}
}

// DirectiveName 返回该模式对应的注解名
func (m Mode) DirectiveName() string {
	switch m {
	case ModeOmit:
		return "omit"
	case ModePick:
		return "pick"
	default:
		return ""
	}
}

// ModeByDirective 根据注解名查找模式
func ModeByDirective(name string) (Mode, bool) {
	switch name {
	case "omit":
		return ModeOmit, true
	case "pick":
		return ModePick, true
	}
	return 0, false
}

// RecordKind 输入声明的结构类型
type RecordKind int

const (
	KindStruct    RecordKind = iota + 1 // type X struct{...}
	KindInterface                       // type X interface{...}
	KindAlias                           // type X = Y
	KindDefined                         // type X int 等非结构体定义
)

func (k RecordKind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindInterface:
		return "interface"
	case KindAlias:
		return "alias"
	case KindDefined:
		return "defined type"
	default:
		return "unknown"
	}
}

// Span 源码位置，Offset/End 为文件内字节偏移
type Span struct {
	Filename string
	Line     int
	Column   int
	Offset   int
	End      int
}

func (s Span) String() string {
	if s.Filename == "" {
		if s.Line == 0 {
			return "-"
		}
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
}

// IsValid 是否携带了行号信息
func (s Span) IsValid() bool {
	return s.Line > 0
}

// Field 结构体字段
// Doc、Syntax、Comment 均为源码原文，生成时逐字节复制，不做解析
type Field struct {
	Name     string // 字段名；嵌入字段为类型名
	Embedded bool   // 是否为嵌入字段
	Doc      string // 字段上方的注释（含 //），可为空
	Syntax   string // 类型及 tag，例如 "uint64 `json:\"id\"`"
	Comment  string // 行尾注释（含 //），可为空
}

// RawAnnotation 声明上的原始注解
// Args 为未解析的参数文本，包含外层括号，例如 "(NewUser, ID)"
type RawAnnotation struct {
	Name string
	Args string
	Span Span
}

// Text 返回注解原文
func (a RawAnnotation) Text() string {
	return "@" + a.Name + a.Args
}

// Record 输入声明（只读）
type Record struct {
	Name        string
	Kind        RecordKind
	TypeParams  string // 泛型参数列表原文，例如 "[T any]"
	Fields      []Field
	Annotations []RawAnnotation
	Span        Span
}

// Path 能力注解引用，可以带包名限定，例如 validate.Struct
type Path struct {
	Segments []string
}

// NewPath 以 "." 分割创建 Path
func NewPath(s string) Path {
	return Path{Segments: strings.Split(s, ".")}
}

func (p Path) String() string {
	return strings.Join(p.Segments, ".")
}

// IsQualified 是否带包名限定
func (p Path) IsQualified() bool {
	return len(p.Segments) > 1
}

// Derive derive(...) 子句
type Derive struct {
	Paths []Path
}

// Strings 返回能力注解的文本列表
func (d *Derive) Strings() []string {
	if d == nil {
		return nil
	}
	result := make([]string, 0, len(d.Paths))
	for _, p := range d.Paths {
		result = append(result, p.String())
	}
	return result
}

// Directive 解析后的投影注解
// Derive 为 nil 表示没有 derive(...)；非 nil 且 Paths 为空表示 derive()
type Directive struct {
	Name   string   // omit 或 pick
	Target string   // 新结构体名称
	Fields []string // 引用的字段名，保留书写顺序
	Derive *Derive
	Span   Span
}

// Projected 投影结果，由 Project 生成、Synthesize 消费
type Projected struct {
	Name       string
	Source     string // 源结构体名
	TypeParams string
	Fields     []Field
	Derive     *Derive
	Mode       Mode
	Directive  *Directive
}

// Declaration 一个生成的声明
type Declaration struct {
	Projected
	Text string // 生成的 Go 源码
}
