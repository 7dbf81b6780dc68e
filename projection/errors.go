package projection

import (
	"fmt"

	"go.uber.org/multierr"
)

// StructuralError 输入声明不是普通的具名字段结构体
type StructuralError struct {
	Record    string
	Kind      RecordKind
	Directive string
	Span      Span // 输入声明名称所在位置
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: @%s 只支持 struct，%s 是 %s", e.Span, e.Directive, e.Record, e.Kind)
}

// GrammarError 注解参数不符合语法
type GrammarError struct {
	Directive string // omit 或 pick
	Args      string // 参数原文
	Offset    int    // 出错位置在 Args 中的字节偏移
	Msg       string
	Span      Span // 整个注解的位置
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("%s: @%s%s: %s", e.Span, e.Directive, e.Args, e.Msg)
}

// Errors 展开 Transform 返回的聚合错误
func Errors(err error) []error {
	return multierr.Errors(err)
}
