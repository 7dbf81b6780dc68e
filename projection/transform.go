package projection

import (
	"cmp"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type options struct {
	logger      *zap.Logger
	warnUnknown bool
}

// Option Transform 选项
type Option func(*options)

// WithLogger 注入诊断日志，默认不输出
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithUnknownFieldWarning 引用不存在的字段时是否输出警告，默认 true
// 无论是否开启都不会导致失败
func WithUnknownFieldWarning(v bool) Option {
	return func(o *options) {
		o.warnUnknown = v
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:      zap.NewNop(),
		warnUnknown: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Transform 对 rec 执行单个模式的投影
// 1. 收集名为 mode.DirectiveName() 的注解
// 2. 解析全部注解，语法错误会全部收集后一起返回
// 3. 每个注解独立地从原始字段投影并生成声明
//
// 出错时不返回任何声明
func Transform(rec *Record, mode Mode, opts ...Option) ([]Declaration, error) {
	o := newOptions(opts)
	raws := Collect(rec.Annotations, mode.DirectiveName())
	directives, err := parseAll(rec, raws)
	if err != nil {
		return nil, err
	}
	return synthesizeAll(rec, directives, o), nil
}

// TransformAll 同时处理 omit 和 pick，声明按注解在源码中的顺序排列
func TransformAll(rec *Record, opts ...Option) ([]Declaration, error) {
	o := newOptions(opts)
	var raws []RawAnnotation
	for _, a := range rec.Annotations {
		if _, ok := ModeByDirective(a.Name); ok {
			raws = append(raws, a)
		}
	}
	slices.SortStableFunc(raws, func(a, b RawAnnotation) int {
		return cmp.Compare(a.Span.Offset, b.Span.Offset)
	})

	directives, err := parseAll(rec, raws)
	if err != nil {
		return nil, err
	}
	return synthesizeAll(rec, directives, o), nil
}

// ParseAll 解析 rec 上所有 omit/pick 注解，不做投影
func ParseAll(rec *Record) ([]*Directive, error) {
	var raws []RawAnnotation
	for _, a := range rec.Annotations {
		if _, ok := ModeByDirective(a.Name); ok {
			raws = append(raws, a)
		}
	}
	return parseAll(rec, raws)
}

func parseAll(rec *Record, raws []RawAnnotation) ([]*Directive, error) {
	if len(raws) == 0 {
		return nil, nil
	}

	if rec.Kind != KindStruct {
		return nil, &StructuralError{
			Record:    rec.Name,
			Kind:      rec.Kind,
			Directive: raws[0].Name,
			Span:      rec.Span,
		}
	}

	var errs error
	directives := make([]*Directive, 0, len(raws))
	for _, raw := range raws {
		d, err := ParseDirective(raw)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		directives = append(directives, d)
	}
	if errs != nil {
		return nil, errs
	}
	return directives, nil
}

func synthesizeAll(rec *Record, directives []*Directive, o *options) []Declaration {
	decls := make([]Declaration, 0, len(directives))
	for _, d := range directives {
		mode, _ := ModeByDirective(d.Name)

		if o.warnUnknown {
			if unknown := UnknownRefs(rec.Fields, d); len(unknown) > 0 {
				o.logger.Warn("引用的字段不存在",
					zap.String("record", rec.Name),
					zap.String("target", d.Target),
					zap.Strings("fields", unknown),
					zap.Stringer("pos", d.Span),
				)
			}
		}

		decl := Synthesize(NewProjected(rec, d, mode))
		o.logger.Debug("生成声明",
			zap.String("record", rec.Name),
			zap.String("directive", d.Name),
			zap.String("target", d.Target),
			zap.Int("fields", len(decl.Fields)),
		)
		decls = append(decls, decl)
	}
	return decls
}
