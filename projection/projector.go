package projection

import "github.com/samber/lo"

// Project 按模式过滤字段，结果保持 fields 的原有顺序
// 引用了不存在的字段不会报错：omit 时无影响，pick 时不产生字段
func Project(fields []Field, d *Directive, mode Mode) []Field {
	refs := lo.SliceToMap(d.Fields, func(name string) (string, struct{}) {
		return name, struct{}{}
	})
	return lo.Filter(fields, func(f Field, _ int) bool {
		_, referenced := refs[f.Name]
		if mode == ModePick {
			return referenced
		}
		return !referenced
	})
}

// UnknownRefs 返回没有匹配任何字段的引用，按书写顺序去重
func UnknownRefs(fields []Field, d *Directive) []string {
	names := lo.SliceToMap(fields, func(f Field) (string, struct{}) {
		return f.Name, struct{}{}
	})
	unknown := lo.Filter(d.Fields, func(name string, _ int) bool {
		_, ok := names[name]
		return !ok
	})
	return lo.Uniq(unknown)
}

// NewProjected 根据注解从原始声明构建投影结果
func NewProjected(rec *Record, d *Directive, mode Mode) Projected {
	return Projected{
		Name:       d.Target,
		Source:     rec.Name,
		TypeParams: rec.TypeParams,
		Fields:     Project(rec.Fields, d, mode),
		Derive:     d.Derive,
		Mode:       mode,
		Directive:  d,
	}
}
