package pickgen

import (
	"strings"

	"github.com/donutnomad/gg"
	"github.com/donutnomad/omitpick/projection"
)

// buildDeclaration 输出一行说明注释和生成的结构体
func buildDeclaration(gen *gg.Generator, decl projection.Declaration) {
	group := gen.Body()

	group.AddLine()
	group.Append(gg.LineComment("%s 由 %s 通过 @%s 生成", decl.Name, decl.Source, decl.Mode.DirectiveName()))
	group.AddString(strings.TrimSuffix(decl.Text, "\n"))
	group.AddLine()
}

// buildFromMethod 生成 From 方法
// func (t *Target) From(src *Source)
func buildFromMethod(gen *gg.Generator, decl projection.Declaration) {
	group := gen.Body()

	group.AddLine()
	group.Append(gg.LineComment("From 从 %s 复制字段值", decl.Source))

	fn := group.NewFunction("From").
		WithReceiver("t", "*"+decl.Name).
		AddParameter("src", "*"+decl.Source)

	for _, field := range decl.Fields {
		fn.AddBody(gg.S("t.%s = src.%s", field.Name, field.Name))
	}
}

// buildNewFunction 生成构造函数
// func NewTarget(src *Source) Target
func buildNewFunction(gen *gg.Generator, decl projection.Declaration) {
	group := gen.Body()

	group.AddLine()
	group.Append(gg.LineComment("New%s 从 %s 创建 %s", decl.Name, decl.Source, decl.Name))

	group.NewFunction("New"+decl.Name).
		AddParameter("src", "*"+decl.Source).
		AddResult("", decl.Name).
		AddBody(
			gg.S("var result %s", decl.Name),
			gg.S("result.From(src)"),
			gg.Return(gg.S("result")),
		)
}
