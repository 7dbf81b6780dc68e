package pickgen

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/donutnomad/gg"
	"github.com/donutnomad/omitpick/internal/structparse"
	"github.com/donutnomad/omitpick/plugin"
	"github.com/donutnomad/omitpick/projection"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DefaultOutput 默认输出文件，与源文件位于同一目录
const DefaultOutput = "$FILE_proj.go"

const syntax = `@%[1]s(Name, Field, ..., derive(Path, ...))
Name    新结构体名称
Field   %[2]s的字段，保持源结构体中的顺序，不存在的字段只警告
derive  可选，生成的结构体上方输出 // @derive(...)`

// OmitGenerator 处理 @omit，生成排除指定字段的新结构体
type OmitGenerator struct {
	generator
}

// NewOmitGenerator 创建 Omit 生成器
func NewOmitGenerator(opts ...Option) *OmitGenerator {
	return &OmitGenerator{generator: newGenerator(projection.ModeOmit, "排除", opts)}
}

// PickGenerator 处理 @pick，生成只包含指定字段的新结构体
type PickGenerator struct {
	generator
}

// NewPickGenerator 创建 Pick 生成器
func NewPickGenerator(opts ...Option) *PickGenerator {
	return &PickGenerator{generator: newGenerator(projection.ModePick, "保留", opts)}
}

// Option 生成器选项
type Option func(*generator)

// WithParser 指定源文件解析器，默认使用当前模块
func WithParser(p *structparse.Parser) Option {
	return func(g *generator) {
		g.parser = p
	}
}

type generator struct {
	plugin.BaseGenerator
	mode   projection.Mode
	parser *structparse.Parser
}

func newGenerator(mode projection.Mode, verb string, opts []Option) generator {
	name := mode.DirectiveName()
	g := generator{
		BaseGenerator: *plugin.NewBaseGenerator(name, []string{name}, plugin.AllTargets),
		mode:          mode,
	}
	g.SetPriority(40)
	g.SetSyntax(fmt.Sprintf(syntax, name, verb))
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

func (g *generator) structParser() *structparse.Parser {
	if g.parser == nil {
		return structparse.Default()
	}
	return g.parser
}

// projectedRecord 一个源类型及其生成的声明
type projectedRecord struct {
	target *plugin.Target
	record *structparse.RecordInfo
	decls  []projection.Declaration

	converters bool
}

// Generate 执行代码生成
func (g *generator) Generate(ctx *plugin.GenerateContext) (*plugin.GenerateResult, error) {
	result := plugin.NewGenerateResult()
	if len(ctx.Targets) == 0 {
		return result, nil
	}

	log := ctx.Log()
	parser := g.structParser()

	targets := slices.Clone(ctx.Targets)
	slices.SortStableFunc(targets, func(a, b *plugin.AnnotatedTarget) int {
		if c := cmp.Compare(a.Target.FilePath, b.Target.FilePath); c != 0 {
			return c
		}
		return cmp.Compare(a.Target.Span.Offset, b.Target.Span.Offset)
	})

	// 同一文件只解析一次
	files := make(map[string]*structparse.FileInfo)
	outputs := make(map[string][]*projectedRecord)

	for _, at := range targets {
		path := at.Target.FilePath
		fi, ok := files[path]
		if !ok {
			var err error
			if fi, err = parser.ParseFile(path, nil); err != nil {
				result.AddError(fmt.Errorf("%s: %w", path, err))
				continue
			}
			files[path] = fi
		}

		ri := fi.Lookup(at.Target.Name)
		if ri == nil {
			result.AddError(fmt.Errorf("%s: 未找到类型 %s", at.Target.Span, at.Target.Name))
			continue
		}

		decls, err := projection.Transform(ri.Record, g.mode,
			projection.WithLogger(log),
			projection.WithUnknownFieldWarning(ctx.WarnUnknownFields),
		)
		if err != nil {
			for _, e := range projection.Errors(err) {
				result.AddError(e)
			}
			continue
		}
		if len(decls) == 0 {
			result.Skipped++
			continue
		}

		outputPath, err := plugin.GetOutputPath(at.Target, DefaultOutput, ctx.GetFileConfig(path), g.Name(), ctx.DefaultOutput)
		if err != nil {
			result.AddError(err)
			continue
		}

		outputs[outputPath] = append(outputs[outputPath], &projectedRecord{
			target:     at.Target,
			record:     ri,
			decls:      decls,
			converters: ctx.ConvertersFor(path),
		})

		if ctx.Verbose {
			log.Info("处理类型",
				zap.String("type", at.Target.Name),
				zap.Strings("targets", lo.Map(decls, func(d projection.Declaration, _ int) string { return d.Name })),
				zap.String("output", outputPath),
			)
		}
	}

	// 为每个输出文件生成 gg 定义
	outputPaths := lo.Keys(outputs)
	slices.Sort(outputPaths)
	for _, outputPath := range outputPaths {
		def, err := buildFile(outputs[outputPath])
		if err != nil {
			result.AddError(fmt.Errorf("生成 %s 失败: %w", outputPath, err))
			continue
		}
		result.AddDefinition(outputPath, def)
	}

	return result, nil
}

// buildFile 为同一输出文件的所有声明生成 gg 定义
func buildFile(records []*projectedRecord) (*gg.Generator, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("没有目标需要生成")
	}

	gen := gg.New()
	gen.SetPackage(records[0].target.PackageName)

	imports := make(map[string]structparse.ImportInfo) // key: 导入路径
	for _, r := range records {
		if r.target.PackageName != records[0].target.PackageName {
			return nil, fmt.Errorf("包名不一致: %s vs %s", records[0].target.PackageName, r.target.PackageName)
		}

		withConverters := r.converters && !r.record.IsGeneric()
		for _, decl := range r.decls {
			buildDeclaration(gen, decl)
			if withConverters {
				buildFromMethod(gen, decl)
				buildNewFunction(gen, decl)
			}

			// 只导入保留的字段需要的包
			for _, imp := range r.record.ImportsFor(decl.Fields) {
				imports[imp.ImportPath] = imp
			}
		}
	}

	paths := lo.Keys(imports)
	slices.Sort(paths)
	for _, path := range paths {
		imp := imports[path]
		if imp.Alias != "" && imp.Alias != imp.PackageName {
			gen.PAlias(path, imp.Alias)
		} else {
			gen.P(path)
		}
	}

	return gen, nil
}
