package pickgen

import (
	"github.com/donutnomad/omitpick/internal/structparse"
	"github.com/donutnomad/omitpick/plugin"
	"github.com/donutnomad/omitpick/projection"
	"github.com/samber/lo"
)

// DirectiveReport 一个源类型的注解解析结果
type DirectiveReport struct {
	File       string          `json:"file"`
	Line       int             `json:"line"`
	Type       string          `json:"type"`
	Kind       string          `json:"kind"`
	Directives []DirectiveInfo `json:"directives,omitempty"`
	Errors     []string        `json:"errors,omitempty"`
}

// DirectiveInfo 单个 @omit/@pick 的解析结果
type DirectiveInfo struct {
	Directive string   `json:"directive"`
	Line      int      `json:"line"`
	Target    string   `json:"target"`
	Fields    []string `json:"fields"`
	Derive    []string `json:"derive,omitempty"`
	Kept      []string `json:"kept"`
	Unknown   []string `json:"unknown,omitempty"`
}

// Inspect 解析目标上的所有注解，不生成代码
func Inspect(targets []*plugin.AnnotatedTarget) []DirectiveReport {
	return InspectWith(structparse.Default(), targets)
}

// InspectWith 使用指定解析器执行 Inspect
func InspectWith(parser *structparse.Parser, targets []*plugin.AnnotatedTarget) []DirectiveReport {
	files := make(map[string]*structparse.FileInfo)
	reports := make([]DirectiveReport, 0, len(targets))

	for _, at := range targets {
		report := DirectiveReport{
			File: at.Target.FilePath,
			Line: at.Target.Span.Line,
			Type: at.Target.Name,
			Kind: at.Target.Kind.String(),
		}

		fi, ok := files[at.Target.FilePath]
		if !ok {
			var err error
			fi, err = parser.ParseFile(at.Target.FilePath, nil)
			if err != nil {
				report.Errors = append(report.Errors, err.Error())
				reports = append(reports, report)
				continue
			}
			files[at.Target.FilePath] = fi
		}

		ri := fi.Lookup(at.Target.Name)
		if ri == nil {
			reports = append(reports, report)
			continue
		}

		directives, err := projection.ParseAll(ri.Record)
		if err != nil {
			report.Errors = lo.Map(projection.Errors(err), func(e error, _ int) string {
				return e.Error()
			})
		}
		for _, d := range directives {
			report.Directives = append(report.Directives, inspectDirective(ri.Record, d))
		}
		reports = append(reports, report)
	}
	return reports
}

func inspectDirective(rec *projection.Record, d *projection.Directive) DirectiveInfo {
	mode, _ := projection.ModeByDirective(d.Name)
	kept := projection.Project(rec.Fields, d, mode)
	return DirectiveInfo{
		Directive: d.Name,
		Line:      d.Span.Line,
		Target:    d.Target,
		Fields:    lo.Ternary(d.Fields == nil, []string{}, d.Fields),
		Derive:    d.Derive.Strings(),
		Kept:      lo.Map(kept, func(f projection.Field, _ int) string { return f.Name }),
		Unknown:   projection.UnknownRefs(rec.Fields, d),
	}
}
