package structparse

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/donutnomad/omitpick/internal/pkgresolver"
	"github.com/donutnomad/omitpick/plugin"
	"github.com/donutnomad/omitpick/projection"
)

// PackageResolver 包名解析器接口
type PackageResolver interface {
	PackageName(importPath string) string
}

// Parser 解析带注解的类型声明
type Parser struct {
	resolver PackageResolver
}

// NewParser 创建解析器，resolver 为 nil 时按导入路径推断包名
func NewParser(resolver PackageResolver) *Parser {
	return &Parser{resolver: resolver}
}

var (
	defaultParser     *Parser
	defaultParserOnce sync.Once
)

// Default 返回使用当前目录所在模块的解析器
func Default() *Parser {
	defaultParserOnce.Do(func() {
		root, _ := pkgresolver.FindProjectRoot(".")
		defaultParser = NewParser(pkgresolver.NewResolver(root))
	})
	return defaultParser
}

// ParseFile 使用默认解析器解析文件
func ParseFile(filename string, src []byte) (*FileInfo, error) {
	return Default().ParseFile(filename, src)
}

// ParseRecord 使用默认解析器解析文件中的单个类型
func ParseRecord(filename, typeName string) (*RecordInfo, error) {
	return Default().ParseRecord(filename, typeName)
}

// ParseRecord 读取文件并返回指定的类型，类型不存在或没有注解时返回错误
func (p *Parser) ParseRecord(filename, typeName string) (*RecordInfo, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	info, err := p.ParseFile(filename, src)
	if err != nil {
		return nil, err
	}
	if rec := info.Lookup(typeName); rec != nil {
		return rec, nil
	}
	return nil, fmt.Errorf("%s: 未找到带注解的类型 %s", filepath.Base(filename), typeName)
}

// ParseFile 解析文件中所有带注解的类型声明，src 为 nil 时从磁盘读取
func (p *Parser) ParseFile(filename string, src []byte) (*FileInfo, error) {
	if src == nil {
		var err error
		if src, err = os.ReadFile(filename); err != nil {
			return nil, err
		}
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("解析文件失败: %w", err)
	}

	fp := &fileParser{
		fset:    fset,
		src:     src,
		imports: make(map[string]ImportInfo),
	}

	info := &FileInfo{
		Filename:    filename,
		PackageName: file.Name.Name,
	}
	for _, imp := range file.Imports {
		importInfo, ok := p.importInfo(imp)
		if !ok {
			continue
		}
		info.Imports = append(info.Imports, importInfo)
		fp.imports[importInfo.Alias] = importInfo
	}

	for _, decl := range file.Decls {
		d, ok := decl.(*ast.GenDecl)
		if !ok || d.Tok != token.TYPE {
			continue
		}
		for _, spec := range d.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			doc := ts.Doc
			if doc == nil && len(d.Specs) == 1 {
				doc = d.Doc
			}
			annotations := plugin.ParseCommentAnnotations(fset, doc)
			if len(annotations) == 0 {
				continue
			}
			info.Records = append(info.Records, fp.record(ts, annotations))
		}
	}

	return info, nil
}

// importInfo 解析 import，跳过 _ 和 . 导入
func (p *Parser) importInfo(imp *ast.ImportSpec) (ImportInfo, bool) {
	importPath, err := strconv.Unquote(imp.Path.Value)
	if err != nil {
		return ImportInfo{}, false
	}

	var pkgName string
	if p.resolver != nil {
		pkgName = p.resolver.PackageName(importPath)
	}
	if pkgName == "" {
		pkgName = pkgresolver.GuessName(importPath)
	}

	alias := pkgName
	if imp.Name != nil {
		if imp.Name.Name == "_" || imp.Name.Name == "." {
			return ImportInfo{}, false
		}
		alias = imp.Name.Name
	}

	return ImportInfo{
		Alias:       alias,
		PackageName: pkgName,
		ImportPath:  importPath,
	}, true
}

type fileParser struct {
	fset    *token.FileSet
	src     []byte
	imports map[string]ImportInfo // key: 限定名
}

func (fp *fileParser) record(ts *ast.TypeSpec, annotations []*plugin.Annotation) *RecordInfo {
	pos := fp.fset.Position(ts.Name.Pos())
	rec := &projection.Record{
		Name:        ts.Name.Name,
		Kind:        recordKind(ts),
		Annotations: plugin.RawAnnotations(annotations),
		Span: projection.Span{
			Filename: pos.Filename,
			Line:     pos.Line,
			Column:   pos.Column,
			Offset:   pos.Offset,
			End:      pos.Offset + len(ts.Name.Name),
		},
	}
	if ts.TypeParams != nil {
		rec.TypeParams = fp.text(ts.TypeParams.Opening, ts.TypeParams.Closing+1)
	}

	info := &RecordInfo{
		Record:       rec,
		FieldImports: make(map[string][]ImportInfo),
	}

	st, ok := ts.Type.(*ast.StructType)
	if !ok || rec.Kind != projection.KindStruct {
		return info
	}

	for _, field := range st.Fields.List {
		syntax := fp.text(field.Type.Pos(), field.Type.End())
		if field.Tag != nil {
			syntax += " " + field.Tag.Value
		}
		doc := commentText(field.Doc, "\n")
		comment := commentText(field.Comment, " ")
		imports := fp.typeImports(field.Type)

		if len(field.Names) == 0 {
			name := embeddedName(field.Type)
			rec.Fields = append(rec.Fields, projection.Field{
				Name:     name,
				Embedded: true,
				Doc:      doc,
				Syntax:   syntax,
				Comment:  comment,
			})
			info.FieldImports[name] = imports
			continue
		}

		for _, name := range field.Names {
			rec.Fields = append(rec.Fields, projection.Field{
				Name:    name.Name,
				Doc:     doc,
				Syntax:  syntax,
				Comment: comment,
			})
			info.FieldImports[name.Name] = imports
		}
	}

	return info
}

// typeImports 收集类型表达式中 pkg.Name 形式引用的导入
func (fp *fileParser) typeImports(expr ast.Expr) []ImportInfo {
	var result []ImportInfo
	seen := make(map[string]bool)
	ast.Inspect(expr, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		ident, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		if imp, ok := fp.imports[ident.Name]; ok && !seen[imp.ImportPath] {
			seen[imp.ImportPath] = true
			result = append(result, imp)
		}
		return false
	})
	return result
}

func (fp *fileParser) text(from, to token.Pos) string {
	start := fp.fset.Position(from).Offset
	end := fp.fset.Position(to).Offset
	return string(fp.src[start:end])
}

func recordKind(ts *ast.TypeSpec) projection.RecordKind {
	switch plugin.TargetKindOf(ts) {
	case plugin.TargetStruct:
		return projection.KindStruct
	case plugin.TargetInterface:
		return projection.KindInterface
	case plugin.TargetAlias:
		return projection.KindAlias
	default:
		return projection.KindDefined
	}
}

// embeddedName 嵌入字段的字段名为其类型名：*pkg.Base[T] → Base
func embeddedName(expr ast.Expr) string {
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.SelectorExpr:
			return e.Sel.Name
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

func commentText(group *ast.CommentGroup, sep string) string {
	if group == nil {
		return ""
	}
	lines := make([]string, 0, len(group.List))
	for _, c := range group.List {
		lines = append(lines, c.Text)
	}
	return strings.Join(lines, sep)
}
