package plugin

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/donutnomad/omitpick/projection"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ConfigDirective 文件级配置注释前缀
const ConfigDirective = "go:omitpick:"

// Scanner 两阶段并行注解扫描器
// 第一阶段：快速文本匹配，找出可能包含注解的文件
// 第二阶段：对匹配的文件进行 AST 解析
type Scanner struct {
	workers int
	logger  *zap.Logger

	// 注解过滤器（可选）
	annotationFilter []string
}

// ScannerOption 扫描器选项
type ScannerOption func(*Scanner)

func WithWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithScannerLogger(l *zap.Logger) ScannerOption {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithAnnotationFilter(annotations ...string) ScannerOption {
	return func(s *Scanner) {
		s.annotationFilter = annotations
	}
}

func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		workers: runtime.NumCPU(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// quickMatchRegex 快速匹配注解名
var quickMatchRegex = regexp.MustCompile(`@(\w+)`)

// Scan 扫描指定路径
// 支持: ./... ./pkg/... ./pkg /abs/path/... file.go
func (s *Scanner) Scan(ctx context.Context, patterns ...string) (*ScanResult, error) {
	// 收集所有文件
	allFiles, err := CollectFiles(patterns)
	if err != nil {
		return nil, err
	}

	if len(allFiles) == 0 {
		return &ScanResult{}, nil
	}

	// ========== 第一阶段：快速匹配 ==========
	matchedFiles, err := s.quickMatch(ctx, allFiles)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("快速匹配完成", zap.Int("files", len(allFiles)), zap.Int("matched", len(matchedFiles)))

	if len(matchedFiles) == 0 {
		return &ScanResult{}, nil
	}

	// ========== 第二阶段：AST 解析 ==========
	return s.parseFiles(ctx, matchedFiles)
}

// quickMatch 第一阶段：快速文本匹配
// 并行读取文件，检查是否包含 @xxx 模式
func (s *Scanner) quickMatch(ctx context.Context, files []string) ([]string, error) {
	matched := make([]bool, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := s.QuickMatchFile(file)
			if err != nil {
				// 跳过无法读取的文件
				s.logger.Debug("读取文件失败", zap.String("file", file), zap.Error(err))
				return nil
			}
			matched[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var matchedFiles []string
	for i, file := range files {
		if matched[i] {
			matchedFiles = append(matchedFiles, file)
		}
	}
	return matchedFiles, nil
}

// QuickMatchFile 快速检查文件是否包含注解或 go:omitpick 配置
// 用于 dev 模式判断文件是否需要触发代码生成
func (s *Scanner) QuickMatchFile(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// 只检查注释行
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "//") && !strings.HasPrefix(trimmed, "/*") {
			continue
		}

		if strings.Contains(trimmed, ConfigDirective) {
			return true, nil
		}

		// 查找 @xxx 模式
		for _, match := range quickMatchRegex.FindAllStringSubmatch(line, -1) {
			if len(s.annotationFilter) == 0 || slices.Contains(s.annotationFilter, match[1]) {
				return true, nil
			}
		}
	}

	return false, scanner.Err()
}

type fileScan struct {
	types  []*AnnotatedTarget
	config *FileConfig
}

// parseFiles 第二阶段：AST 解析
func (s *Scanner) parseFiles(ctx context.Context, files []string) (*ScanResult, error) {
	scans := make([]*fileScan, len(files))

	var mu sync.Mutex
	var parseErrs []error

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := s.parseFile(file)
			if err != nil {
				mu.Lock()
				parseErrs = append(parseErrs, err)
				mu.Unlock()
				return nil
			}
			scans[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ScanResult{
		FileConfigs: make(map[string]*FileConfig),
		Errors:      parseErrs,
	}
	for i, r := range scans {
		if r == nil {
			continue
		}
		result.Types = append(result.Types, r.types...)
		if r.config != nil {
			result.FileConfigs[files[i]] = r.config
		}
	}

	slices.SortStableFunc(result.Types, func(a, b *AnnotatedTarget) int {
		if c := cmp.Compare(a.Target.FilePath, b.Target.FilePath); c != 0 {
			return c
		}
		return cmp.Compare(a.Target.Span.Offset, b.Target.Span.Offset)
	})
	slices.SortFunc(result.Errors, func(a, b error) int {
		return cmp.Compare(a.Error(), b.Error())
	})

	return result, nil
}

// parseFile AST 解析单个文件
func (s *Scanner) parseFile(filePath string) (*fileScan, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	result := &fileScan{
		config: s.parseFileConfig(file, filePath),
	}

	packageName := file.Name.Name
	for _, decl := range file.Decls {
		d, ok := decl.(*ast.GenDecl)
		if !ok || d.Tok != token.TYPE {
			continue
		}
		for _, spec := range d.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}

			// type ( ... ) 分组中注释在 TypeSpec 上
			doc := typeSpec.Doc
			if doc == nil && len(d.Specs) == 1 {
				doc = d.Doc
			}
			annotations := ParseCommentAnnotations(fset, doc)
			if len(s.annotationFilter) > 0 {
				annotations = FilterByNames(annotations, s.annotationFilter...)
			}
			if len(annotations) == 0 {
				continue
			}

			pos := fset.Position(typeSpec.Name.Pos())
			result.types = append(result.types, &AnnotatedTarget{
				Target: &Target{
					Kind:        TargetKindOf(typeSpec),
					Name:        typeSpec.Name.Name,
					PackageName: packageName,
					FilePath:    filePath,
					Span: projection.Span{
						Filename: pos.Filename,
						Line:     pos.Line,
						Column:   pos.Column,
						Offset:   pos.Offset,
						End:      pos.Offset + len(typeSpec.Name.Name),
					},
					Node: typeSpec,
				},
				Annotations: annotations,
			})
		}
	}

	return result, nil
}

// TargetKindOf 判断类型声明的种类
func TargetKindOf(spec *ast.TypeSpec) TargetKind {
	if spec.Assign.IsValid() {
		return TargetAlias
	}
	switch spec.Type.(type) {
	case *ast.StructType:
		return TargetStruct
	case *ast.InterfaceType:
		return TargetInterface
	default:
		return TargetDefined
	}
}

// CollectFiles 收集所有需要扫描的文件
func CollectFiles(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		recursive := strings.HasSuffix(pattern, "/...")
		if recursive {
			pattern = strings.TrimSuffix(pattern, "/...")
		}

		absPath, err := filepath.Abs(pattern)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if strings.HasSuffix(absPath, ".go") && !seen[absPath] {
				seen[absPath] = true
				files = append(files, absPath)
			}
			continue
		}

		err = filepath.Walk(absPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() {
				name := info.Name()
				if path != absPath && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
					name == "vendor" || name == "testdata") {
					return filepath.SkipDir
				}
				if !recursive && path != absPath {
					return filepath.SkipDir
				}
				return nil
			}

			if IsSourceFile(path) && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	slices.Sort(files)
	return files, nil
}

// IsSourceFile 是否为需要扫描的源文件，排除测试文件和生成的文件
func IsSourceFile(path string) bool {
	return strings.HasSuffix(path, ".go") &&
		!strings.HasSuffix(path, "_test.go") &&
		!strings.HasSuffix(path, "_proj.go") &&
		!strings.HasSuffix(path, "_gen.go")
}

// 默认扫描器
var defaultScanner = NewScanner()

func Scan(ctx context.Context, patterns ...string) (*ScanResult, error) {
	return defaultScanner.Scan(ctx, patterns...)
}

func ScanWithFilter(ctx context.Context, annotations []string, patterns ...string) (*ScanResult, error) {
	scanner := NewScanner(WithAnnotationFilter(annotations...))
	return scanner.Scan(ctx, patterns...)
}

// configRegex 匹配 go:omitpick: 指令
// 支持两种格式：//go:omitpick: 和 // go:omitpick:
var configRegex = regexp.MustCompile(`go:omitpick:\s*(.*)`)

// parseFileConfig 解析文件级 go:omitpick: 配置，多行配置按顺序合并
//
//	//go:omitpick: -output `$FILE_dto`
//	//go:omitpick: plugin:pick -output `views` -converters true
func (s *Scanner) parseFileConfig(file *ast.File, filePath string) *FileConfig {
	var config *FileConfig

	for _, cg := range file.Comments {
		for _, c := range cg.List {
			text := strings.TrimPrefix(c.Text, "//")
			text = strings.TrimPrefix(text, "/*")
			text = strings.TrimSuffix(text, "*/")
			text = strings.TrimSpace(text)

			matches := configRegex.FindStringSubmatch(text)
			if len(matches) < 2 {
				continue
			}
			if config == nil {
				config = &FileConfig{
					FilePath:      filePath,
					PluginOutputs: make(map[string]string),
				}
			}
			if err := parseConfigLine(matches[1], config); err != nil {
				s.logger.Warn("忽略无效的文件配置",
					zap.String("file", filePath),
					zap.String("line", matches[1]),
					zap.Error(err),
				)
			}
		}
	}

	return config
}

// parseConfigLine 解析单行 go:omitpick: 配置
// 格式:
//
//	-output `xxx`                                       // 默认输出
//	plugin:omit -output `xxx` plugin:pick -output `yyy` // 插件特定输出
//	-converters true                                    // 生成 From/New 转换函数
func parseConfigLine(line string, config *FileConfig) error {
	parts := splitConfigArgs(strings.TrimSpace(line))

	var currentPlugin string
	for i := 0; i < len(parts); i++ {
		part := parts[i]

		switch {
		case strings.HasPrefix(part, "plugin:"):
			// 切换到特定插件
			currentPlugin = strings.ToLower(strings.TrimPrefix(part, "plugin:"))
		case part == "-output":
			if i+1 >= len(parts) {
				return fmt.Errorf("-output 缺少参数")
			}
			i++
			output := trimQuotes(parts[i])
			if currentPlugin == "" {
				config.DefaultOutput = output
			} else {
				config.PluginOutputs[currentPlugin] = output
			}
		case part == "-converters":
			// 省略值时视为 true
			value := true
			if i+1 < len(parts) && !strings.HasPrefix(parts[i+1], "-") && !strings.HasPrefix(parts[i+1], "plugin:") {
				i++
				v, err := cast.ToBoolE(trimQuotes(parts[i]))
				if err != nil {
					return fmt.Errorf("-converters: %w", err)
				}
				value = v
			}
			config.Converters = &value
		default:
			return fmt.Errorf("未知参数 %q", part)
		}
	}
	return nil
}

// splitConfigArgs 分割 go:omitpick 参数，支持引号内的空格
func splitConfigArgs(line string) []string {
	var parts []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(line); i++ {
		c := line[i]

		if !inQuote && (c == '`' || c == '"' || c == '\'') {
			inQuote = true
			quoteChar = c
			current.WriteByte(c)
		} else if inQuote && c == quoteChar {
			inQuote = false
			current.WriteByte(c)
			quoteChar = 0
		} else if !inQuote && (c == ' ' || c == '\t') {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		} else {
			current.WriteByte(c)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

// trimQuotes 去除引号
func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '`' && s[len(s)-1] == '`') ||
			(s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
