package plugin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/donutnomad/gg"
	"github.com/donutnomad/omitpick/internal/utils"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// GeneratedHeader 生成文件的头部注释
const GeneratedHeader = "Code generated by omitpick. DO NOT EDIT."

// RunOptions 运行选项
type RunOptions struct {
	Registry *Registry
	Patterns []string
	Verbose  bool
	Output   string // 命令行或配置文件指定的默认输出路径（最低优先级）
	Async    bool   // 是否异步执行生成器
	Workers  int    // 扫描并发数，<=0 时使用 CPU 核数

	DryRun bool // 只生成不写入
	Check  bool // 与磁盘上的文件比较，不写入

	Converters        bool
	WarnUnknownFields bool

	Logger *zap.Logger
	Stdout io.Writer // 进度输出，默认 os.Stdout
}

// RunStats 运行统计信息
type RunStats struct {
	ScanDuration     time.Duration // 扫描耗时
	GenerateDuration time.Duration // 生成耗时
	TotalDuration    time.Duration // 总耗时
	TargetCount      int           // 目标数量
	FileCount        int           // 写入（或需要写入）的文件数量
	Unchanged        int           // 内容未变化的文件数量
	Stale            []FileDiff    // check 模式下与生成结果不一致的文件
}

// FileDiff 生成结果与磁盘文件的差异
type FileDiff struct {
	Path string
	Diff string // unified diff
}

// Run 运行代码生成
// 1. 扫描指定路径的注解
// 2. 将目标分发给对应的生成器
// 3. 执行生成器
// 4. 合并同一文件的 gg 定义，格式化后写入文件（或与现有文件比较）
//
// 返回的错误可能由多个错误组合而成，使用 multierr.Errors 展开
func Run(ctx context.Context, opts *RunOptions) (*RunStats, error) {
	totalStart := time.Now()
	stats := &RunStats{}

	registry := opts.Registry
	if registry == nil {
		registry = globalRegistry
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	// 获取所有已注册的注解
	annotations := registry.Annotations()
	if len(annotations) == 0 {
		return nil, errors.New("没有已注册的生成器")
	}

	// 扫描
	scanStart := time.Now()
	scanner := NewScanner(
		WithAnnotationFilter(annotations...),
		WithWorkers(opts.Workers),
		WithScannerLogger(logger),
	)
	result, err := scanner.Scan(ctx, opts.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("扫描失败: %w", err)
	}
	stats.ScanDuration = time.Since(scanStart)

	allErrors := slices.Clone(result.Errors)

	if len(result.All()) == 0 {
		logger.Debug("没有找到任何带注解的目标")
		stats.TotalDuration = time.Since(totalStart)
		return stats, multierr.Combine(allErrors...)
	}

	stats.TargetCount = len(result.All())
	if opts.Verbose {
		fmt.Fprintf(out, "找到 %d 个带注解的目标 (扫描耗时: %v)\n", stats.TargetCount, stats.ScanDuration)
	}

	generateStart := time.Now()

	// 分发目标
	dispatch := registry.DispatchTargets(result)

	// 按优先级排序生成器（优先级数字越小越靠前）
	gens := lo.FilterMap(registry.Generators(), func(gen Generator, _ int) (Generator, bool) {
		_, ok := dispatch[gen.Name()]
		return gen, ok
	})

	// genResultItem 存储单个生成器的执行结果
	type genResultItem struct {
		result *GenerateResult
		err    error
	}

	// 执行生成器的函数
	executeGenerator := func(gen Generator) genResultItem {
		targets := dispatch[gen.Name()]
		genCtx := &GenerateContext{
			Targets:           targets,
			FileConfigs:       result.FileConfigs,
			DefaultOutput:     opts.Output,
			Verbose:           opts.Verbose,
			Converters:        opts.Converters,
			WarnUnknownFields: opts.WarnUnknownFields,
			Logger:            logger.Named(gen.Name()),
		}

		start := time.Now()
		genResult, err := gen.Generate(genCtx)
		logger.Debug("执行生成器",
			zap.String("generator", gen.Name()),
			zap.Int("targets", len(targets)),
			zap.Duration("elapsed", time.Since(start)),
		)
		return genResultItem{result: genResult, err: err}
	}

	items := make([]genResultItem, len(gens))
	if opts.Async {
		// 异步执行每个生成器，结果按优先级顺序存放
		var wg sync.WaitGroup
		for i, gen := range gens {
			wg.Add(1)
			go func() {
				defer wg.Done()
				items[i] = executeGenerator(gen)
			}()
		}
		wg.Wait()
	} else {
		for i, gen := range gens {
			items[i] = executeGenerator(gen)
		}
	}

	// 收集 gg 定义，按输出路径分组
	// 多个生成器可能输出到同一文件，同时记录生成器名称用于分隔符
	fileDefinitions := make(map[string][]*gg.Generator)
	fileGenNames := make(map[string][]string)
	for i, gen := range gens {
		item := items[i]
		if item.err != nil {
			allErrors = append(allErrors, fmt.Errorf("生成器 %s 执行失败: %w", gen.Name(), item.err))
			continue
		}
		if item.result == nil {
			continue
		}
		for path, def := range item.result.Definitions {
			fileDefinitions[path] = append(fileDefinitions[path], def)
			fileGenNames[path] = append(fileGenNames[path], gen.Name())
		}
		allErrors = append(allErrors, item.result.Errors...)
	}

	// 合并同一文件的定义，格式化后写入
	paths := lo.Keys(fileDefinitions)
	slices.Sort(paths)
	for _, path := range paths {
		merged, err := mergeDefinitionsWithSeparator(fileDefinitions[path], fileGenNames[path])
		if err != nil {
			allErrors = append(allErrors, fmt.Errorf("合并文件 %s 的定义失败: %w", path, err))
			continue
		}

		content, err := utils.FormatSource(path, merged.Bytes())
		if err != nil {
			allErrors = append(allErrors, err)
			continue
		}

		existing, _ := os.ReadFile(path)
		if bytes.Equal(existing, content) {
			stats.Unchanged++
			logger.Debug("文件未变化", zap.String("file", path))
			continue
		}
		stats.FileCount++

		switch {
		case opts.Check:
			stats.Stale = append(stats.Stale, FileDiff{
				Path: path,
				Diff: unifiedDiff(path, existing, content),
			})
		case opts.DryRun:
			fmt.Fprintf(out, "将生成文件: %s\n", relPath(path))
		default:
			if err := utils.WriteFile(path, content); err != nil {
				allErrors = append(allErrors, fmt.Errorf("写入文件 %s 失败: %w", path, err))
				continue
			}
			fmt.Fprintf(out, "生成文件: %s\n", relPath(path))
		}
	}

	stats.GenerateDuration = time.Since(generateStart)
	stats.TotalDuration = time.Since(totalStart)

	return stats, multierr.Combine(allErrors...)
}

// mergeDefinitionsWithSeparator 合并多个 gg.Generator 定义到一个文件，并添加分隔符
func mergeDefinitionsWithSeparator(definitions []*gg.Generator, genNames []string) (*gg.Generator, error) {
	if len(definitions) == 0 {
		return nil, errors.New("没有定义需要合并")
	}

	// 创建新的 generator 用于合并
	merged := gg.New()
	merged.SetHeader(GeneratedHeader)

	// 收集包名
	var pkgName string
	for _, def := range definitions {
		if def.PackageName() != "" {
			if pkgName == "" {
				pkgName = def.PackageName()
			} else if pkgName != def.PackageName() {
				return nil, fmt.Errorf("包名不一致: %s vs %s", pkgName, def.PackageName())
			}
		}
	}
	if pkgName != "" {
		merged.SetPackage(pkgName)
	}

	// 注意：不要手动收集 imports，Merge 会正确处理 imports 和别名
	for i, def := range definitions {
		genName := "unknown"
		if i < len(genNames) {
			genName = genNames[i]
		}
		if len(definitions) > 1 {
			merged.Body().AddLine()
			merged.Body().AddString(fmt.Sprintf("// ================ %s ================", genName))
			merged.Body().AddLine()
		}
		merged.Merge(def)
	}

	return merged, nil
}

func unifiedDiff(path string, current, generated []byte) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current)),
		B:        difflib.SplitLines(string(generated)),
		FromFile: relPath(path) + " (current)",
		ToFile:   relPath(path) + " (generated)",
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

// relPath 尽量返回相对当前目录的路径
func relPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// OutputData 输出路径模板的数据
type OutputData struct {
	File    string // 源文件名（不含 .go 后缀）
	Package string // 包名
	Type    string // 类型名
}

// GetOutputPath 计算输出路径
// 优先级：文件级插件配置 > 文件级默认配置 > 命令行/配置文件 > 生成器默认文件名
// 模板变量：
//   - $FILE: 源文件名（不含 .go 后缀）
//   - $PACKAGE: 包名
//   - Go 模板，支持 sprig 函数和 gosnake，例如 {{ .Type | gosnake }}_view
func GetOutputPath(target *Target, defaultFileName string, fileConfig *FileConfig, pluginName string, cmdOutput string) (string, error) {
	output := fileConfig.GetPluginOutput(strings.ToLower(pluginName))
	if output == "" {
		output = cmdOutput
	}
	if output == "" {
		output = defaultFileName
	}
	if output == "" {
		output = "$FILE_proj.go"
	}

	output, err := renderOutput(output, target)
	if err != nil {
		return "", err
	}

	// 确保有 .go 后缀
	if !strings.HasSuffix(output, ".go") {
		output += ".go"
	}

	if filepath.IsAbs(output) {
		return output, nil
	}
	// 相对于源文件目录
	return filepath.Join(filepath.Dir(target.FilePath), output), nil
}

var outputFuncs = func() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["gosnake"] = utils.ToSnakeCase
	return funcs
}()

// renderOutput 替换模板变量
func renderOutput(output string, target *Target) (string, error) {
	data := OutputData{
		File:    strings.TrimSuffix(filepath.Base(target.FilePath), ".go"),
		Package: target.PackageName,
		Type:    target.Name,
	}
	output = strings.ReplaceAll(output, "$FILE", data.File)
	output = strings.ReplaceAll(output, "$PACKAGE", data.Package)
	if !strings.Contains(output, "{{") {
		return output, nil
	}

	tmpl, err := template.New("output").Funcs(outputFuncs).Parse(output)
	if err != nil {
		return "", fmt.Errorf("输出路径模板 %q 无效: %w", output, err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("输出路径模板 %q 执行失败: %w", output, err)
	}
	return sb.String(), nil
}
