package plugin

import (
	"go/ast"

	"github.com/donutnomad/gg"
	"github.com/donutnomad/omitpick/projection"
	"go.uber.org/zap"
)

// TargetKind 表示注解目标的类型
type TargetKind int

const (
	TargetStruct    TargetKind = iota + 1 // 结构体
	TargetInterface                       // 接口
	TargetAlias                           // 类型别名 type A = B
	TargetDefined                         // 其他类型定义 type A int
)

func (k TargetKind) String() string {
	switch k {
	case TargetStruct:
		return "struct"
	case TargetInterface:
		return "interface"
	case TargetAlias:
		return "alias"
	case TargetDefined:
		return "defined"
	default:
		return "unknown"
	}
}

// AllTargets 所有类型声明
var AllTargets = []TargetKind{TargetStruct, TargetInterface, TargetAlias, TargetDefined}

// Annotation 表示注释中的一个注解
type Annotation struct {
	Name string          // 注解名称，如 "omit"
	Args string          // 参数原文，含外层括号，没有参数时为空
	Raw  string          // 原始注解文本，如 @omit(NewUser, ID)
	Span projection.Span // 注解在源文件中的位置
}

// RawAnnotation 转换为投影核心使用的注解
func (a *Annotation) RawAnnotation() projection.RawAnnotation {
	return projection.RawAnnotation{
		Name: a.Name,
		Args: a.Args,
		Span: a.Span,
	}
}

// Target 表示注解的目标
type Target struct {
	Kind        TargetKind      // 目标类型
	Name        string          // 类型名
	PackageName string          // 包名
	FilePath    string          // 文件路径
	Span        projection.Span // 类型名所在位置

	// AST 节点（可选，用于深度解析）
	Node ast.Node
}

// AnnotatedTarget 表示带注解的目标
type AnnotatedTarget struct {
	Target      *Target       // 目标信息
	Annotations []*Annotation // 注解列表，保持源码顺序
}

// ScanResult 表示扫描结果
type ScanResult struct {
	// Types 带注解的类型声明，按文件路径和位置排序
	Types []*AnnotatedTarget

	// FileConfigs 文件级配置
	// key: 文件路径
	FileConfigs map[string]*FileConfig

	// Errors 无法解析的文件
	Errors []error
}

// All 返回所有带注解的目标
func (r *ScanResult) All() []*AnnotatedTarget {
	return r.Types
}

// ByAnnotation 按注解名称过滤
func (r *ScanResult) ByAnnotation(name string) []*AnnotatedTarget {
	var result []*AnnotatedTarget
	for _, t := range r.Types {
		if HasAnnotation(t.Annotations, name) {
			result = append(result, t)
		}
	}
	return result
}

// GenerateContext 生成上下文，传递给 Generator
type GenerateContext struct {
	Targets       []*AnnotatedTarget     // 该 Generator 需要处理的目标
	FileConfigs   map[string]*FileConfig // 文件级配置，key: 文件路径
	DefaultOutput string                 // 命令行或配置文件指定的默认输出路径（最低优先级）
	Verbose       bool                   // 详细输出

	Converters        bool // 是否生成 From/New 转换函数
	WarnUnknownFields bool // 引用不存在的字段时是否警告

	Logger *zap.Logger
}

// GetFileConfig 获取指定文件的配置
func (c *GenerateContext) GetFileConfig(filePath string) *FileConfig {
	if c.FileConfigs == nil {
		return nil
	}
	return c.FileConfigs[filePath]
}

// ConvertersFor 文件配置优先，其次为全局配置
func (c *GenerateContext) ConvertersFor(filePath string) bool {
	if fc := c.GetFileConfig(filePath); fc != nil && fc.Converters != nil {
		return *fc.Converters
	}
	return c.Converters
}

// Log 返回日志，未设置时返回 Nop
func (c *GenerateContext) Log() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// GenerateResult 生成结果
// Generator 返回 gg 定义，由聚合器统一处理
type GenerateResult struct {
	// Definitions 是生成的 gg 定义
	// key: 输出文件路径（绝对路径）
	// value: gg.Generator 定义
	Definitions map[string]*gg.Generator

	// Errors 错误列表
	Errors []error

	// Skipped 跳过的数量
	Skipped int
}

// FileConfig 文件级生成配置
// 通过 //go:omitpick: 注释定义
// 示例:
//
//	//go:omitpick: -output `$FILE_dto`
//	//go:omitpick: plugin:pick -output `views` -converters true
type FileConfig struct {
	FilePath string // 文件路径

	// DefaultOutput 默认输出路径（对所有插件生效）
	// 来自: //go:omitpick: -output `xxx`
	DefaultOutput string

	// PluginOutputs 插件特定的输出路径
	// key: 插件名（小写）, value: 输出路径
	// 来自: //go:omitpick: plugin:omit -output `xxx`
	PluginOutputs map[string]string

	// Converters 来自 -converters，nil 表示未设置
	Converters *bool
}

// GetPluginOutput 获取指定插件的输出路径
// 优先返回插件特定配置，其次返回默认配置，最后返回空字符串
func (c *FileConfig) GetPluginOutput(pluginName string) string {
	if c == nil {
		return ""
	}
	if output, ok := c.PluginOutputs[pluginName]; ok {
		return output
	}
	return c.DefaultOutput
}

// NewGenerateResult 创建新的生成结果
func NewGenerateResult() *GenerateResult {
	return &GenerateResult{
		Definitions: make(map[string]*gg.Generator),
	}
}

// AddDefinition 添加 gg 定义
func (r *GenerateResult) AddDefinition(path string, gen *gg.Generator) {
	if r.Definitions == nil {
		r.Definitions = make(map[string]*gg.Generator)
	}
	r.Definitions[path] = gen
}

// AddError 添加错误
func (r *GenerateResult) AddError(err error) {
	r.Errors = append(r.Errors, err)
}

// HasErrors 检查是否有错误
func (r *GenerateResult) HasErrors() bool {
	return len(r.Errors) > 0
}
