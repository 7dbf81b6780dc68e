package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/donutnomad/omitpick/internal/config"
	"github.com/donutnomad/omitpick/pickgen"
	"github.com/donutnomad/omitpick/plugin"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	// 集中注册所有生成器
	plugin.MustRegister(pickgen.NewOmitGenerator())
	plugin.MustRegister(pickgen.NewPickGenerator())
}

func main() {
	if err := newRootCmd(plugin.Global()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// app 命令共享的状态，在 PersistentPreRunE 中初始化
type app struct {
	registry *plugin.Registry
	cfgFile  string
	cfg      *config.Config
	logger   *zap.Logger
}

func newRootCmd(registry *plugin.Registry) *cobra.Command {
	a := &app{registry: registry}

	root := &cobra.Command{
		Use:   "omitpick [路径...]",
		Short: "omitpick - 根据 @omit/@pick 注解生成结构体",
		Long:  longHelp(registry),
		Args:  cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.init(cmd)
		},
		// 默认命令是 gen
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGen(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "配置文件（默认向上查找 omitpick.yaml）")
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newGenCmd(a),
		newDevCmd(a),
		newCheckCmd(a),
		newInspectCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger

	if len(a.registry.Generators()) == 0 {
		return errors.New("没有已注册的生成器")
	}
	if cfg.File != "" {
		logger.Debug("使用配置文件", zap.String("file", cfg.File))
	}
	return nil
}

func newGenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "gen [路径...]",
		Short: "执行代码生成（默认）",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGen(cmd, args)
		},
	}
}

// runOptions 根据配置构建运行选项
func (a *app) runOptions(patterns []string, out io.Writer) *plugin.RunOptions {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	return &plugin.RunOptions{
		Registry:          a.registry,
		Patterns:          patterns,
		Verbose:           a.cfg.Verbose,
		Output:            a.cfg.OutputPath(),
		Async:             a.cfg.Async,
		Workers:           a.cfg.Workers,
		Converters:        a.cfg.Converters,
		WarnUnknownFields: a.cfg.WarnUnknownFields,
		Logger:            a.logger,
		Stdout:            out,
	}
}

func (a *app) runGen(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if a.cfg.Verbose {
		printGenerators(out, a.registry)
	}

	stats, err := plugin.Run(cmd.Context(), a.runOptions(args, out))
	if err != nil {
		return reportErrors(cmd.ErrOrStderr(), err)
	}

	// 输出统计信息
	if stats != nil && (stats.FileCount > 0 || a.cfg.Verbose) {
		fmt.Fprintf(out, "\n统计: 扫描 %d 个目标, 生成 %d 个文件\n", stats.TargetCount, stats.FileCount)
		fmt.Fprintf(out, "耗时: 扫描 %v, 生成 %v, 总计 %v\n", stats.ScanDuration, stats.GenerateDuration, stats.TotalDuration)
	}
	return nil
}

// reportErrors 输出每个错误的诊断信息，返回汇总错误
func reportErrors(w io.Writer, err error) error {
	for _, diag := range plugin.Diagnose(err) {
		fmt.Fprintln(w, diag)
	}
	return errors.New(plugin.DiagnosticSummary(err))
}

func printGenerators(w io.Writer, registry *plugin.Registry) {
	fmt.Fprintf(w, "已注册 %d 个生成器:\n", len(registry.Generators()))
	for _, gen := range registry.Generators() {
		anns := lo.Map(gen.Annotations(), func(item string, _ int) string {
			return "@" + item
		})
		fmt.Fprintf(w, "  - %s (%s)\n", gen.Name(), strings.Join(anns, ","))
	}
	fmt.Fprintln(w)
}

func longHelp(registry *plugin.Registry) string {
	var sb strings.Builder
	sb.WriteString(`omitpick 扫描结构体文档注释中的 @omit/@pick 注解，生成只包含部分字段的新结构体。

路径:
  支持 Go 包路径模式，如:
    ./...          递归扫描当前目录及子目录（默认）
    ./models/...   递归扫描 models 目录
    ./models       只扫描 models 目录
`)
	if len(registry.Generators()) > 0 {
		sb.WriteString("\n支持的注解:\n")
		sb.WriteString(plugin.FormatHelpText(registry))
	}
	sb.WriteString(`模板变量:
  $FILE     - 源文件名（不含 .go 后缀）
  $PACKAGE  - 包名
  {{ .Type | gosnake }} 等 Go 模板（支持 sprig 函数）

示例:
  omitpick                          扫描当前目录（默认 ./...）
  omitpick -v ./models/...          详细模式扫描 models 目录
  omitpick --output '$FILE_dto'     指定输出文件名
  omitpick check ./...              检查生成的文件是否最新
  omitpick inspect ./models         以 JSON 输出注解解析结果
  omitpick dev ./...                开发模式，监听文件变动`)
	return sb.String()
}
