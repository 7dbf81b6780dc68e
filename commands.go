package main

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/davecgh/go-spew/spew"
	"github.com/donutnomad/omitpick/pickgen"
	"github.com/donutnomad/omitpick/plugin"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// staleError check 发现过期文件
type staleError struct {
	count int
}

func (e *staleError) Error() string {
	return fmt.Sprintf("%d 个文件需要重新生成", e.count)
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [路径...]",
		Short: "检查生成的文件是否最新，不写入文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			opts := a.runOptions(args, out)
			opts.Check = true
			stats, err := plugin.Run(cmd.Context(), opts)
			if err != nil {
				return reportErrors(cmd.ErrOrStderr(), err)
			}

			for _, stale := range stats.Stale {
				fmt.Fprint(out, stale.Diff)
			}
			if len(stats.Stale) > 0 {
				return &staleError{count: len(stats.Stale)}
			}
			if a.cfg.Verbose {
				fmt.Fprintf(out, "检查通过: %d 个文件是最新的\n", stats.Unchanged)
			}
			return nil
		},
	}
}

func newInspectCmd(a *app) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "inspect [路径...]",
		Short: "以 JSON 输出注解的解析结果",
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns := args
			if len(patterns) == 0 {
				patterns = []string{"./..."}
			}

			scanner := plugin.NewScanner(
				plugin.WithAnnotationFilter(a.registry.Annotations()...),
				plugin.WithWorkers(a.cfg.Workers),
				plugin.WithScannerLogger(a.logger),
			)
			result, err := scanner.Scan(cmd.Context(), patterns...)
			if err != nil {
				return fmt.Errorf("扫描失败: %w", err)
			}

			reports := pickgen.Inspect(result.All())
			data, err := sonic.ConfigStd.MarshalIndent(reports, "", "  ")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, string(data))

			if dump && a.cfg.Verbose {
				for _, at := range result.All() {
					fmt.Fprintf(cmd.ErrOrStderr(), "[inspect] %s", spew.Sdump(at.Annotations))
				}
			}

			if len(result.Errors) > 0 {
				return reportErrors(cmd.ErrOrStderr(), multierr.Combine(result.Errors...))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "详细模式下同时输出注解的原始结构")
	return cmd
}
