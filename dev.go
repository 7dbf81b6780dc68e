package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/donutnomad/omitpick/internal/utils"
	"github.com/donutnomad/omitpick/plugin"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// devRunner 处理文件变动的核心逻辑
type devRunner struct {
	app      *app
	watcher  *fsnotify.Watcher
	scanner  *plugin.Scanner
	debounce time.Duration
	out      io.Writer
	ctx      context.Context // 用于响应退出信号

	// 生成完成后回调，用于测试
	onGenerate func(pkgDir string, stats *plugin.RunStats, err error)

	// 防抖动相关
	mu          sync.Mutex
	pendingDirs map[string]*time.Timer // key: 包目录路径
	running     map[string]*sync.Mutex // 同一目录的生成串行执行
}

func newDevCmd(a *app) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "dev [路径...]",
		Short: "启动开发模式，监听文件变动自动生成",
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns := args
			if len(patterns) == 0 {
				patterns = []string{"./..."}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.dev(ctx, patterns, debounce, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 5*time.Second, "文件变动后等待多久再生成")
	return cmd
}

// dev 启动开发模式
func (a *app) dev(ctx context.Context, patterns []string, debounce time.Duration, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	runner := a.newDevRunner(ctx, watcher, debounce, out)
	defer runner.stop()

	// 收集并添加监听目录
	dirs, err := collectWatchDirs(patterns)
	if err != nil {
		return fmt.Errorf("收集监听目录失败: %w", err)
	}
	if len(dirs) == 0 {
		return fmt.Errorf("没有找到需要监听的目录")
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("添加监听目录失败 %s: %w", dir, err)
		}
		a.logger.Debug("监听目录", zap.String("dir", dir))
	}

	fmt.Fprintf(out, "开发模式已启动，监听 %d 个目录\n", len(dirs))
	fmt.Fprintln(out, "按 Ctrl+C 退出")
	fmt.Fprintln(out)

	err = runner.watchLoop(ctx)
	fmt.Fprintln(out, "\n正在退出...")
	return err
}

func (a *app) newDevRunner(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, out io.Writer) *devRunner {
	return &devRunner{
		app:         a,
		watcher:     watcher,
		scanner:     plugin.NewScanner(plugin.WithAnnotationFilter(a.registry.Annotations()...)),
		debounce:    debounce,
		out:         out,
		ctx:         ctx,
		pendingDirs: make(map[string]*time.Timer),
		running:     make(map[string]*sync.Mutex),
	}
}

// stop 退出时停止所有待处理的定时器
func (r *devRunner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, timer := range r.pendingDirs {
		timer.Stop()
	}
}

// watchLoop 事件处理循环
func (r *devRunner) watchLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			r.handleEvent(event)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.app.logger.Warn("监听错误", zap.Error(err))
		}
	}
}

// handleEvent 处理文件事件，返回是否触发了生成
func (r *devRunner) handleEvent(event fsnotify.Event) bool {
	log := r.app.logger

	// 只关注 Write 和 Create 事件
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}

	filePath := event.Name

	// 跳过测试文件和生成的文件
	if !plugin.IsSourceFile(filePath) {
		return false
	}

	log.Debug("检测到文件变化", zap.String("file", filePath))

	// 检查文件是否包含注解
	hasAnnotation, err := r.scanner.QuickMatchFile(filePath)
	if err != nil {
		log.Debug("检查注解失败", zap.String("file", filePath), zap.Error(err))
		return false
	}
	if !hasAnnotation {
		log.Debug("跳过文件（无注解）", zap.String("file", filePath))
		return false
	}

	// 检查语法错误，编辑中的文件等下一次保存
	content, err := os.ReadFile(filePath)
	if err != nil {
		return false
	}
	if err := utils.CheckSyntax(filePath, content); err != nil {
		fmt.Fprintf(r.out, "语法错误 %s: %v\n", filePath, err)
		return false
	}

	// 获取包目录并触发防抖动生成
	r.scheduleGenerate(filepath.Dir(filePath))
	return true
}

// scheduleGenerate 防抖动调度生成
func (r *devRunner) scheduleGenerate(pkgDir string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 取消之前的 timer
	if timer, exists := r.pendingDirs[pkgDir]; exists {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(r.debounce, func() {
		// 检查 context 是否已取消
		if r.ctx.Err() != nil {
			return
		}

		lock := r.dirLock(pkgDir)
		lock.Lock()
		r.runGenerate(pkgDir)
		lock.Unlock()

		// 生成期间可能已经调度了新的 timer，只清理自己
		r.mu.Lock()
		if r.pendingDirs[pkgDir] == timer {
			delete(r.pendingDirs, pkgDir)
		}
		r.mu.Unlock()
	})
	r.pendingDirs[pkgDir] = timer
}

// dirLock 返回目录对应的生成锁
func (r *devRunner) dirLock(pkgDir string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.running[pkgDir]
	if !ok {
		lock = &sync.Mutex{}
		r.running[pkgDir] = lock
	}
	return lock
}

// runGenerate 只生成变动的包
func (r *devRunner) runGenerate(pkgDir string) {
	r.app.logger.Debug("触发代码生成", zap.String("dir", pkgDir))

	stats, err := plugin.Run(r.ctx, r.app.runOptions([]string{pkgDir}, r.out))
	if r.onGenerate != nil {
		defer r.onGenerate(pkgDir, stats, err)
	}
	if err != nil {
		fmt.Fprintln(r.out, "生成失败:")
		for _, diag := range plugin.Diagnose(err) {
			fmt.Fprintln(r.out, diag)
		}
		return
	}

	if stats != nil && stats.FileCount > 0 {
		fmt.Fprintf(r.out, "生成完成: %d 个文件 (耗时: %v)\n", stats.FileCount, stats.TotalDuration)
	} else if r.app.cfg.Verbose {
		fmt.Fprintln(r.out, "生成完成: 无文件生成")
	}
}

// collectWatchDirs 收集所有需要监听的目录
func collectWatchDirs(patterns []string) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		recursive := strings.HasSuffix(pattern, "/...")
		baseDir := strings.TrimSuffix(pattern, "/...")

		absDir, err := filepath.Abs(baseDir)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(absDir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			continue
		}

		if !recursive {
			if !seen[absDir] {
				seen[absDir] = true
				dirs = append(dirs, absDir)
			}
			continue
		}

		// 递归收集所有子目录
		err = filepath.Walk(absDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return nil
			}

			// 跳过隐藏目录、vendor 和 testdata
			name := info.Name()
			if path != absDir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
				name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}

			if !seen[path] {
				seen[path] = true
				dirs = append(dirs, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return dirs, nil
}
