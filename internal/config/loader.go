package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// maxUpwardSearchLevels 向上查找配置文件的最大层数
const maxUpwardSearchLevels = 10

// Loader 配置加载器
type Loader struct {
	// File 显式指定的配置文件，为空时从 Dir 向上查找
	File string
	// Dir 查找起点，为空时使用当前目录
	Dir string
	// Flags 命令行参数，只使用显式设置的参数
	Flags *pflag.FlagSet
	// Environ 环境变量，为 nil 时读取进程环境
	Environ []string
}

// Load 使用当前目录和进程环境加载配置
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return (&Loader{File: cfgFile, Flags: flags}).Load()
}

// Load 按 默认值 → 配置文件 → 环境变量 → 命令行 的顺序加载
func (l *Loader) Load() (*Config, error) {
	k := koanf.New(".")

	// 1. 默认值
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("加载默认配置失败: %w", err)
	}

	// 2. 配置文件
	cfgFile := l.File
	if cfgFile == "" {
		dir := l.Dir
		if dir == "" {
			dir, _ = os.Getwd()
		}
		cfgFile = FindFile(dir)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", cfgFile, err)
		}
	}

	// 3. 环境变量 OMITPICK_WARN_UNKNOWN_FIELDS -> warn_unknown_fields
	if err := k.Load(l.envProvider(), nil); err != nil {
		return nil, fmt.Errorf("加载环境变量失败: %w", err)
	}

	// 4. 命令行参数
	if l.Flags != nil {
		provider := posflag.ProviderWithFlag(l.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(l.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("加载命令行参数失败: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.File = cfgFile

	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers 不能为负数: %d", cfg.Workers)
	}
	return &cfg, nil
}

func (l *Loader) envProvider() koanf.Provider {
	transform := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}
	if l.Environ == nil {
		return env.Provider(EnvPrefix, ".", transform)
	}

	// 使用指定的环境变量
	values := make(map[string]any)
	for _, kv := range l.Environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		values[transform(key)] = value
	}
	return confmap.Provider(values, ".")
}

// FindFile 从 dir 向上查找配置文件，未找到时返回空字符串
func FindFile(dir string) string {
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// BindFlags 注册与配置项对应的命令行参数
func BindFlags(flags *pflag.FlagSet) {
	defaults := Defaults()
	flags.String("output", defaults["output"].(string), "默认输出路径（支持 $FILE, $PACKAGE 和 Go 模板）")
	flags.Bool("no-output", defaults["no_output"].(bool), "忽略 output 配置，使用生成器默认输出 $FILE_proj.go")
	flags.Bool("async", defaults["async"].(bool), "并发执行生成器")
	flags.Int("workers", defaults["workers"].(int), "扫描并发数（0 为 CPU 核数）")
	flags.BoolP("verbose", "v", defaults["verbose"].(bool), "详细输出")
	flags.Bool("converters", defaults["converters"].(bool), "同时生成 From 方法和 NewXxx 构造函数")
	flags.Bool("warn-unknown-fields", defaults["warn_unknown_fields"].(bool), "引用不存在的字段时输出警告")
	flags.String("log-level", defaults["log_level"].(string), "日志级别（debug|info|warn|error）")
}
