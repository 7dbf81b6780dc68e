// Package config 加载 omitpick 的运行配置
//
// 优先级（从高到低）：命令行参数 > 环境变量 OMITPICK_* > omitpick.yaml > 默认值
package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileNames 配置文件名，按顺序查找
var FileNames = []string{"omitpick.yaml", "omitpick.yml"}

// EnvPrefix 环境变量前缀
const EnvPrefix = "OMITPICK_"

// Config 运行配置
type Config struct {
	Output            string `koanf:"output"`              // 默认输出路径，支持 $FILE/$PACKAGE 和模板
	NoOutput          bool   `koanf:"no_output"`           // 忽略 output，使用生成器默认输出
	Async             bool   `koanf:"async"`               // 并发执行生成器
	Workers           int    `koanf:"workers"`             // 扫描并发数，0 为 CPU 核数
	Verbose           bool   `koanf:"verbose"`             // 详细输出
	Converters        bool   `koanf:"converters"`          // 生成 From/New 转换函数
	WarnUnknownFields bool   `koanf:"warn_unknown_fields"` // 引用不存在的字段时警告
	LogLevel          string `koanf:"log_level"`           // debug/info/warn/error

	// File 实际加载的配置文件，未使用时为空
	File string `koanf:"-"`
}

// Defaults 默认配置
func Defaults() map[string]any {
	return map[string]any{
		"output":              "",
		"no_output":           false,
		"async":               true,
		"workers":             0,
		"verbose":             false,
		"converters":          false,
		"warn_unknown_fields": true,
		"log_level":           "warn",
	}
}

// OutputPath 返回传给生成器的默认输出路径
func (c *Config) OutputPath() string {
	if c.NoOutput {
		return ""
	}
	return c.Output
}

// Level 解析日志级别，verbose 时至少为 debug
func (c *Config) Level() (zapcore.Level, error) {
	if c.Verbose {
		return zapcore.DebugLevel, nil
	}
	if c.LogLevel == "" {
		return zapcore.WarnLevel, nil
	}
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return level, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Logger 创建输出到 stderr 的控制台日志
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := c.Level()
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core), nil
}
