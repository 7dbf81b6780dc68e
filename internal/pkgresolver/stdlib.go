package pkgresolver

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// StdLib 标准库判断，结果按导入路径缓存
type StdLib struct {
	goroot string
	known  sync.Map // importPath → bool
}

// NewStdLib 创建标准库判断器
func NewStdLib() *StdLib {
	goroot := build.Default.GOROOT
	if goroot == "" {
		goroot = os.Getenv("GOROOT")
	}
	return &StdLib{goroot: goroot}
}

// Contains 判断是否是标准库
// 标准库的第一段不含 "."，且目录存在于 $GOROOT/src
func (s *StdLib) Contains(importPath string) bool {
	if importPath == "" {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	if strings.Contains(first, ".") || first == "internal" || strings.Contains(importPath, "/internal/") {
		return false
	}
	if v, ok := s.known.Load(importPath); ok {
		return v.(bool)
	}

	std := false
	if s.goroot != "" {
		info, err := os.Stat(s.Dir(importPath))
		std = err == nil && info.IsDir()
	}
	s.known.Store(importPath, std)
	return std
}

// Dir 返回标准库的磁盘路径
func (s *StdLib) Dir(importPath string) string {
	return filepath.Join(s.goroot, "src", filepath.FromSlash(importPath))
}
