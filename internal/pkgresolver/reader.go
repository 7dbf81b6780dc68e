package pkgresolver

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
)

// PackageFileReader 从磁盘路径读取真实包名
type PackageFileReader struct{}

// ReadPackageName 读取指定目录的 package 声明
// 跳过测试文件以及 package main / documentation 这类辅助文件
func (r *PackageFileReader) ReadPackageName(pkgDir string) (string, error) {
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return "", fmt.Errorf("读取目录失败 %s: %w", pkgDir, err)
	}

	var fallback string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}

		pkgName, err := r.parsePackageName(filepath.Join(pkgDir, name))
		if err != nil {
			continue
		}
		switch pkgName {
		case "main", "documentation":
			if fallback == "" {
				fallback = pkgName
			}
		default:
			return pkgName, nil
		}
	}

	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("目录 %s 中没有找到 Go 源文件", pkgDir)
}

// parsePackageName 从单个文件解析包名
func (r *PackageFileReader) parsePackageName(filename string) (string, error) {
	fset := token.NewFileSet()

	// 只解析包声明，不需要完整解析
	f, err := parser.ParseFile(fset, filename, nil, parser.PackageClauseOnly)
	if err != nil {
		return "", fmt.Errorf("解析文件 %s 失败: %w", filename, err)
	}
	return f.Name.Name, nil
}
