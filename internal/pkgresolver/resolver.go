package pkgresolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// Resolver 将导入路径解析为真实包名
//
// 示例：
//
//	"fmt" → "fmt"
//	"net/http" → "http"
//	"github.com/samber/lo" → "lo"
//	"gopkg.in/yaml.v3" → "yaml"
//	"example.com/x/gg" → "g2" (如果 package 声明是 g2)
type Resolver struct {
	cache      *Cache
	stdLib     *StdLib
	reader     *PackageFileReader
	root       string // 项目根目录（包含 go.mod）
	modulePath string
	modCache   string
}

// NewResolver 创建解析器，projectRoot 为空时只能解析标准库和模块缓存中的包
func NewResolver(projectRoot string) *Resolver {
	r := &Resolver{
		cache:    NewCache(),
		stdLib:   NewStdLib(),
		reader:   &PackageFileReader{},
		root:     projectRoot,
		modCache: modCacheDir(),
	}
	if projectRoot != "" {
		r.modulePath, _ = ReadModulePath(projectRoot)
	}
	return r
}

// PackageName 获取导入路径对应的真实包名，无法从磁盘读取时按路径推断
func (r *Resolver) PackageName(importPath string) string {
	if importPath == "" {
		return ""
	}
	if name, ok := r.cache.Get(importPath); ok {
		return name
	}

	name := GuessName(importPath)
	if dir, err := r.resolveDir(importPath); err == nil {
		if pkgName, err := r.reader.ReadPackageName(dir); err == nil {
			name = pkgName
		}
	}

	r.cache.Set(importPath, name)
	return name
}

// IsStdLib 判断是否是标准库
func (r *Resolver) IsStdLib(importPath string) bool {
	return r.stdLib.Contains(importPath)
}

// resolveDir 将导入路径解析为磁盘路径
func (r *Resolver) resolveDir(importPath string) (string, error) {
	if r.stdLib.Contains(importPath) {
		return r.stdLib.Dir(importPath), nil
	}

	// 项目内部包
	if r.modulePath != "" {
		if importPath == r.modulePath {
			return r.root, nil
		}
		if rel, ok := strings.CutPrefix(importPath, r.modulePath+"/"); ok {
			return filepath.Join(r.root, filepath.FromSlash(rel)), nil
		}
	}

	return r.findInModCache(importPath)
}

// findInModCache 在 GOMODCACHE 中查找包
func (r *Resolver) findInModCache(importPath string) (string, error) {
	if r.modCache == "" {
		return "", fmt.Errorf("未找到第三方包 %s", importPath)
	}

	parts := strings.Split(importPath, "/")
	for i := len(parts); i >= 1; i-- {
		modulePath := strings.Join(parts[:i], "/")
		escaped, err := module.EscapePath(modulePath)
		if err != nil {
			continue
		}

		matches, err := filepath.Glob(filepath.Join(r.modCache, filepath.FromSlash(escaped)+"@*"))
		if err != nil || len(matches) == 0 {
			continue
		}

		// 按字典序最后一个通常版本号较高
		dir := matches[len(matches)-1]
		if i < len(parts) {
			dir = filepath.Join(dir, filepath.FromSlash(strings.Join(parts[i:], "/")))
		}
		if _, err := os.Stat(dir); err == nil {
			return dir, nil
		}
	}

	return "", fmt.Errorf("未找到第三方包 %s", importPath)
}

// ReadModulePath 从 go.mod 读取模块路径
func ReadModulePath(projectRoot string) (string, error) {
	content, err := os.ReadFile(filepath.Join(projectRoot, "go.mod"))
	if err != nil {
		return "", err
	}
	path := modfile.ModulePath(content)
	if path == "" {
		return "", fmt.Errorf("未在 go.mod 中找到模块名称")
	}
	return path, nil
}

// FindProjectRoot 从 dir 向上查找包含 go.mod 的目录
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("未找到 go.mod")
		}
		dir = parent
	}
}

// GuessName 按导入路径推断包名
//
//	github.com/Masterminds/sprig/v3 → sprig
//	github.com/mattn/go-runewidth   → runewidth
//	gopkg.in/yaml.v3                → yaml
func GuessName(importPath string) string {
	parts := strings.Split(importPath, "/")
	name := parts[len(parts)-1]
	if len(parts) > 1 && isMajorVersion(name) {
		name = parts[len(parts)-2]
	}
	if i := strings.Index(name, ".v"); i > 0 && isMajorVersion(name[i+1:]) {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "go-")
	name = strings.TrimSuffix(name, "-go")
	name = strings.TrimSuffix(name, ".go")
	name = strings.NewReplacer("-", "", ".", "").Replace(name)
	return name
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func modCacheDir() string {
	if dir := os.Getenv("GOMODCACHE"); dir != "" {
		return dir
	}
	goPath := os.Getenv("GOPATH")
	if goPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		goPath = filepath.Join(home, "go")
	}
	// GOPATH 可能包含多个路径
	goPath = filepath.SplitList(goPath)[0]
	return filepath.Join(goPath, "pkg", "mod")
}
