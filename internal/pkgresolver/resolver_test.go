package pkgresolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newTestModule 创建一个临时模块：
//
//	example.com/app/model   → package model
//	example.com/app/gg      → package g2（目录名与包名不一致）
func newTestModule(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module example.com/app\n\ngo 1.22\n")
	writeFile(t, filepath.Join(root, "model", "user.go"), "package model\n\ntype User struct{}\n")
	writeFile(t, filepath.Join(root, "gg", "gg.go"), "package g2\n\ntype Type int\n")
	writeFile(t, filepath.Join(root, "gg", "gg_test.go"), "package g2_test\n")
	return root
}

func TestStdLib_Contains(t *testing.T) {
	std := NewStdLib()

	tests := []struct {
		importPath string
		want       bool
	}{
		{"fmt", true},
		{"net/http", true},
		{"encoding/json", true},
		{"time", true},
		{"github.com/samber/lo", false},
		{"gorm.io/datatypes", false},
		{"example.com/app/model", false},
		{"internal/abi", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.importPath, func(t *testing.T) {
			assert.Equal(t, tt.want, std.Contains(tt.importPath))
		})
	}
}

func TestResolver_StdLib(t *testing.T) {
	r := NewResolver("")

	assert.Equal(t, "fmt", r.PackageName("fmt"))
	assert.Equal(t, "http", r.PackageName("net/http"))
	assert.Equal(t, "json", r.PackageName("encoding/json"))
	assert.True(t, r.IsStdLib("time"))
}

func TestResolver_ProjectInternal(t *testing.T) {
	r := NewResolver(newTestModule(t))

	assert.Equal(t, "model", r.PackageName("example.com/app/model"))
	assert.Equal(t, "g2", r.PackageName("example.com/app/gg"), "目录名与包名不一致时读取 package 声明")
}

func TestResolver_ModCache(t *testing.T) {
	cache := t.TempDir()
	t.Setenv("GOMODCACHE", cache)
	writeFile(t, filepath.Join(cache, "github.com", "!xuanwo", "gg@v0.1.0", "gg.go"), "package gg2\n")

	r := NewResolver("")
	assert.Equal(t, "gg2", r.PackageName("github.com/Xuanwo/gg"))
}

func TestResolver_Fallback(t *testing.T) {
	t.Setenv("GOMODCACHE", t.TempDir())
	r := NewResolver("")

	assert.Equal(t, "sprig", r.PackageName("github.com/Masterminds/sprig/v3"))
	assert.Equal(t, "runewidth", r.PackageName("github.com/mattn/go-runewidth"))
	assert.Equal(t, "", r.PackageName(""))
}

func TestResolver_Cache(t *testing.T) {
	root := newTestModule(t)
	r := NewResolver(root)

	assert.Equal(t, "model", r.PackageName("example.com/app/model"))
	assert.Equal(t, 1, r.cache.Len())

	// 删除目录后仍返回缓存结果
	require.NoError(t, os.RemoveAll(filepath.Join(root, "model")))
	assert.Equal(t, "model", r.PackageName("example.com/app/model"))
}

func TestGuessName(t *testing.T) {
	tests := map[string]string{
		"fmt":                             "fmt",
		"github.com/samber/lo":            "lo",
		"github.com/Masterminds/sprig/v3": "sprig",
		"github.com/mattn/go-runewidth":   "runewidth",
		"gopkg.in/yaml.v3":                "yaml",
		"github.com/knadh/koanf/v2":       "koanf",
		"github.com/nats-io/nats.go":      "nats",
		"example.com/some-pkg":            "somepkg",
	}
	for in, want := range tests {
		assert.Equal(t, want, GuessName(in), in)
	}
}

func TestPackageFileReader_ReadPackageName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "doc.go"), "package main\n")
	writeFile(t, filepath.Join(dir, "z.go"), "package tool\n")

	name, err := (&PackageFileReader{}).ReadPackageName(dir)
	require.NoError(t, err)
	assert.Equal(t, "tool", name)

	_, err = (&PackageFileReader{}).ReadPackageName(t.TempDir())
	assert.Error(t, err)
}

func TestReadModulePathAndFindProjectRoot(t *testing.T) {
	root := newTestModule(t)

	path, err := ReadModulePath(root)
	require.NoError(t, err)
	assert.Equal(t, "example.com/app", path)

	found, err := FindProjectRoot(filepath.Join(root, "model"))
	require.NoError(t, err)
	assert.Equal(t, root, found)
}
