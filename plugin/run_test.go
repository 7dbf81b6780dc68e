package plugin

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/donutnomad/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// emitType 返回一个输出单个类型定义的 Generate 实现
func emitType(t *testing.T, output, decl string) func(*GenerateContext) (*GenerateResult, error) {
	return func(ctx *GenerateContext) (*GenerateResult, error) {
		require.NotEmpty(t, ctx.Targets)
		gen := gg.New()
		gen.SetPackage(ctx.Targets[0].Target.PackageName)
		gen.Body().AddLine()
		gen.Body().AddString(decl)
		result := NewGenerateResult()
		result.AddDefinition(output, gen)
		return result, nil
	}
}

func runFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"user.go": "package models\n\n// @alpha(A)\n// @beta(B)\ntype User struct{}\n",
	})
	return dir
}

func TestRun_MergesDefinitionsByPriority(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := runFixture(t)
	output := filepath.Join(dir, "user_proj.go")

	beta := newTestGenerator(ctrl, "beta", 20, AllTargets, "beta")
	beta.EXPECT().Generate(gomock.Any()).DoAndReturn(emitType(t, output, "type B struct{}"))
	alpha := newTestGenerator(ctrl, "alpha", 10, AllTargets, "alpha")
	alpha.EXPECT().Generate(gomock.Any()).DoAndReturn(func(ctx *GenerateContext) (*GenerateResult, error) {
		assert.Equal(t, "$PACKAGE_out", ctx.DefaultOutput)
		assert.True(t, ctx.Converters)
		assert.True(t, ctx.WarnUnknownFields)
		require.Len(t, ctx.Targets, 1)
		assert.Equal(t, "User", ctx.Targets[0].Target.Name)
		return emitType(t, output, "type A struct{}")(ctx)
	})

	registry := NewRegistry()
	registry.MustRegister(beta)
	registry.MustRegister(alpha)

	var stdout bytes.Buffer
	stats, err := Run(context.Background(), &RunOptions{
		Registry:          registry,
		Patterns:          []string{dir},
		Output:            "$PACKAGE_out",
		Converters:        true,
		WarnUnknownFields: true,
		Async:             true,
		Stdout:            &stdout,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TargetCount)
	assert.Equal(t, 1, stats.FileCount)
	assert.Contains(t, stdout.String(), "生成文件: ")

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	src := string(content)

	assert.Contains(t, src, GeneratedHeader)
	assert.Contains(t, src, "package models")
	alphaSep := strings.Index(src, "// ================ alpha ================")
	betaSep := strings.Index(src, "// ================ beta ================")
	require.GreaterOrEqual(t, alphaSep, 0)
	assert.Less(t, alphaSep, strings.Index(src, "type A struct{}"))
	assert.Less(t, strings.Index(src, "type A struct{}"), betaSep)
	assert.Less(t, betaSep, strings.Index(src, "type B struct{}"))
}

func TestRun_SingleGeneratorHasNoSeparator(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := runFixture(t)
	output := filepath.Join(dir, "user_proj.go")

	alpha := newTestGenerator(ctrl, "alpha", 10, AllTargets, "alpha")
	alpha.EXPECT().Generate(gomock.Any()).DoAndReturn(emitType(t, output, "type A struct{}"))
	registry := NewRegistry()
	registry.MustRegister(alpha)

	_, err := Run(context.Background(), &RunOptions{Registry: registry, Patterns: []string{dir}, Stdout: io.Discard})
	require.NoError(t, err)

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "================")

	// 内容未变化时不重写文件
	alpha.EXPECT().Generate(gomock.Any()).DoAndReturn(emitType(t, output, "type A struct{}"))
	stats, err := Run(context.Background(), &RunOptions{Registry: registry, Patterns: []string{dir}, Stdout: io.Discard})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Unchanged)
	assert.Equal(t, 0, stats.FileCount)
}

func TestRun_DryRunAndCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := runFixture(t)
	output := filepath.Join(dir, "user_proj.go")

	alpha := newTestGenerator(ctrl, "alpha", 10, AllTargets, "alpha")
	alpha.EXPECT().Generate(gomock.Any()).DoAndReturn(emitType(t, output, "type A struct{}")).Times(2)
	registry := NewRegistry()
	registry.MustRegister(alpha)

	var stdout bytes.Buffer
	stats, err := Run(context.Background(), &RunOptions{Registry: registry, Patterns: []string{dir}, DryRun: true, Stdout: &stdout})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FileCount)
	assert.Contains(t, stdout.String(), "将生成文件: ")
	assert.NoFileExists(t, output)

	stats, err = Run(context.Background(), &RunOptions{Registry: registry, Patterns: []string{dir}, Check: true, Stdout: io.Discard})
	require.NoError(t, err)
	require.Len(t, stats.Stale, 1)
	assert.Equal(t, output, stats.Stale[0].Path)
	assert.Contains(t, stats.Stale[0].Diff, "+type A struct{}")
	assert.Contains(t, stats.Stale[0].Diff, "(generated)")
	assert.NoFileExists(t, output)
}

func TestRun_GeneratorErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := runFixture(t)
	output := filepath.Join(dir, "user_proj.go")

	alpha := newTestGenerator(ctrl, "alpha", 10, AllTargets, "alpha")
	alpha.EXPECT().Generate(gomock.Any()).Return(nil, errors.New("boom"))
	beta := newTestGenerator(ctrl, "beta", 20, AllTargets, "beta")
	beta.EXPECT().Generate(gomock.Any()).DoAndReturn(func(ctx *GenerateContext) (*GenerateResult, error) {
		result, _ := emitType(t, output, "type B struct{}")(ctx)
		result.AddError(errors.New("部分失败"))
		return result, nil
	})

	registry := NewRegistry()
	registry.MustRegister(alpha)
	registry.MustRegister(beta)

	_, err := Run(context.Background(), &RunOptions{Registry: registry, Patterns: []string{dir}, Stdout: io.Discard})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "生成器 alpha 执行失败: boom")
	assert.Contains(t, err.Error(), "部分失败")

	// 其他生成器的结果仍然写入
	assert.FileExists(t, output)
}

func TestRun_UnsupportedTargetIsNotDispatched(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"count.go": "package models\n\n// @alpha(A)\ntype Count int\n",
	})

	// 没有 Generate 期望，被调用时测试失败
	alpha := newTestGenerator(ctrl, "alpha", 10, []TargetKind{TargetStruct}, "alpha")
	registry := NewRegistry()
	registry.MustRegister(alpha)

	stats, err := Run(context.Background(), &RunOptions{Registry: registry, Patterns: []string{dir}, Stdout: io.Discard})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TargetCount)
	assert.Equal(t, 0, stats.FileCount)
}

func TestRun_NoTargets(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.go": "package a\n"})

	registry := NewRegistry()
	registry.MustRegister(newTestGenerator(ctrl, "alpha", 10, AllTargets, "alpha"))

	stats, err := Run(context.Background(), &RunOptions{Registry: registry, Patterns: []string{dir}, Stdout: io.Discard})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TargetCount)
}

func TestRun_NoGenerators(t *testing.T) {
	_, err := Run(context.Background(), &RunOptions{Registry: NewRegistry(), Patterns: []string{t.TempDir()}})
	require.Error(t, err)
}

func TestGetOutputPath(t *testing.T) {
	target := &Target{Name: "UserAccount", PackageName: "models", FilePath: "/src/models/user.go"}

	tests := []struct {
		name    string
		config  *FileConfig
		plugin  string
		cmd     string
		want    string
		wantErr bool
	}{
		{name: "default", want: "/src/models/user_proj.go"},
		{name: "command line", cmd: "dto", want: "/src/models/dto.go"},
		{name: "file default beats command line", config: &FileConfig{DefaultOutput: "$PACKAGE_view"}, cmd: "dto", want: "/src/models/models_view.go"},
		{
			name:   "plugin specific",
			config: &FileConfig{DefaultOutput: "x", PluginOutputs: map[string]string{"omit": "views/{{ .Type | gosnake }}"}},
			plugin: "Omit",
			want:   "/src/models/views/user_account.go",
		},
		{name: "other plugin falls back", config: &FileConfig{DefaultOutput: "x", PluginOutputs: map[string]string{"pick": "y"}}, plugin: "omit", want: "/src/models/x.go"},
		{name: "sprig", cmd: "{{ .File | upper }}_{{ .Package }}", want: "/src/models/USER_models.go"},
		{name: "absolute", cmd: "/tmp/out.go", want: "/tmp/out.go"},
		{name: "invalid template", cmd: "{{ .Nope", wantErr: true},
		{name: "unknown field", cmd: "{{ .Nope }}", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := tt.plugin
			if plugin == "" {
				plugin = "omit"
			}
			got, err := GetOutputPath(target, "$FILE_proj.go", tt.config, plugin, tt.cmd)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetOutputPath_GoSnake(t *testing.T) {
	tests := map[string]string{
		"UserIDs":    "/src/models/user_ids_view.go",
		"HTTPServer": "/src/models/http_server_view.go",
		"OrderV2":    "/src/models/order_v2_view.go",
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			target := &Target{Name: name, PackageName: "models", FilePath: "/src/models/user.go"}
			got, err := GetOutputPath(target, "$FILE_proj.go", nil, "pick", "{{ .Type | gosnake }}_view")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}
