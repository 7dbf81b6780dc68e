package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/donutnomad/omitpick/projection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const diagSource = "package x\n\n// @omit(Name, , extra)\ntype T struct{}\n"

func diagGrammarError(filename string) *projection.GrammarError {
	return &projection.GrammarError{
		Directive: "omit",
		Args:      "(Name, , extra)",
		Offset:    7,
		Msg:       `期望 字段名，实际为 ","`,
		Span:      projection.Span{Filename: filename, Line: 3, Column: 4, Offset: 14, End: 34},
	}
}

func TestFormatDiagnostic_GrammarError(t *testing.T) {
	err := diagGrammarError("user.go")
	got := FormatDiagnostic(err, []byte(diagSource))

	want := "user.go:3:4: @omit(Name, , extra): 期望 字段名，实际为 \",\"\n" +
		"\t// @omit(Name, , extra)\n" +
		"\t" + strings.Repeat(" ", 15) + "^"
	assert.Equal(t, want, got)
}

func TestFormatDiagnostic_WideCharacters(t *testing.T) {
	src := "package x\n\n// 用户 @omit(A,,)\ntype T struct{}\n"
	at := strings.Index(src, "@omit")
	err := &projection.GrammarError{
		Directive: "omit",
		Args:      "(A,,)",
		Offset:    3,
		Msg:       "期望 字段名",
		Span:      projection.Span{Filename: "x.go", Line: 3, Column: 11, Offset: at},
	}

	lines := strings.Split(FormatDiagnostic(err, []byte(src)), "\n")
	require.Len(t, lines, 3)
	// "// " 3 列 + "用户 " 5 列 + "@omit(A," 8 列
	assert.Equal(t, "\t"+strings.Repeat(" ", 16)+"^", lines[2])
}

func TestFormatDiagnostic_StructuralError(t *testing.T) {
	src := "package x\n\n\t// @omit(A)\ntype Count int\n"
	err := &projection.StructuralError{
		Record:    "Count",
		Kind:      projection.KindDefined,
		Directive: "omit",
		Span:      projection.Span{Filename: "x.go", Line: 4, Column: 6, Offset: strings.Index(src, "Count")},
	}

	got := FormatDiagnostic(err, []byte(src))
	assert.True(t, strings.HasPrefix(got, "x.go:4:6: @omit 只支持 struct，Count 是 defined type\n"))
	assert.True(t, strings.HasSuffix(got, "\ttype Count int\n\t     ^"))
}

func TestFormatDiagnostic_NoSource(t *testing.T) {
	err := diagGrammarError("user.go")
	assert.Equal(t, err.Error(), FormatDiagnostic(err, nil))

	plain := errors.New("写入失败")
	assert.Equal(t, "写入失败", FormatDiagnostic(plain, []byte(diagSource)))
}

func TestDiagnose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.go")
	require.NoError(t, os.WriteFile(path, []byte(diagSource), 0o644))

	err := multierr.Combine(diagGrammarError(path), errors.New("其他错误"))
	got := Diagnose(err)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "\t// @omit(Name, , extra)\n")
	assert.Equal(t, "其他错误", got[1])

	assert.Nil(t, Diagnose(nil))
	assert.Equal(t, "生成过程中出现 2 个错误", DiagnosticSummary(err))
	assert.Empty(t, DiagnosticSummary(nil))
}
