package plugin

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/donutnomad/omitpick/projection"
	"github.com/mattn/go-runewidth"
	"go.uber.org/multierr"
)

// FormatDiagnostic 将错误格式化为带源码行和 ^ 标记的诊断信息
//
//	user.go:3:4: @omit(Name, , extra): 期望 字段名，实际为 ","
//		// @omit(Name, , extra)
//		              ^
//
// src 为错误所在文件的内容，为空或无法定位时只返回错误信息
func FormatDiagnostic(err error, src []byte) string {
	msg := err.Error()
	offset, ok := diagnosticOffset(err)
	if !ok || offset < 0 || offset > len(src) {
		return msg
	}

	start := strings.LastIndexByte(string(src[:offset]), '\n') + 1
	end := len(src)
	if i := strings.IndexByte(string(src[offset:]), '\n'); i >= 0 {
		end = offset + i
	}
	line := strings.TrimRight(string(src[start:end]), "\r")

	var sb strings.Builder
	sb.WriteString(msg)
	sb.WriteString("\n\t")
	sb.WriteString(line)
	sb.WriteString("\n\t")
	sb.WriteString(caretPadding(string(src[start:offset])))
	sb.WriteString("^")
	return sb.String()
}

// Diagnose 展开组合错误，并从磁盘读取源码生成诊断信息
func Diagnose(err error) []string {
	if err == nil {
		return nil
	}
	sources := make(map[string][]byte)
	var result []string
	for _, e := range multierr.Errors(err) {
		var src []byte
		if filename := diagnosticFile(e); filename != "" {
			if cached, ok := sources[filename]; ok {
				src = cached
			} else {
				src, _ = os.ReadFile(filename)
				sources[filename] = src
			}
		}
		result = append(result, FormatDiagnostic(e, src))
	}
	return result
}

// caretPadding 保持制表符，其他字符按显示宽度替换为空格
func caretPadding(prefix string) string {
	var sb strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			sb.WriteByte('\t')
			continue
		}
		sb.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return sb.String()
}

func diagnosticOffset(err error) (int, bool) {
	var gerr *projection.GrammarError
	if errors.As(err, &gerr) && gerr.Span.IsValid() {
		return gerr.Span.Offset + len("@"+gerr.Directive) + gerr.Offset, true
	}
	var serr *projection.StructuralError
	if errors.As(err, &serr) && serr.Span.IsValid() {
		return serr.Span.Offset, true
	}
	return 0, false
}

func diagnosticFile(err error) string {
	var gerr *projection.GrammarError
	if errors.As(err, &gerr) {
		return gerr.Span.Filename
	}
	var serr *projection.StructuralError
	if errors.As(err, &serr) {
		return serr.Span.Filename
	}
	return ""
}

// DiagnosticSummary 生成错误数量的摘要
func DiagnosticSummary(err error) string {
	n := len(multierr.Errors(err))
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("生成过程中出现 %d 个错误", n)
}
