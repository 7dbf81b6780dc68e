package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"
)

// FormatSource 格式化生成的代码并整理 import
func FormatSource(filename string, src []byte) ([]byte, error) {
	out, err := imports.Process(filename, src, &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("格式化 %s 失败: %w", filename, err)
	}
	return out, nil
}

// CheckSyntax 只做语法检查，不修改 import
func CheckSyntax(filename string, src []byte) error {
	_, err := imports.Process(filename, src, &imports.Options{
		Comments:   true,
		FormatOnly: true,
	})
	return err
}

// WriteFile 写入文件，目录不存在时自动创建
func WriteFile(filename string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	return os.WriteFile(filename, data, 0o644)
}
