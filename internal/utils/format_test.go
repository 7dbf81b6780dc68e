package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSource(t *testing.T) {
	src := []byte("package models\ntype   A struct{ X  int }\n")
	out, err := FormatSource("a.go", src)
	require.NoError(t, err)
	assert.Equal(t, "package models\n\ntype A struct{ X int }\n", string(out))
}

func TestFormatSource_SyntaxError(t *testing.T) {
	_, err := FormatSource("a.go", []byte("package models\ntype A struct{\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "格式化 a.go 失败")
}

func TestCheckSyntax(t *testing.T) {
	assert.NoError(t, CheckSyntax("a.go", []byte("package models\n\nvar x = 1\n")))
	assert.Error(t, CheckSyntax("a.go", []byte("package models\nvar x = \n")))
}

func TestWriteFile_CreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dto", "a.go")
	require.NoError(t, WriteFile(path, []byte("package dto\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "package dto\n", string(data))
}
