package structparse

import "github.com/donutnomad/omitpick/projection"

// ImportInfo 导入信息
type ImportInfo struct {
	Alias       string // 源文件中使用的限定名（显式别名或真实包名）
	PackageName string // 真实包名（从 package 声明读取）
	ImportPath  string // 完整导入路径
}

// RecordInfo 一个带注解的类型声明
type RecordInfo struct {
	Record *projection.Record

	// FieldImports 每个字段的类型表达式引用的导入，key 为字段名
	FieldImports map[string][]ImportInfo
}

// ImportsFor 返回指定字段集合需要的导入，按导入路径去重并保持首次出现的顺序
func (r *RecordInfo) ImportsFor(fields []projection.Field) []ImportInfo {
	seen := make(map[string]bool)
	var result []ImportInfo
	for _, f := range fields {
		for _, imp := range r.FieldImports[f.Name] {
			if seen[imp.ImportPath] {
				continue
			}
			seen[imp.ImportPath] = true
			result = append(result, imp)
		}
	}
	return result
}

// IsGeneric 是否为泛型声明
func (r *RecordInfo) IsGeneric() bool {
	return r.Record.TypeParams != ""
}

// FileInfo 一个源文件的解析结果
type FileInfo struct {
	Filename    string
	PackageName string
	Imports     []ImportInfo
	Records     []*RecordInfo // 带注解的类型声明，保持源码顺序
}

// Lookup 按类型名查找
func (f *FileInfo) Lookup(name string) *RecordInfo {
	for _, r := range f.Records {
		if r.Record.Name == name {
			return r
		}
	}
	return nil
}
