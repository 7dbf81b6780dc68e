// Package structparse 将源文件中带注解的类型声明转换为 projection.Record。
//
// 字段的类型、标签和注释保留源码原文，不做类型检查；
// 同时记录每个字段类型引用的导入，生成文件时只导入被保留字段需要的包。
//
//	info, err := structparse.ParseFile("user.go", src)
//	for _, r := range info.Records {
//	    decls, err := projection.TransformAll(r.Record)
//	}
package structparse
