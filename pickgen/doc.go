// Package pickgen 实现 @omit 和 @pick 两个生成器
//
// 在结构体的文档注释中书写注解，生成只包含部分字段的新结构体：
//
//	// @omit(NewUser, ID, CreatedAt, derive(Debug, validate.Struct))
//	// @pick(UserName, Name)
//	type User struct {
//		ID        uint64
//		Name      string
//		CreatedAt time.Time
//	}
//
// 生成结果（默认写入 $FILE_proj.go）：
//
//	// @derive(Debug, validate.Struct)
//	type NewUser struct {
//		Name string
//	}
//
//	type UserName struct {
//		Name string
//	}
//
// 参数是位置式的：第一个为新类型名，之后为字段名，最后可以是 derive(...)。
// 字段的注释、tag 原样复制；生成的文件只导入保留字段用到的包。
// 开启 converters 后额外生成 From 方法和 NewXxx 构造函数（泛型类型除外）。
package pickgen
