// Package projection 实现 @omit / @pick 注解的解析与结构体投影。
//
// # 注解语法
//
//	@omit(Target, Field1, Field2, derive(Cap1, pkg.Cap2))
//	@pick(Target, Field1)
//	@omit(Target,)
//
// Target 为生成的新结构体名称；字段列表可以为空；derive(...) 可选，且必须位于最后。
// derive 中的能力注解原样输出为一行 // @derive(...)，不做解析。
//
// # 处理流程
//
//  1. Collect: 按注解名筛选原始注解
//  2. ParseDirective: 解析参数，错误定位到注解所在位置
//  3. Project: 按 omit/pick 规则过滤字段，保持原有顺序
//  4. Synthesize: 生成新的结构体声明
//
// Transform 按单个模式执行上述流程，命令行中的 omit、pick 生成器各自调用它。
// 作为库使用时，TransformAll 一次处理两种注解，声明按注解在源码中的顺序返回。
//
// 整个过程没有 I/O 和全局状态，可以并发调用。
package projection
