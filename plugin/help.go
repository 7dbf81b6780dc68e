package plugin

import (
	"fmt"
	"strings"
)

// FormatHelpText 为所有注册的生成器生成帮助文本
func FormatHelpText(registry *Registry) string {
	generators := registry.Generators()
	if len(generators) == 0 {
		return "  (暂无已注册的生成器)\n"
	}

	var sb strings.Builder

	for _, gen := range generators {
		annotations := gen.Annotations()
		if len(annotations) == 0 {
			continue
		}

		// 获取主注解名
		mainAnnotation := annotations[0]

		sb.WriteString(fmt.Sprintf("  @%s - %s\n", mainAnnotation, gen.Name()))
		if syntax := gen.Syntax(); syntax != "" {
			sb.WriteString("    语法:\n")
			for _, line := range strings.Split(strings.TrimSpace(syntax), "\n") {
				sb.WriteString("      " + line + "\n")
			}
		}

		sb.WriteString("    输出:\n")
		sb.WriteString("      默认 $FILE_proj.go，可用 //go:omitpick: -output 或 plugin:" + gen.Name() + " -output 修改\n")

		sb.WriteString("    示例:\n")
		sb.WriteString(fmt.Sprintf("      // @%s(UserView, ID, Name)\n", mainAnnotation))
		sb.WriteString(fmt.Sprintf("      // @%s(UserInput, ID, derive(Debug, validate.Struct))\n", mainAnnotation))
		sb.WriteString("\n")
	}

	return sb.String()
}
