package projection

import "github.com/samber/lo"

// Collect 按注解名筛选，保持源码顺序
func Collect(annotations []RawAnnotation, name string) []RawAnnotation {
	return lo.Filter(annotations, func(a RawAnnotation, _ int) bool {
		return a.Name == name
	})
}
