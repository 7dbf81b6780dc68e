package projection

import (
	"strings"
)

// DeriveAnnotation 生成能力注解行，例如 // @derive(Debug, Clone)
func DeriveAnnotation(d *Derive) string {
	return "// @" + deriveKeyword + "(" + strings.Join(d.Strings(), ", ") + ")"
}

// Synthesize 生成一个新的结构体声明
//
//	// @derive(Debug, Clone)
//	type NewUser struct {
//		Age uint64 `json:"age"`
//	}
func Synthesize(p Projected) Declaration {
	var sb strings.Builder

	if p.Derive != nil {
		sb.WriteString(DeriveAnnotation(p.Derive))
		sb.WriteByte('\n')
	}

	sb.WriteString("type ")
	sb.WriteString(p.Name)
	sb.WriteString(p.TypeParams)

	if len(p.Fields) == 0 {
		sb.WriteString(" struct{}\n")
		return Declaration{Projected: p, Text: sb.String()}
	}

	sb.WriteString(" struct {\n")
	for _, f := range p.Fields {
		writeField(&sb, f)
	}
	sb.WriteString("}\n")

	return Declaration{Projected: p, Text: sb.String()}
}

// writeField 原样输出字段
func writeField(sb *strings.Builder, f Field) {
	if f.Doc != "" {
		writeDoc(sb, f.Doc)
	}

	sb.WriteByte('\t')
	if !f.Embedded {
		sb.WriteString(f.Name)
		sb.WriteByte(' ')
	}
	sb.WriteString(f.Syntax)
	if f.Comment != "" {
		sb.WriteByte(' ')
		sb.WriteString(f.Comment)
	}
	sb.WriteByte('\n')
}

// writeDoc 每条注释的首行按字段缩进，/* */ 注释的后续行保持原文
func writeDoc(sb *strings.Builder, doc string) {
	inBlock := false
	for _, line := range strings.Split(strings.TrimRight(doc, "\n"), "\n") {
		if inBlock {
			sb.WriteString(line)
			sb.WriteByte('\n')
			inBlock = !strings.Contains(line, "*/")
			continue
		}

		line = strings.TrimLeft(line, " \t")
		sb.WriteByte('\t')
		sb.WriteString(line)
		sb.WriteByte('\n')
		if strings.HasPrefix(line, "/*") {
			inBlock = !strings.Contains(line[2:], "*/")
		}
	}
}

// Concat 按顺序拼接多个声明，之间空一行
func Concat(decls []Declaration) string {
	texts := make([]string, 0, len(decls))
	for _, d := range decls {
		texts = append(texts, d.Text)
	}
	return strings.Join(texts, "\n")
}
