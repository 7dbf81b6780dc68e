package plugin

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotations(t *testing.T) {
	anns := ParseAnnotations("// @omit(NewUser, ID, derive(Debug, Clone))")
	require.Len(t, anns, 1)

	ann := anns[0]
	assert.Equal(t, "omit", ann.Name)
	assert.Equal(t, "(NewUser, ID, derive(Debug, Clone))", ann.Args)
	assert.Equal(t, "@omit(NewUser, ID, derive(Debug, Clone))", ann.Raw)
	assert.Equal(t, 1, ann.Span.Line)
	assert.Equal(t, 4, ann.Span.Column)
	assert.Equal(t, 3, ann.Span.Offset)
	assert.Equal(t, 3+len(ann.Raw), ann.Span.End)
}

func TestParseAnnotations_Multiple(t *testing.T) {
	anns := ParseAnnotations("User 用户\n  @omit(A, ID)\n@pick(B)  @derive")
	require.Len(t, anns, 3)

	assert.Equal(t, "omit", anns[0].Name)
	assert.Equal(t, 2, anns[0].Span.Line)
	assert.Equal(t, 3, anns[0].Span.Column)

	assert.Equal(t, "pick", anns[1].Name)
	assert.Equal(t, "(B)", anns[1].Args)
	assert.Equal(t, 3, anns[1].Span.Line)
	assert.Equal(t, 1, anns[1].Span.Column)

	assert.Equal(t, "derive", anns[2].Name)
	assert.Empty(t, anns[2].Args)
}

func TestParseAnnotations_Skips(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "email", text: "联系 user@example.com"},
		{name: "dotted", text: "see pkg.@omit"},
		{name: "bare at", text: "@ omit(A)"},
		{name: "digit", text: "@1omit(A)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, ParseAnnotations(tt.text))
		})
	}
}

func TestParseAnnotations_Args(t *testing.T) {
	tests := []struct {
		name string
		text string
		args string
	}{
		{name: "nested", text: "@omit(X, derive(A, B)) tail", args: "(X, derive(A, B))"},
		{name: "unterminated", text: "@omit(X, ID\nnext line", args: "(X, ID"},
		{name: "unterminated at end", text: "@omit(X, derive(A)", args: "(X, derive(A)"},
		{name: "space before paren", text: "@omit (X)", args: ""},
		{name: "unicode", text: "@pick(用户, 名称)", args: "(用户, 名称)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anns := ParseAnnotations(tt.text)
			require.Len(t, anns, 1)
			assert.Equal(t, tt.args, anns[0].Args)
		})
	}
}

func TestParseCommentAnnotations(t *testing.T) {
	src := `package models

// User 用户
//   @omit(NewUser, ID)
/* @pick(Name, Name) */
type User struct{}
`
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "user.go", src, parser.ParseComments)
	require.NoError(t, err)

	anns := ParseCommentAnnotations(fset, file.Comments[0])
	require.Len(t, anns, 2)

	assert.Equal(t, "user.go", anns[0].Span.Filename)
	assert.Equal(t, 4, anns[0].Span.Line)
	assert.Equal(t, 6, anns[0].Span.Column)
	assert.Equal(t, "@omit", src[anns[0].Span.Offset:anns[0].Span.Offset+5])

	assert.Equal(t, 5, anns[1].Span.Line)
	assert.Equal(t, 4, anns[1].Span.Column)
	assert.Equal(t, anns[1].Raw, src[anns[1].Span.Offset:anns[1].Span.End])

	assert.Nil(t, ParseCommentAnnotations(fset, nil))
}

func TestAnnotationHelpers(t *testing.T) {
	anns := ParseAnnotations("@omit(A) @pick(B) @omit(C) @other")

	assert.Len(t, FilterByNames(anns, "omit"), 2)
	assert.Len(t, FilterByNames(anns, "omit", "pick"), 3)
	assert.Len(t, FilterByNames(anns), 4)

	assert.True(t, HasAnnotation(anns, "pick"))
	assert.False(t, HasAnnotation(anns, "missing"))
	assert.Equal(t, "(A)", GetAnnotation(anns, "omit").Args)
	assert.Nil(t, GetAnnotation(anns, "missing"))

	raws := RawAnnotations(anns)
	require.Len(t, raws, 4)
	assert.Equal(t, "@pick(B)", raws[1].Text())
	assert.Equal(t, anns[1].Span, raws[1].Span)
}
