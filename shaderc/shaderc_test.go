package shaderc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessKeywords(t *testing.T) {
	code := `const size: u32 = WORKGROUP_SIZE;
#ifdef USE_TEXTURE
let a = 1;
#else
let a = 2;
#endif
#ifndef USE_TEXTURE
let b = 3;
#endif`

	out, err := Preprocess(Source{
		Code:     code,
		Keywords: []Keyword{DefineValue("WORKGROUP_SIZE", "64"), Define("USE_TEXTURE")},
	})
	require.NoError(t, err)
	assert.Equal(t, "const size: u32 = 64;\nlet a = 1;\n", out)

	out, err = Preprocess(Source{Code: code})
	require.NoError(t, err)
	assert.Equal(t, "const size: u32 = WORKGROUP_SIZE;\nlet a = 2;\nlet b = 3;\n", out)
}

func TestPreprocessNested(t *testing.T) {
	code := `#ifdef A
#ifdef B
ab
#else
a
#endif
#endif`

	out, err := Preprocess(Source{Code: code, Keywords: []Keyword{Define("A")}})
	require.NoError(t, err)
	assert.Equal(t, "a\n", out)

	out, err = Preprocess(Source{Code: code, Keywords: []Keyword{Define("B")}})
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestPreprocessSubstitutesWholeIdentifiers(t *testing.T) {
	out, err := Preprocess(Source{
		Code:     "N + N_MAX + xN",
		Keywords: []Keyword{DefineValue("N", "4")},
	})
	require.NoError(t, err)
	assert.Equal(t, "4 + N_MAX + xN\n", out)
}

func TestPreprocessDefine(t *testing.T) {
	out, err := Preprocess(Source{Code: "#define COUNT 8\n#ifdef COUNT\nCOUNT\n#endif"})
	require.NoError(t, err)
	assert.Equal(t, "8\n", out)
}

func TestPreprocessInclude(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "common.wgsl"), []byte("const PI: f32 = 3.14;"), 0o644))

	out, err := Preprocess(Source{
		Code: "#include \"common.wgsl\"\nfn f() {}",
		Name: filepath.Join(dir, "main.wgsl"),
	})
	require.NoError(t, err)
	assert.Equal(t, "const PI: f32 = 3.14;\nfn f() {}\n", out)

	_, err = Preprocess(Source{Code: "#include \"missing.wgsl\""})
	assert.Error(t, err)
}

func TestPreprocessErrors(t *testing.T) {
	for name, code := range map[string]string{
		"unbalanced endif": "#endif",
		"missing endif":    "#ifdef A\nx",
		"double else":      "#ifdef A\n#else\n#else\n#endif",
		"unknown":          "#pragma once",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Preprocess(Source{Code: code})
			assert.Error(t, err)
		})
	}

	_, err := Preprocess(Source{Keywords: []Keyword{{Value: "1"}}})
	assert.Error(t, err)
}

func TestCompileReportsPreprocessorMessage(t *testing.T) {
	res, err := Compile(Source{Code: "#ifdef A"})
	require.Error(t, err)
	assert.Empty(t, res.Words)
	assert.Contains(t, res.Message, "missing #endif")
}
