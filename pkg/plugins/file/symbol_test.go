package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSymbolCSharpClass(t *testing.T) {
	content := "namespace Demo {\n" +
		"    public class Greeter {\n" +
		"        public string Greet() {\n" +
		"            return \"hi\";\n" +
		"        }\n" +
		"    }\n" +
		"}\n"
	out, ok := extractSymbol(content, "Greeter", csharpConfig)
	require.True(t, ok)
	assert.Contains(t, out, "public class Greeter {")
	assert.Contains(t, out, "Greet")
}

func TestExtractSymbolDotNotationNested(t *testing.T) {
	content := "namespace Ns {\n" +
		"    class Outer {\n" +
		"        void Inner() {\n" +
		"            int x = 1;\n" +
		"        }\n" +
		"    }\n" +
		"}\n"
	out, ok := extractSymbol(content, "Outer.Inner", csharpConfig)
	require.True(t, ok)
	assert.Contains(t, out, "void Inner()")
	assert.NotContains(t, out, "class Outer")
}

func TestExtractSymbolOverloadBySignature(t *testing.T) {
	content := "class C {\n" +
		"    void Do(string s) {\n" +
		"        return;\n" +
		"    }\n" +
		"    void Do(int n) {\n" +
		"        return;\n" +
		"    }\n" +
		"}\n"
	out, ok := extractSymbol(content, "Do(int)", csharpConfig)
	require.True(t, ok)
	assert.Contains(t, out, "Do(int n)")
}

func TestExtractSymbolSuffixMatchNamespacedType(t *testing.T) {
	content := "class C {\n" +
		"    void Do(System.String s) {\n" +
		"        return;\n" +
		"    }\n" +
		"}\n"
	out, ok := extractSymbol(content, "Do(String)", csharpConfig)
	require.True(t, ok)
	assert.Contains(t, out, "System.String")
}

func TestExtractSymbolNotFound(t *testing.T) {
	_, ok := extractSymbol("class C {}\n", "Missing", csharpConfig)
	assert.False(t, ok)
}

func TestExtractSymbolPythonIndentBlock(t *testing.T) {
	content := "class Outer:\n" +
		"    def method(self):\n" +
		"        return 1\n" +
		"\n" +
		"def toplevel():\n" +
		"    pass\n"
	out, ok := extractSymbol(content, "method", pythonConfig)
	require.True(t, ok)
	assert.Contains(t, out, "def method(self):")
	assert.Contains(t, out, "return 1")
	assert.NotContains(t, out, "toplevel")
}

func TestGetLanguageConfigByExtension(t *testing.T) {
	_, ok := getLanguageConfig("foo.cs")
	assert.True(t, ok)
	_, ok = getLanguageConfig("foo.py")
	assert.True(t, ok)
	_, ok = getLanguageConfig("foo.txt")
	assert.False(t, ok)
}
