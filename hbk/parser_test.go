package hbk

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strLenPage = `<html>
<head><title>StrLen</title></head>
<body>
<h1 class="V8SH_pagetitle">СтрДлина (StrLen)</h1>
<p class="V8SH_chapter">Синтаксис:</p>
<p>СтрДлина(&lt;Строка&gt;)</p>
<p class="V8SH_chapter">Параметры:</p>
<div class="V8SH_rubric">&lt;Строка&gt; (обязательный)</div>
<p>Строка, длину которой требуется вычислить.</p>
<p class="V8SH_chapter">Возвращаемое значение:</p>
<p>Тип: Число.</p>
<p class="V8SH_chapter">Описание:</p>
<p>Получает количество символов в строке.</p>
<p class="V8SH_chapter">Пример:</p>
<pre>Длина = СтрДлина("Привет");</pre>
<p class="V8SH_chapter">Доступность:</p>
<p>Сервер, толстый клиент, тонкий клиент.</p>
</body>
</html>`

const arrayAddPage = `<html>
<body>
<h1 class="V8SH_pagetitle">Добавить (Add)</h1>
<p class="V8SH_chapter">Синтаксис:</p>
<p>Добавить(&lt;Значение&gt;)</p>
<p class="V8SH_chapter">Описание:</p>
<p>Добавляет значение в конец массива.</p>
</body>
</html>`

const categoriesContent = "section=objects\nversion=8.3.24\n"

// buildArchive assembles a zip with the layout real .hbk files use.
func buildArchive(t *testing.T, files map[string]string) (*bytes.Reader, int64) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return bytes.NewReader(buf.Bytes()), int64(buf.Len())
}

func TestParseReaderClassifiesByPath(t *testing.T) {
	r, size := buildArchive(t, map[string]string{
		"objects/Global context/methods/catalog123/StrLen912.html": strLenPage,
		"objects/Global context/events/Before45.html":              arrayAddPage,
		"objects/Global context/properties/Chars7.html":            arrayAddPage,
		"objects/Array/methods/Add3.html":                          arrayAddPage,
		"objects/Array/ctors/ByCount9.html":                        arrayAddPage,
		"objects/Form/events/OnOpen2.html":                         arrayAddPage,
		"objects/__categories__":                                   categoriesContent,
		"templates/snippet.st":                                     "template",
		"readme.txt":                                               "not documentation",
	})

	archive, err := NewParser().ParseReader(r, size)
	require.NoError(t, err)

	assert.Equal(t, 6, archive.Stats.HTMLFiles)
	assert.Equal(t, 6, archive.Stats.ParsedDocuments)
	assert.Equal(t, 1, archive.Stats.GlobalMethods)
	assert.Equal(t, 1, archive.Stats.GlobalEvents)
	assert.Equal(t, 1, archive.Stats.GlobalProperties)
	assert.Equal(t, 1, archive.Stats.ObjectConstructors)
	assert.Equal(t, 1, archive.Stats.ObjectEvents)
	assert.Equal(t, 1, archive.Stats.OtherObjectFiles)
	assert.Equal(t, 1, archive.Stats.TemplateFiles)
	assert.Equal(t, 1, archive.Stats.CategoryFiles)

	types := map[DocType]int{}
	for _, doc := range archive.Documents {
		types[doc.Type]++
	}
	assert.Equal(t, 1, types[DocGlobalMethod])
	assert.Equal(t, 1, types[DocGlobalEvent])
	assert.Equal(t, 1, types[DocGlobalProperty])
	assert.Equal(t, 1, types[DocObjectConstructor])
	assert.Equal(t, 1, types[DocObjectEvent])
	assert.Equal(t, 1, types[DocObjectMethod])
}

func TestParsedDocumentContent(t *testing.T) {
	r, size := buildArchive(t, map[string]string{
		"objects/Global context/methods/catalog123/StrLen912.html": strLenPage,
	})

	archive, err := NewParser().ParseReader(r, size)
	require.NoError(t, err)
	require.Len(t, archive.Documents, 1)

	doc := archive.Documents[0]
	assert.Equal(t, "StrLen", doc.Name)
	assert.Equal(t, "СтрДлина (StrLen)", doc.Title)
	assert.Equal(t, GlobalContext, doc.Object)
	assert.True(t, doc.Type.IsGlobal())
	assert.Contains(t, doc.Syntax, "СтрДлина")
	assert.Contains(t, doc.Description, "количество символов")
	assert.Contains(t, doc.ReturnValue, "Число")
	assert.Contains(t, doc.Example, "СтрДлина")
	assert.Contains(t, doc.Availability, "Сервер")

	require.Len(t, doc.Parameters, 1)
	assert.Equal(t, "Строка", doc.Parameters[0].Name)
	assert.Contains(t, doc.Parameters[0].Description, "длину")
}

func TestObjectNameFromPath(t *testing.T) {
	r, size := buildArchive(t, map[string]string{
		"objects/Array/methods/Add3.html": arrayAddPage,
	})

	archive, err := NewParser().ParseReader(r, size)
	require.NoError(t, err)
	require.Len(t, archive.Documents, 1)

	doc := archive.Documents[0]
	assert.Equal(t, "Array", doc.Object)
	assert.Equal(t, "Add", doc.Name)
	assert.False(t, doc.Type.IsGlobal())
}

func TestCategoriesVersionExtraction(t *testing.T) {
	r, size := buildArchive(t, map[string]string{
		"objects/__categories__": categoriesContent,
	})

	archive, err := NewParser().ParseReader(r, size)
	require.NoError(t, err)

	category, ok := archive.Categories["objects"]
	require.True(t, ok)
	assert.Equal(t, "objects", category.Section)
	assert.Equal(t, "8.3.24", category.Version)
}

func TestCategoriesWithoutVersion(t *testing.T) {
	r, size := buildArchive(t, map[string]string{
		"sections/__categories__": "just a name\n",
	})

	archive, err := NewParser().ParseReader(r, size)
	require.NoError(t, err)

	category, ok := archive.Categories["sections"]
	require.True(t, ok)
	assert.Empty(t, category.Version)
}

func TestMaxDocumentsCap(t *testing.T) {
	r, size := buildArchive(t, map[string]string{
		"objects/Array/methods/Add1.html":    arrayAddPage,
		"objects/Array/methods/Insert2.html": arrayAddPage,
		"objects/Array/methods/Clear3.html":  arrayAddPage,
	})

	archive, err := NewParser(WithMaxDocuments(2)).ParseReader(r, size)
	require.NoError(t, err)

	assert.Equal(t, 2, archive.Stats.ParsedDocuments)
	assert.Equal(t, 3, archive.Stats.HTMLFiles, "the cap limits parsing, not counting")
}

func TestClassifyPathBackslashes(t *testing.T) {
	assert.Equal(t, kindGlobalMethod, classifyPath(`objects\Global context\methods\StrLen.html`))
	assert.Equal(t, kindObjectConstructor, classifyPath(`objects\Array\ctors\ByCount.html`))
	assert.Equal(t, kindCategories, classifyPath(`objects\__categories__`))
}

func TestNameFromPathStripsCatalogSuffix(t *testing.T) {
	assert.Equal(t, "StrLen", nameFromPath("objects/Global context/methods/catalog4838/StrLen912.html"))
	assert.Equal(t, "Add", nameFromPath("objects/Array/methods/Add.html"))
	// A purely numeric name must not be stripped to nothing.
	assert.Equal(t, "404", nameFromPath("objects/Errors/404.html"))
}
