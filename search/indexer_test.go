package search

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onecsuite/syntaxhelper/hbk"
)

const testPage = `<html><body>
<h1 class="V8SH_pagetitle">СтрДлина (StrLen)</h1>
<p class="V8SH_chapter">Описание:</p>
<p>Получает количество символов в строке.</p>
</body></html>`

// writeTestArchive creates a .hbk file big enough to pass the parser's
// truncation check, padding it with an inert blob.
func writeTestArchive(t *testing.T, dir string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("objects/Global context/methods/StrLen1.html")
	require.NoError(t, err)
	_, err = w.Write([]byte(testPage))
	require.NoError(t, err)

	w, err = zw.CreateHeader(&zip.FileHeader{Name: "padding.bin", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write(make([]byte, 2*hbk.MinArchiveSize))
	require.NoError(t, err)

	require.NoError(t, zw.Close())

	path := filepath.Join(dir, "help.hbk")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestRebuildIndexesArchive(t *testing.T) {
	dir := t.TempDir()
	file := writeTestArchive(t, dir)

	engine := NewEngine()
	ix := NewIndexer(dir, hbk.NewParser(), engine, nil)

	require.NoError(t, ix.Rebuild())

	assert.True(t, engine.Ready())
	assert.Equal(t, 1, engine.Count())

	status := ix.Status()
	assert.True(t, status.IndexExists)
	assert.Equal(t, 1, status.DocumentsCount)
	assert.Equal(t, file, status.ArchiveFile)
	assert.False(t, status.InProgress)
	assert.Empty(t, status.LastError)
	assert.False(t, status.IndexedAt.IsZero())
}

func TestRebuildWithoutArchives(t *testing.T) {
	engine := NewEngine()
	ix := NewIndexer(t.TempDir(), hbk.NewParser(), engine, nil)

	err := ix.Rebuild()
	assert.ErrorIs(t, err, ErrNoArchives)
	assert.False(t, engine.Ready())

	status := ix.Status()
	assert.NotEmpty(t, status.LastError)
}

func TestAutoIndexSkipsWhenPopulated(t *testing.T) {
	dir := t.TempDir()
	writeTestArchive(t, dir)

	engine := NewEngine()
	engine.Index([]hbk.Document{{Name: "Existing", Object: hbk.GlobalContext, Type: hbk.DocGlobalMethod}})

	ix := NewIndexer(dir, hbk.NewParser(), engine, nil)
	ix.AutoIndex()

	// The pre-existing dataset must survive.
	assert.Equal(t, 1, engine.Count())
	_, ok := engine.FindElement("Existing", "")
	assert.True(t, ok)
}

func TestAutoIndexWithEmptyDirIsQuiet(t *testing.T) {
	engine := NewEngine()
	ix := NewIndexer(t.TempDir(), hbk.NewParser(), engine, nil)

	ix.AutoIndex()
	assert.False(t, engine.Ready())
}
