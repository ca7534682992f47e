package parser

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtract_Text(t *testing.T) {
	path := writeTempFile(t, "notes.txt", "plain text content")
	got, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "plain text content", got)
}

func TestExtract_ExtensionCaseInsensitive(t *testing.T) {
	path := writeTempFile(t, "NOTES.TXT", "upper case extension")
	got, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "upper case extension", got)
}

func TestExtract_MarkdownStripsMarkup(t *testing.T) {
	md := "# Title\n\nSome **bold** and *italic* text.\n\n- first\n- second\n"
	path := writeTempFile(t, "doc.md", md)

	got, err := Extract(path)
	require.NoError(t, err)
	assert.Contains(t, got, "Title")
	assert.Contains(t, got, "Some bold and italic text.")
	assert.Contains(t, got, "first")
	assert.NotContains(t, got, "#")
	assert.NotContains(t, got, "**")
}

func TestExtract_MarkdownKeepsCodeBlocks(t *testing.T) {
	md := "## Usage\n\n```go\nfunc main() {}\n```\n"
	path := writeTempFile(t, "usage.md", md)

	got, err := Extract(path)
	require.NoError(t, err)
	assert.Contains(t, got, "func main() {}")
	assert.NotContains(t, got, "```")
}

func writePPTX(t *testing.T, slides ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.pptx")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for i, slide := range slides {
		w, err := zw.Create(fmt.Sprintf("ppt/slides/slide%d.xml", i+1))
		require.NoError(t, err)
		_, err = w.Write([]byte(slide))
		require.NoError(t, err)
	}
	// Non-slide parts of the archive must be ignored.
	w, err := zw.Create("ppt/presentation.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<p:presentation><a:t>metadata</a:t></p:presentation>`))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtract_PPTX(t *testing.T) {
	path := writePPTX(t,
		`<p:sld><p:txBody><a:t>Hello</a:t><a:t>slide one</a:t></p:txBody></p:sld>`,
		`<p:sld><p:txBody><a:t>Second slide</a:t></p:txBody></p:sld>`,
	)

	got, err := Extract(path)
	require.NoError(t, err)
	assert.Contains(t, got, "Hello")
	assert.Contains(t, got, "slide one")
	assert.Contains(t, got, "Second slide")
	assert.NotContains(t, got, "<a:t>")
	assert.NotContains(t, got, "metadata")
}

func TestExtract_CorruptPPTX(t *testing.T) {
	path := writeTempFile(t, "deck.pptx", "not a zip archive")
	got, err := Extract(path)
	require.Error(t, err)
	assert.Empty(t, got)
}

func TestExtract_DocxNotImplemented(t *testing.T) {
	path := writeTempFile(t, "report.docx", "irrelevant")
	got, err := Extract(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	assert.Empty(t, got)
}

func TestExtract_UnknownExtension(t *testing.T) {
	path := writeTempFile(t, "image.png", "binary-ish")
	got, err := Extract(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	assert.Empty(t, got)
}

func TestExtract_MissingFile(t *testing.T) {
	got, err := Extract(filepath.Join(t.TempDir(), "gone.txt"))
	require.Error(t, err)
	assert.Empty(t, got)
}

func TestExtract_CorruptPDF(t *testing.T) {
	path := writeTempFile(t, "broken.pdf", "this is not a pdf")
	got, err := Extract(path)
	require.Error(t, err)
	assert.Empty(t, got)
}
