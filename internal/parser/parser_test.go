package parser

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ask-ai/internal/document"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenText(t *testing.T) {
	path := writeFile(t, "notes.txt", "first page\fsecond page\n")
	v, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", v.Filename())
	assert.Equal(t, 2, v.PageCount())

	p2, err := v.LoadPageText(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "second page", p2)

	_, err = v.LoadPageText(context.Background(), 3)
	assert.Error(t, err)
}

func TestOpenMarkdownSplitsOnThematicBreak(t *testing.T) {
	src := "# Intro\n\nThe **budget** is small.\n\n---\n\n## Costs\n\n- item one\n- item two\n\n```\ncode line\n```\n"
	v, err := Open(writeFile(t, "doc.md", src))
	require.NoError(t, err)
	require.Equal(t, 2, v.PageCount())

	p1, _ := v.LoadPageText(context.Background(), 1)
	assert.Equal(t, "Intro\nThe budget is small.", p1)

	p2, _ := v.LoadPageText(context.Background(), 2)
	assert.Contains(t, p2, "Costs")
	assert.Contains(t, p2, "item one")
	assert.Contains(t, p2, "code line")
}

func TestOpenPPTXSlideOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, s := range []struct{ name, body string }{
		{"ppt/slides/slide10.xml", "<p:sld><a:t>Ten</a:t></p:sld>"},
		{"ppt/slides/slide2.xml", "<p:sld><a:t>Two</a:t><a:t>more</a:t></p:sld>"},
		{"ppt/slides/_rels/slide2.xml.rels", "<rels/>"},
		{"ppt/slides/slide1.xml", "<p:sld><a:t>One</a:t></p:sld>"},
	} {
		w, err := zw.Create(s.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(s.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	v, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 3, v.PageCount())

	doc, err := document.Build(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, "<<PAGE_BREAK>> Page 1\nOne\n\n<<PAGE_BREAK>> Page 2\nTwo more\n\n<<PAGE_BREAK>> Page 3\nTen\n\n", doc.Content)
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open(writeFile(t, "image.png", "x"))
	assert.ErrorContains(t, err, "unsupported file format")
}

func TestSetCurrentPage(t *testing.T) {
	v, err := Open(writeFile(t, "a.txt", "one\ftwo"))
	require.NoError(t, err)

	assert.Equal(t, 1, v.CurrentPage())
	require.NoError(t, v.SetCurrentPage(2))
	assert.Equal(t, 2, v.CurrentPage())
	assert.Error(t, v.SetCurrentPage(3))
	assert.Equal(t, 2, v.CurrentPage())
}

var (
	_ document.Viewer    = (*FileViewer)(nil)
	_ document.Navigator = (*FileViewer)(nil)
)
