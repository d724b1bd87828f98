package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ask-ai/internal/models"
)

type fakeViewer struct {
	pages []string
	fail  map[int]bool
	ready chan struct{}
}

func newFakeViewer(pages ...string) *fakeViewer {
	ready := make(chan struct{})
	close(ready)
	return &fakeViewer{pages: pages, fail: map[int]bool{}, ready: ready}
}

func (f *fakeViewer) Filename() string       { return "report.pdf" }
func (f *fakeViewer) PageCount() int         { return len(f.pages) }
func (f *fakeViewer) Ready() <-chan struct{} { return f.ready }

func (f *fakeViewer) LoadPageText(_ context.Context, page int) (string, error) {
	if f.fail[page] {
		return "", errors.New("cannot extract")
	}
	return f.pages[page-1], nil
}

func TestBuild(t *testing.T) {
	v := newFakeViewer("first page", "second page")
	doc, err := Build(context.Background(), v)
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", doc.Filename)
	assert.Equal(t, 2, doc.PageCount)
	assert.Equal(t, "<<PAGE_BREAK>> Page 1\nfirst page\n\n<<PAGE_BREAK>> Page 2\nsecond page\n\n", doc.Content)
	assert.True(t, doc.Valid())
}

func TestBuildIsolatesPageFailures(t *testing.T) {
	v := newFakeViewer("one", "two", "three")
	v.fail[2] = true

	doc, err := Build(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, doc.FailedPages)

	p2, ok := doc.Page(2)
	require.True(t, ok)
	assert.Equal(t, models.PageErrorPlaceholder, p2)
	p3, _ := doc.Page(3)
	assert.Equal(t, "three", p3)
}

func TestBuildWaitsForReady(t *testing.T) {
	v := newFakeViewer("late")
	v.ready = make(chan struct{})

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(v.ready)
	}()
	doc, err := Build(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.PageCount)
}

func TestBuildNotReady(t *testing.T) {
	v := newFakeViewer("never")
	v.ready = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Build(ctx, v)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestPage(t *testing.T) {
	doc, err := Build(context.Background(), newFakeViewer("a\nb", "c"))
	require.NoError(t, err)

	p1, ok := doc.Page(1)
	assert.True(t, ok)
	assert.Equal(t, "a\nb", p1)

	_, ok = doc.Page(3)
	assert.False(t, ok)

	var empty *Text
	assert.False(t, empty.Valid())
}
