package server

import (
	"context"
	"fmt"
)

// pagesViewer serves pages posted by a client viewer.
type pagesViewer struct {
	filename string
	pages    []string
	ready    chan struct{}
}

func newPagesViewer(filename string, pages []string) *pagesViewer {
	ready := make(chan struct{})
	close(ready)
	return &pagesViewer{filename: filename, pages: pages, ready: ready}
}

func (v *pagesViewer) Filename() string       { return v.filename }
func (v *pagesViewer) PageCount() int         { return len(v.pages) }
func (v *pagesViewer) Ready() <-chan struct{} { return v.ready }

func (v *pagesViewer) LoadPageText(_ context.Context, page int) (string, error) {
	if page < 1 || page > len(v.pages) {
		return "", fmt.Errorf("page %d out of range [1, %d]", page, len(v.pages))
	}
	return v.pages[page-1], nil
}
