package document

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"ask-ai/internal/models"
)

var ErrNotReady = errors.New("document never became ready")

// Viewer is the document viewer the pipeline reads from.
type Viewer interface {
	Filename() string
	PageCount() int
	// LoadPageText is 1-indexed and may fail per page.
	LoadPageText(ctx context.Context, page int) (string, error)
	// Ready is closed once the document is fully parsed and pages may be read.
	Ready() <-chan struct{}
}

// Navigator moves the document view to a page.
type Navigator interface {
	SetCurrentPage(page int) error
}

// Text is the extracted, page-segmented text of a loaded document.
type Text struct {
	Filename    string `json:"filename"`
	PageCount   int    `json:"pageCount"`
	Content     string `json:"text"`
	FailedPages []int  `json:"failedPages,omitempty"`
}

// Build waits for the viewer to become ready and extracts every page in
// order. A page that fails to load is replaced with a placeholder.
func Build(ctx context.Context, v Viewer) (*Text, error) {
	select {
	case <-v.Ready():
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrNotReady, ctx.Err())
	}

	doc := &Text{Filename: v.Filename(), PageCount: v.PageCount()}
	var b strings.Builder
	for page := 1; page <= doc.PageCount; page++ {
		text, err := v.LoadPageText(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Int("page", page).Str("file", doc.Filename).Msg("Error loading page content")
			text = models.PageErrorPlaceholder
			doc.FailedPages = append(doc.FailedPages, page)
		}
		fmt.Fprintf(&b, models.PageBreakFormat, page, text)
	}
	doc.Content = b.String()

	log.Debug().Str("file", doc.Filename).Int("pages", doc.PageCount).Int("chars", len(doc.Content)).Msg("Loaded document text")
	return doc, nil
}

// Valid reports whether the document has pages and text.
func (t *Text) Valid() bool {
	return t != nil && t.PageCount > 0 && len(t.Content) > 0
}

var pageBreakRe = regexp.MustCompile(`(?m)^<<PAGE_BREAK>> Page (\d+)\n`)

// Page returns the text of a 1-indexed page.
func (t *Text) Page(n int) (string, bool) {
	if t == nil {
		return "", false
	}
	locs := pageBreakRe.FindAllStringSubmatchIndex(t.Content, -1)
	for i, loc := range locs {
		num, _ := strconv.Atoi(t.Content[loc[2]:loc[3]])
		if num != n {
			continue
		}
		end := len(t.Content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		return strings.TrimSuffix(t.Content[loc[1]:end], "\n\n"), true
	}
	return "", false
}

// SelectionMarker formats selected text from one page the way the viewer
// reports multi-page selections.
func SelectionMarker(page int, text string) string {
	return fmt.Sprintf("%s\n<<PAGE_BREAK>> Page %d\n", text, page)
}
