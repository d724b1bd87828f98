package response

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ask-ai/internal/models"
)

// maxRangeSpan bounds arithmetic range expansion so [1-99999] stays cheap.
const maxRangeSpan = 50

var (
	groupedRe  = regexp.MustCompile(models.GroupedCitationRegex)
	rangedRe   = regexp.MustCompile(models.RangedCitationRegex)
	periodRe   = regexp.MustCompile(models.CitationPeriodRegex)
	runRe      = regexp.MustCompile(models.CitationRunRegex)
	citationRe = regexp.MustCompile(models.CitationRegex)
	numberRe   = regexp.MustCompile(`\d+`)
	bulletRe   = regexp.MustCompile(models.BulletSplitRegex)

	// an already rendered link or a bare marker
	linkOrMarkerRe = regexp.MustCompile(`<button class="page-link"[^>]*>\[\d+\]</button>|\[(\d+)\]`)
)

// PageLinkFormat renders a citation that navigates the viewer to its page.
const PageLinkFormat = `<button class="page-link" type="button" style="color:blue;" data-page="%d" onclick="WebViewer.getInstance().Core.documentViewer.setCurrentPage(%d, true);">[%d]</button>`

// Formatter turns raw model text into display text for a document with a
// fixed page count.
type Formatter struct {
	pageCount    int
	expandRanges bool
}

type Option func(*Formatter)

// WithRangeExpansion expands [a-b] arithmetically instead of taking the
// literal numbers of the range.
func WithRangeExpansion(on bool) Option {
	return func(f *Formatter) { f.expandRanges = on }
}

func NewFormatter(pageCount int, opts ...Option) *Formatter {
	f := &Formatter{pageCount: pageCount}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format applies, in order: grouped-citation expansion, range expansion,
// structural formatting, duplicate collapse (keyword lists) and page links.
func (f *Formatter) Format(t models.RequestType, text string) string {
	text = ExpandGrouped(text)
	if f.expandRanges {
		text = ExpandRangesArithmetic(text)
	} else {
		text = ExpandRanges(text)
	}

	switch t {
	case models.DocumentSummary, models.SelectedTextSummary, models.DocumentQuestion:
		text = BreakParagraphs(text)
	case models.DocumentKeywords, models.DocumentContextualQuestions:
		text = FormatBullets(text)
	}

	if t == models.DocumentKeywords {
		text = CollapseLines(text)
	}

	return LinkCitations(text, f.pageCount)
}

// ExpandGrouped rewrites [1, 2, 3] as [1][2][3].
func ExpandGrouped(text string) string {
	return groupedRe.ReplaceAllStringFunc(text, literalNumbers)
}

// ExpandRanges rewrites every number found in a bracketed range as its own
// marker: [1-3] becomes [1][3].
func ExpandRanges(text string) string {
	return rangedRe.ReplaceAllStringFunc(text, literalNumbers)
}

// ExpandRangesArithmetic rewrites [1-3] as [1][2][3]. Descending or overly
// wide ranges fall back to the literal numbers.
func ExpandRangesArithmetic(text string) string {
	return rangedRe.ReplaceAllStringFunc(text, func(match string) string {
		nums := numberRe.FindAllString(match, -1)
		var b strings.Builder
		prev := -1
		for _, s := range nums {
			n, err := strconv.Atoi(s)
			if err != nil {
				return literalNumbers(match)
			}
			if prev >= 0 {
				if n <= prev || n-prev > maxRangeSpan {
					return literalNumbers(match)
				}
				for i := prev + 1; i < n; i++ {
					fmt.Fprintf(&b, "[%d]", i)
				}
			}
			fmt.Fprintf(&b, "[%d]", n)
			prev = n
		}
		return b.String()
	})
}

func literalNumbers(match string) string {
	var b strings.Builder
	for _, n := range numberRe.FindAllString(match, -1) {
		b.WriteString("[" + n + "]")
	}
	return b.String()
}

// BreakParagraphs inserts a paragraph break after a citation that ends a sentence.
func BreakParagraphs(text string) string {
	return periodRe.ReplaceAllString(text, "$1."+models.ParagraphBreak)
}

// FormatBullets puts every bullet item on its own line.
func FormatBullets(text string) string {
	var lines []string
	for _, seg := range bulletRe.Split(text, -1) {
		seg = trimLine(seg)
		if seg == "" {
			continue
		}
		lines = append(lines, models.BulletDelimiter+" "+seg)
	}
	return strings.Join(lines, models.LineBreak)
}

func trimLine(s string) string {
	for {
		t := strings.TrimSpace(s)
		t = strings.TrimSuffix(t, models.LineBreak)
		if t == s {
			return t
		}
		s = t
	}
}

// CollapseLines collapses immediately repeated citations within each line.
func CollapseLines(text string) string {
	lines := strings.Split(text, models.LineBreak)
	out := lines[:0]
	for _, line := range lines {
		if line == "" {
			continue
		}
		out = append(out, CollapseRepeats(line))
	}
	return strings.Join(out, models.LineBreak)
}

// CollapseRepeats turns [1][1][2] into [1][2].
func CollapseRepeats(text string) string {
	return runRe.ReplaceAllStringFunc(text, func(run string) string {
		var b strings.Builder
		last := ""
		for _, m := range citationRe.FindAllString(run, -1) {
			if m == last {
				continue
			}
			b.WriteString(m)
			last = m
		}
		return b.String()
	})
}

// LinkCitations replaces every [N] with a page link when 1 <= N <= pageCount.
// Out-of-range markers stay plain text and rendered links are left untouched.
func LinkCitations(text string, pageCount int) string {
	return linkOrMarkerRe.ReplaceAllStringFunc(text, func(match string) string {
		if strings.HasPrefix(match, "<") {
			return match
		}
		n, err := strconv.Atoi(match[1 : len(match)-1])
		if err != nil || n < 1 || n > pageCount {
			return match
		}
		return PageLink(n)
	})
}

func PageLink(page int) string {
	return fmt.Sprintf(PageLinkFormat, page, page, page)
}

// Citations returns the distinct page numbers cited in text, in order of appearance.
func Citations(text string) []int {
	seen := make(map[int]bool)
	var pages []int
	for _, m := range citationRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		pages = append(pages, n)
	}
	return pages
}
