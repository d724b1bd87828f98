package parser

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// FileViewer serves the pages of a local file. It satisfies document.Viewer
// and document.Navigator.
type FileViewer struct {
	path  string
	pages []page
	ready chan struct{}

	mu      sync.Mutex
	current int
}

type page struct {
	text string
	err  error
}

var (
	slideRe   = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	slideText = regexp.MustCompile(`<a:t>([^<]*)</a:t>`)
	docxText  = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	docxPara  = regexp.MustCompile(`</w:p>`)
)

// Open parses filePath into pages. Pages that fail to extract are kept as
// per-page errors so the rest of the document stays readable.
func Open(filePath string) (*FileViewer, error) {
	var (
		pages []page
		err   error
	)

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		pages, err = parsePDF(filePath)
	case ".docx":
		pages, err = parseDOCX(filePath)
	case ".pptx":
		pages, err = parsePPTX(filePath)
	case ".xlsx":
		pages, err = parseXLSX(filePath)
	case ".xlsm", ".xltm", ".xltx":
		pages, err = parseWorkbook(filePath)
	case ".md", ".markdown":
		pages, err = parseMarkdown(filePath)
	case ".txt":
		pages, err = parseText(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages found in %s", filePath)
	}

	ready := make(chan struct{})
	close(ready)
	v := &FileViewer{path: filePath, pages: pages, ready: ready, current: 1}
	log.Debug().Str("file", filePath).Int("pages", len(pages)).Msg("Parsed document")
	return v, nil
}

func (v *FileViewer) Filename() string {
	return filepath.Base(v.path)
}

func (v *FileViewer) PageCount() int {
	return len(v.pages)
}

func (v *FileViewer) Ready() <-chan struct{} {
	return v.ready
}

func (v *FileViewer) LoadPageText(ctx context.Context, n int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if n < 1 || n > len(v.pages) {
		return "", fmt.Errorf("page %d out of range [1, %d]", n, len(v.pages))
	}
	p := v.pages[n-1]
	return p.text, p.err
}

func (v *FileViewer) SetCurrentPage(n int) error {
	if n < 1 || n > len(v.pages) {
		return fmt.Errorf("page %d out of range [1, %d]", n, len(v.pages))
	}
	v.mu.Lock()
	v.current = n
	v.mu.Unlock()
	return nil
}

func (v *FileViewer) CurrentPage() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

func parsePDF(filePath string) ([]page, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Get file size for reader initialization
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	pages := make([]page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		pages = append(pages, pdfPage(reader, i))
	}
	return pages, nil
}

// the pdf reader panics on malformed content streams
func pdfPage(reader *pdf.Reader, n int) (p page) {
	defer func() {
		if r := recover(); r != nil {
			p = page{err: fmt.Errorf("page %d: %v", n, r)}
		}
	}()

	pg := reader.Page(n)
	if pg.V.IsNull() {
		return page{err: fmt.Errorf("page %d: missing page object", n)}
	}
	text, err := pg.GetPlainText(nil)
	if err != nil {
		return page{err: err}
	}
	return page{text: strings.TrimSpace(text)}
}

// DOCX has no page numbers, the whole body is one page
func parseDOCX(filePath string) ([]page, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = docxPara.ReplaceAllString(content, "\n")

	var text strings.Builder
	for _, line := range strings.Split(content, "\n") {
		var para strings.Builder
		for _, m := range docxText.FindAllStringSubmatch(line, -1) {
			para.WriteString(m[1])
		}
		if s := strings.TrimSpace(para.String()); s != "" {
			text.WriteString(s + "\n")
		}
	}
	return []page{{text: strings.TrimSpace(text.String())}}, nil
}

// one page per slide, in slide order
func parsePPTX(filePath string) ([]page, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range f.File {
		m := slideRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, file: file})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	pages := make([]page, 0, len(slides))
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			pages = append(pages, page{err: err})
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			pages = append(pages, page{err: err})
			continue
		}
		pages = append(pages, page{text: extractTextFromXML(string(data))})
	}
	return pages, nil
}

// one page per sheet
func parseXLSX(filePath string) ([]page, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	pages := make([]page, 0, len(f.Sheets))
	for _, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, page{text: strings.TrimSpace(text.String())})
	}
	return pages, nil
}

// macro-enabled workbooks and templates, one page per sheet
func parseWorkbook(filePath string) ([]page, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []page
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			pages = append(pages, page{err: err})
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, page{text: strings.TrimSpace(text.String())})
	}
	return pages, nil
}

// form feeds separate pages
func parseText(filePath string) ([]page, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var pages []page
	for _, p := range strings.Split(string(data), "\f") {
		pages = append(pages, page{text: strings.TrimSpace(p)})
	}
	return pages, nil
}

func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	for _, m := range slideText.FindAllStringSubmatch(xmlContent, -1) {
		text.WriteString(m[1] + " ")
	}
	return strings.TrimSpace(text.String())
}
