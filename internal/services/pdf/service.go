// Package pdf renders markdown into PDF pages and concatenates PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const baseFontSize = 9.0

// Service renders markdown documents (report cover pages, error pages) to PDF.
type Service struct {
	logger   arbor.ILogger
	markdown goldmark.Markdown
	author   string
}

var _ interfaces.PDFService = (*Service)(nil)

// NewService creates a PDF service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger:   logger,
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
		author:   "StockScope",
	}
}

// ConvertMarkdownToPDF renders markdown onto A4 pages. title is written to the
// document metadata only; a visible title belongs in the markdown as a heading.
func (s *Service) ConvertMarkdownToPDF(markdown, title string) ([]byte, error) {
	markdown = stripFrontmatter(markdown)

	s.logger.Debug().
		Int("markdown_len", len(markdown)).
		Str("title", title).
		Msg("Rendering markdown to PDF")

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.SetTitle(title, true)
	doc.SetAuthor(s.author, true)
	doc.AddPage()
	doc.SetFont("Arial", "", baseFontSize)

	source := []byte(markdown)
	root := s.markdown.Parser().Parse(text.NewReader(source))

	r := newRenderer(doc, source)
	if err := r.render(root); err != nil {
		s.logger.Error().Err(err).Str("title", title).Msg("Failed to render markdown")
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		s.logger.Error().Err(err).Str("title", title).Msg("Failed to write PDF output")
		return nil, fmt.Errorf("failed to write PDF output: %w", err)
	}

	s.logger.Debug().Int("pdf_size", buf.Len()).Str("title", title).Msg("PDF rendered")
	return buf.Bytes(), nil
}

// RenderErrorPage renders a single page stating that the report for symbol could
// not be produced.
func (s *Service) RenderErrorPage(symbol string, cause error) ([]byte, error) {
	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", strings.ToUpper(symbol))
	md.WriteString("**Report unavailable**\n\n")
	if cause != nil {
		fmt.Fprintf(&md, "The research report for %s could not be generated: %s\n", strings.ToUpper(symbol), cause.Error())
	}
	return s.ConvertMarkdownToPDF(md.String(), symbol+" report unavailable")
}

// stripFrontmatter drops a leading YAML block delimited by --- lines.
func stripFrontmatter(markdown string) string {
	if !strings.HasPrefix(markdown, "---\n") {
		return markdown
	}
	end := strings.Index(markdown[4:], "\n---\n")
	if end == -1 {
		return markdown
	}
	return strings.TrimSpace(markdown[4+end+5:])
}
