package interfaces

import "context"

// PDFService handles PDF generation from various formats
type PDFService interface {
	// ConvertMarkdownToPDF converts markdown content to a PDF byte slice
	ConvertMarkdownToPDF(markdown, title string) ([]byte, error)

	// RenderErrorPage renders a one-page notice that symbol's report failed
	RenderErrorPage(symbol string, cause error) ([]byte, error)
}

// PDFMerger concatenates PDF documents, in order, into one document
type PDFMerger interface {
	Merge(ctx context.Context, docs [][]byte) ([]byte, error)
}
