package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/interfaces"
)

// ErrNoDocuments is returned when Merge is called without input.
var ErrNoDocuments = errors.New("no documents to merge")

// Merger concatenates PDF documents in memory.
type Merger struct {
	logger arbor.ILogger
}

var _ interfaces.PDFMerger = (*Merger)(nil)

// NewMerger creates a Merger.
func NewMerger(logger arbor.ILogger) *Merger {
	return &Merger{logger: logger}
}

// Merge concatenates docs in order. A single document is returned unchanged.
func (m *Merger) Merge(ctx context.Context, docs [][]byte) ([]byte, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(docs) == 1 {
		return docs[0], nil
	}

	readers := make([]io.ReadSeeker, len(docs))
	for i, doc := range docs {
		readers[i] = bytes.NewReader(doc)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, relaxedConfig()); err != nil {
		m.logger.Error().Err(err).Int("documents", len(docs)).Msg("Failed to merge PDF documents")
		return nil, fmt.Errorf("failed to merge %d documents: %w", len(docs), err)
	}

	m.logger.Debug().
		Int("documents", len(docs)).
		Int("pdf_size", out.Len()).
		Msg("PDF documents merged")
	return out.Bytes(), nil
}

// PageCount returns the number of pages in doc.
func PageCount(doc []byte) (int, error) {
	return api.PageCount(bytes.NewReader(doc), relaxedConfig())
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
