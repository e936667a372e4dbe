package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func renderDoc(t *testing.T, markdown string) []byte {
	t.Helper()
	out, err := NewService(arbor.NewLogger()).ConvertMarkdownToPDF(markdown, "doc")
	require.NoError(t, err)
	return out
}

func TestMerger_Merge(t *testing.T) {
	merger := NewMerger(arbor.NewLogger())
	docs := [][]byte{
		renderDoc(t, "# One"),
		renderDoc(t, "# Two"),
		renderDoc(t, "# Three"),
	}

	out, err := merger.Merge(context.Background(), docs)

	require.NoError(t, err)
	pages, err := PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
}

func TestMerger_SingleDocumentUnchanged(t *testing.T) {
	doc := renderDoc(t, "# Only")

	out, err := NewMerger(arbor.NewLogger()).Merge(context.Background(), [][]byte{doc})

	require.NoError(t, err)
	assert.Equal(t, doc, out)
}

func TestMerger_Errors(t *testing.T) {
	merger := NewMerger(arbor.NewLogger())

	_, err := merger.Merge(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDocuments)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = merger.Merge(ctx, [][]byte{renderDoc(t, "a"), renderDoc(t, "b")})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = merger.Merge(context.Background(), [][]byte{renderDoc(t, "a"), []byte("not a pdf")})
	assert.Error(t, err)
}
