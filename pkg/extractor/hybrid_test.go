package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHybridExtractor_DispatchesToSupportingDelegate(t *testing.T) {
	e := NewHybridExtractor(NewPDFExtractor(true), NewTextExtractor())
	assert.True(t, e.SupportsFormat("doc.pdf"))
	assert.True(t, e.SupportsFormat("notes.txt"))
	assert.False(t, e.SupportsFormat("image.png"))

	pages, err := e.Extract(context.Background(), "notes.txt", []byte("hello"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "hello", pages[0].Text)
}

func TestHybridExtractor_NoDelegateSupports(t *testing.T) {
	e := NewHybridExtractor(NewTextExtractor())
	_, err := e.Extract(context.Background(), "image.png", []byte("x"))
	assert.Error(t, err)
}
