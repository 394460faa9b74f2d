package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDFExtractor_SupportsFormat(t *testing.T) {
	e := NewPDFExtractor(true)
	assert.True(t, e.SupportsFormat("report.pdf"))
	assert.True(t, e.SupportsFormat("REPORT.PDF"))
	assert.False(t, e.SupportsFormat("notes.txt"))
}

func TestPDFExtractor_RejectsGarbageBytes(t *testing.T) {
	e := NewPDFExtractor(true)
	_, err := e.Extract(context.Background(), "broken.pdf", []byte("not a pdf"))
	assert.Error(t, err)
}
