package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagePdfSplitter_RejectsGarbageBytes(t *testing.T) {
	s := NewPagePdfSplitter()
	_, err := s.Split(context.Background(), []byte("not a pdf"))
	assert.Error(t, err)
}
