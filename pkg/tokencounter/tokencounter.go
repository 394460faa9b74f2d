// Package tokencounter implements ingestdomain.TokenCounter on top of
// tiktoken-go, the corpus's byte-pair encoder. Encoders are expensive to
// build (they parse a merge-rank table), so one is built per model name
// and cached for the process lifetime, matching the §5/§9 "read-mostly,
// initialized on first use under a one-time guard" rule for the token
// encoder cache.
package tokencounter

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Encoder counts tokens for a fixed set of models using tiktoken-go,
// caching one BPE encoder per model name.
type Encoder struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

// New returns an Encoder with an empty cache.
func New() *Encoder {
	return &Encoder{encoders: make(map[string]*tiktoken.Tiktoken)}
}

// Count returns the number of tokens text encodes to under model's
// tokenizer. Unknown model names fall back to the cl100k_base encoding,
// which is the right default for every embeddings model this pipeline
// wires (OpenAI, and the OpenAI-compatible Ollama/LM Studio endpoints).
func (e *Encoder) Count(model, text string) (int, error) {
	enc, err := e.encoderFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func (e *Encoder) encoderFor(model string) (*tiktoken.Tiktoken, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enc, ok := e.encoders[model]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("tokencounter: no encoding available for model %q: %w", model, err)
		}
	}
	e.encoders[model] = enc
	return enc, nil
}
