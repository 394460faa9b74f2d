// Package layoutchunker implements the ingestion pipeline's layout-aware
// chunker: it turns an enriched page sequence into a strictly ordered
// list of ChunkDocuments that respect invariants I1-I4 (adaptive token
// budget, chunk-id uniqueness, prefix/suffix overlap, table/figure
// atomicity). The algorithm is deterministic: identical inputs produce
// identical output, which is what makes the pipeline's idempotent-replace
// contract (§4.5) possible.
package layoutchunker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/liliang-cn/docingest/pkg/ingestdomain"
	"github.com/liliang-cn/docingest/pkg/ingesterr"
)

// Config mirrors ingestconfig.ChunkingConfig without importing it, so
// this package has no dependency on the config layer.
type Config struct {
	TargetTokens     int
	OverlapPercent   int
	CrossPageOverlap bool
	MaxChars         int
}

// Chunker implements ingestdomain.Chunker.
type Chunker struct {
	tokenCounter ingestdomain.TokenCounter
	model        string
	maxSeqLength int
	cfg          Config
}

// New builds a Chunker for one embeddings provider. maxSeqLength is the
// provider's MaxSeqLength(); pipeline.New passes a fixed 8191 when the
// provider reports zero or less. No environment variable overrides it.
func New(tc ingestdomain.TokenCounter, model string, maxSeqLength int, cfg Config) *Chunker {
	return &Chunker{tokenCounter: tc, model: model, maxSeqLength: maxSeqLength, cfg: cfg}
}

// effectiveMaxTokens implements the §4.2 adaptive token budget formula.
// It returns the budget plus a warning message when the configured
// target had to be clamped down to the model's safe limit.
func (c *Chunker) effectiveMaxTokens() (int, string) {
	safeLimit := int(math.Floor(float64(c.maxSeqLength) * (1 - 0.15 - float64(c.cfg.OverlapPercent)/100)))
	if safeLimit < 1 {
		safeLimit = 1
	}
	if c.cfg.TargetTokens > safeLimit {
		return safeLimit, fmt.Sprintf(
			"configured target_tokens %d exceeds safe_limit %d for max_seq_length %d; adopting safe_limit",
			c.cfg.TargetTokens, safeLimit, c.maxSeqLength)
	}
	return c.cfg.TargetTokens, ""
}

// textAtom is one indivisible unit of packing input: either a plain text
// run (already small enough to usually fit a chunk on its own) or a
// sentinel standing in for an atomic table or figure.
type textAtom struct {
	text         string
	tokens       int
	isSentinel   bool
	sentinelKind string // "table" | "figure"
	sentinelID   string
}

// Chunk implements ingestdomain.Chunker.Chunk.
func (c *Chunker) Chunk(ctx context.Context, doc ingestdomain.DocumentMetadata, pages []ingestdomain.ExtractedPage) ([]ingestdomain.ChunkDocument, []string, error) {
	budget, clampWarning := c.effectiveMaxTokens()
	overlapTokens := int(math.Round(float64(budget) * float64(c.cfg.OverlapPercent) / 100))

	var warnings []string
	if clampWarning != "" {
		warnings = append(warnings, clampWarning)
	}

	var allChunks []ingestdomain.ChunkDocument
	var pendingCrossPageOverlap string
	seenIDs := make(map[string]bool)

	for _, page := range pages {
		select {
		case <-ctx.Done():
			return nil, warnings, ctx.Err()
		default:
		}

		atoms, err := c.atomizePage(page, budget)
		if err != nil {
			return nil, warnings, ingesterr.WrapWithContext(err, ingesterr.IntegrityChunkOversize, "chunker", "atomize", "failed to atomize page text")
		}

		if c.cfg.CrossPageOverlap && pendingCrossPageOverlap != "" {
			n, err := c.tokenCounter.Count(c.model, pendingCrossPageOverlap)
			if err != nil {
				return nil, warnings, err
			}
			atoms = append([]textAtom{{text: pendingCrossPageOverlap, tokens: n}}, atoms...)
		}
		pendingCrossPageOverlap = ""

		chunks, tailOverlap, pageWarnings, err := c.packPage(atoms, budget, overlapTokens)
		if err != nil {
			return nil, warnings, err
		}
		warnings = append(warnings, pageWarnings...)

		if c.cfg.CrossPageOverlap {
			pendingCrossPageOverlap = tailOverlap
		}

		for k, wc := range chunks {
			id := ingestdomain.BuildChunkID(doc.Sourcefile, page.PageNum, k+1)
			if seenIDs[id] {
				return nil, warnings, ingesterr.New(ingesterr.IntegrityChunkOversize, "chunker", "assign-id", fmt.Sprintf("duplicate chunk id %q", id), nil)
			}
			seenIDs[id] = true

			text := strings.TrimSpace(wc.joinedText())
			tokenCount, err := c.tokenCounter.Count(c.model, text)
			if err != nil {
				return nil, warnings, err
			}
			if tokenCount > budget && !wc.isSingleOversizeSentinel() {
				return nil, warnings, ingesterr.New(ingesterr.IntegrityChunkOversize, "chunker", "pack", fmt.Sprintf("chunk %s exceeds effective_max_tokens (%d > %d)", id, tokenCount, budget), nil)
			}

			allChunks = append(allChunks, ingestdomain.ChunkDocument{
				Document:   doc,
				Page:       ingestdomain.PageMetadata{PageNum: page.PageNum, Sourcepage: fmt.Sprintf("%s#page=%d", doc.Sourcefile, page.PageNum)},
				ChunkID:    id,
				Text:       text,
				TokenCount: tokenCount,
				Tables:     wc.sortedRefs(wc.tableRefs),
				Figures:    wc.sortedRefs(wc.figureRefs),
			})
		}
	}

	return allChunks, warnings, nil
}

// atomizePage builds the ordered atom sequence for one enriched page:
// tables and figures become sentinels at their recorded offsets, the
// text between and around them is split at paragraph > sentence > word
// boundaries (step 1-2 of §4.2's algorithm).
func (c *Chunker) atomizePage(page ingestdomain.ExtractedPage, budget int) ([]textAtom, error) {
	type marker struct {
		start, end int
		kind, id   string
		text       string
		tokens     int
	}
	var markers []marker
	for i := range page.Tables {
		t := &page.Tables[i]
		tok, err := c.tokenCounter.Count(c.model, t.RenderedText)
		if err != nil {
			return nil, err
		}
		t.TokenCount = tok
		markers = append(markers, marker{t.OffsetStart, t.OffsetEnd, "table", t.TableID, t.RenderedText, t.TokenCount})
	}
	for i := range page.Images {
		im := &page.Images[i]
		tok, err := c.tokenCounter.Count(c.model, im.Description)
		if err != nil {
			return nil, err
		}
		markers = append(markers, marker{im.OffsetStart, im.OffsetEnd, "figure", im.FigureID, im.Description, tok})
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].start < markers[j].start })

	var atoms []textAtom
	cursor := 0
	for _, m := range markers {
		if m.start < cursor || m.start > len(page.Text) || m.end > len(page.Text) || m.end < m.start {
			continue // malformed offsets: ignore the marker, keep its text inline via the fallthrough text run
		}
		if m.start > cursor {
			pieces, err := c.atomizeText(page.Text[cursor:m.start], budget)
			if err != nil {
				return nil, err
			}
			atoms = append(atoms, pieces...)
		}
		atoms = append(atoms, textAtom{text: m.text, tokens: m.tokens, isSentinel: true, sentinelKind: m.kind, sentinelID: m.id})
		cursor = m.end
	}
	if cursor < len(page.Text) {
		pieces, err := c.atomizeText(page.Text[cursor:], budget)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, pieces...)
	}
	return atoms, nil
}

// atomizeText splits plain text at paragraph, then sentence, then word
// boundaries until every piece fits budget, never splitting inside a
// word (step 2).
func (c *Chunker) atomizeText(text string, budget int) ([]textAtom, error) {
	var atoms []textAtom
	for _, para := range splitParagraphs(text) {
		pieces, err := c.atomizeParagraph(para, budget)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, pieces...)
	}
	return atoms, nil
}

func (c *Chunker) atomizeParagraph(para string, budget int) ([]textAtom, error) {
	tok, err := c.tokenCounter.Count(c.model, para)
	if err != nil {
		return nil, err
	}
	if tok <= budget {
		return []textAtom{{text: para, tokens: tok}}, nil
	}

	sentences := splitSentences(para)
	if len(sentences) <= 1 {
		return c.atomizeWords(para, budget)
	}

	var atoms []textAtom
	for _, s := range sentences {
		stok, err := c.tokenCounter.Count(c.model, s)
		if err != nil {
			return nil, err
		}
		if stok <= budget {
			atoms = append(atoms, textAtom{text: s, tokens: stok})
			continue
		}
		wordAtoms, err := c.atomizeWords(s, budget)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, wordAtoms...)
	}
	return atoms, nil
}

// atomizeWords splits s into one atom per word. Words are never split;
// leaving them as individual atoms (rather than pre-grouping up to
// budget) lets packPage interleave carried-over overlap text with this
// sentence's own words without ever exceeding budget.
func (c *Chunker) atomizeWords(s string, budget int) ([]textAtom, error) {
	words := strings.Fields(s)
	var atoms []textAtom
	for _, w := range words {
		wt, err := c.tokenCounter.Count(c.model, w)
		if err != nil {
			return nil, err
		}
		atoms = append(atoms, textAtom{text: w, tokens: wt})
	}
	return atoms, nil
}

// workingChunk accumulates atoms for one chunk under construction.
type workingChunk struct {
	atoms      []textAtom
	tokens     int
	tableRefs  map[string]bool
	figureRefs map[string]bool
}

func newWorkingChunk() *workingChunk {
	return &workingChunk{tableRefs: map[string]bool{}, figureRefs: map[string]bool{}}
}

func (w *workingChunk) add(a textAtom) {
	w.atoms = append(w.atoms, a)
	w.tokens += a.tokens
	if a.isSentinel {
		switch a.sentinelKind {
		case "table":
			w.tableRefs[a.sentinelID] = true
		case "figure":
			w.figureRefs[a.sentinelID] = true
		}
	}
}

func (w *workingChunk) joinedText() string {
	parts := make([]string, len(w.atoms))
	for i, a := range w.atoms {
		parts[i] = a.text
	}
	return strings.Join(parts, " ")
}

func (w *workingChunk) endsWithSentinel() bool {
	return len(w.atoms) > 0 && w.atoms[len(w.atoms)-1].isSentinel
}

func (w *workingChunk) isSingleOversizeSentinel() bool {
	return len(w.atoms) == 1 && w.atoms[0].isSentinel
}

func (w *workingChunk) sortedRefs(refs map[string]bool) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, 0, len(refs))
	for id := range refs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// packPage implements steps 3-5 of the algorithm for one page's atoms:
// greedy packing (3), trailing overlap carried into the next chunk (4),
// and orphan merge of an undersized final chunk into its predecessor (5).
// It returns the page's chunks, the trailing overlap text of the page's
// final chunk (for cross-page seeding; empty when that chunk ends on a
// sentinel), and any warnings.
func (c *Chunker) packPage(atoms []textAtom, budget, overlapTokens int) ([]*workingChunk, string, []string, error) {
	var chunks []*workingChunk
	var pendingOverlap string
	cur := newWorkingChunk()

	closeCurrent := func() error {
		if len(cur.atoms) == 0 {
			return nil
		}
		if cur.endsWithSentinel() {
			pendingOverlap = ""
		} else {
			overlap, err := c.trailingOverlap(cur.joinedText(), overlapTokens)
			if err != nil {
				return err
			}
			pendingOverlap = overlap
		}
		chunks = append(chunks, cur)
		cur = newWorkingChunk()
		return nil
	}

	for _, a := range atoms {
		if cur.tokens > 0 && cur.tokens+a.tokens > budget {
			if err := closeCurrent(); err != nil {
				return nil, "", nil, err
			}
			if pendingOverlap != "" && !a.isSentinel {
				n, err := c.tokenCounter.Count(c.model, pendingOverlap)
				if err != nil {
					return nil, "", nil, err
				}
				cur.add(textAtom{text: pendingOverlap, tokens: n})
			}
		}
		cur.add(a)
	}
	if len(cur.atoms) > 0 {
		chunks = append(chunks, cur)
	}

	var warnings []string
	minOrphan := int(math.Round(math.Max(0.2*float64(budget), float64(overlapTokens))))
	if len(chunks) >= 2 {
		last := chunks[len(chunks)-1]
		prev := chunks[len(chunks)-2]
		if last.tokens < minOrphan && prev.tokens+last.tokens <= budget && !prev.isSingleOversizeSentinel() {
			for _, a := range last.atoms {
				prev.add(a)
			}
			chunks = chunks[:len(chunks)-1]
		}
	}

	tail := ""
	if n := len(chunks); n > 0 && !chunks[n-1].endsWithSentinel() {
		overlap, err := c.trailingOverlap(chunks[n-1].joinedText(), overlapTokens)
		if err != nil {
			return nil, "", nil, err
		}
		tail = overlap
	}

	return chunks, tail, warnings, nil
}

// trailingOverlap returns the longest word-aligned suffix of text whose
// token count is at least targetTokens, shrinking from the end word by
// word. It never splits inside a word.
func (c *Chunker) trailingOverlap(text string, targetTokens int) (string, error) {
	if targetTokens <= 0 || text == "" {
		return "", nil
	}
	words := strings.Fields(text)
	for start := len(words) - 1; start >= 0; start-- {
		candidate := strings.Join(words[start:], " ")
		n, err := c.tokenCounter.Count(c.model, candidate)
		if err != nil {
			return "", err
		}
		if n >= targetTokens {
			return candidate, nil
		}
	}
	return text, nil
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// splitSentences splits on ./!/? (and CJK equivalents), matching the
// corpus's CJK-aware sentence boundary detection.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	var cur strings.Builder
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		cur.WriteRune(r)

		if isSentenceEnd(r) {
			isEnd := true
			if i+1 < len(runes) {
				next := runes[i+1]
				if !unicode.IsSpace(next) && !unicode.IsUpper(next) && !isSentenceEnd(next) {
					if isCJK(r) || isCJK(next) {
						isEnd = !unicode.IsPunct(next) || isSentenceEnd(next)
					} else {
						isEnd = false
					}
				}
			}
			if isEnd {
				s := strings.TrimSpace(cur.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				cur.Reset()
				for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
					i++
				}
			}
		}
	}
	if cur.Len() > 0 {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '。' || r == '！' || r == '？'
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x3040 && r <= 0x309F) ||
		(r >= 0x30A0 && r <= 0x30FF) ||
		(r >= 0xAC00 && r <= 0xD7AF)
}
