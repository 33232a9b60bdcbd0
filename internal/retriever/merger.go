// File path: internal/retriever/merger.go
package retriever

import (
	"fmt"
	"math"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/nicodishanthj/corpusfuse/internal/common"
	"github.com/nicodishanthj/corpusfuse/internal/entity"
)

// MergedContext is the final answer context for one query.
type MergedContext struct {
	OrderedTexts     []string
	TotalTokens      int
	PassageTokens    int
	TripleTokens     int
	PassagesIncluded int
	TriplesIncluded  int
	TokenBudget      int
}

// Merger allocates a token budget across reranked passages and graph
// triples: passages first in rank order, then triples, greedily until the
// first candidate that would overflow, which halts iteration.
type Merger struct {
	contextWindowTokens int
	maxContextFraction  float64
	counter             *tokenCounter
}

func NewMerger(cfg Config) *Merger {
	window := cfg.ContextWindowTokens
	if window <= 0 {
		window = DefaultConfig().ContextWindowTokens
	}
	fraction := cfg.MaxContextFraction
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultConfig().MaxContextFraction
	}
	return &Merger{
		contextWindowTokens: window,
		maxContextFraction:  fraction,
		counter:             newTokenCounter(),
	}
}

// Merge builds the ordered candidate list and fills the budget. The first
// candidate that would overflow is dropped and iteration stops; candidates
// are never split.
func (m *Merger) Merge(passages []RetrievedPassage, triples []entity.Triple) MergedContext {
	budget := int(math.Floor(float64(m.contextWindowTokens) * m.maxContextFraction))
	merged := MergedContext{TokenBudget: budget}

	for _, passage := range passages {
		tokens := m.counter.count(passage.Text)
		if merged.TotalTokens+tokens > budget {
			return merged
		}
		merged.OrderedTexts = append(merged.OrderedTexts, passage.Text)
		merged.TotalTokens += tokens
		merged.PassageTokens += tokens
		merged.PassagesIncluded++
	}
	for _, triple := range triples {
		text := formatTriple(triple)
		tokens := m.counter.count(text)
		if merged.TotalTokens+tokens > budget {
			return merged
		}
		merged.OrderedTexts = append(merged.OrderedTexts, text)
		merged.TotalTokens += tokens
		merged.TripleTokens += tokens
		merged.TriplesIncluded++
	}
	return merged
}

func formatTriple(triple entity.Triple) string {
	return fmt.Sprintf("%s %s %s", triple.Relation.SourceName, triple.Relation.Type, triple.Relation.TargetName)
}

// tokenCounter counts tokens with the cl100k_base encoding, lazily loaded.
// When the encoding data cannot load it falls back to a rune heuristic of
// roughly four characters per token.
type tokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

func newTokenCounter() *tokenCounter {
	return &tokenCounter{}
}

func (t *tokenCounter) count(text string) int {
	if text == "" {
		return 0
	}
	t.once.Do(func() {
		encoding, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			common.Logger().Warn("retriever: tokenizer unavailable, using rune heuristic", "error", err)
			return
		}
		t.encoding = encoding
	})
	if t.encoding != nil {
		return len(t.encoding.Encode(text, nil, nil))
	}
	runes := utf8.RuneCountInString(text)
	tokens := runes / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}
