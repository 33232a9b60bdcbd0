// File path: internal/capability/local.go
package capability

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const localEmbeddingDim = 64

// LocalProvider is a deterministic, dependency-free provider used when no
// model backend is configured and throughout the test suite. Embeddings
// hash tokens into a fixed-length bag-of-words vector, so identical text
// always embeds identically and overlapping text scores higher cosine
// similarity than unrelated text.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	vectors := make([][]float32, len(input))
	for i, text := range input {
		vectors[i] = hashEmbedding(text)
	}
	return vectors, nil
}

func (l *LocalProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", fmt.Errorf("empty prompt")
	}
	// Naive co-occurrence edges between capitalized terms keep the
	// extraction pipeline functional in offline mode.
	terms := capitalizedTerms(userPrompt)
	if len(terms) < 2 {
		return "[]", nil
	}
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i+1 < len(terms) && i < 6; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"head":"%s","head_type":"CONCEPT","relation":"RELATED_TO","tail":"%s","tail_type":"CONCEPT"}`, terms[i], terms[i+1])
	}
	sb.WriteString("]")
	return sb.String(), nil
}

func (l *LocalProvider) Name() string {
	return "local"
}

func hashEmbedding(text string) []float32 {
	vec := make([]float32, localEmbeddingDim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?\"'()[]{}")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%localEmbeddingDim]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

func capitalizedTerms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, field := range strings.Fields(text) {
		field = strings.Trim(field, ".,;:!?\"'()[]{}")
		if len(field) < 2 {
			continue
		}
		runes := []rune(field)
		if !unicode.IsUpper(runes[0]) {
			continue
		}
		key := strings.ToUpper(field)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		terms = append(terms, field)
	}
	return terms
}

// LocalTagger is a heuristic part-of-speech tagger: alphabetic tokens not
// on the stopword list are tagged as nouns, digits as cardinal numbers,
// everything else as symbols. It stands in for a full NLP backend when
// none is deployed.
type LocalTagger struct{}

func NewLocalTagger() *LocalTagger {
	return &LocalTagger{}
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"do": {}, "does": {}, "did": {}, "have": {}, "has": {}, "had": {},
	"in": {}, "on": {}, "at": {}, "by": {}, "for": {}, "with": {}, "about": {},
	"to": {}, "from": {}, "of": {}, "as": {}, "into": {}, "over": {}, "under": {},
	"how": {}, "what": {}, "when": {}, "where": {}, "why": {}, "which": {}, "who": {},
	"it": {}, "its": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"can": {}, "could": {}, "will": {}, "would": {}, "should": {}, "may": {}, "might": {},
	"not": {}, "no": {}, "so": {}, "than": {}, "then": {}, "there": {}, "here": {},
	"affect": {}, "affects": {}, "cause": {}, "causes": {}, "make": {}, "makes": {},
}

func (t *LocalTagger) Tag(ctx context.Context, text string) ([]TaggedToken, error) {
	fields := strings.Fields(text)
	tagged := make([]TaggedToken, 0, len(fields))
	for _, field := range fields {
		token := strings.Trim(field, ".,;:!?\"'()[]{}")
		if token == "" {
			continue
		}
		lower := strings.ToLower(token)
		_, stop := stopwords[lower]
		switch {
		case isDigits(token):
			tagged = append(tagged, TaggedToken{Token: token, Tag: "CD"})
		case !isAlpha(token):
			tagged = append(tagged, TaggedToken{Token: token, Tag: "SYM"})
		case stop:
			tagged = append(tagged, TaggedToken{Token: token, Tag: "IN"})
		case strings.HasSuffix(lower, "ly"):
			tagged = append(tagged, TaggedToken{Token: token, Tag: "RB"})
		default:
			tagged = append(tagged, TaggedToken{Token: token, Tag: "NN"})
		}
	}
	return tagged, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != '-' {
			return false
		}
	}
	return len(s) > 0
}
