// File path: internal/extract/prompt.go

// Package extract turns text chunks into validated entity-relation edges
// through a language-model call, a multi-strategy JSON repair cascade, and
// bounded retries. Results are cached by chunk content hash.
package extract

import "strings"

const systemPrompt = `You are a knowledge-graph extraction engine. Extract entity-relation edges from the provided text.

Rules:
- Respond with ONLY a single-line JSON array, no markdown fences, no commentary.
- Each element must be an object with exactly these keys: "head", "head_type", "relation", "tail", "tail_type".
- "head" and "tail" are entity surface forms copied from the text.
- "head_type" and "tail_type" are short upper-case category labels such as PERSON, ORG, CONCEPT, LOCATION, EVENT.
- "relation" is a short upper-case verb phrase such as CAUSES, REDUCES, PART_OF, LOCATED_IN.
- Extract at least three edges when the text supports them.
- Never invent entities that do not appear in the text.`

// Edge is one extracted entity-relation edge before resolution into graph
// rows. All five fields are required for the edge to be trusted.
type Edge struct {
	Head     string `json:"head"`
	HeadType string `json:"head_type"`
	Relation string `json:"relation"`
	Tail     string `json:"tail"`
	TailType string `json:"tail_type"`
}

// Valid reports whether every required field carries a value.
func (e Edge) Valid() bool {
	return strings.TrimSpace(e.Head) != "" &&
		strings.TrimSpace(e.HeadType) != "" &&
		strings.TrimSpace(e.Relation) != "" &&
		strings.TrimSpace(e.Tail) != "" &&
		strings.TrimSpace(e.TailType) != ""
}

// normalize trims whitespace and upper-cases the category and relation
// labels so downstream dedup sees a canonical form.
func (e Edge) normalize() Edge {
	return Edge{
		Head:     strings.TrimSpace(e.Head),
		HeadType: strings.ToUpper(strings.TrimSpace(e.HeadType)),
		Relation: strings.ToUpper(strings.TrimSpace(e.Relation)),
		Tail:     strings.TrimSpace(e.Tail),
		TailType: strings.ToUpper(strings.TrimSpace(e.TailType)),
	}
}

func userPrompt(text string) string {
	return "Text:\n" + text + "\n\nJSON array:"
}
