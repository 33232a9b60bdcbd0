// File path: internal/extract/repair.go
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// repairStrategy is one link of the response repair cascade. Strategies
// run in order and the first one producing at least one valid edge wins.
type repairStrategy struct {
	name    string
	attempt func(raw string) ([]Edge, error)
}

var repairStrategies = []repairStrategy{
	{name: "array_parse", attempt: parseArray},
	{name: "object_split", attempt: parseObjectSplit},
	{name: "fragment_scan", attempt: parseFragments},
	{name: "pair_regroup", attempt: regroupPairs},
}

// repairResponse walks the cascade and returns the first non-empty edge
// set, the winning strategy's name, and every error collected along the
// way for the per-chunk debug record.
func repairResponse(raw string) ([]Edge, string, []error) {
	var strategyErrs []error
	for _, strategy := range repairStrategies {
		edges, err := strategy.attempt(raw)
		if err != nil {
			strategyErrs = append(strategyErrs, fmt.Errorf("%s: %w", strategy.name, err))
			continue
		}
		if len(edges) == 0 {
			strategyErrs = append(strategyErrs, fmt.Errorf("%s: no valid edges", strategy.name))
			continue
		}
		return edges, strategy.name, strategyErrs
	}
	return nil, "", strategyErrs
}

// parseArray strips markdown fences, slices the substring between the
// first '[' and the last ']', and parses it as a standard JSON array,
// keeping only objects carrying all five required fields.
func parseArray(raw string) ([]Edge, error) {
	body, err := arrayBody(raw)
	if err != nil {
		return nil, err
	}
	var candidates []Edge
	if err := json.Unmarshal([]byte("["+body+"]"), &candidates); err != nil {
		return nil, err
	}
	return keepValid(candidates), nil
}

// parseObjectSplit splits the array body on the "},{" boundary and parses
// each fragment independently, so one malformed object does not discard
// the rest.
func parseObjectSplit(raw string) ([]Edge, error) {
	body, err := arrayBody(raw)
	if err != nil {
		return nil, err
	}
	fragments := strings.Split(body, "},{")
	var edges []Edge
	for _, fragment := range fragments {
		fragment = strings.TrimSpace(fragment)
		fragment = strings.TrimPrefix(fragment, "{")
		fragment = strings.TrimSuffix(fragment, "}")
		var edge Edge
		if err := json.Unmarshal([]byte("{"+fragment+"}"), &edge); err != nil {
			continue
		}
		if edge.Valid() {
			edges = append(edges, edge)
		}
	}
	return edges, nil
}

var (
	braceFragmentRe = regexp.MustCompile(`\{[^{}]*\}`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	trailingCommaRe = regexp.MustCompile(`,\s*}`)
)

// parseFragments regex-scans for brace-delimited fragments mentioning both
// head and tail, quotes bare keys, strips trailing commas, and parses each
// fragment in isolation.
func parseFragments(raw string) ([]Edge, error) {
	fragments := braceFragmentRe.FindAllString(raw, -1)
	if len(fragments) == 0 {
		return nil, errors.New("no brace fragments found")
	}
	var edges []Edge
	for _, fragment := range fragments {
		if !strings.Contains(fragment, "head") || !strings.Contains(fragment, "tail") {
			continue
		}
		fragment = bareKeyRe.ReplaceAllString(fragment, `$1"$2"$3`)
		fragment = trailingCommaRe.ReplaceAllString(fragment, "}")
		var edge Edge
		if err := json.Unmarshal([]byte(fragment), &edge); err != nil {
			continue
		}
		if edge.Valid() {
			edges = append(edges, edge)
		}
	}
	return edges, nil
}

var pairRe = regexp.MustCompile(`"(head|head_type|relation|tail|tail_type)"\s*:\s*"([^"]*)"`)

// regroupPairs is the last-resort reconstruction: it scans for known
// key/value pairs and starts a new edge whenever another "head" pair
// appears.
func regroupPairs(raw string) ([]Edge, error) {
	pairs := pairRe.FindAllStringSubmatch(raw, -1)
	if len(pairs) == 0 {
		return nil, errors.New("no recognizable field pairs")
	}
	var edges []Edge
	current := Edge{}
	started := false
	flush := func() {
		if started && current.Valid() {
			edges = append(edges, current)
		}
		current = Edge{}
	}
	for _, pair := range pairs {
		key, value := pair[1], pair[2]
		if key == "head" {
			flush()
			started = true
		}
		switch key {
		case "head":
			current.Head = value
		case "head_type":
			current.HeadType = value
		case "relation":
			current.Relation = value
		case "tail":
			current.Tail = value
		case "tail_type":
			current.TailType = value
		}
	}
	flush()
	return edges, nil
}

func arrayBody(raw string) (string, error) {
	cleaned := stripFences(raw)
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end < 0 || end <= start {
		return "", errors.New("no JSON array delimiters found")
	}
	return cleaned[start+1 : end], nil
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```")
	if idx := strings.Index(cleaned, "\n"); idx >= 0 {
		cleaned = cleaned[idx+1:]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

func keepValid(candidates []Edge) []Edge {
	var edges []Edge
	for _, candidate := range candidates {
		if candidate.Valid() {
			edges = append(edges, candidate)
		}
	}
	return edges
}
