// Package extract turns raw wiki pages into the initial generation of
// vertex records: one record per useful article, keyed by normalized
// title, carrying the deduplicated set of outbound link targets.
package extract

import (
	"strings"

	"github.com/dd0wney/wikibfs/pkg/bfs"
	"github.com/dd0wney/wikibfs/pkg/mapred"
)

// skippablePrefixes are namespace prefixes whose pages are not
// articles. Pages with these titles produce no vertex, and links to
// them are dropped.
var skippablePrefixes = []string{
	"File:",
	"Category:",
	"Portal:",
	"Wikipedia:",
	"Image:",
}

// Normalize lowercases a title and strips the field-separator
// character, so the same article is always one vertex id regardless
// of link casing and ids can never break the wire format.
func Normalize(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), bfs.FieldSep, "")
}

// HasSkippablePrefix reports whether a title belongs to a
// non-article namespace. Checked before normalization: the prefixes
// are cased as they appear in page titles.
func HasSkippablePrefix(title string) bool {
	for _, prefix := range skippablePrefixes {
		if strings.HasPrefix(title, prefix) {
			return true
		}
	}
	return false
}

// ExtractLinks scans page text for [[target]] and [[target|display]]
// link markup and returns the set of raw targets, deduplicated. The
// display text is discarded. An unterminated link or an empty [[]]
// ends the scan, matching how sloppy markup is tolerated upstream.
func ExtractLinks(text string) []string {
	seen := make(map[string]struct{})
	var links []string

	linkEnd := 0
	for {
		linkStart := strings.Index(text[linkEnd:], "[[")
		if linkStart < 0 {
			break
		}
		linkStart += linkEnd

		rest := strings.Index(text[linkStart:], "]]")
		if rest < 0 || rest <= 2 {
			break
		}
		linkEnd = linkStart + rest

		linkText := text[linkStart+2 : linkEnd]
		if pipe := strings.Index(linkText, "|"); pipe > 0 {
			linkText = linkText[:pipe]
		}

		if _, ok := seen[linkText]; !ok {
			seen[linkText] = struct{}{}
			links = append(links, linkText)
		}
	}

	return links
}

// isUseful reports whether a page is a real article worth a vertex.
// Redirects, stubs, empty pages and non-article namespaces are not.
func isUseful(title, text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(strings.ToUpper(trimmed), "#REDIRECT") {
		return false
	}
	if strings.Contains(text, "-stub}}") {
		return false
	}
	return !HasSkippablePrefix(title)
}

// NewExtractTask returns the map func for the extraction pass. Input
// records are raw pages keyed by title; output records are initial
// vertex records. The vertex matching sourceID is seeded at distance
// 0 and GRAY and counted under found_source; every other vertex
// starts unreached and WHITE. Pages whose surviving link set is empty
// are elided: they cannot originate a path and only reappear later as
// edgeless discovery targets if something links to them.
func NewExtractTask(sourceID string) mapred.MapFunc {
	return func(kv mapred.KV, c mapred.Counters) ([]mapred.KV, error) {
		title, text := kv.Key, kv.Value
		if !isUseful(title, text) {
			return nil, nil
		}

		// Deduplicate after normalization: differently-cased links to
		// the same article are one neighbor id.
		seen := make(map[string]struct{})
		var neighbors []string
		for _, link := range ExtractLinks(text) {
			if HasSkippablePrefix(link) {
				continue
			}
			normalized := Normalize(link)
			if normalized == "" {
				continue
			}
			if _, ok := seen[normalized]; ok {
				continue
			}
			seen[normalized] = struct{}{}
			neighbors = append(neighbors, normalized)
		}

		// Isolated-vertex elision.
		if len(neighbors) == 0 {
			return nil, nil
		}

		rec := bfs.VertexRecord{
			ID:        Normalize(title),
			Neighbors: neighbors,
			Distance:  bfs.InfiniteDistance,
			Color:     bfs.White,
		}

		if rec.ID == sourceID {
			rec.Distance = 0
			rec.Color = bfs.Gray
			c.Inc(bfs.CounterFoundSource)
		}

		return []mapred.KV{{Key: rec.ID, Value: rec.Encode()}}, nil
	}
}

// IdentityReduce passes every value for a key straight through. The
// extraction pass only needs the shuffle, not a fold.
func IdentityReduce(key string, values []string, c mapred.Counters) ([]mapred.KV, error) {
	out := make([]mapred.KV, 0, len(values))
	for _, value := range values {
		out = append(out, mapred.KV{Key: key, Value: value})
	}
	return out, nil
}
