package extraction

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxCandidateRunes drops spans that grew into whole sentences.
const maxCandidateRunes = 30

// contextRunes bounds how many word-like runes are captured either side of a
// keyword.
const contextRunes = 10

// Candidate is a text span believed to reference a physical location.
// Start/End are byte offsets into the scanned text; within one extraction
// pass, surviving spans are pairwise non-overlapping.
type Candidate struct {
	RawText  string
	Start    int
	End      int
	Category string

	// Name is the normalized, map-searchable form of RawText.
	Name string
}

// Extractor mines free text for place candidates. The keyword cascade below
// is one implementation; a trained recognizer can be dropped in behind the
// same interface.
type Extractor interface {
	Extract(text string) []Candidate
}

type compiledKeyword struct {
	category string
	keyword  string
	re       *regexp.Regexp
}

// KeywordExtractor scans text with a bounded-context regex per category
// keyword. When no keyword fires and fallback is enabled, the whole input
// becomes a single unresolved candidate so callers always have something
// actionable. That trade of precision for coverage is deliberate policy.
type KeywordExtractor struct {
	keywords []compiledKeyword
	norm     *Normalizer
	fallback bool
}

// NewKeywordExtractor compiles the keyword groups. Nil groups select the
// built-in cascade; nil norm selects the default normalizer.
func NewKeywordExtractor(groups []KeywordGroup, norm *Normalizer, fallbackWholeText bool) *KeywordExtractor {
	if groups == nil {
		groups = DefaultKeywordGroups()
	}
	if norm == nil {
		norm = NewNormalizer("", 0)
	}

	var compiled []compiledKeyword
	for _, g := range groups {
		for _, kw := range g.Keywords {
			if kw == "" {
				continue
			}
			window := strconv.Itoa(contextRunes)
			re := regexp.MustCompile(
				`[\p{L}\p{N}_\s]{0,` + window + `}` +
					regexp.QuoteMeta(kw) +
					`[\p{L}\p{N}_\s]{0,` + window + `}`)
			compiled = append(compiled, compiledKeyword{category: g.Category, keyword: kw, re: re})
		}
	}

	return &KeywordExtractor{keywords: compiled, norm: norm, fallback: fallbackWholeText}
}

// Extract returns the deduplicated, non-overlapping candidate set for text,
// each with its normalized name filled in. Empty input yields no candidates;
// for any other input the result is non-empty when fallback is enabled.
func (e *KeywordExtractor) Extract(text string) []Candidate {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var candidates []Candidate
	for _, kw := range e.keywords {
		if !strings.Contains(text, kw.keyword) {
			continue
		}
		for _, span := range kw.re.FindAllStringIndex(text, -1) {
			raw := text[span[0]:span[1]]
			if utf8.RuneCountInString(strings.TrimSpace(raw)) > maxCandidateRunes {
				continue
			}
			candidates = append(candidates, Candidate{
				RawText:  raw,
				Start:    span[0],
				End:      span[1],
				Category: kw.category,
			})
		}
	}

	candidates = resolveOverlaps(candidates)

	if len(candidates) == 0 && e.fallback {
		start := strings.Index(text, trimmed)
		candidates = []Candidate{{
			RawText: trimmed,
			Start:   start,
			End:     start + len(trimmed),
		}}
	}

	for i := range candidates {
		candidates[i].Name = e.norm.Normalize(candidates[i].RawText)
	}
	return candidates
}

// resolveOverlaps drops exact duplicates, drops candidates fully contained
// in another, and finally sweeps left to right so survivors never overlap.
func resolveOverlaps(candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	type span struct{ start, end int }
	seen := make(map[span]bool, len(candidates))
	var unique []Candidate
	for _, c := range candidates {
		k := span{c.Start, c.End}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, c)
	}

	var kept []Candidate
	for _, c := range unique {
		contained := false
		for _, other := range unique {
			if other.Start == c.Start && other.End == c.End {
				continue
			}
			if other.Start <= c.Start && other.End >= c.End {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, c)
		}
	}

	// Longer span first on equal starts so the sweep keeps it.
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Start != kept[j].Start {
			return kept[i].Start < kept[j].Start
		}
		return kept[i].End > kept[j].End
	})

	var result []Candidate
	lastEnd := -1
	for _, c := range kept {
		if c.Start < lastEnd {
			continue
		}
		result = append(result, c)
		lastEnd = c.End
	}
	return result
}
