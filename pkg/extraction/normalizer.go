// Package extraction mines AI answer text for place references and turns
// the raw spans into clean, map-searchable queries. The keyword cascade is a
// best-effort pattern system tuned for precision over recall, not a trained
// entity recognizer.
package extraction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultLocality replaces the unresolved "OO" qualifier the AI emits
	// when it does not know the user's neighborhood.
	DefaultLocality = "서울"

	// DefaultMaxQueryLength caps normalized names, in runes.
	DefaultMaxQueryLength = 15

	// fallbackName is returned when every cleanup step strips the span to
	// nothing. Callers must never see an empty place name.
	fallbackName = "공원"

	// placeholderPrefix marks a yet-unresolved locality qualifier at the
	// start of a span.
	placeholderPrefix = "OO "
)

// discourseMarkers begin trailing clauses ("at this place", "is/are",
// "doing X") that carry no part of the place name. The span is truncated at
// the earliest one.
var discourseMarkers = []string{
	" 이곳은",
	" 여기는",
	" 에서는",
	" 에서",
	" 에 가",
	" 가보시는",
}

var (
	particleSplitRe  = regexp.MustCompile(`[은는] `)
	recommendationRe = regexp.MustCompile(`\s*(?:추천드려요|어떠세요|좋을 것 같아요|괜찮을 것 같아요).*$`)
	keywordAnchorRe  = regexp.MustCompile(`^[\p{L}\p{N}\s]{1,19}(?:공원|놀이터|키즈카페|어린이|수영장|체육관|도서관|박물관|마트|병원|센터|카페|식당|체험관|학교)`)
)

// Normalizer turns a raw extracted span into a bounded, display-safe place
// name containing only letters, digits and spaces. Normalize is pure,
// deterministic and idempotent.
type Normalizer struct {
	locality string
	maxLen   int
}

// NewNormalizer builds a normalizer. Empty locality or non-positive maxLen
// fall back to the package defaults.
func NewNormalizer(locality string, maxLen int) *Normalizer {
	if locality == "" {
		locality = DefaultLocality
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxQueryLength
	}
	return &Normalizer{locality: locality, maxLen: maxLen}
}

// Normalize runs the cleanup pipeline until the output is stable. A single
// pass is almost always enough; the fixed point guard keeps the result
// idempotent when a step re-exposes a pattern an earlier step looks for.
func (n *Normalizer) Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	for i := 0; i < 4; i++ {
		next := n.pass(s)
		if next == s {
			break
		}
		s = next
	}
	if s == "" {
		return fallbackName
	}
	return s
}

func (n *Normalizer) pass(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = n.resolvePlaceholder(s)
	s = trimDiscourse(s)
	s = recommendationRe.ReplaceAllString(s, "")

	// Prefer the first keyword-anchored noun phrase over the untrimmed
	// remainder when it is shorter.
	if m := keywordAnchorRe.FindString(s); m != "" &&
		utf8.RuneCountInString(m) < utf8.RuneCountInString(s) {
		s = m
	}

	s = scrub(s)
	s = capLength(s, n.maxLen)
	return s
}

// resolvePlaceholder substitutes the configured locality for a leading "OO"
// qualifier instead of deleting it outright.
func (n *Normalizer) resolvePlaceholder(s string) string {
	if !strings.HasPrefix(s, placeholderPrefix) {
		return s
	}
	rest := strings.TrimSpace(strings.TrimPrefix(s, placeholderPrefix))
	if rest == "" {
		return n.locality
	}
	return n.locality + " " + rest
}

func trimDiscourse(s string) string {
	cut := len(s)
	for _, m := range discourseMarkers {
		if i := strings.Index(s, m); i >= 0 && i < cut {
			cut = i
		}
	}
	s = s[:cut]

	// "어린이공원은 넓은..." keeps only the text before the topic particle.
	if loc := particleSplitRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return s
}

// scrub keeps Unicode letters, digits and spaces only, then collapses
// whitespace.
func scrub(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func capLength(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	// Too long for a search query: fall back to the first word, truncated
	// if even that overflows.
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	if utf8.RuneCountInString(s) > maxLen {
		s = string([]rune(s)[:maxLen])
	}
	return strings.TrimSpace(s)
}
