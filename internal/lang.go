package internal

import "strings"

// MatchLanguage returns the index of the candidate language tag that best
// matches want, or -1 when nothing matches. Exact (case-insensitive) matches
// win over primary-subtag matches, which win over 2/3-letter macro-language
// prefix matches ("fra" matches "fr"). Ties go to the first candidate.
func MatchLanguage(tags []string, want string) int {
	if want == "" {
		return -1
	}
	w := strings.ToLower(want)
	for i, tag := range tags {
		if strings.ToLower(tag) == w {
			return i
		}
	}
	wp := primarySubtag(w)
	for i, tag := range tags {
		if primarySubtag(strings.ToLower(tag)) == wp {
			return i
		}
	}
	for i, tag := range tags {
		if macroMatch(primarySubtag(strings.ToLower(tag)), wp) {
			return i
		}
	}
	return -1
}

// primarySubtag strips region and script subtags: "en-US" becomes "en".
func primarySubtag(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		return tag[:i]
	}
	return tag
}

// macroMatch reports whether a 3-letter and a 2-letter code refer to the
// same primary language by prefix ("fra" and "fr").
func macroMatch(a, b string) bool {
	if len(a) == 3 && len(b) == 2 {
		return strings.HasPrefix(a, b)
	}
	if len(a) == 2 && len(b) == 3 {
		return strings.HasPrefix(b, a)
	}
	return false
}
