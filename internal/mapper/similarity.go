package mapper

import "strings"

// normalizeKey lowercases a header and strips everything that is not a
// letter or digit, so "First Name", "first_name" and "FIRSTNAME" all
// compare equal.
func normalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// similarity scores a cleaned header against a set of cleaned patterns.
// An exact match is 1.0, containment either way is at least 0.8, and
// otherwise the best sequence ratio across patterns wins.
func similarity(source string, patterns []string) float64 {
	best := 0.0
	for _, p := range patterns {
		if source == p {
			return 1.0
		}
		if strings.Contains(source, p) || strings.Contains(p, source) {
			if best < 0.8 {
				best = 0.8
			}
		}
		if r := ratio(source, p); r > best {
			best = r
		}
	}
	return best
}

// ratio is the classic matching-blocks similarity: twice the number of
// matched characters over the combined length. Matches are found by
// taking the longest common substring and recursing on both sides.
func ratio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	m := matchingChars(a, b)
	return 2.0 * float64(m) / float64(len(a)+len(b))
}

func matchingChars(a, b string) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:ai], b[:bi])
	total += matchingChars(a[ai+size:], b[bi+size:])
	return total
}

func longestCommonSubstring(a, b string) (ai, bi, size int) {
	// lengths[j] tracks the common suffix length ending at b[j-1] for
	// the current a position.
	lengths := make([]int, len(b)+1)
	for i := 0; i < len(a); i++ {
		for j := len(b); j > 0; j-- {
			if a[i] == b[j-1] {
				lengths[j] = lengths[j-1] + 1
				if lengths[j] > size {
					size = lengths[j]
					ai = i - size + 1
					bi = j - size
				}
			} else {
				lengths[j] = 0
			}
		}
	}
	return ai, bi, size
}
