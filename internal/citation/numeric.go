package citation

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type numericMarker struct {
	start, end int
	number     int
}

// scanNumeric finds every standalone [N] marker. A marker touching a letter,
// digit or underscore on either side (x[1], [1]a) is not a citation.
func scanNumeric(s string) []numericMarker {
	var out []numericMarker
	for i := 0; i < len(s); i++ {
		if s[i] != '[' {
			continue
		}
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == i+1 || j >= len(s) || s[j] != ']' {
			continue
		}
		end := j + 1
		if i > 0 {
			r, _ := utf8.DecodeLastRuneInString(s[:i])
			if isWordRune(r) {
				continue
			}
		}
		if end < len(s) {
			r, _ := utf8.DecodeRuneInString(s[end:])
			if isWordRune(r) {
				continue
			}
		}
		n, err := strconv.Atoi(s[i+1 : j])
		if err != nil {
			continue
		}
		out = append(out, numericMarker{start: i, end: end, number: n})
		i = j
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Numbers returns the distinct cited numbers in ascending order.
func Numbers(markdown string) []int {
	seen := map[int]bool{}
	var out []int
	for _, m := range scanNumeric(markdown) {
		if !seen[m.number] {
			seen[m.number] = true
			out = append(out, m.number)
		}
	}
	sort.Ints(out)
	return out
}

// Permute applies a renumbering and a deletion set to every [N] marker.
//
// Renumbered markers are first staged under a placeholder unique to the old
// number and only then turned into their final [new] form, so a chain such as
// 2->5, 5->9 never rewrites a freshly written [5]. Deleted markers become "".
// Markers in neither set are left alone.
func Permute(markdown string, renumber map[int]int, deleted map[int]bool) string {
	if len(renumber) == 0 && len(deleted) == 0 {
		return markdown
	}
	markers := scanNumeric(markdown)
	if len(markers) == 0 {
		return markdown
	}

	prefix := stagingPrefix(markdown)
	staged := make(map[int]string)

	var b strings.Builder
	b.Grow(len(markdown))
	last := 0
	for _, m := range markers {
		if deleted[m.number] {
			b.WriteString(markdown[last:m.start])
			last = m.end
			continue
		}
		if _, ok := renumber[m.number]; ok {
			b.WriteString(markdown[last:m.start])
			tok := prefix + strconv.Itoa(m.number) + stagingClose
			staged[m.number] = tok
			b.WriteString(tok)
			last = m.end
		}
	}
	b.WriteString(markdown[last:])

	if len(staged) == 0 {
		return b.String()
	}
	pairs := make([]string, 0, len(staged)*2)
	for old, tok := range staged {
		pairs = append(pairs, tok, "["+strconv.Itoa(renumber[old])+"]")
	}
	return strings.NewReplacer(pairs...).Replace(b.String())
}

const (
	stagingOpen  = "⟦BIBREF"
	stagingClose = "⟧"
)

// stagingPrefix picks a placeholder prefix that does not occur in s.
func stagingPrefix(s string) string {
	p := stagingOpen
	for strings.Contains(s, p) {
		p += "#"
	}
	return p + ":"
}
