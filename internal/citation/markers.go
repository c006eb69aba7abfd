package citation

import (
	"regexp"
	"strconv"
	"strings"
)

const keyPrefix = "REF:"

var refMarkerRe = regexp.MustCompile(`\[REF:[ \t]*([^\]\r\n]+?)[ \t]*\]`)

// NormalizeKey trims whitespace and a stray "REF:" prefix from a content key.
func NormalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if len(key) >= len(keyPrefix) && strings.EqualFold(key[:len(keyPrefix)], keyPrefix) {
		key = strings.TrimSpace(key[len(keyPrefix):])
	}
	return key
}

// MarkerKeys lists the distinct keys of every [REF:key] marker, in order of
// first appearance.
func MarkerKeys(markdown string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range refMarkerRe.FindAllStringSubmatch(markdown, -1) {
		k := NormalizeKey(m[1])
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// RewriteKeys replaces each [REF:key] marker with [N] from numbers. Markers
// whose key has no number stay verbatim and are returned in unresolved.
// Only the REF: form is touched; [3], [IMAGE_1] and links pass through.
func RewriteKeys(markdown string, numbers map[string]int) (string, []string) {
	var unresolved []string
	seen := map[string]bool{}
	out := refMarkerRe.ReplaceAllStringFunc(markdown, func(marker string) string {
		m := refMarkerRe.FindStringSubmatch(marker)
		key := NormalizeKey(m[1])
		if n, ok := numbers[key]; ok && n > 0 {
			return "[" + strconv.Itoa(n) + "]"
		}
		if !seen[key] {
			seen[key] = true
			unresolved = append(unresolved, key)
		}
		return marker
	})
	return out, unresolved
}
