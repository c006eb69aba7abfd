package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	imagePlaceholderRe = regexp.MustCompile(`^\[IMAGE_(\d+)\]$`)
	imageMarkerRe      = regexp.MustCompile(`\[IMAGE_\d+\]`)
)

// ImagePlaceholders lists every [IMAGE_N] marker in the markdown.
func ImagePlaceholders(markdown string) []string {
	return imageMarkerRe.FindAllString(markdown, -1)
}

// ImageNumber returns N for an [IMAGE_N] placeholder.
func ImageNumber(placeholder string) (int, bool) {
	m := imagePlaceholderRe.FindStringSubmatch(strings.TrimSpace(placeholder))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextImagePlaceholder returns [IMAGE_<max+1>] over the given placeholders.
// Entries that are not image placeholders are ignored.
func NextImagePlaceholder(existing []string) string {
	max := 0
	for _, ph := range existing {
		if n, ok := ImageNumber(ph); ok && n > max {
			max = n
		}
	}
	return fmt.Sprintf("[IMAGE_%d]", max+1)
}

// AppendPlaceholder adds the placeholder as its own paragraph at the end of
// the markdown.
func AppendPlaceholder(markdown, placeholder string) string {
	body := strings.TrimSpace(markdown)
	if body == "" {
		return placeholder + "\n"
	}
	return body + "\n\n" + placeholder + "\n"
}

// RemovePlaceholder drops every occurrence of the placeholder together with
// the blank space around it, leaving one paragraph break in its place.
func RemovePlaceholder(markdown, placeholder string) string {
	if placeholder == "" {
		return markdown
	}
	re := regexp.MustCompile(`\s*` + regexp.QuoteMeta(placeholder) + `\s*`)
	if !re.MatchString(markdown) {
		return markdown
	}
	return strings.TrimSpace(re.ReplaceAllString(markdown, "\n\n"))
}
