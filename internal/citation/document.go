package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
)

// entryRe matches one bibliography line: "[N] text". Leading indentation is
// tolerated; the text never spans lines.
var entryRe = regexp.MustCompile(`(?m)^[ \t]*\[(\d+)\][ \t]+(\S.*?)[ \t\r]*$`)

// Entry is one submitted bibliography line. Position is the number the author
// wrote, which is not necessarily a number the store knows about.
type Entry struct {
	Position int
	Text     string
}

// ParseDocument extracts entries in document order. Lines that do not look
// like an entry are ignored. When a position repeats, the later text wins and
// keeps the slot of the first occurrence.
func ParseDocument(doc string) ([]Entry, error) {
	matches := entryRe.FindAllStringSubmatch(doc, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no bibliography entries of the form \"[N] text\" found", apperrors.ErrInvalidArgument)
	}
	out := make([]Entry, 0, len(matches))
	slot := make(map[int]int, len(matches))
	for _, m := range matches {
		pos, err := strconv.Atoi(m[1])
		if err != nil || pos <= 0 {
			return nil, fmt.Errorf("%w: invalid bibliography number [%s]", apperrors.ErrInvalidArgument, m[1])
		}
		text := strings.TrimSpace(m[2])
		if i, ok := slot[pos]; ok {
			out[i].Text = text
			continue
		}
		slot[pos] = len(out)
		out = append(out, Entry{Position: pos, Text: text})
	}
	return out, nil
}

// Render produces the canonical bibliography document. Entries are written in
// the given order, one paragraph each, so ParseDocument(Render(x)) == x.
func Render(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[")
		b.WriteString(strconv.Itoa(e.Position))
		b.WriteString("] ")
		b.WriteString(strings.TrimSpace(e.Text))
	}
	return b.String()
}
