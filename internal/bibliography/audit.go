package bibliography

import (
	"sort"

	"github.com/google/uuid"

	"github.com/pedrohsmesquita/Lectria/internal/citation"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
)

type DanglingCitation struct {
	SectionID uuid.UUID `json:"section_id"`
	Title     string    `json:"title"`
	Numbers   []int     `json:"numbers"`
}

type UnresolvedMarkers struct {
	SectionID uuid.UUID `json:"section_id"`
	Title     string    `json:"title"`
	Keys      []string  `json:"keys"`
}

// AuditReport checks the at-rest invariant: every number cited in prose has a
// live reference. Orphans (references nobody cites) are reported but do not
// make the book inconsistent.
type AuditReport struct {
	BookID            uuid.UUID           `json:"book_id"`
	ReferenceCount    int                 `json:"reference_count"`
	Dangling          []DanglingCitation  `json:"dangling,omitempty"`
	Unresolved        []UnresolvedMarkers `json:"unresolved,omitempty"`
	OrphanNumbers     []int               `json:"orphan_numbers,omitempty"`
	NonPositiveNumber []int               `json:"non_positive_numbers,omitempty"`
	Consistent        bool                `json:"consistent"`
}

// Audit is a pure check over a snapshot of references and content sections.
func Audit(bookID uuid.UUID, refs []*types.GlobalReference, sections []*types.Section) *AuditReport {
	rep := &AuditReport{BookID: bookID, ReferenceCount: len(refs)}
	live := make(map[int]bool, len(refs))
	for _, r := range refs {
		live[r.Number] = true
		if r.Number <= 0 {
			rep.NonPositiveNumber = append(rep.NonPositiveNumber, r.Number)
		}
	}

	cited := map[int]bool{}
	for _, s := range sections {
		content := s.Content()
		if content == "" {
			continue
		}
		var missing []int
		for _, n := range citation.Numbers(content) {
			cited[n] = true
			if !live[n] {
				missing = append(missing, n)
			}
		}
		if len(missing) > 0 {
			rep.Dangling = append(rep.Dangling, DanglingCitation{SectionID: s.ID, Title: s.Title, Numbers: missing})
		}
		if keys := citation.MarkerKeys(content); len(keys) > 0 {
			rep.Unresolved = append(rep.Unresolved, UnresolvedMarkers{SectionID: s.ID, Title: s.Title, Keys: keys})
		}
	}
	for n := range live {
		if !cited[n] {
			rep.OrphanNumbers = append(rep.OrphanNumbers, n)
		}
	}
	sort.Ints(rep.OrphanNumbers)
	rep.Consistent = len(rep.Dangling) == 0 && len(rep.Unresolved) == 0 && len(rep.NonPositiveNumber) == 0
	return rep
}
