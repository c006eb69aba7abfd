package bibliography

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/pedrohsmesquita/Lectria/internal/citation"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
)

// TextEdit rewrites the text of a reference that keeps its number.
type TextEdit struct {
	ReferenceID uuid.UUID
	Number      int
	Text        string
}

// Move records a reference that keeps its identity but changes number.
type Move struct {
	ReferenceID uuid.UUID
	From        int
	To          int
}

// Plan is the classification of a submitted bibliography against the store.
type Plan struct {
	Moves   []Move
	Edits   []TextEdit
	Creates []citation.Entry
	Deletes []*types.GlobalReference
	// Unchanged counts entries that matched a reference at its own number
	// with identical text.
	Unchanged int
}

// Renumber maps old number to new number for every move.
func (p Plan) Renumber() map[int]int {
	out := make(map[int]int, len(p.Moves))
	for _, m := range p.Moves {
		out[m.From] = m.To
	}
	return out
}

// DeletedNumbers is the set of numbers whose references disappear.
func (p Plan) DeletedNumbers() map[int]bool {
	out := make(map[int]bool, len(p.Deletes))
	for _, r := range p.Deletes {
		out[r.Number] = true
	}
	return out
}

func (p Plan) IsNoop() bool {
	return len(p.Moves) == 0 && len(p.Edits) == 0 && len(p.Creates) == 0 && len(p.Deletes) == 0
}

// BuildPlan classifies every submitted entry.
//
// Text equality is evaluated first for all entries: an entry whose text equals
// a stored reference's text is that reference, moved if the number differs.
// Only entries left unmatched fall back to position: the stored reference at
// that number, if no text match already took it, is edited in place.
// Everything else is new, and stored references nobody claimed are deleted.
// Each stored reference is claimed at most once.
func BuildPlan(current []*types.GlobalReference, entries []citation.Entry) Plan {
	byNumber := make(map[int]*types.GlobalReference, len(current))
	byText := make(map[string][]*types.GlobalReference, len(current))
	sorted := append([]*types.GlobalReference(nil), current...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })
	for _, r := range sorted {
		byNumber[r.Number] = r
		t := strings.TrimSpace(r.Text)
		byText[t] = append(byText[t], r)
	}

	claimed := make(map[uuid.UUID]bool, len(current))
	matched := make([]*types.GlobalReference, len(entries))

	for i, e := range entries {
		candidates := byText[strings.TrimSpace(e.Text)]
		var pick *types.GlobalReference
		for _, c := range candidates {
			if claimed[c.ID] {
				continue
			}
			if c.Number == e.Position {
				pick = c
				break
			}
			if pick == nil {
				pick = c
			}
		}
		if pick != nil {
			claimed[pick.ID] = true
			matched[i] = pick
		}
	}

	var plan Plan
	for i, e := range entries {
		if ref := matched[i]; ref != nil {
			if ref.Number != e.Position {
				plan.Moves = append(plan.Moves, Move{ReferenceID: ref.ID, From: ref.Number, To: e.Position})
			} else {
				plan.Unchanged++
			}
			continue
		}
		if ref, ok := byNumber[e.Position]; ok && !claimed[ref.ID] {
			claimed[ref.ID] = true
			if strings.TrimSpace(ref.Text) != strings.TrimSpace(e.Text) {
				plan.Edits = append(plan.Edits, TextEdit{ReferenceID: ref.ID, Number: ref.Number, Text: strings.TrimSpace(e.Text)})
			} else {
				plan.Unchanged++
			}
			continue
		}
		plan.Creates = append(plan.Creates, e)
	}

	for _, r := range sorted {
		if !claimed[r.ID] {
			plan.Deletes = append(plan.Deletes, r)
		}
	}
	return plan
}
