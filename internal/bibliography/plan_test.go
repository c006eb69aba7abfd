package bibliography

import (
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/pedrohsmesquita/Lectria/internal/citation"
	types "github.com/pedrohsmesquita/Lectria/internal/domain"
)

func refs(texts ...string) []*types.GlobalReference {
	out := make([]*types.GlobalReference, 0, len(texts))
	for i, t := range texts {
		out = append(out, &types.GlobalReference{ID: uuid.New(), Number: i + 1, Key: t, Text: t})
	}
	return out
}

func TestBuildPlan(t *testing.T) {
	cases := []struct {
		name      string
		current   []*types.GlobalReference
		entries   []citation.Entry
		renumber  map[int]int
		edits     []int
		creates   []int
		deletes   []int
		unchanged int
	}{
		{
			name:      "identical",
			current:   refs("a", "b", "c"),
			entries:   []citation.Entry{{Position: 1, Text: "a"}, {Position: 2, Text: "b"}, {Position: 3, Text: "c"}},
			renumber:  map[int]int{},
			unchanged: 3,
		},
		{
			name:      "reverse order swaps ends",
			current:   refs("a", "b", "c"),
			entries:   []citation.Entry{{Position: 1, Text: "c"}, {Position: 2, Text: "b"}, {Position: 3, Text: "a"}},
			renumber:  map[int]int{1: 3, 3: 1},
			unchanged: 1,
		},
		{
			name:      "omitted entry is deleted",
			current:   refs("a", "b", "c"),
			entries:   []citation.Entry{{Position: 1, Text: "a"}, {Position: 3, Text: "c"}},
			renumber:  map[int]int{},
			deletes:   []int{2},
			unchanged: 2,
		},
		{
			name:      "new text at unused position",
			current:   refs("a", "b", "c"),
			entries:   []citation.Entry{{Position: 1, Text: "a"}, {Position: 2, Text: "b"}, {Position: 3, Text: "c"}, {Position: 4, Text: "d"}},
			renumber:  map[int]int{},
			creates:   []int{4},
			unchanged: 3,
		},
		{
			name:      "changed text at same position is an edit",
			current:   refs("a", "b"),
			entries:   []citation.Entry{{Position: 1, Text: "a"}, {Position: 2, Text: "b, revised"}},
			renumber:  map[int]int{},
			edits:     []int{2},
			unchanged: 1,
		},
		{
			// Text match wins over position: "b" moves to 1, so the edited
			// line at 2 cannot reuse old 1 and becomes a new reference there.
			name:      "text match beats position match",
			current:   refs("a", "b"),
			entries:   []citation.Entry{{Position: 1, Text: "b"}, {Position: 2, Text: "a, revised"}},
			renumber:  map[int]int{2: 1},
			creates:   []int{2},
			deletes:   []int{1},
			unchanged: 0,
		},
		{
			name:      "changed text and position with free slot",
			current:   refs("a", "b"),
			entries:   []citation.Entry{{Position: 1, Text: "a"}, {Position: 5, Text: "b, revised"}},
			renumber:  map[int]int{},
			creates:   []int{5},
			deletes:   []int{2},
			unchanged: 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := BuildPlan(tc.current, tc.entries)
			if !reflect.DeepEqual(p.Renumber(), tc.renumber) {
				t.Fatalf("renumber: got %v want %v", p.Renumber(), tc.renumber)
			}
			var edits, creates, deletes []int
			for _, e := range p.Edits {
				edits = append(edits, e.Number)
			}
			for _, c := range p.Creates {
				creates = append(creates, c.Position)
			}
			for _, d := range p.Deletes {
				deletes = append(deletes, d.Number)
			}
			if !reflect.DeepEqual(edits, tc.edits) {
				t.Fatalf("edits: got %v want %v", edits, tc.edits)
			}
			if !reflect.DeepEqual(creates, tc.creates) {
				t.Fatalf("creates: got %v want %v", creates, tc.creates)
			}
			if !reflect.DeepEqual(deletes, tc.deletes) {
				t.Fatalf("deletes: got %v want %v", deletes, tc.deletes)
			}
			if p.Unchanged != tc.unchanged {
				t.Fatalf("unchanged: got %d want %d", p.Unchanged, tc.unchanged)
			}
		})
	}
}

func TestBuildPlanDuplicateTextsClaimOnce(t *testing.T) {
	current := []*types.GlobalReference{
		{ID: uuid.New(), Number: 1, Text: "same"},
		{ID: uuid.New(), Number: 2, Text: "same"},
	}
	p := BuildPlan(current, []citation.Entry{{Position: 2, Text: "same"}, {Position: 1, Text: "same"}})
	if !p.IsNoop() || p.Unchanged != 2 {
		t.Fatalf("expected both duplicates to stay in place, got %+v", p)
	}
}
