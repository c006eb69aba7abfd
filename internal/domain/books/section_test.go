package books

import "testing"

func TestSectionTransitions(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{SectionStatusPending, SectionStatusProcessing, true},
		{SectionStatusProcessing, SectionStatusSuccess, true},
		{SectionStatusProcessing, SectionStatusError, true},
		{SectionStatusError, SectionStatusProcessing, true},
		{SectionStatusError, SectionStatusPending, true},
		{SectionStatusProcessing, SectionStatusPending, true},
		{SectionStatusPending, SectionStatusSuccess, false},
		{SectionStatusError, SectionStatusSuccess, false},
		{SectionStatusSuccess, SectionStatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransitionSection(tc.from, tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.ok)
		}
	}
	if err := ValidateSectionTransition(SectionStatusPending, SectionStatusError); err == nil {
		t.Fatalf("expected error for PENDING -> ERROR")
	}
}
