package citation

import (
	"reflect"
	"testing"
)

func TestRewriteKeys(t *testing.T) {
	in := "Consensus [REF:SILVA_2022] and logs [REF: COSTA_2019 ]. See [IMAGE_1], [3] and [REF:UNKNOWN]. Again [REF:SILVA_2022]; [REF:UNKNOWN]."
	got, unresolved := RewriteKeys(in, map[string]int{"SILVA_2022": 4, "COSTA_2019": 1})

	want := "Consensus [4] and logs [1]. See [IMAGE_1], [3] and [REF:UNKNOWN]. Again [4]; [REF:UNKNOWN]."
	if got != want {
		t.Fatalf("unexpected rewrite:\n got %q\nwant %q", got, want)
	}
	if !reflect.DeepEqual(unresolved, []string{"UNKNOWN"}) {
		t.Fatalf("unexpected unresolved %v", unresolved)
	}
}

func TestRewriteKeysIsPure(t *testing.T) {
	in := "No markers [1] [link](http://x) [IMAGE_2]"
	got, unresolved := RewriteKeys(in, map[string]int{"A": 1})
	if got != in || len(unresolved) != 0 {
		t.Fatalf("expected passthrough, got %q %v", got, unresolved)
	}
}

func TestMarkerKeysAndNormalize(t *testing.T) {
	keys := MarkerKeys("[REF:B] text [REF:A] [REF:B] [REF: ]")
	if !reflect.DeepEqual(keys, []string{"B", "A"}) {
		t.Fatalf("unexpected keys %v", keys)
	}
	for in, want := range map[string]string{
		" SILVA_2022 ":    "SILVA_2022",
		"REF:SILVA_2022":  "SILVA_2022",
		"ref: SILVA_2022": "SILVA_2022",
		"REFERENCE":       "REFERENCE",
	} {
		if got := NormalizeKey(in); got != want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}
