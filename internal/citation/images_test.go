package citation

import "testing"

func TestNextImagePlaceholder(t *testing.T) {
	cases := []struct {
		existing []string
		want     string
	}{
		{nil, "[IMAGE_1]"},
		{[]string{"[IMAGE_1]", "[IMAGE_3]"}, "[IMAGE_4]"},
		{[]string{"[IMAGE_2]", "figure", "[IMAGE_x]"}, "[IMAGE_3]"},
	}
	for _, tc := range cases {
		if got := NextImagePlaceholder(tc.existing); got != tc.want {
			t.Fatalf("%v: got %q want %q", tc.existing, got, tc.want)
		}
	}
	inText := ImagePlaceholders("a [IMAGE_2] b [IMAGE_7] c [3]")
	if got := NextImagePlaceholder(inText); got != "[IMAGE_8]" {
		t.Fatalf("unexpected placeholder from markdown %q", got)
	}
	if _, ok := ImageNumber("[REF:IMAGE_1]"); ok {
		t.Fatalf("expected non-image marker to be rejected")
	}
}

func TestAppendPlaceholder(t *testing.T) {
	if got := AppendPlaceholder("Intro.\n\n", "[IMAGE_2]"); got != "Intro.\n\n[IMAGE_2]\n" {
		t.Fatalf("unexpected append %q", got)
	}
	if got := AppendPlaceholder("  ", "[IMAGE_1]"); got != "[IMAGE_1]\n" {
		t.Fatalf("unexpected append on empty %q", got)
	}
}

func TestRemovePlaceholder(t *testing.T) {
	in := "Intro.\n\n[IMAGE_1]\n\nMiddle [IMAGE_10] text.\n\n[IMAGE_1]\n"
	got := RemovePlaceholder(in, "[IMAGE_1]")
	want := "Intro.\n\nMiddle [IMAGE_10] text."
	if got != want {
		t.Fatalf("unexpected removal:\n got %q\nwant %q", got, want)
	}
	if got := RemovePlaceholder("No figures.", "[IMAGE_1]"); got != "No figures." {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
