package generation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPromptsRender(t *testing.T) {
	p, err := LoadPrompts("")
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}

	start, end := 3, 7
	sys, usr, err := p.Section(SectionInput{
		BookTitle:    "Distributed Systems",
		ChapterTitle: "Time",
		SectionTitle: "Logical clocks",
		Transcript:   "Today we look at clocks.",
		StartPage:    &start,
		EndPage:      &end,
		Known:        []KnownReference{{Key: "LAMPORT_1978", Number: 1}},
	})
	if err != nil {
		t.Fatalf("Section: %v", err)
	}
	if !strings.Contains(sys, "[REF:<KEY>]") || !strings.Contains(sys, "[IMAGE_N]") {
		t.Fatalf("system prompt missing marker guidance:\n%s", sys)
	}
	for _, want := range []string{"Logical clocks", "Slide pages: 3-7", "LAMPORT_1978 (cited as [1])", "Today we look at clocks."} {
		if !strings.Contains(usr, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, usr)
		}
	}
	if strings.Contains(usr, "Slides:") {
		t.Fatalf("empty slides should be omitted:\n%s", usr)
	}

	_, usr, err = p.Discovery(DiscoveryInput{
		BookTitle: "Distributed Systems",
		Sources:   []SourceExcerpt{{ID: "t1", Kind: "transcript", Title: "Lecture 1", Text: "hello"}},
	})
	if err != nil {
		t.Fatalf("Discovery: %v", err)
	}
	if !strings.Contains(usr, "id=t1 kind=transcript title=Lecture 1") || !strings.Contains(usr, "hello") {
		t.Fatalf("discovery prompt:\n%s", usr)
	}
}

func TestLoadPromptsOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	body := "discovery:\n  system: s\n  user: '{{.BookTitle}}'\nsection:\n  system: s\n  user: '{{.SectionTitle}}'\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadPrompts(path)
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}
	_, usr, err := p.Section(SectionInput{SectionTitle: "Vector clocks"})
	if err != nil || usr != "Vector clocks" {
		t.Fatalf("got %q %v", usr, err)
	}

	if err := os.WriteFile(path, []byte("section:\n  system: s\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadPrompts(path); err == nil {
		t.Fatalf("expected error for missing templates")
	}
}
