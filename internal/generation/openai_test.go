package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

func outputPayload(text string) map[string]any {
	return map[string]any{
		"output": []map[string]any{{
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "output_text", "text": text},
			},
		}},
	}
}

func newTestGenerator(t *testing.T, url string) Generator {
	t.Helper()
	p, err := LoadPrompts("")
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}
	g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", BaseURL: url, Model: "m", Timeout: 5 * time.Second, MaxRetries: 2}, p, logger.Nop())
	if err != nil {
		t.Fatalf("NewOpenAIGenerator: %v", err)
	}
	return g
}

func TestOpenAIGeneratorSection(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" || r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var req responsesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		_ = json.NewEncoder(w).Encode(outputPayload("```json\n{\"content_markdown\":\"Body [REF:A]\",\"bibliography_found\":[{\"key\":\"A\",\"full_reference\":\"A ref\"}]}\n```"))
	}))
	defer srv.Close()

	d, err := newTestGenerator(t, srv.URL).GenerateSection(context.Background(), SectionInput{SectionTitle: "S"})
	if err != nil {
		t.Fatalf("GenerateSection: %v", err)
	}
	if gotModel != "m" {
		t.Fatalf("model %q", gotModel)
	}
	if d.ContentMarkdown != "Body [REF:A]" || len(d.Bibliography) != 1 {
		t.Fatalf("draft: %+v", d)
	}
}

func TestOpenAIGeneratorRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	_, err := newTestGenerator(t, srv.URL).GenerateSection(context.Background(), SectionInput{SectionTitle: "S"})
	if !errors.Is(err, apperrors.ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("429 should not be retried by the client, got %d calls", n)
	}
}

func TestOpenAIGeneratorRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(outputPayload(`{"chapters":[{"title":"C","sections":[{"title":"S","transcript_id":"t"}]}]}`))
	}))
	defer srv.Close()

	st, err := newTestGenerator(t, srv.URL).DiscoverStructure(context.Background(), DiscoveryInput{BookTitle: "B"})
	if err != nil {
		t.Fatalf("DiscoverStructure: %v", err)
	}
	if len(st.Chapters) != 1 || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("structure %+v after %d calls", st, calls)
	}
}

func TestNewOpenAIGeneratorRequiresKey(t *testing.T) {
	p, _ := LoadPrompts("")
	if _, err := NewOpenAIGenerator(OpenAIConfig{}, p, logger.Nop()); err == nil {
		t.Fatalf("expected error without api key")
	}
}
