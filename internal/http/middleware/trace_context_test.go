package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pedrohsmesquita/Lectria/internal/pkg/ctxutil"
)

func TestAttachTraceContextEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())

	var seen *ctxutil.TraceData
	r.GET("/healthcheck", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-42" {
		t.Fatalf("trace data not attached: %+v", seen)
	}
	if seen.TraceID == "" {
		t.Fatalf("expected a generated trace id")
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("request id header = %q", got)
	}
	if got := rec.Header().Get("X-Trace-Id"); got != seen.TraceID {
		t.Fatalf("trace id header = %q want %q", got, seen.TraceID)
	}
}

func TestResourceKind(t *testing.T) {
	cases := map[string]string{
		"/api/books/:id":                   "book",
		"/api/books/:id/bibliography":      "book",
		"/api/chapters/:id/sections/order": "chapter",
		"/api/sections/:id/assets":         "section",
		"/api/assets/:id":                  "asset",
		"/api/jobs/:id":                    "job",
		"/api/books":                       "",
		"/api/sse/stream":                  "",
		"/healthcheck":                     "",
		"":                                 "",
	}
	for path, want := range cases {
		if got := resourceKind(path); got != want {
			t.Fatalf("resourceKind(%q) = %q want %q", path, got, want)
		}
	}
}

func TestAttachTraceContextTagsSpanWithResource(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(t.Context()) }()

	r := gin.New()
	r.Use(otelgin.Middleware("lectria-test", otelgin.WithTracerProvider(tp)))
	r.Use(AttachTraceContext())

	var seen *ctxutil.TraceData
	r.GET("/api/books/:id/bibliography", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	const bookID = "7d0f5f3e-5d0c-4a57-9a43-3f4d0c1b2a10"
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/books/"+bookID+"/bibliography", nil))

	if seen == nil || seen.ResourceKind != "book" || seen.ResourceID != bookID {
		t.Fatalf("unexpected trace data %+v", seen)
	}
	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if got := resp.Header().Get("X-Trace-Id"); got != spans[0].SpanContext().TraceID().String() {
		t.Fatalf("trace id header %q does not match span", got)
	}
	found := false
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == "lectria.book_id" && kv.Value.AsString() == bookID {
			found = true
		}
	}
	if !found {
		t.Fatalf("span missing lectria.book_id: %v", spans[0].Attributes())
	}
}
