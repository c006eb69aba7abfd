package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pedrohsmesquita/Lectria/internal/pkg/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// routeResources maps the first segment after /api to the kind of entity
// its :id parameter names.
var routeResources = map[string]string{
	"books":    "book",
	"chapters": "chapter",
	"sections": "section",
	"assets":   "asset",
	"jobs":     "job",
}

// resourceKind returns the entity kind addressed by a route template such as
// /api/books/:id/bibliography, or "" for routes without an :id.
func resourceKind(fullPath string) string {
	parts := strings.Split(strings.Trim(fullPath, "/"), "/")
	if len(parts) < 3 || parts[0] != "api" || parts[2] != ":id" {
		return ""
	}
	return routeResources[parts[1]]
}

// AttachTraceContext stamps request and trace ids on the context and the
// response, and tags the active span with the addressed entity.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)

		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		traceID := ""
		if sc := span.SpanContext(); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		if traceID == "" {
			traceID = strings.TrimSpace(c.GetHeader(headerTraceID))
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}

		td := &ctxutil.TraceData{TraceID: traceID, RequestID: reqID}
		attrs := []attribute.KeyValue{attribute.String("lectria.request_id", reqID)}
		if kind := resourceKind(c.FullPath()); kind != "" {
			if id := c.Param("id"); id != "" {
				td.ResourceKind = kind
				td.ResourceID = id
				attrs = append(attrs, attribute.String("lectria."+kind+"_id", id))
			}
		}
		span.SetAttributes(attrs...)

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(ctx, td))
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}
