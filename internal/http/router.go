package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/pedrohsmesquita/Lectria/internal/http/handlers"
	httpMW "github.com/pedrohsmesquita/Lectria/internal/http/middleware"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string

	HealthHandler       *httpH.HealthHandler
	BookHandler         *httpH.BookHandler
	StructureHandler    *httpH.StructureHandler
	BibliographyHandler *httpH.BibliographyHandler
	JobHandler          *httpH.JobHandler
	RealtimeHandler     *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "lectria"
	}
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Books
		if cfg.BookHandler != nil {
			api.POST("/books", cfg.BookHandler.CreateBook)
			api.GET("/books", cfg.BookHandler.ListBooks)
			api.GET("/books/:id", cfg.BookHandler.GetBook)
			api.POST("/books/:id/sources", cfg.BookHandler.AddSources)
			api.GET("/books/:id/sources", cfg.BookHandler.ListSources)
			api.POST("/books/:id/process", cfg.BookHandler.StartDiscovery)
			api.POST("/books/:id/generate", cfg.BookHandler.StartGeneration)
			api.GET("/books/:id/export", cfg.BookHandler.Export)
		}

		// Chapters and sections
		if cfg.StructureHandler != nil {
			api.GET("/books/:id/chapters", cfg.StructureHandler.ListChapters)
			api.PUT("/books/:id/chapters/order", cfg.StructureHandler.ReorderChapters)
			api.PUT("/chapters/:id", cfg.StructureHandler.RenameChapter)
			api.PUT("/chapters/:id/sections/order", cfg.StructureHandler.ReorderSections)
			api.PUT("/sections/:id", cfg.StructureHandler.UpdateSection)
			api.POST("/sections/:id/generate", cfg.StructureHandler.RegenerateSection)
			api.POST("/sections/:id/assets", cfg.StructureHandler.AddAsset)
			api.PUT("/assets/:id", cfg.StructureHandler.UpdateAsset)
			api.DELETE("/assets/:id", cfg.StructureHandler.DeleteAsset)
		}

		// Bibliography
		if cfg.BibliographyHandler != nil {
			api.GET("/books/:id/bibliography", cfg.BibliographyHandler.GetBibliography)
			api.PUT("/books/:id/bibliography", cfg.BibliographyHandler.Reconcile)
			api.GET("/books/:id/audit", cfg.BibliographyHandler.Audit)
		}

		// Job
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}
	}

	return r
}
