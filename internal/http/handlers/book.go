package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pedrohsmesquita/Lectria/internal/http/response"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/services"
)

type BookHandler struct {
	log   *logger.Logger
	books services.BookService
}

func NewBookHandler(log *logger.Logger, books services.BookService) *BookHandler {
	return &BookHandler{log: log.With("handler", "BookHandler"), books: books}
}

type createBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// POST /api/books
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req createBookRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, "invalid_request", err)
		return
	}
	book, err := h.books.Create(c.Request.Context(), req.Title, req.Author)
	if err != nil {
		response.RespondErr(c, "create_book_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"book": book})
}

// GET /api/books
func (h *BookHandler) ListBooks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	books, err := h.books.List(c.Request.Context(), limit)
	if err != nil {
		response.RespondErr(c, "list_books_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"books": books})
}

// GET /api/books/:id
func (h *BookHandler) GetBook(c *gin.Context) {
	bookID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_book_id", err)
		return
	}
	book, err := h.books.Get(c.Request.Context(), bookID)
	if err != nil {
		response.RespondErr(c, "book_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"book": book})
}

type addSourcesRequest struct {
	Sources []services.SourceInput `json:"sources"`
}

// POST /api/books/:id/sources
func (h *BookHandler) AddSources(c *gin.Context) {
	bookID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_book_id", err)
		return
	}
	var req addSourcesRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, "invalid_request", err)
		return
	}
	docs, err := h.books.AddSources(c.Request.Context(), bookID, req.Sources)
	if err != nil {
		response.RespondErr(c, "add_sources_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"sources": docs})
}

// GET /api/books/:id/sources
func (h *BookHandler) ListSources(c *gin.Context) {
	bookID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_book_id", err)
		return
	}
	docs, err := h.books.ListSources(c.Request.Context(), bookID)
	if err != nil {
		response.RespondErr(c, "list_sources_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"sources": docs})
}

// POST /api/books/:id/process
func (h *BookHandler) StartDiscovery(c *gin.Context) {
	bookID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_book_id", err)
		return
	}
	job, err := h.books.StartDiscovery(c.Request.Context(), bookID)
	if err != nil {
		response.RespondErr(c, "start_discovery_failed", err)
		return
	}
	h.log.Info("Discovery queued", "book_id", bookID, "job_id", job.ID)
	response.RespondAccepted(c, gin.H{"job": job})
}

// POST /api/books/:id/generate
func (h *BookHandler) StartGeneration(c *gin.Context) {
	bookID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_book_id", err)
		return
	}
	job, err := h.books.StartGeneration(c.Request.Context(), bookID)
	if err != nil {
		response.RespondErr(c, "start_generation_failed", err)
		return
	}
	h.log.Info("Generation queued", "book_id", bookID, "job_id", job.ID)
	response.RespondAccepted(c, gin.H{"job": job})
}

// GET /api/books/:id/export
func (h *BookHandler) Export(c *gin.Context) {
	bookID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_book_id", err)
		return
	}
	payload, err := h.books.Export(c.Request.Context(), bookID)
	if err != nil {
		response.RespondErr(c, "export_failed", err)
		return
	}
	response.RespondOK(c, payload)
}
