package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pedrohsmesquita/Lectria/internal/http/response"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/services"
)

type BibliographyHandler struct {
	log   *logger.Logger
	books services.BookService
}

func NewBibliographyHandler(log *logger.Logger, books services.BookService) *BibliographyHandler {
	return &BibliographyHandler{log: log.With("handler", "BibliographyHandler"), books: books}
}

// GET /api/books/:id/bibliography
func (h *BibliographyHandler) GetBibliography(c *gin.Context) {
	bookID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_book_id", err)
		return
	}
	view, err := h.books.Bibliography(c.Request.Context(), bookID)
	if err != nil {
		response.RespondErr(c, "bibliography_failed", err)
		return
	}
	response.RespondOK(c, view)
}

type reconcileRequest struct {
	Content string `json:"content"`
}

// PUT /api/books/:id/bibliography
func (h *BibliographyHandler) Reconcile(c *gin.Context) {
	bookID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_book_id", err)
		return
	}
	var req reconcileRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, "invalid_request", err)
		return
	}
	result, err := h.books.ReconcileBibliography(c.Request.Context(), bookID, req.Content)
	if err != nil {
		response.RespondErr(c, "reconcile_failed", err)
		return
	}
	h.log.Info("Bibliography reconciled",
		"book_id", bookID,
		"renumbered", result.Renumbered,
		"deleted", result.Deleted,
		"sections_affected", result.SectionsAffected,
	)
	response.RespondOK(c, result)
}

// GET /api/books/:id/audit
func (h *BibliographyHandler) Audit(c *gin.Context) {
	bookID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_book_id", err)
		return
	}
	report, err := h.books.Audit(c.Request.Context(), bookID)
	if err != nil {
		response.RespondErr(c, "audit_failed", err)
		return
	}
	response.RespondOK(c, report)
}
