package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pedrohsmesquita/Lectria/internal/http/response"
	apperrors "github.com/pedrohsmesquita/Lectria/internal/pkg/errors"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/services"
)

// StructureHandler serves the chapter and section editing routes.
type StructureHandler struct {
	log   *logger.Logger
	books services.BookService
}

func NewStructureHandler(log *logger.Logger, books services.BookService) *StructureHandler {
	return &StructureHandler{log: log.With("handler", "StructureHandler"), books: books}
}

type orderRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// GET /api/books/:id/chapters
func (h *StructureHandler) ListChapters(c *gin.Context) {
	bookID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_book_id", err)
		return
	}
	chapters, err := h.books.Chapters(c.Request.Context(), bookID)
	if err != nil {
		response.RespondErr(c, "list_chapters_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"chapters": chapters})
}

// PUT /api/books/:id/chapters/order
func (h *StructureHandler) ReorderChapters(c *gin.Context) {
	bookID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_book_id", err)
		return
	}
	var req orderRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, "invalid_request", err)
		return
	}
	chapters, err := h.books.ReorderChapters(c.Request.Context(), bookID, req.IDs)
	if err != nil {
		response.RespondErr(c, "reorder_chapters_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"chapters": chapters})
}

// PUT /api/chapters/:id/sections/order
func (h *StructureHandler) ReorderSections(c *gin.Context) {
	chapterID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_chapter_id", err)
		return
	}
	var req orderRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, "invalid_request", err)
		return
	}
	sections, err := h.books.ReorderSections(c.Request.Context(), chapterID, req.IDs)
	if err != nil {
		response.RespondErr(c, "reorder_sections_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"sections": sections})
}

type renameChapterRequest struct {
	Title string `json:"title"`
}

// PUT /api/chapters/:id
func (h *StructureHandler) RenameChapter(c *gin.Context) {
	chapterID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_chapter_id", err)
		return
	}
	var req renameChapterRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		response.RespondErr(c, "invalid_request", fmt.Errorf("%w: title is required", apperrors.ErrInvalidArgument))
		return
	}
	chapter, err := h.books.RenameChapter(c.Request.Context(), chapterID, req.Title)
	if err != nil {
		response.RespondErr(c, "rename_chapter_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"chapter": chapter})
}

// PUT /api/sections/:id
func (h *StructureHandler) UpdateSection(c *gin.Context) {
	sectionID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_section_id", err)
		return
	}
	var req services.SectionUpdate
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, "invalid_request", err)
		return
	}
	section, err := h.books.UpdateSection(c.Request.Context(), sectionID, req)
	if err != nil {
		response.RespondErr(c, "update_section_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"section": section})
}

// POST /api/sections/:id/generate
func (h *StructureHandler) RegenerateSection(c *gin.Context) {
	sectionID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_section_id", err)
		return
	}
	job, err := h.books.RegenerateSection(c.Request.Context(), sectionID)
	if err != nil {
		response.RespondErr(c, "regenerate_section_failed", err)
		return
	}
	h.log.Info("Section regeneration queued", "section_id", sectionID, "job_id", job.ID)
	response.RespondAccepted(c, gin.H{"job": job})
}

// POST /api/sections/:id/assets
func (h *StructureHandler) AddAsset(c *gin.Context) {
	sectionID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_section_id", err)
		return
	}
	var req services.AssetInput
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, "invalid_request", err)
		return
	}
	asset, err := h.books.AddAsset(c.Request.Context(), sectionID, req)
	if err != nil {
		response.RespondErr(c, "add_asset_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"asset": asset})
}

// PUT /api/assets/:id
func (h *StructureHandler) UpdateAsset(c *gin.Context) {
	assetID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_asset_id", err)
		return
	}
	var req services.AssetUpdate
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, "invalid_request", err)
		return
	}
	asset, err := h.books.UpdateAsset(c.Request.Context(), assetID, req)
	if err != nil {
		response.RespondErr(c, "update_asset_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"asset": asset})
}

// DELETE /api/assets/:id
func (h *StructureHandler) DeleteAsset(c *gin.Context) {
	assetID, err := paramUUID(c, "id")
	if err != nil {
		response.RespondErr(c, "invalid_asset_id", err)
		return
	}
	if err := h.books.DeleteAsset(c.Request.Context(), assetID); err != nil {
		response.RespondErr(c, "delete_asset_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}
