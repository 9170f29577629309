package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glowsenior/HIPAA-Contract-Site/middleware"
	"github.com/glowsenior/HIPAA-Contract-Site/model"
	"github.com/glowsenior/HIPAA-Contract-Site/service"
)

type DocumentHandler struct {
	pipeline *service.DocumentPipeline
}

func NewDocumentHandler(pipeline *service.DocumentPipeline) *DocumentHandler {
	return &DocumentHandler{pipeline: pipeline}
}

// Upload accepts a multipart file and runs it through the document
// pipeline.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID := middleware.GetUserID(c)

	file, header, err := c.Request.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}
	defer file.Close()

	doc, err := h.pipeline.Upload(c.Request.Context(), service.UploadInput{
		RequesterID:  userID,
		ContractID:   c.PostForm("contractId"),
		DocumentType: model.DocumentType(c.PostForm("documentType")),
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Reader:       file,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Document uploaded successfully",
		"document": doc.Public(),
	})
}

// Get returns document metadata for a contract participant.
func (h *DocumentHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)

	doc, err := h.pipeline.ResolveAuthorized(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// Download streams the file as an attachment under its original name.
func (h *DocumentHandler) Download(c *gin.Context) {
	userID := middleware.GetUserID(c)

	doc, err := h.pipeline.ResolveAuthorized(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	reader, size, err := h.pipeline.OpenBlob(c.Request.Context(), doc)
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, size, doc.MimeType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.OriginalName),
	})
}

// View streams the file inline for a contract participant.
func (h *DocumentHandler) View(c *gin.Context) {
	userID := middleware.GetUserID(c)

	doc, err := h.pipeline.ResolveAuthorized(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	h.serveInline(c, doc)
}

// PublicView streams the file inline without authentication. Document IDs
// are unguessable v4 UUIDs; this route exists so forms can preview images
// before a session is established.
func (h *DocumentHandler) PublicView(c *gin.Context) {
	doc, err := h.pipeline.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	h.serveInline(c, doc)
}

func (h *DocumentHandler) serveInline(c *gin.Context, doc *model.Document) {
	reader, size, err := h.pipeline.OpenBlob(c.Request.Context(), doc)
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, size, doc.MimeType, reader, map[string]string{
		"Cache-Control": "public, max-age=3600",
	})
}

type VerifyRequest struct {
	IsVerified        bool   `json:"isVerified"`
	VerificationNotes string `json:"verificationNotes"`
}

// Verify sets the verification flag and notes.
func (h *DocumentHandler) Verify(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	doc, err := h.pipeline.Verify(c.Request.Context(), userID, c.Param("id"), req.IsVerified, req.VerificationNotes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Document verification updated successfully",
		"document": doc,
	})
}

// Delete removes the file, the metadata record and the contract's
// reference.
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if err := h.pipeline.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}
