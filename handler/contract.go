package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/glowsenior/HIPAA-Contract-Site/middleware"
	"github.com/glowsenior/HIPAA-Contract-Site/model"
	"github.com/glowsenior/HIPAA-Contract-Site/pkg/apperr"
	"github.com/glowsenior/HIPAA-Contract-Site/service"
	"github.com/glowsenior/HIPAA-Contract-Site/store"
)

type ContractHandler struct {
	contracts *store.ContractStore
	users     *store.UserStore
	pipeline  *service.DocumentPipeline
}

func NewContractHandler(contracts *store.ContractStore, users *store.UserStore, pipeline *service.DocumentPipeline) *ContractHandler {
	return &ContractHandler{
		contracts: contracts,
		users:     users,
		pipeline:  pipeline,
	}
}

type CreateContractRequest struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Contractor   string             `json:"contractor"`
	ProjectType  string             `json:"projectType"`
	Budget       float64            `json:"budget"`
	Currency     string             `json:"currency"`
	Status       model.Status       `json:"status"`
	Timeline     model.Timeline     `json:"timeline"`
	Requirements model.Requirements `json:"requirements"`
	Terms        model.Terms        `json:"terms"`
}

// List returns the caller's contracts, newest first, with pagination
// metadata.
func (h *ContractHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	contracts, total, err := h.contracts.ListByParticipant(c.Request.Context(), userID, status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	c.JSON(http.StatusOK, gin.H{
		"contracts":   contracts,
		"totalPages":  totalPages,
		"currentPage": page,
		"total":       total,
	})
}

// Get returns a single contract with client, contractor and documents
// resolved.
func (h *ContractHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)

	contract, err := h.contracts.GetResolved(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !contract.IsParticipant(userID) {
		respondError(c, apperr.Forbidden("Not authorized to view this contract"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"contract": contract})
}

// Create validates and persists a new contract with the caller as client.
func (h *ContractHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	contract := &model.Contract{
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		ClientID:     userID,
		ContractorID: req.Contractor,
		ProjectType:  req.ProjectType,
		Budget:       req.Budget,
		Currency:     req.Currency,
		Status:       req.Status,
		Timeline:     req.Timeline,
		Requirements: req.Requirements,
		Terms:        req.Terms,
	}
	if contract.Status == "" {
		contract.Status = model.StatusDraft
	}
	if contract.Currency == "" {
		contract.Currency = "USD"
	}

	if err := contract.Validate(); err != nil {
		respondError(c, err)
		return
	}

	// The contractor reference must resolve to an existing account.
	exists, err := h.users.Exists(c.Request.Context(), contract.ContractorID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !exists {
		respondError(c, apperr.Validationf("contractor", "Valid contractor ID is required"))
		return
	}

	if err := h.contracts.Create(c.Request.Context(), contract); err != nil {
		respondError(c, err)
		return
	}

	created, err := h.contracts.Get(c.Request.Context(), contract.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Contract created successfully",
		"contract": created,
	})
}

type UpdateContractRequest struct {
	Title        *string             `json:"title"`
	Description  *string             `json:"description"`
	ProjectType  *string             `json:"projectType"`
	Budget       *float64            `json:"budget"`
	Currency     *string             `json:"currency"`
	Timeline     *model.Timeline     `json:"timeline"`
	Requirements *model.Requirements `json:"requirements"`
	Terms        *model.Terms        `json:"terms"`
}

// Update merges the patch into the contract for the client or contractor.
func (h *ContractHandler) Update(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req UpdateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !contract.IsParticipant(userID) {
		respondError(c, apperr.Forbidden("Not authorized to update this contract"))
		return
	}

	if req.Title != nil {
		contract.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		contract.Description = strings.TrimSpace(*req.Description)
	}
	if req.ProjectType != nil {
		contract.ProjectType = *req.ProjectType
	}
	if req.Budget != nil {
		contract.Budget = *req.Budget
	}
	if req.Currency != nil {
		contract.Currency = *req.Currency
	}
	if req.Timeline != nil {
		contract.Timeline = *req.Timeline
	}
	if req.Requirements != nil {
		contract.Requirements = *req.Requirements
	}
	if req.Terms != nil {
		contract.Terms = *req.Terms
	}

	if err := contract.Validate(); err != nil {
		respondError(c, err)
		return
	}

	if err := h.contracts.Update(c.Request.Context(), contract); err != nil {
		respondError(c, err)
		return
	}

	updated, err := h.contracts.Get(c.Request.Context(), contract.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Contract updated successfully",
		"contract": updated,
	})
}

// Delete removes a contract and cascades to its documents. Client only.
func (h *ContractHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if err := h.pipeline.DeleteContract(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contract deleted successfully"})
}

type SetStatusRequest struct {
	Status model.Status `json:"status"`
}

// SetStatus moves the contract along its lifecycle. Transitions follow
// the allowed graph; anything else is rejected.
func (h *ContractHandler) SetStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	if !req.Status.Valid() {
		respondError(c, apperr.Validationf("status", "Invalid status"))
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !contract.IsParticipant(userID) {
		respondError(c, apperr.Forbidden("Not authorized to update this contract"))
		return
	}

	if !contract.Status.CanTransitionTo(req.Status) {
		respondError(c, apperr.Validationf("status", "Cannot transition from %s to %s", contract.Status, req.Status))
		return
	}

	contract.Status = req.Status
	if err := h.contracts.Update(c.Request.Context(), contract); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Contract status updated successfully",
		"contract": contract,
	})
}

type AddMessageRequest struct {
	Message string `json:"message"`
}

// AddMessage appends one entry to the contract's communication log.
func (h *ContractHandler) AddMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req AddMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	text := strings.TrimSpace(req.Message)
	if text == "" {
		respondError(c, apperr.Validationf("message", "Message is required"))
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !contract.IsParticipant(userID) {
		respondError(c, apperr.Forbidden("Not authorized to message on this contract"))
		return
	}

	contract.Communication = append(contract.Communication, model.Message{
		Sender:    userID,
		Message:   text,
		Timestamp: time.Now(),
	})
	if err := h.contracts.Update(c.Request.Context(), contract); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Message added successfully",
		"contract": contract,
	})
}
