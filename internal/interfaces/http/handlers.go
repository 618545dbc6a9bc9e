package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/minhtran/claimflow/internal/application/service"
	"github.com/minhtran/claimflow/internal/domain/claim"
)

const (
	actorHeader = "X-Staff-ID"
	dateLayout  = "2006-01-02"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	claimService     service.ClaimService
	lifecycleService service.LifecycleService
	exportService    service.ExportService
	logger           Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	claimService service.ClaimService,
	lifecycleService service.LifecycleService,
	exportService service.ExportService,
	logger Logger,
) *Handlers {
	return &Handlers{
		claimService:     claimService,
		lifecycleService: lifecycleService,
		exportService:    exportService,
		logger:           logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ClaimRequest represents the claimant-editable claim fields
type ClaimRequest struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Remark     string `json:"remark"`
	ProjectID  string `json:"project_id"`
	Amount     string `json:"amount"`
	TotalHours string `json:"total_hours"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// DecisionRequest represents an approver's decision payload
type DecisionRequest struct {
	Decision string `json:"decision"`
	Remark   string `json:"remark"`
}

// ReturnRequest represents the return-to-claimant payload
type ReturnRequest struct {
	Remark string `json:"remark"`
}

// ListClaimsRequest represents query parameters for listing claims
type ListClaimsRequest struct {
	View   string `form:"view"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateClaim handles POST /api/claims
func (h *Handlers) CreateClaim(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	input, ok := h.bindDraftInput(c)
	if !ok {
		return
	}

	created, err := h.claimService.CreateDraft(c.Request.Context(), actor, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: created})
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	found, err := h.claimService.Get(c.Request.Context(), id, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: found})
}

// EditClaim handles PUT /api/claims/:id
func (h *Handlers) EditClaim(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.claimID(c)
	if !ok {
		return
	}
	input, ok := h.bindDraftInput(c)
	if !ok {
		return
	}

	edited, err := h.claimService.Edit(c.Request.Context(), id, actor, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: edited})
}

// ListClaims handles GET /api/claims
func (h *Handlers) ListClaims(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req ListClaimsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	claims, err := h.claimService.List(c.Request.Context(), claim.ViewMode(req.View), actor, req.Limit, req.Offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: claims})
}

// GetChangeLog handles GET /api/claims/:id/log
func (h *Handlers) GetChangeLog(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	log, err := h.claimService.ChangeLog(c.Request.Context(), id, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: log})
}

// SubmitClaim handles POST /api/claims/:id/submit
func (h *Handlers) SubmitClaim(c *gin.Context) {
	h.transition(c, h.lifecycleService.Submit)
}

// PayClaim handles POST /api/claims/:id/pay
func (h *Handlers) PayClaim(c *gin.Context) {
	h.transition(c, h.lifecycleService.Pay)
}

// CancelClaim handles POST /api/claims/:id/cancel
func (h *Handlers) CancelClaim(c *gin.Context) {
	h.transition(c, h.lifecycleService.Cancel)
}

// DecideClaim handles POST /api/claims/:id/decisions
func (h *Handlers) DecideClaim(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	decided, err := h.lifecycleService.Decide(c.Request.Context(), id, actor, claim.Decision(req.Decision), req.Remark)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: decided})
}

// ReturnClaim handles POST /api/claims/:id/return
func (h *Handlers) ReturnClaim(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	var req ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	returned, err := h.lifecycleService.Return(c.Request.Context(), id, actor, req.Remark)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: returned})
}

// StatusCounts handles GET /api/claims/counts
func (h *Handlers) StatusCounts(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	from, ok := h.dateParam(c, "from")
	if !ok {
		return
	}
	to, ok := h.dateParam(c, "to")
	if !ok {
		return
	}

	counts, err := h.lifecycleService.StatusCounts(c.Request.Context(), claim.ViewMode(c.Query("view")), actor, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: counts})
}

// ExportClaims handles GET /api/claims/export
func (h *Handlers) ExportClaims(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	data, err := h.exportService.Export(c.Request.Context(), claim.ViewMode(c.Query("view")), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="claims.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// transition runs a remark-less lifecycle operation and renders the result
func (h *Handlers) transition(c *gin.Context, op func(ctx context.Context, claimID int64, actorID string) (*claim.Claim, error)) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	updated, err := op(c.Request.Context(), id, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: updated})
}

func (h *Handlers) actor(c *gin.Context) (string, bool) {
	actor := c.GetHeader(actorHeader)
	if actor == "" {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "missing " + actorHeader + " header"})
		return "", false
	}
	return actor, true
}

func (h *Handlers) claimID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid claim id"})
		return 0, false
	}
	return id, true
}

func (h *Handlers) dateParam(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid " + name + " date"})
		return nil, false
	}
	return &t, true
}

func (h *Handlers) bindDraftInput(c *gin.Context) (service.DraftInput, bool) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return service.DraftInput{}, false
	}

	input := service.DraftInput{
		Name:      req.Name,
		Type:      claim.Type(req.Type),
		Remark:    req.Remark,
		ProjectID: req.ProjectID,
	}

	var err error
	if req.Amount != "" {
		if input.Amount, err = decimal.NewFromString(req.Amount); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid amount"})
			return service.DraftInput{}, false
		}
	}
	if req.TotalHours != "" {
		if input.TotalHours, err = decimal.NewFromString(req.TotalHours); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid total hours"})
			return service.DraftInput{}, false
		}
	}
	if req.StartDate != "" {
		if input.StartDate, err = time.Parse(dateLayout, req.StartDate); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid start date"})
			return service.DraftInput{}, false
		}
	}
	if req.EndDate != "" {
		if input.EndDate, err = time.Parse(dateLayout, req.EndDate); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid end date"})
			return service.DraftInput{}, false
		}
	}

	return input, true
}

// respondError maps the error taxonomy to stable status codes so the UI can
// render role-appropriate messaging.
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, claim.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, claim.ErrForbidden):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: err.Error()})
	case errors.Is(err, claim.ErrValidation), errors.Is(err, claim.ErrConfiguration):
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: err.Error()})
	case errors.Is(err, claim.ErrInvalidTransition), errors.Is(err, claim.ErrInvalidStateForEdit),
		errors.Is(err, claim.ErrConcurrentModification):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}
