package handler

import (
	"net/http"

	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/transport"
	"marketplace_backend/internal/session"
	"marketplace_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListLeads(c *gin.Context) {
	var q transport.ListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	result, err := h.svc.ListLeads(c.Request.Context(), session.FromContext(c), toServiceQuery(q))
	if httpkit.HandleError(c, err) {
		return
	}

	page, size := pageOf(q)
	httpkit.OK(c, transport.ToPage(result, page, size, transport.ToLeadResponse))
}

func (h *Handler) CreateLead(c *gin.Context) {
	var req transport.CreateLeadRequest
	if !h.bind(c, &req) {
		return
	}

	lead, err := h.svc.CreateLead(c.Request.Context(), session.FromContext(c), domain.NewLeadInput{
		BrandID:             req.BrandID,
		CustomerName:        req.CustomerName,
		CustomerEmail:       req.CustomerEmail,
		CustomerPhone:       req.CustomerPhone,
		Source:              req.Source,
		Priority:            req.Priority,
		EstimatedValueCents: req.EstimatedValueCents,
		Notes:               req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}

func (h *Handler) GetLead(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	lead, err := h.svc.GetLead(c.Request.Context(), session.FromContext(c), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) UpdateLeadStatus(c *gin.Context) {
	h.updateStatus(c, domain.EntityLead)
}

func (h *Handler) UpdateLeadField(c *gin.Context) {
	h.updateField(c, domain.EntityLead)
}

func (h *Handler) DeleteLead(c *gin.Context) {
	h.delete(c, domain.EntityLead)
}

func (h *Handler) ListInteractions(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	items, err := h.svc.ListInteractions(c.Request.Context(), session.FromContext(c), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": transport.MapSlice(items, transport.ToInteractionResponse)})
}

func (h *Handler) AddInteraction(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req transport.CreateInteractionRequest
	if !h.bind(c, &req) {
		return
	}

	interaction, err := h.svc.AddInteraction(c.Request.Context(), session.FromContext(c), id, domain.NewInteractionInput{
		InteractionType: req.InteractionType,
		InteractionDate: req.InteractionDate,
		Subject:         req.Subject,
		Description:     req.Description,
		Outcome:         req.Outcome,
		NextAction:      req.NextAction,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToInteractionResponse(interaction))
}

// =============================================================================
// Mutations shared by leads and inquiries
// =============================================================================

func (h *Handler) updateStatus(c *gin.Context, entity domain.EntityType) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req transport.UpdateStatusRequest
	if !h.bind(c, &req) {
		return
	}

	caller := session.FromContext(c)
	rec, err := h.surface(c, caller).Coordinator().UpdateStatus(c.Request.Context(), caller, domain.Ref{Type: entity, ID: id}, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToRecordResponse(rec))
}

func (h *Handler) updateField(c *gin.Context, entity domain.EntityType) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req transport.UpdateFieldRequest
	if !h.bind(c, &req) {
		return
	}

	caller := session.FromContext(c)
	rec, err := h.surface(c, caller).Coordinator().UpdateField(c.Request.Context(), caller, domain.Ref{Type: entity, ID: id}, req.Field, req.Value)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToRecordResponse(rec))
}

func (h *Handler) delete(c *gin.Context, entity domain.EntityType) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	caller := session.FromContext(c)
	err := h.surface(c, caller).Coordinator().Delete(c.Request.Context(), caller, domain.Ref{Type: entity, ID: id})
	if httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}
