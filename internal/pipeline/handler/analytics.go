package handler

import (
	"marketplace_backend/internal/pipeline/errmap"
	"marketplace_backend/internal/pipeline/transport"
	"marketplace_backend/internal/session"
	"marketplace_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

func (h *Handler) LeadFunnel(c *gin.Context) {
	loc, err := h.location(c)
	if httpkit.HandleError(c, errmap.Map(err)) {
		return
	}

	scope := h.policy.VisibilityFilter(session.FromContext(c))
	funnel, err := h.analytics.ComputeFunnel(c.Request.Context(), scope, loc)
	if httpkit.HandleError(c, errmap.Map(err)) {
		return
	}

	httpkit.OK(c, funnel)
}

func (h *Handler) InquiryFunnel(c *gin.Context) {
	loc, err := h.location(c)
	if httpkit.HandleError(c, errmap.Map(err)) {
		return
	}

	scope := h.policy.VisibilityFilter(session.FromContext(c))
	funnel, err := h.analytics.ComputeInquiryFunnel(c.Request.Context(), scope, loc)
	if httpkit.HandleError(c, errmap.Map(err)) {
		return
	}

	httpkit.OK(c, funnel)
}

func (h *Handler) TopBrands(c *gin.Context) {
	var q transport.TopBrandsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	if q.K == 0 {
		q.K = defaultTopK
	}

	scope := h.policy.VisibilityFilter(session.FromContext(c))
	ranked, err := h.analytics.ComputeTopEntities(c.Request.Context(), scope, q.K)
	if httpkit.HandleError(c, errmap.Map(err)) {
		return
	}

	httpkit.OK(c, gin.H{"items": ranked})
}

func (h *Handler) PipelineValue(c *gin.Context) {
	scope := h.policy.VisibilityFilter(session.FromContext(c))
	value, err := h.analytics.PipelineValueForScope(c.Request.Context(), scope)
	if httpkit.HandleError(c, errmap.Map(err)) {
		return
	}

	httpkit.OK(c, value)
}
