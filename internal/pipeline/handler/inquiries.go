package handler

import (
	"net/http"

	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/transport"
	"marketplace_backend/internal/session"
	"marketplace_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListInquiries(c *gin.Context) {
	var q transport.ListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	result, err := h.svc.ListInquiries(c.Request.Context(), session.FromContext(c), toServiceQuery(q))
	if httpkit.HandleError(c, err) {
		return
	}

	page, size := pageOf(q)
	httpkit.OK(c, transport.ToPage(result, page, size, transport.ToInquiryResponse))
}

func (h *Handler) GetInquiry(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	inquiry, err := h.svc.GetInquiry(c.Request.Context(), session.FromContext(c), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToInquiryResponse(inquiry))
}

// MarkInquiryRead moves an unread inquiry to read. Repeating it is a no-op.
func (h *Handler) MarkInquiryRead(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	caller := session.FromContext(c)
	inquiry, err := h.surface(c, caller).Coordinator().MarkRead(c.Request.Context(), caller, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToInquiryResponse(inquiry))
}

func (h *Handler) UpdateInquiryStatus(c *gin.Context) {
	h.updateStatus(c, domain.EntityInquiry)
}

func (h *Handler) UpdateInquiryField(c *gin.Context) {
	h.updateField(c, domain.EntityInquiry)
}

func (h *Handler) DeleteInquiry(c *gin.Context) {
	h.delete(c, domain.EntityInquiry)
}

func (h *Handler) ListReplies(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	replies, err := h.svc.ListReplies(c.Request.Context(), session.FromContext(c), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": transport.MapSlice(replies, transport.ToReplyResponse)})
}

func (h *Handler) PostReply(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req transport.CreateReplyRequest
	if !h.bind(c, &req) {
		return
	}

	caller := session.FromContext(c)
	reply, inquiry, err := h.surface(c, caller).Coordinator().PostReply(c.Request.Context(), caller, id, req.Message, req.IsInternalNote)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.PostReplyResponse{
		Reply:   transport.ToReplyResponse(reply),
		Inquiry: transport.ToInquiryResponse(inquiry),
	})
}
