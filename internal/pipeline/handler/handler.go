package handler

import (
	"net/http"
	"strings"
	"time"

	"marketplace_backend/internal/pipeline/analytics"
	"marketplace_backend/internal/pipeline/coordinator"
	"marketplace_backend/internal/pipeline/dashboard"
	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/service"
	"marketplace_backend/internal/pipeline/transport"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/httpkit"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid id"

	// HeaderTimezone overrides the reporting timezone, like the tz query parameter.
	HeaderTimezone = "X-Timezone"
	// HeaderSurfaceID tells the dashboard which surface applied its mutation.
	HeaderSurfaceID = "X-Surface-ID"

	defaultTopK = 10
)

// Deps are the collaborators of a Handler.
type Deps struct {
	Service         *service.Service
	Registry        *dashboard.Registry
	Analytics       *analytics.Aggregator
	Policy          coordinator.Policy
	Validator       *validator.Validator
	DefaultLocation *time.Location
	Log             *logger.Logger
	// Heartbeat is the keep-alive interval of event streams.
	Heartbeat time.Duration
}

type Handler struct {
	svc       *service.Service
	registry  *dashboard.Registry
	analytics *analytics.Aggregator
	policy    coordinator.Policy
	val       *validator.Validator
	loc       *time.Location
	log       *logger.Logger
	heartbeat time.Duration
}

func New(deps Deps) *Handler {
	h := &Handler{
		svc:       deps.Service,
		registry:  deps.Registry,
		analytics: deps.Analytics,
		policy:    deps.Policy,
		val:       deps.Validator,
		loc:       deps.DefaultLocation,
		log:       deps.Log,
		heartbeat: deps.Heartbeat,
	}
	if h.val == nil {
		h.val = validator.New()
	}
	if h.loc == nil {
		h.loc = time.UTC
	}
	if h.log == nil {
		h.log = logger.Discard()
	}
	if h.heartbeat <= 0 {
		h.heartbeat = defaultHeartbeat
	}
	return h
}

// RegisterPublicRoutes mounts the anonymous contact form endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/brands/:brandId/leads", h.IntakeLead)
	rg.POST("/brands/:brandId/inquiries", h.IntakeInquiry)
}

// RegisterRoutes mounts the dashboard endpoints. rg must resolve the caller
// with session.Middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	leads := rg.Group("/leads")
	leads.GET("", h.ListLeads)
	leads.POST("", h.CreateLead)
	leads.GET("/:id", h.GetLead)
	leads.PATCH("/:id/status", h.UpdateLeadStatus)
	leads.PATCH("/:id/fields", h.UpdateLeadField)
	leads.DELETE("/:id", h.DeleteLead)
	leads.GET("/:id/interactions", h.ListInteractions)
	leads.POST("/:id/interactions", h.AddInteraction)

	inquiries := rg.Group("/inquiries")
	inquiries.GET("", h.ListInquiries)
	inquiries.GET("/:id", h.GetInquiry)
	inquiries.POST("/:id/read", h.MarkInquiryRead)
	inquiries.PATCH("/:id/status", h.UpdateInquiryStatus)
	inquiries.PATCH("/:id/fields", h.UpdateInquiryField)
	inquiries.DELETE("/:id", h.DeleteInquiry)
	inquiries.GET("/:id/replies", h.ListReplies)
	inquiries.POST("/:id/replies", h.PostReply)

	reports := rg.Group("/analytics")
	reports.GET("/leads/funnel", h.LeadFunnel)
	reports.GET("/inquiries/funnel", h.InquiryFunnel)
	reports.GET("/top-brands", h.TopBrands)
	reports.GET("/pipeline-value", h.PipelineValue)

	sync := rg.Group("/sync")
	sync.GET("/snapshot", h.Snapshot)
	sync.GET("/stream", h.Stream)
}

// bind decodes the JSON body into req and validates it. It writes the
// error response and returns false on failure.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, err)
		return false
	}
	return true
}

func (h *Handler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, err)
		return false
	}
	return true
}

func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// surface returns the caller's dashboard surface and announces it in the response.
func (h *Handler) surface(c *gin.Context, caller domain.Identity) *dashboard.Surface {
	s := h.registry.Surface(caller)
	c.Header(HeaderSurfaceID, s.ID())
	return s
}

// location resolves the reporting timezone from the tz query parameter or
// the X-Timezone header, falling back to the configured default.
func (h *Handler) location(c *gin.Context) (*time.Location, error) {
	name := strings.TrimSpace(c.Query("tz"))
	if name == "" {
		name = strings.TrimSpace(c.GetHeader(HeaderTimezone))
	}
	if name == "" {
		return h.loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperr.Validation("unknown timezone").WithDetails(gin.H{"timezone": name})
	}
	return loc, nil
}

func toServiceQuery(q transport.ListQuery) service.ListQuery {
	return service.ListQuery{
		Statuses:    q.Statuses(),
		Priority:    q.Priority,
		Search:      q.Search,
		CreatedFrom: q.From,
		CreatedTo:   q.To,
		SortBy:      q.SortBy,
		SortOrder:   q.SortOrder,
		Page:        q.Page,
		PageSize:    q.PageSize,
	}
}

func pageOf(q transport.ListQuery) (int, int) {
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 100
	}
	return page, size
}

// =============================================================================
// Public intake
// =============================================================================

func (h *Handler) IntakeLead(c *gin.Context) {
	var req transport.PublicLeadRequest
	if !h.bind(c, &req) {
		return
	}

	lead, err := h.svc.IntakeLead(c.Request.Context(), domain.NewLeadInput{
		BrandID:       c.Param("brandId"),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Source:        req.Source,
		Notes:         req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, gin.H{"id": lead.ID, "status": lead.Status})
}

func (h *Handler) IntakeInquiry(c *gin.Context) {
	var req transport.PublicInquiryRequest
	if !h.bind(c, &req) {
		return
	}

	inquiry, err := h.svc.IntakeInquiry(c.Request.Context(), domain.NewInquiryInput{
		BrandID:       c.Param("brandId"),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Subject:       req.Subject,
		Message:       req.Message,
		InquiryType:   req.InquiryType,
		Source:        req.Source,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, gin.H{"id": inquiry.ID, "status": inquiry.Status})
}
