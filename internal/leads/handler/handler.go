package handler

import (
	"context"
	"net/http"

	"hirelocal_backend/internal/leads/domain"
	"hirelocal_backend/internal/leads/management"
	"hirelocal_backend/internal/leads/tracker"
	"hirelocal_backend/internal/leads/transport"
	"hirelocal_backend/platform/httpkit"
	"hirelocal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	roleAdmin           = "admin"
)

// Sweeper runs the missed-lead sweep on demand.
type Sweeper interface {
	SweepMissed(ctx context.Context) (tracker.SweepResult, error)
}

type Handler struct {
	svc     *management.Service
	sweeper Sweeper
	val     *validator.Validator
}

func New(svc *management.Service, sweeper Sweeper, val *validator.Validator) *Handler {
	return &Handler{svc: svc, sweeper: sweeper, val: val}
}

// RegisterRoutes mounts the customer facing lead routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.ListMine)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/complete", h.Complete)
	rg.POST("/:id/cancel", h.Cancel)
}

// RegisterFreelancerRoutes mounts routes under /freelancers/:id. acceptLimit
// throttles the acceptance route per client.
func (h *Handler) RegisterFreelancerRoutes(rg *gin.RouterGroup, acceptLimit gin.HandlerFunc) {
	rg.GET("/leads/notifications", h.Feed)
	rg.GET("/leads/history", h.History)
	rg.POST("/leads/:leadId/accept", acceptLimit, h.Accept)
	rg.POST("/leads/:leadId/missed", h.Missed)
	rg.POST("/leads/:leadId/ignored", h.Ignored)
	rg.GET("/leads/:leadId/customer-phone", h.CustomerPhone)
	rg.POST("/inquiries", h.Inquiry)
}

// RegisterAdminRoutes mounts operator routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads/sweep-missed", h.SweepMissed)
}

func actorOf(c *gin.Context) (management.Actor, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return management.Actor{}, false
	}
	return management.Actor{UserID: id.UserID(), Admin: id.HasRole(roleAdmin)}, true
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return false
	}
	return true
}

func (h *Handler) page(c *gin.Context) (transport.PageQuery, bool) {
	var q transport.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return q, false
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return q, false
	}
	return q, true
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	var req transport.CreateLeadRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.svc.CreateLead(c.Request.Context(), actor, management.CreateLeadInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		BudgetMin:   req.BudgetMin,
		BudgetMax:   req.BudgetMax,
		Location:    req.Location,
		Pincode:     req.Pincode,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.CreateLeadResponse{
		Lead:              transport.ToLeadResponse(res.Lead),
		NotificationCount: res.Dispatch.Succeeded,
		TotalFreelancers:  res.TotalFreelancers,
		ErrorCount:        res.ErrorCount,
		PersistedCount:    res.Dispatch.Persisted,
	})
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	q, ok := h.page(c)
	if !ok {
		return
	}

	page, err := h.svc.ListMyLeads(c.Request.Context(), actor, q.Page, q.PageSize)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewPage(transport.ToLeadResponses(page.Items), page.Total, page.Page, page.PageSize))
}

func (h *Handler) Get(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	lead, err := h.svc.GetLead(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Complete(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	lead, err := h.svc.CompleteLead(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	lead, err := h.svc.CancelLead(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Feed(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	freelancerID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	feed, err := h.svc.PendingFeed(c.Request.Context(), actor, freelancerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FeedResponse{Leads: transport.ToLeadResponses(feed.Leads), HasLeadPlan: feed.HasLeadPlan})
}

func (h *Handler) History(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	freelancerID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	q, ok := h.page(c)
	if !ok {
		return
	}

	page, err := h.svc.History(c.Request.Context(), actor, freelancerID, q.Page, q.PageSize)
	if httpkit.HandleError(c, err) {
		return
	}
	items := make([]transport.HistoryItemResponse, 0, len(page.Items))
	for _, it := range page.Items {
		items = append(items, transport.ToHistoryItemResponse(it))
	}
	httpkit.OK(c, transport.NewPage(items, page.Total, page.Page, page.PageSize))
}

func (h *Handler) Accept(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	freelancerID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	leadID, ok := httpkit.ParamUUID(c, "leadId")
	if !ok {
		return
	}

	res, err := h.svc.AcceptLead(c.Request.Context(), actor, freelancerID, leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AcceptLeadResponse{
		Lead: transport.ToLeadResponse(res.Lead),
		CustomerDetails: transport.CustomerDetailsResponse{
			Name:     res.Customer.Name,
			Phone:    res.Customer.Phone,
			Location: res.Customer.Location,
		},
	})
}

func (h *Handler) Missed(c *gin.Context) {
	h.respond(c, func(ctx context.Context, actor management.Actor, freelancerID, leadID uuid.UUID, in management.RespondInput) error {
		if in.Reason == "" {
			in.Reason = domain.MissedNotInterested
		}
		return h.svc.MarkMissed(ctx, actor, freelancerID, leadID, in)
	})
}

func (h *Handler) Ignored(c *gin.Context) {
	h.respond(c, h.svc.MarkIgnored)
}

type respondFunc func(ctx context.Context, actor management.Actor, freelancerID, leadID uuid.UUID, in management.RespondInput) error

func (h *Handler) respond(c *gin.Context, fn respondFunc) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	freelancerID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	leadID, ok := httpkit.ParamUUID(c, "leadId")
	if !ok {
		return
	}
	var req transport.RespondRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}

	err := fn(c.Request.Context(), actor, freelancerID, leadID, management.RespondInput{
		Reason: domain.MissedReason(req.Reason),
		Notes:  req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CustomerPhone(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	freelancerID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	leadID, ok := httpkit.ParamUUID(c, "leadId")
	if !ok {
		return
	}

	details, err := h.svc.CustomerPhone(c.Request.Context(), actor, freelancerID, leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.CustomerDetailsResponse{Name: details.Name, Phone: details.Phone, Location: details.Location})
}

func (h *Handler) Inquiry(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	freelancerID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req transport.InquiryRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.svc.SendInquiry(c.Request.Context(), actor, freelancerID, req.Message)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, transport.InquiryResponse{Delivered: res.Delivered})
}

// SweepMissed triggers one sweep run. Safe to call while the scheduled
// sweep is running.
func (h *Handler) SweepMissed(c *gin.Context) {
	res, err := h.sweeper.SweepMissed(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, res)
}
