package handler

import (
	"net/http"

	"hirelocal_backend/internal/subscriptions/domain"
	"hirelocal_backend/internal/subscriptions/service"
	"hirelocal_backend/internal/subscriptions/transport"
	"hirelocal_backend/platform/httpkit"
	"hirelocal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	roleAdmin           = "admin"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/plans", h.Plans)
	rg.POST("/:id/verify-payment", h.VerifyPayment)
	rg.POST("/:id/cancel", h.Cancel)
}

// RegisterFreelancerRoutes mounts routes under /freelancers/:id.
func (h *Handler) RegisterFreelancerRoutes(rg *gin.RouterGroup) {
	rg.GET("/subscriptions", h.ListForFreelancer)
	rg.GET("/subscription-status", h.Status)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/subscriptions/reconciliation", h.Reconciliation)
}

func actorOf(c *gin.Context) (service.Actor, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return service.Actor{}, false
	}
	return service.Actor{UserID: id.UserID(), Admin: id.HasRole(roleAdmin)}, true
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	var req transport.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	created, err := h.svc.CreateSubscription(c.Request.Context(), actor, service.CreateInput{
		FreelancerID: req.FreelancerID,
		Type:         domain.Type(req.Type),
		CategoryID:   req.CategoryID,
		Area:         req.Area,
		Position:     req.Position,
		BadgeType:    req.BadgeType,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.CreateSubscriptionResponse{
		Subscription: transport.ToSubscriptionResponse(created.Subscription),
		Order:        created.Order,
	})
}

func (h *Handler) Plans(c *gin.Context) {
	httpkit.OK(c, h.svc.Catalog())
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	id, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req transport.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	sub, err := h.svc.VerifyPayment(c.Request.Context(), actor, id, service.VerifyInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSubscriptionResponse(sub))
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

	sub, err := h.svc.CancelSubscription(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSubscriptionResponse(sub))
}

func (h *Handler) ListForFreelancer(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	freelancerID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	subs, err := h.svc.ListForFreelancer(c.Request.Context(), actor, freelancerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSubscriptionResponses(subs))
}

func (h *Handler) Status(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	freelancerID, ok := httpkit.ParamUUID(c, "id")
	if !ok {
		return
	}

	st, err := h.svc.Status(c.Request.Context(), actor, freelancerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.StatusResponse{HasLeadPlan: st.HasLeadPlan, HasActiveSubscription: st.HasActiveSubscription})
}

func (h *Handler) Reconciliation(c *gin.Context) {
	subs, err := h.svc.ListReconciliation(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSubscriptionResponses(subs))
}
