package transport

import (
	"time"

	"hirelocal_backend/internal/leads/domain"
	"hirelocal_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	CategoryID  uuid.UUID `json:"categoryId" validate:"required"`
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Description string    `json:"description" validate:"max=4000"`
	BudgetMin   int       `json:"budgetMin" validate:"gte=0"`
	BudgetMax   int       `json:"budgetMax" validate:"gtefield=BudgetMin"`
	Location    string    `json:"location" validate:"required,notblank,max=200"`
	Pincode     *string   `json:"pincode,omitempty" validate:"omitempty,pincode"`
}

type RespondRequest struct {
	Reason string  `json:"reason,omitempty" validate:"omitempty,oneof=expired no_response busy not_interested"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type InquiryRequest struct {
	Message string `json:"message" validate:"required,notblank,max=2000"`
}

type PageQuery struct {
	Page     int `form:"page" validate:"omitempty,gte=1"`
	PageSize int `form:"pageSize" validate:"omitempty,gte=1,lte=100"`
}

// Response DTOs
type LeadResponse struct {
	ID          uuid.UUID         `json:"id"`
	CustomerID  uuid.UUID         `json:"customerId"`
	CategoryID  uuid.UUID         `json:"categoryId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	BudgetMin   int               `json:"budgetMin"`
	BudgetMax   int               `json:"budgetMax"`
	Location    string            `json:"location"`
	Pincode     *string           `json:"pincode,omitempty"`
	Status      domain.LeadStatus `json:"status"`
	AcceptedBy  *uuid.UUID        `json:"acceptedBy,omitempty"`
	AcceptedAt  *time.Time        `json:"acceptedAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type CreateLeadResponse struct {
	Lead              LeadResponse `json:"lead"`
	NotificationCount int          `json:"notificationCount"`
	TotalFreelancers  int          `json:"totalFreelancers"`
	ErrorCount        int          `json:"errorCount"`
	PersistedCount    int          `json:"persistedCount"`
}

type CustomerDetailsResponse struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type AcceptLeadResponse struct {
	Lead            LeadResponse            `json:"lead"`
	CustomerDetails CustomerDetailsResponse `json:"customerDetails"`
}

type FeedResponse struct {
	Leads       []LeadResponse `json:"leads"`
	HasLeadPlan bool           `json:"hasLeadPlan"`
}

type HistoryItemResponse struct {
	LeadID       uuid.UUID                `json:"leadId"`
	LeadTitle    string                   `json:"leadTitle"`
	Location     string                   `json:"location"`
	BudgetMin    int                      `json:"budgetMin"`
	BudgetMax    int                      `json:"budgetMax"`
	LeadStatus   domain.LeadStatus        `json:"leadStatus"`
	Status       domain.InteractionStatus `json:"status"`
	NotifiedAt   time.Time                `json:"notifiedAt"`
	RespondedAt  *time.Time               `json:"respondedAt,omitempty"`
	MissedReason *domain.MissedReason     `json:"missedReason,omitempty"`
	Notes        *string                  `json:"notes,omitempty"`
}

type PageResponse[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

type InquiryResponse struct {
	Delivered bool `json:"delivered"`
}

func ToLeadResponse(l domain.Lead) LeadResponse {
	return LeadResponse{
		ID:          l.ID,
		CustomerID:  l.CustomerID,
		CategoryID:  l.CategoryID,
		Title:       l.Title,
		Description: l.Description,
		BudgetMin:   l.BudgetMin,
		BudgetMax:   l.BudgetMax,
		Location:    l.Location,
		Pincode:     l.Pincode,
		Status:      l.Status,
		AcceptedBy:  l.AcceptedBy,
		AcceptedAt:  l.AcceptedAt,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func ToLeadResponses(leads []domain.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, ToLeadResponse(l))
	}
	return out
}

func ToHistoryItemResponse(h repository.HistoryItem) HistoryItemResponse {
	return HistoryItemResponse{
		LeadID:       h.Interaction.LeadID,
		LeadTitle:    h.LeadTitle,
		Location:     h.Location,
		BudgetMin:    h.BudgetMin,
		BudgetMax:    h.BudgetMax,
		LeadStatus:   h.LeadStatus,
		Status:       h.Interaction.Status,
		NotifiedAt:   h.Interaction.NotifiedAt,
		RespondedAt:  h.Interaction.RespondedAt,
		MissedReason: h.Interaction.MissedReason,
		Notes:        h.Interaction.Notes,
	}
}

func NewPage[T any](items []T, total, page, pageSize int) PageResponse[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return PageResponse[T]{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}
}
