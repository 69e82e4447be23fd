package ordersapi

import (
	"time"

	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/BearBump/FilmTrack/internal/services/orders"
)

type addOrderItem struct {
	StoreID     string `json:"storeId"`
	ShopID      string `json:"shopId"`
	OrderNumber string `json:"orderNumber"`
	HTNumber    string `json:"htNumber,omitempty"`
}

type addOrdersRequest struct {
	Items []addOrderItem `json:"items"`
}

type checkOrdersRequest struct {
	IDs []uint64 `json:"ids"`
}

type orderDTO struct {
	ID            uint64     `json:"id"`
	StoreID       string     `json:"storeId"`
	ProviderID    string     `json:"providerId"`
	ShopID        string     `json:"shopId"`
	OrderNumber   string     `json:"orderNumber"`
	HTNumber      string     `json:"htNumber,omitempty"`
	AddedAt       time.Time  `json:"addedAt"`
	State         string     `json:"state"`
	StateText     string     `json:"stateText,omitempty"`
	StateAt       *time.Time `json:"stateAt,omitempty"`
	LastCheckedAt *time.Time `json:"lastCheckedAt,omitempty"`
	NextCheckAt   time.Time  `json:"nextCheckAt"`
	LastError     string     `json:"lastError,omitempty"`
}

type ordersResponse struct {
	Orders []orderDTO `json:"orders"`
}

type statusDTO struct {
	State     string     `json:"state"`
	StateText string     `json:"stateText"`
	StateDate *time.Time `json:"stateDate,omitempty"`
}

type checkResultDTO struct {
	Order  orderDTO  `json:"order"`
	Status statusDTO `json:"status"`
}

type checkOrdersResponse struct {
	Results []checkResultDTO `json:"results"`
}

type storeDTO struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	ProviderID        string   `json:"providerId"`
	RequiredFields    []string `json:"requiredFields"`
	NeedsStoreLocator bool     `json:"needsStoreLocator"`
}

type storesResponse struct {
	Stores []storeDTO `json:"stores"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func toOrderDTO(o *models.TrackedOrder) orderDTO {
	return orderDTO{
		ID:            o.ID,
		StoreID:       o.StoreID,
		ProviderID:    o.ProviderID,
		ShopID:        o.ShopID,
		OrderNumber:   o.OrderNumber,
		HTNumber:      o.HTNumber,
		AddedAt:       o.AddedAt,
		State:         string(o.State),
		StateText:     o.StateText,
		StateAt:       o.StateAt,
		LastCheckedAt: o.LastCheckedAt,
		NextCheckAt:   o.NextCheckAt,
		LastError:     derefString(o.LastError),
	}
}

func toOrderDTOs(list []*models.TrackedOrder) []orderDTO {
	out := make([]orderDTO, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderDTO(o))
	}
	return out
}

func toCheckResults(rs []orders.CheckedOrder) []checkResultDTO {
	out := make([]checkResultDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, checkResultDTO{
			Order: toOrderDTO(r.Order),
			Status: statusDTO{
				State:     string(r.Status.State),
				StateText: r.Status.StateText,
				StateDate: r.Status.StateDate,
			},
		})
	}
	return out
}

func toStoreDTOs(ms []models.StoreModel) []storeDTO {
	out := make([]storeDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, storeDTO{
			ID:                m.ID,
			Name:              m.Name,
			ProviderID:        m.ProviderID,
			RequiredFields:    m.RequiredFields,
			NeedsStoreLocator: m.NeedsStoreLocator,
		})
	}
	return out
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
