package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/registry"
)

type customerPayload struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type restaurantPayload struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

type courierPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type itemPayload struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
	ImageRef   string `json:"image_ref,omitempty"`
}

type historyEntryPayload struct {
	Status string    `json:"status"`
	Actor  string    `json:"actor"`
	Note   string    `json:"note,omitempty"`
	At     time.Time `json:"at"`
}

type locationPayload struct {
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
	Address string    `json:"address,omitempty"`
	At      time.Time `json:"at,omitempty"`
}

type orderResponse struct {
	ID            string                `json:"id"`
	Status        string                `json:"status"`
	Customer      customerPayload       `json:"customer"`
	Restaurant    restaurantPayload     `json:"restaurant"`
	Courier       *courierPayload       `json:"courier,omitempty"`
	Items         []itemPayload         `json:"items,omitempty"`
	AmountMinor   int64                 `json:"amount_minor"`
	PaymentStatus string                `json:"payment_status"`
	Priority      string                `json:"priority"`
	History       []historyEntryPayload `json:"history"`
	Location      *locationPayload      `json:"location,omitempty"`
	Version       int64                 `json:"version"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type timelineEventResponse struct {
	OrderID  string    `json:"order_id"`
	Kind     string    `json:"kind"`
	Status   string    `json:"status,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	Note     string    `json:"note,omitempty"`
	Occurred time.Time `json:"occurred_at"`
}

type checkoutRequest struct {
	Customer      customerPayload   `json:"customer"`
	Restaurant    restaurantPayload `json:"restaurant"`
	Items         []itemPayload     `json:"items"`
	AmountMinor   int64             `json:"amount_minor,omitempty"`
	Priority      string            `json:"priority,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
	Note   string `json:"note,omitempty"`
}

type locationRequest struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toOrderResponse(order domain.Order) orderResponse {
	resp := orderResponse{
		ID:     order.ID,
		Status: string(order.Status),
		Customer: customerPayload{
			ID:      order.Customer.ID,
			Name:    order.Customer.Name,
			Phone:   order.Customer.Phone,
			Address: order.Customer.Address,
		},
		Restaurant: restaurantPayload{
			ID:      order.Restaurant.ID,
			Name:    order.Restaurant.Name,
			Address: order.Restaurant.Address,
		},
		AmountMinor:   order.AmountMinor,
		PaymentStatus: string(order.PaymentStatus),
		Priority:      string(order.Priority),
		Version:       order.Version,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}

	if order.Courier != nil {
		resp.Courier = &courierPayload{
			ID:    order.Courier.ID,
			Name:  order.Courier.Name,
			Phone: order.Courier.Phone,
		}
	}
	if order.Location != nil {
		resp.Location = &locationPayload{
			Lat:     order.Location.Lat,
			Lng:     order.Location.Lng,
			Address: order.Location.Address,
			At:      order.Location.At,
		}
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, itemPayload{
			ID:         item.ID,
			Name:       item.Name,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
			ImageRef:   item.ImageRef,
		})
	}
	for _, entry := range order.History {
		resp.History = append(resp.History, historyEntryPayload{
			Status: string(entry.Status),
			Actor:  entry.Actor,
			Note:   entry.Note,
			At:     entry.At,
		})
	}

	return resp
}

func toTimelineResponse(events []domain.TimelineEvent) []timelineEventResponse {
	out := make([]timelineEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, timelineEventResponse{
			OrderID:  event.OrderID,
			Kind:     string(event.Kind),
			Status:   string(event.Status),
			Actor:    event.Actor,
			Note:     event.Note,
			Occurred: event.Occurred,
		})
	}
	return out
}

func (r checkoutRequest) toCreateParams() registry.CreateParams {
	params := registry.CreateParams{
		Customer: domain.Customer{
			ID:      r.Customer.ID,
			Name:    r.Customer.Name,
			Phone:   r.Customer.Phone,
			Address: r.Customer.Address,
		},
		Restaurant: domain.Restaurant{
			ID:      r.Restaurant.ID,
			Name:    r.Restaurant.Name,
			Address: r.Restaurant.Address,
		},
		AmountMinor: r.AmountMinor,
		Priority:    domain.Priority(r.Priority),
	}
	for _, item := range r.Items {
		params.Items = append(params.Items, domain.OrderItem{
			ID:         item.ID,
			Name:       item.Name,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
			ImageRef:   item.ImageRef,
		})
	}
	return params
}
