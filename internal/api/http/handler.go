package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/registry"
)

// Handler отдаёт JSON API реестра заказов.
type Handler struct {
	registry    *registry.Service
	idempotency domain.IdempotencyRepository
	logger      *log.Entry
}

// HandlerOption настраивает Handler.
type HandlerOption func(*Handler)

// WithIdempotencyRepository включает поддержку Idempotency-Key на checkout.
func WithIdempotencyRepository(repo domain.IdempotencyRepository) HandlerOption {
	return func(h *Handler) { h.idempotency = repo }
}

// WithLogger задаёт logger для API.
func WithLogger(logger *log.Entry) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler создаёт HTTP handler поверх реестра заказов.
func NewHandler(svc *registry.Service, options ...HandlerOption) *Handler {
	h := &Handler{registry: svc}
	for _, option := range options {
		option(h)
	}
	if h.logger == nil {
		h.logger = log.WithField("component", "http-api")
	}
	return h
}

// Routes собирает маршрутизацию API.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("POST /orders", h.checkout)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("POST /orders/{id}/status", h.updateStatus)
	mux.HandleFunc("POST /orders/{id}/courier", h.assignCourier)
	mux.HandleFunc("POST /orders/{id}/location", h.updateLocation)
	mux.HandleFunc("GET /orders/{id}/timeline", h.timeline)
	mux.HandleFunc("GET /orders/{id}/events", h.streamEvents)

	return mux
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.registry.GetOrder(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		orders []domain.Order
		err    error
	)
	switch {
	case query.Get("status") != "":
		status := domain.OrderStatus(query.Get("status"))
		if !status.Valid() {
			h.writeError(w, domain.ErrStatusUnknown)
			return
		}
		orders, err = h.registry.ListByStatus(status)
	case query.Get("restaurant") != "":
		orders, err = h.registry.ListByRestaurant(query.Get("restaurant"))
	case query.Get("customer") != "":
		orders, err = h.registry.ListByCustomer(query.Get("customer"))
	case query.Get("courier") != "":
		orders, err = h.registry.ListByCourier(query.Get("courier"))
	default:
		orders, err = h.registry.ListAll()
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderResponse(order))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid json body")
		return
	}

	order, err := h.registry.UpdateStatus(
		r.PathValue("id"),
		domain.OrderStatus(req.Status),
		req.Actor,
		req.Note,
	)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) assignCourier(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	var req courierPayload
	// Пустое тело — легитимный запрос на автоподбор курьера.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeBadRequest(w, "invalid json body")
		return
	}

	var (
		order domain.Order
		err   error
	)
	if req.ID == "" {
		// Пустое тело: курьера подбирает диспетчеризация.
		order, err = h.registry.DispatchCourier(orderID)
	} else {
		order, err = h.registry.AssignCourier(orderID, domain.Courier{
			ID:    req.ID,
			Name:  req.Name,
			Phone: req.Phone,
		}, "operator")
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid json body")
		return
	}

	order, err := h.registry.UpdateLocation(r.PathValue("id"), domain.Location{
		Lat:     req.Lat,
		Lng:     req.Lng,
		Address: req.Address,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	events, err := h.registry.Timeline(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTimelineResponse(events))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Warn("failed to encode response")
	}
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrLocationNotTracked):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrActorRequired),
		errors.Is(err, domain.ErrStatusUnknown),
		errors.Is(err, domain.ErrCourierRequired),
		errors.Is(err, domain.ErrNoCourierAvailable):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}
