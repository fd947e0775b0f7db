package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
)

// sseBufferSize — ёмкость канала между подпиской реестра и writer'ом.
// Медленный клиент теряет промежуточные снимки, но не блокирует мутации
// реестра: каждый доставленный снимок самодостаточен.
const sseBufferSize = 16

// streamEvents отдаёт обновления заказа как Server-Sent Events.
// Подписка реестра закрывается при отключении клиента.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	order, err := h.registry.GetOrder(orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, fmt.Errorf("streaming is not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	updates := make(chan domain.Order, sseBufferSize)
	sub := h.registry.Subscribe(orderID, func(o domain.Order) {
		select {
		case updates <- o:
		default:
		}
	})
	defer sub.Cancel()

	// Текущее состояние уходит первым событием, чтобы клиенту не нужен
	// был отдельный GET перед подпиской.
	if err := writeSSE(w, "snapshot", toOrderResponse(order)); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case update := <-updates:
			if err := writeSSE(w, "update", toOrderResponse(update)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
