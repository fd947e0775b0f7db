package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/registry"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour

	maxCheckoutBodyBytes = 1 << 20
)

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCheckoutBodyBytes))
	if err != nil {
		h.writeBadRequest(w, "failed to read request body")
		return
	}

	var req checkoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeBadRequest(w, "invalid json body")
		return
	}

	key := r.Header.Get(idempotencyHeader)
	if key == "" || h.idempotency == nil {
		h.processCheckout(w, req)
		return
	}

	hash := sha256.Sum256(body)
	requestHash := hex.EncodeToString(hash[:])

	_, createErr := h.idempotency.CreateProcessing(key, requestHash, time.Now().UTC().Add(idempotencyTTL))
	switch {
	case createErr == nil:
		status, payload := h.runCheckout(req)
		if status < http.StatusBadRequest {
			if markErr := h.idempotency.MarkDone(key, payload, status); markErr != nil {
				h.logger.WithError(markErr).WithField("key", key).Warn("failed to mark idempotency key done")
			}
		} else {
			if markErr := h.idempotency.MarkFailed(key, payload, status); markErr != nil {
				h.logger.WithError(markErr).WithField("key", key).Warn("failed to mark idempotency key failed")
			}
		}
		h.writeRaw(w, status, payload)

	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		h.writeError(w, createErr)

	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		record, getErr := h.idempotency.Get(key)
		if getErr != nil {
			h.writeError(w, getErr)
			return
		}
		if record.Status == domain.IdempotencyStatusProcessing {
			// Первый запрос с этим ключом ещё в полёте.
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(errorResponse{Error: "request with this idempotency key is still processing"})
			return
		}
		h.writeRaw(w, record.HTTPStatus, record.ResponseBody)

	default:
		h.writeError(w, createErr)
	}
}

// processCheckout обрабатывает checkout без идемпотентности.
func (h *Handler) processCheckout(w http.ResponseWriter, req checkoutRequest) {
	status, payload := h.runCheckout(req)
	h.writeRaw(w, status, payload)
}

// runCheckout выполняет checkout и возвращает готовый HTTP-ответ: он же
// сохраняется в idempotency-записи для переигрывания.
func (h *Handler) runCheckout(req checkoutRequest) (int, []byte) {
	method := registry.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = registry.PaymentMethodCard
	}
	if method != registry.PaymentMethodCard && method != registry.PaymentMethodCash {
		payload, _ := json.Marshal(errorResponse{Error: "unknown payment method"})
		return http.StatusBadRequest, payload
	}

	order, err := h.registry.Checkout(req.toCreateParams(), method)
	if err != nil {
		payload, _ := json.Marshal(errorResponse{Error: err.Error()})
		return http.StatusInternalServerError, payload
	}

	payload, err := json.Marshal(toOrderResponse(order))
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal checkout response")
		payload, _ = json.Marshal(errorResponse{Error: "internal error"})
		return http.StatusInternalServerError, payload
	}
	return http.StatusCreated, payload
}

func (h *Handler) writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		h.logger.WithError(err).Warn("failed to write response")
	}
}
