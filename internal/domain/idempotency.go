package domain

import "time"

// IdempotencyStatus — стадия обработки checkout-запроса под ключом
// идемпотентности. Повтор ключа со статусом done переигрывает сохранённый
// ответ вместо повторной обработки.
type IdempotencyStatus string

const (
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	IdempotencyStatusDone       IdempotencyStatus = "done"
	IdempotencyStatusFailed     IdempotencyStatus = "failed"
)

// IdempotencyRecord связывает ключ идемпотентности с хэшем тела запроса
// и сохранённым ответом. RequestHash защищает от повторного использования
// ключа с другим телом.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	Status      IdempotencyStatus
	TTLAt       time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Ответ, который переигрывается при повторе ключа.
	ResponseBody []byte
	HTTPStatus   int
}

func (s IdempotencyStatus) Valid() bool {
	switch s {
	case IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed:
		return true
	}
	return false
}
