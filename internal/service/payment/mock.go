package payment

import "github.com/vladislavdragonenkov/delivery-tracker/internal/domain"

// MockService — конфигурируемая заглушка PaymentService. В проде её
// место занимает интеграция с платёжным провайдером.
type MockService struct {
	PayResult domain.PaymentResult
	PayErr    error

	PayCalls int
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		PayResult: domain.PaymentResultCaptured,
	}
}

// Pay возвращает заранее настроенный результат и считает вызовы.
func (m *MockService) Pay(orderID string, amountMinor int64, currency string) (domain.PaymentResult, error) {
	m.PayCalls++
	return m.PayResult, m.PayErr
}

var _ domain.PaymentService = (*MockService)(nil)
