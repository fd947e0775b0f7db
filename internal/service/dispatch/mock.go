package dispatch

import "github.com/vladislavdragonenkov/delivery-tracker/internal/domain"

// MockService — конфигурируемая заглушка DispatchService для тестов.
type MockService struct {
	AssignCourier domain.Courier
	AssignErr     error

	AssignCalls int
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		AssignCourier: domain.Courier{ID: "courier_1", Name: "Oleg"},
	}
}

// Assign возвращает заранее настроенного курьера и считает вызовы.
func (m *MockService) Assign(orderID string) (domain.Courier, error) {
	m.AssignCalls++
	return m.AssignCourier, m.AssignErr
}

var _ domain.DispatchService = (*MockService)(nil)
