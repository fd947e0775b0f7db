package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
)

// orderStore — in-memory реализация OrderRepository. Порядок вставки
// сохраняется: List возвращает заказы в порядке их создания.
type orderStore struct {
	mu        sync.RWMutex
	orders    map[string]domain.Order
	insertion []string
}

// NewOrderRepository возвращает in-memory репозиторий, используемый по
// умолчанию и в тестах.
func NewOrderRepository() domain.OrderRepository {
	return &orderStore{orders: make(map[string]domain.Order)}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (s *orderStore) Create(order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return domain.ErrOrderExists
	}
	// Храним копию, чтобы мутации снаружи не трогали состояние репозитория.
	s.orders[order.ID] = order.Clone()
	s.insertion = append(s.insertion, order.ID)
	return nil
}

// Get возвращает копию заказа или ErrOrderNotFound, если его нет.
func (s *orderStore) Get(id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order.Clone(), nil
}

// List возвращает заказы, удовлетворяющие фильтру, в порядке создания.
func (s *orderStore) List(filter domain.OrderFilter) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, len(s.insertion))
	for _, id := range s.insertion {
		if order := s.orders[id]; matchesFilter(order, filter) {
			result = append(result, order.Clone())
		}
	}
	return result, nil
}

// Save перезаписывает заказ с проверкой версии (optimistic locking).
func (s *orderStore) Save(order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	order.Version++
	s.orders[order.ID] = order.Clone()
	return nil
}

func matchesFilter(order domain.Order, filter domain.OrderFilter) bool {
	if filter.Status != "" && order.Status != filter.Status {
		return false
	}
	if filter.RestaurantID != "" && order.Restaurant.ID != filter.RestaurantID {
		return false
	}
	if filter.CustomerID != "" && order.Customer.ID != filter.CustomerID {
		return false
	}
	if filter.CourierID != "" {
		if order.Courier == nil || order.Courier.ID != filter.CourierID {
			return false
		}
	}
	return true
}

var _ domain.OrderRepository = (*orderStore)(nil)
