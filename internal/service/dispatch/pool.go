package dispatch

import (
	"sync"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
)

// Pool — простейшая диспетчеризация: курьеры из фиксированного парка
// назначаются по кругу. Внешней курьерской платформы у сервиса нет,
// поэтому парк задаётся конфигурацией при старте.
type Pool struct {
	mu       sync.Mutex
	couriers []domain.Courier
	next     int
}

// NewPool создаёт пул поверх переданного списка курьеров.
func NewPool(couriers []domain.Courier) *Pool {
	return &Pool{couriers: append([]domain.Courier(nil), couriers...)}
}

// Assign возвращает следующего курьера по кругу или ErrNoCourierAvailable,
// если парк пуст.
func (p *Pool) Assign(orderID string) (domain.Courier, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.couriers) == 0 {
		return domain.Courier{}, domain.ErrNoCourierAvailable
	}
	courier := p.couriers[p.next%len(p.couriers)]
	p.next++
	return courier, nil
}

var _ domain.DispatchService = (*Pool)(nil)
