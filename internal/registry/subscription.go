package registry

import (
	"sync"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
)

// UpdateFunc получает снимок заказа после каждой его мутации.
// Вызывается синхронно внутри мутирующей операции: функция обязана быть
// быстрой и не должна обращаться к методам Service.
type UpdateFunc func(domain.Order)

// Subscription — непрозрачный токен подписки на обновления одного заказа.
// Отписка идёт через Cancel, а не через сравнение ссылок на функции:
// подписчику не нужно хранить исходный callback.
type Subscription struct {
	id      string
	orderID string
	svc     *Service
	once    sync.Once
}

// OrderID возвращает идентификатор заказа, на который оформлена подписка.
func (s *Subscription) OrderID() string {
	return s.orderID
}

// Cancel снимает подписку. Повторные вызовы безвредны.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.svc.unsubscribe(s.orderID, s.id)
	})
}
