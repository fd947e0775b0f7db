package domain

// OrderFilter задаёт критерии выборки заказов. Пустое поле не фильтрует.
type OrderFilter struct {
	Status       OrderStatus
	RestaurantID string
	CustomerID   string
	CourierID    string
}

// OrderRepository описывает требования к хранилищу заказов.
// Реализации потокобезопасны и отдают наружу только копии.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ErrOrderExists, если ID уже занят.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// List возвращает заказы, удовлетворяющие фильтру, в порядке создания.
	List(filter OrderFilter) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}

// TimelineRepository хранит события аудита жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}
