package seed

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
)

// Orders возвращает стартовый набор заказов: по одному на интересную
// стадию жизненного цикла. Позиция по "100157" уже в пути, чтобы
// симулятор начал двигать курьера с первого тика.
func Orders(now time.Time) []domain.Order {
	now = now.UTC()

	pending := domain.Order{
		ID:     "100155",
		Status: domain.OrderStatusPending,
		Customer: domain.Customer{
			ID:      "customer_1",
			Name:    "Ivan Petrov",
			Phone:   "+79990001122",
			Address: "Arbat 12, apt 5",
		},
		Restaurant: domain.Restaurant{
			ID:      "restaurant_1",
			Name:    "Pizzeria Napoli",
			Address: "Tverskaya 7",
		},
		Items: []domain.OrderItem{
			{ID: "item_1", Name: "Margherita", Qty: 2, PriceMinor: 45000},
		},
		AmountMinor:   90000,
		PaymentStatus: domain.PaymentStatusUnpaid,
		Priority:      domain.PriorityMedium,
		History: []domain.StatusEntry{
			{Status: domain.OrderStatusPending, Actor: "system", Note: "order created", At: now.Add(-10 * time.Minute)},
		},
		CreatedAt: now.Add(-10 * time.Minute),
		UpdatedAt: now.Add(-10 * time.Minute),
	}

	cooking := domain.Order{
		ID:     "100156",
		Status: domain.OrderStatusCooking,
		Customer: domain.Customer{
			ID:      "customer_2",
			Name:    "Anna Sokolova",
			Phone:   "+79993334455",
			Address: "Lenina 3",
		},
		Restaurant: domain.Restaurant{
			ID:      "restaurant_1",
			Name:    "Pizzeria Napoli",
			Address: "Tverskaya 7",
		},
		Items: []domain.OrderItem{
			{ID: "item_2", Name: "Quattro Formaggi", Qty: 1, PriceMinor: 62000},
			{ID: "item_5", Name: "Tiramisu", Qty: 1, PriceMinor: 28000},
		},
		AmountMinor:   90000,
		PaymentStatus: domain.PaymentStatusPaid,
		Priority:      domain.PriorityHigh,
		History: []domain.StatusEntry{
			{Status: domain.OrderStatusPending, Actor: "system", Note: "order created", At: now.Add(-25 * time.Minute)},
			{Status: domain.OrderStatusConfirmed, Actor: "restaurant_1", At: now.Add(-22 * time.Minute)},
			{Status: domain.OrderStatusCooking, Actor: "restaurant_1", At: now.Add(-15 * time.Minute)},
		},
		CreatedAt: now.Add(-25 * time.Minute),
		UpdatedAt: now.Add(-15 * time.Minute),
	}

	delivering := domain.Order{
		ID:     "100157",
		Status: domain.OrderStatusOutForDelivery,
		Customer: domain.Customer{
			ID:      "customer_3",
			Name:    "Boris Volkov",
			Phone:   "+79995556677",
			Address: "Sadovaya 18",
		},
		Restaurant: domain.Restaurant{
			ID:      "restaurant_2",
			Name:    "Sushi Master",
			Address: "Nevsky 40",
		},
		Courier: &domain.Courier{
			ID:    "courier_1",
			Name:  "Oleg",
			Phone: "+79991112233",
		},
		Items: []domain.OrderItem{
			{ID: "item_7", Name: "Philadelphia Roll", Qty: 3, PriceMinor: 38000},
		},
		AmountMinor:   114000,
		PaymentStatus: domain.PaymentStatusCashOnDelivery,
		Priority:      domain.PriorityMedium,
		History: []domain.StatusEntry{
			{Status: domain.OrderStatusPending, Actor: "system", Note: "order created", At: now.Add(-50 * time.Minute)},
			{Status: domain.OrderStatusConfirmed, Actor: "restaurant_2", At: now.Add(-48 * time.Minute)},
			{Status: domain.OrderStatusCooking, Actor: "restaurant_2", At: now.Add(-40 * time.Minute)},
			{Status: domain.OrderStatusReadyForDelivery, Actor: "restaurant_2", At: now.Add(-20 * time.Minute)},
			{Status: domain.OrderStatusOutForDelivery, Actor: "courier_1", At: now.Add(-12 * time.Minute)},
		},
		Location: &domain.Location{
			Lat:     55.7558,
			Lng:     37.6173,
			Address: "Tverskaya 7",
			At:      now.Add(-12 * time.Minute),
		},
		CreatedAt: now.Add(-50 * time.Minute),
		UpdatedAt: now.Add(-12 * time.Minute),
	}

	return []domain.Order{pending, cooking, delivering}
}

// Load создаёт стартовые заказы в репозитории.
func Load(repo domain.OrderRepository, now time.Time) error {
	for _, order := range Orders(now) {
		if err := repo.Create(order); err != nil {
			return fmt.Errorf("seed order %s: %w", order.ID, err)
		}
	}
	return nil
}
