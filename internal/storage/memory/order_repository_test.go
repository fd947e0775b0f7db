package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/storage/memory"
)

func newOrder(id string) domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:         id,
		Status:     domain.OrderStatusPending,
		Customer:   domain.Customer{ID: "customer_1", Name: "Ivan"},
		Restaurant: domain.Restaurant{ID: "restaurant_1", Name: "Pizza Roma"},
		Items: []domain.OrderItem{
			{ID: "item-1", Name: "Margherita", Qty: 1, PriceMinor: 45000},
		},
		AmountMinor:   45000,
		PaymentStatus: domain.PaymentStatusUnpaid,
		Priority:      domain.PriorityMedium,
		History: []domain.StatusEntry{
			{Status: domain.OrderStatusPending, Actor: "system", Note: "order created", At: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderRepository_CreateGet(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("100155")

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.ID != order.ID {
		t.Fatalf("expected id %s, got %s", order.ID, stored.ID)
	}
}

func TestOrderRepository_CreateDuplicate(t *testing.T) {
	repo := memory.NewOrderRepository()
	if err := repo.Create(newOrder("100155")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(newOrder("100155")); !errors.Is(err, domain.ErrOrderExists) {
		t.Fatalf("expected ErrOrderExists, got %v", err)
	}
}

func TestOrderRepository_GetNotFound(t *testing.T) {
	repo := memory.NewOrderRepository()
	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_GetReturnsCopy(t *testing.T) {
	repo := memory.NewOrderRepository()
	if err := repo.Create(newOrder("100155")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first, _ := repo.Get("100155")
	first.History[0].Actor = "mutated"
	first.Items[0].Qty = 99

	second, _ := repo.Get("100155")
	if second.History[0].Actor != "system" {
		t.Fatal("repository state must not be reachable through returned orders")
	}
	if second.Items[0].Qty != 1 {
		t.Fatal("repository items must not be reachable through returned orders")
	}
}

func TestOrderRepository_ListInsertionOrder(t *testing.T) {
	repo := memory.NewOrderRepository()
	for _, id := range []string{"100157", "100155", "100156"} {
		if err := repo.Create(newOrder(id)); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	orders, err := repo.List(domain.OrderFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"100157", "100155", "100156"}
	if len(orders) != len(want) {
		t.Fatalf("expected %d orders, got %d", len(want), len(orders))
	}
	for i, id := range want {
		if orders[i].ID != id {
			t.Fatalf("expected %s at position %d, got %s", id, i, orders[i].ID)
		}
	}
}

func TestOrderRepository_ListFilters(t *testing.T) {
	repo := memory.NewOrderRepository()

	first := newOrder("100155")
	second := newOrder("100156")
	second.Customer.ID = "customer_2"
	second.Status = domain.OrderStatusConfirmed
	second.History = append(second.History, domain.StatusEntry{Status: domain.OrderStatusConfirmed, Actor: "restaurant_1", At: time.Now().UTC()})
	third := newOrder("100157")
	third.Courier = &domain.Courier{ID: "courier_7", Name: "Oleg"}

	for _, o := range []domain.Order{first, second, third} {
		if err := repo.Create(o); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	byStatus, _ := repo.List(domain.OrderFilter{Status: domain.OrderStatusConfirmed})
	if len(byStatus) != 1 || byStatus[0].ID != "100156" {
		t.Fatalf("status filter failed: %+v", byStatus)
	}

	byCustomer, _ := repo.List(domain.OrderFilter{CustomerID: "customer_1"})
	if len(byCustomer) != 2 {
		t.Fatalf("expected 2 orders for customer_1, got %d", len(byCustomer))
	}

	byCourier, _ := repo.List(domain.OrderFilter{CourierID: "courier_7"})
	if len(byCourier) != 1 || byCourier[0].ID != "100157" {
		t.Fatalf("courier filter failed: %+v", byCourier)
	}

	byRestaurant, _ := repo.List(domain.OrderFilter{RestaurantID: "restaurant_2"})
	if len(byRestaurant) != 0 {
		t.Fatalf("expected no orders for restaurant_2, got %d", len(byRestaurant))
	}
}

func TestOrderRepository_Save(t *testing.T) {
	repo := memory.NewOrderRepository()
	if err := repo.Create(newOrder("100155")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get("100155")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	stored.Status = domain.OrderStatusConfirmed
	stored.History = append(stored.History, domain.StatusEntry{Status: domain.OrderStatusConfirmed, Actor: "restaurant_1", At: time.Now().UTC()})
	if err := repo.Save(stored); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	updated, err := repo.Get("100155")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if updated.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", updated.Status)
	}
	if updated.Version != stored.Version+1 {
		t.Fatalf("expected version increment, got %d", updated.Version)
	}
}

func TestOrderRepository_SaveVersionConflict(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("100155")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	order.Version = 42
	if err := repo.Save(order); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

func TestOrderRepository_SaveNotFound(t *testing.T) {
	repo := memory.NewOrderRepository()
	if err := repo.Save(newOrder("missing")); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
