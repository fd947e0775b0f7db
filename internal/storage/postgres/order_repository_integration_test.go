package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
)

func TestOrderRepository_PostgresCreateGetListAndSave(t *testing.T) {
	store := openTestStore(t)
	repo := NewOrderRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	order1 := sampleOrder("100155", "customer_1", now.Add(-2*time.Minute))
	order2 := sampleOrder("100156", "customer_1", now.Add(-time.Minute))

	if err := repo.Create(order1); err != nil {
		t.Fatalf("create order1: %v", err)
	}
	if err := repo.Create(order2); err != nil {
		t.Fatalf("create order2: %v", err)
	}

	got, err := repo.Get(order1.ID)
	if err != nil {
		t.Fatalf("get order1: %v", err)
	}
	if got.ID != order1.ID || got.Customer.ID != order1.Customer.ID || got.Status != order1.Status {
		t.Fatalf("unexpected order payload: %+v", got)
	}
	if len(got.Items) != len(order1.Items) {
		t.Fatalf("unexpected items count: got=%d want=%d", len(got.Items), len(order1.Items))
	}
	if len(got.History) != len(order1.History) {
		t.Fatalf("unexpected history count: got=%d want=%d", len(got.History), len(order1.History))
	}

	byCustomer, err := repo.List(domain.OrderFilter{CustomerID: "customer_1"})
	if err != nil {
		t.Fatalf("list by customer: %v", err)
	}
	if len(byCustomer) != 2 || byCustomer[0].ID != order1.ID || byCustomer[1].ID != order2.ID {
		t.Fatalf("unexpected list result: %+v", byCustomer)
	}

	byStatus, err := repo.List(domain.OrderFilter{Status: domain.OrderStatusPending})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(byStatus) != 2 {
		t.Fatalf("expected 2 pending orders, got %d", len(byStatus))
	}

	got.Status = domain.OrderStatusConfirmed
	got.History = append(got.History, domain.StatusEntry{
		Status: domain.OrderStatusConfirmed,
		Actor:  "restaurant_1",
		At:     now,
	})
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Save(got); err != nil {
		t.Fatalf("save order: %v", err)
	}

	updated, err := repo.Get(order1.ID)
	if err != nil {
		t.Fatalf("get updated order: %v", err)
	}
	if updated.Status != domain.OrderStatusConfirmed {
		t.Fatalf("unexpected status after save: %s", updated.Status)
	}
	if updated.Version != got.Version+1 {
		t.Fatalf("unexpected version after save: got=%d want=%d", updated.Version, got.Version+1)
	}
	if len(updated.History) != 2 {
		t.Fatalf("unexpected history after save: %+v", updated.History)
	}
}

func TestOrderRepository_PostgresErrors(t *testing.T) {
	store := openTestStore(t)
	repo := NewOrderRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	base := sampleOrder("100199", "customer_2", now)

	if _, err := repo.Get("999999"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	if err := repo.Save(base); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on save missing, got %v", err)
	}

	if err := repo.Create(base); err != nil {
		t.Fatalf("create base order: %v", err)
	}
	if err := repo.Create(base); !errors.Is(err, domain.ErrOrderExists) {
		t.Fatalf("expected ErrOrderExists on duplicate create, got %v", err)
	}

	stale := base
	stale.Status = domain.OrderStatusConfirmed
	stale.UpdatedAt = now.Add(time.Minute)
	stale.Version = 42
	if err := repo.Save(stale); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected ErrOrderVersionConflict on stale save, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected unique violation for code 23505")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "22001"}) {
		t.Fatal("unexpected unique violation for non-unique code")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Fatal("plain error must not be unique violation")
	}
}

func sampleOrder(id, customerID string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:     id,
		Status: domain.OrderStatusPending,
		Customer: domain.Customer{
			ID:   customerID,
			Name: "Ivan Petrov",
		},
		Restaurant: domain.Restaurant{
			ID:   "restaurant_1",
			Name: "Pizzeria Napoli",
		},
		Items: []domain.OrderItem{
			{ID: "item_1", Name: "Margherita", Qty: 2, PriceMinor: 45000},
		},
		AmountMinor:   90000,
		PaymentStatus: domain.PaymentStatusUnpaid,
		Priority:      domain.PriorityMedium,
		History: []domain.StatusEntry{
			{Status: domain.OrderStatusPending, Actor: "system", Note: "order created", At: createdAt},
		},
		Version:   0,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}
