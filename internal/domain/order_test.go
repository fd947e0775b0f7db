package domain

import (
	"errors"
	"testing"
	"time"
)

func validOrder() Order {
	now := time.Now().UTC()
	return Order{
		ID:     "100155",
		Status: OrderStatusPending,
		Customer: Customer{
			ID: "customer_1", Name: "Ivan", Phone: "+7 900 000-00-01", Address: "Lenina 1",
		},
		Restaurant: Restaurant{ID: "restaurant_1", Name: "Pizza Roma", Address: "Mira 5"},
		Items: []OrderItem{
			{ID: "item-1", Name: "Margherita", Qty: 2, PriceMinor: 45000, ImageRef: "img/margherita.png"},
		},
		AmountMinor:   90000,
		PaymentStatus: PaymentStatusUnpaid,
		Priority:      PriorityMedium,
		History: []StatusEntry{
			{Status: OrderStatusPending, Actor: "system", Note: "order created", At: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestValidateInvariants_OK(t *testing.T) {
	order := validOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}
}

func TestValidateInvariants_HistoryDiverged(t *testing.T) {
	order := validOrder()
	order.Status = OrderStatusConfirmed

	errs := order.ValidateInvariants()
	if len(errs) == 0 {
		t.Fatal("expected violation for diverged history")
	}
	found := false
	for _, err := range errs {
		if errors.Is(err, ErrHistoryDiverged) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ErrHistoryDiverged, got %v", errs)
	}
}

func TestValidateInvariants_EmptyHistory(t *testing.T) {
	order := validOrder()
	order.History = nil

	errs := order.ValidateInvariants()
	found := false
	for _, err := range errs {
		if errors.Is(err, ErrHistoryEmpty) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ErrHistoryEmpty, got %v", errs)
	}
}

func TestValidateInvariants_LocationOutsideDelivery(t *testing.T) {
	order := validOrder()
	order.Location = &Location{Lat: 43.23, Lng: 76.88, At: time.Now().UTC()}

	errs := order.ValidateInvariants()
	found := false
	for _, err := range errs {
		if errors.Is(err, ErrLocationNotTracked) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ErrLocationNotTracked, got %v", errs)
	}
}

func TestValidateInvariants_AmountMismatch(t *testing.T) {
	order := validOrder()
	order.AmountMinor = 1

	errs := order.ValidateInvariants()
	found := false
	for _, err := range errs {
		if errors.Is(err, ErrAmountMismatch) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ErrAmountMismatch, got %v", errs)
	}
}

func TestClone_Independent(t *testing.T) {
	order := validOrder()
	order.Status = OrderStatusOutForDelivery
	order.History = append(order.History, StatusEntry{Status: OrderStatusOutForDelivery, Actor: "courier_7", At: time.Now().UTC()})
	order.Courier = &Courier{ID: "courier_7", Name: "Oleg", Phone: "+7 900 000-00-07"}
	order.Location = &Location{Lat: 43.23, Lng: 76.88, At: time.Now().UTC()}

	clone := order.Clone()
	clone.Courier.Name = "changed"
	clone.Location.Lat = 0
	clone.Items[0].Qty = 99
	clone.History[0].Actor = "changed"

	if order.Courier.Name != "Oleg" {
		t.Fatal("clone must not share courier with the original")
	}
	if order.Location.Lat != 43.23 {
		t.Fatal("clone must not share location with the original")
	}
	if order.Items[0].Qty != 2 {
		t.Fatal("clone must not share items with the original")
	}
	if order.History[0].Actor != "system" {
		t.Fatal("clone must not share history with the original")
	}
}

func TestCurrentStatusEntry(t *testing.T) {
	order := validOrder()
	entry, ok := order.CurrentStatusEntry()
	if !ok {
		t.Fatal("expected a current status entry")
	}
	if entry.Status != OrderStatusPending {
		t.Fatalf("expected pending, got %s", entry.Status)
	}

	var empty Order
	if _, ok := empty.CurrentStatusEntry(); ok {
		t.Fatal("empty order must not report a status entry")
	}
}
