package domain

import "testing"

func TestCanTransition_HappyPath(t *testing.T) {
	path := []OrderStatus{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusCooking,
		OrderStatusReadyForDelivery,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
	}
	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Fatalf("expected %s -> %s to be allowed", path[i], path[i+1])
		}
	}
}

func TestCanTransition_CancelOnlyFromPending(t *testing.T) {
	if !CanTransition(OrderStatusPending, OrderStatusCancelled) {
		t.Fatal("pending -> cancelled must be allowed")
	}
	for _, from := range []OrderStatus{
		OrderStatusConfirmed,
		OrderStatusCooking,
		OrderStatusReadyForDelivery,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
	} {
		if CanTransition(from, OrderStatusCancelled) {
			t.Fatalf("%s -> cancelled must be rejected", from)
		}
	}
}

func TestCanTransition_NoJumps(t *testing.T) {
	if CanTransition(OrderStatusPending, OrderStatusDelivered) {
		t.Fatal("pending -> delivered must be rejected")
	}
	if CanTransition(OrderStatusCooking, OrderStatusOutForDelivery) {
		t.Fatal("cooking -> out_for_delivery must be rejected")
	}
	if CanTransition(OrderStatusDelivered, OrderStatusPending) {
		t.Fatal("terminal statuses must not transition")
	}
}

func TestTerminal(t *testing.T) {
	if !OrderStatusDelivered.Terminal() || !OrderStatusCancelled.Terminal() {
		t.Fatal("delivered and cancelled are terminal")
	}
	if OrderStatusPending.Terminal() {
		t.Fatal("pending is not terminal")
	}
	if OrderStatus("bogus").Terminal() {
		t.Fatal("unknown status is not terminal")
	}
}

func TestValid(t *testing.T) {
	if !OrderStatusCooking.Valid() {
		t.Fatal("cooking is a valid status")
	}
	if OrderStatus("bogus").Valid() {
		t.Fatal("bogus is not a valid status")
	}
}

func TestNextStatuses_Copy(t *testing.T) {
	next := NextStatuses(OrderStatusPending)
	if len(next) != 2 {
		t.Fatalf("expected 2 next statuses for pending, got %d", len(next))
	}
	next[0] = OrderStatus("mutated")
	if !CanTransition(OrderStatusPending, OrderStatusConfirmed) {
		t.Fatal("mutating the returned slice must not affect the table")
	}
}
