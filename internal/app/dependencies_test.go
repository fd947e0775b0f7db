package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestNewDependencies_Memory(t *testing.T) {
	logger := log.WithField("test", "dependencies")

	deps, err := NewDependencies(context.Background(), DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("NewDependencies: %v", err)
	}
	defer deps.Close()

	if deps.Orders == nil {
		t.Error("Orders should not be nil")
	}
	if deps.Timeline == nil {
		t.Error("Timeline should not be nil")
	}
	if deps.Outbox == nil {
		t.Error("Outbox should not be nil")
	}
	if deps.Idempotency == nil {
		t.Error("Idempotency should not be nil")
	}
	if deps.PaymentSvc == nil {
		t.Error("PaymentSvc should not be nil")
	}
	if deps.DispatchSvc == nil {
		t.Error("DispatchSvc should not be nil")
	}
	if deps.Store != nil {
		t.Error("Store should be nil for memory driver")
	}
	if deps.Logger == nil {
		t.Error("Logger should not be nil")
	}
}

func TestNewDependencies_EmptyDriverFallsBackToMemory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = ""

	deps, err := NewDependencies(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewDependencies: %v", err)
	}
	defer deps.Close()

	if deps.Orders == nil {
		t.Error("Orders should not be nil")
	}
	if deps.Logger == nil {
		t.Error("Logger should be initialized even when nil is passed")
	}
}

func TestNewDependencies_UnsupportedDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "cassandra"

	deps, err := NewDependencies(context.Background(), cfg, nil)
	if err == nil {
		deps.Close()
		t.Fatal("expected error for unsupported storage driver")
	}
}

func TestNewDependencies_DispatchAssignsFromFleet(t *testing.T) {
	deps, err := NewDependencies(context.Background(), DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewDependencies: %v", err)
	}
	defer deps.Close()

	courier, err := deps.DispatchSvc.Assign("100155")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if courier.ID == "" || courier.Name == "" {
		t.Errorf("expected courier from fleet, got %+v", courier)
	}
}

func TestDependencies_CloseWithoutStore(t *testing.T) {
	deps := &Dependencies{Logger: log.WithField("test", "close")}

	// Не должно паниковать
	deps.Close()
}
