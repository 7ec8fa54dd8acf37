package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/transito/pkg/adapters/memory"
	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	// Mask keys containing "password" or "ssn"
	mw, err := middleware.NewPIIMiddleware([]string{"password", "ssn"})
	if err != nil {
		t.Fatal(err)
	}
	secure := mw(underlying)
	ctx := context.Background()

	created, err := secure.Create(ctx, "pii", "start", map[string]any{"username": "jdoe"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	snap := &domain.Snapshot{
		ID:    "pii",
		State: "next",
		Context: map[string]any{
			"username":      "jdoe",
			"user_password": "secret123",
			"details": map[string]any{
				"address":    "123 St",
				"ssn_number": "999-99-9999",
			},
		},
		CreatedAt: created.CreatedAt,
		UpdatedAt: created.UpdatedAt.Add(1000000),
	}
	if _, err := secure.Save(ctx, snap, created.UpdatedAt); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if snap.Context["user_password"] != "secret123" {
		t.Error("Middleware modified the caller's snapshot")
	}

	stored, err := underlying.Load(ctx, "pii")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if stored.Context["username"] != "jdoe" {
		t.Error("Username shouldn't be masked")
	}
	if stored.Context["user_password"] != middleware.Mask {
		t.Errorf("Password should be masked, got %v", stored.Context["user_password"])
	}
	details, ok := stored.Context["details"].(map[string]any)
	if !ok {
		t.Fatalf("details should be a map, got %T", stored.Context["details"])
	}
	if details["ssn_number"] != middleware.Mask {
		t.Errorf("Nested SSN should be masked, got %v", details["ssn_number"])
	}
	if details["address"] != "123 St" {
		t.Error("Address shouldn't be masked")
	}
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]string{"("}); err == nil {
		t.Fatal("Expected error for invalid pattern")
	}
}
