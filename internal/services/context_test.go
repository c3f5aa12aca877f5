package services_test

import (
	"context"
	"testing"

	"flightstrip/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithBlock(ctx, "2022470")
	ctx = services.WithStage(ctx, "tokenize")
	ctx = services.WithRequestID(ctx, "req-123")

	if block, ok := services.BlockFromContext(ctx); !ok || block != "2022470" {
		t.Fatalf("unexpected block: %v %v", block, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "tokenize" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithBlock(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.BlockFromContext(ctx); ok {
		t.Fatal("expected no block value")
	}
}
