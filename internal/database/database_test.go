package database

import (
	"context"
	"testing"
)

func TestConnectHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Connect(ctx, "postgres://127.0.0.1:1/none?sslmode=disable&connect_timeout=1", 3); err == nil {
		t.Error("expected an error with a cancelled context")
	}
}
