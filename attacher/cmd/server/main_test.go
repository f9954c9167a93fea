package main

import (
	"testing"

	"go.uber.org/fx"
)

func TestEverythingValidates(t *testing.T) {
	t.Setenv("CLUSTERLINK_SESSION_TYPE", "memory")
	t.Setenv("CLUSTERLINK_CACHE_TYPE", "memory")

	if err := fx.ValidateApp(Everything); err != nil {
		t.Fatalf("invalid dependency graph: %v", err)
	}
}
