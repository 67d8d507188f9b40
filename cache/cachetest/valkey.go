// Package cachetest starts throwaway cache servers for backend tests.
package cachetest

import (
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcvalkey "github.com/testcontainers/testcontainers-go/modules/valkey"

	"github.com/renovo-atelier/atelier/cache"
)

const ValkeyImage = "docker.io/valkey/valkey:8-alpine"

// StartValkey runs a Valkey container for the lifetime of t and returns its
// redis:// DSN. The test is skipped in short mode or without a container runtime.
func StartValkey(t *testing.T) cache.DSN {
	t.Helper()

	if testing.Short() {
		t.Skip("container backed cache test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := t.Context()
	container, err := tcvalkey.Run(ctx, ValkeyImage)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("start valkey: %v", err)
	}

	conn, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("valkey connection string: %v", err)
	}
	return cache.DSN(conn)
}
