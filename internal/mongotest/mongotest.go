// Package mongotest starts a disposable MongoDB server for integration
// tests.
package mongotest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/weiihann/docbench/store"
)

// Image is the server version integration tests run against.
const Image = "mongo:7.0"

// Start runs a MongoDB container and returns a connected client. The
// test is skipped under -short or when no container runtime is usable.
func Start(t *testing.T) *store.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := mongodb.Run(ctx, Image)
	require.NoError(t, err, "start MongoDB container")

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate MongoDB container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err, "MongoDB connection string")

	client, err := store.Connect(ctx, store.Options{
		URI:            uri,
		ConnectTimeout: 10 * time.Second,
	}, Discard())
	require.NoError(t, err, "connect to MongoDB container")

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
