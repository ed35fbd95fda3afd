//go:build integration
// +build integration

package mongostore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"torrents/internal/store"
	"torrents/internal/store/storetest"
)

func TestMongoStore(t *testing.T) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("Failed to start MongoDB container: %v", err)
	}
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	n := 0
	storetest.Run(t, func(t *testing.T) store.Store {
		n++
		s, err := Connect(ctx, uri, fmt.Sprintf("torrents_test_%d", n))
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.Database().Drop(context.Background())
			s.Close()
		})
		require.NoError(t, s.Migrate(ctx))
		return s
	})
}
