//go:build integration
// +build integration

package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tordrt/cyberdisclosure/internal/db"
)

func TestSQLiteDataset(t *testing.T) {
	ctx := context.Background()

	client, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "research.db"))
	require.NoError(t, err)
	defer client.Close()

	verifyMigratedSchema(t, client)
	verifyConstraints(t, client)
}
