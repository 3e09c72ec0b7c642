package sqlite

import (
	"context"
	"testing"

	"github.com/backset/backset/sqlite/migrations"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUp(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)
	ctx := context.Background()

	migrator := NewMigrator(store, zap.NewNop())
	require.NoError(t, migrator.Up(ctx, migrations.All))

	got, err := store.tableNames()
	require.NoError(t, err)
	require.Contains(t, got, "tenants")
	require.Contains(t, got, "elements")

	v, err := store.userVersion()
	require.NoError(t, err)
	require.Equal(t, 2, v)

	// applying the migrations again is a no-op
	require.NoError(t, migrator.Up(ctx, migrations.All))

	v, err = store.userVersion()
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestScriptVersion(t *testing.T) {
	t.Parallel()

	v, err := scriptVersion("0002_create_elements.sql")
	require.NoError(t, err)
	require.Equal(t, 2, v)

	_, err = scriptVersion("not_a_migration.sql")
	require.Error(t, err)
}
