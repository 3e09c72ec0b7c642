package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecTrans(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTestStore(t)

	err := store.execTrans(ctx, `CREATE TABLE test_table_1 (id TEXT NOT NULL PRIMARY KEY)`)
	require.NoError(t, err)

	err = store.execTrans(ctx, `INSERT INTO test_table_1 (id) VALUES ("one"), ("two"), ("three")`)
	require.NoError(t, err)

	vals, err := store.queryToStrings(`SELECT * FROM test_table_1`)
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two", "three"}, vals)

	// a failing script must leave no partial writes behind
	err = store.execTrans(ctx, `INSERT INTO test_table_1 (id) VALUES ("four"); INSERT INTO test_table_1 (id) VALUES ("one");`)
	require.Error(t, err)

	vals, err = store.queryToStrings(`SELECT * FROM test_table_1`)
	require.NoError(t, err)
	require.Equal(t, 3, len(vals))
}

func TestFlush(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTestStore(t)

	err := store.execTrans(ctx, `CREATE TABLE test_table_1 (id TEXT NOT NULL PRIMARY KEY)`)
	require.NoError(t, err)

	err = store.execTrans(ctx, `INSERT INTO test_table_1 (id) VALUES ("one"), ("two"), ("three")`)
	require.NoError(t, err)

	vals, err := store.queryToStrings(`SELECT * FROM test_table_1`)
	require.NoError(t, err)
	require.Equal(t, 3, len(vals))

	store.Flush(context.Background())

	vals, err = store.queryToStrings(`SELECT * FROM test_table_1`)
	require.NoError(t, err)
	require.Equal(t, 0, len(vals))
}

func TestFlushMigrationsTable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTestStore(t)

	require.NoError(t, store.execTrans(ctx, fmt.Sprintf(`CREATE TABLE %s (id TEXT NOT NULL PRIMARY KEY)`, migrationsTableName)))
	require.NoError(t, store.execTrans(ctx, fmt.Sprintf(`INSERT INTO %s (id) VALUES ("one"), ("two"), ("three")`, migrationsTableName)))
	store.Flush(context.Background())

	got, err := store.queryToStrings(fmt.Sprintf(`SELECT * FROM %s`, migrationsTableName))
	require.NoError(t, err)
	want := []string{"one", "two", "three"}
	require.Equal(t, want, got)
}

func TestTableNames(t *testing.T) {
	t.Parallel()

	store := NewTestStore(t)
	ctx := context.Background()

	err := store.execTrans(ctx, `CREATE TABLE test_table_1 (id TEXT NOT NULL PRIMARY KEY);
	CREATE TABLE test_table_3 (id TEXT NOT NULL PRIMARY KEY);
	CREATE TABLE test_table_2 (id TEXT NOT NULL PRIMARY KEY);`)
	require.NoError(t, err)

	got, err := store.tableNames()
	require.NoError(t, err)
	require.Equal(t, []string{"test_table_1", "test_table_3", "test_table_2"}, got)
}

func TestStoresAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store1 := NewTestStore(t)
	store2 := NewTestStore(t)

	err := store1.execTrans(ctx, `CREATE TABLE test_table_1 (id TEXT NOT NULL PRIMARY KEY)`)
	require.NoError(t, err)

	// the table must not be visible from the second in-memory store
	got, err := store2.tableNames()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestIsUniqueConstraintErr(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTestStore(t)

	err := store.execTrans(ctx, `CREATE TABLE test_table_1 (id TEXT NOT NULL PRIMARY KEY)`)
	require.NoError(t, err)
	err = store.execTrans(ctx, `INSERT INTO test_table_1 (id) VALUES ("one")`)
	require.NoError(t, err)

	_, err = store.DB.ExecContext(ctx, `INSERT INTO test_table_1 (id) VALUES ("one")`)
	require.Error(t, err)
	require.True(t, IsUniqueConstraintErr(err))
	require.False(t, IsForeignKeyErr(err))
}
