package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// NewTestStore returns an in-memory store for testing, closed
// automatically when the test finishes.
func NewTestStore(t *testing.T) *SqlStore {
	store, err := NewSqlStore(InMemoryPath, zap.NewNop())
	require.NoError(t, err, "unable to open testing database")
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
