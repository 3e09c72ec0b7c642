package sqlite

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Migrator applies the numbered schema scripts embedded in the
// migrations directory. The user_version pragma records the latest
// applied script so restarts are idempotent.
type Migrator struct {
	store *SqlStore
	log   *zap.Logger
}

func NewMigrator(store *SqlStore, log *zap.Logger) *Migrator {
	return &Migrator{
		store: store,
		log:   log,
	}
}

func (m *Migrator) Up(ctx context.Context, source embed.FS) error {
	list, err := source.ReadDir(".")
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}

	// sort by name so scripts apply in version order
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})

	current, err := m.store.userVersion()
	if err != nil {
		return err
	}

	final, err := scriptVersion(list[len(list)-1].Name())
	if err != nil {
		return err
	}

	if final > current {
		m.log.Info("Bringing up metadata migrations", zap.Int("migration_count", final-current))
	}

	for _, f := range list {
		n := f.Name()
		v, err := scriptVersion(n)
		if err != nil {
			return err
		}

		// re-read user_version each iteration so out-of-order scripts
		// are never applied over newer ones
		c, err := m.store.userVersion()
		if err != nil {
			return err
		}

		if v > c {
			m.log.Debug("Executing metadata migration", zap.String("migration_name", n))
			script, err := source.ReadFile(n)
			if err != nil {
				return err
			}

			// bump user_version in the same transaction as the script
			stmt := fmt.Sprintf("%s\nPRAGMA user_version = %d;", script, v)
			if err := m.store.execTrans(ctx, stmt); err != nil {
				return err
			}
		}
	}

	return nil
}

// scriptVersion extracts the version number from a file named like
// "0002_migration_name.sql".
func scriptVersion(filename string) (int, error) {
	vString := strings.Split(filename, "_")[0]
	vInt, err := strconv.Atoi(vString)
	if err != nil {
		return 0, err
	}

	return vInt, nil
}
