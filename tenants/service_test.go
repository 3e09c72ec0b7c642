package tenants

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/backset/backset"
	"github.com/backset/backset/kit/errors"
	"github.com/backset/backset/query"
	"github.com/backset/backset/sqlite"
	"github.com/backset/backset/sqlite/migrations"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	store := sqlite.NewTestStore(t)
	ctx := context.Background()

	logger := zap.NewNop()
	require.NoError(t, sqlite.NewMigrator(store, logger).Up(ctx, migrations.All))

	return NewService(logger, store)
}

func TestCreateAndGetTenant(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTenant(ctx, backset.TenantCreate{ID: "acme", Name: "Acme Corp"})
	require.NoError(t, err)
	require.Equal(t, "acme", created.ID)
	require.Equal(t, "Acme Corp", created.Name)
	require.False(t, created.CreatedAt.IsZero())

	got, err := svc.FindTenantByID(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, created, got)
}

func TestCreateTenantValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		create    backset.TenantCreate
		wantField string
		wantCode  string
	}{
		{
			name:      "id too short",
			create:    backset.TenantCreate{ID: "ab", Name: "Valid Name"},
			wantField: "id",
			wantCode:  "length",
		},
		{
			name:      "id bad characters",
			create:    backset.TenantCreate{ID: "Not-Lower!", Name: "Valid Name"},
			wantField: "id",
			wantCode:  "invalid_id",
		},
		{
			name:      "id starts with digit",
			create:    backset.TenantCreate{ID: "1abc", Name: "Valid Name"},
			wantField: "id",
			wantCode:  "invalid_id",
		},
		{
			name:      "reserved id",
			create:    backset.TenantCreate{ID: "tenants", Name: "Valid Name"},
			wantField: "id",
			wantCode:  "forbidden_id",
		},
		{
			name:      "id of a server endpoint",
			create:    backset.TenantCreate{ID: "metrics", Name: "Valid Name"},
			wantField: "id",
			wantCode:  "forbidden_id",
		},
		{
			name:      "name too short",
			create:    backset.TenantCreate{ID: "good-id", Name: "ab"},
			wantField: "name",
			wantCode:  "length",
		},
		{
			name:      "name too long",
			create:    backset.TenantCreate{ID: "good-id", Name: strings.Repeat("x", 81)},
			wantField: "name",
			wantCode:  "length",
		},
		{
			// two characters even though it is four bytes
			name:      "multibyte name too short",
			create:    backset.TenantCreate{ID: "good-id", Name: "αβ"},
			wantField: "name",
			wantCode:  "length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTenant(ctx, tt.create)
			require.Error(t, err)
			require.Equal(t, errors.EInvalid, errors.ErrorCode(err))

			fields := errors.ErrorFields(err)
			require.Contains(t, fields, tt.wantField)
			require.Equal(t, tt.wantCode, fields[tt.wantField][0].Code)
		})
	}
}

func TestCreateTenantMultibyteName(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	// 80 characters, 160 bytes: length is measured in characters
	name := strings.Repeat("ñ", 80)
	created, err := svc.CreateTenant(ctx, backset.TenantCreate{ID: "senor", Name: name})
	require.NoError(t, err)
	require.Equal(t, name, created.Name)
}

func TestCreateTenantConflicts(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTenant(ctx, backset.TenantCreate{ID: "first", Name: "First Tenant"})
	require.NoError(t, err)

	t.Run("duplicate id", func(t *testing.T) {
		_, err := svc.CreateTenant(ctx, backset.TenantCreate{ID: "first", Name: "Other Name"})
		require.Error(t, err)
		require.Equal(t, errors.EConflict, errors.ErrorCode(err))
		require.Equal(t, `tenant with id "first" already exists`, errors.ErrorMessage(err))
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := svc.CreateTenant(ctx, backset.TenantCreate{ID: "second", Name: "First Tenant"})
		require.Error(t, err)
		require.Equal(t, errors.EConflict, errors.ErrorCode(err))
		require.Equal(t, `tenant with name "First Tenant" already exists`, errors.ErrorMessage(err))
	})
}

func TestFindTenantByIDNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	_, err := svc.FindTenantByID(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, errors.ENotFound, errors.ErrorCode(err))
	require.Equal(t, `tenant with id "missing" not found`, errors.ErrorMessage(err))
}

func TestListTenants(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, err := svc.CreateTenant(ctx, backset.TenantCreate{
			ID:   fmt.Sprintf("tenant-%d", i),
			Name: fmt.Sprintf("Listing Tenant %d", i),
		})
		require.NoError(t, err)
	}

	t.Run("full listing with total", func(t *testing.T) {
		page, err := svc.ListTenants(ctx, query.QuerySearch{PageSize: 50, IncludeTotal: true})
		require.NoError(t, err)
		require.Len(t, page.Data, 8)
		require.NotNil(t, page.Total)
		require.Equal(t, int64(8), *page.Total)
		require.Equal(t, int64(8), page.PageSize)
	})

	t.Run("offset and page size", func(t *testing.T) {
		page, err := svc.ListTenants(ctx, query.QuerySearch{Offset: 3, PageSize: 3, IncludeTotal: true})
		require.NoError(t, err)
		require.Len(t, page.Data, 3)
		// default sort is by id ascending
		require.Equal(t, "tenant-3", page.Data[0].ID)
		require.Equal(t, int64(3), page.Offset)
		require.Equal(t, int64(8), *page.Total)
	})

	t.Run("tail page is short", func(t *testing.T) {
		page, err := svc.ListTenants(ctx, query.QuerySearch{Offset: 6, PageSize: 5, IncludeTotal: true})
		require.NoError(t, err)
		require.Len(t, page.Data, 2)
		require.Equal(t, int64(2), page.PageSize)
	})

	t.Run("without total", func(t *testing.T) {
		page, err := svc.ListTenants(ctx, query.QuerySearch{PageSize: 50})
		require.NoError(t, err)
		require.Len(t, page.Data, 8)
		require.Nil(t, page.Total)
	})

	t.Run("search by substring", func(t *testing.T) {
		page, err := svc.ListTenants(ctx, query.QuerySearch{Q: "tenant 7", PageSize: 50, IncludeTotal: true})
		require.NoError(t, err)
		require.Len(t, page.Data, 1)
		require.Equal(t, "tenant-7", page.Data[0].ID)
	})

	t.Run("search with no matches short-circuits", func(t *testing.T) {
		page, err := svc.ListTenants(ctx, query.QuerySearch{Q: "nothing here", PageSize: 50, IncludeTotal: true})
		require.NoError(t, err)
		require.Empty(t, page.Data)
		require.NotNil(t, page.Total)
		require.Zero(t, *page.Total)
	})

	t.Run("descending sort by name", func(t *testing.T) {
		page, err := svc.ListTenants(ctx, query.QuerySearch{Sort: "-name", PageSize: 2, IncludeTotal: true})
		require.NoError(t, err)
		require.Len(t, page.Data, 2)
		require.Equal(t, "Listing Tenant 7", page.Data[0].Name)
		require.Equal(t, "Listing Tenant 6", page.Data[1].Name)
	})
}

func TestUpdateTenant(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTenant(ctx, backset.TenantCreate{ID: "renameme", Name: "Before Rename"})
	require.NoError(t, err)

	updated, err := svc.UpdateTenant(ctx, "renameme", backset.TenantUpdate{Name: "After Rename"})
	require.NoError(t, err)
	require.Equal(t, "renameme", updated.ID)
	require.Equal(t, "After Rename", updated.Name)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)

	t.Run("name taken by another tenant", func(t *testing.T) {
		_, err := svc.CreateTenant(ctx, backset.TenantCreate{ID: "other", Name: "Taken Name"})
		require.NoError(t, err)

		_, err = svc.UpdateTenant(ctx, "renameme", backset.TenantUpdate{Name: "Taken Name"})
		require.Error(t, err)
		require.Equal(t, errors.EConflict, errors.ErrorCode(err))
		require.Equal(t, `name "Taken Name" already taken by tenant with id "other"`, errors.ErrorMessage(err))
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := svc.UpdateTenant(ctx, "renameme", backset.TenantUpdate{Name: "x"})
		require.Error(t, err)
		require.Equal(t, errors.EInvalid, errors.ErrorCode(err))
	})
}

func TestDeleteTenant(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTenant(ctx, backset.TenantCreate{ID: "doomed", Name: "Doomed Tenant"})
	require.NoError(t, err)

	t.Run("empty tenant deletes one row", func(t *testing.T) {
		deleted, err := svc.DeleteTenant(ctx, "doomed", false)
		require.NoError(t, err)
		require.Equal(t, int64(1), deleted)

		_, err = svc.FindTenantByID(ctx, "doomed")
		require.Equal(t, errors.ENotFound, errors.ErrorCode(err))
	})

	t.Run("missing tenant deletes zero rows", func(t *testing.T) {
		deleted, err := svc.DeleteTenant(ctx, "doomed", false)
		require.NoError(t, err)
		require.Zero(t, deleted)
	})
}

func TestDeleteTenantWithElements(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTenant(ctx, backset.TenantCreate{ID: "occupied", Name: "Occupied Tenant"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.store.DB.ExecContext(ctx,
			"INSERT INTO elements (tid, id, data, created_at) VALUES (?, ?, ?, ?)",
			"occupied", fmt.Sprintf("el-%d", i), `{}`, time.Now().UTC())
		require.NoError(t, err)
	}

	t.Run("refused without force", func(t *testing.T) {
		_, err := svc.DeleteTenant(ctx, "occupied", false)
		require.Error(t, err)
		require.Equal(t, errors.EInvalid, errors.ErrorCode(err))
		require.Equal(t, "cannot delete tenant with elements", errors.ErrorMessage(err))

		// nothing was deleted
		got, err := svc.FindTenantByID(ctx, "occupied")
		require.NoError(t, err)
		require.Equal(t, "occupied", got.ID)
	})

	t.Run("force cascades and reports combined count", func(t *testing.T) {
		deleted, err := svc.DeleteTenant(ctx, "occupied", true)
		require.NoError(t, err)
		require.Equal(t, int64(4), deleted)

		var count int
		require.NoError(t, svc.store.DB.GetContext(ctx, &count, "SELECT COUNT(*) FROM elements WHERE tid = ?", "occupied"))
		require.Zero(t, count)
	})
}
