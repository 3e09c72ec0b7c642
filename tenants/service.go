// Package tenants implements the tenant repository: lifecycle of the
// namespace owners that scope all elements.
package tenants

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/backset/backset"
	"github.com/backset/backset/kit/errors"
	"github.com/backset/backset/query"
	"github.com/backset/backset/sqlite"
)

var errDeleteWithElements = &errors.Error{
	Code: errors.EInvalid,
	Msg:  "cannot delete tenant with elements",
}

var _ backset.TenantService = (*Service)(nil)

type Service struct {
	store   *sqlite.SqlStore
	log     *zap.Logger
	tenants *Store
}

func NewService(log *zap.Logger, store *sqlite.SqlStore) *Service {
	return &Service{
		store:   store,
		log:     log,
		tenants: NewStore(),
	}
}

// Tenants exposes the storage layer so the element repository can run
// its tenant existence guards inside its own transactions.
func (s *Service) Tenants() *Store {
	return s.tenants
}

// CreateTenant validates the payload and persists a new tenant with a
// server-assigned creation timestamp. The id is checked before the
// name; either colliding fails with a conflict error.
func (s *Service) CreateTenant(ctx context.Context, create backset.TenantCreate) (*backset.Tenant, error) {
	if err := validateCreate(create); err != nil {
		return nil, err
	}

	s.store.Mu.Lock()
	defer s.store.Mu.Unlock()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, s.storageErr("tenants.CreateTenant", err)
	}

	exists, err := s.tenants.Exists(ctx, tx, create.ID)
	if err != nil {
		tx.Rollback()
		return nil, s.storageErr("tenants.CreateTenant", err)
	}
	if exists {
		tx.Rollback()
		return nil, errors.AlreadyExists("tenant", "id", create.ID)
	}

	if _, taken, err := s.tenants.GetIDByName(ctx, tx, create.Name); err != nil {
		tx.Rollback()
		return nil, s.storageErr("tenants.CreateTenant", err)
	} else if taken {
		tx.Rollback()
		return nil, errors.AlreadyExists("tenant", "name", create.Name)
	}

	if err := s.tenants.Insert(ctx, tx, create, time.Now().UTC()); err != nil {
		tx.Rollback()
		return nil, s.storageErr("tenants.CreateTenant", err)
	}

	// read the row back in a separate query: the sqlite driver cannot
	// scan time values from a RETURNING clause
	t, err := s.tenants.Get(ctx, tx, create.ID)
	if err != nil {
		tx.Rollback()
		return nil, s.storageErr("tenants.CreateTenant", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.storageErr("tenants.CreateTenant", err)
	}
	return t, nil
}

func (s *Service) FindTenantByID(ctx context.Context, id string) (*backset.Tenant, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, s.storageErr("tenants.FindTenantByID", err)
	}

	t, err := s.tenants.Get(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		return nil, s.storageErr("tenants.FindTenantByID", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.storageErr("tenants.FindTenantByID", err)
	}
	return t, nil
}

// ListTenants returns a page of tenants matching the search term. When
// the count query is requested and reports zero matches the listing
// query is skipped entirely.
func (s *Service) ListTenants(ctx context.Context, qs query.QuerySearch) (*query.Page[backset.Tenant], error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, s.storageErr("tenants.ListTenants", err)
	}

	var total *int64
	if qs.IncludeTotal {
		n, err := s.tenants.Count(ctx, tx, qs.Q)
		if err != nil {
			tx.Rollback()
			return nil, s.storageErr("tenants.ListTenants", err)
		}
		total = &n

		if n == 0 {
			tx.Rollback()
			return query.EmptyPage[backset.Tenant](), nil
		}
	}

	data, err := s.tenants.Find(ctx, tx, qs)
	if err != nil {
		tx.Rollback()
		return nil, s.storageErr("tenants.ListTenants", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.storageErr("tenants.ListTenants", err)
	}
	return query.PageWithData(data, total, qs.Offset), nil
}

// UpdateTenant changes the tenant name, keeping id and created_at. It
// fails when another tenant already owns the target name; the error
// message names the conflicting tenant.
func (s *Service) UpdateTenant(ctx context.Context, id string, update backset.TenantUpdate) (*backset.Tenant, error) {
	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	s.store.Mu.Lock()
	defer s.store.Mu.Unlock()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, s.storageErr("tenants.UpdateTenant", err)
	}

	other, taken, err := s.tenants.ConflictingID(ctx, tx, id, update.Name)
	if err != nil {
		tx.Rollback()
		return nil, s.storageErr("tenants.UpdateTenant", err)
	}
	if taken {
		tx.Rollback()
		return nil, &errors.Error{
			Code: errors.EConflict,
			Msg:  fmt.Sprintf("name %q already taken by tenant with id %q", update.Name, other),
		}
	}

	if err := s.tenants.Upsert(ctx, tx, id, update.Name, time.Now().UTC()); err != nil {
		tx.Rollback()
		return nil, s.storageErr("tenants.UpdateTenant", err)
	}

	t, err := s.tenants.Get(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		return nil, s.storageErr("tenants.UpdateTenant", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.storageErr("tenants.UpdateTenant", err)
	}
	return t, nil
}

// DeleteTenant removes a tenant. A tenant still owning elements is not
// deleted unless force is set, in which case its elements are removed
// first within the same transaction. The returned count covers both
// the elements and the tenant row.
func (s *Service) DeleteTenant(ctx context.Context, id string, force bool) (int64, error) {
	s.store.Mu.Lock()
	defer s.store.Mu.Unlock()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return 0, s.storageErr("tenants.DeleteTenant", err)
	}

	var deleted int64
	if force {
		n, err := s.tenants.DeleteElements(ctx, tx, id)
		if err != nil {
			tx.Rollback()
			return 0, s.storageErr("tenants.DeleteTenant", err)
		}
		deleted += n
	} else {
		hasElements, err := s.tenants.HasElements(ctx, tx, id)
		if err != nil {
			tx.Rollback()
			return 0, s.storageErr("tenants.DeleteTenant", err)
		}
		if hasElements {
			tx.Rollback()
			return 0, errDeleteWithElements
		}
	}

	n, err := s.tenants.Delete(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		return 0, s.storageErr("tenants.DeleteTenant", err)
	}
	deleted += n

	if err := tx.Commit(); err != nil {
		return 0, s.storageErr("tenants.DeleteTenant", err)
	}
	return deleted, nil
}

// storageErr passes typed errors through and wraps anything else as an
// internal storage failure, logged with full detail. Clients only ever
// see a generic message for these.
func (s *Service) storageErr(op string, err error) error {
	if e, ok := err.(*errors.Error); ok {
		return e
	}
	s.log.Error("tenant storage failure", zap.String("op", op), zap.Error(err))
	return &errors.Error{Code: errors.EInternal, Op: op, Err: err}
}
