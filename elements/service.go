// Package elements implements the element repository: schema-less JSON
// documents scoped under a tenant.
package elements

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/backset/backset"
	"github.com/backset/backset/kit/errors"
	"github.com/backset/backset/query"
	"github.com/backset/backset/rand"
	"github.com/backset/backset/sqlite"
	"github.com/backset/backset/tenants"
)

// reservedCreatedAtKey is owned by the store and rejected when present
// in a payload.
const reservedCreatedAtKey = "created_at"

var _ backset.ElementService = (*Service)(nil)

type Service struct {
	store       *sqlite.SqlStore
	log         *zap.Logger
	elements    *Store
	tenants     *tenants.Store
	idGenerator backset.IDGenerator
}

func NewService(log *zap.Logger, store *sqlite.SqlStore, tenantStore *tenants.Store) *Service {
	return &Service{
		store:       store,
		log:         log,
		elements:    NewStore(),
		tenants:     tenantStore,
		idGenerator: rand.NewIDGenerator(),
	}
}

// CreateElement persists a new element under the tenant. A
// client-supplied id is pre-checked for collisions; a generated id is
// not, its randomness is the guarantee. Either way the storage
// constraint is the backstop.
func (s *Service) CreateElement(ctx context.Context, tid string, create backset.ElementCreate) (*backset.Element, error) {
	if err := validateCreate(create); err != nil {
		return nil, err
	}
	if _, ok := create.Data[reservedCreatedAtKey]; ok {
		return nil, errReservedCreatedAt
	}

	s.store.Mu.Lock()
	defer s.store.Mu.Unlock()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, s.storageErr("elements.CreateElement", err)
	}

	if err := s.tenants.ExistsOrFail(ctx, tx, tid); err != nil {
		tx.Rollback()
		return nil, s.storageErr("elements.CreateElement", err)
	}

	id := create.ID
	if id == "" {
		id = s.idGenerator.ID()
	} else {
		exists, err := s.elements.Exists(ctx, tx, tid, id)
		if err != nil {
			tx.Rollback()
			return nil, s.storageErr("elements.CreateElement", err)
		}
		if exists {
			tx.Rollback()
			return nil, errors.AlreadyExists("element", "id", id)
		}
	}

	el := backset.Element{
		ID:        id,
		TID:       tid,
		Data:      create.Data,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.elements.Insert(ctx, tx, el); err != nil {
		tx.Rollback()
		return nil, s.storageErr("elements.CreateElement", err)
	}

	stored, err := s.elements.Get(ctx, tx, tid, id)
	if err != nil {
		tx.Rollback()
		return nil, s.storageErr("elements.CreateElement", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.storageErr("elements.CreateElement", err)
	}
	return stored, nil
}

// FindElementByID reads one element. The tenant existence guard runs
// first so a request against an unknown tenant reports the tenant as
// missing rather than the element.
func (s *Service) FindElementByID(ctx context.Context, tid, id string) (*backset.Element, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, s.storageErr("elements.FindElementByID", err)
	}

	if err := s.tenants.ExistsOrFail(ctx, tx, tid); err != nil {
		tx.Rollback()
		return nil, s.storageErr("elements.FindElementByID", err)
	}

	el, err := s.elements.Get(ctx, tx, tid, id)
	if err != nil {
		tx.Rollback()
		return nil, s.storageErr("elements.FindElementByID", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.storageErr("elements.FindElementByID", err)
	}
	return el, nil
}

// ListElements returns a page of the tenant's elements, newest first
// unless the sort directives say otherwise.
func (s *Service) ListElements(ctx context.Context, tid string, qs query.QuerySearch) (*query.Page[backset.Element], error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, s.storageErr("elements.ListElements", err)
	}

	if err := s.tenants.ExistsOrFail(ctx, tx, tid); err != nil {
		tx.Rollback()
		return nil, s.storageErr("elements.ListElements", err)
	}

	var total *int64
	if qs.IncludeTotal {
		n, err := s.elements.Count(ctx, tx, tid, qs.Q)
		if err != nil {
			tx.Rollback()
			return nil, s.storageErr("elements.ListElements", err)
		}
		total = &n

		if n == 0 {
			tx.Rollback()
			return query.EmptyPage[backset.Element](), nil
		}
	}

	data, err := s.elements.Find(ctx, tx, tid, qs)
	if err != nil {
		tx.Rollback()
		return nil, s.storageErr("elements.ListElements", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.storageErr("elements.ListElements", err)
	}
	return query.PageWithData(data, total, qs.Offset), nil
}

// SaveElement is the full replace-or-create operation: it inserts the
// element if absent, otherwise atomically replaces only its document
// body, leaving created_at untouched.
func (s *Service) SaveElement(ctx context.Context, tid, id string, create backset.ElementCreate) (*backset.Element, error) {
	if create.ID != "" && create.ID != id {
		return nil, errIDMismatch
	}
	create.ID = id
	if err := validateCreate(create); err != nil {
		return nil, err
	}
	if _, ok := create.Data[reservedCreatedAtKey]; ok {
		return nil, errReservedCreatedAt
	}

	s.store.Mu.Lock()
	defer s.store.Mu.Unlock()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, s.storageErr("elements.SaveElement", err)
	}

	if err := s.tenants.ExistsOrFail(ctx, tx, tid); err != nil {
		tx.Rollback()
		return nil, s.storageErr("elements.SaveElement", err)
	}

	el := backset.Element{
		ID:        id,
		TID:       tid,
		Data:      create.Data,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.elements.Upsert(ctx, tx, el); err != nil {
		tx.Rollback()
		return nil, s.storageErr("elements.SaveElement", err)
	}

	stored, err := s.elements.Get(ctx, tx, tid, id)
	if err != nil {
		tx.Rollback()
		return nil, s.storageErr("elements.SaveElement", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.storageErr("elements.SaveElement", err)
	}
	return stored, nil
}

// DeleteElement removes one element, returning the number of rows
// removed. Zero rows means the element was already absent, which is
// not an error at this layer.
func (s *Service) DeleteElement(ctx context.Context, tid, id string) (int64, error) {
	s.store.Mu.Lock()
	defer s.store.Mu.Unlock()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return 0, s.storageErr("elements.DeleteElement", err)
	}

	if err := s.tenants.ExistsOrFail(ctx, tx, tid); err != nil {
		tx.Rollback()
		return 0, s.storageErr("elements.DeleteElement", err)
	}

	n, err := s.elements.Delete(ctx, tx, tid, id)
	if err != nil {
		tx.Rollback()
		return 0, s.storageErr("elements.DeleteElement", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, s.storageErr("elements.DeleteElement", err)
	}
	return n, nil
}

func (s *Service) storageErr(op string, err error) error {
	if e, ok := err.(*errors.Error); ok {
		return e
	}
	s.log.Error("element storage failure", zap.String("op", op), zap.Error(err))
	return &errors.Error{Code: errors.EInternal, Op: op, Err: err}
}
