package tenants

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/backset/backset"
	"github.com/backset/backset/kit/errors"
	"github.com/backset/backset/query"
	"github.com/backset/backset/sqlite"
)

const (
	tenantsTable  = "tenants"
	elementsTable = "elements"
)

// columns matched case-insensitively by the q search parameter
var searchColumns = []string{"id", "name"}

// fields accepted by the sort directive grammar
var sortAllowed = []string{"id", "name", "created_at"}

// Store runs the tenant queries. Every method operates inside the
// transaction passed by the caller; the Service owns the transaction
// lifecycle.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Exists(ctx context.Context, tx *sqlx.Tx, id string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, "SELECT EXISTS(SELECT id FROM tenants WHERE id = ?)", id)
	return exists, err
}

// ExistsOrFail is the guard used before any element operation: a
// request against an unknown tenant yields a tenant not-found error
// rather than an empty result.
func (s *Store) ExistsOrFail(ctx context.Context, tx *sqlx.Tx, id string) error {
	exists, err := s.Exists(ctx, tx, id)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NotFound("tenant", "id", id)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, tx *sqlx.Tx, create backset.TenantCreate, now time.Time) error {
	q := sq.Insert(tenantsTable).
		Columns("id", "name", "created_at").
		Values(create.ID, create.Name, now)

	stmt, args, err := q.ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return translateConstraintErr(err, create.ID, create.Name)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, tx *sqlx.Tx, id string) (*backset.Tenant, error) {
	q := sq.Select("id", "name", "created_at").
		From(tenantsTable).
		Where(sq.Eq{"id": id})

	stmt, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var t backset.Tenant
	if err := tx.GetContext(ctx, &t, stmt, args...); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("tenant", "id", id)
		}
		return nil, err
	}
	return &t, nil
}

// GetIDByName returns the id of the tenant owning the given name, or
// ok=false when the name is free.
func (s *Store) GetIDByName(ctx context.Context, tx *sqlx.Tx, name string) (string, bool, error) {
	var id string
	err := tx.GetContext(ctx, &id, "SELECT id FROM tenants WHERE name = ?", name)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// ConflictingID returns the id of another tenant already owning the
// given name, excluding the tenant being edited.
func (s *Store) ConflictingID(ctx context.Context, tx *sqlx.Tx, id, name string) (string, bool, error) {
	var other string
	err := tx.GetContext(ctx, &other, "SELECT id FROM tenants WHERE id <> ? AND name = ?", id, name)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return other, true, nil
}

// Upsert writes the tenant name, creating the row if absent. An
// existing row keeps its created_at.
func (s *Store) Upsert(ctx context.Context, tx *sqlx.Tx, id, name string, now time.Time) error {
	q := sq.Insert(tenantsTable).
		Columns("id", "name", "created_at").
		Values(id, name, now).
		Suffix("ON CONFLICT(id) DO UPDATE SET name = excluded.name")

	stmt, args, err := q.ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return translateConstraintErr(err, id, name)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, tx *sqlx.Tx, search string) (int64, error) {
	q := sq.Select("COUNT(*)").From(tenantsTable)
	q = withSearch(q, search)

	stmt, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.GetContext(ctx, &count, stmt, args...); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) Find(ctx context.Context, tx *sqlx.Tx, qs query.QuerySearch) ([]backset.Tenant, error) {
	q := sq.Select("id", "name", "created_at").
		From(tenantsTable).
		OrderBy(qs.OrderBy(sortAllowed, "id")).
		Limit(uint64(qs.PageSize)).
		Offset(uint64(qs.Offset))
	q = withSearch(q, qs.Q)

	stmt, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	ts := []backset.Tenant{}
	if err := tx.SelectContext(ctx, &ts, stmt, args...); err != nil {
		return nil, err
	}
	return ts, nil
}

func (s *Store) HasElements(ctx context.Context, tx *sqlx.Tx, id string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, "SELECT EXISTS(SELECT id FROM elements WHERE tid = ?)", id)
	return exists, err
}

// DeleteElements removes every element owned by the tenant, returning
// the number of rows removed.
func (s *Store) DeleteElements(ctx context.Context, tx *sqlx.Tx, id string) (int64, error) {
	q := sq.Delete(elementsTable).Where(sq.Eq{"tid": id})

	stmt, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Delete(ctx context.Context, tx *sqlx.Tx, id string) (int64, error) {
	q := sq.Delete(tenantsTable).Where(sq.Eq{"id": id})

	stmt, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// withSearch adds the case-insensitive substring predicate over the
// tenant's textual columns. sqlite LIKE is case-insensitive for ASCII.
func withSearch(q sq.SelectBuilder, search string) sq.SelectBuilder {
	if search == "" {
		return q
	}
	pattern := "%" + search + "%"
	or := sq.Or{}
	for _, col := range searchColumns {
		or = append(or, sq.Like{col: pattern})
	}
	return q.Where(or)
}

// translateConstraintErr maps a uniqueness violation raised by the
// storage engine to the same conflict error the pre-checks produce, so
// the outcome of a check-then-act race is indistinguishable to callers.
func translateConstraintErr(err error, id, name string) error {
	if !sqlite.IsUniqueConstraintErr(err) {
		return err
	}
	if strings.Contains(err.Error(), "tenants.name") {
		return errors.AlreadyExists("tenant", "name", name)
	}
	return errors.AlreadyExists("tenant", "id", id)
}
