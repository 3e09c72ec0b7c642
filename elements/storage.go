package elements

import (
	"context"
	"database/sql"
	stderrors "errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/backset/backset"
	"github.com/backset/backset/kit/errors"
	"github.com/backset/backset/query"
	"github.com/backset/backset/sqlite"
)

const elementsTable = "elements"

// fields accepted by the sort directive grammar
var sortAllowed = []string{"id", "created_at"}

// defaultOrder lists newest elements first.
const defaultOrder = "created_at DESC"

// Store runs the element queries inside the caller's transaction.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Exists(ctx context.Context, tx *sqlx.Tx, tid, id string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, "SELECT EXISTS(SELECT id FROM elements WHERE tid = ? AND id = ?)", tid, id)
	return exists, err
}

func (s *Store) Insert(ctx context.Context, tx *sqlx.Tx, el backset.Element) error {
	q := sq.Insert(elementsTable).
		Columns("tid", "id", "data", "created_at").
		Values(el.TID, el.ID, el.Data, el.CreatedAt)

	stmt, args, err := q.ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return translateConstraintErr(err, el.TID, el.ID)
	}
	return nil
}

// Upsert inserts the element if absent, otherwise replaces only its
// document body. An existing row keeps its created_at.
func (s *Store) Upsert(ctx context.Context, tx *sqlx.Tx, el backset.Element) error {
	q := sq.Insert(elementsTable).
		Columns("tid", "id", "data", "created_at").
		Values(el.TID, el.ID, el.Data, el.CreatedAt).
		Suffix("ON CONFLICT(tid, id) DO UPDATE SET data = excluded.data")

	stmt, args, err := q.ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return translateConstraintErr(err, el.TID, el.ID)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, tx *sqlx.Tx, tid, id string) (*backset.Element, error) {
	q := sq.Select("tid", "id", "data", "created_at").
		From(elementsTable).
		Where(sq.Eq{"tid": tid, "id": id})

	stmt, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var el backset.Element
	if err := tx.GetContext(ctx, &el, stmt, args...); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("element", "id", id)
		}
		return nil, err
	}
	return &el, nil
}

func (s *Store) Count(ctx context.Context, tx *sqlx.Tx, tid, search string) (int64, error) {
	q := sq.Select("COUNT(*)").
		From(elementsTable).
		Where(sq.Eq{"tid": tid})
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

func (s *Store) Find(ctx context.Context, tx *sqlx.Tx, tid string, qs query.QuerySearch) ([]backset.Element, error) {
	q := sq.Select("tid", "id", "data", "created_at").
		From(elementsTable).
		Where(sq.Eq{"tid": tid}).
		OrderBy(qs.OrderBy(sortAllowed, defaultOrder)).
		Limit(uint64(qs.PageSize)).
		Offset(uint64(qs.Offset))
	q = withSearch(q, qs.Q)

	stmt, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	els := []backset.Element{}
	if err := tx.SelectContext(ctx, &els, stmt, args...); err != nil {
		return nil, err
	}
	return els, nil
}

func (s *Store) Delete(ctx context.Context, tx *sqlx.Tx, tid, id string) (int64, error) {
	q := sq.Delete(elementsTable).Where(sq.Eq{"tid": tid, "id": id})

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
// element id.
func withSearch(q sq.SelectBuilder, search string) sq.SelectBuilder {
	if search == "" {
		return q
	}
	return q.Where(sq.Like{"id": "%" + search + "%"})
}

// translateConstraintErr maps storage constraint violations to the
// same typed errors the pre-checks produce: a uniqueness violation on
// (tid, id) becomes a conflict, and a foreign key violation means the
// owning tenant disappeared between check and write.
func translateConstraintErr(err error, tid, id string) error {
	if sqlite.IsUniqueConstraintErr(err) {
		return errors.AlreadyExists("element", "id", id)
	}
	if sqlite.IsForeignKeyErr(err) {
		return errors.NotFound("tenant", "id", tid)
	}
	return err
}
