package backset

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/backset/backset/query"
)

// Document is the schema-less body of an element. It is stored as a
// serialized JSON blob at the storage boundary and flattened into the
// element representation at the API edge.
type Document map[string]interface{}

// Value implements driver.Valuer so a Document can be bound directly as
// a query argument.
func (d Document) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for reading a Document back from its
// serialized column.
func (d *Document) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("cannot scan %T into Document", value)
	}
}

// Element is a schema-less JSON document owned by a tenant. The same id
// may repeat across tenants but is unique within one. The owning tenant
// id is internal only and never serialized to clients.
type Element struct {
	ID        string    `db:"id"`
	TID       string    `db:"tid"`
	Data      Document  `db:"data"`
	CreatedAt time.Time `db:"created_at"`
}

// MarshalJSON flattens the document fields alongside id and created_at,
// omitting the internal tenant id.
func (e Element) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Data)+2)
	for k, v := range e.Data {
		out[k] = v
	}
	out["id"] = e.ID
	out["created_at"] = e.CreatedAt
	return json.Marshal(out)
}

// ElementCreate is the payload for creating or replacing an element.
// Any JSON fields other than id form the document body.
type ElementCreate struct {
	ID   string
	Data Document
}

// UnmarshalJSON splits the optional id off from the open set of
// document fields.
func (c *ElementCreate) UnmarshalJSON(b []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw["id"]; ok {
		id, ok := v.(string)
		if !ok {
			return fmt.Errorf("element id must be a string")
		}
		c.ID = id
		delete(raw, "id")
	}
	c.Data = raw
	return nil
}

type ElementService interface {
	CreateElement(ctx context.Context, tid string, create ElementCreate) (*Element, error)
	FindElementByID(ctx context.Context, tid, id string) (*Element, error)
	ListElements(ctx context.Context, tid string, q query.QuerySearch) (*query.Page[Element], error)

	// SaveElement inserts the element if absent, otherwise replaces only
	// its document body, leaving created_at untouched.
	SaveElement(ctx context.Context, tid, id string, create ElementCreate) (*Element, error)

	// DeleteElement returns the number of rows removed (0 or 1). The
	// absence of the element is a normal zero-rows result, not an error.
	DeleteElement(ctx context.Context, tid, id string) (int64, error)
}
