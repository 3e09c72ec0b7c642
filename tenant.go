package backset

import (
	"context"
	"time"

	"github.com/backset/backset/query"
)

// Tenant is a namespace owner. Every element is scoped to exactly one
// tenant. The id is externally supplied and immutable once created.
type Tenant struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TenantCreate is the payload for creating a tenant.
type TenantCreate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TenantUpdate is the payload for editing a tenant. Only the name can
// change after creation.
type TenantUpdate struct {
	Name string `json:"name"`
}

type TenantService interface {
	CreateTenant(ctx context.Context, create TenantCreate) (*Tenant, error)
	FindTenantByID(ctx context.Context, id string) (*Tenant, error)
	ListTenants(ctx context.Context, q query.QuerySearch) (*query.Page[Tenant], error)
	UpdateTenant(ctx context.Context, id string, update TenantUpdate) (*Tenant, error)

	// DeleteTenant removes a tenant and, when force is set, all of the
	// elements it owns within the same transaction. It returns the total
	// number of rows removed (elements plus the tenant row itself).
	DeleteTenant(ctx context.Context, id string, force bool) (int64, error)
}
