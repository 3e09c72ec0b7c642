// Package backset holds the domain types and service contracts for the
// backset multi-tenant document store. Implementations live in the
// tenants and elements packages; transports depend only on the
// interfaces defined here.
package backset

// Version of the backset service. Overridden at build time via ldflags.
var Version = "dev"

// IDGenerator generates identifiers for elements created without a
// client-supplied id.
type IDGenerator interface {
	ID() string
}
