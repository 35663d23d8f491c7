// Package provider ranks service providers by great-circle distance from a
// patient and joins each one to its negotiated rate.
package provider

import (
	"context"
)

// RequiredColumns are the providers columns the matcher reads.
var RequiredColumns = []string{
	"PrimaryKey", "DBA Name Billing Name", "TIN", "State", "Status",
	"Provider Type", "Provider Network", "City", "lat", "lon",
}

// Row is one providers row as stored. Coordinates stay text because the
// store does not guarantee they parse.
type Row struct {
	PrimaryKey   string
	DisplayName  string
	TIN          string
	State        string
	Status       string
	ProviderType string
	Network      string
	City         string
	Lat          string
	Lon          string
	Email        string
	Fax          string
	Phone        string
	Website      string
}

// Store is the read-only provider source.
type Store interface {
	// ListProviders returns rows whose lat and lon are non-null and non-empty.
	ListProviders(ctx context.Context) ([]Row, error)

	// LookupRate returns the rate for an exact cleaned TIN and a procedure
	// code compared trimmed and upper-cased. A missing row returns nil.
	LookupRate(ctx context.Context, tin, procCode string) (*float64, error)

	// Counts returns the total row count and the count with coordinates.
	Counts(ctx context.Context) (total, withCoords int, err error)

	// Columns lists the providers relation's column names.
	Columns(ctx context.Context) ([]string, error)

	Close() error
}

// StoreOpener opens a Store for one matching call.
type StoreOpener func(ctx context.Context) (Store, error)
