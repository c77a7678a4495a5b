/*
Package store defines the persistence interfaces for operator-entered
forecasting data: custom cash flows and invoice metadata.

The forecasting engine itself is I/O-free; these interfaces exist so the
HTTP layer can keep custom flows and metadata between requests and merge
them into projections. Receivables and payables are never persisted here -
they arrive materialized with each request.

IMPLEMENTATIONS:
  store.Memory:  In-memory maps, for tests and development
  sqlite.Store:  SQLite-backed, for the server binary
*/
package store

import (
	"context"

	"github.com/vzt/cashflow-engine/forecast"
)

// Store persists custom flows and invoice metadata.
type Store interface {
	// Custom cash flows.
	ListCustomFlows(ctx context.Context) ([]forecast.CustomFlow, error)
	GetCustomFlow(ctx context.Context, id string) (*forecast.CustomFlow, error)
	SaveCustomFlow(ctx context.Context, flow forecast.CustomFlow) error
	DeleteCustomFlow(ctx context.Context, id string) error

	// Invoice metadata. Save upserts by invoice identifier.
	ListInvoiceMetadata(ctx context.Context) ([]forecast.ItemMetadata, error)
	GetInvoiceMetadata(ctx context.Context, invoiceID string) (*forecast.ItemMetadata, error)
	SaveInvoiceMetadata(ctx context.Context, meta forecast.ItemMetadata) error

	// Reset clears all stored data (demo scenario loading).
	Reset(ctx context.Context) error

	Close() error
}
