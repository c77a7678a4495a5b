/*
Package sqlite provides the SQLite-backed implementation of store.Store.

PURPOSE:
  Persists operator-entered data between server restarts: custom cash
  flows (one-time and recurring) and invoice metadata (manual override
  dates, portal submissions). The same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  custom_flows:     Manual inflows/outflows with optional recurrence rule
  invoice_metadata: Per-invoice operator fields, upserted by invoice id

DATE AND AMOUNT ENCODING:
  Dates are stored as YYYY-MM-DD text, empty string for absent. Amounts
  are stored as decimal text and re-parsed on read - never as REAL, the
  balance arithmetic must stay exact.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and a single writer proceeds at a time.

USAGE:
  st, err := sqlite.New("./data/cashflow.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/store.go:  Interface definition
  - store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/vzt/cashflow-engine/forecast"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Manual cash flow entries (one-time and recurring)
	CREATE TABLE IF NOT EXISTS custom_flows (
		id TEXT PRIMARY KEY,
		direction TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT,
		flow_date TEXT,
		is_recurring INTEGER NOT NULL DEFAULT 0,
		recurrence_type TEXT,
		recurrence_interval INTEGER,
		recurrence_start TEXT,
		recurrence_end TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_custom_flows_direction
		ON custom_flows(direction);
	CREATE INDEX IF NOT EXISTS idx_custom_flows_date
		ON custom_flows(flow_date);

	-- Operator-entered invoice metadata (override/portal dates)
	CREATE TABLE IF NOT EXISTS invoice_metadata (
		invoice_id TEXT PRIMARY KEY,
		manual_override_date TEXT,
		portal_submission_date TEXT,
		portal_name TEXT,
		rep TEXT,
		sent_to_rep_date TEXT,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CUSTOM FLOWS
// =============================================================================

func (s *Store) ListCustomFlows(ctx context.Context) ([]forecast.CustomFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, direction, amount, description, flow_date,
		       is_recurring, recurrence_type, recurrence_interval,
		       recurrence_start, recurrence_end
		FROM custom_flows
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom flows: %w", err)
	}
	defer rows.Close()

	var flows []forecast.CustomFlow
	for rows.Next() {
		flow, err := scanCustomFlow(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, flow)
	}
	return flows, rows.Err()
}

func (s *Store) GetCustomFlow(ctx context.Context, id string) (*forecast.CustomFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, direction, amount, description, flow_date,
		       is_recurring, recurrence_type, recurrence_interval,
		       recurrence_start, recurrence_end
		FROM custom_flows WHERE id = ?`, id)

	flow, err := scanCustomFlow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &flow, nil
}

func (s *Store) SaveCustomFlow(ctx context.Context, flow forecast.CustomFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recurring := 0
	if flow.Recurring {
		recurring = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_flows
			(id, direction, amount, description, flow_date,
			 is_recurring, recurrence_type, recurrence_interval,
			 recurrence_start, recurrence_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			direction = excluded.direction,
			amount = excluded.amount,
			description = excluded.description,
			flow_date = excluded.flow_date,
			is_recurring = excluded.is_recurring,
			recurrence_type = excluded.recurrence_type,
			recurrence_interval = excluded.recurrence_interval,
			recurrence_start = excluded.recurrence_start,
			recurrence_end = excluded.recurrence_end`,
		flow.ID,
		string(flow.Direction),
		flow.Amount.String(),
		flow.Description,
		dateText(flow.Date),
		recurring,
		string(flow.Recurrence.Type),
		flow.Recurrence.Interval,
		dateText(flow.Recurrence.Start),
		dateText(flow.Recurrence.End),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save custom flow: %w", err)
	}
	return nil
}

func (s *Store) DeleteCustomFlow(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM custom_flows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete custom flow: %w", err)
	}
	return nil
}

// =============================================================================
// INVOICE METADATA
// =============================================================================

func (s *Store) ListInvoiceMetadata(ctx context.Context) ([]forecast.ItemMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT invoice_id, manual_override_date, portal_submission_date,
		       portal_name, rep, sent_to_rep_date
		FROM invoice_metadata
		ORDER BY invoice_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice metadata: %w", err)
	}
	defer rows.Close()

	var records []forecast.ItemMetadata
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, meta)
	}
	return records, rows.Err()
}

func (s *Store) GetInvoiceMetadata(ctx context.Context, invoiceID string) (*forecast.ItemMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT invoice_id, manual_override_date, portal_submission_date,
		       portal_name, rep, sent_to_rep_date
		FROM invoice_metadata WHERE invoice_id = ?`, invoiceID)

	meta, err := scanMetadata(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) SaveInvoiceMetadata(ctx context.Context, meta forecast.ItemMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoice_metadata
			(invoice_id, manual_override_date, portal_submission_date,
			 portal_name, rep, sent_to_rep_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(invoice_id) DO UPDATE SET
			manual_override_date = excluded.manual_override_date,
			portal_submission_date = excluded.portal_submission_date,
			portal_name = excluded.portal_name,
			rep = excluded.rep,
			sent_to_rep_date = excluded.sent_to_rep_date,
			updated_at = excluded.updated_at`,
		meta.InvoiceID,
		dateText(meta.ManualOverrideDate),
		dateText(meta.PortalSubmissionDate),
		meta.PortalName,
		meta.Rep,
		dateText(meta.SentToRepDate),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save invoice metadata: %w", err)
	}
	return nil
}

// Reset clears all stored data.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM custom_flows`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM invoice_metadata`)
	return err
}

// =============================================================================
// ROW SCANNING
// =============================================================================

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCustomFlow(row scanner) (forecast.CustomFlow, error) {
	var (
		flow      forecast.CustomFlow
		direction string
		amount    string
		desc      sql.NullString
		flowDate  sql.NullString
		recurring int
		recType   sql.NullString
		interval  sql.NullInt64
		recStart  sql.NullString
		recEnd    sql.NullString
	)
	if err := row.Scan(&flow.ID, &direction, &amount, &desc, &flowDate,
		&recurring, &recType, &interval, &recStart, &recEnd); err != nil {
		return forecast.CustomFlow{}, err
	}

	flow.Direction = forecast.FlowDirection(direction)
	flow.Description = desc.String
	flow.Recurring = recurring != 0

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return forecast.CustomFlow{}, fmt.Errorf("corrupt amount for flow %s: %w", flow.ID, err)
	}
	flow.Amount = amt

	flow.Date, _ = forecast.ParseDate(flowDate.String)
	flow.Recurrence = forecast.RecurrenceRule{
		Type:     forecast.RecurrenceType(recType.String),
		Interval: int(interval.Int64),
	}
	flow.Recurrence.Start, _ = forecast.ParseDate(recStart.String)
	flow.Recurrence.End, _ = forecast.ParseDate(recEnd.String)

	return flow, nil
}

func scanMetadata(row scanner) (forecast.ItemMetadata, error) {
	var (
		meta       forecast.ItemMetadata
		override   sql.NullString
		submission sql.NullString
		portal     sql.NullString
		rep        sql.NullString
		sentToRep  sql.NullString
	)
	if err := row.Scan(&meta.InvoiceID, &override, &submission, &portal, &rep, &sentToRep); err != nil {
		return forecast.ItemMetadata{}, err
	}

	meta.ManualOverrideDate, _ = forecast.ParseDate(override.String)
	meta.PortalSubmissionDate, _ = forecast.ParseDate(submission.String)
	meta.PortalName = portal.String
	meta.Rep = rep.String
	meta.SentToRepDate, _ = forecast.ParseDate(sentToRep.String)

	return meta, nil
}

// dateText encodes an optional date for storage.
func dateText(d forecast.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
