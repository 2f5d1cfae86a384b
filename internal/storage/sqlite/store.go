// Package sqlite provides the SQLite-backed audit store.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
)

// Store is a SQLite implementation of ports.AuditStore.
type Store struct {
	db *sqlx.DB
}

// Ensure Store implements AuditStore
var _ ports.AuditStore = (*Store)(nil)

// auditRow is the on-disk shape of a domain.AuditRecord.
type auditRow struct {
	ID        string `db:"id"`
	RocketID  string `db:"rocket_id"`
	Kind      string `db:"kind"`
	Driver    string `db:"driver"`
	Gateway   string `db:"gateway"`
	Endpoint  string `db:"endpoint"`
	Data      string `db:"data"`
	CreatedAt int64  `db:"created_at"`
}

// New opens (or creates) the database at dbPath. ":memory:" gives a private database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers; one connection also keeps ":memory:" databases intact.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			rocket_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			driver TEXT NOT NULL,
			gateway TEXT NOT NULL DEFAULT '',
			endpoint TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_rocket ON audit_events(rocket_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_driver ON audit_events(driver)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_kind ON audit_events(kind)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append stores one record, assigning an ID and timestamp when missing.
func (s *Store) Append(ctx context.Context, record *domain.AuditRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	row := auditRow{
		ID:        record.ID,
		RocketID:  record.RocketID,
		Kind:      string(record.Kind),
		Driver:    record.Driver,
		Gateway:   record.Gateway,
		Endpoint:  record.Endpoint,
		Data:      string(record.Data),
		CreatedAt: record.CreatedAt.UnixNano(),
	}

	_, err := s.db.NamedExecContext(ctx, `INSERT INTO audit_events
		(id, rocket_id, kind, driver, gateway, endpoint, data, created_at)
		VALUES (:id, :rocket_id, :kind, :driver, :gateway, :endpoint, :data, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// List returns records matching opts in insertion order.
func (s *Store) List(ctx context.Context, opts ports.AuditListOptions) ([]*domain.AuditRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.RocketID != "" {
		where = append(where, "rocket_id = ?")
		args = append(args, opts.RocketID)
	}
	if opts.Driver != "" {
		where = append(where, "driver = ?")
		args = append(args, opts.Driver)
	}
	if opts.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(opts.Kind))
	}

	query := `SELECT id, rocket_id, kind, driver, gateway, endpoint, data, created_at FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}

	records := make([]*domain.AuditRecord, len(rows))
	for i, r := range rows {
		records[i] = &domain.AuditRecord{
			ID:        r.ID,
			RocketID:  r.RocketID,
			Kind:      domain.EventKind(r.Kind),
			Driver:    r.Driver,
			Gateway:   r.Gateway,
			Endpoint:  r.Endpoint,
			CreatedAt: time.Unix(0, r.CreatedAt),
		}
		if r.Data != "" {
			records[i].Data = json.RawMessage(r.Data)
		}
	}
	return records, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
