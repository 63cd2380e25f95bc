package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/fjod/go_quote/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EventDevisSubmitted = "devis.submitted"
)

var (
	ErrDevisNotFound  = errors.New("devis not found")
	ErrDuplicateDevis = errors.New("devis number already exists")
	ErrUnknownDriver  = errors.New("unknown database driver")

	ErrInvalidStatusTransition = errors.New("invalid devis status transition")
)

type OutboxEvent struct {
	ID          int
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type RepoInterface interface {
	SaveDevis(ctx context.Context, devis *domain.Devis) error
	GetDevisByNumber(ctx context.Context, number string) (*domain.Devis, error)
	UpdateDevisStatus(ctx context.Context, number string, status domain.DevisStatus) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
	DeleteProcessedEvents(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

var _ RepoInterface = (*Repository)(nil)

type Repository struct {
	db     *sql.DB
	driver string
}

// NewRepository opens a postgres (lib/pq) or sqlite (modernc) database.
func NewRepository(driver, dsn string) (*Repository, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		// one writer, and ":memory:" databases live per connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(10)
	}
	return &Repository{db: db, driver: driver}, nil
}

// RunMigrations applies the migrations under <dir>/<driver>.
func (r *Repository) RunMigrations(dir string) error {
	var (
		driver migratedb.Driver
		err    error
	)
	switch r.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(r.db, &postgres.Config{
			MigrationsTable: "quote_schema_migrations",
		})
	default:
		driver, err = sqlite.WithInstance(r.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", filepath.ToSlash(filepath.Join(dir, r.driver))),
		r.driver,
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// SaveDevis stores the devis and its devis.submitted outbox event in one transaction.
func (r *Repository) SaveDevis(ctx context.Context, devis *domain.Devis) error {
	contactJSON, err := json.Marshal(devis.Contact)
	if err != nil {
		return fmt.Errorf("failed to marshal client info: %w", err)
	}
	featuresJSON, err := json.Marshal(devis.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}
	payload, err := json.Marshal(devis)
	if err != nil {
		return fmt.Errorf("failed to marshal devis payload: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO devis (id, devis_number, client_info, site_type, design_type, features,
	              maintenance, technology, description, total, recurring, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = tx.ExecContext(ctx, query,
		devis.ID.String(),
		devis.Number,
		string(contactJSON),
		devis.SiteType,
		devis.DesignType,
		string(featuresJSON),
		devis.Maintenance,
		devis.Technology,
		devis.Description,
		devis.Total,
		devis.Recurring,
		devis.Status,
		devis.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateDevis
		}
		return fmt.Errorf("insert devis: %w", err)
	}

	outbox := `INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at)
	           VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, outbox, devis.Number, EventDevisSubmitted, string(payload), devis.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit devis: %w", err)
	}
	return nil
}

func (r *Repository) GetDevisByNumber(ctx context.Context, number string) (*domain.Devis, error) {
	query := `SELECT id, devis_number, client_info, site_type, design_type, features,
	                 maintenance, technology, description, total, recurring, status, created_at
	          FROM devis WHERE devis_number = $1`

	var (
		d            domain.Devis
		id           string
		contactJSON  string
		featuresJSON string
	)
	err := r.db.QueryRowContext(ctx, query, number).Scan(
		&id,
		&d.Number,
		&contactJSON,
		&d.SiteType,
		&d.DesignType,
		&featuresJSON,
		&d.Maintenance,
		&d.Technology,
		&d.Description,
		&d.Total,
		&d.Recurring,
		&d.Status,
		&d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDevisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query devis by number: %w", err)
	}

	if d.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse devis id: %w", err)
	}
	if err := json.Unmarshal([]byte(contactJSON), &d.Contact); err != nil {
		return nil, fmt.Errorf("unmarshal client info: %w", err)
	}
	if err := json.Unmarshal([]byte(featuresJSON), &d.Features); err != nil {
		return nil, fmt.Errorf("unmarshal features: %w", err)
	}
	d.CreatedAt = d.CreatedAt.UTC()

	return &d, nil
}

// UpdateDevisStatus moves a devis to status if its current status allows it.
func (r *Repository) UpdateDevisStatus(ctx context.Context, number string, status domain.DevisStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current domain.DevisStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM devis WHERE devis_number = $1`, number).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDevisNotFound
	}
	if err != nil {
		return fmt.Errorf("query devis status: %w", err)
	}
	if !current.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, current, status)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE devis SET status = $1 WHERE devis_number = $2`, status, number); err != nil {
		return fmt.Errorf("update devis status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit devis status: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM outbox_events WHERE processed_at IS NULL
	          ORDER BY id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var (
			e       OutboxEvent
			payload string
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		e.Payload = []byte(payload)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	query := `UPDATE outbox_events SET processed_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark outbox event %d: %w", id, err)
	}
	return nil
}

// DeleteProcessedEvents purges published outbox events processed before the cutoff.
func (r *Repository) DeleteProcessedEvents(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM outbox_events WHERE processed_at IS NOT NULL AND processed_at < $1`
	res, err := r.db.ExecContext(ctx, query, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete processed outbox events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *moderncsqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
