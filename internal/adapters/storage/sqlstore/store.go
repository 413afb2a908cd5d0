// Package sqlstore implements ports.QuoteRepository on database/sql.
//
// PostgreSQL is reached through the pgx stdlib driver and SQLite through the
// pure-Go modernc driver. Both share the same queries; placeholders are
// rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

const resourceName = "quote store"

// Compile-time interface checks.
var (
	_ ports.QuoteRepository = (*Store)(nil)
	_ ports.HealthChecker   = (*Store)(nil)
)

const columns = "id, author, quote, created_at, version"

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is a SQL-backed quote repository.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	newID   func() string
}

// New wraps an open database handle.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		now:     time.Now,
		newID:   domain.NewQuoteID,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Open connects to the configured database, verifies the connection and
// applies the schema when AutoMigrate is set.
func Open(ctx context.Context, cfg *config.StoreConfig, logger *slog.Logger, opts ...Option) (*Store, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dialect.Name, err)
	}

	configurePool(db, dialect, cfg)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("pinging %s: %w", dialect.Name, err)
	}

	s := New(db, dialect, opts...)

	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()

			return nil, err
		}
	}

	if logger != nil {
		logger.InfoContext(ctx, "quote store connected",
			slog.String("driver", dialect.Name),
			slog.Bool("auto_migrate", cfg.AutoMigrate),
		)
	}

	return s, nil
}

func configurePool(db *sql.DB, dialect Dialect, cfg *config.StoreConfig) {
	if dialect.singleWriter {
		// SQLite serializes writers; in-memory databases also live per connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		return
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert implements ports.QuoteRepository.
func (s *Store) Insert(ctx context.Context, author, text string) (*domain.Quote, error) {
	query := s.dialect.Rebind(`INSERT INTO quotes (` + columns + `)
		VALUES (?, ?, ?, ?, 1)
		RETURNING ` + columns)

	createdAt := domain.Timestamp(s.now())
	row := s.db.QueryRowContext(ctx, query, s.newID(), author, text, createdAt.UnixMilli())

	q, err := scanQuote(row)
	if err != nil {
		return nil, s.fail("insert", "", err)
	}

	return q, nil
}

// Get implements ports.QuoteRepository.
func (s *Store) Get(ctx context.Context, id string) (*domain.Quote, error) {
	query := s.dialect.Rebind(`SELECT ` + columns + ` FROM quotes WHERE id = ?`)

	q, err := scanQuote(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, s.fail("get", id, err)
	}

	return q, nil
}

// ListFrom implements ports.QuoteRepository.
func (s *Store) ListFrom(ctx context.Context, watermark time.Time, limit int) ([]*domain.Quote, error) {
	if limit <= 0 {
		return []*domain.Quote{}, nil
	}

	var (
		rows *sql.Rows
		err  error
	)

	if watermark.IsZero() {
		query := s.dialect.Rebind(`SELECT ` + columns + ` FROM quotes ORDER BY created_at ASC LIMIT ?`)
		rows, err = s.db.QueryContext(ctx, query, limit)
	} else {
		query := s.dialect.Rebind(`SELECT ` + columns + ` FROM quotes
			WHERE created_at >= ?
			ORDER BY created_at ASC
			LIMIT ?`)
		rows, err = s.db.QueryContext(ctx, query, watermark.UnixMilli(), limit)
	}

	if err != nil {
		return nil, s.fail("list", "", err)
	}
	defer rows.Close()

	quotes := make([]*domain.Quote, 0, limit)

	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, s.fail("list", "", err)
		}

		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, s.fail("list", "", err)
	}

	return quotes, nil
}

// Update implements ports.QuoteRepository.
func (s *Store) Update(ctx context.Context, id, author, text string) (*domain.Quote, error) {
	query := s.dialect.Rebind(`UPDATE quotes
		SET author = ?, quote = ?, version = version + 1
		WHERE id = ?
		RETURNING ` + columns)

	q, err := scanQuote(s.db.QueryRowContext(ctx, query, author, text, id))
	if err != nil {
		return nil, s.fail("update", id, err)
	}

	return q, nil
}

// Delete implements ports.QuoteRepository.
func (s *Store) Delete(ctx context.Context, id string) (*domain.Quote, error) {
	query := s.dialect.Rebind(`DELETE FROM quotes WHERE id = ? RETURNING ` + columns)

	q, err := scanQuote(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, s.fail("delete", id, err)
	}

	return q, nil
}

// Clear implements ports.QuoteRepository.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.resetStatement); err != nil {
		return s.fail("clear", "", err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "quote-store"
}

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// fail maps driver errors to domain errors.
func (s *Store) fail(op, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewQuoteNotFoundError(id)
	}

	return domain.NewUnavailableError(resourceName, op, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuote(row scanner) (*domain.Quote, error) {
	var (
		q      domain.Quote
		millis int64
	)

	if err := row.Scan(&q.ID, &q.Author, &q.Text, &millis, &q.Version); err != nil {
		return nil, err
	}

	q.CreatedAt = time.UnixMilli(millis).UTC()

	return &q, nil
}
