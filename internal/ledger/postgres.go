package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ikasa-digital/leads-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the ledger uses. pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresLedger implements Ledger using pgxpool.
type PostgresLedger struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresLedger with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresLedger, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	return &PostgresLedger{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                BIGSERIAL PRIMARY KEY,
	tax_id            TEXT UNIQUE NOT NULL,
	legal_name        TEXT NOT NULL,
	trade_name        TEXT,
	email             TEXT,
	phone             TEXT,
	address           TEXT,
	city              TEXT NOT NULL,
	state             TEXT NOT NULL,
	zip               TEXT,
	founding_date     DATE NOT NULL,
	main_activity     TEXT NOT NULL,
	company_status    TEXT NOT NULL,
	crm_lead_id       TEXT,
	email_sent        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ,
	processing_status TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS execution_logs (
	id               BIGSERIAL PRIMARY KEY,
	execution_date   DATE NOT NULL,
	leads_found      INTEGER NOT NULL DEFAULT 0,
	leads_processed  INTEGER NOT NULL DEFAULT 0,
	leads_duplicated INTEGER NOT NULL DEFAULT 0,
	leads_failed     INTEGER NOT NULL DEFAULT 0,
	elapsed_secs     DOUBLE PRECISION,
	status           TEXT NOT NULL DEFAULT 'running',
	error_message    TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_tax_id ON leads(tax_id);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
CREATE INDEX IF NOT EXISTS idx_execution_logs_date ON execution_logs(execution_date);
`

func (s *PostgresLedger) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresLedger) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresLedger) Exists(ctx context.Context, taxID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM leads WHERE tax_id = $1)`, taxID,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "postgres: exists")
	}
	return exists, nil
}

func (s *PostgresLedger) Insert(ctx context.Context, company model.Company, crmLeadID string, emailSent bool) (int64, error) {
	status := model.LeadStatusPending
	if crmLeadID != "" {
		status = model.LeadStatusProcessed
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO leads (
			tax_id, legal_name, trade_name, email, phone,
			address, city, state, zip, founding_date,
			main_activity, company_status, crm_lead_id,
			email_sent, created_at, processing_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), $15)
		RETURNING id`,
		company.TaxID,
		company.LegalName,
		nullable(company.TradeName),
		nullable(company.Email),
		nullable(company.Phone),
		nullable(company.Address),
		company.City,
		company.State,
		nullable(company.Zip),
		company.FoundingDate,
		company.MainActivity,
		company.Status,
		nullable(crmLeadID),
		emailSent,
		string(status),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateTaxID
		}
		return 0, eris.Wrap(err, "postgres: insert lead")
	}
	return id, nil
}

func (s *PostgresLedger) UpdateStatus(ctx context.Context, taxID string, upd StatusUpdate) error {
	sets := []string{"processing_status = $1", "updated_at = now()"}
	args := []any{string(upd.Status)}

	if upd.CRMLeadID != nil {
		sets = append(sets, fmt.Sprintf("crm_lead_id = $%d", len(args)+1))
		args = append(args, *upd.CRMLeadID)
	}
	if upd.EmailSent != nil {
		sets = append(sets, fmt.Sprintf("email_sent = $%d", len(args)+1))
		args = append(args, *upd.EmailSent)
	}
	args = append(args, taxID)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE leads SET %s WHERE tax_id = $%d`, strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update status %s", taxID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead not found: %s", taxID)
	}
	return nil
}

const pgLeadColumns = `id, tax_id, legal_name, trade_name, email, phone, address,
	city, state, zip, founding_date, main_activity, company_status,
	crm_lead_id, email_sent, created_at, updated_at, processing_status`

func (s *PostgresLedger) GetByTaxID(ctx context.Context, taxID string) (*model.LeadRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgLeadColumns+` FROM leads WHERE tax_id = $1`, taxID)

	rec, err := scanPgLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get lead")
	}
	return rec, nil
}

func (s *PostgresLedger) ListByDate(ctx context.Context, date string) ([]model.LeadRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgLeadColumns+` FROM leads
		 WHERE created_at::date = $1::date
		 ORDER BY created_at DESC`, date)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads by date")
	}
	defer rows.Close()

	var records []model.LeadRecord
	for rows.Next() {
		rec, err := scanPgLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresLedger) LogRun(ctx context.Context, entry model.ExecutionLog) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO execution_logs (
			execution_date, leads_found, leads_processed,
			leads_duplicated, leads_failed, elapsed_secs,
			status, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING id`,
		entry.ExecutionDate,
		entry.Found,
		entry.Processed,
		entry.Duplicated,
		entry.Failed,
		entry.ElapsedSecs,
		string(entry.Status),
		nullable(entry.ErrorMessage),
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert execution log")
	}
	return id, nil
}

func (s *PostgresLedger) Stats(ctx context.Context, windowDays int) (*Stats, error) {
	if windowDays <= 0 {
		windowDays = 30
	}

	stats := &Stats{WindowDays: windowDays}
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN processing_status = 'processed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN processing_status = 'failed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN email_sent THEN 1 ELSE 0 END), 0)
		FROM leads
		WHERE created_at >= now() - make_interval(days => $1)`, windowDays,
	).Scan(&stats.TotalLeads, &stats.Processed, &stats.Failed, &stats.EmailsSent)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats totals")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT created_at::date::text, COUNT(*)
		FROM leads
		WHERE created_at >= now() - make_interval(days => $1)
		GROUP BY created_at::date
		ORDER BY created_at::date DESC`, windowDays)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats histogram")
	}
	defer rows.Close()

	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan daily count")
		}
		stats.DailyCounts = append(stats.DailyCounts, dc)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: stats iterate")
}

func scanPgLead(row pgx.Row) (*model.LeadRecord, error) {
	var (
		rec       model.LeadRecord
		tradeName *string
		email     *string
		phone     *string
		address   *string
		zip       *string
		crmLeadID *string
		updatedAt *time.Time
		status    string
	)

	err := row.Scan(
		&rec.ID, &rec.Company.TaxID, &rec.Company.LegalName, &tradeName,
		&email, &phone, &address, &rec.Company.City, &rec.Company.State,
		&zip, &rec.Company.FoundingDate, &rec.Company.MainActivity,
		&rec.Company.Status, &crmLeadID, &rec.EmailSent, &rec.CreatedAt,
		&updatedAt, &status,
	)
	if err != nil {
		return nil, err
	}

	rec.Company.TradeName = deref(tradeName)
	rec.Company.Email = deref(email)
	rec.Company.Phone = deref(phone)
	rec.Company.Address = deref(address)
	rec.Company.Zip = deref(zip)
	rec.CRMLeadID = deref(crmLeadID)
	rec.UpdatedAt = updatedAt
	rec.Status = model.ProcessingStatus(status)
	return &rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
