package ledger

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ikasa-digital/leads-cli/internal/model"
)

// SQLiteLedger implements Ledger using modernc.org/sqlite.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteLedger{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	tax_id            TEXT UNIQUE NOT NULL,
	legal_name        TEXT NOT NULL,
	trade_name        TEXT,
	email             TEXT,
	phone             TEXT,
	address           TEXT,
	city              TEXT NOT NULL,
	state             TEXT NOT NULL,
	zip               TEXT,
	founding_date     TEXT NOT NULL,
	main_activity     TEXT NOT NULL,
	company_status    TEXT NOT NULL,
	crm_lead_id       TEXT,
	email_sent        INTEGER NOT NULL DEFAULT 0,
	created_at        TEXT NOT NULL,
	updated_at        TEXT,
	processing_status TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS execution_logs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	execution_date TEXT NOT NULL,
	leads_found    INTEGER NOT NULL DEFAULT 0,
	leads_processed INTEGER NOT NULL DEFAULT 0,
	leads_duplicated INTEGER NOT NULL DEFAULT 0,
	leads_failed   INTEGER NOT NULL DEFAULT 0,
	elapsed_secs   REAL,
	status         TEXT NOT NULL DEFAULT 'running',
	error_message  TEXT,
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_tax_id ON leads(tax_id);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
CREATE INDEX IF NOT EXISTS idx_execution_logs_date ON execution_logs(execution_date);
`

func (s *SQLiteLedger) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

func (s *SQLiteLedger) Exists(ctx context.Context, taxID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM leads WHERE tax_id = ?`, taxID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "sqlite: exists")
	}
	return true, nil
}

func (s *SQLiteLedger) Insert(ctx context.Context, company model.Company, crmLeadID string, emailSent bool) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	status := model.LeadStatusPending
	if crmLeadID != "" {
		status = model.LeadStatusProcessed
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (
			tax_id, legal_name, trade_name, email, phone,
			address, city, state, zip, founding_date,
			main_activity, company_status, crm_lead_id,
			email_sent, created_at, processing_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		company.TaxID,
		company.LegalName,
		nullable(company.TradeName),
		nullable(company.Email),
		nullable(company.Phone),
		nullable(company.Address),
		company.City,
		company.State,
		nullable(company.Zip),
		company.FoundingDate.Format("2006-01-02"),
		company.MainActivity,
		company.Status,
		nullable(crmLeadID),
		emailSent,
		now,
		string(status),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrDuplicateTaxID
		}
		return 0, eris.Wrap(err, "sqlite: insert lead")
	}

	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: last insert id")
}

func (s *SQLiteLedger) UpdateStatus(ctx context.Context, taxID string, upd StatusUpdate) error {
	sets := []string{"processing_status = ?", "updated_at = ?"}
	args := []any{string(upd.Status), time.Now().UTC().Format(time.RFC3339)}

	if upd.CRMLeadID != nil {
		sets = append(sets, "crm_lead_id = ?")
		args = append(args, *upd.CRMLeadID)
	}
	if upd.EmailSent != nil {
		sets = append(sets, "email_sent = ?")
		args = append(args, *upd.EmailSent)
	}
	args = append(args, taxID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET `+strings.Join(sets, ", ")+` WHERE tax_id = ?`, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update status %s", taxID)
	}
	return checkRowsAffected(res, "lead", taxID)
}

const leadColumns = `id, tax_id, legal_name, trade_name, email, phone, address,
	city, state, zip, founding_date, main_activity, company_status,
	crm_lead_id, email_sent, created_at, updated_at, processing_status`

func (s *SQLiteLedger) GetByTaxID(ctx context.Context, taxID string) (*model.LeadRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE tax_id = ?`, taxID)

	rec, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get lead")
	}
	return rec, nil
}

func (s *SQLiteLedger) ListByDate(ctx context.Context, date string) ([]model.LeadRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE DATE(created_at) = DATE(?)
		 ORDER BY created_at DESC`, date)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads by date")
	}
	defer rows.Close()

	var records []model.LeadRecord
	for rows.Next() {
		rec, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteLedger) LogRun(ctx context.Context, entry model.ExecutionLog) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_logs (
			execution_date, leads_found, leads_processed,
			leads_duplicated, leads_failed, elapsed_secs,
			status, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ExecutionDate,
		entry.Found,
		entry.Processed,
		entry.Duplicated,
		entry.Failed,
		entry.ElapsedSecs,
		string(entry.Status),
		nullable(entry.ErrorMessage),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert execution log")
	}

	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: last insert id")
}

func (s *SQLiteLedger) Stats(ctx context.Context, windowDays int) (*Stats, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	cutoff := "-" + strconv.Itoa(windowDays) + " days"

	stats := &Stats{WindowDays: windowDays}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN processing_status = 'processed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN processing_status = 'failed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN email_sent THEN 1 ELSE 0 END), 0)
		FROM leads
		WHERE DATE(created_at) >= DATE('now', ?)`, cutoff,
	).Scan(&stats.TotalLeads, &stats.Processed, &stats.Failed, &stats.EmailsSent)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats totals")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DATE(created_at), COUNT(*)
		FROM leads
		WHERE DATE(created_at) >= DATE('now', ?)
		GROUP BY DATE(created_at)
		ORDER BY DATE(created_at) DESC`, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats histogram")
	}
	defer rows.Close()

	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan daily count")
		}
		stats.DailyCounts = append(stats.DailyCounts, dc)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: stats iterate")
}

// helpers

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.LeadRecord, error) {
	var (
		rec        model.LeadRecord
		tradeName  sql.NullString
		email      sql.NullString
		phone      sql.NullString
		address    sql.NullString
		zip        sql.NullString
		founding   string
		crmLeadID  sql.NullString
		createdAt  string
		updatedAt  sql.NullString
		procStatus string
	)

	err := row.Scan(
		&rec.ID, &rec.Company.TaxID, &rec.Company.LegalName, &tradeName,
		&email, &phone, &address, &rec.Company.City, &rec.Company.State,
		&zip, &founding, &rec.Company.MainActivity, &rec.Company.Status,
		&crmLeadID, &rec.EmailSent, &createdAt, &updatedAt, &procStatus,
	)
	if err != nil {
		return nil, err
	}

	rec.Company.TradeName = tradeName.String
	rec.Company.Email = email.String
	rec.Company.Phone = phone.String
	rec.Company.Address = address.String
	rec.Company.Zip = zip.String
	rec.CRMLeadID = crmLeadID.String
	rec.Status = model.ProcessingStatus(procStatus)

	if rec.Company.FoundingDate, err = time.Parse("2006-01-02", founding); err != nil {
		return nil, eris.Wrap(err, "parse founding date")
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, eris.Wrap(err, "parse created_at")
	}
	if updatedAt.Valid {
		t, err := time.Parse(time.RFC3339, updatedAt.String)
		if err != nil {
			return nil, eris.Wrap(err, "parse updated_at")
		}
		rec.UpdatedAt = &t
	}
	return &rec, nil
}
