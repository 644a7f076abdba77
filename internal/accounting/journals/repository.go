package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository encapsulates DB operations for journal entries.
type Repository interface {
	GetEntryWithLines(ctx context.Context, companyID, entryID int64) (JournalEntry, error)
	ListEntries(ctx context.Context, companyID int64, filter ListFilter) ([]JournalEntry, error)
	FindEntryBySource(ctx context.Context, companyID int64, module SourceModule, ref uuid.UUID) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	NextJournalCode(ctx context.Context, companyID int64, year int) (string, error)
	LockAccounts(ctx context.Context, companyID int64, accountIDs []int64) ([]int64, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, companyID, entryID int64, lines []PostingLine) error
	DeleteLines(ctx context.Context, companyID, entryID int64) error
	DeleteEntry(ctx context.Context, companyID, entryID int64) error
	LinkSource(ctx context.Context, companyID int64, module SourceModule, ref uuid.UUID, entryID int64) error
	GetEntryForUpdate(ctx context.Context, companyID, entryID int64) (JournalEntry, error)
	GetLines(ctx context.Context, companyID, entryID int64) ([]JournalLine, error)
	UpdateTotals(ctx context.Context, companyID, entryID int64, debit, credit float64) error
	MarkPosted(ctx context.Context, companyID, entryID int64, at time.Time, actorID int64) error
	MarkCancelled(ctx context.Context, companyID, entryID int64) error
}

const entryColumns = `id, company_id, code, date, status, source_module, reference_type, reference_id, reference_code, description, total_debit, total_credit, posted_at, posted_by, created_by, version, created_at, updated_at`

const lineColumns = `l.id, l.je_id, l.company_id, l.account_id, a.number, a.name, l.debit, l.credit, l.description, l.line_number, l.cost_center_id, l.created_at`

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a Repository backed by pgx.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.CompanyID, &e.Code, &e.Date, &e.Status, &e.SourceModule,
		&e.ReferenceType, &e.ReferenceID, &e.ReferenceCode, &e.Description,
		&e.TotalDebit, &e.TotalCredit, &e.PostedAt, &e.PostedBy, &e.CreatedBy,
		&e.Version, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrNotFound
		}
		return JournalEntry{}, err
	}
	return e, nil
}

func queryLines(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, companyID, entryID int64) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM journal_lines l
JOIN accounts a ON a.id = l.account_id
WHERE l.company_id=$1 AND l.je_id=$2 ORDER BY l.line_number`, companyID, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.JournalID, &l.CompanyID, &l.AccountID, &l.AccountNumber, &l.AccountName,
			&l.Debit, &l.Credit, &l.Description, &l.LineNumber, &l.CostCenterID, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) GetEntryWithLines(ctx context.Context, companyID, entryID int64) (JournalEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE company_id=$1 AND id=$2`, companyID, entryID))
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines, err = queryLines(ctx, r.db, companyID, entryID)
	return entry, err
}

func (r *repository) ListEntries(ctx context.Context, companyID int64, filter ListFilter) ([]JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE company_id=$1`
	args := []any{companyID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		query += fmt.Sprintf(` AND source_module=$%d`, len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(` AND date >= $%d`, len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(` AND date <= $%d`, len(args))
	}
	query += ` ORDER BY code DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) FindEntryBySource(ctx context.Context, companyID int64, module SourceModule, ref uuid.UUID) (JournalEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries e
WHERE e.company_id=$1 AND e.id = (SELECT je_id FROM source_links WHERE company_id=$1 AND module=$2 AND ref_id=$3)`,
		companyID, module, ref))
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines, err = queryLines(ctx, r.db, companyID, entry.ID)
	return entry, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// NextJournalCode allocates the next code for the tenant-year through an
// atomic upsert on the sequence row, so concurrent postings cannot read the
// same value.
func (r *txRepository) NextJournalCode(ctx context.Context, companyID int64, year int) (string, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_sequences (company_id, year, last_seq) VALUES ($1,$2,1)
ON CONFLICT (company_id, year) DO UPDATE SET last_seq = journal_sequences.last_seq + 1
RETURNING last_seq`, companyID, year).Scan(&seq)
	if err != nil {
		return "", err
	}
	return FormatJournalCode(year, seq), nil
}

// LockAccounts takes share locks on the referenced accounts and returns the
// ids that are live and active for the tenant. The locks pair with the FOR
// UPDATE taken by account deletion.
func (r *txRepository) LockAccounts(ctx context.Context, companyID int64, accountIDs []int64) ([]int64, error) {
	rows, err := r.tx.Query(ctx, `SELECT id FROM accounts
WHERE company_id=$1 AND id = ANY($2) AND is_active AND deleted_at IS NULL FOR SHARE`, companyID, accountIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var found []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found = append(found, id)
	}
	return found, rows.Err()
}

func (r *txRepository) InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (company_id, code, date, status, source_module, reference_type, reference_id, reference_code, description, total_debit, total_credit, posted_at, posted_by, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING `+entryColumns,
		e.CompanyID, e.Code, e.Date, e.Status, e.SourceModule, e.ReferenceType, e.ReferenceID, e.ReferenceCode,
		e.Description, toNumeric(e.TotalDebit), toNumeric(e.TotalCredit), e.PostedAt, e.PostedBy, e.CreatedBy)
	inserted, err := scanEntry(row)
	if err != nil {
		return JournalEntry{}, mapUniqueViolation(err)
	}
	return inserted, nil
}

func (r *txRepository) InsertLines(ctx context.Context, companyID, entryID int64, lines []PostingLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (je_id, company_id, account_id, debit, credit, description, line_number, cost_center_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			entryID, companyID, line.AccountID, toNumeric(line.Debit), toNumeric(line.Credit), line.Description, line.LineNumber, line.CostCenterID); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteLines(ctx context.Context, companyID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE company_id=$1 AND je_id=$2`, companyID, entryID)
	return err
}

func (r *txRepository) DeleteEntry(ctx context.Context, companyID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE company_id=$1 AND id=$2`, companyID, entryID)
	return err
}

func (r *txRepository) LinkSource(ctx context.Context, companyID int64, module SourceModule, ref uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO source_links (company_id, module, ref_id, je_id) VALUES ($1,$2,$3,$4)`, companyID, module, ref, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrSourceAlreadyLinked
		}
		return err
	}
	return nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, companyID, entryID int64) (JournalEntry, error) {
	return scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE company_id=$1 AND id=$2 FOR UPDATE`, companyID, entryID))
}

func (r *txRepository) GetLines(ctx context.Context, companyID, entryID int64) ([]JournalLine, error) {
	return queryLines(ctx, r.tx, companyID, entryID)
}

func (r *txRepository) UpdateTotals(ctx context.Context, companyID, entryID int64, debit, credit float64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET total_debit=$3, total_credit=$4, version=version+1, updated_at=NOW()
WHERE company_id=$1 AND id=$2`, companyID, entryID, toNumeric(debit), toNumeric(credit))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) MarkPosted(ctx context.Context, companyID, entryID int64, at time.Time, actorID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$3, posted_at=$4, posted_by=$5, version=version+1, updated_at=NOW()
WHERE company_id=$1 AND id=$2`, companyID, entryID, JournalStatusPosted, at, actorID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) MarkCancelled(ctx context.Context, companyID, entryID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$3, version=version+1, updated_at=NOW()
WHERE company_id=$1 AND id=$2`, companyID, entryID, JournalStatusCancelled)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FormatJournalCode renders the human-readable sequential code.
func FormatJournalCode(year int, seq int64) string {
	return fmt.Sprintf("JE-%d-%04d", year, seq)
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrConflict
	}
	return err
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.4f", v)
}
