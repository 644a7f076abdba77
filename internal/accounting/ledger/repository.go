package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Line is one posted journal line joined to its entry metadata, in ledger
// order.
type Line struct {
	JournalEntryID int64
	JournalCode    string
	Date           time.Time
	Description    string
	ReferenceCode  string
	LineNumber     int
	Debit          float64
	Credit         float64
}

// Repository reads posted journal lines for ledger reconstruction. Only
// POSTED entries are visible, which is what makes this path safe to run
// concurrently with posting.
type Repository interface {
	OpeningTotals(ctx context.Context, companyID, accountID int64, before time.Time) (debit, credit float64, err error)
	LinesInRange(ctx context.Context, companyID, accountID int64, from, to time.Time) ([]Line, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a Repository backed by pgx.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) OpeningTotals(ctx context.Context, companyID, accountID int64, before time.Time) (float64, float64, error) {
	var debit, credit float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.je_id
WHERE l.company_id=$1 AND l.account_id=$2 AND e.status='POSTED' AND e.date < $3`,
		companyID, accountID, before).Scan(&debit, &credit)
	return debit, credit, err
}

// LinesInRange returns posted lines ordered by date, then journal code, then
// line number. The secondary keys pin a deterministic running-balance order
// for lines sharing a posting date.
func (r *repository) LinesInRange(ctx context.Context, companyID, accountID int64, from, to time.Time) ([]Line, error) {
	rows, err := r.db.Query(ctx, `SELECT e.id, e.code, e.date, COALESCE(NULLIF(l.description,''), e.description), e.reference_code, l.line_number, l.debit, l.credit
FROM journal_lines l
JOIN journal_entries e ON e.id = l.je_id
WHERE l.company_id=$1 AND l.account_id=$2 AND e.status='POSTED' AND e.date >= $3 AND e.date <= $4
ORDER BY e.date, e.code, l.line_number`,
		companyID, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.JournalEntryID, &l.JournalCode, &l.Date, &l.Description, &l.ReferenceCode,
			&l.LineNumber, &l.Debit, &l.Credit); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
