package coa

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

const accountColumns = `id, company_id, number, name, type, parent_id, is_system, is_active, level, sort_order, description, version, deleted_at, created_at, updated_at`

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	GetAccount(ctx context.Context, companyID, id int64) (Account, error)
	GetAccountByNumber(ctx context.Context, companyID int64, number string) (Account, error)
	ListAccounts(ctx context.Context, companyID int64, filter ListFilter) ([]Account, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes mutations available within a transaction.
type TxRepository interface {
	InsertAccount(ctx context.Context, account Account) (Account, error)
	GetAccount(ctx context.Context, companyID, id int64) (Account, error)
	GetAccountForUpdate(ctx context.Context, companyID, id int64) (Account, error)
	GetAccountByNumber(ctx context.Context, companyID int64, number string) (Account, error)
	UpdateAccount(ctx context.Context, account Account) (Account, error)
	SoftDeleteAccount(ctx context.Context, companyID, id int64, at time.Time) error
	HasJournalLines(ctx context.Context, accountID int64) (bool, error)
	RecomputeSubtreeLevels(ctx context.Context, companyID, rootID int64, rootLevel int) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a Repository backed by pgx.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.CompanyID, &a.Number, &a.Name, &a.Type, &a.ParentID, &a.IsSystem,
		&a.IsActive, &a.Level, &a.SortOrder, &a.Description, &a.Version, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) GetAccount(ctx context.Context, companyID, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 AND id=$2 AND deleted_at IS NULL`, companyID, id)
	return scanAccount(row)
}

func (r *repository) GetAccountByNumber(ctx context.Context, companyID int64, number string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 AND number=$2 AND deleted_at IS NULL`, companyID, number)
	return scanAccount(row)
}

func (r *repository) ListAccounts(ctx context.Context, companyID int64, filter ListFilter) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE company_id=$1 AND deleted_at IS NULL`
	args := []any{companyID}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += ` AND type=$2`
	}
	if filter.ActiveOnly {
		query += ` AND is_active`
	}
	if filter.ParentID != nil {
		args = append(args, *filter.ParentID)
		query += ` AND parent_id=$` + itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := itoa(len(args))
		query += ` AND (number ILIKE $` + n + ` OR name ILIKE $` + n + `)`
	}
	query += ` ORDER BY level, sort_order, number`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertAccount(ctx context.Context, a Account) (Account, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO accounts (company_id, number, name, type, parent_id, is_system, is_active, level, sort_order, description)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING `+accountColumns,
		a.CompanyID, a.Number, a.Name, a.Type, a.ParentID, a.IsSystem, a.IsActive, a.Level, a.SortOrder, a.Description)
	inserted, err := scanAccount(row)
	if err != nil {
		return Account{}, mapUniqueViolation(err)
	}
	return inserted, nil
}

func (r *txRepository) GetAccount(ctx context.Context, companyID, id int64) (Account, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 AND id=$2 AND deleted_at IS NULL`, companyID, id)
	return scanAccount(row)
}

func (r *txRepository) GetAccountForUpdate(ctx context.Context, companyID, id int64) (Account, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 AND id=$2 AND deleted_at IS NULL FOR UPDATE`, companyID, id)
	return scanAccount(row)
}

func (r *txRepository) GetAccountByNumber(ctx context.Context, companyID int64, number string) (Account, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id=$1 AND number=$2 AND deleted_at IS NULL`, companyID, number)
	return scanAccount(row)
}

func (r *txRepository) UpdateAccount(ctx context.Context, a Account) (Account, error) {
	row := r.tx.QueryRow(ctx, `UPDATE accounts
SET number=$3, name=$4, type=$5, parent_id=$6, is_active=$7, level=$8, sort_order=$9, description=$10, version=version+1, updated_at=NOW()
WHERE company_id=$1 AND id=$2 AND deleted_at IS NULL
RETURNING `+accountColumns, a.CompanyID, a.ID, a.Number, a.Name, a.Type, a.ParentID, a.IsActive, a.Level, a.SortOrder, a.Description)
	updated, err := scanAccount(row)
	if err != nil {
		return Account{}, mapUniqueViolation(err)
	}
	return updated, nil
}

func (r *txRepository) SoftDeleteAccount(ctx context.Context, companyID, id int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET deleted_at=$3, is_active=FALSE, version=version+1, updated_at=NOW()
WHERE company_id=$1 AND id=$2 AND deleted_at IS NULL`, companyID, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) HasJournalLines(ctx context.Context, accountID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id=$1)`, accountID).Scan(&exists)
	return exists, err
}

// RecomputeSubtreeLevels rewrites level for the account and all descendants
// after a re-parent. Depth is relative to the moved root's new level.
func (r *txRepository) RecomputeSubtreeLevels(ctx context.Context, companyID, rootID int64, rootLevel int) error {
	_, err := r.tx.Exec(ctx, `WITH RECURSIVE subtree AS (
	SELECT id, $3::int AS new_level FROM accounts WHERE company_id=$1 AND id=$2
	UNION ALL
	SELECT a.id, s.new_level + 1 FROM accounts a
	JOIN subtree s ON a.parent_id = s.id
	WHERE a.company_id=$1 AND a.deleted_at IS NULL
)
UPDATE accounts SET level = subtree.new_level, updated_at = NOW()
FROM subtree WHERE accounts.id = subtree.id`, companyID, rootID, rootLevel)
	return err
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrConflict
	}
	return err
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
