package ar

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// Repository persists AR payments.
type Repository interface {
	InsertPayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, companyID, id int64) (Payment, error)
	SetPaymentGLState(ctx context.Context, companyID, id int64, posted bool, glError string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) InsertPayment(ctx context.Context, p *Payment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO ar_payments (company_id, code, customer_id, amount, method, note, received_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, p.CompanyID, p.Code, p.CustomerID, p.Amount, p.Method, p.Note, p.ReceivedAt, p.CreatedBy).
		Scan(&p.ID, &p.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrConflict
	}
	return err
}

func (r *pgxRepository) GetPayment(ctx context.Context, companyID, id int64) (Payment, error) {
	var p Payment
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, code, customer_id, amount, method, note, received_at, created_by, created_at
		FROM ar_payments
		WHERE company_id = $1 AND id = $2
	`, companyID, id).Scan(&p.ID, &p.CompanyID, &p.Code, &p.CustomerID, &p.Amount, &p.Method, &p.Note, &p.ReceivedAt, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, shared.ErrNotFound
	}
	return p, err
}

func (r *pgxRepository) SetPaymentGLState(ctx context.Context, companyID, id int64, posted bool, glError string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ar_payments SET gl_posted = $3, gl_error = NULLIF($4, '')
		WHERE company_id = $1 AND id = $2
	`, companyID, id, posted, glError)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
