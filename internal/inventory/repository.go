package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// Repository persists stock movements and answers valuation lookups.
type Repository interface {
	InsertMovements(ctx context.Context, moves []StockMovement) error
	// LatestRate returns the most recent non-null valuation rate recorded
	// for the product in the warehouse. ok is false when no rated movement
	// exists yet.
	LatestRate(ctx context.Context, companyID, productID, warehouseID int64) (rate float64, ok bool, err error)
	// PurchasePrice returns the product's standing purchase price, the
	// fallback valuation when the stock ledger has no rated history.
	PurchasePrice(ctx context.Context, companyID, productID int64) (float64, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) InsertMovements(ctx context.Context, moves []StockMovement) error {
	batch := &pgx.Batch{}
	for i := range moves {
		m := &moves[i]
		batch.Queue(`
			INSERT INTO stock_ledger (company_id, product_id, warehouse_id, direction, qty, valuation_rate, ref_type, ref_code, moved_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, m.CompanyID, m.ProductID, m.WarehouseID, m.Direction, m.Qty, m.ValuationRate, m.RefType, m.RefCode, m.MovedAt)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range moves {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgxRepository) LatestRate(ctx context.Context, companyID, productID, warehouseID int64) (float64, bool, error) {
	var rate float64
	err := r.pool.QueryRow(ctx, `
		SELECT valuation_rate
		FROM stock_ledger
		WHERE company_id = $1 AND product_id = $2 AND warehouse_id = $3 AND valuation_rate IS NOT NULL
		ORDER BY moved_at DESC, id DESC
		LIMIT 1
	`, companyID, productID, warehouseID).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rate, true, nil
}

func (r *pgxRepository) PurchasePrice(ctx context.Context, companyID, productID int64) (float64, error) {
	var price float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(purchase_price, 0)
		FROM products
		WHERE company_id = $1 AND id = $2 AND deleted_at IS NULL
	`, companyID, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return price, err
}
