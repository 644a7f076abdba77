package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/accounting/journals"
)

// orphanGracePeriod keeps freshly created headers out of the sweep while a
// concurrent posting may still be inserting their lines.
const orphanGracePeriod = 15 * time.Minute

// integrityScanParallelism caps concurrent per-company integrity scans.
const integrityScanParallelism = 4

// GLMaintenance runs ledger integrity and cleanup tasks against the database.
type GLMaintenance struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewGLMaintenance(pool *pgxpool.Pool, logger *slog.Logger) *GLMaintenance {
	if logger == nil {
		logger = slog.Default()
	}
	return &GLMaintenance{pool: pool, logger: logger}
}

// HandleIntegrity scans posted entries whose stored totals disagree with the
// sum of their lines. Mismatches are logged, never auto-corrected. A zero
// company in the payload fans out over every company with posted entries.
func (m *GLMaintenance) HandleIntegrity(ctx context.Context, t *asynq.Task) error {
	var payload GLTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	if payload.CompanyID != 0 {
		return m.scanCompany(ctx, payload.CompanyID)
	}

	companyIDs, err := m.companiesWithEntries(ctx)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(integrityScanParallelism)
	for _, id := range companyIDs {
		id := id
		g.Go(func() error {
			return m.scanCompany(ctx, id)
		})
	}
	return g.Wait()
}

func (m *GLMaintenance) companiesWithEntries(ctx context.Context) ([]int64, error) {
	rows, err := m.pool.Query(ctx, `SELECT DISTINCT company_id FROM journal_entries WHERE status = 'POSTED'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (m *GLMaintenance) scanCompany(ctx context.Context, companyID int64) error {
	rows, err := m.pool.Query(ctx, `
		SELECT e.id, e.code,
			e.total_debit, e.total_credit,
			COALESCE(SUM(l.debit), 0) AS line_debit,
			COALESCE(SUM(l.credit), 0) AS line_credit
		FROM journal_entries e
		LEFT JOIN journal_lines l ON l.je_id = e.id
		WHERE e.status = 'POSTED' AND e.company_id = $1
		GROUP BY e.id
		HAVING ABS(e.total_debit - COALESCE(SUM(l.debit), 0)) > $2
			OR ABS(e.total_credit - COALESCE(SUM(l.credit), 0)) > $2
			OR ABS(COALESCE(SUM(l.debit), 0) - COALESCE(SUM(l.credit), 0)) > $2
	`, companyID, journals.BalanceTolerance)
	if err != nil {
		return err
	}
	defer rows.Close()

	flagged := 0
	for rows.Next() {
		var (
			id                      int64
			code                    string
			totalDebit, lineDebit   float64
			totalCredit, lineCredit float64
		)
		if err := rows.Scan(&id, &code, &totalDebit, &totalCredit, &lineDebit, &lineCredit); err != nil {
			return err
		}
		flagged++
		m.logger.Error("journal entry integrity violation",
			slog.Int64("company_id", companyID),
			slog.String("code", code),
			slog.Float64("header_debit", totalDebit),
			slog.Float64("line_debit", lineDebit),
			slog.Float64("header_credit", totalCredit),
			slog.Float64("line_credit", lineCredit))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	m.logger.Info("gl integrity check completed",
		slog.Int64("company_id", companyID),
		slog.Int("flagged", flagged))
	return nil
}

// HandleOrphanSweep deletes posted entry headers that have no lines and are
// older than the grace period. Their source links go with them so the
// originating document can be re-posted.
func (m *GLMaintenance) HandleOrphanSweep(ctx context.Context, t *asynq.Task) error {
	var payload GLTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	cutoff := time.Now().Add(-orphanGracePeriod)
	tag, err := m.pool.Exec(ctx, `
		DELETE FROM journal_entries e
		WHERE e.status = 'POSTED'
			AND ($1 = 0 OR e.company_id = $1)
			AND e.created_at < $2
			AND NOT EXISTS (
				SELECT 1 FROM journal_lines l WHERE l.je_id = e.id
			)
	`, payload.CompanyID, cutoff)
	if err != nil {
		return err
	}

	if tag.RowsAffected() > 0 {
		m.logger.Warn("swept orphaned journal headers",
			slog.Int64("company_id", payload.CompanyID),
			slog.Int64("removed", tag.RowsAffected()))
	}
	return nil
}
