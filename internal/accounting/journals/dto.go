package journals

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// BalanceTolerance is the maximum allowed |debit - credit| for an entry.
const BalanceTolerance = 0.0001

// PostingLine describes one journal line of a posting request.
type PostingLine struct {
	AccountID    int64   `json:"accountId" validate:"required"`
	Debit        float64 `json:"debit" validate:"gte=0"`
	Credit       float64 `json:"credit" validate:"gte=0"`
	Description  string  `json:"description"`
	LineNumber   int     `json:"lineNumber"`
	CostCenterID *int64  `json:"costCenterId"`
}

// PostingRequest groups fields required to create a journal entry. It is the
// closed, validated shape every domain adapter must produce; the balance
// invariant is checked here once, not per adapter.
type PostingRequest struct {
	CompanyID     int64        `json:"companyId" validate:"required"`
	Date          time.Time    `json:"date" validate:"required"`
	SourceModule  SourceModule `json:"sourceModule" validate:"required"`
	ReferenceType string       `json:"referenceType"`
	ReferenceID   uuid.UUID    `json:"referenceId"`
	ReferenceCode string       `json:"referenceCode"`
	Description   string       `json:"description"`
	ActorID       int64        `json:"-"`
	Lines         []PostingLine `json:"lines" validate:"required,min=2,dive"`
}

// Totals returns the summed debit and credit sides.
func (in PostingRequest) Totals() (debit, credit float64) {
	for _, line := range in.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	return debit, credit
}

// Normalize assigns sequential line numbers when the caller supplied none.
func (in *PostingRequest) Normalize() {
	numbered := false
	for _, line := range in.Lines {
		if line.LineNumber != 0 {
			numbered = true
			break
		}
	}
	if numbered {
		return
	}
	for i := range in.Lines {
		in.Lines[i].LineNumber = i + 1
	}
}

// Validate ensures the request meets posting criteria. It runs before any
// write; failures leave no persistent state.
func (in PostingRequest) Validate() error {
	if in.CompanyID == 0 {
		return fmt.Errorf("%w: company required", shared.ErrValidationFailed)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: posting date required", shared.ErrValidationFailed)
	}
	if in.SourceModule == "" {
		return fmt.Errorf("%w: source module required", shared.ErrValidationFailed)
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	seen := make(map[int]struct{}, len(in.Lines))
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("%w: line %d missing account", shared.ErrValidationFailed, idx+1)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("%w: line %d negative amount", shared.ErrValidationFailed, idx+1)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("%w: line %d cannot be both debit and credit", shared.ErrValidationFailed, idx+1)
		}
		if line.LineNumber < 1 || line.LineNumber > len(in.Lines) {
			return fmt.Errorf("%w: line %d has invalid line number", shared.ErrValidationFailed, idx+1)
		}
		if _, dup := seen[line.LineNumber]; dup {
			return fmt.Errorf("%w: duplicate line number %d", shared.ErrValidationFailed, line.LineNumber)
		}
		seen[line.LineNumber] = struct{}{}
		debit += line.Debit
		credit += line.Credit
	}
	if math.Abs(debit-credit) > BalanceTolerance {
		return shared.ErrUnbalanced
	}
	return nil
}
