package journals

import (
	"time"

	"github.com/google/uuid"
)

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft     JournalStatus = "DRAFT"
	JournalStatusPosted    JournalStatus = "POSTED"
	JournalStatusCancelled JournalStatus = "CANCELLED"
)

// SourceModule identifies the subsystem that originated an entry.
type SourceModule string

const (
	SourceAR        SourceModule = "AR"
	SourceAP        SourceModule = "AP"
	SourceInventory SourceModule = "INVENTORY"
	SourceCOGS      SourceModule = "COGS"
	SourceManual    SourceModule = "MANUAL"
)

// JournalEntry captures posting metadata. Code is the tenant-scoped,
// human-readable sequential identifier (JE-2025-0042).
type JournalEntry struct {
	ID            int64
	CompanyID     int64
	Code          string
	Date          time.Time
	Status        JournalStatus
	SourceModule  SourceModule
	ReferenceType string
	ReferenceID   uuid.UUID
	ReferenceCode string
	Description   string
	TotalDebit    float64
	TotalCredit   float64
	PostedAt      *time.Time
	PostedBy      *int64
	CreatedBy     int64
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Lines         []JournalLine
}

// JournalLine stores a debit or credit amount against one account.
// AccountNumber and AccountName are joined in on reads.
type JournalLine struct {
	ID            int64
	JournalID     int64
	CompanyID     int64
	AccountID     int64
	AccountNumber string
	AccountName   string
	Debit         float64
	Credit        float64
	Description   string
	LineNumber    int
	CostCenterID  *int64
	CreatedAt     time.Time
}

// ListFilter narrows journal listings.
type ListFilter struct {
	Status JournalStatus
	Source SourceModule
	From   time.Time
	To     time.Time
	Limit  int
}
