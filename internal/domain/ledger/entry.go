package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailcore/backend/internal/domain/shared"
)

// AccountCode identifies a ledger account. Codes are configuration data,
// not an enum; the domain only requires them to be non-empty.
type AccountCode string

// String returns the string representation of AccountCode
func (c AccountCode) String() string {
	return string(c)
}

// EntryStatus represents the status of a ledger entry
type EntryStatus string

const (
	EntryStatusCompleted EntryStatus = "COMPLETED"
	EntryStatusReversed  EntryStatus = "REVERSED"
)

// ReferenceType identifies the source document of a ledger entry
type ReferenceType string

const (
	ReferenceSalesReturn    ReferenceType = "SALES_RETURN"
	ReferencePurchaseReturn ReferenceType = "PURCHASE_RETURN"
	ReferenceRefundPayment  ReferenceType = "REFUND_PAYMENT"
	ReferenceSalesOrder     ReferenceType = "SALES_ORDER"
	ReferencePurchaseOrder  ReferenceType = "PURCHASE_ORDER"
	ReferenceAdjustment     ReferenceType = "ADJUSTMENT"
)

// Entry is a single row of the append-only ledger. Entries are created in
// balanced debit/credit pairs sharing a TransactionID and are never updated
// or deleted; corrections append a reversing pair.
type Entry struct {
	shared.BaseEntity
	TransactionID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountCode     AccountCode     `gorm:"type:varchar(20);not null;index"`
	Debit           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Credit          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TransactionDate time.Time       `gorm:"type:timestamptz;not null;index"`
	ReferenceType   ReferenceType   `gorm:"type:varchar(30);not null"`
	ReferenceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReferenceNumber string          `gorm:"type:varchar(50)"`
	CustomerID      *uuid.UUID      `gorm:"type:uuid;index"`
	SupplierID      *uuid.UUID      `gorm:"type:uuid;index"`
	Memo            string          `gorm:"type:varchar(500)"`
	Status          EntryStatus     `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (Entry) TableName() string {
	return "ledger_entries"
}

// IsDebit returns true when the entry carries a debit amount
func (e *Entry) IsDebit() bool {
	return e.Debit.GreaterThan(decimal.Zero)
}

// IsCredit returns true when the entry carries a credit amount
func (e *Entry) IsCredit() bool {
	return e.Credit.GreaterThan(decimal.Zero)
}

// Amount returns the non-zero side of the entry
func (e *Entry) Amount() decimal.Decimal {
	if e.IsDebit() {
		return e.Debit
	}
	return e.Credit
}

// EntryMetadata carries the shared reference fields of a posting pair
type EntryMetadata struct {
	TransactionDate time.Time
	ReferenceType   ReferenceType
	ReferenceID     uuid.UUID
	ReferenceNumber string
	CustomerID      *uuid.UUID
	SupplierID      *uuid.UUID
	Memo            string
}

// NewDoubleEntry creates a balanced debit/credit pair sharing a fresh
// transaction ID. The pair must be persisted atomically.
func NewDoubleEntry(
	debitAccount, creditAccount AccountCode,
	amount decimal.Decimal,
	meta EntryMetadata,
) ([]Entry, error) {
	if debitAccount == "" || creditAccount == "" {
		return nil, shared.NewValidationError("INVALID_ACCOUNT", "Account codes cannot be empty")
	}
	if debitAccount == creditAccount {
		return nil, shared.NewValidationError("INVALID_ACCOUNT", "Debit and credit accounts must differ")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Posting amount must be positive")
	}
	if meta.ReferenceID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_REFERENCE", "Reference ID cannot be empty")
	}

	txDate := meta.TransactionDate
	if txDate.IsZero() {
		txDate = time.Now()
	}
	txID := uuid.New()

	debit := Entry{
		BaseEntity:      shared.NewBaseEntity(),
		TransactionID:   txID,
		AccountCode:     debitAccount,
		Debit:           amount,
		Credit:          decimal.Zero,
		TransactionDate: txDate,
		ReferenceType:   meta.ReferenceType,
		ReferenceID:     meta.ReferenceID,
		ReferenceNumber: meta.ReferenceNumber,
		CustomerID:      meta.CustomerID,
		SupplierID:      meta.SupplierID,
		Memo:            meta.Memo,
		Status:          EntryStatusCompleted,
	}
	credit := Entry{
		BaseEntity:      shared.NewBaseEntity(),
		TransactionID:   txID,
		AccountCode:     creditAccount,
		Debit:           decimal.Zero,
		Credit:          amount,
		TransactionDate: txDate,
		ReferenceType:   meta.ReferenceType,
		ReferenceID:     meta.ReferenceID,
		ReferenceNumber: meta.ReferenceNumber,
		CustomerID:      meta.CustomerID,
		SupplierID:      meta.SupplierID,
		Memo:            meta.Memo,
		Status:          EntryStatusCompleted,
	}

	return []Entry{debit, credit}, nil
}

// NewReversalPair builds the mirror image of an existing pair. The original
// rows stay in place; the reversal is appended with its own transaction ID.
func NewReversalPair(original []Entry, memo string) ([]Entry, error) {
	if len(original) != 2 {
		return nil, shared.NewValidationError("INVALID_PAIR", "Reversal requires a debit/credit pair")
	}
	if !Balanced(original) {
		return nil, shared.NewValidationError("UNBALANCED_PAIR", "Cannot reverse an unbalanced pair")
	}

	txID := uuid.New()
	now := time.Now()
	reversal := make([]Entry, 0, 2)
	for _, e := range original {
		r := Entry{
			BaseEntity:      shared.NewBaseEntity(),
			TransactionID:   txID,
			AccountCode:     e.AccountCode,
			Debit:           e.Credit,
			Credit:          e.Debit,
			TransactionDate: now,
			ReferenceType:   e.ReferenceType,
			ReferenceID:     e.ReferenceID,
			ReferenceNumber: e.ReferenceNumber,
			CustomerID:      e.CustomerID,
			SupplierID:      e.SupplierID,
			Memo:            memo,
			Status:          EntryStatusCompleted,
		}
		reversal = append(reversal, r)
	}
	return reversal, nil
}

// Balanced reports whether total debits equal total credits across the entries
func Balanced(entries []Entry) bool {
	debits := decimal.Zero
	credits := decimal.Zero
	for _, e := range entries {
		debits = debits.Add(e.Debit)
		credits = credits.Add(e.Credit)
	}
	return debits.Equal(credits)
}
