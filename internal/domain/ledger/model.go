package ledger

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus is the invoice lifecycle state.
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
	InvoicePartial   InvoiceStatus = "partial"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionPayment TransactionType = "payment"
	TransactionRefund  TransactionType = "refund"
	TransactionTopup   TransactionType = "topup"
)

// PaymentMethod is how money moved.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
	MethodWallet   PaymentMethod = "wallet"
	MethodCard     PaymentMethod = "card"
)

// TransactionStatus records settlement state.
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionPending   TransactionStatus = "pending"
	TransactionFailed    TransactionStatus = "failed"
)

// Wallet maps to the wallet table. One per patient, created lazily on first
// use. Balance never goes below zero; the table carries a CHECK to back the
// service-level guard.
type Wallet struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Balance   float64   `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Invoice maps to the invoice table. InvoiceNumber is globally unique in the
// form INV-<year>-<4 digits>.
type Invoice struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	InvoiceNumber string        `db:"invoice_number" json:"invoice_number"`
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	Amount        float64       `db:"amount" json:"amount"`
	Status        InvoiceStatus `db:"status" json:"status"`
	DueDate       time.Time     `db:"due_date" json:"due_date"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// InvoiceItem maps to the invoice_item table.
type InvoiceItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	InvoiceID   uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Description string    `db:"description" json:"description"`
	Amount      float64   `db:"amount" json:"amount"`
}

// Transaction maps to the transaction table. The ledger is append-only: rows
// are inserted, never updated or deleted. Reference is globally unique.
type Transaction struct {
	ID            uuid.UUID         `db:"id" json:"id"`
	InvoiceID     *uuid.UUID        `db:"invoice_id" json:"invoice_id,omitempty"`
	PatientID     uuid.UUID         `db:"patient_id" json:"patient_id"`
	Amount        float64           `db:"amount" json:"amount"`
	Type          TransactionType   `db:"type" json:"type"`
	PaymentMethod PaymentMethod     `db:"payment_method" json:"payment_method"`
	Status        TransactionStatus `db:"status" json:"status"`
	Reference     string            `db:"reference" json:"reference"`
	CashierName   *string           `db:"cashier_name" json:"cashier_name,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
}
