package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the ledger store. Transactions have no update or delete: the
// ledger is append-only by construction.
type Repository interface {
	// Wallets
	CreateWalletIfAbsent(ctx context.Context, patientID uuid.UUID) error
	GetWallet(ctx context.Context, patientID uuid.UUID) (*Wallet, error)
	// GetWalletForUpdate locks the wallet row for the remainder of the
	// surrounding transaction.
	GetWalletForUpdate(ctx context.Context, patientID uuid.UUID) (*Wallet, error)
	SetWalletBalance(ctx context.Context, walletID uuid.UUID, balance float64) error

	// Invoices
	CreateInvoice(ctx context.Context, inv *Invoice) error
	CreateInvoiceItem(ctx context.Context, item *InvoiceItem) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// GetInvoiceForUpdate locks the invoice row for the remainder of the
	// surrounding transaction.
	GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	SetInvoiceStatus(ctx context.Context, id uuid.UUID, status InvoiceStatus) error
	ListInvoicesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error)
	GetInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error)

	// Transactions (append-only)
	CreateTransaction(ctx context.Context, t *Transaction) error
	ListTransactionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Transaction, int, error)
}
