package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// -- Wallets --

const walletCols = `id, patient_id, balance, created_at, updated_at`

func (r *repoPG) CreateWalletIfAbsent(ctx context.Context, patientID uuid.UUID) error {
	// ON CONFLICT DO NOTHING keeps concurrent first access down to one row.
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO wallet (id, patient_id, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (patient_id) DO NOTHING`,
		uuid.New(), patientID,
	)
	return err
}

func (r *repoPG) GetWallet(ctx context.Context, patientID uuid.UUID) (*Wallet, error) {
	return scanWallet(r.conn(ctx).QueryRow(ctx,
		`SELECT `+walletCols+` FROM wallet WHERE patient_id = $1`, patientID))
}

func (r *repoPG) GetWalletForUpdate(ctx context.Context, patientID uuid.UUID) (*Wallet, error) {
	return scanWallet(r.conn(ctx).QueryRow(ctx,
		`SELECT `+walletCols+` FROM wallet WHERE patient_id = $1 FOR UPDATE`, patientID))
}

func (r *repoPG) SetWalletBalance(ctx context.Context, walletID uuid.UUID, balance float64) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE wallet SET balance = $2, updated_at = NOW() WHERE id = $1`, walletID, balance)
	return err
}

func scanWallet(row pgx.Row) (*Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.PatientID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// -- Invoices --

const invoiceCols = `id, invoice_number, patient_id, amount, status, due_date, created_at`

func (r *repoPG) CreateInvoice(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoice (id, invoice_number, patient_id, amount, status, due_date)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		inv.ID, inv.InvoiceNumber, inv.PatientID, inv.Amount, inv.Status, inv.DueDate,
	)
	return err
}

func (r *repoPG) CreateInvoiceItem(ctx context.Context, item *InvoiceItem) error {
	item.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoice_item (id, invoice_id, description, amount)
		VALUES ($1,$2,$3,$4)`,
		item.ID, item.InvoiceID, item.Description, item.Amount,
	)
	return err
}

func (r *repoPG) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE id = $1`, id))
}

func (r *repoPG) GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) SetInvoiceStatus(ctx context.Context, id uuid.UUID, status InvoiceStatus) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE invoice SET status = $2 WHERE id = $1`, id, status)
	return err
}

func (r *repoPG) ListInvoicesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoice WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+invoiceCols+` FROM invoice WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.PatientID, &inv.Amount, &inv.Status, &inv.DueDate, &inv.CreatedAt); err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, &inv)
	}
	return invoices, total, nil
}

func (r *repoPG) GetInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, invoice_id, description, amount FROM invoice_item WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*InvoiceItem
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Amount); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, nil
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.PatientID, &inv.Amount, &inv.Status, &inv.DueDate, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// -- Transactions --

func (r *repoPG) CreateTransaction(ctx context.Context, t *Transaction) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO transaction (
			id, invoice_id, patient_id, amount, type, payment_method, status, reference, cashier_name
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.InvoiceID, t.PatientID, t.Amount, t.Type, t.PaymentMethod, t.Status, t.Reference, t.CashierName,
	)
	return err
}

func (r *repoPG) ListTransactionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Transaction, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM transaction WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, invoice_id, patient_id, amount, type, payment_method, status, reference, cashier_name, created_at
		FROM transaction WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var txns []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.InvoiceID, &t.PatientID, &t.Amount, &t.Type, &t.PaymentMethod, &t.Status, &t.Reference, &t.CashierName, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		txns = append(txns, &t)
	}
	return txns, total, nil
}
