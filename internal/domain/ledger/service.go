package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/identity"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/clinicerr"
	"github.com/clinicore/clinicore/internal/platform/db"
)

// maxNumberAttempts bounds the generate-then-retry loop for invoice numbers
// and payment references before giving up with Conflict.
const maxNumberAttempts = 5

// Directory verifies patients exist and resolves patient actors to their
// profiles. Satisfied by *identity.Service.
type Directory interface {
	ResolvePatient(ctx context.Context, userID uuid.UUID) (*identity.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

// Service implements the billing ledger: wallets, invoices and the
// append-only transaction log.
type Service struct {
	repo Repository
	dir  Directory
	tx   db.TxRunner
}

func NewService(repo Repository, dir Directory, tx db.TxRunner) *Service {
	return &Service{repo: repo, dir: dir, tx: tx}
}

// -- Wallets --

// GetOrCreateWallet returns the patient's wallet, creating a zero-balance one
// on first access. Concurrent first access yields a single row.
func (s *Service) GetOrCreateWallet(ctx context.Context, patientID uuid.UUID) (*Wallet, error) {
	if _, err := s.dir.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateWalletIfAbsent(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.GetWallet(ctx, patientID)
}

type TopUpParams struct {
	PatientID   uuid.UUID     `json:"patient_id"`
	Amount      float64       `json:"amount"`
	Method      PaymentMethod `json:"payment_method"`
	Reference   string        `json:"reference"`
	CashierName *string       `json:"cashier_name,omitempty"`
}

// TopUp credits the patient's wallet and appends a completed topup
// transaction, all in one store transaction. Patients top up their own
// wallet; staff top up on a patient's behalf.
func (s *Service) TopUp(ctx context.Context, actor auth.Actor, params TopUpParams) (*Transaction, error) {
	if params.Amount <= 0 {
		return nil, clinicerr.InvalidArgument("amount must be positive")
	}
	if params.Reference == "" {
		return nil, clinicerr.InvalidArgument("reference is required")
	}
	if params.Method == "" {
		params.Method = MethodCash
	}

	patientID := params.PatientID
	if actor.IsPatient() {
		patient, err := s.dir.ResolvePatient(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		patientID = patient.ID
	} else if !actor.Role.IsStaff() {
		return nil, clinicerr.PermissionDenied("role %s cannot top up wallets", actor.Role)
	}
	if _, err := s.dir.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}

	txn := &Transaction{
		PatientID:     patientID,
		Amount:        params.Amount,
		Type:          TransactionTopup,
		PaymentMethod: params.Method,
		Status:        TransactionCompleted,
		Reference:     params.Reference,
		CashierName:   params.CashierName,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateWalletIfAbsent(ctx, patientID); err != nil {
			return err
		}
		wallet, err := s.repo.GetWalletForUpdate(ctx, patientID)
		if err != nil {
			return err
		}
		if err := s.repo.SetWalletBalance(ctx, wallet.ID, wallet.Balance+params.Amount); err != nil {
			return err
		}
		if err := s.repo.CreateTransaction(ctx, txn); err != nil {
			if db.IsUniqueViolation(err) {
				return clinicerr.Wrap(clinicerr.KindConflict, err,
					"transaction reference %s already used", params.Reference)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// WalletForActor returns the calling patient's own wallet, creating it
// lazily on first access.
func (s *Service) WalletForActor(ctx context.Context, actor auth.Actor) (*Wallet, error) {
	patient, err := s.dir.ResolvePatient(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.GetOrCreateWallet(ctx, patient.ID)
}

// EnsurePatientAccess admits staff, or the patient who owns the records.
func (s *Service) EnsurePatientAccess(ctx context.Context, actor auth.Actor, patientID uuid.UUID) error {
	if actor.Role.IsStaff() {
		return nil
	}
	patient, err := s.dir.ResolvePatient(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if patient.ID != patientID {
		return clinicerr.PermissionDenied("records belong to another patient")
	}
	return nil
}

func (s *Service) GetWallet(ctx context.Context, patientID uuid.UUID) (*Wallet, error) {
	w, err := s.repo.GetWallet(ctx, patientID)
	if err != nil {
		return nil, clinicerr.NotFound("no wallet for patient %s", patientID)
	}
	return w, nil
}

// -- Invoices --

type CreateInvoiceParams struct {
	PatientID uuid.UUID           `json:"patient_id"`
	Amount    float64             `json:"amount"`
	DueDate   time.Time           `json:"due_date"`
	Items     []InvoiceItemParams `json:"items,omitempty"`
}

type InvoiceItemParams struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// CreateInvoice issues a pending invoice with a generated INV-<year>-<4
// digits> number. On a number collision it re-rolls; attempts are bounded.
// Invoice and items commit together.
func (s *Service) CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*Invoice, error) {
	if params.Amount <= 0 {
		return nil, clinicerr.InvalidArgument("amount must be positive")
	}
	if _, err := s.dir.GetPatient(ctx, params.PatientID); err != nil {
		return nil, err
	}
	if params.DueDate.IsZero() {
		params.DueDate = time.Now().UTC().Add(30 * 24 * time.Hour)
	}

	inv := &Invoice{
		PatientID: params.PatientID,
		Amount:    params.Amount,
		Status:    InvoicePending,
		DueDate:   params.DueDate,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var lastErr error
		for attempt := 0; attempt < maxNumberAttempts; attempt++ {
			inv.InvoiceNumber = newInvoiceNumber()
			// Each attempt gets its own savepoint: a unique violation
			// aborts the enclosing transaction until rolled back to one.
			lastErr = s.tx.RunInSavepoint(ctx, func(ctx context.Context) error {
				return s.repo.CreateInvoice(ctx, inv)
			})
			if lastErr == nil {
				break
			}
			if !db.IsUniqueViolation(lastErr) {
				return lastErr
			}
		}
		if lastErr != nil {
			return clinicerr.Wrap(clinicerr.KindConflict, lastErr,
				"could not allocate a unique invoice number")
		}
		for i := range params.Items {
			item := &InvoiceItem{
				InvoiceID:   inv.ID,
				Description: params.Items[i].Description,
				Amount:      params.Items[i].Amount,
			}
			if err := s.repo.CreateInvoiceItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

type PayInvoiceParams struct {
	InvoiceID   uuid.UUID     `json:"invoice_id"`
	Method      PaymentMethod `json:"payment_method"`
	CashierName *string       `json:"cashier_name,omitempty"`
}

// PayInvoice settles an invoice exactly once. The invoice row is locked for
// the duration; paying twice surfaces InvalidState. Wallet payments debit the
// locked wallet row and fail with InsufficientFunds when the balance cannot
// cover the amount, leaving everything untouched.
func (s *Service) PayInvoice(ctx context.Context, actor auth.Actor, params PayInvoiceParams) (*Transaction, error) {
	if params.Method == "" {
		return nil, clinicerr.InvalidArgument("payment_method is required")
	}

	var txn *Transaction
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetInvoiceForUpdate(ctx, params.InvoiceID)
		if err != nil {
			return clinicerr.NotFound("invoice %s not found", params.InvoiceID)
		}
		if inv.Status == InvoicePaid {
			return clinicerr.InvalidState("invoice %s is already paid", inv.InvoiceNumber)
		}
		if actor.IsPatient() {
			patient, err := s.dir.ResolvePatient(ctx, actor.UserID)
			if err != nil {
				return err
			}
			if inv.PatientID != patient.ID {
				return clinicerr.PermissionDenied("invoice belongs to another patient")
			}
		} else if !actor.Role.IsStaff() {
			return clinicerr.PermissionDenied("role %s cannot pay invoices", actor.Role)
		}

		if params.Method == MethodWallet {
			wallet, err := s.repo.GetWalletForUpdate(ctx, inv.PatientID)
			if err != nil {
				return clinicerr.NotFound("no wallet for patient %s", inv.PatientID)
			}
			if wallet.Balance < inv.Amount {
				return clinicerr.InsufficientFunds("wallet balance %.2f cannot cover %.2f",
					wallet.Balance, inv.Amount)
			}
			if err := s.repo.SetWalletBalance(ctx, wallet.ID, wallet.Balance-inv.Amount); err != nil {
				return err
			}
		}

		if err := s.repo.SetInvoiceStatus(ctx, inv.ID, InvoicePaid); err != nil {
			return err
		}

		txn = &Transaction{
			InvoiceID:     &inv.ID,
			PatientID:     inv.PatientID,
			Amount:        inv.Amount,
			Type:          TransactionPayment,
			PaymentMethod: params.Method,
			Status:        TransactionCompleted,
			CashierName:   params.CashierName,
		}
		var lastErr error
		for attempt := 0; attempt < maxNumberAttempts; attempt++ {
			txn.Reference = newPaymentReference(inv.InvoiceNumber)
			// Savepoint per attempt so a collision does not abort the
			// wallet debit and status change already applied above.
			lastErr = s.tx.RunInSavepoint(ctx, func(ctx context.Context) error {
				return s.repo.CreateTransaction(ctx, txn)
			})
			if lastErr == nil {
				return nil
			}
			if !db.IsUniqueViolation(lastErr) {
				return lastErr
			}
		}
		return clinicerr.Wrap(clinicerr.KindConflict, lastErr,
			"could not allocate a unique payment reference")
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, clinicerr.NotFound("invoice %s not found", id)
	}
	return inv, nil
}

func (s *Service) ListInvoicesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	return s.repo.ListInvoicesByPatient(ctx, patientID, limit, offset)
}

func (s *Service) GetInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	return s.repo.GetInvoiceItems(ctx, invoiceID)
}

// -- Transactions --

func (s *Service) ListTransactions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Transaction, int, error) {
	return s.repo.ListTransactionsByPatient(ctx, patientID, limit, offset)
}

// -- number generation --

func newInvoiceNumber() string {
	return fmt.Sprintf("INV-%d-%d", time.Now().Year(), 1000+rand.Intn(9000))
}

func newPaymentReference(invoiceNumber string) string {
	return fmt.Sprintf("PAY-%s-%d", invoiceNumber, 100+rand.Intn(900))
}
