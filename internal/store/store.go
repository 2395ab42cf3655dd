package store

import (
	"context"
	"errors"
	"time"

	"lodgepos/backend/internal/domain"
)

// Error kinds surfaced by every Repository implementation. Anything else
// returned from a store method is a persistence failure from the underlying
// driver and is passed through wrapped.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyTransaction  = errors.New("transaction has no items")
	ErrAlreadyCheckedOut = errors.New("guest already checked out")
	ErrShiftAlreadyOpen  = errors.New("a shift is already open")
)

// Repository is the single persistence boundary for the ledger core. Every
// method that touches more than one entity (stock + transaction, payment +
// status, guest + bill, shift + cash window) executes as one atomic unit:
// either every write lands or none does.
type Repository interface {
	// Catalog.
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	// Stock ledger. AdjustStock applies one set/add/remove adjustment and
	// appends the audit row in the same atomic unit. Untracked products are
	// logged but their quantity stays at zero.
	AdjustStock(ctx context.Context, productID string, quantity int, mode string, reason string, actor string) (*domain.StockAdjustResponse, error)
	ListStockAdjustments(ctx context.Context, productID string, limit int) ([]domain.StockAdjustment, error)

	// Transactions. CreateSale freezes line prices, verifies and decrements
	// tracked stock, and persists the transaction with its items — all or
	// nothing. CreateReturn optionally restores stock under the same
	// discipline.
	CreateSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	CreateReturn(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	GetTransactionDetails(ctx context.Context, id string) (*domain.TransactionDetails, error)

	// Payment ledger. AddPayment appends and recomputes the derived status
	// within one atomic unit; it is the only writer of payment_status after
	// transaction creation.
	AddPayment(ctx context.Context, payment domain.Payment) (*domain.Payment, *domain.PaymentTotals, error)

	// Guests and checkout billing.
	CheckInGuest(ctx context.Context, guest domain.Guest) (*domain.Guest, error)
	GetGuestByID(ctx context.Context, id string) (*domain.Guest, error)
	ListGuests(ctx context.Context, status string, limit int) ([]domain.Guest, error)
	CheckoutGuest(ctx context.Context, guestID string, checkoutDate time.Time, discount domain.CheckoutDiscount) (*domain.Guest, *domain.CheckoutBreakdown, error)

	// Shift register.
	OpenShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	GetOpenShift(ctx context.Context) (*domain.Shift, error)
	CloseShift(ctx context.Context, shiftID string, closedBy string, endCashActualCents int64, closedAt time.Time) (*domain.Shift, error)

	// Expenses.
	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error)

	// Reporting aggregates.
	GetDashboardStats(ctx context.Context, from time.Time, to time.Time) (domain.DashboardStats, error)

	// Audit trail.
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	// Auth accounts.
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
