package domain

import "time"

type Product struct {
	ID                string    `json:"id"`
	SKU               string    `json:"sku,omitempty"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	UnitPriceCents    int64     `json:"unit_price_cents"`
	CostPriceCents    int64     `json:"cost_price_cents,omitempty"`
	TrackStock        bool      `json:"track_stock"`
	StockQuantity     int       `json:"stock_quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	SKU               string `json:"sku,omitempty"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	UnitPriceCents    int64  `json:"unit_price_cents"`
	CostPriceCents    int64  `json:"cost_price_cents,omitempty"`
	TrackStock        bool   `json:"track_stock"`
	InitialStock      int    `json:"initial_stock"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

type ProductUpdateRequest struct {
	Name              *string `json:"name,omitempty"`
	Category          *string `json:"category,omitempty"`
	UnitPriceCents    *int64  `json:"unit_price_cents,omitempty"`
	CostPriceCents    *int64  `json:"cost_price_cents,omitempty"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty"`
	Active            *bool   `json:"active,omitempty"`
}

// Stock adjustment modes. "set" replaces the quantity, "add" and "remove"
// apply a signed delta.
const (
	StockModeSet    = "set"
	StockModeAdd    = "add"
	StockModeRemove = "remove"
)

// StockAdjustment is one row of the append-only stock ledger. A product's
// materialized stock_quantity always equals the fold of its adjustments.
type StockAdjustment struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	Mode         string    `json:"mode"`
	Quantity     int       `json:"quantity"`
	Delta        int       `json:"delta"`
	ResultingQty int       `json:"resulting_qty"`
	Reason       string    `json:"reason"`
	Actor        string    `json:"actor"`
	CreatedAt    time.Time `json:"created_at"`
}

type StockAdjustRequest struct {
	Quantity int    `json:"quantity"`
	Mode     string `json:"mode"`
	Reason   string `json:"reason"`
}

type StockAdjustResponse struct {
	ProductID   string `json:"product_id"`
	NewQuantity int    `json:"new_quantity"`
	Tracked     bool   `json:"tracked"`
}

const (
	TxKindSale   = "sale"
	TxKindReturn = "return"
)

const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPartial = "partial"
	PaymentStatusPaid    = "paid"
)

// LineItem is one priced row of a transaction. ProductID is empty for ad hoc
// items; Name and UnitPriceCents are frozen at transaction time so later
// catalog edits never change historical totals.
type LineItem struct {
	ProductID      string `json:"product_id,omitempty"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

type SaleLineInput struct {
	ProductID      string `json:"product_id,omitempty"`
	Name           string `json:"name,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents,omitempty"`
}

type Transaction struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	GuestID        string     `json:"guest_id,omitempty"`
	Reference      string     `json:"reference,omitempty"`
	OriginalSaleID string     `json:"original_sale_id,omitempty"`
	RestoreStock   bool       `json:"restore_stock,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Items          []LineItem `json:"items"`
	SubtotalCents  int64      `json:"subtotal_cents"`
	DiscountCents  int64      `json:"discount_cents"`
	TaxCents       int64      `json:"tax_cents"`
	TotalCents     int64      `json:"total_cents"`
	PaymentStatus  string     `json:"payment_status"`
	CreatedBy      string     `json:"created_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Payment struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	AmountCents   int64     `json:"amount_cents"`
	Method        string    `json:"method"`
	ReceivedBy    string    `json:"received_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentTotals is the fold of a transaction's payment ledger.
type PaymentTotals struct {
	AmountPaidCents int64  `json:"amount_paid_cents"`
	AmountDueCents  int64  `json:"amount_due_cents"`
	PaymentStatus   string `json:"payment_status"`
}

type TransactionDetails struct {
	Transaction
	AmountPaidCents int64     `json:"amount_paid_cents"`
	AmountDueCents  int64     `json:"amount_due_cents"`
	Payments        []Payment `json:"payments"`
}

type CreateSaleRequest struct {
	Items         []SaleLineInput `json:"items"`
	GuestID       string          `json:"guest_id,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	DiscountCents int64           `json:"discount_cents"`
	TaxCents      int64           `json:"tax_cents"`
}

type CreateSaleResponse struct {
	TransactionID string `json:"transaction_id"`
	SubtotalCents int64  `json:"subtotal_cents"`
	TotalCents    int64  `json:"total_cents"`
	PaymentStatus string `json:"payment_status"`
}

type CreateReturnRequest struct {
	OriginalSaleID string          `json:"original_sale_id,omitempty"`
	Items          []SaleLineInput `json:"items"`
	Reason         string          `json:"reason"`
	RestoreStock   bool            `json:"restore_stock"`
	DiscountCents  int64           `json:"discount_cents"`
	TaxCents       int64           `json:"tax_cents"`
}

type CreateReturnResponse struct {
	ReturnID   string `json:"return_id"`
	TotalCents int64  `json:"total_cents"`
}

type AddPaymentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
}

type AddPaymentResponse struct {
	PaymentID       string `json:"payment_id"`
	PaymentStatus   string `json:"payment_status"`
	AmountPaidCents int64  `json:"amount_paid_cents"`
	AmountDueCents  int64  `json:"amount_due_cents"`
}

const (
	GuestStatusActive     = "active"
	GuestStatusCheckedOut = "checked_out"
)

type Guest struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Room           string     `json:"room,omitempty"`
	DailyRateCents int64      `json:"daily_rate_cents"`
	Status         string     `json:"status"`
	CheckIn        time.Time  `json:"check_in"`
	CheckOut       *time.Time `json:"check_out,omitempty"`
	FinalBillCents int64      `json:"final_bill_cents,omitempty"`
	DiscountNote   string     `json:"discount_note,omitempty"`
}

type CheckInRequest struct {
	Name           string `json:"name"`
	Room           string `json:"room,omitempty"`
	DailyRateCents int64  `json:"daily_rate_cents"`
	CheckInDate    string `json:"check_in_date,omitempty"`
}

const (
	DiscountTypeFlat       = "flat"
	DiscountTypePercentage = "percentage"
)

// CheckoutDiscount describes the optional discount applied at guest checkout.
// AmountCents is used for flat discounts, Percent for percentage discounts.
type CheckoutDiscount struct {
	Type        string  `json:"type,omitempty"`
	AmountCents int64   `json:"amount_cents,omitempty"`
	Percent     float64 `json:"percent,omitempty"`
	Description string  `json:"description,omitempty"`
}

type CheckoutRequest struct {
	CheckoutDate string           `json:"checkout_date"`
	Discount     CheckoutDiscount `json:"discount"`
}

// CheckoutBreakdown itemizes how a final bill was computed.
type CheckoutBreakdown struct {
	Nights          int   `json:"nights"`
	RoomChargeCents int64 `json:"room_charge_cents"`
	OrdersDueCents  int64 `json:"orders_due_cents"`
	DiscountCents   int64 `json:"discount_cents"`
	FinalBillCents  int64 `json:"final_bill_cents"`
}

type CheckoutResponse struct {
	GuestID   string            `json:"guest_id"`
	CheckOut  string            `json:"check_out"`
	Breakdown CheckoutBreakdown `json:"breakdown"`
}

const (
	ShiftStatusOpen   = "open"
	ShiftStatusClosed = "closed"
)

type Shift struct {
	ID                   string     `json:"id"`
	OpenedBy             string     `json:"opened_by"`
	ClosedBy             string     `json:"closed_by,omitempty"`
	StartCashCents       int64      `json:"start_cash_cents"`
	EndCashExpectedCents int64      `json:"end_cash_expected_cents,omitempty"`
	EndCashActualCents   int64      `json:"end_cash_actual_cents,omitempty"`
	DifferenceCents      int64      `json:"difference_cents,omitempty"`
	Status               string     `json:"status"`
	OpenedAt             time.Time  `json:"opened_at"`
	ClosedAt             *time.Time `json:"closed_at,omitempty"`
}

type OpenShiftRequest struct {
	StartCashCents int64 `json:"start_cash_cents"`
}

type CloseShiftRequest struct {
	ShiftID            string `json:"shift_id"`
	EndCashActualCents int64  `json:"end_cash_actual_cents"`
}

type ShiftResponse struct {
	Shift Shift `json:"shift"`
}

const PaymentMethodCash = "cash"

type Expense struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Method      string    `json:"method"`
	RecordedBy  string    `json:"recorded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExpenseCreateRequest struct {
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
}

// DashboardStats are the raw aggregates the reporting engine folds into a
// dashboard report.
type DashboardStats struct {
	PaymentsCents     int64 `json:"payments_cents"`
	CashPaymentsCents int64 `json:"cash_payments_cents"`
	ExpensesCents     int64 `json:"expenses_cents"`
	SaleCount         int64 `json:"sale_count"`
	ReturnCount       int64 `json:"return_count"`
}

type LowStockProduct struct {
	ProductID         string `json:"product_id"`
	Name              string `json:"name"`
	StockQuantity     int    `json:"stock_quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

type DashboardReport struct {
	From              string            `json:"from"`
	To                string            `json:"to"`
	PaymentsCents     int64             `json:"payments_cents"`
	CashPaymentsCents int64             `json:"cash_payments_cents"`
	ExpensesCents     int64             `json:"expenses_cents"`
	NetCents          int64             `json:"net_cents"`
	SaleCount         int64             `json:"sale_count"`
	ReturnCount       int64             `json:"return_count"`
	LowStock          []LowStockProduct `json:"low_stock"`
	GeneratedAt       string            `json:"generated_at"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type Actor struct {
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
