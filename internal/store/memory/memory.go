package memory

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"context"

	"golang.org/x/crypto/bcrypt"

	"lodgepos/backend/internal/domain"
	"lodgepos/backend/internal/store"
	"lodgepos/backend/internal/xid"
)

// Store is the in-memory Repository used in dev mode and tests. One mutex
// guards all state, so every multi-entity operation is trivially serializable:
// two concurrent sales against the same product serialize on the lock and the
// second one re-reads the decremented quantity.
type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	adjustments     []domain.StockAdjustment
	transactions    map[string]*domain.Transaction
	payments        map[string][]domain.Payment
	guests          map[string]domain.Guest
	shifts          map[string]domain.Shift
	openShiftID     string
	expenses        []domain.Expense
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; unset
// variables fall back to dev defaults with a warning. Production deployments
// use PostgreSQL (DATABASE_URL) and never hit this path.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: "prd-water", Name: "Mineral Water 600ml", Category: "minibar", UnitPriceCents: 250, CostPriceCents: 90, TrackStock: true, StockQuantity: 100, LowStockThreshold: 12},
		{ID: "prd-noodles", Name: "Instant Noodle Cup", Category: "minibar", UnitPriceCents: 450, CostPriceCents: 180, TrackStock: true, StockQuantity: 80, LowStockThreshold: 10},
		{ID: "prd-chips", Name: "Potato Chips", Category: "snack", UnitPriceCents: 380, CostPriceCents: 150, TrackStock: true, StockQuantity: 60, LowStockThreshold: 8},
		{ID: "prd-chocolate", Name: "Chocolate Bar", Category: "snack", UnitPriceCents: 320, CostPriceCents: 130, TrackStock: true, StockQuantity: 50, LowStockThreshold: 8},
		{ID: "prd-soda", Name: "Soda Can 330ml", Category: "minibar", UnitPriceCents: 300, CostPriceCents: 110, TrackStock: true, StockQuantity: 90, LowStockThreshold: 12},
		{ID: "prd-coffee", Name: "Drip Coffee", Category: "cafe", UnitPriceCents: 550, CostPriceCents: 160, TrackStock: true, StockQuantity: 40, LowStockThreshold: 6},
		{ID: "prd-kit", Name: "Toothbrush Kit", Category: "amenity", UnitPriceCents: 600, CostPriceCents: 240, TrackStock: true, StockQuantity: 30, LowStockThreshold: 5},
		{ID: "svc-laundry", Name: "Laundry Service", Category: "service", UnitPriceCents: 2500, TrackStock: false},
		{ID: "svc-shuttle", Name: "Airport Shuttle", Category: "service", UnitPriceCents: 8000, TrackStock: false},
		{ID: "svc-late-checkout", Name: "Late Checkout Fee", Category: "service", UnitPriceCents: 5000, TrackStock: false},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		p.Active = true
		p.CreatedAt = now
		p.UpdatedAt = now
		productMap[p.ID] = p
	}

	return &Store{
		products:        productMap,
		adjustments:     make([]domain.StockAdjustment, 0, 128),
		transactions:    make(map[string]*domain.Transaction),
		payments:        make(map[string][]domain.Payment),
		guests:          make(map[string]domain.Guest),
		shifts:          make(map[string]domain.Shift),
		expenses:        make([]domain.Expense, 0, 64),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" || product.UnitPriceCents < 1 {
		return nil, store.ErrInvalidArgument
	}
	if product.StockQuantity < 0 {
		return nil, store.ErrInvalidArgument
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalidArgument
	}
	if product.SKU != "" {
		for _, existing := range s.products {
			if existing.SKU == product.SKU {
				return nil, fmt.Errorf("%w: duplicate sku %s", store.ErrInvalidArgument, product.SKU)
			}
		}
	}
	if !product.TrackStock {
		product.StockQuantity = 0
	}

	now := time.Now().UTC()
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product

	if product.TrackStock && product.StockQuantity > 0 {
		s.adjustments = append(s.adjustments, domain.StockAdjustment{
			ID:           xid.New("adj"),
			ProductID:    product.ID,
			Mode:         domain.StockModeSet,
			Quantity:     product.StockQuantity,
			Delta:        product.StockQuantity,
			ResultingQty: product.StockQuantity,
			Reason:       "initial stock",
			CreatedAt:    now,
		})
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" || product.UnitPriceCents < 1 {
		return nil, store.ErrInvalidArgument
	}
	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Stock is only ever changed through the adjustment ledger.
	product.TrackStock = existing.TrackStock
	product.StockQuantity = existing.StockQuantity
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) AdjustStock(_ context.Context, productID string, quantity int, mode string, reason string, actor string) (*domain.StockAdjustResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		return nil, store.ErrNotFound
	}

	next, delta, err := nextQuantity(product, quantity, mode)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	s.adjustments = append(s.adjustments, domain.StockAdjustment{
		ID:           xid.New("adj"),
		ProductID:    productID,
		Mode:         mode,
		Quantity:     quantity,
		Delta:        delta,
		ResultingQty: next,
		Reason:       reason,
		Actor:        actor,
		CreatedAt:    now,
	})

	if product.TrackStock {
		product.StockQuantity = next
		product.UpdatedAt = now
		s.products[productID] = product
	}

	return &domain.StockAdjustResponse{
		ProductID:   productID,
		NewQuantity: next,
		Tracked:     product.TrackStock,
	}, nil
}

// nextQuantity validates an adjustment against the current product state and
// returns the resulting quantity and applied delta. Untracked products keep a
// zero quantity regardless of mode.
func nextQuantity(product domain.Product, quantity int, mode string) (next int, delta int, err error) {
	switch mode {
	case domain.StockModeSet:
		if quantity < 0 {
			return 0, 0, fmt.Errorf("%w: set quantity must be >= 0", store.ErrInvalidArgument)
		}
	case domain.StockModeAdd, domain.StockModeRemove:
		if quantity < 1 {
			return 0, 0, fmt.Errorf("%w: %s quantity must be > 0", store.ErrInvalidArgument, mode)
		}
	default:
		return 0, 0, fmt.Errorf("%w: unknown stock mode %q", store.ErrInvalidArgument, mode)
	}

	if !product.TrackStock {
		return 0, 0, nil
	}

	current := product.StockQuantity
	switch mode {
	case domain.StockModeSet:
		return quantity, quantity - current, nil
	case domain.StockModeAdd:
		return current + quantity, quantity, nil
	default: // remove
		if current-quantity < 0 {
			return 0, 0, fmt.Errorf("%w: product %s has %d, cannot remove %d", store.ErrInsufficientStock, product.Name, current, quantity)
		}
		return current - quantity, -quantity, nil
	}
}

func (s *Store) ListStockAdjustments(_ context.Context, productID string, limit int) ([]domain.StockAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockAdjustment, 0, 32)
	for _, adj := range s.adjustments {
		if productID != "" && adj.ProductID != productID {
			continue
		}
		result = append(result, adj)
	}

	slices.SortFunc(result, func(a, b domain.StockAdjustment) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateSale(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tx.Items) == 0 {
		return nil, store.ErrEmptyTransaction
	}
	if tx.ID == "" {
		tx.ID = xid.New("sale")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.Kind = domain.TxKindSale
	tx.PaymentStatus = domain.PaymentStatusUnpaid

	frozen, err := s.freezeLines(tx.Items)
	if err != nil {
		return nil, err
	}
	tx.Items = frozen

	subtotal, total, ok := domain.TransactionTotal(tx.Items, tx.DiscountCents, tx.TaxCents)
	if !ok {
		return nil, fmt.Errorf("%w: totals must not be negative", store.ErrInvalidArgument)
	}
	tx.SubtotalCents = subtotal
	tx.TotalCents = total

	// Validation passed for every line; nothing was mutated yet. Apply the
	// decrements and the transaction together so readers never observe one
	// without the other.
	s.applyStockForLines(tx.Items, domain.StockModeRemove, "sale #"+tx.ID, tx.CreatedBy, tx.CreatedAt)

	saved := cloneTransaction(&tx)
	s.transactions[tx.ID] = saved
	return cloneTransaction(saved), nil
}

func (s *Store) CreateReturn(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tx.Items) == 0 {
		return nil, store.ErrEmptyTransaction
	}
	if tx.OriginalSaleID != "" {
		original, exists := s.transactions[tx.OriginalSaleID]
		if !exists || original.Kind != domain.TxKindSale {
			return nil, fmt.Errorf("%w: original sale %s", store.ErrNotFound, tx.OriginalSaleID)
		}
	}
	if tx.ID == "" {
		tx.ID = xid.New("ret")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.Kind = domain.TxKindReturn
	tx.PaymentStatus = domain.PaymentStatusUnpaid

	frozen, err := s.freezeReturnLines(tx.Items)
	if err != nil {
		return nil, err
	}
	tx.Items = frozen

	subtotal, total, ok := domain.TransactionTotal(tx.Items, tx.DiscountCents, tx.TaxCents)
	if !ok {
		return nil, fmt.Errorf("%w: totals must not be negative", store.ErrInvalidArgument)
	}
	tx.SubtotalCents = subtotal
	tx.TotalCents = total

	if tx.RestoreStock {
		s.applyStockForLines(tx.Items, domain.StockModeAdd, "return #"+tx.ID, tx.CreatedBy, tx.CreatedAt)
	}

	saved := cloneTransaction(&tx)
	s.transactions[tx.ID] = saved
	return cloneTransaction(saved), nil
}

// freezeLines resolves product references, snapshots name and price, and
// verifies tracked stock availability. It mutates nothing.
func (s *Store) freezeLines(items []domain.LineItem) ([]domain.LineItem, error) {
	frozen := make([]domain.LineItem, 0, len(items))
	needed := make(map[string]int, len(items))

	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: line quantity must be > 0", store.ErrInvalidArgument)
		}

		if item.ProductID == "" {
			// Ad hoc line: caller supplies name and price.
			if item.Name == "" || item.UnitPriceCents < 0 {
				return nil, fmt.Errorf("%w: ad hoc line needs a name and price", store.ErrInvalidArgument)
			}
			item.LineTotalCents = int64(item.Quantity) * item.UnitPriceCents
			frozen = append(frozen, item)
			continue
		}

		product, exists := s.products[item.ProductID]
		if !exists || !product.Active {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
		}
		if product.TrackStock {
			needed[product.ID] += item.Quantity
			if product.StockQuantity < needed[product.ID] {
				return nil, fmt.Errorf("%w: product %s has %d, sale needs %d", store.ErrInsufficientStock, product.Name, product.StockQuantity, needed[product.ID])
			}
		}
		item.Name = product.Name
		item.UnitPriceCents = product.UnitPriceCents
		item.LineTotalCents = int64(item.Quantity) * product.UnitPriceCents
		frozen = append(frozen, item)
	}
	return frozen, nil
}

// freezeReturnLines is freezeLines without the availability check: a return
// never needs stock on hand, and the caller may price lines independently of
// the current catalog (e.g. at the originally charged price).
func (s *Store) freezeReturnLines(items []domain.LineItem) ([]domain.LineItem, error) {
	frozen := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: line quantity must be > 0", store.ErrInvalidArgument)
		}
		if item.ProductID != "" {
			product, exists := s.products[item.ProductID]
			if !exists {
				return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
			}
			if item.Name == "" {
				item.Name = product.Name
			}
			if item.UnitPriceCents == 0 {
				item.UnitPriceCents = product.UnitPriceCents
			}
		} else if item.Name == "" || item.UnitPriceCents < 0 {
			return nil, fmt.Errorf("%w: ad hoc line needs a name and price", store.ErrInvalidArgument)
		}
		item.LineTotalCents = int64(item.Quantity) * item.UnitPriceCents
		frozen = append(frozen, item)
	}
	return frozen, nil
}

// applyStockForLines adjusts tracked products for every product-backed line
// and appends the corresponding ledger rows. Callers validated availability
// beforehand under the same lock.
func (s *Store) applyStockForLines(items []domain.LineItem, mode string, reason string, actor string, at time.Time) {
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		product, exists := s.products[item.ProductID]
		if !exists {
			continue
		}

		delta := 0
		next := product.StockQuantity
		if product.TrackStock {
			if mode == domain.StockModeRemove {
				delta = -item.Quantity
			} else {
				delta = item.Quantity
			}
			next = product.StockQuantity + delta
			product.StockQuantity = next
			product.UpdatedAt = at
			s.products[item.ProductID] = product
		}

		s.adjustments = append(s.adjustments, domain.StockAdjustment{
			ID:           xid.New("adj"),
			ProductID:    item.ProductID,
			Mode:         mode,
			Quantity:     item.Quantity,
			Delta:        delta,
			ResultingQty: next,
			Reason:       reason,
			Actor:        actor,
			CreatedAt:    at,
		})
	}
}

func (s *Store) GetTransactionDetails(_ context.Context, id string) (*domain.TransactionDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactions[id]
	if !exists {
		return nil, store.ErrNotFound
	}

	payments := make([]domain.Payment, len(s.payments[id]))
	copy(payments, s.payments[id])

	// Always fold the ledger; the status on the stored row is a cache.
	totals := domain.FoldPayments(tx.TotalCents, payments)
	details := domain.TransactionDetails{
		Transaction:     *cloneTransaction(tx),
		AmountPaidCents: totals.AmountPaidCents,
		AmountDueCents:  totals.AmountDueCents,
		Payments:        payments,
	}
	details.PaymentStatus = totals.PaymentStatus
	return &details, nil
}

func (s *Store) AddPayment(_ context.Context, payment domain.Payment) (*domain.Payment, *domain.PaymentTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payment.AmountCents <= 0 {
		return nil, nil, fmt.Errorf("%w: payment amount must be > 0", store.ErrInvalidArgument)
	}
	tx, exists := s.transactions[payment.TransactionID]
	if !exists {
		return nil, nil, store.ErrNotFound
	}

	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	s.payments[payment.TransactionID] = append(s.payments[payment.TransactionID], payment)

	totals := domain.FoldPayments(tx.TotalCents, s.payments[payment.TransactionID])
	tx.PaymentStatus = totals.PaymentStatus

	saved := payment
	return &saved, &totals, nil
}

func (s *Store) CheckInGuest(_ context.Context, guest domain.Guest) (*domain.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if guest.Name == "" || guest.DailyRateCents < 0 {
		return nil, store.ErrInvalidArgument
	}
	if guest.ID == "" {
		guest.ID = xid.New("guest")
	}
	if guest.CheckIn.IsZero() {
		guest.CheckIn = time.Now().UTC()
	}
	guest.Status = domain.GuestStatusActive
	guest.CheckOut = nil
	guest.FinalBillCents = 0

	s.guests[guest.ID] = guest
	saved := guest
	return &saved, nil
}

func (s *Store) GetGuestByID(_ context.Context, id string) (*domain.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	guest, exists := s.guests[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyGuest := guest
	return &copyGuest, nil
}

func (s *Store) ListGuests(_ context.Context, status string, limit int) ([]domain.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Guest, 0, len(s.guests))
	for _, guest := range s.guests {
		if status != "" && guest.Status != status {
			continue
		}
		result = append(result, guest)
	}
	slices.SortFunc(result, func(a, b domain.Guest) int {
		if a.CheckIn.Equal(b.CheckIn) {
			return cmpString(a.ID, b.ID)
		}
		if a.CheckIn.After(b.CheckIn) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CheckoutGuest(_ context.Context, guestID string, checkoutDate time.Time, discount domain.CheckoutDiscount) (*domain.Guest, *domain.CheckoutBreakdown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guest, exists := s.guests[guestID]
	if !exists {
		return nil, nil, store.ErrNotFound
	}
	if guest.Status != domain.GuestStatusActive {
		return nil, nil, store.ErrAlreadyCheckedOut
	}

	nights := domain.Nights(guest.CheckIn, checkoutDate)
	roomCharge := int64(nights) * guest.DailyRateCents

	var ordersDue int64
	for id, tx := range s.transactions {
		if tx.GuestID != guestID || tx.Kind != domain.TxKindSale {
			continue
		}
		totals := domain.FoldPayments(tx.TotalCents, s.payments[id])
		ordersDue += totals.AmountDueCents
	}

	bill, discountCents := domain.FinalBill(roomCharge, ordersDue, discount)

	out := checkoutDate
	guest.Status = domain.GuestStatusCheckedOut
	guest.CheckOut = &out
	guest.FinalBillCents = bill
	guest.DiscountNote = discount.Description
	s.guests[guestID] = guest

	breakdown := domain.CheckoutBreakdown{
		Nights:          nights,
		RoomChargeCents: roomCharge,
		OrdersDueCents:  ordersDue,
		DiscountCents:   discountCents,
		FinalBillCents:  bill,
	}
	saved := guest
	return &saved, &breakdown, nil
}

func (s *Store) OpenShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if shift.StartCashCents < 0 || shift.OpenedBy == "" {
		return nil, store.ErrInvalidArgument
	}
	if s.openShiftID != "" {
		return nil, fmt.Errorf("%w: shift %s", store.ErrShiftAlreadyOpen, s.openShiftID)
	}

	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.OpenedAt.IsZero() {
		shift.OpenedAt = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.ClosedAt = nil

	s.shifts[shift.ID] = shift
	s.openShiftID = shift.ID
	saved := shift
	return &saved, nil
}

func (s *Store) GetOpenShift(_ context.Context) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.openShiftID == "" {
		return nil, store.ErrNotFound
	}
	shift, exists := s.shifts[s.openShiftID]
	if !exists || shift.Status != domain.ShiftStatusOpen {
		return nil, store.ErrNotFound
	}
	copyShift := shift
	return &copyShift, nil
}

func (s *Store) CloseShift(_ context.Context, shiftID string, closedBy string, endCashActualCents int64, closedAt time.Time) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shift, exists := s.shifts[shiftID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if shift.Status != domain.ShiftStatusOpen {
		return nil, fmt.Errorf("%w: shift %s already closed", store.ErrInvalidArgument, shiftID)
	}
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}

	expected := shift.StartCashCents
	for txID, ledger := range s.payments {
		_ = txID
		for _, p := range ledger {
			if p.Method != domain.PaymentMethodCash {
				continue
			}
			if p.CreatedAt.Before(shift.OpenedAt) || p.CreatedAt.After(closedAt) {
				continue
			}
			expected += p.AmountCents
		}
	}
	for _, e := range s.expenses {
		if e.Method != domain.PaymentMethodCash {
			continue
		}
		if e.CreatedAt.Before(shift.OpenedAt) || e.CreatedAt.After(closedAt) {
			continue
		}
		expected -= e.AmountCents
	}

	shift.Status = domain.ShiftStatusClosed
	shift.ClosedBy = closedBy
	shift.ClosedAt = &closedAt
	shift.EndCashExpectedCents = expected
	shift.EndCashActualCents = endCashActualCents
	shift.DifferenceCents = endCashActualCents - expected

	s.shifts[shiftID] = shift
	s.openShiftID = ""
	saved := shift
	return &saved, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.Description == "" || expense.AmountCents <= 0 {
		return nil, store.ErrInvalidArgument
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	if expense.Method == "" {
		expense.Method = domain.PaymentMethodCash
	}

	s.expenses = append(s.expenses, expense)
	saved := expense
	return &saved, nil
}

func (s *Store) ListExpenses(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, 32)
	for _, e := range s.expenses {
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		result = append(result, e)
	}
	slices.SortFunc(result, func(a, b domain.Expense) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) GetDashboardStats(_ context.Context, from time.Time, to time.Time) (domain.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.DashboardStats{}
	for _, ledger := range s.payments {
		for _, p := range ledger {
			if p.CreatedAt.Before(from) || !p.CreatedAt.Before(to) {
				continue
			}
			stats.PaymentsCents += p.AmountCents
			if p.Method == domain.PaymentMethodCash {
				stats.CashPaymentsCents += p.AmountCents
			}
		}
	}
	for _, e := range s.expenses {
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		stats.ExpensesCents += e.AmountCents
	}
	for _, tx := range s.transactions {
		if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		if tx.Kind == domain.TxKindReturn {
			stats.ReturnCount++
		} else {
			stats.SaleCount++
		}
	}
	return stats, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" {
		return store.ErrInvalidArgument
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidArgument
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneTransaction(tx *domain.Transaction) *domain.Transaction {
	copyTx := *tx
	copyTx.Items = make([]domain.LineItem, len(tx.Items))
	copy(copyTx.Items, tx.Items)
	return &copyTx
}

func cmpString(a, b string) int {
	return strings.Compare(a, b)
}
