package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"lodgepos/backend/internal/domain"
	"lodgepos/backend/internal/store"
	"lodgepos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo store.Repository
}

func New(repo store.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrInvalidArgument
	}
	if req.UnitPriceCents < 1 || req.CostPriceCents < 0 || req.InitialStock < 0 || req.LowStockThreshold < 0 {
		return domain.Product{}, store.ErrInvalidArgument
	}
	if !req.TrackStock && req.InitialStock > 0 {
		return domain.Product{}, store.ErrInvalidArgument
	}

	product := domain.Product{
		ID:                xid.New("prd"),
		SKU:               req.SKU,
		Name:              req.Name,
		Category:          req.Category,
		UnitPriceCents:    req.UnitPriceCents,
		CostPriceCents:    req.CostPriceCents,
		TrackStock:        req.TrackStock,
		StockQuantity:     req.InitialStock,
		LowStockThreshold: req.LowStockThreshold,
		Active:            true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%d,stock=%d", created.Name, created.UnitPriceCents, created.StockQuantity))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidArgument
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidArgument
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidArgument
		}
		updated.Category = category
	}
	if req.UnitPriceCents != nil {
		if *req.UnitPriceCents < 1 {
			return domain.Product{}, store.ErrInvalidArgument
		}
		updated.UnitPriceCents = *req.UnitPriceCents
	}
	if req.CostPriceCents != nil {
		if *req.CostPriceCents < 0 {
			return domain.Product{}, store.ErrInvalidArgument
		}
		updated.CostPriceCents = *req.CostPriceCents
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return domain.Product{}, store.ErrInvalidArgument
		}
		updated.LowStockThreshold = *req.LowStockThreshold
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("active=%t,price=%d", saved.Active, saved.UnitPriceCents))
	return *saved, nil
}

func (s *Service) AdjustStock(ctx context.Context, productID string, req domain.StockAdjustRequest) (domain.StockAdjustResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.StockAdjustResponse{}, fmt.Errorf("admin role required")
	}

	productID = strings.TrimSpace(productID)
	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))
	req.Reason = strings.TrimSpace(req.Reason)
	if productID == "" || req.Reason == "" {
		return domain.StockAdjustResponse{}, store.ErrInvalidArgument
	}

	result, err := s.repo.AdjustStock(ctx, productID, req.Quantity, req.Mode, req.Reason, actor.Username)
	if err != nil {
		return domain.StockAdjustResponse{}, err
	}

	s.logAudit(ctx, "stock_adjust", "product", productID, fmt.Sprintf("mode=%s,qty=%d,new=%d,reason=%s", req.Mode, req.Quantity, result.NewQuantity, req.Reason))
	return *result, nil
}

func (s *Service) ListStockLedger(ctx context.Context, productID string, limit int) ([]domain.StockAdjustment, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListStockAdjustments(ctx, strings.TrimSpace(productID), limit)
}

func (s *Service) CreateSale(ctx context.Context, req domain.CreateSaleRequest) (domain.CreateSaleResponse, error) {
	if len(req.Items) == 0 {
		return domain.CreateSaleResponse{}, store.ErrEmptyTransaction
	}
	if req.DiscountCents < 0 || req.TaxCents < 0 {
		return domain.CreateSaleResponse{}, store.ErrInvalidArgument
	}

	actor, _ := ActorFromContext(ctx)

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return domain.CreateSaleResponse{}, fmt.Errorf("%w: line quantity must be > 0", store.ErrInvalidArgument)
		}
		items = append(items, domain.LineItem{
			ProductID:      strings.TrimSpace(line.ProductID),
			Name:           strings.TrimSpace(line.Name),
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}

	created, err := s.repo.CreateSale(ctx, domain.Transaction{
		ID:            xid.New("sale"),
		GuestID:       strings.TrimSpace(req.GuestID),
		Reference:     strings.TrimSpace(req.Reference),
		Items:         items,
		DiscountCents: req.DiscountCents,
		TaxCents:      req.TaxCents,
		CreatedBy:     actor.Username,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return domain.CreateSaleResponse{}, err
	}

	s.logAudit(ctx, "sale_create", "transaction", created.ID, fmt.Sprintf("lines=%d,total=%d,guest=%s", len(created.Items), created.TotalCents, created.GuestID))
	return domain.CreateSaleResponse{
		TransactionID: created.ID,
		SubtotalCents: created.SubtotalCents,
		TotalCents:    created.TotalCents,
		PaymentStatus: created.PaymentStatus,
	}, nil
}

func (s *Service) CreateReturn(ctx context.Context, req domain.CreateReturnRequest) (domain.CreateReturnResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.CreateReturnResponse{}, fmt.Errorf("admin role required")
	}

	if len(req.Items) == 0 {
		return domain.CreateReturnResponse{}, store.ErrEmptyTransaction
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return domain.CreateReturnResponse{}, fmt.Errorf("%w: return reason required", store.ErrInvalidArgument)
	}
	if req.DiscountCents < 0 || req.TaxCents < 0 {
		return domain.CreateReturnResponse{}, store.ErrInvalidArgument
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return domain.CreateReturnResponse{}, fmt.Errorf("%w: line quantity must be > 0", store.ErrInvalidArgument)
		}
		items = append(items, domain.LineItem{
			ProductID:      strings.TrimSpace(line.ProductID),
			Name:           strings.TrimSpace(line.Name),
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}

	created, err := s.repo.CreateReturn(ctx, domain.Transaction{
		ID:             xid.New("ret"),
		OriginalSaleID: strings.TrimSpace(req.OriginalSaleID),
		RestoreStock:   req.RestoreStock,
		Reason:         req.Reason,
		Items:          items,
		DiscountCents:  req.DiscountCents,
		TaxCents:       req.TaxCents,
		CreatedBy:      actor.Username,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return domain.CreateReturnResponse{}, err
	}

	s.logAudit(ctx, "return_create", "transaction", created.ID, fmt.Sprintf("original=%s,restore=%t,total=%d", created.OriginalSaleID, created.RestoreStock, created.TotalCents))
	return domain.CreateReturnResponse{ReturnID: created.ID, TotalCents: created.TotalCents}, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.TransactionDetails, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.TransactionDetails{}, store.ErrInvalidArgument
	}
	details, err := s.repo.GetTransactionDetails(ctx, id)
	if err != nil {
		return domain.TransactionDetails{}, err
	}
	return *details, nil
}

func (s *Service) AddPayment(ctx context.Context, transactionID string, req domain.AddPaymentRequest) (domain.AddPaymentResponse, error) {
	transactionID = strings.TrimSpace(transactionID)
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	if transactionID == "" || req.Method == "" {
		return domain.AddPaymentResponse{}, store.ErrInvalidArgument
	}
	if req.AmountCents <= 0 {
		return domain.AddPaymentResponse{}, fmt.Errorf("%w: payment amount must be > 0", store.ErrInvalidArgument)
	}

	actor, _ := ActorFromContext(ctx)

	payment, totals, err := s.repo.AddPayment(ctx, domain.Payment{
		ID:            xid.New("pay"),
		TransactionID: transactionID,
		AmountCents:   req.AmountCents,
		Method:        req.Method,
		ReceivedBy:    actor.Username,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return domain.AddPaymentResponse{}, err
	}

	s.logAudit(ctx, "payment_add", "transaction", transactionID, fmt.Sprintf("amount=%d,method=%s,status=%s", payment.AmountCents, payment.Method, totals.PaymentStatus))
	return domain.AddPaymentResponse{
		PaymentID:       payment.ID,
		PaymentStatus:   totals.PaymentStatus,
		AmountPaidCents: totals.AmountPaidCents,
		AmountDueCents:  totals.AmountDueCents,
	}, nil
}

func (s *Service) CheckIn(ctx context.Context, req domain.CheckInRequest) (domain.Guest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Room = strings.TrimSpace(req.Room)
	if req.Name == "" || req.DailyRateCents < 0 {
		return domain.Guest{}, store.ErrInvalidArgument
	}

	checkIn := time.Now().UTC()
	if req.CheckInDate != "" {
		parsed, err := parseDate(req.CheckInDate)
		if err != nil {
			return domain.Guest{}, fmt.Errorf("%w: check_in_date must be YYYY-MM-DD", store.ErrInvalidArgument)
		}
		checkIn = parsed
	}

	guest, err := s.repo.CheckInGuest(ctx, domain.Guest{
		ID:             xid.New("guest"),
		Name:           req.Name,
		Room:           req.Room,
		DailyRateCents: req.DailyRateCents,
		CheckIn:        checkIn,
	})
	if err != nil {
		return domain.Guest{}, err
	}

	s.logAudit(ctx, "guest_check_in", "guest", guest.ID, fmt.Sprintf("name=%s,room=%s,rate=%d", guest.Name, guest.Room, guest.DailyRateCents))
	return *guest, nil
}

func (s *Service) GetGuest(ctx context.Context, id string) (domain.Guest, error) {
	guest, err := s.repo.GetGuestByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Guest{}, err
	}
	return *guest, nil
}

func (s *Service) ListGuests(ctx context.Context, status string, limit int) ([]domain.Guest, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && status != domain.GuestStatusActive && status != domain.GuestStatusCheckedOut {
		return nil, store.ErrInvalidArgument
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListGuests(ctx, status, limit)
}

func (s *Service) Checkout(ctx context.Context, guestID string, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.CheckoutResponse{}, fmt.Errorf("admin role required")
	}

	guestID = strings.TrimSpace(guestID)
	if guestID == "" {
		return domain.CheckoutResponse{}, store.ErrInvalidArgument
	}

	checkoutDate := time.Now().UTC()
	if req.CheckoutDate != "" {
		parsed, err := parseDate(req.CheckoutDate)
		if err != nil {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: checkout_date must be YYYY-MM-DD", store.ErrInvalidArgument)
		}
		checkoutDate = parsed
	}

	discount := req.Discount
	discount.Type = strings.ToLower(strings.TrimSpace(discount.Type))
	switch discount.Type {
	case "", domain.DiscountTypeFlat, domain.DiscountTypePercentage:
	default:
		return domain.CheckoutResponse{}, fmt.Errorf("%w: unknown discount type %q", store.ErrInvalidArgument, discount.Type)
	}
	if discount.Type == domain.DiscountTypeFlat && discount.AmountCents < 0 {
		return domain.CheckoutResponse{}, store.ErrInvalidArgument
	}

	guest, breakdown, err := s.repo.CheckoutGuest(ctx, guestID, checkoutDate, discount)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	s.logAudit(ctx, "guest_checkout", "guest", guest.ID, fmt.Sprintf("nights=%d,bill=%d,discount=%d", breakdown.Nights, breakdown.FinalBillCents, breakdown.DiscountCents))
	return domain.CheckoutResponse{
		GuestID:   guest.ID,
		CheckOut:  checkoutDate.Format("2006-01-02"),
		Breakdown: *breakdown,
	}, nil
}

func (s *Service) OpenShift(ctx context.Context, req domain.OpenShiftRequest) (domain.ShiftResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.ShiftResponse{}, fmt.Errorf("authenticated actor required")
	}
	if req.StartCashCents < 0 {
		return domain.ShiftResponse{}, fmt.Errorf("%w: start cash must be >= 0", store.ErrInvalidArgument)
	}

	shift, err := s.repo.OpenShift(ctx, domain.Shift{
		ID:             xid.New("shift"),
		OpenedBy:       actor.Username,
		StartCashCents: req.StartCashCents,
		OpenedAt:       time.Now().UTC(),
	})
	if err != nil {
		return domain.ShiftResponse{}, err
	}

	s.logAudit(ctx, "shift_open", "shift", shift.ID, fmt.Sprintf("start_cash=%d", shift.StartCashCents))
	return domain.ShiftResponse{Shift: *shift}, nil
}

func (s *Service) ActiveShift(ctx context.Context) (domain.ShiftResponse, error) {
	shift, err := s.repo.GetOpenShift(ctx)
	if err != nil {
		return domain.ShiftResponse{}, err
	}
	return domain.ShiftResponse{Shift: *shift}, nil
}

func (s *Service) CloseShift(ctx context.Context, req domain.CloseShiftRequest) (domain.ShiftResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.ShiftResponse{}, fmt.Errorf("authenticated actor required")
	}

	shiftID := strings.TrimSpace(req.ShiftID)
	if shiftID == "" {
		open, err := s.repo.GetOpenShift(ctx)
		if err != nil {
			return domain.ShiftResponse{}, err
		}
		shiftID = open.ID
	}
	if req.EndCashActualCents < 0 {
		return domain.ShiftResponse{}, fmt.Errorf("%w: counted cash must be >= 0", store.ErrInvalidArgument)
	}

	shift, err := s.repo.CloseShift(ctx, shiftID, actor.Username, req.EndCashActualCents, time.Now().UTC())
	if err != nil {
		return domain.ShiftResponse{}, err
	}

	s.logAudit(ctx, "shift_close", "shift", shift.ID, fmt.Sprintf("expected=%d,actual=%d,difference=%d", shift.EndCashExpectedCents, shift.EndCashActualCents, shift.DifferenceCents))
	if shift.DifferenceCents != 0 {
		log.Printf("[service] WARN: shift %s closed with cash difference %d cents", shift.ID, shift.DifferenceCents)
	}
	return domain.ShiftResponse{Shift: *shift}, nil
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Expense{}, fmt.Errorf("admin role required")
	}

	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(req.Category)
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	if req.Description == "" || req.AmountCents <= 0 {
		return domain.Expense{}, store.ErrInvalidArgument
	}
	if req.Method == "" {
		req.Method = domain.PaymentMethodCash
	}

	expense, err := s.repo.CreateExpense(ctx, domain.Expense{
		ID:          xid.New("exp"),
		Description: req.Description,
		Category:    req.Category,
		AmountCents: req.AmountCents,
		Method:      req.Method,
		RecordedBy:  actor.Username,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.Expense{}, err
	}

	s.logAudit(ctx, "expense_create", "expense", expense.ID, fmt.Sprintf("amount=%d,method=%s,category=%s", expense.AmountCents, expense.Method, expense.Category))
	return *expense, nil
}

func (s *Service) ListExpenses(ctx context.Context, date string, limit int) ([]domain.Expense, error) {
	from, to, err := dayWindow(date)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListExpenses(ctx, from, to, limit)
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}

	from, to, err := dayWindow(date)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(value), time.UTC)
}

// dayWindow returns the [midnight, next midnight) UTC window for the given
// YYYY-MM-DD date, defaulting to today when the date is empty.
func dayWindow(date string) (time.Time, time.Time, error) {
	day := time.Now().UTC()
	if strings.TrimSpace(date) != "" {
		parsed, err := parseDate(date)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidArgument)
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour), nil
}
