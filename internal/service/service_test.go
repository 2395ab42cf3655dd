package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lodgepos/backend/internal/domain"
	"lodgepos/backend/internal/store"
	"lodgepos/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded())
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})
}

func createTrackedProduct(t *testing.T, svc *Service, name string, priceCents int64, stock int) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name:           name,
		Category:       "test",
		UnitPriceCents: priceCents,
		TrackStock:     true,
		InitialStock:   stock,
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestCreateSaleRejectsEmptyItems(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateSale(cashierCtx(), domain.CreateSaleRequest{})
	if !errors.Is(err, store.ErrEmptyTransaction) {
		t.Fatalf("expected ErrEmptyTransaction, got %v", err)
	}
}

func TestCreateSaleFreezesPriceAndDecrementsStock(t *testing.T) {
	svc := newTestService()
	product := createTrackedProduct(t, svc, "Bottled Tea", 400, 20)

	resp, err := svc.CreateSale(cashierCtx(), domain.CreateSaleRequest{
		Items: []domain.SaleLineInput{{ProductID: product.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if resp.SubtotalCents != 1200 || resp.TotalCents != 1200 {
		t.Fatalf("expected subtotal and total 1200, got %d / %d", resp.SubtotalCents, resp.TotalCents)
	}
	if resp.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Fatalf("expected new sale unpaid, got %s", resp.PaymentStatus)
	}

	after, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.StockQuantity != 17 {
		t.Fatalf("expected stock 17 after sale, got %d", after.StockQuantity)
	}

	// A later price change must not alter the recorded line.
	newPrice := int64(999)
	if _, err := svc.UpdateProduct(adminCtx(), product.ID, domain.ProductUpdateRequest{UnitPriceCents: &newPrice}); err != nil {
		t.Fatalf("update product: %v", err)
	}
	details, err := svc.GetTransaction(context.Background(), resp.TransactionID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if details.Items[0].UnitPriceCents != 400 {
		t.Fatalf("expected frozen line price 400, got %d", details.Items[0].UnitPriceCents)
	}
}

func TestCreateSaleShortfallAbortsWholeSale(t *testing.T) {
	svc := newTestService()
	plenty := createTrackedProduct(t, svc, "Plenty", 100, 50)
	scarce := createTrackedProduct(t, svc, "Scarce", 100, 2)

	_, err := svc.CreateSale(cashierCtx(), domain.CreateSaleRequest{
		Items: []domain.SaleLineInput{
			{ProductID: plenty.ID, Quantity: 5},
			{ProductID: scarce.ID, Quantity: 3},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// No partial decrement: the first line must be untouched.
	after, err := svc.GetProduct(context.Background(), plenty.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.StockQuantity != 50 {
		t.Fatalf("expected stock 50 after aborted sale, got %d", after.StockQuantity)
	}
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	svc := newTestService()
	product := createTrackedProduct(t, svc, "Last Boxes", 700, 10)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateSale(cashierCtx(), domain.CreateSaleRequest{
				Items: []domain.SaleLineInput{{ProductID: product.ID, Quantity: 6}},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, failed := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		failed++
		if !errors.Is(err, store.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock on losing sale, got %v", err)
		}
	}
	if succeeded != 1 || failed != 1 {
		t.Fatalf("expected exactly one winner, got %d ok / %d failed", succeeded, failed)
	}

	after, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.StockQuantity != 4 {
		t.Fatalf("expected stock 4 after one winning sale, got %d", after.StockQuantity)
	}
}

func TestPaymentLedgerDerivesStatus(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	sale, err := svc.CreateSale(ctx, domain.CreateSaleRequest{
		Items: []domain.SaleLineInput{{Name: "Banquet Package", Quantity: 1, UnitPriceCents: 99999}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	steps := []struct {
		amount     int64
		wantStatus string
		wantDue    int64
	}{
		{40000, domain.PaymentStatusPartial, 59999},
		{30000, domain.PaymentStatusPartial, 29999},
		{29999, domain.PaymentStatusPaid, 0},
	}
	for _, step := range steps {
		resp, err := svc.AddPayment(ctx, sale.TransactionID, domain.AddPaymentRequest{
			AmountCents: step.amount,
			Method:      "cash",
		})
		if err != nil {
			t.Fatalf("payment of %d failed: %v", step.amount, err)
		}
		if resp.PaymentStatus != step.wantStatus {
			t.Fatalf("after %d expected status %s, got %s", step.amount, step.wantStatus, resp.PaymentStatus)
		}
		if resp.AmountDueCents != step.wantDue {
			t.Fatalf("after %d expected due %d, got %d", step.amount, step.wantDue, resp.AmountDueCents)
		}
	}

	details, err := svc.GetTransaction(ctx, sale.TransactionID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if details.AmountPaidCents+details.AmountDueCents != details.TotalCents {
		t.Fatalf("paid %d + due %d != total %d", details.AmountPaidCents, details.AmountDueCents, details.TotalCents)
	}
	if len(details.Payments) != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", len(details.Payments))
	}
}

func TestPaymentValidation(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	sale, err := svc.CreateSale(ctx, domain.CreateSaleRequest{
		Items: []domain.SaleLineInput{{Name: "Ad Hoc", Quantity: 1, UnitPriceCents: 1000}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	if _, err := svc.AddPayment(ctx, sale.TransactionID, domain.AddPaymentRequest{AmountCents: 0, Method: "cash"}); !errors.Is(err, store.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for zero amount, got %v", err)
	}
	if _, err := svc.AddPayment(ctx, "sale-missing", domain.AddPaymentRequest{AmountCents: 500, Method: "cash"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown transaction, got %v", err)
	}

	// Overpayment is accepted and due clamps at zero.
	resp, err := svc.AddPayment(ctx, sale.TransactionID, domain.AddPaymentRequest{AmountCents: 1500, Method: "cash"})
	if err != nil {
		t.Fatalf("overpayment rejected: %v", err)
	}
	if resp.PaymentStatus != domain.PaymentStatusPaid || resp.AmountDueCents != 0 {
		t.Fatalf("expected paid with zero due, got %s / %d", resp.PaymentStatus, resp.AmountDueCents)
	}
	if resp.AmountPaidCents != 1500 {
		t.Fatalf("expected ledger to record 1500 as paid, got %d", resp.AmountPaidCents)
	}
}

func TestStockAdjustModes(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()
	product := createTrackedProduct(t, svc, "Soap Bars", 200, 100)

	steps := []struct {
		mode string
		qty  int
		want int
	}{
		{domain.StockModeSet, 50, 50},
		{domain.StockModeAdd, 25, 75},
		{domain.StockModeRemove, 10, 65},
		{domain.StockModeSet, 0, 0},
	}
	for _, step := range steps {
		resp, err := svc.AdjustStock(ctx, product.ID, domain.StockAdjustRequest{
			Quantity: step.qty,
			Mode:     step.mode,
			Reason:   "cycle count",
		})
		if err != nil {
			t.Fatalf("adjust %s %d failed: %v", step.mode, step.qty, err)
		}
		if resp.NewQuantity != step.want {
			t.Fatalf("adjust %s %d: expected %d, got %d", step.mode, step.qty, step.want, resp.NewQuantity)
		}
	}

	_, err := svc.AdjustStock(ctx, product.ID, domain.StockAdjustRequest{
		Quantity: 1,
		Mode:     domain.StockModeRemove,
		Reason:   "cycle count",
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected remove below zero to fail, got %v", err)
	}
	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.StockQuantity != 0 {
		t.Fatalf("failed remove must leave quantity unchanged, got %d", after.StockQuantity)
	}
}

func TestStockLedgerFoldMatchesQuantity(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()
	product := createTrackedProduct(t, svc, "Juice Boxes", 350, 30)

	if _, err := svc.CreateSale(cashierCtx(), domain.CreateSaleRequest{
		Items: []domain.SaleLineInput{{ProductID: product.ID, Quantity: 4}},
	}); err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if _, err := svc.AdjustStock(ctx, product.ID, domain.StockAdjustRequest{
		Quantity: 6, Mode: domain.StockModeAdd, Reason: "restock",
	}); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}

	ledger, err := svc.ListStockLedger(ctx, product.ID, 100)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	fold := 0
	for _, adj := range ledger {
		fold += adj.Delta
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if fold != after.StockQuantity {
		t.Fatalf("ledger fold %d != materialized quantity %d", fold, after.StockQuantity)
	}
}

func TestUntrackedProductAdjustmentIsLoggedOnly(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	resp, err := svc.AdjustStock(ctx, "svc-laundry", domain.StockAdjustRequest{
		Quantity: 5, Mode: domain.StockModeAdd, Reason: "audit",
	})
	if err != nil {
		t.Fatalf("adjust untracked failed: %v", err)
	}
	if resp.Tracked || resp.NewQuantity != 0 {
		t.Fatalf("expected untracked zero quantity, got tracked=%t qty=%d", resp.Tracked, resp.NewQuantity)
	}

	ledger, err := svc.ListStockLedger(ctx, "svc-laundry", 10)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(ledger) != 1 {
		t.Fatalf("expected one ledger row for untracked product, got %d", len(ledger))
	}
}

func TestReturnRestoresStockWhenRequested(t *testing.T) {
	svc := newTestService()
	product := createTrackedProduct(t, svc, "Wine Bottle", 9000, 12)

	sale, err := svc.CreateSale(cashierCtx(), domain.CreateSaleRequest{
		Items: []domain.SaleLineInput{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	ret, err := svc.CreateReturn(adminCtx(), domain.CreateReturnRequest{
		OriginalSaleID: sale.TransactionID,
		Items:          []domain.SaleLineInput{{ProductID: product.ID, Quantity: 2}},
		Reason:         "corked",
		RestoreStock:   true,
	})
	if err != nil {
		t.Fatalf("return failed: %v", err)
	}
	if ret.TotalCents != 18000 {
		t.Fatalf("expected return total 18000, got %d", ret.TotalCents)
	}

	after, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.StockQuantity != 12 {
		t.Fatalf("expected stock restored to 12, got %d", after.StockQuantity)
	}
}

func TestReturnWithoutRestoreLeavesStockAlone(t *testing.T) {
	svc := newTestService()
	product := createTrackedProduct(t, svc, "Glassware", 2500, 8)

	sale, err := svc.CreateSale(cashierCtx(), domain.CreateSaleRequest{
		Items: []domain.SaleLineInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	if _, err := svc.CreateReturn(adminCtx(), domain.CreateReturnRequest{
		OriginalSaleID: sale.TransactionID,
		Items:          []domain.SaleLineInput{{ProductID: product.ID, Quantity: 1}},
		Reason:         "broken in transit",
		RestoreStock:   false,
	}); err != nil {
		t.Fatalf("return failed: %v", err)
	}

	after, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.StockQuantity != 7 {
		t.Fatalf("expected stock to stay at 7, got %d", after.StockQuantity)
	}
}

func TestReturnRequiresExistingOriginalSale(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateReturn(adminCtx(), domain.CreateReturnRequest{
		OriginalSaleID: "sale-does-not-exist",
		Items:          []domain.SaleLineInput{{Name: "Anything", Quantity: 1, UnitPriceCents: 100}},
		Reason:         "test",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing original sale, got %v", err)
	}
}

func TestCheckoutBillsNightsOrdersAndDiscount(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	guest, err := svc.CheckIn(ctx, domain.CheckInRequest{
		Name:           "A. Garcia",
		Room:           "204",
		DailyRateCents: 15000,
		CheckInDate:    "2025-08-16",
	})
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}

	resp, err := svc.Checkout(ctx, guest.ID, domain.CheckoutRequest{
		CheckoutDate: "2025-08-20",
		Discount: domain.CheckoutDiscount{
			Type:        domain.DiscountTypeFlat,
			AmountCents: 5000,
			Description: "loyalty",
		},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Breakdown.Nights != 4 {
		t.Fatalf("expected 4 nights, got %d", resp.Breakdown.Nights)
	}
	if resp.Breakdown.RoomChargeCents != 60000 {
		t.Fatalf("expected room charge 60000, got %d", resp.Breakdown.RoomChargeCents)
	}
	if resp.Breakdown.FinalBillCents != 55000 {
		t.Fatalf("expected final bill 55000, got %d", resp.Breakdown.FinalBillCents)
	}
}

func TestCheckoutIncludesOutstandingGuestOrders(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	guest, err := svc.CheckIn(ctx, domain.CheckInRequest{
		Name:           "B. Osei",
		DailyRateCents: 10000,
		CheckInDate:    "2025-08-18",
	})
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}

	sale, err := svc.CreateSale(cashierCtx(), domain.CreateSaleRequest{
		GuestID: guest.ID,
		Items:   []domain.SaleLineInput{{Name: "Room Service Dinner", Quantity: 1, UnitPriceCents: 8000}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if _, err := svc.AddPayment(cashierCtx(), sale.TransactionID, domain.AddPaymentRequest{
		AmountCents: 3000, Method: "cash",
	}); err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	resp, err := svc.Checkout(ctx, guest.ID, domain.CheckoutRequest{CheckoutDate: "2025-08-19"})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Breakdown.OrdersDueCents != 5000 {
		t.Fatalf("expected 5000 outstanding, got %d", resp.Breakdown.OrdersDueCents)
	}
	if resp.Breakdown.FinalBillCents != 15000 {
		t.Fatalf("expected bill 15000 (1 night + 5000 due), got %d", resp.Breakdown.FinalBillCents)
	}

	// Second checkout must fail.
	if _, err := svc.Checkout(ctx, guest.ID, domain.CheckoutRequest{CheckoutDate: "2025-08-19"}); !errors.Is(err, store.ErrAlreadyCheckedOut) {
		t.Fatalf("expected ErrAlreadyCheckedOut, got %v", err)
	}
}

func TestCheckoutPercentageDiscountClampsAtZero(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	guest, err := svc.CheckIn(ctx, domain.CheckInRequest{
		Name:           "C. Laurent",
		DailyRateCents: 20000,
		CheckInDate:    "2025-08-19",
	})
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}

	resp, err := svc.Checkout(ctx, guest.ID, domain.CheckoutRequest{
		CheckoutDate: "2025-08-20",
		Discount: domain.CheckoutDiscount{
			Type:    domain.DiscountTypePercentage,
			Percent: 150,
		},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Breakdown.FinalBillCents != 0 {
		t.Fatalf("expected bill clamped to 0, got %d", resp.Breakdown.FinalBillCents)
	}
}

func TestShiftReconciliation(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	opened, err := svc.OpenShift(ctx, domain.OpenShiftRequest{StartCashCents: 10000})
	if err != nil {
		t.Fatalf("open shift failed: %v", err)
	}

	sale, err := svc.CreateSale(cashierCtx(), domain.CreateSaleRequest{
		Items: []domain.SaleLineInput{{Name: "Day Pass", Quantity: 1, UnitPriceCents: 5000}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if _, err := svc.AddPayment(cashierCtx(), sale.TransactionID, domain.AddPaymentRequest{
		AmountCents: 5000, Method: "cash",
	}); err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if _, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{
		Description: "window cleaner",
		AmountCents: 150,
		Method:      "cash",
	}); err != nil {
		t.Fatalf("expense failed: %v", err)
	}

	closed, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:            opened.Shift.ID,
		EndCashActualCents: 14850,
	})
	if err != nil {
		t.Fatalf("close shift failed: %v", err)
	}
	if closed.Shift.EndCashExpectedCents != 14850 {
		t.Fatalf("expected 14850 expected cash, got %d", closed.Shift.EndCashExpectedCents)
	}
	if closed.Shift.DifferenceCents != 0 {
		t.Fatalf("expected zero difference, got %d", closed.Shift.DifferenceCents)
	}
	if closed.Shift.Status != domain.ShiftStatusClosed {
		t.Fatalf("expected closed status, got %s", closed.Shift.Status)
	}
}

func TestShiftVarianceIsReportedNotCorrected(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	opened, err := svc.OpenShift(ctx, domain.OpenShiftRequest{StartCashCents: 5000})
	if err != nil {
		t.Fatalf("open shift failed: %v", err)
	}

	closed, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		ShiftID:            opened.Shift.ID,
		EndCashActualCents: 4000,
	})
	if err != nil {
		t.Fatalf("close shift failed: %v", err)
	}
	if closed.Shift.DifferenceCents != -1000 {
		t.Fatalf("expected -1000 difference, got %d", closed.Shift.DifferenceCents)
	}
	if closed.Shift.EndCashActualCents != 4000 {
		t.Fatalf("actual cash must be stored as counted, got %d", closed.Shift.EndCashActualCents)
	}
}

func TestOnlyOneShiftOpenAtATime(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	opened, err := svc.OpenShift(ctx, domain.OpenShiftRequest{StartCashCents: 1000})
	if err != nil {
		t.Fatalf("open shift failed: %v", err)
	}

	_, err = svc.OpenShift(ctx, domain.OpenShiftRequest{StartCashCents: 2000})
	if !errors.Is(err, store.ErrShiftAlreadyOpen) {
		t.Fatalf("expected ErrShiftAlreadyOpen, got %v", err)
	}

	active, err := svc.ActiveShift(ctx)
	if err != nil {
		t.Fatalf("active shift: %v", err)
	}
	if active.Shift.ID != opened.Shift.ID {
		t.Fatalf("active shift %s != opened shift %s", active.Shift.ID, opened.Shift.ID)
	}

	if _, err := svc.CloseShift(ctx, domain.CloseShiftRequest{ShiftID: opened.Shift.ID}); err != nil {
		t.Fatalf("close shift failed: %v", err)
	}
	if _, err := svc.OpenShift(ctx, domain.OpenShiftRequest{StartCashCents: 2000}); err != nil {
		t.Fatalf("expected reopen after close to succeed, got %v", err)
	}
}

func TestAdminOnlyOperationsRejectCashier(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	if _, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Nope", Category: "test", UnitPriceCents: 100,
	}); err == nil {
		t.Fatalf("expected cashier product create to fail")
	}
	if _, err := svc.CreateReturn(ctx, domain.CreateReturnRequest{
		Items:  []domain.SaleLineInput{{Name: "X", Quantity: 1, UnitPriceCents: 100}},
		Reason: "test",
	}); err == nil {
		t.Fatalf("expected cashier return to fail")
	}
	if _, err := svc.ListAuditLogs(ctx, "", 10); err == nil {
		t.Fatalf("expected cashier audit listing to fail")
	}
}

func TestAuditTrailRecordsMutations(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	product := createTrackedProduct(t, svc, "Tracked Thing", 500, 5)
	if _, err := svc.CreateSale(ctx, domain.CreateSaleRequest{
		Items: []domain.SaleLineInput{{ProductID: product.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(ctx, "", 50)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	actions := map[string]bool{}
	for _, entry := range logs {
		actions[entry.Action] = true
		if entry.ActorUsername == "" {
			t.Fatalf("audit row %s missing actor", entry.ID)
		}
	}
	if !actions["product_create"] || !actions["sale_create"] {
		t.Fatalf("expected product_create and sale_create audit rows, got %v", actions)
	}
}
