package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"lodgepos/backend/internal/domain"
	"lodgepos/backend/internal/store"
	"lodgepos/backend/internal/xid"
)

func TestCreateProductRejectsDuplicateSKU(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	first := domain.Product{
		ID:             xid.New("prd"),
		SKU:            "TOWEL-01",
		Name:           "Bath Towel",
		Category:       "amenities",
		UnitPriceCents: 1500,
	}
	if _, err := repo.CreateProduct(ctx, first); err != nil {
		t.Fatalf("create product: %v", err)
	}

	dup := domain.Product{
		ID:             xid.New("prd"),
		SKU:            "TOWEL-01",
		Name:           "Hand Towel",
		Category:       "amenities",
		UnitPriceCents: 800,
	}
	if _, err := repo.CreateProduct(ctx, dup); !errors.Is(err, store.ErrInvalidArgument) {
		t.Fatalf("expected duplicate sku rejection, got %v", err)
	}
}

func TestReturnLinesFallBackToCatalogPrice(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	sale, err := repo.CreateSale(ctx, domain.Transaction{
		ID:        xid.New("sale"),
		Items:     []domain.LineItem{{ProductID: "prd-water", Quantity: 2}},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	// Return lines carry no name or price; both come from the catalog.
	ret, err := repo.CreateReturn(ctx, domain.Transaction{
		ID:             xid.New("ret"),
		OriginalSaleID: sale.ID,
		Reason:         "unopened",
		Items:          []domain.LineItem{{ProductID: "prd-water", Quantity: 2}},
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("return failed: %v", err)
	}
	if ret.TotalCents != 500 {
		t.Fatalf("expected return priced from catalog at 500, got %d", ret.TotalCents)
	}
	if ret.Items[0].Name == "" {
		t.Fatalf("expected catalog name on return line")
	}
	if ret.Kind != domain.TxKindReturn {
		t.Fatalf("expected return kind, got %s", ret.Kind)
	}
}

func TestReturnAgainstReturnRejected(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	sale, err := repo.CreateSale(ctx, domain.Transaction{
		ID:        xid.New("sale"),
		Items:     []domain.LineItem{{Name: "Ad Hoc", Quantity: 1, UnitPriceCents: 1000}},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	ret, err := repo.CreateReturn(ctx, domain.Transaction{
		ID:             xid.New("ret"),
		OriginalSaleID: sale.ID,
		Reason:         "changed mind",
		Items:          []domain.LineItem{{Name: "Ad Hoc", Quantity: 1, UnitPriceCents: 1000}},
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("return failed: %v", err)
	}

	_, err = repo.CreateReturn(ctx, domain.Transaction{
		ID:             xid.New("ret"),
		OriginalSaleID: ret.ID,
		Reason:         "nested",
		Items:          []domain.LineItem{{Name: "Ad Hoc", Quantity: 1, UnitPriceCents: 1000}},
		CreatedAt:      time.Now().UTC(),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected return against a return to be rejected, got %v", err)
	}
}

func TestListGuestsFiltersByStatus(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	staying, err := repo.CheckInGuest(ctx, domain.Guest{Name: "Staying", DailyRateCents: 10000, CheckIn: time.Now().UTC()})
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	leaving, err := repo.CheckInGuest(ctx, domain.Guest{Name: "Leaving", DailyRateCents: 10000, CheckIn: time.Now().UTC()})
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if _, _, err := repo.CheckoutGuest(ctx, leaving.ID, time.Now().UTC(), domain.CheckoutDiscount{}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	active, err := repo.ListGuests(ctx, domain.GuestStatusActive, 100)
	if err != nil {
		t.Fatalf("list guests: %v", err)
	}
	if len(active) != 1 || active[0].ID != staying.ID {
		t.Fatalf("expected only the staying guest, got %v", active)
	}

	out, err := repo.ListGuests(ctx, domain.GuestStatusCheckedOut, 100)
	if err != nil {
		t.Fatalf("list guests: %v", err)
	}
	if len(out) != 1 || out[0].ID != leaving.ID {
		t.Fatalf("expected only the checked-out guest, got %v", out)
	}
}

func TestDashboardStatsWindowExcludesOutside(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	sale, err := repo.CreateSale(ctx, domain.Transaction{
		ID:        xid.New("sale"),
		Items:     []domain.LineItem{{Name: "Ad Hoc", Quantity: 1, UnitPriceCents: 4000}},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if _, _, err := repo.AddPayment(ctx, domain.Payment{
		ID:            xid.New("pay"),
		TransactionID: sale.ID,
		AmountCents:   4000,
		Method:        domain.PaymentMethodCash,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	now := time.Now().UTC()
	today, err := repo.GetDashboardStats(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if today.PaymentsCents != 4000 || today.SaleCount != 1 {
		t.Fatalf("expected payment and sale in window, got %+v", today)
	}

	yesterday, err := repo.GetDashboardStats(ctx, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if yesterday.PaymentsCents != 0 || yesterday.SaleCount != 0 {
		t.Fatalf("expected empty window, got %+v", yesterday)
	}
}

func TestShiftCashWindowCountsOnlyCash(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	shift, err := repo.OpenShift(ctx, domain.Shift{
		ID:             xid.New("shift"),
		OpenedBy:       "cashier",
		StartCashCents: 10000,
		OpenedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("open shift: %v", err)
	}

	sale, err := repo.CreateSale(ctx, domain.Transaction{
		ID:        xid.New("sale"),
		Items:     []domain.LineItem{{Name: "Ad Hoc", Quantity: 1, UnitPriceCents: 9000}},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if _, _, err := repo.AddPayment(ctx, domain.Payment{
		ID: xid.New("pay"), TransactionID: sale.ID, AmountCents: 5000,
		Method: domain.PaymentMethodCash, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("cash payment failed: %v", err)
	}
	if _, _, err := repo.AddPayment(ctx, domain.Payment{
		ID: xid.New("pay"), TransactionID: sale.ID, AmountCents: 4000,
		Method: "card", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("card payment failed: %v", err)
	}

	closed, err := repo.CloseShift(ctx, shift.ID, "cashier", 15000, time.Now().UTC())
	if err != nil {
		t.Fatalf("close shift: %v", err)
	}
	// Card payments never touch the drawer.
	if closed.EndCashExpectedCents != 15000 {
		t.Fatalf("expected drawer 15000, got %d", closed.EndCashExpectedCents)
	}
	if closed.DifferenceCents != 0 {
		t.Fatalf("expected zero difference, got %d", closed.DifferenceCents)
	}
}
