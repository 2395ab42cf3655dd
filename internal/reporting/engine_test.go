package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"lodgepos/backend/internal/domain"
	"lodgepos/backend/internal/store"
	"lodgepos/backend/internal/store/memory"
	"lodgepos/backend/internal/xid"
)

type mapCache struct {
	entries map[string]*domain.DashboardReport
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*domain.DashboardReport)}
}

func (c *mapCache) Get(_ context.Context, key string) (*domain.DashboardReport, bool, error) {
	report, ok := c.entries[key]
	return report, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value *domain.DashboardReport, _ time.Duration) error {
	c.entries[key] = value
	c.sets++
	return nil
}

func TestDashboardAggregatesDay(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, 0)
	ctx := context.Background()

	sale, err := repo.CreateSale(ctx, domain.Transaction{
		ID:        xid.New("sale"),
		Items:     []domain.LineItem{{Name: "Conference Room", Quantity: 1, UnitPriceCents: 20000}},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if _, _, err := repo.AddPayment(ctx, domain.Payment{
		ID:            xid.New("pay"),
		TransactionID: sale.ID,
		AmountCents:   20000,
		Method:        domain.PaymentMethodCash,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if _, err := repo.CreateExpense(ctx, domain.Expense{
		ID:          xid.New("exp"),
		Description: "supplies",
		AmountCents: 3000,
		Method:      domain.PaymentMethodCash,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		t.Fatalf("expense failed: %v", err)
	}

	report, err := engine.Dashboard(ctx, "")
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if report.PaymentsCents != 20000 || report.CashPaymentsCents != 20000 {
		t.Fatalf("expected 20000 in payments, got %d / %d", report.PaymentsCents, report.CashPaymentsCents)
	}
	if report.ExpensesCents != 3000 || report.NetCents != 17000 {
		t.Fatalf("expected expenses 3000 net 17000, got %d / %d", report.ExpensesCents, report.NetCents)
	}
	if report.SaleCount != 1 || report.ReturnCount != 0 {
		t.Fatalf("expected 1 sale 0 returns, got %d / %d", report.SaleCount, report.ReturnCount)
	}
}

func TestDashboardFlagsLowStock(t *testing.T) {
	repo := memory.NewSeeded()
	engine := NewEngine(repo, nil, 0)
	ctx := context.Background()

	// prd-water ships with threshold 12; drop it to 5.
	if _, err := repo.AdjustStock(ctx, "prd-water", 5, domain.StockModeSet, "shrinkage", "admin"); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}

	report, err := engine.Dashboard(ctx, "")
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	found := false
	for _, low := range report.LowStock {
		if low.ProductID == "prd-water" {
			found = true
			if low.StockQuantity != 5 {
				t.Fatalf("expected low-stock quantity 5, got %d", low.StockQuantity)
			}
		}
	}
	if !found {
		t.Fatalf("expected prd-water in low stock list, got %v", report.LowStock)
	}
}

func TestDashboardUsesCache(t *testing.T) {
	repo := memory.NewSeeded()
	cacheStore := newMapCache()
	engine := NewEngine(repo, cacheStore, time.Minute)
	ctx := context.Background()

	first, err := engine.Dashboard(ctx, "2025-08-20")
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if cacheStore.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cacheStore.sets)
	}

	// Mutate the repo; the cached report must still be served.
	if _, err := repo.AdjustStock(ctx, "prd-water", 1, domain.StockModeSet, "shrinkage", "admin"); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	second, err := engine.Dashboard(ctx, "2025-08-20")
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if cacheStore.sets != 1 {
		t.Fatalf("expected cache hit on second call, got %d writes", cacheStore.sets)
	}
	if second.GeneratedAt != first.GeneratedAt {
		t.Fatalf("expected identical cached report")
	}
}

func TestDashboardRejectsBadDate(t *testing.T) {
	engine := NewEngine(memory.NewSeeded(), nil, 0)

	_, err := engine.Dashboard(context.Background(), "20-08-2025")
	if !errors.Is(err, store.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
