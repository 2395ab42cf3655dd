package reporting

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"lodgepos/backend/internal/cache"
	"lodgepos/backend/internal/domain"
	"lodgepos/backend/internal/store"
)

// Engine builds the daily dashboard report from the repository aggregates and
// the low-stock scan, caching the result for a short TTL so a wall of
// dashboard refreshes does not hammer the database.
type Engine struct {
	repo     store.Repository
	cache    cache.ReportCache
	cacheTTL time.Duration
}

func NewEngine(repo store.Repository, cacheStore cache.ReportCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Engine{
		repo:     repo,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

// Dashboard returns the report for the given YYYY-MM-DD date; an empty date
// means today (UTC).
func (e *Engine) Dashboard(ctx context.Context, date string) (domain.DashboardReport, error) {
	day := time.Now().UTC()
	if strings.TrimSpace(date) != "" {
		parsed, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), time.UTC)
		if err != nil {
			return domain.DashboardReport{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidArgument)
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	cacheKey := "report:dashboard:" + from.Format("2006-01-02")
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		log.Printf("[reporting] WARN: cache read failed key=%s: %v", cacheKey, err)
	}

	stats, err := e.repo.GetDashboardStats(ctx, from, to)
	if err != nil {
		return domain.DashboardReport{}, err
	}

	lowStock, err := e.lowStock(ctx)
	if err != nil {
		return domain.DashboardReport{}, err
	}

	report := domain.DashboardReport{
		From:              from.Format(time.RFC3339),
		To:                to.Format(time.RFC3339),
		PaymentsCents:     stats.PaymentsCents,
		CashPaymentsCents: stats.CashPaymentsCents,
		ExpensesCents:     stats.ExpensesCents,
		NetCents:          stats.PaymentsCents - stats.ExpensesCents,
		SaleCount:         stats.SaleCount,
		ReturnCount:       stats.ReturnCount,
		LowStock:          lowStock,
		GeneratedAt:       time.Now().UTC().Format(time.RFC3339),
	}

	if err := e.cache.Set(ctx, cacheKey, &report, e.cacheTTL); err != nil {
		log.Printf("[reporting] WARN: cache write failed key=%s: %v", cacheKey, err)
	}
	return report, nil
}

// lowStock lists tracked products at or below their threshold, emptiest
// first.
func (e *Engine) lowStock(ctx context.Context) ([]domain.LowStockProduct, error) {
	products, err := e.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	low := make([]domain.LowStockProduct, 0, 8)
	for _, p := range products {
		if !p.TrackStock || p.LowStockThreshold < 1 {
			continue
		}
		if p.StockQuantity > p.LowStockThreshold {
			continue
		}
		low = append(low, domain.LowStockProduct{
			ProductID:         p.ID,
			Name:              p.Name,
			StockQuantity:     p.StockQuantity,
			LowStockThreshold: p.LowStockThreshold,
		})
	}

	sort.Slice(low, func(i, j int) bool {
		if low[i].StockQuantity == low[j].StockQuantity {
			return low[i].Name < low[j].Name
		}
		return low[i].StockQuantity < low[j].StockQuantity
	})
	return low, nil
}
