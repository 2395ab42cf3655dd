package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"lodgepos/backend/internal/domain"
	"lodgepos/backend/internal/store"
	"lodgepos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(sku,''), name, category, unit_price_cents, cost_price_cents,
			track_stock, stock_quantity, low_stock_threshold, active, created_at, updated_at
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.UnitPriceCents, &p.CostPriceCents,
			&p.TrackStock, &p.StockQuantity, &p.LowStockThreshold, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.UpdatedAt = p.UpdatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.UnitPriceCents < 1 || product.StockQuantity < 0 {
		return nil, store.ErrInvalidArgument
	}
	if !product.TrackStock {
		product.StockQuantity = 0
	}

	now := time.Now().UTC()
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (
			id, sku, name, category, unit_price_cents, cost_price_cents,
			track_stock, stock_quantity, low_stock_threshold, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, product.ID, nullIfEmpty(product.SKU), product.Name, product.Category, product.UnitPriceCents,
		product.CostPriceCents, product.TrackStock, product.StockQuantity, product.LowStockThreshold,
		product.Active, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: duplicate product id or sku", store.ErrInvalidArgument)
		}
		return nil, err
	}

	if product.TrackStock && product.StockQuantity > 0 {
		if err := insertAdjustment(ctx, tx, domain.StockAdjustment{
			ID:           xid.New("adj"),
			ProductID:    product.ID,
			Mode:         domain.StockModeSet,
			Quantity:     product.StockQuantity,
			Delta:        product.StockQuantity,
			ResultingQty: product.StockQuantity,
			Reason:       "initial stock",
			CreatedAt:    now,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(sku,''), name, category, unit_price_cents, cost_price_cents,
			track_stock, stock_quantity, low_stock_threshold, active, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.UnitPriceCents, &p.CostPriceCents,
		&p.TrackStock, &p.StockQuantity, &p.LowStockThreshold, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.UnitPriceCents < 1 {
		return nil, store.ErrInvalidArgument
	}

	// stock_quantity is deliberately not in the SET list; only the
	// adjustment ledger moves it.
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, unit_price_cents = $4, cost_price_cents = $5,
			low_stock_threshold = $6, active = $7, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.UnitPriceCents, product.CostPriceCents,
		product.LowStockThreshold, product.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) AdjustStock(ctx context.Context, productID string, quantity int, mode string, reason string, actor string) (*domain.StockAdjustResponse, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var tracked bool
	var current int
	var name string
	err = tx.QueryRowContext(ctx, `
		SELECT track_stock, stock_quantity, name
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, productID).Scan(&tracked, &current, &name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	next, delta, err := nextQuantity(tracked, current, name, quantity, mode)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := insertAdjustment(ctx, tx, domain.StockAdjustment{
		ID:           xid.New("adj"),
		ProductID:    productID,
		Mode:         mode,
		Quantity:     quantity,
		Delta:        delta,
		ResultingQty: next,
		Reason:       reason,
		Actor:        actor,
		CreatedAt:    now,
	}); err != nil {
		return nil, err
	}

	if tracked {
		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = $2, updated_at = now()
			WHERE id = $1
		`, productID, next)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &domain.StockAdjustResponse{ProductID: productID, NewQuantity: next, Tracked: tracked}, nil
}

func nextQuantity(tracked bool, current int, name string, quantity int, mode string) (next int, delta int, err error) {
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

	if !tracked {
		return 0, 0, nil
	}

	switch mode {
	case domain.StockModeSet:
		return quantity, quantity - current, nil
	case domain.StockModeAdd:
		return current + quantity, quantity, nil
	default:
		if current-quantity < 0 {
			return 0, 0, fmt.Errorf("%w: product %s has %d, cannot remove %d", store.ErrInsufficientStock, name, current, quantity)
		}
		return current - quantity, -quantity, nil
	}
}

func insertAdjustment(ctx context.Context, tx *sql.Tx, adj domain.StockAdjustment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_adjustments (
			id, product_id, mode, quantity, delta, resulting_qty, reason, actor, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, adj.ID, adj.ProductID, adj.Mode, adj.Quantity, adj.Delta, adj.ResultingQty, adj.Reason, adj.Actor, adj.CreatedAt)
	return err
}

func (s *Store) ListStockAdjustments(ctx context.Context, productID string, limit int) ([]domain.StockAdjustment, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, mode, quantity, delta, resulting_qty, reason, actor, created_at
		FROM stock_adjustments
		WHERE ($1 = '' OR product_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	adjustments := make([]domain.StockAdjustment, 0, limit)
	for rows.Next() {
		var adj domain.StockAdjustment
		if err := rows.Scan(&adj.ID, &adj.ProductID, &adj.Mode, &adj.Quantity, &adj.Delta, &adj.ResultingQty, &adj.Reason, &adj.Actor, &adj.CreatedAt); err != nil {
			return nil, err
		}
		adj.CreatedAt = adj.CreatedAt.UTC()
		adjustments = append(adjustments, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return adjustments, nil
}

func (s *Store) CreateSale(ctx context.Context, saleTx domain.Transaction) (*domain.Transaction, error) {
	if len(saleTx.Items) == 0 {
		return nil, store.ErrEmptyTransaction
	}
	if saleTx.ID == "" {
		saleTx.ID = xid.New("sale")
	}
	if saleTx.CreatedAt.IsZero() {
		saleTx.CreatedAt = time.Now().UTC()
	}
	saleTx.Kind = domain.TxKindSale
	saleTx.PaymentStatus = domain.PaymentStatusUnpaid

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	// Lock every referenced product row up front so two concurrent sales on
	// the same product serialize here and the second re-reads the
	// decremented quantity.
	locked, err := lockProducts(ctx, pgTx, saleTx.Items)
	if err != nil {
		return nil, err
	}

	frozen := make([]domain.LineItem, 0, len(saleTx.Items))
	needed := make(map[string]int, len(saleTx.Items))
	for _, item := range saleTx.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: line quantity must be > 0", store.ErrInvalidArgument)
		}

		if item.ProductID == "" {
			if item.Name == "" || item.UnitPriceCents < 0 {
				return nil, fmt.Errorf("%w: ad hoc line needs a name and price", store.ErrInvalidArgument)
			}
			item.LineTotalCents = int64(item.Quantity) * item.UnitPriceCents
			frozen = append(frozen, item)
			continue
		}

		product, exists := locked[item.ProductID]
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
	saleTx.Items = frozen

	subtotal, total, ok := domain.TransactionTotal(saleTx.Items, saleTx.DiscountCents, saleTx.TaxCents)
	if !ok {
		return nil, fmt.Errorf("%w: totals must not be negative", store.ErrInvalidArgument)
	}
	saleTx.SubtotalCents = subtotal
	saleTx.TotalCents = total

	if err := insertTransaction(ctx, pgTx, saleTx); err != nil {
		return nil, err
	}
	if err := applyStockForLines(ctx, pgTx, locked, saleTx.Items, domain.StockModeRemove, "sale #"+saleTx.ID, saleTx.CreatedBy, saleTx.CreatedAt); err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &saleTx, nil
}

func (s *Store) CreateReturn(ctx context.Context, retTx domain.Transaction) (*domain.Transaction, error) {
	if len(retTx.Items) == 0 {
		return nil, store.ErrEmptyTransaction
	}
	if retTx.ID == "" {
		retTx.ID = xid.New("ret")
	}
	if retTx.CreatedAt.IsZero() {
		retTx.CreatedAt = time.Now().UTC()
	}
	retTx.Kind = domain.TxKindReturn
	retTx.PaymentStatus = domain.PaymentStatusUnpaid

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if retTx.OriginalSaleID != "" {
		var kind string
		err = pgTx.QueryRowContext(ctx, `
			SELECT kind FROM transactions WHERE id = $1
		`, retTx.OriginalSaleID).Scan(&kind)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: original sale %s", store.ErrNotFound, retTx.OriginalSaleID)
			}
			return nil, err
		}
		if kind != domain.TxKindSale {
			return nil, fmt.Errorf("%w: original sale %s", store.ErrNotFound, retTx.OriginalSaleID)
		}
	}

	locked, err := lockProducts(ctx, pgTx, retTx.Items)
	if err != nil {
		return nil, err
	}

	frozen := make([]domain.LineItem, 0, len(retTx.Items))
	for _, item := range retTx.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: line quantity must be > 0", store.ErrInvalidArgument)
		}
		if item.ProductID != "" {
			product, exists := locked[item.ProductID]
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
	retTx.Items = frozen

	subtotal, total, ok := domain.TransactionTotal(retTx.Items, retTx.DiscountCents, retTx.TaxCents)
	if !ok {
		return nil, fmt.Errorf("%w: totals must not be negative", store.ErrInvalidArgument)
	}
	retTx.SubtotalCents = subtotal
	retTx.TotalCents = total

	if err := insertTransaction(ctx, pgTx, retTx); err != nil {
		return nil, err
	}
	if retTx.RestoreStock {
		if err := applyStockForLines(ctx, pgTx, locked, retTx.Items, domain.StockModeAdd, "return #"+retTx.ID, retTx.CreatedBy, retTx.CreatedAt); err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return &retTx, nil
}

// lockProducts selects FOR UPDATE every product referenced by the lines and
// returns them keyed by id. Ad hoc lines (empty product id) are skipped.
func lockProducts(ctx context.Context, tx *sql.Tx, items []domain.LineItem) (map[string]domain.Product, error) {
	ids := uniqueProductIDs(items)
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, unit_price_cents, track_stock, stock_quantity, active
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.UnitPriceCents, &p.TrackStock, &p.StockQuantity, &p.Active); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func applyStockForLines(ctx context.Context, tx *sql.Tx, locked map[string]domain.Product, items []domain.LineItem, mode string, reason string, actor string, at time.Time) error {
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		product, exists := locked[item.ProductID]
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
			locked[item.ProductID] = product

			_, err := tx.ExecContext(ctx, `
				UPDATE products
				SET stock_quantity = $2, updated_at = now()
				WHERE id = $1
			`, item.ProductID, next)
			if err != nil {
				return err
			}
		}

		if err := insertAdjustment(ctx, tx, domain.StockAdjustment{
			ID:           xid.New("adj"),
			ProductID:    item.ProductID,
			Mode:         mode,
			Quantity:     item.Quantity,
			Delta:        delta,
			ResultingQty: next,
			Reason:       reason,
			Actor:        actor,
			CreatedAt:    at,
		}); err != nil {
			return err
		}
	}
	return nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t domain.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, kind, guest_id, reference, original_sale_id, restore_stock, reason,
			subtotal_cents, discount_cents, tax_cents, total_cents,
			payment_status, created_by, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, t.ID, t.Kind, nullIfEmpty(t.GuestID), nullIfEmpty(t.Reference), nullIfEmpty(t.OriginalSaleID),
		t.RestoreStock, t.Reason, t.SubtotalCents, t.DiscountCents, t.TaxCents, t.TotalCents,
		t.PaymentStatus, t.CreatedBy, t.CreatedAt)
	if err != nil {
		return err
	}

	for _, item := range t.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, product_id, name, qty, unit_price_cents, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, t.ID, nullIfEmpty(item.ProductID), item.Name, item.Quantity, item.UnitPriceCents, item.LineTotalCents)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetTransactionDetails(ctx context.Context, id string) (*domain.TransactionDetails, error) {
	var t domain.Transaction
	var guestID, reference, originalSaleID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, guest_id, reference, original_sale_id, restore_stock, reason,
			subtotal_cents, discount_cents, tax_cents, total_cents,
			payment_status, created_by, created_at
		FROM transactions
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Kind, &guestID, &reference, &originalSaleID, &t.RestoreStock, &t.Reason,
		&t.SubtotalCents, &t.DiscountCents, &t.TaxCents, &t.TotalCents,
		&t.PaymentStatus, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if guestID.Valid {
		t.GuestID = guestID.String
	}
	if reference.Valid {
		t.Reference = reference.String
	}
	if originalSaleID.Valid {
		t.OriginalSaleID = originalSaleID.String
	}
	t.CreatedAt = t.CreatedAt.UTC()

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(product_id,''), name, qty, unit_price_cents, line_total_cents
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	items := make([]domain.LineItem, 0, 8)
	for itemRows.Next() {
		var item domain.LineItem
		if err := itemRows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPriceCents, &item.LineTotalCents); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		items = append(items, item)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()
	t.Items = items

	payments, err := s.listPayments(ctx, id)
	if err != nil {
		return nil, err
	}

	totals := domain.FoldPayments(t.TotalCents, payments)
	details := domain.TransactionDetails{
		Transaction:     t,
		AmountPaidCents: totals.AmountPaidCents,
		AmountDueCents:  totals.AmountDueCents,
		Payments:        payments,
	}
	details.PaymentStatus = totals.PaymentStatus
	return &details, nil
}

func (s *Store) listPayments(ctx context.Context, transactionID string) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, amount_cents, method, received_by, created_at
		FROM payments
		WHERE transaction_id = $1
		ORDER BY created_at ASC, id ASC
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0, 4)
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.AmountCents, &p.Method, &p.ReceivedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) AddPayment(ctx context.Context, payment domain.Payment) (*domain.Payment, *domain.PaymentTotals, error) {
	if payment.AmountCents <= 0 {
		return nil, nil, fmt.Errorf("%w: payment amount must be > 0", store.ErrInvalidArgument)
	}
	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var totalCents int64
	err = pgTx.QueryRowContext(ctx, `
		SELECT total_cents
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, payment.TransactionID).Scan(&totalCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO payments (id, transaction_id, amount_cents, method, received_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, payment.ID, payment.TransactionID, payment.AmountCents, payment.Method, payment.ReceivedBy, payment.CreatedAt)
	if err != nil {
		return nil, nil, err
	}

	var paid int64
	err = pgTx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents),0)::bigint
		FROM payments
		WHERE transaction_id = $1
	`, payment.TransactionID).Scan(&paid)
	if err != nil {
		return nil, nil, err
	}

	status := domain.PaymentStatusFor(totalCents, paid)
	_, err = pgTx.ExecContext(ctx, `
		UPDATE transactions
		SET payment_status = $2
		WHERE id = $1
	`, payment.TransactionID, status)
	if err != nil {
		return nil, nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, nil, err
	}

	totals := domain.PaymentTotals{
		AmountPaidCents: paid,
		AmountDueCents:  domain.AmountDue(totalCents, paid),
		PaymentStatus:   status,
	}
	return &payment, &totals, nil
}

func (s *Store) CheckInGuest(ctx context.Context, guest domain.Guest) (*domain.Guest, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guests (id, name, room, daily_rate_cents, status, check_in, check_out, final_bill_cents, discount_note)
		VALUES ($1,$2,$3,$4,$5,$6,NULL,0,'')
	`, guest.ID, guest.Name, guest.Room, guest.DailyRateCents, guest.Status, guest.CheckIn)
	if err != nil {
		return nil, err
	}
	saved := guest
	return &saved, nil
}

func (s *Store) GetGuestByID(ctx context.Context, id string) (*domain.Guest, error) {
	var guest domain.Guest
	var checkOut sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, room, daily_rate_cents, status, check_in, check_out, final_bill_cents, discount_note
		FROM guests
		WHERE id = $1
	`, id).Scan(&guest.ID, &guest.Name, &guest.Room, &guest.DailyRateCents, &guest.Status,
		&guest.CheckIn, &checkOut, &guest.FinalBillCents, &guest.DiscountNote)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	guest.CheckIn = guest.CheckIn.UTC()
	if checkOut.Valid {
		at := checkOut.Time.UTC()
		guest.CheckOut = &at
	}
	return &guest, nil
}

func (s *Store) ListGuests(ctx context.Context, status string, limit int) ([]domain.Guest, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, room, daily_rate_cents, status, check_in, check_out, final_bill_cents, discount_note
		FROM guests
		WHERE ($1 = '' OR status = $1)
		ORDER BY check_in DESC, id
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	guests := make([]domain.Guest, 0, limit)
	for rows.Next() {
		var guest domain.Guest
		var checkOut sql.NullTime
		if err := rows.Scan(&guest.ID, &guest.Name, &guest.Room, &guest.DailyRateCents, &guest.Status,
			&guest.CheckIn, &checkOut, &guest.FinalBillCents, &guest.DiscountNote); err != nil {
			return nil, err
		}
		guest.CheckIn = guest.CheckIn.UTC()
		if checkOut.Valid {
			at := checkOut.Time.UTC()
			guest.CheckOut = &at
		}
		guests = append(guests, guest)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return guests, nil
}

func (s *Store) CheckoutGuest(ctx context.Context, guestID string, checkoutDate time.Time, discount domain.CheckoutDiscount) (*domain.Guest, *domain.CheckoutBreakdown, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var guest domain.Guest
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, name, room, daily_rate_cents, status, check_in
		FROM guests
		WHERE id = $1
		FOR UPDATE
	`, guestID).Scan(&guest.ID, &guest.Name, &guest.Room, &guest.DailyRateCents, &guest.Status, &guest.CheckIn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
	}
	if guest.Status != domain.GuestStatusActive {
		return nil, nil, store.ErrAlreadyCheckedOut
	}
	guest.CheckIn = guest.CheckIn.UTC()

	nights := domain.Nights(guest.CheckIn, checkoutDate)
	roomCharge := int64(nights) * guest.DailyRateCents

	var ordersDue int64
	err = pgTx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(GREATEST(t.total_cents - COALESCE(p.paid, 0), 0)), 0)::bigint
		FROM transactions t
		LEFT JOIN (
			SELECT transaction_id, SUM(amount_cents) AS paid
			FROM payments
			GROUP BY transaction_id
		) p ON p.transaction_id = t.id
		WHERE t.guest_id = $1 AND t.kind = $2
	`, guestID, domain.TxKindSale).Scan(&ordersDue)
	if err != nil {
		return nil, nil, err
	}

	bill, discountCents := domain.FinalBill(roomCharge, ordersDue, discount)

	_, err = pgTx.ExecContext(ctx, `
		UPDATE guests
		SET status = $2, check_out = $3, final_bill_cents = $4, discount_note = $5
		WHERE id = $1
	`, guestID, domain.GuestStatusCheckedOut, checkoutDate, bill, discount.Description)
	if err != nil {
		return nil, nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, nil, err
	}

	out := checkoutDate
	guest.Status = domain.GuestStatusCheckedOut
	guest.CheckOut = &out
	guest.FinalBillCents = bill
	guest.DiscountNote = discount.Description

	breakdown := domain.CheckoutBreakdown{
		Nights:          nights,
		RoomChargeCents: roomCharge,
		OrdersDueCents:  ordersDue,
		DiscountCents:   discountCents,
		FinalBillCents:  bill,
	}
	return &guest, &breakdown, nil
}

func (s *Store) OpenShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if shift.StartCashCents < 0 || strings.TrimSpace(shift.OpenedBy) == "" {
		return nil, store.ErrInvalidArgument
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.OpenedAt.IsZero() {
		shift.OpenedAt = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.ClosedAt = nil

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var openID string
	err = pgTx.QueryRowContext(ctx, `
		SELECT id FROM shifts WHERE status = 'open' LIMIT 1 FOR UPDATE
	`).Scan(&openID)
	if err == nil {
		return nil, fmt.Errorf("%w: shift %s", store.ErrShiftAlreadyOpen, openID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO shifts (
			id, opened_by, closed_by, start_cash_cents, end_cash_expected_cents,
			end_cash_actual_cents, difference_cents, status, opened_at, closed_at
		)
		VALUES ($1,$2,'',$3,0,0,0,$4,$5,NULL)
	`, shift.ID, shift.OpenedBy, shift.StartCashCents, shift.Status, shift.OpenedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrShiftAlreadyOpen
		}
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	saved := shift
	return &saved, nil
}

func (s *Store) GetOpenShift(ctx context.Context) (*domain.Shift, error) {
	var shift domain.Shift
	var closedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, opened_by, closed_by, start_cash_cents, end_cash_expected_cents,
			end_cash_actual_cents, difference_cents, status, opened_at, closed_at
		FROM shifts
		WHERE status = 'open'
		ORDER BY opened_at DESC
		LIMIT 1
	`).Scan(&shift.ID, &shift.OpenedBy, &shift.ClosedBy, &shift.StartCashCents, &shift.EndCashExpectedCents,
		&shift.EndCashActualCents, &shift.DifferenceCents, &shift.Status, &shift.OpenedAt, &closedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	shift.OpenedAt = shift.OpenedAt.UTC()
	if closedAt.Valid {
		at := closedAt.Time.UTC()
		shift.ClosedAt = &at
	}
	return &shift, nil
}

func (s *Store) CloseShift(ctx context.Context, shiftID string, closedBy string, endCashActualCents int64, closedAt time.Time) (*domain.Shift, error) {
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var shift domain.Shift
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, opened_by, start_cash_cents, status, opened_at
		FROM shifts
		WHERE id = $1
		FOR UPDATE
	`, shiftID).Scan(&shift.ID, &shift.OpenedBy, &shift.StartCashCents, &shift.Status, &shift.OpenedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if shift.Status != domain.ShiftStatusOpen {
		return nil, fmt.Errorf("%w: shift %s already closed", store.ErrInvalidArgument, shiftID)
	}
	shift.OpenedAt = shift.OpenedAt.UTC()

	var cashIn int64
	err = pgTx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents),0)::bigint
		FROM payments
		WHERE method = $1 AND created_at >= $2 AND created_at <= $3
	`, domain.PaymentMethodCash, shift.OpenedAt, closedAt).Scan(&cashIn)
	if err != nil {
		return nil, err
	}

	var cashOut int64
	err = pgTx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents),0)::bigint
		FROM expenses
		WHERE method = $1 AND created_at >= $2 AND created_at <= $3
	`, domain.PaymentMethodCash, shift.OpenedAt, closedAt).Scan(&cashOut)
	if err != nil {
		return nil, err
	}

	expected := shift.StartCashCents + cashIn - cashOut
	difference := endCashActualCents - expected

	_, err = pgTx.ExecContext(ctx, `
		UPDATE shifts
		SET status = 'closed', closed_by = $2, end_cash_expected_cents = $3,
			end_cash_actual_cents = $4, difference_cents = $5, closed_at = $6
		WHERE id = $1
	`, shiftID, closedBy, expected, endCashActualCents, difference, closedAt)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	shift.Status = domain.ShiftStatusClosed
	shift.ClosedBy = closedBy
	shift.ClosedAt = &closedAt
	shift.EndCashExpectedCents = expected
	shift.EndCashActualCents = endCashActualCents
	shift.DifferenceCents = difference
	return &shift, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, description, category, amount_cents, method, recorded_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, expense.ID, expense.Description, expense.Category, expense.AmountCents, expense.Method, expense.RecordedBy, expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	saved := expense
	return &saved, nil
}

func (s *Store) ListExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, category, amount_cents, method, recorded_by, created_at
		FROM expenses
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, limit)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Description, &e.Category, &e.AmountCents, &e.Method, &e.RecordedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) GetDashboardStats(ctx context.Context, from time.Time, to time.Time) (domain.DashboardStats, error) {
	var stats domain.DashboardStats

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount_cents),0)::bigint,
			COALESCE(SUM(CASE WHEN method = $3 THEN amount_cents ELSE 0 END),0)::bigint
		FROM payments
		WHERE created_at >= $1 AND created_at < $2
	`, from, to, domain.PaymentMethodCash).Scan(&stats.PaymentsCents, &stats.CashPaymentsCents)
	if err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents),0)::bigint
		FROM expenses
		WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&stats.ExpensesCents)
	if err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = $3 THEN 1 ELSE 0 END),0)::bigint,
			COALESCE(SUM(CASE WHEN kind = $4 THEN 1 ELSE 0 END),0)::bigint
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
	`, from, to, domain.TxKindSale, domain.TxKindReturn).Scan(&stats.SaleCount, &stats.ReturnCount)
	if err != nil {
		return stats, err
	}

	return stats, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidArgument
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidArgument
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidArgument
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func uniqueProductIDs(items []domain.LineItem) []string {
	if len(items) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		set[item.ProductID] = struct{}{}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
