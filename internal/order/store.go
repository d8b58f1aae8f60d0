package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists orders in PostgreSQL. The order and its items are written
// inside one transaction; any failure rolls the whole write back.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs the Postgres-backed order store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Create writes the order and all items atomically.
func (s *PGStore) Create(ctx context.Context, o *Order) error {
	if s == nil || s.pool == nil {
		return errors.New("order store not initialised")
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const orderQuery = `
INSERT INTO orders
  (id, branch_id, order_type, table_id, delivery_partner_id, status,
   subtotal, item_discount_total, order_level_discount, delivery_partner_discount,
   order_discount_amount, tax_rate, tax_amount, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING created_at`
	err = tx.QueryRow(ctx, orderQuery,
		o.ID, o.BranchID, o.OrderType, o.TableID, o.DeliveryPartnerID, o.Status,
		o.Subtotal, o.ItemDiscountTotal, o.OrderLevelDiscount, o.DeliveryPartnerDiscount,
		o.OrderDiscountAmount, o.TaxRate, o.TaxAmount, o.Total,
	).Scan(&o.CreatedAt)
	if err != nil {
		return describePGError("insert order", err)
	}

	const itemQuery = `
INSERT INTO order_items
  (id, order_id, product_id, size_id, size_name, base_price, original_product_price,
   modifier_total_price, item_discount_amount, applied_discount_percentage,
   applied_discount_type, final_unit_price, quantity, selected_modifiers, remark)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	for i := range o.Items {
		it := &o.Items[i]
		mods, err := json.Marshal(it.SelectedModifiers)
		if err != nil {
			return fmt.Errorf("encode modifiers: %w", err)
		}
		if _, err := tx.Exec(ctx, itemQuery,
			it.ID, o.ID, it.ProductID, it.SizeID, it.SizeName, it.BasePrice, it.OriginalProductPrice,
			it.ModifierTotalPrice, it.ItemDiscountAmount, it.AppliedDiscountPct,
			it.AppliedDiscountType, it.FinalUnitPrice, it.Quantity, mods, it.Remark,
		); err != nil {
			return describePGError("insert order item", err)
		}
	}
	return tx.Commit(ctx)
}

// Get loads one order with its items, scoped to the owner's branch.
func (s *PGStore) Get(ctx context.Context, ownerID, branchID, orderID uuid.UUID) (Order, error) {
	if s == nil || s.pool == nil {
		return Order{}, errors.New("order store not initialised")
	}
	const query = `
SELECT o.id, o.branch_id, o.order_type, o.table_id, o.delivery_partner_id, o.status,
       o.subtotal, o.item_discount_total, o.order_level_discount, o.delivery_partner_discount,
       o.order_discount_amount, o.tax_rate, o.tax_amount, o.total, o.created_at
FROM orders o
JOIN branches b ON b.id = o.branch_id
WHERE o.id = $1 AND o.branch_id = $2 AND b.owner_id = $3`
	var o Order
	err := s.pool.QueryRow(ctx, query, orderID, branchID, ownerID).Scan(
		&o.ID, &o.BranchID, &o.OrderType, &o.TableID, &o.DeliveryPartnerID, &o.Status,
		&o.Subtotal, &o.ItemDiscountTotal, &o.OrderLevelDiscount, &o.DeliveryPartnerDiscount,
		&o.OrderDiscountAmount, &o.TaxRate, &o.TaxAmount, &o.Total, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	if o.Items, err = s.listItems(ctx, o.ID); err != nil {
		return Order{}, err
	}
	return o, nil
}

// List returns a page of orders for the branch, optionally filtered by status.
func (s *PGStore) List(ctx context.Context, ownerID, branchID uuid.UUID, status *Status, limit, offset int32) ([]Order, int64, error) {
	if s == nil || s.pool == nil {
		return nil, 0, errors.New("order store not initialised")
	}
	const countQuery = `
SELECT count(*)
FROM orders o
JOIN branches b ON b.id = o.branch_id
WHERE o.branch_id = $1 AND b.owner_id = $2 AND ($3::text IS NULL OR o.status = $3)`
	var total int64
	var statusText *string
	if status != nil {
		v := string(*status)
		statusText = &v
	}
	if err := s.pool.QueryRow(ctx, countQuery, branchID, ownerID, statusText).Scan(&total); err != nil {
		return nil, 0, err
	}
	const listQuery = `
SELECT o.id, o.branch_id, o.order_type, o.table_id, o.delivery_partner_id, o.status,
       o.subtotal, o.item_discount_total, o.order_level_discount, o.delivery_partner_discount,
       o.order_discount_amount, o.tax_rate, o.tax_amount, o.total, o.created_at
FROM orders o
JOIN branches b ON b.id = o.branch_id
WHERE o.branch_id = $1 AND b.owner_id = $2 AND ($3::text IS NULL OR o.status = $3)
ORDER BY o.created_at DESC
LIMIT $4 OFFSET $5`
	rows, err := s.pool.Query(ctx, listQuery, branchID, ownerID, statusText, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.BranchID, &o.OrderType, &o.TableID, &o.DeliveryPartnerID, &o.Status,
			&o.Subtotal, &o.ItemDiscountTotal, &o.OrderLevelDiscount, &o.DeliveryPartnerDiscount,
			&o.OrderDiscountAmount, &o.TaxRate, &o.TaxAmount, &o.Total, &o.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// UpdateStatus applies a transition with an optimistic status check so two
// concurrent transitions cannot both win.
func (s *PGStore) UpdateStatus(ctx context.Context, ownerID, branchID, orderID uuid.UUID, from, to Status) error {
	if s == nil || s.pool == nil {
		return errors.New("order store not initialised")
	}
	const query = `
UPDATE orders o
SET status = $5, updated_at = now()
FROM branches b
WHERE o.id = $1 AND o.branch_id = $2 AND b.id = o.branch_id AND b.owner_id = $3 AND o.status = $4`
	tag, err := s.pool.Exec(ctx, query, orderID, branchID, ownerID, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (s *PGStore) listItems(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	const query = `
SELECT id, order_id, product_id, size_id, size_name, base_price, original_product_price,
       modifier_total_price, item_discount_amount, applied_discount_percentage,
       applied_discount_type, final_unit_price, quantity, selected_modifiers, remark
FROM order_items
WHERE order_id = $1
ORDER BY id`
	rows, err := s.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		var mods []byte
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.SizeID, &it.SizeName, &it.BasePrice,
			&it.OriginalProductPrice, &it.ModifierTotalPrice, &it.ItemDiscountAmount,
			&it.AppliedDiscountPct, &it.AppliedDiscountType, &it.FinalUnitPrice,
			&it.Quantity, &mods, &it.Remark,
		); err != nil {
			return nil, err
		}
		if len(mods) > 0 {
			if err := json.Unmarshal(mods, &it.SelectedModifiers); err != nil {
				return nil, fmt.Errorf("decode modifiers: %w", err)
			}
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func describePGError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %s (%s): %w", op, pgErr.Message, pgErr.Code, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
