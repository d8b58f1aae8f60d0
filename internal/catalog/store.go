package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrBranchNotFound indicates the branch does not exist or belongs to another owner.
	ErrBranchNotFound = errors.New("catalog: branch not found")
	// ErrProductNotFound indicates the product does not exist or belongs to another owner.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrSizeNotFound indicates the size does not belong to the product.
	ErrSizeNotFound = errors.New("catalog: size not found")
)

// Store provides persistence for catalog configuration, owner-scoped on every query.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a catalog store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetBranch fetches a branch with its tax configuration.
func (s *Store) GetBranch(ctx context.Context, ownerID, branchID uuid.UUID) (Branch, error) {
	if s == nil || s.pool == nil {
		return Branch{}, errors.New("catalog store not initialised")
	}
	const query = `
SELECT id, owner_id, name, tax_rate, tax_active
FROM branches
WHERE id = $1 AND owner_id = $2`
	var b Branch
	err := s.pool.QueryRow(ctx, query, branchID, ownerID).Scan(&b.ID, &b.OwnerID, &b.Name, &b.TaxRate, &b.TaxActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, ErrBranchNotFound
		}
		return Branch{}, err
	}
	return b, nil
}

// LookupBranch fetches a branch by id alone. The customer QR menu carries no
// owner context; the branch row supplies it.
func (s *Store) LookupBranch(ctx context.Context, branchID uuid.UUID) (Branch, error) {
	if s == nil || s.pool == nil {
		return Branch{}, errors.New("catalog store not initialised")
	}
	const query = `
SELECT id, owner_id, name, tax_rate, tax_active
FROM branches
WHERE id = $1`
	var b Branch
	err := s.pool.QueryRow(ctx, query, branchID).Scan(&b.ID, &b.OwnerID, &b.Name, &b.TaxRate, &b.TaxActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, ErrBranchNotFound
		}
		return Branch{}, err
	}
	return b, nil
}

// GetSnapshot loads one product with its sizes, modifier groups, and any
// branch override rows, as a single read-only configuration snapshot.
func (s *Store) GetSnapshot(ctx context.Context, ownerID, branchID, productID uuid.UUID) (Snapshot, error) {
	if s == nil || s.pool == nil {
		return Snapshot{}, errors.New("catalog store not initialised")
	}
	const productQuery = `
SELECT id, owner_id, category_id, name, base_price, discount_percentage, is_discount_active
FROM products
WHERE id = $1 AND owner_id = $2`
	var snap Snapshot
	p := &snap.Product
	err := s.pool.QueryRow(ctx, productQuery, productID, ownerID).
		Scan(&p.ID, &p.OwnerID, &p.CategoryID, &p.Name, &p.BasePrice, &p.DiscountPercent, &p.DiscountActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrProductNotFound
		}
		return Snapshot{}, err
	}
	if p.Sizes, err = s.listSizes(ctx, productID); err != nil {
		return Snapshot{}, err
	}
	if p.ModifierGroups, err = s.listModifierGroups(ctx, productID); err != nil {
		return Snapshot{}, err
	}

	const branchQuery = `
SELECT id, branch_id, product_id, branch_price, discount_percentage, has_active_discount,
       is_available, is_popular, is_signature, is_chef_recommendation
FROM branch_products
WHERE branch_id = $1 AND product_id = $2`
	var bp BranchProduct
	err = s.pool.QueryRow(ctx, branchQuery, branchID, productID).Scan(
		&bp.ID, &bp.BranchID, &bp.ProductID, &bp.BranchPrice, &bp.DiscountPercent,
		&bp.DiscountActive, &bp.Available, &bp.Popular, &bp.Signature, &bp.ChefRecommendation,
	)
	switch {
	case err == nil:
		snap.BranchProduct = &bp
	case errors.Is(err, pgx.ErrNoRows):
		// No override row; product base configuration applies.
	default:
		return Snapshot{}, err
	}

	if snap.BranchProduct != nil {
		if snap.SizeOverrides, err = s.listSizeOverrides(ctx, snap.BranchProduct.ID); err != nil {
			return Snapshot{}, err
		}
	}
	return snap, nil
}

// ListSnapshots loads snapshots for every product of the owner, with the
// branch override rows for the given branch.
func (s *Store) ListSnapshots(ctx context.Context, ownerID, branchID uuid.UUID) ([]Snapshot, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("catalog store not initialised")
	}
	const query = `
SELECT id FROM products WHERE owner_id = $1 ORDER BY name`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, 32)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.GetSnapshot(ctx, ownerID, branchID, id)
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", id, err)
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *Store) listSizes(ctx context.Context, productID uuid.UUID) ([]Size, error) {
	const query = `
SELECT id, name, base_price FROM product_sizes WHERE product_id = $1 ORDER BY base_price`
	rows, err := s.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sizes []Size
	for rows.Next() {
		var sz Size
		if err := rows.Scan(&sz.ID, &sz.Name, &sz.BasePrice); err != nil {
			return nil, err
		}
		sizes = append(sizes, sz)
	}
	return sizes, rows.Err()
}

func (s *Store) listModifierGroups(ctx context.Context, productID uuid.UUID) ([]ModifierGroup, error) {
	const groupQuery = `
SELECT id, name, min_select, max_select FROM modifier_groups WHERE product_id = $1 ORDER BY name`
	rows, err := s.pool.Query(ctx, groupQuery, productID)
	if err != nil {
		return nil, err
	}
	var groups []ModifierGroup
	for rows.Next() {
		var g ModifierGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.MinSelect, &g.MaxSelect); err != nil {
			rows.Close()
			return nil, err
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	const modifierQuery = `
SELECT id, name, price FROM modifiers WHERE group_id = $1 ORDER BY name`
	for i := range groups {
		modRows, err := s.pool.Query(ctx, modifierQuery, groups[i].ID)
		if err != nil {
			return nil, err
		}
		for modRows.Next() {
			var m Modifier
			if err := modRows.Scan(&m.ID, &m.Name, &m.Price); err != nil {
				modRows.Close()
				return nil, err
			}
			groups[i].Modifiers = append(groups[i].Modifiers, m)
		}
		modRows.Close()
		if err := modRows.Err(); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (s *Store) listSizeOverrides(ctx context.Context, branchProductID uuid.UUID) (map[uuid.UUID]BranchProductSize, error) {
	const query = `
SELECT id, branch_product_id, size_id, branch_size_price, discount_percentage, is_discount_active, is_available
FROM branch_product_sizes
WHERE branch_product_id = $1`
	rows, err := s.pool.Query(ctx, query, branchProductID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	overrides := make(map[uuid.UUID]BranchProductSize)
	for rows.Next() {
		var row BranchProductSize
		if err := rows.Scan(&row.ID, &row.BranchProductID, &row.SizeID, &row.BranchSizePrice,
			&row.DiscountPercent, &row.DiscountActive, &row.Available); err != nil {
			return nil, err
		}
		overrides[row.SizeID] = row
	}
	return overrides, rows.Err()
}

// EnsureBranchProduct returns the branch product row for the pair, creating it
// lazily on first edit. The unique (branch_id, product_id) index makes the
// get-or-create race safe.
func (s *Store) EnsureBranchProduct(ctx context.Context, branchID, productID uuid.UUID) (BranchProduct, error) {
	if s == nil || s.pool == nil {
		return BranchProduct{}, errors.New("catalog store not initialised")
	}
	const query = `
INSERT INTO branch_products (id, branch_id, product_id, is_available)
VALUES ($1, $2, $3, TRUE)
ON CONFLICT (branch_id, product_id) DO UPDATE SET product_id = EXCLUDED.product_id
RETURNING id, branch_id, product_id, branch_price, discount_percentage, has_active_discount,
          is_available, is_popular, is_signature, is_chef_recommendation`
	var bp BranchProduct
	err := s.pool.QueryRow(ctx, query, uuid.New(), branchID, productID).Scan(
		&bp.ID, &bp.BranchID, &bp.ProductID, &bp.BranchPrice, &bp.DiscountPercent,
		&bp.DiscountActive, &bp.Available, &bp.Popular, &bp.Signature, &bp.ChefRecommendation,
	)
	if err != nil {
		return BranchProduct{}, err
	}
	return bp, nil
}

// BranchProductUpdate carries the editable branch override fields.
type BranchProductUpdate struct {
	BranchPrice        *float64
	DiscountPercent    float64
	DiscountActive     bool
	Available          bool
	Popular            bool
	Signature          bool
	ChefRecommendation bool
}

// UpdateBranchProduct overwrites the override fields of an existing row.
func (s *Store) UpdateBranchProduct(ctx context.Context, id uuid.UUID, upd BranchProductUpdate) (BranchProduct, error) {
	if s == nil || s.pool == nil {
		return BranchProduct{}, errors.New("catalog store not initialised")
	}
	const query = `
UPDATE branch_products
SET branch_price = $2, discount_percentage = $3, has_active_discount = $4,
    is_available = $5, is_popular = $6, is_signature = $7, is_chef_recommendation = $8,
    updated_at = now()
WHERE id = $1
RETURNING id, branch_id, product_id, branch_price, discount_percentage, has_active_discount,
          is_available, is_popular, is_signature, is_chef_recommendation`
	var bp BranchProduct
	err := s.pool.QueryRow(ctx, query, id, upd.BranchPrice, upd.DiscountPercent, upd.DiscountActive,
		upd.Available, upd.Popular, upd.Signature, upd.ChefRecommendation).Scan(
		&bp.ID, &bp.BranchID, &bp.ProductID, &bp.BranchPrice, &bp.DiscountPercent,
		&bp.DiscountActive, &bp.Available, &bp.Popular, &bp.Signature, &bp.ChefRecommendation,
	)
	if err != nil {
		return BranchProduct{}, err
	}
	return bp, nil
}

// BranchSizeUpdate carries the editable branch size override fields.
type BranchSizeUpdate struct {
	BranchSizePrice *float64
	DiscountPercent float64
	DiscountActive  bool
	Available       bool
}

// UpsertBranchProductSize writes the size-level override, keeping at most one
// row per (branch_product, size) pair.
func (s *Store) UpsertBranchProductSize(ctx context.Context, branchProductID, sizeID uuid.UUID, upd BranchSizeUpdate) (BranchProductSize, error) {
	if s == nil || s.pool == nil {
		return BranchProductSize{}, errors.New("catalog store not initialised")
	}
	const query = `
INSERT INTO branch_product_sizes
  (id, branch_product_id, size_id, branch_size_price, discount_percentage, is_discount_active, is_available)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (branch_product_id, size_id) DO UPDATE SET
  branch_size_price = EXCLUDED.branch_size_price,
  discount_percentage = EXCLUDED.discount_percentage,
  is_discount_active = EXCLUDED.is_discount_active,
  is_available = EXCLUDED.is_available,
  updated_at = now()
RETURNING id, branch_product_id, size_id, branch_size_price, discount_percentage, is_discount_active, is_available`
	var row BranchProductSize
	err := s.pool.QueryRow(ctx, query, uuid.New(), branchProductID, sizeID,
		upd.BranchSizePrice, upd.DiscountPercent, upd.DiscountActive, upd.Available).Scan(
		&row.ID, &row.BranchProductID, &row.SizeID, &row.BranchSizePrice,
		&row.DiscountPercent, &row.DiscountActive, &row.Available,
	)
	if err != nil {
		return BranchProductSize{}, err
	}
	return row, nil
}
