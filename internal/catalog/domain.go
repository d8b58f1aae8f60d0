package catalog

import "github.com/google/uuid"

// Branch is one physical restaurant location belonging to an owner account.
type Branch struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	TaxRate   float64
	TaxActive bool
}

// Product is a sellable menu item owned by one owner account.
type Product struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	CategoryID      *uuid.UUID
	Name            string
	BasePrice       float64
	DiscountPercent float64
	DiscountActive  bool
	Sizes           []Size
	ModifierGroups  []ModifierGroup
}

// Size is a named variant of a product with its own base price on the pivot.
type Size struct {
	ID        uuid.UUID
	Name      string
	BasePrice float64
}

// ModifierGroup constrains a set of selectable modifiers.
type ModifierGroup struct {
	ID        uuid.UUID
	Name      string
	MinSelect int
	MaxSelect int
	Modifiers []Modifier
}

// Modifier is an optional add-on with a flat price.
type Modifier struct {
	ID    uuid.UUID
	Name  string
	Price float64
}

// BranchProduct carries branch-specific overrides for a product. At most one
// row exists per (branch, product) pair; rows are created lazily on first edit.
type BranchProduct struct {
	ID                 uuid.UUID
	BranchID           uuid.UUID
	ProductID          uuid.UUID
	BranchPrice        *float64 // nil inherits the product base price
	DiscountPercent    float64
	DiscountActive     bool
	Available          bool
	Popular            bool
	Signature          bool
	ChefRecommendation bool
}

// BranchProductSize carries the most specific override, per branch product and
// size. At most one row exists per (branch_product, size) pair.
type BranchProductSize struct {
	ID              uuid.UUID
	BranchProductID uuid.UUID
	SizeID          uuid.UUID
	BranchSizePrice *float64
	DiscountPercent float64
	DiscountActive  bool
	Available       bool
}

// Snapshot bundles the configuration state needed to price one product for a
// branch at a single instant. Pricing reads it, never writes it.
type Snapshot struct {
	Product       Product
	BranchProduct *BranchProduct
	SizeOverrides map[uuid.UUID]BranchProductSize
}

// SizeByID returns the product size with the given id, if it belongs to the product.
func (s Snapshot) SizeByID(id uuid.UUID) (Size, bool) {
	for _, sz := range s.Product.Sizes {
		if sz.ID == id {
			return sz, true
		}
	}
	return Size{}, false
}

// ModifierByID returns the modifier with the given id, if it belongs to the product.
func (s Snapshot) ModifierByID(id uuid.UUID) (Modifier, bool) {
	for _, g := range s.Product.ModifierGroups {
		for _, m := range g.Modifiers {
			if m.ID == id {
				return m, true
			}
		}
	}
	return Modifier{}, false
}

// SizeOverride returns the branch size override row for the size, if present.
func (s Snapshot) SizeOverride(sizeID uuid.UUID) *BranchProductSize {
	if s.SizeOverrides == nil {
		return nil
	}
	if row, ok := s.SizeOverrides[sizeID]; ok {
		return &row
	}
	return nil
}
