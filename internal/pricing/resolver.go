package pricing

import "errors"

// ErrNotAvailable is returned when the product/size/branch combination is flagged unsellable.
var ErrNotAvailable = errors.New("pricing: combination not available")

// Source identifies which configuration level supplied a resolved price or discount.
type Source string

const (
	// SourceBranchSize means the BranchProductSize override row supplied the value.
	SourceBranchSize Source = "branch_size"
	// SourceBranchProduct means the BranchProduct override row supplied the value.
	SourceBranchProduct Source = "branch_product"
	// SourceProductBase means the product (or its size pivot) base price supplied the value.
	SourceProductBase Source = "product_base"
	// SourceProduct means the product's own discount configuration applied.
	SourceProduct Source = "product"
	// SourceNone means no active discount applied.
	SourceNone Source = "none"
)

// ProductConfig carries the product-level pricing fields read by the resolver.
type ProductConfig struct {
	BasePrice       float64
	DiscountPercent float64
	DiscountActive  bool
}

// SizeConfig carries the per-size base price held on the product/size pivot.
type SizeConfig struct {
	Name      string
	BasePrice float64
}

// BranchRule is the branch-level override row for a product.
type BranchRule struct {
	Price           *float64 // nil inherits the product base price
	DiscountPercent float64
	DiscountActive  bool
	Available       bool
}

// BranchSizeRule is the most specific override row, per branch product and size.
type BranchSizeRule struct {
	Price           *float64 // nil inherits from BranchRule or the size base
	DiscountPercent float64
	DiscountActive  bool
	Available       bool
}

// Quote is the resolver output for one product/size/branch combination.
type Quote struct {
	EffectivePrice  float64
	FinalPrice      float64
	DiscountPercent float64
	DiscountActive  bool
	PriceSource     Source
	DiscountSource  Source
}

// Resolve determines the effective unit price and active discount for the
// given configuration snapshot. Price follows the most-specific-wins cascade
// branch_size > branch_product > product_base. Discount follows the same
// cascade but never falls through: the most specific existing row fully
// replaces less specific discounts even when it specifies zero.
func Resolve(product ProductConfig, size *SizeConfig, branch *BranchRule, branchSize *BranchSizeRule) (Quote, error) {
	if branchSize != nil && !branchSize.Available {
		return Quote{}, ErrNotAvailable
	}
	if size == nil && branch != nil && !branch.Available {
		return Quote{}, ErrNotAvailable
	}

	var q Quote
	switch {
	case branchSize != nil && branchSize.Price != nil:
		q.EffectivePrice = *branchSize.Price
		q.PriceSource = SourceBranchSize
	case branch != nil && branch.Price != nil:
		q.EffectivePrice = *branch.Price
		q.PriceSource = SourceBranchProduct
	case size != nil:
		q.EffectivePrice = size.BasePrice
		q.PriceSource = SourceProductBase
	default:
		q.EffectivePrice = product.BasePrice
		q.PriceSource = SourceProductBase
	}

	var pct float64
	var active bool
	var src Source
	switch {
	case branchSize != nil:
		pct, active, src = branchSize.DiscountPercent, branchSize.DiscountActive, SourceBranchSize
	case branch != nil:
		pct, active, src = branch.DiscountPercent, branch.DiscountActive, SourceBranchProduct
	default:
		pct, active, src = product.DiscountPercent, product.DiscountActive, SourceProduct
	}

	if active && pct > 0 {
		q.DiscountPercent = pct
		q.DiscountActive = true
		q.DiscountSource = src
		q.FinalPrice = Round2(q.EffectivePrice - q.EffectivePrice*pct/100)
	} else {
		q.DiscountSource = SourceNone
		q.FinalPrice = q.EffectivePrice
	}
	return q, nil
}
