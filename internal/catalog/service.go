package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mengleangdeaun/foodie-sub002/internal/events"
	"github.com/mengleangdeaun/foodie-sub002/internal/lock"
	"github.com/mengleangdeaun/foodie-sub002/internal/obs"
	"github.com/mengleangdeaun/foodie-sub002/internal/pricing"
)

type storeProvider interface {
	GetBranch(ctx context.Context, ownerID, branchID uuid.UUID) (Branch, error)
	LookupBranch(ctx context.Context, branchID uuid.UUID) (Branch, error)
	GetSnapshot(ctx context.Context, ownerID, branchID, productID uuid.UUID) (Snapshot, error)
	ListSnapshots(ctx context.Context, ownerID, branchID uuid.UUID) ([]Snapshot, error)
	EnsureBranchProduct(ctx context.Context, branchID, productID uuid.UUID) (BranchProduct, error)
	UpdateBranchProduct(ctx context.Context, id uuid.UUID, upd BranchProductUpdate) (BranchProduct, error)
	UpsertBranchProductSize(ctx context.Context, branchProductID, sizeID uuid.UUID, upd BranchSizeUpdate) (BranchProductSize, error)
}

// Service assembles priced menu projections and manages branch overrides.
// Every projection prices through pricing.Resolve so the quoted price always
// matches what order placement will store.
type Service struct {
	Store storeProvider
	Cache *Cache
	// Lock serialises override edits for the same branch/product pair across
	// instances. Optional; edits run unguarded without it.
	Lock *lock.Locker
	// Events records menu.updated after override writes. Optional.
	Events *events.Bus
	Logger zerolog.Logger
}

// NewService constructs a catalog service.
func NewService(store storeProvider, cache *Cache) *Service {
	return &Service{Store: store, Cache: cache}
}

func (s *Service) withEditLock(ctx context.Context, branchID, productID uuid.UUID, fn func(context.Context) error) error {
	if s.Lock == nil {
		return fn(ctx)
	}
	key := "catalog:edit:" + branchID.String() + ":" + productID.String()
	return s.Lock.WithLock(ctx, key, 10*time.Second, fn)
}

// MenuSize is one priced size entry in a menu projection.
type MenuSize struct {
	SizeID          string  `json:"sizeId"`
	Name            string  `json:"name"`
	EffectivePrice  float64 `json:"effectivePrice"`
	FinalPrice      float64 `json:"finalPrice"`
	DiscountPercent float64 `json:"discountPercent"`
	DiscountActive  bool    `json:"discountActive"`
	PriceSource     string  `json:"priceSource"`
	DiscountSource  string  `json:"discountSource"`
	Available       bool    `json:"available"`
}

// MenuItem is one priced product entry in a menu projection.
type MenuItem struct {
	ProductID          string     `json:"productId"`
	Name               string     `json:"name"`
	EffectivePrice     float64    `json:"effectivePrice"`
	FinalPrice         float64    `json:"finalPrice"`
	DiscountPercent    float64    `json:"discountPercent"`
	DiscountActive     bool       `json:"discountActive"`
	PriceSource        string     `json:"priceSource"`
	DiscountSource     string     `json:"discountSource"`
	Available          bool       `json:"available"`
	Popular            bool       `json:"popular"`
	Signature          bool       `json:"signature"`
	ChefRecommendation bool       `json:"chefRecommendation"`
	Sizes              []MenuSize `json:"sizes,omitempty"`
}

// Menu returns the priced menu for a branch. When publicOnly is set (the QR
// customer view) unavailable products and sizes are omitted entirely; the POS
// view includes them flagged unavailable.
func (s *Service) Menu(ctx context.Context, ownerID, branchID uuid.UUID, publicOnly bool) ([]MenuItem, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	if _, err := s.Store.GetBranch(ctx, ownerID, branchID); err != nil {
		return nil, err
	}
	key := menuCacheKey(branchID, publicOnly)
	var cached []MenuItem
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		obs.ObserveMenuCache("hit")
		return cached, nil
	}
	obs.ObserveMenuCache("miss")
	snaps, err := s.Store.ListSnapshots(ctx, ownerID, branchID)
	if err != nil {
		return nil, err
	}
	items := make([]MenuItem, 0, len(snaps))
	for _, snap := range snaps {
		item, ok := projectItem(snap, publicOnly)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	// cache write failure never fails the read
	_ = s.Cache.SetJSON(ctx, key, items)
	return items, nil
}

// PublicMenu returns the customer-facing menu for a branch. The owner scope
// comes from the branch row itself since QR requests carry no credentials.
func (s *Service) PublicMenu(ctx context.Context, branchID uuid.UUID) ([]MenuItem, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	branch, err := s.Store.LookupBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return s.Menu(ctx, branch.OwnerID, branchID, true)
}

func projectItem(snap Snapshot, publicOnly bool) (MenuItem, bool) {
	item := MenuItem{
		ProductID: snap.Product.ID.String(),
		Name:      snap.Product.Name,
		Available: true,
	}
	rule := branchRule(snap.BranchProduct)
	if snap.BranchProduct != nil {
		item.Popular = snap.BranchProduct.Popular
		item.Signature = snap.BranchProduct.Signature
		item.ChefRecommendation = snap.BranchProduct.ChefRecommendation
	}

	if len(snap.Product.Sizes) == 0 {
		q, err := pricing.Resolve(productConfig(snap.Product), nil, rule, nil)
		if err != nil {
			if publicOnly {
				return MenuItem{}, false
			}
			item.Available = false
			return item, true
		}
		item.applyQuote(q)
		return item, true
	}

	for _, sz := range snap.Product.Sizes {
		sizeCfg := pricing.SizeConfig{Name: sz.Name, BasePrice: sz.BasePrice}
		q, err := pricing.Resolve(productConfig(snap.Product), &sizeCfg, rule, sizeRule(snap.SizeOverride(sz.ID)))
		entry := MenuSize{SizeID: sz.ID.String(), Name: sz.Name, Available: true}
		if err != nil {
			if publicOnly {
				continue
			}
			entry.Available = false
			item.Sizes = append(item.Sizes, entry)
			continue
		}
		entry.EffectivePrice = q.EffectivePrice
		entry.FinalPrice = q.FinalPrice
		entry.DiscountPercent = q.DiscountPercent
		entry.DiscountActive = q.DiscountActive
		entry.PriceSource = string(q.PriceSource)
		entry.DiscountSource = string(q.DiscountSource)
		item.Sizes = append(item.Sizes, entry)
	}
	if publicOnly && len(item.Sizes) == 0 {
		return MenuItem{}, false
	}
	return item, true
}

func (m *MenuItem) applyQuote(q pricing.Quote) {
	m.EffectivePrice = q.EffectivePrice
	m.FinalPrice = q.FinalPrice
	m.DiscountPercent = q.DiscountPercent
	m.DiscountActive = q.DiscountActive
	m.PriceSource = string(q.PriceSource)
	m.DiscountSource = string(q.DiscountSource)
}

func productConfig(p Product) pricing.ProductConfig {
	return pricing.ProductConfig{
		BasePrice:       p.BasePrice,
		DiscountPercent: p.DiscountPercent,
		DiscountActive:  p.DiscountActive,
	}
}

func branchRule(bp *BranchProduct) *pricing.BranchRule {
	if bp == nil {
		return nil
	}
	return &pricing.BranchRule{
		Price:           bp.BranchPrice,
		DiscountPercent: bp.DiscountPercent,
		DiscountActive:  bp.DiscountActive,
		Available:       bp.Available,
	}
}

func sizeRule(row *BranchProductSize) *pricing.BranchSizeRule {
	if row == nil {
		return nil
	}
	return &pricing.BranchSizeRule{
		Price:           row.BranchSizePrice,
		DiscountPercent: row.DiscountPercent,
		DiscountActive:  row.DiscountActive,
		Available:       row.Available,
	}
}

// UpdateBranchOverride writes the branch-level override for a product,
// creating the BranchProduct row lazily on first edit.
func (s *Service) UpdateBranchOverride(ctx context.Context, ownerID, branchID, productID uuid.UUID, upd BranchProductUpdate) (BranchProduct, error) {
	if s == nil || s.Store == nil {
		return BranchProduct{}, errors.New("catalog service not configured")
	}
	if _, err := s.Store.GetBranch(ctx, ownerID, branchID); err != nil {
		return BranchProduct{}, err
	}
	if _, err := s.Store.GetSnapshot(ctx, ownerID, branchID, productID); err != nil {
		return BranchProduct{}, err
	}
	var updated BranchProduct
	err := s.withEditLock(ctx, branchID, productID, func(ctx context.Context) error {
		bp, err := s.Store.EnsureBranchProduct(ctx, branchID, productID)
		if err != nil {
			return fmt.Errorf("ensure branch product: %w", err)
		}
		updated, err = s.Store.UpdateBranchProduct(ctx, bp.ID, upd)
		return err
	})
	if err != nil {
		return BranchProduct{}, err
	}
	s.invalidateMenu(ctx, branchID)
	s.emitMenuUpdated(ctx, branchID, productID)
	return updated, nil
}

// UpdateBranchSizeOverride writes the size-level override. The size must
// belong to the product; foreign references are rejected.
func (s *Service) UpdateBranchSizeOverride(ctx context.Context, ownerID, branchID, productID, sizeID uuid.UUID, upd BranchSizeUpdate) (BranchProductSize, error) {
	if s == nil || s.Store == nil {
		return BranchProductSize{}, errors.New("catalog service not configured")
	}
	if _, err := s.Store.GetBranch(ctx, ownerID, branchID); err != nil {
		return BranchProductSize{}, err
	}
	snap, err := s.Store.GetSnapshot(ctx, ownerID, branchID, productID)
	if err != nil {
		return BranchProductSize{}, err
	}
	if _, ok := snap.SizeByID(sizeID); !ok {
		return BranchProductSize{}, ErrSizeNotFound
	}
	var row BranchProductSize
	err = s.withEditLock(ctx, branchID, productID, func(ctx context.Context) error {
		bp, err := s.Store.EnsureBranchProduct(ctx, branchID, productID)
		if err != nil {
			return fmt.Errorf("ensure branch product: %w", err)
		}
		row, err = s.Store.UpsertBranchProductSize(ctx, bp.ID, sizeID, upd)
		return err
	})
	if err != nil {
		return BranchProductSize{}, err
	}
	s.invalidateMenu(ctx, branchID)
	s.emitMenuUpdated(ctx, branchID, productID)
	return row, nil
}

func (s *Service) invalidateMenu(ctx context.Context, branchID uuid.UUID) {
	_ = s.Cache.Delete(ctx, menuCacheKey(branchID, true), menuCacheKey(branchID, false))
}

func (s *Service) emitMenuUpdated(ctx context.Context, branchID, productID uuid.UUID) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"branchId":  branchID.String(),
		"productId": productID.String(),
	}
	if _, err := s.Events.Emit(ctx, events.TopicMenuUpdated, branchID, payload); err != nil {
		// the override has committed and the cache is already invalidated
		s.Logger.Error().Err(err).Str("branch_id", branchID.String()).Msg("emit menu.updated")
	}
}

func menuCacheKey(branchID uuid.UUID, publicOnly bool) string {
	view := "pos"
	if publicOnly {
		view = "public"
	}
	return "menu:" + branchID.String() + ":" + view
}
