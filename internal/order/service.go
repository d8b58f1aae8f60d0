package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mengleangdeaun/foodie-sub002/internal/catalog"
	"github.com/mengleangdeaun/foodie-sub002/internal/events"
	"github.com/mengleangdeaun/foodie-sub002/internal/obs"
	"github.com/mengleangdeaun/foodie-sub002/internal/pricing"
)

// ErrNotFound indicates the order does not exist within the owner's branches.
var ErrNotFound = errors.New("order: not found")

// ErrInvalidTransition indicates an illegal status change was requested.
var ErrInvalidTransition = errors.New("order: invalid status transition")

// PersistenceError wraps a storage fault during the atomic order write.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "order: persistence failure: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// ValidationError reports malformed input fields before any persistence attempt.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("order: invalid input: %v", e.Fields)
}

// UnavailableError names the line whose product/size combination is unsellable.
type UnavailableError struct {
	Line        int
	ProductName string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("order: line %d (%s) is not available", e.Line+1, e.ProductName)
}

type snapshotLoader interface {
	GetBranch(ctx context.Context, ownerID, branchID uuid.UUID) (catalog.Branch, error)
	GetSnapshot(ctx context.Context, ownerID, branchID, productID uuid.UUID) (catalog.Snapshot, error)
}

// Store persists orders. Create must write the order and all of its items as
// a single atomic unit.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, ownerID, branchID, orderID uuid.UUID) (Order, error)
	List(ctx context.Context, ownerID, branchID uuid.UUID, status *Status, limit, offset int32) ([]Order, int64, error)
	UpdateStatus(ctx context.Context, ownerID, branchID, orderID uuid.UUID, from, to Status) error
}

// Service is the order aggregator: it resolves and prices every line, computes
// order totals, persists atomically, and fans out post-commit events.
type Service struct {
	Catalog snapshotLoader
	Store   Store
	Events  *events.Bus
	Logger  zerolog.Logger
}

// LineInput is one requested product line.
type LineInput struct {
	ProductID   uuid.UUID
	SizeID      *uuid.UUID
	Quantity    int
	ModifierIDs []uuid.UUID
	Note        string
}

// CreateInput is the full order-placement request.
type CreateInput struct {
	OrderType               Type
	TableID                 *uuid.UUID
	DeliveryPartnerID       *uuid.UUID
	Lines                   []LineInput
	OrderDiscountAmount     float64
	OrderDiscountPercent    float64
	DeliveryPartnerDiscount float64
}

// Create places an order for the branch. All resolution and computation
// happens before the transaction opens; a line that fails to resolve aborts
// the whole order with no partial state.
func (s *Service) Create(ctx context.Context, ownerID, branchID uuid.UUID, in CreateInput) (*Order, error) {
	if s == nil || s.Store == nil || s.Catalog == nil {
		return nil, errors.New("order service not configured")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	branch, err := s.Catalog.GetBranch(ctx, ownerID, branchID)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:                uuid.New(),
		BranchID:          branchID,
		OrderType:         in.OrderType,
		TableID:           in.TableID,
		DeliveryPartnerID: in.DeliveryPartnerID,
		Status:            StatusConfirmed,
		Items:             make([]Item, 0, len(in.Lines)),
	}

	var subtotal, itemDiscountTotal float64
	for i, line := range in.Lines {
		item, computed, err := s.buildItem(ctx, ownerID, branchID, i, line)
		if err != nil {
			return nil, err
		}
		item.OrderID = o.ID
		o.Items = append(o.Items, item)
		subtotal += computed.Subtotal
		itemDiscountTotal += computed.Discount
	}

	o.Subtotal = pricing.Round2(subtotal)
	o.ItemDiscountTotal = pricing.Round2(itemDiscountTotal)
	// A fixed order-level amount wins over the percentage; they are mutually
	// exclusive inputs from the caller.
	switch {
	case in.OrderDiscountAmount > 0:
		o.OrderLevelDiscount = pricing.Round2(in.OrderDiscountAmount)
	case in.OrderDiscountPercent > 0:
		o.OrderLevelDiscount = pricing.Round2(o.Subtotal * in.OrderDiscountPercent / 100)
	}
	o.DeliveryPartnerDiscount = pricing.Round2(in.DeliveryPartnerDiscount)
	o.OrderDiscountAmount = pricing.Round2(o.ItemDiscountTotal + o.OrderLevelDiscount + o.DeliveryPartnerDiscount)
	taxable := pricing.Round2(o.Subtotal - o.OrderDiscountAmount)
	if branch.TaxActive && branch.TaxRate > 0 {
		o.TaxRate = branch.TaxRate
		o.TaxAmount = pricing.Round2(taxable * branch.TaxRate / 100)
	}
	o.Total = pricing.Round2(taxable + o.TaxAmount)

	if err := s.Store.Create(ctx, o); err != nil {
		return nil, &PersistenceError{Err: err}
	}
	obs.ObserveOrderCreated(string(o.OrderType), o.Total)
	s.emitCreated(ctx, o)
	return o, nil
}

func (s *Service) buildItem(ctx context.Context, ownerID, branchID uuid.UUID, idx int, line LineInput) (Item, pricing.Line, error) {
	snap, err := s.Catalog.GetSnapshot(ctx, ownerID, branchID, line.ProductID)
	if err != nil {
		return Item{}, pricing.Line{}, err
	}

	var sizeCfg *pricing.SizeConfig
	var sizeName *string
	var sizeOverride *pricing.BranchSizeRule
	if line.SizeID != nil {
		sz, ok := snap.SizeByID(*line.SizeID)
		if !ok {
			// Strict policy: a size id that does not belong to the product is
			// rejected, not silently skipped.
			return Item{}, pricing.Line{}, &ValidationError{Fields: map[string]string{
				lineField(idx, "size_id"): "size does not belong to product",
			}}
		}
		sizeCfg = &pricing.SizeConfig{Name: sz.Name, BasePrice: sz.BasePrice}
		name := sz.Name
		sizeName = &name
		sizeOverride = sizeRule(snap.SizeOverride(sz.ID))
	}

	mods := make([]pricing.ModifierCharge, 0, len(line.ModifierIDs))
	snapshots := make([]ModifierSnapshot, 0, len(line.ModifierIDs))
	for _, modID := range line.ModifierIDs {
		m, ok := snap.ModifierByID(modID)
		if !ok {
			return Item{}, pricing.Line{}, &ValidationError{Fields: map[string]string{
				lineField(idx, "modifier_ids"): "modifier does not belong to product",
			}}
		}
		mods = append(mods, pricing.ModifierCharge{Name: m.Name, Price: m.Price})
		snapshots = append(snapshots, ModifierSnapshot{ID: m.ID, Name: m.Name, Price: m.Price})
	}

	quote, err := pricing.Resolve(productCfg(snap.Product), sizeCfg, branchCfg(snap.BranchProduct), sizeOverride)
	if err != nil {
		if errors.Is(err, pricing.ErrNotAvailable) {
			return Item{}, pricing.Line{}, &UnavailableError{Line: idx, ProductName: snap.Product.Name}
		}
		return Item{}, pricing.Line{}, err
	}

	var computedSizeName string
	if sizeName != nil {
		computedSizeName = *sizeName
	}
	computed, err := pricing.ComputeLine(pricing.LineInput{
		Quote:     quote,
		Quantity:  line.Quantity,
		Modifiers: mods,
		SizeName:  computedSizeName,
		Note:      line.Note,
	})
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidQuantity) {
			return Item{}, pricing.Line{}, &ValidationError{Fields: map[string]string{
				lineField(idx, "quantity"): "must be a positive integer",
			}}
		}
		return Item{}, pricing.Line{}, err
	}

	discountType := string(quote.DiscountSource)
	item := Item{
		ID:                   uuid.New(),
		ProductID:            snap.Product.ID,
		SizeID:               line.SizeID,
		SizeName:             sizeName,
		BasePrice:            quote.EffectivePrice,
		OriginalProductPrice: snap.Product.BasePrice,
		ModifierTotalPrice:   computed.ModifierTotal,
		ItemDiscountAmount:   computed.Discount,
		AppliedDiscountPct:   quote.DiscountPercent,
		AppliedDiscountType:  discountType,
		FinalUnitPrice:       computed.FinalUnitPrice,
		Quantity:             line.Quantity,
		SelectedModifiers:    snapshots,
		Remark:               computed.Remark,
	}
	return item, computed, nil
}

// Get fetches one order with its items, owner-scoped.
func (s *Service) Get(ctx context.Context, ownerID, branchID, orderID uuid.UUID) (Order, error) {
	if s == nil || s.Store == nil {
		return Order{}, errors.New("order service not configured")
	}
	return s.Store.Get(ctx, ownerID, branchID, orderID)
}

// List pages through the branch's orders, newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, ownerID, branchID uuid.UUID, status *Status, page, perPage int) ([]Order, int64, error) {
	if s == nil || s.Store == nil {
		return nil, 0, errors.New("order service not configured")
	}
	if status != nil && !status.Valid() {
		return nil, 0, &ValidationError{Fields: map[string]string{"status": "unknown status"}}
	}
	offset := int32((page - 1) * perPage)
	return s.Store.List(ctx, ownerID, branchID, status, int32(perPage), offset)
}

// Transition moves the order to the requested status if the change is legal.
func (s *Service) Transition(ctx context.Context, ownerID, branchID, orderID uuid.UUID, to Status) (*Order, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("order service not configured")
	}
	if !to.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"status": "unknown status"}}
	}
	current, err := s.Store.Get(ctx, ownerID, branchID, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}
	if err := s.Store.UpdateStatus(ctx, ownerID, branchID, orderID, current.Status, to); err != nil {
		return nil, err
	}
	current.Status = to
	s.emitStatusChanged(ctx, &current, to)
	return &current, nil
}

func (s *Service) emitCreated(ctx context.Context, o *Order) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"orderId":  o.ID.String(),
		"branchId": o.BranchID.String(),
		"type":     string(o.OrderType),
		"total":    FormatAmount(o.Total),
		"items":    len(o.Items),
	}
	if _, err := s.Events.Emit(ctx, events.TopicOrderCreated, o.ID, payload); err != nil {
		// fire-and-forget: the order has committed, notification failures are logged and swallowed
		s.Logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("emit order.created")
	}
}

func (s *Service) emitStatusChanged(ctx context.Context, o *Order, to Status) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"orderId":  o.ID.String(),
		"branchId": o.BranchID.String(),
		"status":   string(to),
	}
	if _, err := s.Events.Emit(ctx, events.TopicOrderStatusChanged, o.ID, payload); err != nil {
		s.Logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("emit order.status_changed")
	}
}

func validateInput(in CreateInput) error {
	fields := map[string]string{}
	if in.OrderType != TypeWalkIn && in.OrderType != TypeDelivery {
		fields["order_type"] = "must be walk_in or delivery"
	}
	if len(in.Lines) == 0 {
		fields["lines"] = "at least one line is required"
	}
	for i, line := range in.Lines {
		if line.Quantity <= 0 {
			fields[lineField(i, "quantity")] = "must be a positive integer"
		}
		if line.ProductID == uuid.Nil {
			fields[lineField(i, "product_id")] = "is required"
		}
	}
	if in.OrderDiscountAmount < 0 {
		fields["order_discount_amount"] = "must not be negative"
	}
	if in.OrderDiscountPercent < 0 || in.OrderDiscountPercent > 100 {
		fields["order_discount_percentage"] = "must be between 0 and 100"
	}
	if in.DeliveryPartnerDiscount < 0 {
		fields["delivery_partner_discount"] = "must not be negative"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func lineField(idx int, name string) string {
	return "lines[" + strconv.Itoa(idx) + "]." + name
}

// FormatAmount renders a monetary value as a fixed 2-decimal string.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(pricing.Round2(v), 'f', 2, 64)
}

func productCfg(p catalog.Product) pricing.ProductConfig {
	return pricing.ProductConfig{
		BasePrice:       p.BasePrice,
		DiscountPercent: p.DiscountPercent,
		DiscountActive:  p.DiscountActive,
	}
}

func branchCfg(bp *catalog.BranchProduct) *pricing.BranchRule {
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

func sizeRule(row *catalog.BranchProductSize) *pricing.BranchSizeRule {
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
