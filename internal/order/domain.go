package order

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates the order lifecycle. Orders are created at StatusConfirmed;
// totals are computed once at creation and never recomputed on transition.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCooking   Status = "cooking"
	StatusReady     Status = "ready"
	StatusInService Status = "in_service"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Type distinguishes walk-in orders from delivery-partner orders.
type Type string

const (
	TypeWalkIn   Type = "walk_in"
	TypeDelivery Type = "delivery"
)

var transitions = map[Status][]Status{
	StatusConfirmed: {StatusCooking, StatusCancelled},
	StatusCooking:   {StatusReady, StatusCancelled},
	StatusReady:     {StatusInService, StatusCancelled},
	StatusInService: {StatusPaid, StatusCancelled},
}

// CanTransition reports whether moving from one status to another is legal.
// Cancellation is reachable from every pre-paid state.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCooking, StatusReady, StatusInService, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// ModifierSnapshot is a value copy of a selected modifier taken at order time.
// Snapshots keep historical orders accurate if the catalog changes later.
type ModifierSnapshot struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price float64   `json:"price"`
}

// Item is one immutable product line within an order. Every monetary field is
// a snapshot computed at order creation.
type Item struct {
	ID                   uuid.UUID
	OrderID              uuid.UUID
	ProductID            uuid.UUID
	SizeID               *uuid.UUID
	SizeName             *string // denormalised at creation, survives renames
	BasePrice            float64 // resolved unit price before discount
	OriginalProductPrice float64
	ModifierTotalPrice   float64
	ItemDiscountAmount   float64
	AppliedDiscountPct   float64
	AppliedDiscountType  string
	FinalUnitPrice       float64
	Quantity             int
	SelectedModifiers    []ModifierSnapshot
	Remark               string
}

// Order is one customer transaction with its full monetary breakdown.
type Order struct {
	ID                      uuid.UUID
	BranchID                uuid.UUID
	OrderType               Type
	TableID                 *uuid.UUID
	DeliveryPartnerID       *uuid.UUID
	Status                  Status
	Subtotal                float64
	ItemDiscountTotal       float64
	OrderLevelDiscount      float64
	DeliveryPartnerDiscount float64
	OrderDiscountAmount     float64 // sum of all discounts
	TaxRate                 float64
	TaxAmount               float64
	Total                   float64
	Items                   []Item
	CreatedAt               time.Time
}
