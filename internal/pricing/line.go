package pricing

import (
	"errors"
	"strings"
)

// ErrInvalidQuantity is returned when the requested quantity is not a positive integer.
var ErrInvalidQuantity = errors.New("pricing: quantity must be a positive integer")

// ModifierCharge is a flat-priced add-on applied once per unit of quantity.
// Modifier prices are never subject to discount.
type ModifierCharge struct {
	Name  string
	Price float64
}

// LineInput collects everything needed to price one order line.
type LineInput struct {
	Quote     Quote
	Quantity  int
	Modifiers []ModifierCharge
	SizeName  string
	Note      string
}

// Line holds the computed amounts for one order line. Each amount is rounded
// independently to 2 decimals; finalUnitPrice*quantity can therefore drift
// from Final by one cent for odd quantities, which is accepted behavior.
type Line struct {
	Subtotal       float64
	Discount       float64
	Final          float64
	FinalUnitPrice float64
	ModifierTotal  float64
	Remark         string
}

// ComputeLine prices a single line from a resolved quote.
func ComputeLine(in LineInput) (Line, error) {
	if in.Quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	var modTotal float64
	for _, m := range in.Modifiers {
		modTotal += m.Price
	}
	qty := float64(in.Quantity)
	unit := in.Quote.EffectivePrice

	var out Line
	out.ModifierTotal = Round2(modTotal)
	out.Subtotal = Round2((unit + modTotal) * qty)
	if in.Quote.DiscountActive && in.Quote.DiscountPercent > 0 {
		out.Discount = Round2(unit * in.Quote.DiscountPercent / 100 * qty)
	}
	out.Final = Round2(out.Subtotal - out.Discount)
	out.FinalUnitPrice = Round2(out.Final / qty)
	out.Remark = assembleRemark(in.SizeName, in.Modifiers, in.Note)
	return out, nil
}

func assembleRemark(sizeName string, mods []ModifierCharge, note string) string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(sizeName); s != "" {
		parts = append(parts, "[Size: "+s+"]")
	}
	if len(mods) > 0 {
		names := make([]string, 0, len(mods))
		for _, m := range mods {
			if n := strings.TrimSpace(m.Name); n != "" {
				names = append(names, n)
			}
		}
		if len(names) > 0 {
			parts = append(parts, "+ "+strings.Join(names, ", "))
		}
	}
	if n := strings.TrimSpace(note); n != "" {
		parts = append(parts, n)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
