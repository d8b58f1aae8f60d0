package pricing

import (
	"errors"
	"testing"
)

func TestComputeLineRoundingDeterminism(t *testing.T) {
	q := Quote{EffectivePrice: 9.995, DiscountPercent: 10, DiscountActive: true}
	line, err := ComputeLine(LineInput{Quote: q, Quantity: 3})
	if err != nil {
		t.Fatalf("compute line: %v", err)
	}
	// 9.995*3 = 29.985 rounds half-up to 29.99
	if line.Subtotal != 29.99 {
		t.Fatalf("subtotal = %v, want 29.99", line.Subtotal)
	}
	// 9.995*0.10*3 = 2.9985 rounds half-up to 3.00
	if line.Discount != 3.00 {
		t.Fatalf("discount = %v, want 3.00", line.Discount)
	}
	if line.Final != 26.99 {
		t.Fatalf("final = %v, want 26.99", line.Final)
	}
	// Reproducible bit-for-bit across runs.
	again, _ := ComputeLine(LineInput{Quote: q, Quantity: 3})
	if again != line {
		t.Fatalf("second run diverged: %+v vs %+v", again, line)
	}
}

func TestComputeLineUnitPriceDrift(t *testing.T) {
	// Each step rounds independently, so finalUnitPrice*quantity may drift
	// one cent from the line final for odd quantities. Accepted behavior.
	q := Quote{EffectivePrice: 9.995, DiscountPercent: 10, DiscountActive: true}
	line, err := ComputeLine(LineInput{Quote: q, Quantity: 3})
	if err != nil {
		t.Fatalf("compute line: %v", err)
	}
	if line.FinalUnitPrice != 9.00 {
		t.Fatalf("final unit price = %v, want 9.00", line.FinalUnitPrice)
	}
	if drift := Round2(line.FinalUnitPrice*3 - line.Final); drift != 0.01 {
		t.Fatalf("expected 1-cent drift, got %v", drift)
	}
}

func TestComputeLineModifiersNotDiscounted(t *testing.T) {
	q := Quote{EffectivePrice: 10.00, DiscountPercent: 10, DiscountActive: true}
	line, err := ComputeLine(LineInput{
		Quote:     q,
		Quantity:  2,
		Modifiers: []ModifierCharge{{Name: "Extra Cheese", Price: 1.50}},
	})
	if err != nil {
		t.Fatalf("compute line: %v", err)
	}
	if line.Subtotal != 23.00 {
		t.Fatalf("subtotal = %v, want 23.00", line.Subtotal)
	}
	// Discount applies to the unit price only, never the modifier.
	if line.Discount != 2.00 {
		t.Fatalf("discount = %v, want 2.00", line.Discount)
	}
	if line.Final != 21.00 {
		t.Fatalf("final = %v, want 21.00", line.Final)
	}
	if line.ModifierTotal != 1.50 {
		t.Fatalf("modifier total = %v, want 1.50", line.ModifierTotal)
	}
}

func TestComputeLineInvalidQuantity(t *testing.T) {
	for _, qty := range []int{0, -1} {
		if _, err := ComputeLine(LineInput{Quote: Quote{EffectivePrice: 5}, Quantity: qty}); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("quantity %d: expected ErrInvalidQuantity, got %v", qty, err)
		}
	}
}

func TestRemarkAssembly(t *testing.T) {
	cases := []struct {
		name string
		in   LineInput
		want string
	}{
		{
			"size, modifiers and note",
			LineInput{
				Quote:     Quote{EffectivePrice: 5},
				Quantity:  1,
				SizeName:  "Medium",
				Modifiers: []ModifierCharge{{Name: "Cheese"}, {Name: "Bacon"}},
				Note:      "extra spicy",
			},
			"[Size: Medium] + Cheese, Bacon extra spicy",
		},
		{
			"note only",
			LineInput{Quote: Quote{EffectivePrice: 5}, Quantity: 1, Note: "  no onions  "},
			"no onions",
		},
		{
			"empty",
			LineInput{Quote: Quote{EffectivePrice: 5}, Quantity: 1},
			"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line, err := ComputeLine(tc.in)
			if err != nil {
				t.Fatalf("compute line: %v", err)
			}
			if line.Remark != tc.want {
				t.Fatalf("remark = %q, want %q", line.Remark, tc.want)
			}
		})
	}
}

func TestRound2HalfUp(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{29.985, 29.99},
		{2.9985, 3.00},
		{1.005, 1.01},
		{1.004, 1.00},
		{0, 0},
		{-1.005, -1.01},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Fatalf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
