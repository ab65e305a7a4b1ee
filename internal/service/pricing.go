package service

import (
	"github.com/shopspring/decimal"
)

// Pricing derives authoritative order figures from catalog prices.
type Pricing struct {
	VATRate   decimal.Decimal
	Tolerance decimal.Decimal
}

type Quote struct {
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Total    decimal.Decimal
}

type PricedLine struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

func NewPricing(vatRate, tolerance decimal.Decimal) Pricing {
	return Pricing{VATRate: vatRate, Tolerance: tolerance}
}

// Quote sums unit price * quantity and applies VAT. VAT and total are rounded
// to the currency's minor unit.
func (p Pricing) Quote(lines []PricedLine) Quote {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	vat := subtotal.Mul(p.VATRate).Round(2)
	return Quote{
		Subtotal: subtotal,
		VAT:      vat,
		Total:    subtotal.Add(vat).Round(2),
	}
}

// Matches reports whether the client's claimed figures are within tolerance of q.
func (p Pricing) Matches(q Quote, claimedTotal, claimedVAT decimal.Decimal) bool {
	return q.Total.Sub(claimedTotal).Abs().LessThanOrEqual(p.Tolerance) &&
		q.VAT.Sub(claimedVAT).Abs().LessThanOrEqual(p.Tolerance)
}
