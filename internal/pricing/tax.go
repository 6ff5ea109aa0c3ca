package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxComponent is one of the taxes that make up a TaxInfo rate.
type TaxComponent struct {
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}

// TaxInfo describes the purchase tax applicable to a property.
type TaxInfo struct {
	Rate       decimal.Decimal `json:"rate"`
	Display    string          `json:"display"`
	Components []TaxComponent  `json:"components"`
}

// New builds pay VAT plus stamp duty regardless of the region.
var newBuildTax = TaxInfo{
	Rate:    decimal.RequireFromString("0.115"),
	Display: "10% IVA + 1.5% AJD",
	Components: []TaxComponent{
		{Name: "IVA", Rate: decimal.RequireFromString("0.10")},
		{Name: "AJD", Rate: decimal.RequireFromString("0.015")},
	},
}

// Resales pay the regional transfer tax.
var resaleTax = map[Region]TaxInfo{
	Valencia:  itp("0.10", "10% ITP"),
	Murcia:    itp("0.08", "8% ITP"),
	Andalusia: itp("0.08", "8% ITP"),
}

func itp(rate, display string) TaxInfo {
	r := decimal.RequireFromString(rate)
	return TaxInfo{
		Rate:       r,
		Display:    display,
		Components: []TaxComponent{{Name: "ITP", Rate: r}},
	}
}

// TaxInfoFor returns the purchase tax for a property type in a region.
// It panics when either value is outside the known set or a region has no rate.
func TaxInfoFor(pt PropertyType, r Region) TaxInfo {
	mustValid(pt, r)

	switch pt {
	case NewBuild:
		return newBuildTax
	case Resale:
		info, ok := resaleTax[r]
		if !ok {
			panic(fmt.Sprintf("pricing: no transfer tax rate for region %s", r))
		}
		return info
	}
	panic(fmt.Sprintf("pricing: unsupported property type %s", pt))
}
