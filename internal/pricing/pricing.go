package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	notaryRate    = decimal.RequireFromString("0.003")
	notaryFloor   = decimal.NewFromInt(600)
	registryRate  = decimal.RequireFromString("0.002")
	registryFloor = decimal.NewFromInt(400)
	legalRate     = decimal.RequireFromString("0.015")
	adminFee      = decimal.NewFromInt(500)
	mortgageRate  = decimal.RequireFromString("0.005")

	// New builds pay to connect utilities; resales inherit existing connections.
	commoditiesFee = decimal.NewFromInt(500)
)

// Input represents the user-supplied parameters of a purchase cost calculation.
type Input struct {
	Price           decimal.Decimal `json:"price"`
	PropertyType    PropertyType    `json:"propertyType"`
	Region          Region          `json:"region"`
	IncludeMortgage bool            `json:"includeMortgage"`
}

// Breakdown contains every tax and fee line of a purchase together with the totals.
type Breakdown struct {
	Price                 decimal.Decimal `json:"price"`
	PurchaseTaxes         decimal.Decimal `json:"purchaseTaxes"`
	NotaryFees            decimal.Decimal `json:"notaryFees"`
	RegistryFees          decimal.Decimal `json:"registryFees"`
	LegalFees             decimal.Decimal `json:"legalFees"`
	AdminFees             decimal.Decimal `json:"adminFees"`
	CommoditiesFees       decimal.Decimal `json:"commoditiesFees"`
	MortgageFees          decimal.Decimal `json:"mortgageFees"`
	TotalProfessionalFees decimal.Decimal `json:"totalProfessionalFees"`
	TotalCosts            decimal.Decimal `json:"totalCosts"`
	TotalPurchase         decimal.Decimal `json:"totalPurchase"`
	TaxRate               decimal.Decimal `json:"taxRate"`
	TaxDisplay            string          `json:"taxDisplay"`
}

// Calculate computes the purchase taxes and professional fees for in.
// It reports false when the price is not positive; there is no breakdown to show in that case.
// Calculate panics if in carries a property type or region outside the known set.
func Calculate(in Input) (Breakdown, bool) {
	price := in.Price
	if !price.IsPositive() {
		return Breakdown{}, false
	}

	tax := TaxInfoFor(in.PropertyType, in.Region)
	purchaseTaxes := price.Mul(tax.Rate)

	notaryFees := decimal.Max(price.Mul(notaryRate), notaryFloor)
	registryFees := decimal.Max(price.Mul(registryRate), registryFloor)
	legalFees := price.Mul(legalRate)

	commoditiesFees := decimal.Zero
	if in.PropertyType == NewBuild {
		commoditiesFees = commoditiesFee
	}

	mortgageFees := decimal.Zero
	if in.IncludeMortgage {
		mortgageFees = price.Mul(mortgageRate)
	}

	totalProfessionalFees := notaryFees.
		Add(registryFees).
		Add(legalFees).
		Add(adminFee).
		Add(commoditiesFees).
		Add(mortgageFees)
	totalCosts := purchaseTaxes.Add(totalProfessionalFees)

	return Breakdown{
		Price:                 price,
		PurchaseTaxes:         purchaseTaxes,
		NotaryFees:            notaryFees,
		RegistryFees:          registryFees,
		LegalFees:             legalFees,
		AdminFees:             adminFee,
		CommoditiesFees:       commoditiesFees,
		MortgageFees:          mortgageFees,
		TotalProfessionalFees: totalProfessionalFees,
		TotalCosts:            totalCosts,
		TotalPurchase:         price.Add(totalCosts),
		TaxRate:               tax.Rate,
		TaxDisplay:            tax.Display,
	}, true
}

// CostShare returns the additional costs as a percentage of the price, rounded to one decimal.
func (b Breakdown) CostShare() decimal.Decimal {
	if !b.Price.IsPositive() {
		return decimal.Zero
	}
	return b.TotalCosts.Div(b.Price).Mul(hundred).Round(1)
}

// MaxPrice is the largest price ParsePrice accepts.
var MaxPrice = decimal.New(1, 12)

const (
	maxPriceLength         = 20
	maxPriceFractionDigits = 2
)

// ParsePrice parses a user-entered price written as plain digits with at most
// two decimals, e.g. "250000" or "99.95". It reports false for empty,
// non-numeric, zero, negative or exponent input and for prices above MaxPrice.
func ParsePrice(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if !isPlainAmount(raw) {
		return decimal.Zero, false
	}

	price, err := decimal.NewFromString(raw)
	if err != nil || !price.IsPositive() || price.GreaterThan(MaxPrice) {
		return decimal.Zero, false
	}
	return price, true
}

func isPlainAmount(s string) bool {
	if s == "" || len(s) > maxPriceLength {
		return false
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if hasDot && (frac == "" || len(frac) > maxPriceFractionDigits) {
		return false
	}
	if whole == "" && frac == "" {
		return false
	}
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseInput validates raw form values into an Input. Unknown property types
// and regions are reported as errors; an unusable price is reported as ok=false.
func ParseInput(rawPrice, rawType, rawRegion string, includeMortgage bool) (Input, bool, error) {
	propertyType, err := ParsePropertyType(rawType)
	if err != nil {
		return Input{}, false, err
	}
	region, err := ParseRegion(rawRegion)
	if err != nil {
		return Input{}, false, err
	}

	in := Input{PropertyType: propertyType, Region: region, IncludeMortgage: includeMortgage}
	price, ok := ParsePrice(rawPrice)
	if !ok {
		return in, false, nil
	}
	in.Price = price
	return in, true, nil
}

func mustValid(pt PropertyType, r Region) {
	if !pt.Valid() {
		panic(fmt.Sprintf("pricing: unsupported property type %d", int(pt)))
	}
	if !r.Valid() {
		panic(fmt.Sprintf("pricing: unsupported region %d", int(r)))
	}
}
