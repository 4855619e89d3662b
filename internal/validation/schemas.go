package validation

import (
	"github.com/shopspring/decimal"
)

const (
	FieldPrice   = "price"
	FieldAmount  = "amount"
	FieldRound   = "round"
	FieldAlpha   = "alpha"
	FieldBeta    = "beta"
	FieldTheta   = "theta"
	FieldMinCost = "min_cost"
	FieldMaxCost = "max_cost"
	FieldName    = "name"

	FieldProductSingular = "product_name_singular"
	FieldProductPlural   = "product_name_plural"
)

// MoneyPlaces is the precision of prices, costs and balances.
const MoneyPlaces int32 = 2

// CoefficientPlaces is the precision of the demand-curve coefficients.
const CoefficientPlaces int32 = 4

var (
	zero        = decimal.Zero
	maxMoney    = decimal.NewFromInt(1_000_000_000)
	maxCoeff    = decimal.RequireFromString("9999999999.9999")
	maxQuantity = decimal.NewFromInt(1_000_000_000)
)

// MaxRoundSwing bounds the profit or loss one settled round can apply to a balance:
// price*amount for income and cost*amount for expenses, both at their caps.
func MaxRoundSwing() decimal.Decimal {
	return maxMoney.Mul(maxQuantity)
}

// TradeSchema validates one offer: a non-negative price to the cent and a non-negative whole amount.
func TradeSchema() Schema {
	return Schema{
		{Name: FieldPrice, Kind: KindDecimal, Required: true, Min: &zero, Max: &maxMoney, MaxPlaces: MoneyPlaces},
		{Name: FieldAmount, Kind: KindInt, Required: true, Min: &zero, Max: &maxQuantity},
	}
}

// MarketSchema validates the demand coefficients and cost bounds. Empty fields take the defaults.
func MarketSchema(defaults map[string]string) Schema {
	return Schema{
		{Name: FieldAlpha, Kind: KindDecimal, Required: true, Min: &zero, Max: &maxCoeff, MaxPlaces: CoefficientPlaces, Default: defaults[FieldAlpha]},
		{Name: FieldBeta, Kind: KindDecimal, Required: true, Min: &zero, Max: &maxCoeff, MaxPlaces: CoefficientPlaces, Default: defaults[FieldBeta]},
		{Name: FieldTheta, Kind: KindDecimal, Required: true, Min: &zero, Max: &maxCoeff, MaxPlaces: CoefficientPlaces, Default: defaults[FieldTheta]},
		{Name: FieldMinCost, Kind: KindDecimal, Required: true, Min: &zero, MinExcl: true, Max: &maxMoney, MaxPlaces: MoneyPlaces, Default: defaults[FieldMinCost]},
		{Name: FieldMaxCost, Kind: KindDecimal, Required: true, Min: &zero, MinExcl: true, Max: &maxMoney, MaxPlaces: MoneyPlaces, Default: defaults[FieldMaxCost]},
		{Name: FieldProductSingular, Kind: KindString, Max: Dec(16)},
		{Name: FieldProductPlural, Kind: KindString, Max: Dec(16)},
	}
}

// JoinSchema validates a trader's display name.
func JoinSchema() Schema {
	return Schema{
		{Name: FieldName, Kind: KindString, Required: true, Min: Dec(1), Max: Dec(16)},
	}
}
