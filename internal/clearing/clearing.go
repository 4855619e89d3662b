// Package clearing holds the pure settlement arithmetic: the mean-field demand curve
// and the per-offer income, expenses and profit it produces.
package clearing

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places kept for profits and balances.
const MoneyPlaces int32 = 2

// displayPlaces bounds the reported average, demand and income when the
// division by the offer count does not terminate.
const displayPlaces int32 = 16

type Coefficients struct {
	Alpha decimal.Decimal
	Beta  decimal.Decimal
	Theta decimal.Decimal
}

// Offer is one trade as seen by the clearing step.
type Offer struct {
	TraderID       uint64
	Price          decimal.Decimal
	Amount         int64
	ProductionCost decimal.Decimal
}

type Outcome struct {
	TraderID uint64
	Demand   decimal.Decimal
	Realized decimal.Decimal
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Profit   decimal.Decimal
}

// Mean is the round's price total and offer count. The mean itself is never
// materialized during clearing; every quantity is scaled by Count and divided once.
type Mean struct {
	Sum   decimal.Decimal
	Count int64
}

func MeanPrice(offers []Offer) Mean {
	m := Mean{Sum: decimal.Zero}
	for _, o := range offers {
		m.Sum = m.Sum.Add(o.Price)
		m.Count++
	}
	return m
}

func (m Mean) divisor() decimal.Decimal {
	if m.Count <= 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(m.Count)
}

// Value is Sum/Count, zero for no offers.
func (m Mean) Value() decimal.Decimal {
	if m.Count <= 0 {
		return decimal.Zero
	}
	return m.Sum.DivRound(m.divisor(), displayPlaces)
}

// AveragePrice is the arithmetic mean of the offer prices, zero for no offers.
func AveragePrice(offers []Offer) decimal.Decimal {
	return MeanPrice(offers).Value()
}

// scaledDemand is Count*(alpha - beta*price) + theta*Sum, i.e. demand times Count.
// It is exact for any decimal inputs.
func scaledDemand(c Coefficients, price decimal.Decimal, m Mean) decimal.Decimal {
	return c.Alpha.Sub(c.Beta.Mul(price)).Mul(m.divisor()).Add(c.Theta.Mul(m.Sum))
}

// Demand evaluates alpha - beta*price + theta*mean. The result may be negative.
func Demand(c Coefficients, price decimal.Decimal, m Mean) decimal.Decimal {
	return scaledDemand(c, price, m).DivRound(m.divisor(), displayPlaces)
}

func clamp(q, limit decimal.Decimal) decimal.Decimal {
	q = decimal.Min(q, limit)
	if q.IsNegative() {
		return decimal.Zero
	}
	return q
}

// Realized is the quantity actually sold: demand capped by the offered amount and
// floored at zero.
func Realized(demand decimal.Decimal, amount int64) decimal.Decimal {
	return clamp(demand, decimal.NewFromInt(amount))
}

// Clear computes the outcome of a single offer against the round mean.
// Expenses are charged on the full offered amount. Profit is rounded once, from
// the exact quotient.
func Clear(c Coefficients, m Mean, o Offer) Outcome {
	n := m.divisor()
	amount := decimal.NewFromInt(o.Amount)
	scaled := scaledDemand(c, o.Price, m)
	scaledRealized := clamp(scaled, amount.Mul(n))
	scaledIncome := o.Price.Mul(scaledRealized)
	expenses := o.ProductionCost.Mul(amount)
	return Outcome{
		TraderID: o.TraderID,
		Demand:   scaled.DivRound(n, displayPlaces),
		Realized: scaledRealized.DivRound(n, displayPlaces),
		Income:   scaledIncome.DivRound(n, displayPlaces),
		Expenses: expenses,
		Profit:   scaledIncome.Sub(expenses.Mul(n)).DivRound(n, MoneyPlaces),
	}
}

// ClearRound clears every offer against the mean price of the whole round and
// returns that mean alongside the outcomes.
func ClearRound(c Coefficients, offers []Offer) (decimal.Decimal, []Outcome) {
	m := MeanPrice(offers)
	out := make([]Outcome, 0, len(offers))
	for _, o := range offers {
		out = append(out, Clear(c, m, o))
	}
	return m.Value(), out
}
