package validation

import (
	"reflect"
	"regexp"
	"strconv"
	"testing"

	"marketsim/internal/models"
)

var numericTag = regexp.MustCompile(`numeric\((\d+),(\d+)\)`)

func columnDigits(t *testing.T, model any, field string) (int, int) {
	t.Helper()
	f, ok := reflect.TypeOf(model).FieldByName(field)
	if !ok {
		t.Fatalf("%T has no field %s", model, field)
	}
	m := numericTag.FindStringSubmatch(f.Tag.Get("gorm"))
	if m == nil {
		t.Fatalf("%T.%s is not a numeric column: %q", model, field, f.Tag.Get("gorm"))
	}
	p, _ := strconv.Atoi(m[1])
	s, _ := strconv.Atoi(m[2])
	return p, s
}

func TestInputColumnsHoldCapValues(t *testing.T) {
	intDigits := len(maxMoney.Truncate(0).String())
	cols := []struct {
		model any
		field string
	}{
		{models.Trade{}, "UnitPrice"},
		{models.RoundStat{}, "Price"},
		{models.Trader{}, "ProductionCost"},
		{models.Market{}, "MinCost"},
		{models.Market{}, "MaxCost"},
	}
	for _, c := range cols {
		p, s := columnDigits(t, c.model, c.field)
		if s != int(MoneyPlaces) || p-s < intDigits {
			t.Fatalf("%T.%s numeric(%d,%d) cannot hold %s", c.model, c.field, p, s, maxMoney)
		}
	}
}

func TestLedgerColumnsHoldRoundsAtCaps(t *testing.T) {
	// Room for a billion consecutive rounds at the largest swing.
	const rounds = 9
	intDigits := len(MaxRoundSwing().Truncate(0).String())
	if intDigits != 19 {
		t.Fatalf("swing digits=%d want=19", intDigits)
	}
	cols := []struct {
		model any
		field string
	}{
		{models.Trader{}, "Balance"},
		{models.Trade{}, "Profit"},
		{models.Trade{}, "BalanceAfter"},
		{models.RoundStat{}, "Profit"},
		{models.RoundStat{}, "Bank"},
	}
	for _, c := range cols {
		p, s := columnDigits(t, c.model, c.field)
		if s != int(MoneyPlaces) {
			t.Fatalf("%T.%s scale=%d want=%d", c.model, c.field, s, MoneyPlaces)
		}
		if p-s < intDigits+rounds {
			t.Fatalf("%T.%s numeric(%d,%d) leaves %d integer digits, need %d", c.model, c.field, p, s, p-s, intDigits+rounds)
		}
	}
}
