package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"pgregory.net/rapid"

	"marketsim/internal/audit"
	"marketsim/internal/clearing"
	"marketsim/internal/config"
	"marketsim/internal/models"
	"marketsim/internal/repository"
)

func TestSettleRoundTwoTraderScenario(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	m := e.createMarket(t)
	a := e.join(t, m.ID, "A")
	b := e.join(t, m.ID, "B")
	if !a.ProductionCost.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("production cost=%s want=8", a.ProductionCost)
	}
	e.submit(t, a, 0, "10", "45")

	res, err := e.settlement.SettleRound(ctx, m.ID, 0)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !res.Settled || res.Round != 0 || res.NextRound != 1 {
		t.Fatalf("result=%+v", res)
	}
	if res.Forced != 1 {
		t.Fatalf("forced=%d want=1", res.Forced)
	}
	if !res.AvgPrice.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("avg=%s want=5", res.AvgPrice)
	}
	if res.SettlementID == "" {
		t.Fatalf("settlement id is empty")
	}
	if len(res.Stats) != 2 {
		t.Fatalf("stats=%d want=2", len(res.Stats))
	}
	sa, sb := res.Stats[0], res.Stats[1]
	if sa.TraderID != a.ID || sb.TraderID != b.ID {
		t.Fatalf("stats not in join order: %d,%d", sa.TraderID, sb.TraderID)
	}
	if !sa.Profit.Equal(decimal.NewFromInt(-331)) || !sa.Bank.Equal(decimal.NewFromInt(4669)) {
		t.Fatalf("A profit=%s bank=%s want=-331,4669", sa.Profit, sa.Bank)
	}
	if !sb.Profit.IsZero() || !sb.Bank.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("B profit=%s bank=%s want=0,5000", sb.Profit, sb.Bank)
	}

	round, err := e.markets.CurrentRound(ctx, m.ID)
	if err != nil || round != 1 {
		t.Fatalf("round=%d err=%v want=1", round, err)
	}
	gotA, _ := e.traders.GetTrader(ctx, a.ID)
	if !gotA.Balance.Equal(decimal.NewFromInt(4669)) {
		t.Fatalf("A balance=%s want=4669", gotA.Balance)
	}

	tradesA, _ := e.traders.TraderTrades(ctx, a.ID)
	if len(tradesA) != 1 || tradesA[0].WasForced {
		t.Fatalf("A trades=%+v", tradesA)
	}
	if tradesA[0].Profit == nil || !tradesA[0].Profit.Equal(decimal.NewFromInt(-331)) {
		t.Fatalf("A trade profit=%v want=-331", tradesA[0].Profit)
	}
	if tradesA[0].BalanceAfter == nil || !tradesA[0].BalanceAfter.Equal(decimal.NewFromInt(4669)) {
		t.Fatalf("A trade balance_after=%v want=4669", tradesA[0].BalanceAfter)
	}
	tradesB, _ := e.traders.TraderTrades(ctx, b.ID)
	if len(tradesB) != 1 || !tradesB[0].WasForced || tradesB[0].UnitAmount != 0 || !tradesB[0].UnitPrice.IsZero() {
		t.Fatalf("B trades=%+v", tradesB)
	}
}

func TestSettleRoundTwiceIsNoop(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	m := e.createMarket(t)
	a := e.join(t, m.ID, "A")
	e.join(t, m.ID, "B")
	e.submit(t, a, 0, "10", "45")

	if _, err := e.settlement.SettleRound(ctx, m.ID, 0); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	res, err := e.settlement.SettleRound(ctx, m.ID, 0)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if res.Settled {
		t.Fatalf("second settle reported Settled=true")
	}
	if res.NextRound != 1 {
		t.Fatalf("next round=%d want=1", res.NextRound)
	}
	round, _ := e.markets.CurrentRound(ctx, m.ID)
	if round != 1 {
		t.Fatalf("round=%d want=1", round)
	}
	n, err := e.store.CountRoundStats(ctx, m.ID, 0)
	if err != nil || n != 2 {
		t.Fatalf("round stats=%d err=%v want=2", n, err)
	}
	gotA, _ := e.traders.GetTrader(ctx, a.ID)
	if !gotA.Balance.Equal(decimal.NewFromInt(4669)) {
		t.Fatalf("A balance=%s want=4669 after retrigger", gotA.Balance)
	}
}

func TestSettleInternalStaleError(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	m := e.createMarket(t)
	if _, err := e.settlement.settle(ctx, m.ID, 3); !errors.Is(err, ErrStaleSettlement) {
		t.Fatalf("err=%v want ErrStaleSettlement", err)
	}
}

func TestSettleUnknownMarket(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.settlement.SettleRound(context.Background(), "NOPENOPE", 0); !errors.Is(err, ErrMarketNotFound) {
		t.Fatalf("err=%v want ErrMarketNotFound", err)
	}
	if _, err := e.settlement.SettleCurrent(context.Background(), "NOPENOPE"); !errors.Is(err, ErrMarketNotFound) {
		t.Fatalf("err=%v want ErrMarketNotFound", err)
	}
}

func TestSettleEmptyMarketAdvances(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	m := e.createMarket(t)
	res, err := e.settlement.SettleCurrent(ctx, m.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !res.Settled || len(res.Stats) != 0 || !res.AvgPrice.IsZero() {
		t.Fatalf("result=%+v", res)
	}
	round, _ := e.markets.CurrentRound(ctx, m.ID)
	if round != 1 {
		t.Fatalf("round=%d want=1", round)
	}
}

func TestSettleBalancesAcrossRounds(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	m := e.createMarket(t)
	a := e.join(t, m.ID, "A")
	b := e.join(t, m.ID, "B")

	e.submit(t, a, 0, "6", "20")
	e.submit(t, b, 0, "7.5", "10")
	if _, err := e.settlement.SettleRound(ctx, m.ID, 0); err != nil {
		t.Fatalf("settle 0: %v", err)
	}
	e.submit(t, b, 1, "4.25", "30")
	if _, err := e.settlement.SettleRound(ctx, m.ID, 1); err != nil {
		t.Fatalf("settle 1: %v", err)
	}

	stats, err := e.store.ListRoundStats(ctx, m.ID)
	if err != nil {
		t.Fatalf("list stats: %v", err)
	}
	if len(stats) != 4 {
		t.Fatalf("stats=%d want=4", len(stats))
	}
	for _, tr := range []*models.Trader{a, b} {
		want := decimal.NewFromInt(5000)
		last := decimal.Zero
		for _, st := range stats {
			if st.TraderID != tr.ID {
				continue
			}
			want = want.Add(st.Profit)
			if !st.Bank.Equal(want) {
				t.Fatalf("%s round %d bank=%s want=%s", tr.Name, st.Round, st.Bank, want)
			}
			last = st.Bank
		}
		got, _ := e.traders.GetTrader(ctx, tr.ID)
		if !got.Balance.Equal(last) {
			t.Fatalf("%s balance=%s want=%s", tr.Name, got.Balance, last)
		}
	}
}

var errWriteFailed = errors.New("write failed")

// failingRepo fails the nth call of one settlement write and passes everything else through.
type failingRepo struct {
	repository.Repository
	failOn string
	n      int
	calls  int
}

func (r *failingRepo) hit(op string) bool {
	if r.failOn != op {
		return false
	}
	r.calls++
	return r.calls == r.n
}

func (r *failingRepo) UpdateTradeResultTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error {
	if r.hit("trade_result") {
		return errWriteFailed
	}
	return r.Repository.UpdateTradeResultTx(ctx, tx, item)
}

func (r *failingRepo) InsertRoundStatsTx(ctx context.Context, tx *gorm.DB, items []models.RoundStat) error {
	if r.hit("round_stats") {
		return errWriteFailed
	}
	return r.Repository.InsertRoundStatsTx(ctx, tx, items)
}

func TestSettleRollsBackOnWriteFailure(t *testing.T) {
	cases := []struct {
		failOn string
		n      int
	}{
		{"trade_result", 2},
		{"round_stats", 1},
	}
	for _, tc := range cases {
		t.Run(tc.failOn, func(t *testing.T) {
			ctx := context.Background()
			e := newTestEngine(t)
			m := e.createMarket(t)
			a := e.join(t, m.ID, "A")
			b := e.join(t, m.ID, "B")
			e.submit(t, a, 0, "10", "45")

			svc := &SettlementService{Repo: &failingRepo{Repository: e.store, failOn: tc.failOn, n: tc.n}}
			if _, err := svc.SettleRound(ctx, m.ID, 0); !errors.Is(err, errWriteFailed) {
				t.Fatalf("err=%v want errWriteFailed", err)
			}

			round, _ := e.markets.CurrentRound(ctx, m.ID)
			if round != 0 {
				t.Fatalf("round=%d want=0", round)
			}
			tradesB, err := e.store.ListTradesByTrader(ctx, b.ID)
			if err != nil || len(tradesB) != 0 {
				t.Fatalf("B trades=%+v err=%v want none", tradesB, err)
			}
			gotA, _ := e.store.GetTrader(ctx, a.ID)
			if !gotA.Balance.Equal(decimal.NewFromInt(5000)) {
				t.Fatalf("A balance=%s want=5000", gotA.Balance)
			}
			tradesA, _ := e.store.ListTradesByTrader(ctx, a.ID)
			if len(tradesA) != 1 || tradesA[0].Profit != nil || tradesA[0].BalanceAfter != nil {
				t.Fatalf("A trades=%+v want one unsettled", tradesA)
			}
			n, err := e.store.CountRoundStats(ctx, m.ID, 0)
			if err != nil || n != 0 {
				t.Fatalf("round stats=%d err=%v want=0", n, err)
			}

			res, err := e.settlement.SettleRound(ctx, m.ID, 0)
			if err != nil || !res.Settled || res.Forced != 1 {
				t.Fatalf("retry result=%+v err=%v", res, err)
			}
			if !res.Stats[0].Bank.Equal(decimal.NewFromInt(4669)) {
				t.Fatalf("A bank=%s want=4669", res.Stats[0].Bank)
			}
		})
	}
}

func TestSettleAtInputCaps(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	m, err := e.markets.CreateMarket(ctx, CreateMarketInput{
		Alpha:   "9999999999.9999",
		Beta:    "0",
		Theta:   "0",
		MinCost: "1000000000",
		MaxCost: "1000000000",
	})
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	a := e.join(t, m.ID, "A")
	b := e.join(t, m.ID, "B")
	if !a.ProductionCost.Equal(decimal.NewFromInt(1_000_000_000)) {
		t.Fatalf("production cost=%s want=1000000000", a.ProductionCost)
	}

	for round := int64(0); round < 2; round++ {
		e.submit(t, a, round, "1000000000", "1000000000")
		e.submit(t, b, round, "0", "1000000000")
		res, err := e.settlement.SettleRound(ctx, m.ID, round)
		if err != nil || !res.Settled {
			t.Fatalf("settle %d: res=%+v err=%v", round, res, err)
		}
		if !res.AvgPrice.Equal(decimal.NewFromInt(500_000_000)) {
			t.Fatalf("avg=%s want=500000000", res.AvgPrice)
		}
		// A sells everything: 1e18 income against 1e18 expenses. B sells nothing.
		if !res.Stats[0].Profit.IsZero() {
			t.Fatalf("A profit=%s want=0", res.Stats[0].Profit)
		}
		if !res.Stats[1].Profit.Equal(decimal.RequireFromString("-1000000000000000000")) {
			t.Fatalf("B profit=%s want=-1e18", res.Stats[1].Profit)
		}
	}

	want := decimal.RequireFromString("-1999999999999995000")
	gotB, _ := e.store.GetTrader(ctx, b.ID)
	if !gotB.Balance.Equal(want) {
		t.Fatalf("B balance=%s want=%s", gotB.Balance, want)
	}
	stats, _ := e.store.ListRoundStats(ctx, m.ID)
	if len(stats) != 4 || !stats[3].Bank.Equal(want) {
		t.Fatalf("stats=%+v want last bank %s", stats, want)
	}
	tradesB, _ := e.store.ListTradesByTrader(ctx, b.ID)
	last := tradesB[len(tradesB)-1]
	if last.BalanceAfter == nil || !last.BalanceAfter.Equal(want) {
		t.Fatalf("B balance_after=%v want=%s", last.BalanceAfter, want)
	}
}

func TestSettleDoesNotWaitForAudit(t *testing.T) {
	release := make(chan struct{})
	received := make(chan audit.Entry, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
	})
	mux.HandleFunc("/api/v1/logs", func(w http.ResponseWriter, r *http.Request) {
		<-release
		var entry audit.Entry
		_ = json.NewDecoder(r.Body).Decode(&entry)
		received <- entry
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()

	ctx := context.Background()
	e := newTestEngine(t)
	e.settlement.Audit = audit.New(config.AuditConfig{BaseURL: srv.URL, APIKey: "k", Timeout: 10 * time.Second}, nil)
	m := e.createMarket(t)
	e.join(t, m.ID, "A")

	start := time.Now()
	res, err := e.settlement.SettleRound(ctx, m.ID, 0)
	if err != nil || !res.Settled {
		t.Fatalf("settle: res=%+v err=%v", res, err)
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Fatalf("settle waited %s on the audit collector", took)
	}

	close(release)
	select {
	case entry := <-received:
		if entry.Action != "round_settled" || entry.Details["market_id"] != m.ID {
			t.Fatalf("entry=%+v", entry)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("audit entry never arrived")
	}
}

// Every trader ends a settled round with exactly one trade, and profits follow the
// demand curve against the round average.
func TestPropertySettlementCompleteness(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	rapid.Check(t, func(rt *rapid.T) {
		m, err := e.markets.CreateMarket(ctx, CreateMarketInput{})
		if err != nil {
			rt.Fatalf("create market: %v", err)
		}
		n := rapid.IntRange(0, 5).Draw(rt, "traders")
		traders := make([]*models.Trader, 0, n)
		for i := 0; i < n; i++ {
			tr, err := e.traders.JoinMarket(ctx, m.ID, "T"+string(rune('a'+i)))
			if err != nil {
				rt.Fatalf("join: %v", err)
			}
			traders = append(traders, tr)
		}
		submitted := map[uint64]bool{}
		for _, tr := range traders {
			if !rapid.Bool().Draw(rt, "submits") {
				continue
			}
			price := decimal.New(rapid.Int64Range(0, 2000).Draw(rt, "price"), -2)
			amount := rapid.Int64Range(0, 100).Draw(rt, "amount")
			_, err := e.trades.Submit(ctx, SubmitTradeInput{
				TraderID: tr.ID, MarketID: m.ID, Round: 0,
				Price: price.String(), Amount: decimal.NewFromInt(amount).String(),
			})
			if err != nil {
				rt.Fatalf("submit: %v", err)
			}
			submitted[tr.ID] = true
		}

		res, err := e.settlement.SettleRound(ctx, m.ID, 0)
		if err != nil {
			rt.Fatalf("settle: %v", err)
		}
		if res.Forced != n-len(submitted) {
			rt.Fatalf("forced=%d want=%d", res.Forced, n-len(submitted))
		}
		if len(res.Stats) != n {
			rt.Fatalf("stats=%d want=%d", len(res.Stats), n)
		}
		for _, tr := range traders {
			trades, err := e.traders.TraderTrades(ctx, tr.ID)
			if err != nil {
				rt.Fatalf("trades: %v", err)
			}
			if len(trades) != 1 {
				rt.Fatalf("trader %d has %d trades for round 0", tr.ID, len(trades))
			}
			if trades[0].WasForced == submitted[tr.ID] {
				rt.Fatalf("trader %d forced=%v submitted=%v", tr.ID, trades[0].WasForced, submitted[tr.ID])
			}
		}
		mean := clearing.Mean{Count: int64(len(res.Stats))}
		for _, st := range res.Stats {
			mean.Sum = mean.Sum.Add(st.Price)
		}
		coeffs := clearing.Coefficients{Alpha: m.Alpha, Beta: m.Beta, Theta: m.Theta}
		for _, st := range res.Stats {
			var cost decimal.Decimal
			for _, tr := range traders {
				if tr.ID == st.TraderID {
					cost = tr.ProductionCost
				}
			}
			want := clearing.Clear(coeffs, mean, clearing.Offer{Price: st.Price, Amount: st.Amount, ProductionCost: cost}).Profit
			if !st.Profit.Equal(want) {
				rt.Fatalf("profit=%s want=%s", st.Profit, want)
			}
			if !st.Bank.Equal(decimal.NewFromInt(5000).Add(want)) {
				rt.Fatalf("bank=%s want=%s", st.Bank, decimal.NewFromInt(5000).Add(want))
			}
		}
		round, _ := e.markets.CurrentRound(ctx, m.ID)
		if round != 1 {
			rt.Fatalf("round=%d want=1", round)
		}
	})
}
