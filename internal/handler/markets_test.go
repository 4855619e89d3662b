package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCreateMarketDefaults(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodPost, "/api/markets", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var m struct {
		ID    string          `json:"id"`
		Alpha decimal.Decimal `json:"alpha"`
		Beta  decimal.Decimal `json:"beta"`
		Round int64           `json:"round"`
	}
	if err := json.Unmarshal(env.Data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(m.ID) != 8 {
		t.Fatalf("expected 8-char id, got %q", m.ID)
	}
	if !m.Alpha.Equal(decimal.NewFromInt(105)) || !m.Beta.Equal(decimal.RequireFromString("17.5")) {
		t.Fatalf("unexpected coefficients alpha=%s beta=%s", m.Alpha, m.Beta)
	}
	if m.Round != 0 {
		t.Fatalf("expected round 0, got %d", m.Round)
	}
}

func TestCreateMarketAcceptsNumbersAndStrings(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodPost, "/api/markets", "", map[string]any{
		"alpha":    100,
		"beta":     "12.25",
		"min_cost": 2,
		"max_cost": "9.5",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateMarketRejectsInvertedCosts(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodPost, "/api/markets", "", map[string]any{"min_cost": 20, "max_cost": 10})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if env.Meta["field"] != "min_cost" {
		t.Fatalf("expected field min_cost, got %v", env.Meta["field"])
	}
}

func TestGetUnknownMarket(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/markets/NOPE", "/api/markets/NOPE/round", "/api/markets/NOPE/ready", "/api/markets/NOPE/traders"} {
		w, _ := s.do(t, http.MethodGet, path, "", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, w.Code)
		}
	}
}

func TestJoinListsTradersInOrder(t *testing.T) {
	s := newTestServer(t)
	id := s.createMarket(t)
	s.join(t, id, "Ann")
	s.join(t, id, "Bob")

	w, env := s.do(t, http.MethodGet, "/api/markets/"+id+"/traders", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var names []string
	if err := json.Unmarshal(env.Data, &names); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(names) != 2 || names[0] != "Ann" || names[1] != "Bob" {
		t.Fatalf("unexpected traders %v", names)
	}

	w, env = s.do(t, http.MethodGet, "/api/markets/"+id, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var view struct {
		Traders []struct {
			Name           string          `json:"name"`
			ProductionCost decimal.Decimal `json:"production_cost"`
		} `json:"traders"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Traders) != 2 || !view.Traders[0].ProductionCost.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("unexpected market view %+v", view)
	}
}

func TestJoinRejectsLongName(t *testing.T) {
	s := newTestServer(t)
	id := s.createMarket(t)
	w, env := s.do(t, http.MethodPost, "/api/markets/"+id+"/join", "", map[string]any{"name": "abcdefghijklmnopq"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if env.Meta["field"] != "name" {
		t.Fatalf("expected field name, got %v", env.Meta["field"])
	}
}

func TestReadyTracksSubmissions(t *testing.T) {
	s := newTestServer(t)
	id := s.createMarket(t)

	w, env := s.do(t, http.MethodGet, "/api/markets/"+id+"/ready", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var status struct {
		Ready     bool     `json:"ready"`
		Submitted []string `json:"submitted"`
	}
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Ready {
		t.Fatalf("empty market must not be ready")
	}

	ann := s.join(t, id, "Ann")
	s.join(t, id, "Bob")
	if w, _ := s.do(t, http.MethodPost, "/api/markets/"+id+"/trades", ann.Token, map[string]any{"round": 0, "price": 10, "amount": 45}); w.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", w.Code, w.Body.String())
	}

	_, env = s.do(t, http.MethodGet, "/api/markets/"+id+"/ready?round=0", "", nil)
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Ready || len(status.Submitted) != 1 || status.Submitted[0] != "Ann" {
		t.Fatalf("unexpected status %+v", status)
	}

	w, _ = s.do(t, http.MethodGet, "/api/markets/"+id+"/ready?round=x", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad round, got %d", w.Code)
	}
}

func TestFormValueBinding(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: `10.5`, want: "10.5"},
		{in: `"10.50"`, want: "10.50"},
		{in: `null`, want: ""},
		{in: `45`, want: "45"},
		{in: `"abc"`, want: "abc"},
		{in: `true`, wantErr: true},
		{in: `{}`, wantErr: true},
	}
	for _, tc := range cases {
		var v formValue
		err := json.Unmarshal([]byte(tc.in), &v)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if v.String() != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.in, tc.want, v.String())
		}
	}
}
