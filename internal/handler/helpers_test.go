package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"

	"marketsim/internal/cache"
	"marketsim/internal/config"
	"marketsim/internal/db"
	gormrepository "marketsim/internal/repository/gorm"
	"marketsim/internal/service"
	"marketsim/internal/session"
)

type testServer struct {
	engine   *gin.Engine
	store    *gormrepository.Store
	signer   *session.Signer
	settings *service.SystemSettingsService
	conn     *db.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + filepath.Join(t.TempDir(), "market.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := db.OpenDialector(sqlite.Open(dsn), config.DBConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := gormrepository.New(conn.Gorm)

	signer, _, err := session.NewSigner(config.SessionConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	cfg := config.MarketConfig{
		InitialBalance: "5000",
		IDLength:       8,
		IDAlphabet:     "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		IDMaxAttempts:  16,
	}
	markets := &service.MarketRegistry{Repo: store, Config: cfg, IDs: service.NewMarketIDAllocator(cfg)}
	// Always draw min_cost + 3.00, so default markets give every trader a cost of 8.
	traders := &service.TraderRegistry{Repo: store, Config: cfg, Int64N: func(n int64) int64 {
		if n > 300 {
			return 300
		}
		return n - 1
	}}
	readiness := &service.ReadinessService{Repo: store}
	settings := &service.SystemSettingsService{Repo: store}

	r := gin.New()
	r.Use(session.Attach(signer))
	(&HealthHandler{DB: conn.Gorm}).Register(r)
	RegisterDocs(r)
	(&MarketHandler{Markets: markets, Traders: traders, Readiness: readiness, Sessions: signer}).Register(r)
	(&TradeHandler{Trades: &service.TradeService{Repo: store}, Traders: traders}).Register(r)
	(&SettlementHandler{
		Settlement: &service.SettlementService{Repo: store},
		History:    &service.HistoryService{Repo: store, Cache: cache.NewMemoryStore()},
	}).Register(r)
	(&StreamHandler{Readiness: readiness, Flags: settings}).Register(r)
	(&SystemSettingsHandler{Repo: store, Settings: settings}).Register(r)

	return &testServer{engine: r, store: store, signer: signer, settings: settings, conn: conn}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if ct := w.Header().Get("Content-Type"); len(ct) >= 16 && ct[:16] == "application/json" {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w, env
}

func (s *testServer) createMarket(t *testing.T) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/markets", "", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("create market: %d %s", w.Code, w.Body.String())
	}
	var m struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &m); err != nil {
		t.Fatalf("decode market: %v", err)
	}
	return m.ID
}

type joined struct {
	TraderID uint64
	Token    string
}

func (s *testServer) join(t *testing.T, marketID, name string) joined {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/markets/"+marketID+"/join", "", map[string]any{"name": name})
	if w.Code != http.StatusOK {
		t.Fatalf("join %s: %d %s", name, w.Code, w.Body.String())
	}
	var resp struct {
		Trader struct {
			ID uint64 `json:"id"`
		} `json:"trader"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode join: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("join %s returned no token", name)
	}
	return joined{TraderID: resp.Trader.ID, Token: resp.Token}
}
