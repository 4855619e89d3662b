package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"marketsim/internal/audit"
	"marketsim/internal/cache"
	"marketsim/internal/config"
	cronrunner "marketsim/internal/cron"
	"marketsim/internal/db"
	"marketsim/internal/handler"
	"marketsim/internal/logger"
	gormrepository "marketsim/internal/repository/gorm"
	"marketsim/internal/service"
	"marketsim/internal/session"

	_ "marketsim/docs"
)

func main() {
	cfgPath := os.Getenv("MS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("MS_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	historyCache, err := cache.New(cfg.Cache)
	if err != nil {
		logger.Fatal("cache init failed", zap.Error(err))
	}
	checks := map[string]handler.Pinger{}
	if rs, ok := historyCache.(*cache.RedisStore); ok {
		defer rs.Close()
		checks["cache"] = rs
	}

	signer, generated, err := session.NewSigner(cfg.Session)
	if err != nil {
		logger.Fatal("session signer init failed", zap.Error(err))
	}
	if generated {
		logger.Warn("session.secret not set; using a random key, trader tokens will not survive a restart")
	}

	auditClient := audit.New(cfg.Audit, logger)

	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	marketRegistry := &service.MarketRegistry{
		Repo:   store,
		Config: cfg.Market,
		IDs:    service.NewMarketIDAllocator(cfg.Market),
		Logger: logger,
	}
	traderRegistry := &service.TraderRegistry{Repo: store, Config: cfg.Market, Logger: logger}
	tradeSvc := &service.TradeService{Repo: store, Logger: logger}
	readinessSvc := &service.ReadinessService{Repo: store}
	settlementSvc := &service.SettlementService{Repo: store, Logger: logger, Audit: auditClient}
	historySvc := &service.HistoryService{
		Repo:   store,
		Cache:  historyCache,
		TTL:    cfg.Cache.DefaultTTL,
		Logger: logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(handler.RequestID())
	engine.Use(handler.AccessLog(logger))
	engine.Use(session.Attach(signer))
	engine.Use(audit.WriteMiddleware(auditClient))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Checks: checks}
	healthHandler.Register(engine)
	handler.RegisterDocs(engine)

	marketHandler := &handler.MarketHandler{
		Markets:   marketRegistry,
		Traders:   traderRegistry,
		Readiness: readinessSvc,
		Sessions:  signer,
		Logger:    logger,
	}
	marketHandler.Register(engine)
	tradeHandler := &handler.TradeHandler{Trades: tradeSvc, Traders: traderRegistry, Logger: logger}
	tradeHandler.Register(engine)
	settlementHandler := &handler.SettlementHandler{
		Settlement: settlementSvc,
		History:    historySvc,
		Logger:     logger,
	}
	settlementHandler.Register(engine)
	streamHandler := &handler.StreamHandler{
		Readiness:    readinessSvc,
		Flags:        settingsSvc,
		PollInterval: cfg.Stream.PollInterval,
		WriteTimeout: cfg.Stream.WriteTimeout,
		Logger:       logger,
	}
	streamHandler.Register(engine)
	settingsHandler := &handler.SystemSettingsHandler{Repo: store, Settings: settingsSvc}
	settingsHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseCtx, baseCancel := context.WithCancel(ctx)
	defer baseCancel()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, baseCtx)
		autoSettler := &service.AutoSettler{
			Repo:       store,
			Settlement: settlementSvc,
			Flags:      settingsSvc,
			BatchSize:  cfg.Market.AutoSettle.BatchSize,
			Logger:     logger,
		}
		if _, err := cronRunner.Add("auto_settle", cfg.Cron.AutoSettle, autoSettler.RunOnceIfEnabled); err != nil {
			logger.Warn("cron register auto settle failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
