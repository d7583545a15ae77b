package router

import (
	"context"
	"fmt"

	"stocksim-backend/internal/application/accounts"
	authsvc "stocksim-backend/internal/application/auth"
	healthsvc "stocksim-backend/internal/application/health"
	"stocksim-backend/internal/application/ledger"
	portfoliosvc "stocksim-backend/internal/application/portfolio"
	"stocksim-backend/internal/application/pricesync"
	"stocksim-backend/internal/application/quotes"
	"stocksim-backend/internal/application/recommend"
	tradesvc "stocksim-backend/internal/application/trading"
	"stocksim-backend/internal/config"
	"stocksim-backend/internal/infrastructure/database"
	"stocksim-backend/internal/infrastructure/feed"
	adminhandler "stocksim-backend/internal/interfaces/handlers/admin"
	authhandler "stocksim-backend/internal/interfaces/handlers/auth"
	healthhandler "stocksim-backend/internal/interfaces/handlers/health"
	markethandler "stocksim-backend/internal/interfaces/handlers/market"
	portfoliohandler "stocksim-backend/internal/interfaces/handlers/portfolio"
	rechandler "stocksim-backend/internal/interfaces/handlers/recommendations"
	tradehandler "stocksim-backend/internal/interfaces/handlers/trading"
	"stocksim-backend/internal/middleware"
	"stocksim-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Deps are the long-lived pieces main needs besides the app.
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Sync      *pricesync.Synchronizer
	Scheduler *pricesync.Scheduler
}

// Close stops the scheduler and releases connections.
func (d *Deps) Close() {
	if d.Scheduler != nil {
		d.Scheduler.Stop()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// CreateApp opens storage, wires services and registers every route. The scheduler is
// returned unstarted.
func CreateApp(cfg *config.Config) (*fiber.App, *Deps, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	if cfg.SeedDefaults {
		if err := database.Seed(db); err != nil {
			return nil, nil, fmt.Errorf("seed: %w", err)
		}
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
		AllowLocal:    !cfg.IsProduction(),
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))

	// services
	ledgerStore := ledger.NewStore(db)
	quoteStore := &quotes.Store{DB: db}
	feedClient := feed.NewEastmoneyClient(feed.EastmoneyConfig{
		SpotBaseURL:    cfg.FeedSpotBaseURL,
		HistoryBaseURL: cfg.FeedHistoryBaseURL,
		Timeout:        cfg.FeedTimeout,
	})
	recorder := &pricesync.GormRecorder{DB: db}
	notifier := &pricesync.Notifier{}
	syncer := &pricesync.Synchronizer{
		Quotes:       quoteStore,
		Feed:         feedClient,
		Notifier:     notifier,
		Recorder:     recorder,
		FeedTimeout:  cfg.FeedTimeout,
		LookbackDays: cfg.HistoryLookbackDays,
	}
	recSvc := &recommend.Service{
		Quotes:      quoteStore,
		Feed:        feedClient,
		Cache:       &recommend.Cache{RDB: rdb, TTL: cfg.RecommendCacheTTL},
		FeedTimeout: cfg.FeedTimeout,
	}
	notifier.SetCallback(func(res pricesync.Result) {
		recSvc.Invalidate(context.Background())
		log.Info().Str("outcome", string(res.Outcome)).Int("failed", len(res.Failed)).Msg("sync finished")
	})
	accSvc := &accounts.Service{Ledger: ledgerStore}
	executor := &tradesvc.Executor{Ledger: ledgerStore, Quotes: quoteStore}

	// health
	hh := &healthhandler.Handlers{
		Probes: healthsvc.Probes{
			Redis: rdb,
			DB:    &gormDBPinger{db: db},
			Feed:  feedClient,
			Syncs: recorder,
		},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.JSON)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/health/reset", hh.Reset)

	api := app.Group("/api/v1")

	// auth
	ah := &authhandler.Handlers{
		Auth:     &authsvc.Service{Accounts: ledgerStore},
		Accounts: accSvc,
		Rdb:      rdb,
		Config:   sessionCfg,
	}
	ag := api.Group("/auth")
	ag.Post("/register", ah.Register)
	ag.Post("/login", ah.Login)
	ag.Get("/me", ah.Me)
	ag.Delete("/logout", ah.Logout)

	// trading
	th := &tradehandler.Handlers{Executor: executor}
	tg := api.Group("/trading", middleware.RequireAuth())
	tg.Post("/trade", middleware.AuthorizePermission(constants.Trade), th.Trade)

	// portfolio
	ph := &portfoliohandler.Handlers{Service: &portfoliosvc.Service{Ledger: ledgerStore, Quotes: quoteStore}}
	pg := api.Group("/portfolio", middleware.RequireAuth())
	pg.Get("/summary", ph.Summary)
	pg.Get("/holdings", ph.Holdings)
	pg.Get("/transactions", ph.Transactions)

	// market
	mh := &markethandler.Handlers{
		Quotes:      quoteStore,
		Feed:        feedClient,
		Syncer:      syncer,
		Runs:        recorder,
		FeedTimeout: cfg.FeedTimeout,
	}
	mg := api.Group("/market", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ViewMarket))
	mg.Get("/quotes", mh.ListQuotes)
	mg.Get("/quotes/search", mh.Search)
	mg.Get("/quotes/:code", mh.GetQuote)
	mg.Get("/history/:code", mh.History)
	mg.Post("/sync", middleware.AuthorizePermission(constants.TriggerSync), mh.Sync)
	mg.Get("/sync/runs", mh.SyncRuns)

	// recommendations
	rh := &rechandler.Handlers{Service: recSvc}
	rg := api.Group("/recommendations", middleware.RequireAuth(), middleware.AuthorizePermission(constants.ViewMarket))
	rg.Get("/", rh.List)
	rg.Get("/:code", rh.Get)

	// admin
	adm := &adminhandler.Handlers{Accounts: accSvc, Quotes: quoteStore, Rdb: rdb, Invalidator: recSvc}
	adg := api.Group("/admin", middleware.RequireAuth())
	adg.Get("/accounts", middleware.AuthorizePermission(constants.ManageAccounts), adm.ListAccounts)
	adg.Post("/accounts", middleware.AuthorizePermission(constants.ManageAccounts), adm.CreateAccount)
	adg.Get("/accounts/:username", middleware.AuthorizePermission(constants.ManageAccounts), adm.GetAccount)
	adg.Patch("/accounts/:username", middleware.AuthorizePermission(constants.ManageAccounts), adm.UpdateAccount)
	adg.Delete("/accounts/:username", middleware.AuthorizePermission(constants.ManageAccounts), adm.DeleteAccount)
	adg.Put("/quotes/:code", middleware.AuthorizePermission(constants.EditQuotes), adm.UpdateQuote)

	return app, &Deps{
		DB:        db,
		Redis:     rdb,
		Sync:      syncer,
		Scheduler: pricesync.NewScheduler(syncer),
	}, nil
}
