package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"hst-backend/internal/application/audit"
	certsvc "hst-backend/internal/application/certificates"
	"hst-backend/internal/application/counters"
	donsvc "hst-backend/internal/application/donations"
	donorsvc "hst-backend/internal/application/donors"
	healthsvc "hst-backend/internal/application/health"
	settingssvc "hst-backend/internal/application/settings"
	"hst-backend/internal/config"
	"hst-backend/internal/domain"
	"hst-backend/internal/infrastructure/artifacts"
	"hst-backend/internal/infrastructure/database"
	"hst-backend/internal/infrastructure/metrics"
	"hst-backend/internal/infrastructure/renderer"
	certhandler "hst-backend/internal/interfaces/handlers/certificates"
	donhandler "hst-backend/internal/interfaces/handlers/donations"
	donorhandler "hst-backend/internal/interfaces/handlers/donors"
	healthhandler "hst-backend/internal/interfaces/handlers/health"
	settingshandler "hst-backend/internal/interfaces/handlers/settings"
	"hst-backend/internal/middleware"
	"hst-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) PingContext(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Services is the wired application. Close releases what CreateApp opened.
type Services struct {
	DB       *gorm.DB
	Rdb      *redis.Client
	Registry *prometheus.Registry

	Counters  *counters.Store
	Donors    *donorsvc.Resolver
	Settings  *settingssvc.Service
	Issuer    *certsvc.Issuer
	Donations *donsvc.Service
	Health    *healthsvc.Checker
	Audit     *audit.Publisher
}

// Options overrides the infrastructure BuildServices would otherwise derive
// from config.
type Options struct {
	Renderer  certsvc.Renderer
	Artifacts artifacts.Store
}

// BuildServices wires every service on top of an open database and an
// optional Redis client.
func BuildServices(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, opts Options) (*Services, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store := opts.Artifacts
	if store == nil {
		if cfg.ArtifactBucket != "" {
			s3Store, err := artifacts.NewS3Store(ctx, cfg.ArtifactBucket, cfg.AWSRegion)
			if err != nil {
				return nil, err
			}
			store = s3Store
		} else {
			store = artifacts.NewFileStore(cfg.ArtifactDir)
		}
	}
	render := opts.Renderer
	if render == nil {
		render = &renderer.HTTPClient{
			BaseURL: cfg.RendererURL,
			APIKey:  cfg.RendererAPIKey,
			Client:  &http.Client{Timeout: cfg.RenderTimeout + 5*time.Second},
		}
	}

	pub := audit.NewPublisher(db, 256, m)
	pub.Start()

	s := &Services{DB: db, Rdb: rdb, Registry: reg, Audit: pub}
	s.Counters = &counters.Store{DB: db, LockTimeout: cfg.CounterLockTimeout}
	s.Donors = &donorsvc.Resolver{DB: db, Metrics: m}
	if cfg.DonorResolveLock {
		if rdb == nil {
			log.Warn().Msg("DONOR_RESOLVE_LOCK set without REDIS_URL; donor resolution runs unlocked")
		} else {
			s.Donors.Locker = &donorsvc.RedisLocker{Rdb: rdb}
		}
	}
	s.Settings = &settingssvc.Service{
		DB:    db,
		Audit: pub,
		Defaults: domain.OrgSettings{
			OrgName:           cfg.Org.Name,
			CertificatePrefix: cfg.CertificatePrefix,
			RegistrationNo:    cfg.Org.RegistrationNo,
			OrgPAN:            cfg.Org.PAN,
			Address:           cfg.Org.Address,
			SignatoryName:     cfg.Org.SignatoryName,
			SignatoryTitle:    cfg.Org.SignatoryTitle,
		},
	}
	s.Issuer = &certsvc.Issuer{
		DB:            db,
		Counters:      s.Counters,
		Renderer:      render,
		Artifacts:     store,
		Settings:      s.Settings,
		Audit:         pub,
		Metrics:       m,
		RenderSlots:   certsvc.NewRenderSlots(cfg.RenderConcurrency),
		RenderTimeout: cfg.RenderTimeout,
	}
	s.Donations = &donsvc.Service{
		DB:           db,
		Donors:       s.Donors,
		Certificates: s.Issuer,
		MinAmount:    cfg.MinDonationAmount,
		Audit:        pub,
		Metrics:      m,
	}
	s.Health = &healthsvc.Checker{DB: &gormDBPinger{db: db}, Rdb: rdb, RendererURL: cfg.RendererURL}
	return s, nil
}

func (s *Services) Close() {
	s.Audit.Close()
	if s.Rdb != nil {
		_ = s.Rdb.Close()
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// CreateApp opens the database and Redis from cfg and returns the mounted app.
func CreateApp(cfg *config.Config) (*fiber.App, *Services, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("database URL is not configured")
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rdb = redis.NewClient(opt)
	} else {
		log.Warn().Msg("REDIS_URL not set; staff sessions and request stats are disabled")
	}

	svcs, err := BuildServices(context.Background(), cfg, db, rdb, Options{})
	if err != nil {
		return nil, nil, err
	}
	return NewApp(cfg, svcs), svcs, nil
}

// NewApp mounts middleware and routes over svcs.
func NewApp(cfg *config.Config, svcs *Services) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.HealthMarker(svcs.Rdb))
	app.Use(middleware.Session(svcs.Rdb, middleware.SessionConfig{Secret: cfg.SessionSecret}))

	hh := &healthhandler.Handlers{Checker: svcs.Health, Rdb: svcs.Rdb, HealthAdminKey: cfg.HealthAdminKey}
	app.Get("/health/live", hh.Live)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/health/reset", hh.Reset)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(svcs.Registry, promhttp.HandlerOpts{})))

	dh := &donhandler.Handlers{Service: svcs.Donations}
	app.Post("/api/v1/donations/submit", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	}), dh.Submit)

	dg := app.Group("/api/v1/donations", middleware.RequireAuth())
	dg.Post("/direct-certificate", middleware.AuthorizePermission(constants.IssueCertificates), dh.CreateDirect)
	dg.Patch("/:id/status", middleware.AuthorizePermission(constants.VerifyDonations), dh.UpdateStatus)
	dg.Get("/", middleware.AuthorizePermission(constants.ViewData), dh.List)
	dg.Get("/:id", middleware.AuthorizePermission(constants.ViewData), dh.Get)

	ch := &certhandler.Handlers{Issuer: svcs.Issuer, CounterStore: svcs.Counters}
	cg := app.Group("/api/v1/certificates", middleware.RequireAuth())
	cg.Post("/issue", middleware.AuthorizePermission(constants.IssueCertificates), ch.Issue)
	cg.Post("/preview", middleware.AuthorizePermission(constants.ViewData), ch.Preview)
	cg.Get("/counters", middleware.AuthorizePermission(constants.ViewData), ch.Counters)
	cg.Get("/by-donation/:id", middleware.AuthorizePermission(constants.ViewData), ch.GetByDonation)
	cg.Post("/:id/void", middleware.AuthorizePermission(constants.VoidCertificates), ch.Void)
	cg.Get("/", middleware.AuthorizePermission(constants.ViewData), ch.List)
	cg.Get("/:id", middleware.AuthorizePermission(constants.ViewData), ch.Get)

	drh := &donorhandler.Handlers{Resolver: svcs.Donors}
	drg := app.Group("/api/v1/donors", middleware.RequireAuth())
	drg.Post("/resolve", middleware.AuthorizePermission(constants.ManageDonors), drh.Resolve)
	drg.Get("/", middleware.AuthorizePermission(constants.ViewData), drh.List)
	drg.Get("/:id", middleware.AuthorizePermission(constants.ViewData), drh.Get)

	sh := &settingshandler.Handlers{Service: svcs.Settings}
	sg := app.Group("/api/v1/settings", middleware.RequireAuth())
	sg.Get("/", middleware.AuthorizePermission(constants.ViewData), sh.Get)
	sg.Put("/", middleware.AuthorizePermission(constants.UpdateSettings), sh.Update)

	return app
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
