// Package app assembles the service from its configuration. It is shared by
// the standalone server, the serverless entrypoint and the console tool.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dpm2/maintenance-api/internal/config"
	"github.com/dpm2/maintenance-api/internal/logger"
	"github.com/dpm2/maintenance-api/internal/metrics"
	"github.com/dpm2/maintenance-api/pkg/auth"
	"github.com/dpm2/maintenance-api/pkg/database"
	"github.com/dpm2/maintenance-api/pkg/dispatch"
	"github.com/dpm2/maintenance-api/pkg/handlers"
	"github.com/dpm2/maintenance-api/pkg/notify"
)

// App is a fully wired service
type App struct {
	Config     *config.Config
	Store      *database.Store
	Auth       *auth.Authenticator
	Dispatcher *dispatch.Dispatcher
	Registry   *prometheus.Registry
	Log        zerolog.Logger
}

// New opens the database, seeds the first admin and wires the dispatcher
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger.SetLevel(cfg.LogLevel)
	log := logger.New("app")

	db, err := database.Open(database.Options{
		DSN:     cfg.DatabaseURL,
		Path:    cfg.DataPath,
		Verbose: strings.EqualFold(cfg.LogLevel, "debug"),
	})
	if err != nil {
		return nil, err
	}
	store := database.NewStore(db)

	jwtSecret, err := secretOrRandom(cfg.JWTSecret, "JWT_SECRET", log)
	if err != nil {
		return nil, err
	}
	master, err := secretOrRandom(cfg.APIMasterSecret, "API_MASTER_SECRET", log)
	if err != nil {
		return nil, err
	}

	created, err := auth.EnsureAdminExists(ctx, store, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("ensure admin: %w", err)
	}
	if created {
		log.Info().Str("email", cfg.AdminEmail).Msg("created initial admin account")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewDispatch(reg)
	if err != nil {
		return nil, err
	}

	dlog := logger.New("dispatch")
	return &App{
		Config:     cfg,
		Store:      store,
		Auth:       auth.New(jwtSecret, master),
		Dispatcher: NewDispatcher(cfg.Dispatch, store, &dlog, m),
		Registry:   reg,
		Log:        log,
	}, nil
}

// NewDispatcher builds a dispatcher with the configured distance estimator
func NewDispatcher(cfg config.DispatchConfig, store dispatch.Store, log *zerolog.Logger, m dispatch.Metrics) *dispatch.Dispatcher {
	var distance dispatch.DistanceEstimator
	switch cfg.Distance {
	case config.DistanceFixed:
		distance = dispatch.FixedDistance(cfg.FixedDistance)
	case config.DistanceGeo:
		distance = dispatch.GeoDistance{RadiusKm: cfg.GeoRadiusKm, Fallback: dispatch.NewRandomDistance(nil)}
	default:
		distance = dispatch.NewRandomDistance(nil)
	}
	return dispatch.NewDispatcher(store, dispatch.Options{
		Scorer:      dispatch.NewScorer(cfg.MaxUrgency, distance),
		Selector:    dispatch.NewSelector(cfg.TieEpsilon, nil),
		MaxAttempts: cfg.MaxAttempts,
		Logger:      log,
		Metrics:     m,
	})
}

// Engine returns the gin engine serving the HTTP API
func (a *App) Engine() (*gin.Engine, error) {
	if err := handlers.RegisterValidators(a.Config.Dispatch.MaxUrgency); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	mailer := notify.New(notify.SMTPConfig{
		Host:     a.Config.SMTP.Host,
		Port:     a.Config.SMTP.Port,
		Username: a.Config.SMTP.Username,
		Password: a.Config.SMTP.Password,
		From:     a.Config.SMTP.From,
	}, logger.New("mail"))

	h := &handlers.Handler{
		Store:      a.Store,
		Auth:       a.Auth,
		Dispatcher: a.Dispatcher,
		Mailer:     mailer,
		Log:        logger.New("http"),
	}

	r := gin.New()
	r.Use(h.RequestID(), h.RequestLogger(), gin.Recovery())
	h.Register(r, promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	return r, nil
}

// Close releases the database connection
func (a *App) Close() error {
	sqlDB, err := a.Store.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func secretOrRandom(v, name string, log zerolog.Logger) (string, error) {
	if v != "" {
		return v, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate %s: %w", name, err)
	}
	log.Warn().Str("key", name).Msg("secret not set, using a random per-process value")
	return hex.EncodeToString(b), nil
}
