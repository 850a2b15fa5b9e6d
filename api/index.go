package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/dpm2/maintenance-api/internal/app"
	"github.com/dpm2/maintenance-api/internal/config"
	"github.com/dpm2/maintenance-api/internal/logger"
)

var (
	once   sync.Once
	engine http.Handler
)

func setup() {
	log := logger.New("serverless")
	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		engine = unavailable("invalid configuration")
		return
	}
	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Error().Err(err).Msg("could not initialise service")
		engine = unavailable("service unavailable")
		return
	}
	r, err := a.Engine()
	if err != nil {
		log.Error().Err(err).Msg("could not build router")
		engine = unavailable("service unavailable")
		return
	}
	engine = r
}

func unavailable(msg string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
	})
}

// Handler is the entry point for the Vercel Go runtime
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(setup)
	engine.ServeHTTP(w, r)
}
