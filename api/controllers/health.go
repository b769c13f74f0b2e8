package controllers

import (
	"net/http"

	"github.com/gyoansoft/gyoan-backend/api/responses"
	"github.com/gyoansoft/gyoan-backend/pkg/config"
	"github.com/gyoansoft/gyoan-backend/pkg/db"
	pkgerrors "github.com/gyoansoft/gyoan-backend/pkg/errors"
	"github.com/gyoansoft/gyoan-backend/pkg/logger"
	"github.com/gyoansoft/gyoan-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gyoan-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports whether the API's backing services answer. The redis
// pinger may be nil when the in-memory cache is configured.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gyoan-Env", cfg.App.Env)

		checks := map[string]string{"database": "ok"}

		if dbP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database not configured"))
			return
		}
		if err := dbP.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
			return
		}

		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
			checks["redis"] = "ok"
		}

		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
