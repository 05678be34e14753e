package controllers

import (
	"net/http"
	"time"

	"github.com/saudamarket/storefront-backend/api/responses"
	"github.com/saudamarket/storefront-backend/pkg/db"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
	"github.com/saudamarket/storefront-backend/pkg/logger"
	"github.com/saudamarket/storefront-backend/pkg/redis"
)

// HealthLive answers liveness probes without touching dependencies.
func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// HealthReady answers readiness probes by pinging the datasource and redis.
func HealthReady(database db.Pinger, cache redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := newTimeoutContext(r, 2*time.Second)
		defer cancel()

		if database != nil {
			if err := database.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
