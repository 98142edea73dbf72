package controllers

import (
	"net/http"

	"github.com/migratemate/retention-backend/api/responses"
	"github.com/migratemate/retention-backend/internal/analytics"
	pkgerrors "github.com/migratemate/retention-backend/pkg/errors"
	"github.com/migratemate/retention-backend/pkg/logger"
)

func AnalyticsSnapshot(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		snapshot, err := svc.Snapshot(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}
