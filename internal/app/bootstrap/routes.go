// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	accessfeature "github.com/one-zero-eight/guard/internal/app/features/access"
	documentsfeature "github.com/one-zero-eight/guard/internal/app/features/documents"
	healthfeature "github.com/one-zero-eight/guard/internal/app/features/health"
	"github.com/one-zero-eight/guard/internal/app/grants"
	"github.com/one-zero-eight/guard/internal/app/store/audit"
	documentstore "github.com/one-zero-eight/guard/internal/app/store/documents"
	"github.com/one-zero-eight/guard/internal/app/system/auditlog"
	"github.com/one-zero-eight/guard/internal/app/system/auth"
	"github.com/one-zero-eight/guard/internal/app/system/gdrive"
	"github.com/one-zero-eight/guard/internal/app/system/metrics"
	"github.com/one-zero-eight/guard/internal/app/system/respond"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE
// app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The guard service assembles the Google
// Drive client, the document and audit stores, the grants service on top of
// them, and mounts the feature routers behind bearer-token auth.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	drive, err := gdrive.NewClient(context.Background(), appCfg.GoogleCredentialsFile, appCfg.DriveFolderID, logger)
	if err != nil {
		logger.Error("google drive client init failed", zap.Error(err))
		return nil, err
	}
	logger.Info("drive client ready", zap.String("service_account", drive.ServiceEmail()))

	verifier := auth.NewVerifier(appCfg.JWKSURL, logger)

	auditor := auditlog.New(
		audit.New(deps.GuardMongoDatabase),
		logger,
		auditlog.Config{Mode: appCfg.AuditLogMode},
	)

	svc := grants.New(
		documentstore.New(deps.GuardMongoDatabase),
		drive,
		auditor,
		appCfg.BaseURL,
		logger,
	)

	r := chi.NewRouter()

	// Unauthenticated surface: health for orchestrators, metrics for
	// scrapers.
	healthHandler := healthfeature.NewHandler(deps.GuardMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	// Everything else requires a verified bearer token.
	r.Group(func(r chi.Router) {
		r.Use(verifier.RequireUser)

		docsHandler := documentsfeature.NewHandler(svc, logger)
		docsRouter := documentsfeature.Routes(docsHandler)
		accessfeature.Attach(docsRouter, accessfeature.NewHandler(svc, logger))
		r.Mount("/documents", docsRouter)

		r.Get("/service-account-email", docsHandler.ServiceAccountEmail)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Fail(w, http.StatusNotFound, "not_found", "no such endpoint")
	})

	return r, nil
}
