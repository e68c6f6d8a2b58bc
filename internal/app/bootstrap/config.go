// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the guard service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwks_url, etc.
//   - Environment variables: GUARD_MONGO_URI, GUARD_JWKS_URL, etc.
//   - Command-line flags: --mongo_uri, --jwks_url, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "guard", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Bearer-token verification
	{Name: "jwks_url", Default: "", Desc: "JWKS endpoint used to verify API bearer tokens"},

	// Google service account
	{Name: "google_credentials_file", Default: "", Desc: "Path to the Google service account JSON key"},
	{Name: "drive_folder_id", Default: "", Desc: "Drive folder that receives provisioned files (blank for root)"},

	// Base URL for join links handed to document authors
	{Name: "base_url", Default: "http://localhost:8000", Desc: "Base URL for join links"},

	// Audit logging settings
	{Name: "audit_log_mode", Default: "all", Desc: "Audit event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have access
// to configuration before any backends or handlers are built. CoreConfig
// comes from the shared WAFFLE layer; AppConfig is specific to this app.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "GUARD", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWKSURL: appValues.String("jwks_url"),

		GoogleCredentialsFile: appValues.String("google_credentials_file"),
		DriveFolderID:         appValues.String("drive_folder_id"),

		BaseURL: strings.TrimRight(appValues.String("base_url"), "/"),

		AuditLogMode: appValues.String("audit_log_mode"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Required fields are enforced here so a misconfigured deployment fails
// before it starts serving.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.JWKSURL == "" {
		return fmt.Errorf("jwks_url is required to verify bearer tokens")
	}
	if _, err := url.ParseRequestURI(appCfg.JWKSURL); err != nil {
		return fmt.Errorf("invalid jwks_url: %w", err)
	}

	if appCfg.GoogleCredentialsFile == "" {
		return fmt.Errorf("google_credentials_file is required")
	}

	switch appCfg.AuditLogMode {
	case "all", "db", "log", "off":
	default:
		return fmt.Errorf("audit_log_mode must be 'all', 'db', 'log' or 'off', got %q", appCfg.AuditLogMode)
	}

	return nil
}
