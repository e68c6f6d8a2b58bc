// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration: WAFFLE's CoreConfig handles
// framework-level settings like HTTP/HTTPS ports, TLS, logging level and
// CORS. Everything specific to the guard service lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Bearer-token verification
	JWKSURL string // JWKS endpoint of the identity provider that signs API tokens

	// Google service account
	GoogleCredentialsFile string // Path to the service account JSON key
	DriveFolderID         string // Drive folder that receives provisioned files (blank for root)

	// Base URL for join links handed to document authors
	BaseURL string // e.g., "https://api.example.org"

	// Audit logging: 'all' (db+log), 'db', 'log', or 'off'
	AuditLogMode string
}
