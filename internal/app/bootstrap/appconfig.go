// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (HTTP ports, TLS,
// logging level, CORS, body limits). AppConfig is everything specific to
// TaskForge: database location, token signing, session policy, and file
// storage.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Token configuration
	JWTSecret    string // HMAC signing secret (must be strong in production)
	JWTExpiresIn string // Token lifetime: "90s", "15m", "12h", "7d" (unit required; else 7d default)

	// Session policy
	MaxActiveSessions int // Per-user cap on concurrent device sessions

	// File storage configuration
	UploadDir string // Local path for uploaded files (e.g., "./uploads")
	UploadURL string // URL prefix for serving stored files (e.g., "/files")

	// Base URL for links in API responses
	BaseURL string // e.g., "https://taskforge.dev" or "http://localhost:3000"
}
