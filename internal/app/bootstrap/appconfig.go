// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds thesisai's app-level configuration. WAFFLE's CoreConfig
// covers ports, TLS, log level and body limits; everything specific to this
// service lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Redis backs the shared rate limiter. Blank RedisAddr keeps limiting
	// in memory on each instance.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Auth
	JWTSecret     string
	JWTTTL        time.Duration
	SessionKey    string
	SessionName   string
	SessionDomain string

	CORSAllowedOrigins []string

	// Rate limiting
	RateLimitEnabled   bool
	RateLimitShadow    bool
	RateLimitPerMinute int

	// Audit destinations per category (all|db|log|off) and retention of the
	// general trail.
	AuditLogAuth      string
	AuditLogFinancial string
	AuditLogSecurity  string
	AuditLogAPI       string
	AuditRetention    time.Duration

	// AI
	GenAIAPIKey string
	GenAIModel  string

	// Paper search
	PapersSemanticScholarKey string
	PapersTimeout            time.Duration
	PapersMailto             string

	// Attachment storage (S3)
	StorageS3Region   string
	StorageS3Bucket   string
	StorageS3Prefix   string
	StorageS3Endpoint string
	StoragePresignTTL time.Duration

	// Money amounts are centavos.
	PayoutMinimum      int64
	ReferralCommission int64

	NotificationTTL time.Duration
}
