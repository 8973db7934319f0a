package config

import (
	"errors"

	"github.com/caarlos0/env/v9"
)

var (
	ErrMissingDB     = errors.New("DB_USER, DB_HOST and DB_NAME are required for the mysql store")
	ErrMissingSecret = errors.New("SESSION_SECRET is required")
)

type Config struct {
	Port                   string `env:"PORT" envDefault:"8080"`
	// StoreBackend is mysql, or memory for local runs without a database.
	StoreBackend           string `env:"STORE_BACKEND" envDefault:"mysql"`
	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	StorageProvider string `env:"STORAGE_PROVIDER" envDefault:"gcs"` // gcs or cloudinary
	StorageBucket   string `env:"STORAGE_BUCKET"`
	CloudinaryURL   string `env:"CLOUDINARY_URL"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`

	OTPFunctionURL string `env:"OTP_FUNCTION_URL"`
	OTPFunctionKey string `env:"OTP_FUNCTION_KEY"`
	// OTPDemoCode short-circuits the send-otp function; local development only.
	OTPDemoCode string `env:"OTP_DEMO_CODE"`

	SessionSecret   string `env:"SESSION_SECRET"`
	SessionTTLHours int    `env:"SESSION_TTL_HOURS" envDefault:"12"`
	CookieSecure    bool   `env:"COOKIE_SECURE" envDefault:"true"`

	GeminiAPIKey        string `env:"GEMINI_API_KEY"`
	GeminiCategoryModel string `env:"GEMINI_CATEGORY_MODEL" envDefault:"gemini-2.5-flash"`

	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX" envDefault:"vercel.app"`
}

func parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) hasDB() bool {
	return c.DBUser != "" && c.DBHost != "" && c.DBName != ""
}

// Load is the API server configuration.
func Load() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if cfg.StoreBackend == "mysql" && !cfg.hasDB() {
		return nil, ErrMissingDB
	}
	if cfg.SessionSecret == "" {
		return nil, ErrMissingSecret
	}
	return cfg, nil
}

// LoadDB is the configuration of tools that only talk to the database.
func LoadDB() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if !cfg.hasDB() {
		return nil, ErrMissingDB
	}
	return cfg, nil
}
