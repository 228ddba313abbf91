package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Storage drivers understood by Load.
const (
	StorageMemory  = "memory"
	StorageMongoDB = "mongodb"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Gateway   GatewayConfig
	Scheduler SchedulerConfig
	Pricing   PricingConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// WhatsAppConfig contains credentials for the Meta WhatsApp Cloud API. Push
// notifications are disabled when AccessToken is empty.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
}

// Enabled reports whether WhatsApp push notifications are configured.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// SheetsConfig configures the stock ledger mirror. The mirror is disabled when
// SpreadsheetID is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	LedgerRange     string
}

// Enabled reports whether the ledger mirror is configured.
func (c SheetsConfig) Enabled() bool {
	return c.SpreadsheetID != ""
}

// GatewayConfig configures the card payment gateway.
type GatewayConfig struct {
	BaseURL   string
	SecretKey string
	Currency  string
	Timeout   time.Duration
}

// SchedulerConfig holds settings for the background poll loop.
type SchedulerConfig struct {
	Schedule         string
	Timezone         string
	ReminderAfter    time.Duration
	LowCapacityRatio float64
}

// PricingConfig holds the placeholder unit price applied to order lines.
type PricingConfig struct {
	DefaultUnitPrice decimal.Decimal
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	reminderDays, err := getenvInt("PAYMENT_REMINDER_DAYS", 7)
	if err != nil {
		return nil, err
	}
	lowCapacity, err := getenvFloat("LOW_CAPACITY_RATIO", 0.2)
	if err != nil {
		return nil, err
	}
	gatewayTimeout, err := getenvDuration("PAYMENT_GATEWAY_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	unitPrice, err := decimal.NewFromString(getenvWithDefault("DEFAULT_UNIT_PRICE", "10.00"))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_UNIT_PRICE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Storage: StorageConfig{
			Driver: getenvWithDefault("STORAGE_DRIVER", StorageMongoDB),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "supplychain"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_LEDGER_ID"),
			LedgerRange:     getenvWithDefault("GOOGLE_SHEET_LEDGER_RANGE", "StockMovements!A:K"),
		},
		Gateway: GatewayConfig{
			BaseURL:   getenvWithDefault("PAYMENT_GATEWAY_URL", "https://api.stripe.com"),
			SecretKey: os.Getenv("PAYMENT_GATEWAY_SECRET_KEY"),
			Currency:  getenvWithDefault("PAYMENT_CURRENCY", "usd"),
			Timeout:   gatewayTimeout,
		},
		Scheduler: SchedulerConfig{
			Schedule:         getenvWithDefault("POLL_SCHEDULE", "@every 24h"),
			Timezone:         getenvWithDefault("TIMEZONE", "Africa/Conakry"),
			ReminderAfter:    time.Duration(reminderDays) * 24 * time.Hour,
			LowCapacityRatio: lowCapacity,
		},
		Pricing: PricingConfig{
			DefaultUnitPrice: unitPrice,
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER %q is not supported", c.Storage.Driver)
	}

	if c.WhatsApp.Enabled() {
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if c.Sheets.Enabled() && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided when GOOGLE_SHEET_LEDGER_ID is set")
	}

	if c.Gateway.BaseURL == "" {
		return errors.New("PAYMENT_GATEWAY_URL must not be empty")
	}
	if c.Gateway.Currency == "" {
		return errors.New("PAYMENT_CURRENCY must not be empty")
	}

	if c.Scheduler.Schedule == "" {
		return errors.New("POLL_SCHEDULE must be provided")
	}
	if c.Scheduler.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if c.Scheduler.ReminderAfter <= 0 {
		return errors.New("PAYMENT_REMINDER_DAYS must be positive")
	}
	if c.Scheduler.LowCapacityRatio <= 0 || c.Scheduler.LowCapacityRatio >= 1 {
		return errors.New("LOW_CAPACITY_RATIO must be between 0 and 1")
	}

	if c.Pricing.DefaultUnitPrice.IsNegative() {
		return errors.New("DEFAULT_UNIT_PRICE must not be negative")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
