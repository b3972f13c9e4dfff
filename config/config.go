package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Storage roots.
	SavePath     string `mapstructure:"SAVE_PATH"`
	UploadDir    string `mapstructure:"UPLOAD_DIR"`
	BundleDir    string `mapstructure:"BUNDLE_DIR"`
	ThumbnailDir string `mapstructure:"THUMBNAIL_DIR"`

	// Transfer policy.
	SafetyFilter        bool `mapstructure:"SAFETY_FILTER"`
	OverwriteDuplicates bool `mapstructure:"OVERWRITE_DUPLICATES"`

	// Pairing and cleanup timings.
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	SweepInterval     time.Duration `mapstructure:"SWEEP_INTERVAL"`
	PlaceholderMaxAge time.Duration `mapstructure:"PLACEHOLDER_MAX_AGE"`
	BundleMaxAge      time.Duration `mapstructure:"BUNDLE_MAX_AGE"`

	// Analytics backend: "file" or "redis".
	AnalyticsBackend string `mapstructure:"ANALYTICS_BACKEND"`
	AnalyticsFile    string `mapstructure:"ANALYTICS_FILE"`

	// Redis configuration.
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisAnalyticsDB int    `mapstructure:"REDIS_ANALYTICS_DB"`

	// TLS bootstrap.
	TLSEnabled  bool   `mapstructure:"TLS_ENABLED"`
	TLSCertFile string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile  string `mapstructure:"TLS_KEY_FILE"`

	// Local network advertisement.
	MDNSEnabled bool   `mapstructure:"MDNS_ENABLED"`
	MDNSName    string `mapstructure:"MDNS_NAME"`

	// Only honour the X-Is-Host header from loopback clients.
	HostLoopbackOnly bool `mapstructure:"HOST_LOOPBACK_ONLY"`
}

var AppConfig Config

// SetDefaults registers every default value with viper.
func SetDefaults() {
	viper.SetDefault("APP_PORT", "8000")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 600)
	viper.SetDefault("SAVE_PATH", "data/received")
	viper.SetDefault("UPLOAD_DIR", "data/sessions")
	viper.SetDefault("BUNDLE_DIR", "data/bundles")
	viper.SetDefault("THUMBNAIL_DIR", "data/.thumbnails")
	viper.SetDefault("SAFETY_FILTER", true)
	viper.SetDefault("OVERWRITE_DUPLICATES", false)
	viper.SetDefault("SESSION_TTL", 120*time.Second)
	viper.SetDefault("SWEEP_INTERVAL", 60*time.Second)
	viper.SetDefault("PLACEHOLDER_MAX_AGE", 60*time.Second)
	viper.SetDefault("BUNDLE_MAX_AGE", time.Hour)
	viper.SetDefault("ANALYTICS_BACKEND", "file")
	viper.SetDefault("ANALYTICS_FILE", "data/.metadata/transfer_history.json")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_ANALYTICS_DB", 0)
	viper.SetDefault("TLS_ENABLED", true)
	viper.SetDefault("TLS_CERT_FILE", "cert.pem")
	viper.SetDefault("TLS_KEY_FILE", "key.pem")
	viper.SetDefault("MDNS_ENABLED", true)
	viper.SetDefault("MDNS_NAME", "turbotransfer.local")
	viper.SetDefault("HOST_LOOPBACK_ONLY", true)
}

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
