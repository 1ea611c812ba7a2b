package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	BucketCaptures string
	UseSSL         bool
	Region         string
}

type SecurityConfig struct {
	JWTAccessSecret  string
	JWTRefreshTTL    time.Duration
	JWTAccessTTL     time.Duration
	SignatureSecret  string
	RequireSignature bool
	TicketTTL        time.Duration
	MaxSessions      int
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsJSON string
	CredentialsFile string
}

type ModelConfig struct {
	Endpoint string
	APIKey   string
	Name     string
	Timeout  time.Duration
}

type KYCConfig struct {
	DraftTTL     time.Duration
	MaxUploadMB  int64
	JPEGQuality  int
	ModelTimeout time.Duration
}

type TelemetryConfig struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

type RateLimitConfig struct {
	AuthPerMinute int
}

type AdminConfig struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type AppConfig struct {
	Environment      string
	NodeID           int64
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Firebase         FirebaseConfig
	Model            ModelConfig
	KYC              KYCConfig
	Telemetry        TelemetryConfig
	RateLimit        RateLimitConfig
	Admin            AdminConfig
	Worker           WorkerConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("RIDEDESK")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	setDefaults(v)
	setWorkerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	if c.Security.JWTAccessSecret == "" && c.Environment == "production" {
		return fmt.Errorf("security.jwtaccesssecret is required in production")
	}
	if c.KYC.JPEGQuality < 1 || c.KYC.JPEGQuality > 100 {
		return fmt.Errorf("kyc.jpegquality must be within 1..100, got %d", c.KYC.JPEGQuality)
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("nodeid must be within 0..1023, got %d", c.NodeID)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("nodeid", 1)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "15s")
	v.SetDefault("http.writetimeout", "90s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketcaptures", "ridedesk-captures")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.jwtrefreshttl", "720h") // 30 days
	v.SetDefault("security.tickettl", "1m")
	v.SetDefault("security.maxsessions", 10)

	v.SetDefault("model.endpoint", "https://generativelanguage.googleapis.com")
	v.SetDefault("model.name", "gemini-2.0-flash")
	v.SetDefault("model.timeout", "30s")

	v.SetDefault("kyc.draftttl", "1h")
	v.SetDefault("kyc.maxuploadmb", 12)
	v.SetDefault("kyc.jpegquality", 90)
	v.SetDefault("kyc.modeltimeout", "90s")

	v.SetDefault("telemetry.servicename", "ridedesk-api")

	v.SetDefault("ratelimit.authperminute", 60)

	v.SetDefault("admin.firstname", "Admin")
}
