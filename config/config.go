package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	// SelfDeliveryDirect keeps a self-delivering donor's donation in "claimed"
	// until delivered; SelfDeliveryTransit moves it to "in_transit" on accept.
	SelfDeliveryDirect  = "direct"
	SelfDeliveryTransit = "transit"
)

type Config struct {
	ServiceName string
	LoggerLevel string

	HTTPPort       int
	RateLimitRPS   float64
	RateLimitBurst int

	StorageDriver string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	MigrationsPath   string

	RedisHost           string
	RedisPort           string
	RedisPassword       string
	LeaderboardCacheTTL time.Duration

	TelegramBotToken string

	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderRPS       float64
	DefaultLat        float64
	DefaultLng        float64

	SelfDeliveryPolicy      string
	VolunteerDeliveryPoints int64
	DonorCompletionPoints   int64
	DefaultExpiryHours      int
	ReconcileOnStart        bool
}

func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrReturnDefault("SERVICE_NAME", "foodshare"))
	cfg.LoggerLevel = cast.ToString(getOrReturnDefault("LOGGER_LEVEL", "debug"))

	cfg.HTTPPort = cast.ToInt(getOrReturnDefault("HTTP_PORT", 5000))
	cfg.RateLimitRPS = cast.ToFloat64(getOrReturnDefault("RATE_LIMIT_RPS", 10))
	cfg.RateLimitBurst = cast.ToInt(getOrReturnDefault("RATE_LIMIT_BURST", 20))

	cfg.StorageDriver = cast.ToString(getOrReturnDefault("STORAGE_DRIVER", StorageDriverPostgres))

	cfg.PostgresHost = cast.ToString(getOrReturnDefault("POSTGRES_HOST", "localhost"))
	cfg.PostgresPort = cast.ToString(getOrReturnDefault("POSTGRES_PORT", "5432"))
	cfg.PostgresUser = cast.ToString(getOrReturnDefault("POSTGRES_USER", "postgres"))
	cfg.PostgresPassword = cast.ToString(getOrReturnDefault("POSTGRES_PASSWORD", "1234"))
	cfg.PostgresDB = cast.ToString(getOrReturnDefault("POSTGRES_DB", "foodshare"))
	cfg.MigrationsPath = cast.ToString(getOrReturnDefault("MIGRATIONS_PATH", "migrations"))

	cfg.RedisHost = cast.ToString(getOrReturnDefault("REDIS_HOST", ""))
	cfg.RedisPort = cast.ToString(getOrReturnDefault("REDIS_PORT", "6379"))
	cfg.RedisPassword = cast.ToString(getOrReturnDefault("REDIS_PASSWORD", ""))
	cfg.LeaderboardCacheTTL = cast.ToDuration(getOrReturnDefault("LEADERBOARD_CACHE_TTL", "5s"))

	cfg.TelegramBotToken = cast.ToString(getOrReturnDefault("TG_BOT_TOKEN", ""))

	cfg.GeocoderURL = cast.ToString(getOrReturnDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org"))
	cfg.GeocoderUserAgent = cast.ToString(getOrReturnDefault("GEOCODER_USER_AGENT", "foodshare/1.0"))
	cfg.GeocoderRPS = cast.ToFloat64(getOrReturnDefault("GEOCODER_RPS", 1))
	cfg.DefaultLat = cast.ToFloat64(getOrReturnDefault("DEFAULT_LAT", 12.9716))
	cfg.DefaultLng = cast.ToFloat64(getOrReturnDefault("DEFAULT_LNG", 77.5946))

	cfg.SelfDeliveryPolicy = cast.ToString(getOrReturnDefault("SELF_DELIVERY_POLICY", SelfDeliveryDirect))
	cfg.VolunteerDeliveryPoints = cast.ToInt64(getOrReturnDefault("VOLUNTEER_DELIVERY_POINTS", 50))
	cfg.DonorCompletionPoints = cast.ToInt64(getOrReturnDefault("DONOR_COMPLETION_POINTS", 20))
	cfg.DefaultExpiryHours = cast.ToInt(getOrReturnDefault("DEFAULT_EXPIRY_HOURS", 24))
	cfg.ReconcileOnStart = cast.ToBool(getOrReturnDefault("RECONCILE_ON_START", false))

	return cfg
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
