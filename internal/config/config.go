package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully-resolved runtime configuration, loaded by Load via
// Viper with environment variables and an optional .env file, laid out as
// typed nested structs with manual default fallback.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	RedisStreams RedisStreamsConfig
	Cache        CacheConfig
	Search       SearchConfig
	Registration RegistrationConfig
	Lock         LockConfig
	Reconciler   ReconcilerConfig
	Log          LogConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisStreamsConfig is deliberately a separate connection target from
// RedisConfig so event-stream backpressure never blocks cache traffic.
type RedisStreamsConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	L1Size                int
	L1TTL                 time.Duration
	L2TTL                 time.Duration
	EarlyExpirationFactor float64
	AutoRenewalInterval   time.Duration
}

type SearchConfig struct {
	DefaultRadiusKm   float64
	MaxRadiusKm       float64
	DefaultMaxResults int
	MaxResults        int
}

type RegistrationConfig struct {
	MinInterBranchKm   float64
	SaturationRadiusKm float64
	SaturationCount    int
}

type LockConfig struct {
	AcquisitionTimeout time.Duration
}

// ReconcilerConfig configures the background store/index reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
}

type LogConfig struct {
	Level string
}

// Load reads configuration from a .env file (if present) and the process
// environment, applying the defaults from the configuration table.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // .env is optional; environment variables alone are enough

	cfg := &Config{
		Server: ServerConfig{
			Host: getString("API_HOST", "0.0.0.0"),
			Port: getInt("API_PORT", 8080),
			Env:  getString("API_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getString("DB_HOST", "localhost"),
			Port:            getInt("DB_PORT", 5432),
			User:            getString("DB_USER", "postgres"),
			Password:        getString("DB_PASSWORD", "postgres"),
			DBName:          getString("DB_NAME", "geobank"),
			SSLMode:         getString("DB_SSLMODE", "disable"),
			MaxConns:        getInt("DB_MAX_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getInt("DB_CONN_MAX_LIFETIME_SEC", 1800)) * time.Second,
			ConnMaxIdleTime: time.Duration(getInt("DB_CONN_MAX_IDLE_TIME_SEC", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Host:     getString("REDIS_HOST", "localhost"),
			Port:     getInt("REDIS_PORT", 6379),
			Password: getString("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		RedisStreams: RedisStreamsConfig{
			Host:     getString("REDIS_STREAMS_HOST", getString("REDIS_HOST", "localhost")),
			Port:     getInt("REDIS_STREAMS_PORT", getInt("REDIS_PORT", 6379)),
			Password: getString("REDIS_STREAMS_PASSWORD", getString("REDIS_PASSWORD", "")),
			DB:       getInt("REDIS_STREAMS_DB", 1),
		},
		Cache: CacheConfig{
			L1Size:                getInt("CACHE_L1_SIZE", 10_000),
			L1TTL:                 time.Duration(getInt("CACHE_L1_TTL_SEC", 300)) * time.Second,
			L2TTL:                 time.Duration(getInt("CACHE_L2_TTL_SEC", 3600)) * time.Second,
			EarlyExpirationFactor: getFloat("CACHE_EARLY_EXPIRATION_FACTOR", 0.10),
			AutoRenewalInterval:   time.Duration(getInt("CACHE_AUTO_RENEWAL_SEC", 900)) * time.Second,
		},
		Search: SearchConfig{
			DefaultRadiusKm:   getFloat("SEARCH_DEFAULT_RADIUS_KM", 10),
			MaxRadiusKm:       getFloat("SEARCH_MAX_RADIUS_KM", 100),
			DefaultMaxResults: getInt("SEARCH_DEFAULT_MAX_RESULTS", 10),
			MaxResults:        getInt("SEARCH_MAX_RESULTS", 50),
		},
		Registration: RegistrationConfig{
			MinInterBranchKm:   getFloat("REGISTRATION_MIN_INTER_BRANCH_KM", 0.5),
			SaturationRadiusKm: getFloat("REGISTRATION_SATURATION_RADIUS_KM", 5.0),
			SaturationCount:    getInt("REGISTRATION_SATURATION_COUNT", 10),
		},
		Lock: LockConfig{
			AcquisitionTimeout: time.Duration(getInt("LOCK_ACQUISITION_TIMEOUT_SEC", 10)) * time.Second,
		},
		Reconciler: ReconcilerConfig{
			Interval: time.Duration(getInt("RECONCILER_INTERVAL_SEC", 60)) * time.Second,
		},
		Log: LogConfig{
			Level: getString("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

func getString(key, def string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if viper.IsSet(key) {
		return viper.GetFloat64(key)
	}
	return def
}

// GetServerAddr returns the host:port pair the HTTP server should bind to.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetDatabaseDSN returns the libpq-style DSN for the configured database.
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the host:port pair for the cache Redis instance.
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// GetRedisStreamsAddr returns the host:port pair for the streams Redis
// instance.
func (c *Config) GetRedisStreamsAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisStreams.Host, c.RedisStreams.Port)
}
