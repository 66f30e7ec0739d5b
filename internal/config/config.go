// Package config loads process configuration from the environment,
// following the teacher's getEnv-with-default convention but expanded
// to the surface this core actually needs: database/broker/object
// store DSNs, the encryption passphrase, per-platform OAuth client
// credentials and redirect URIs, Twitter's extra app-level
// credential, and the scheduler/dispatcher tuning knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/videocast/scheduler/internal/platformcore"
)

type Config struct {
	Database    DatabaseConfig
	Broker      BrokerConfig
	ObjectStore ObjectStoreConfig
	Security    SecurityConfig
	Platforms   map[platformcore.Platform]PlatformConfig
	Twitter     TwitterAppCredential
	Scheduler   SchedulerConfig
	Dispatcher  DispatcherConfig
}

type DatabaseConfig struct {
	URL string
}

// BrokerConfig selects and configures the Job Broker Interface
// implementation (C8): an empty URL falls back to the in-process
// memorybroker, used for local development and tests.
type BrokerConfig struct {
	URL   string
	Queue string
}

type ObjectStoreConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// SecurityConfig carries the Encrypted Secret Store's (C2) passphrase
// and salt, and the process secret the OAuth state signer
// (internal/app's StateSigner) HMACs with.
type SecurityConfig struct {
	EncryptionKey  string
	EncryptionSalt string
	StateSecret    string
}

// PlatformConfig is one platform's OAuth client registration.
type PlatformConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// TwitterAppCredential is the OAuth 1.0a application credential
// Twitter's media-upload endpoint requires alongside the per-user
// bearer token (§4.3's RequiresAppCred capability).
type TwitterAppCredential struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

type SchedulerConfig struct {
	Tick time.Duration
}

type DispatcherConfig struct {
	Concurrency     int
	PublishDeadline time.Duration
}

// Load reads configuration from the environment, applying a .env file
// first if present (silently ignored when absent, matching the
// teacher's cmd/*/main.go startup sequence).
func Load() (*Config, error) {
	_ = godotenv.Load()

	encryptionKey := getEnv("ENCRYPTION_KEY", "")
	if encryptionKey == "" {
		return nil, fmt.Errorf("config: ENCRYPTION_KEY is required")
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Broker: BrokerConfig{
			URL:   getEnv("JOB_BROKER_URL", ""),
			Queue: getEnv("JOB_QUEUE_NAME", "posts"),
		},
		ObjectStore: ObjectStoreConfig{
			Bucket:    getEnv("OBJECT_STORE_BUCKET", ""),
			Region:    getEnv("OBJECT_STORE_REGION", ""),
			Endpoint:  getEnv("OBJECT_STORE_ENDPOINT", ""),
			AccessKey: getEnv("OBJECT_STORE_ACCESS_KEY", ""),
			SecretKey: getEnv("OBJECT_STORE_SECRET_KEY", ""),
		},
		Security: SecurityConfig{
			EncryptionKey:  encryptionKey,
			EncryptionSalt: getEnv("ENCRYPTION_SALT", "videocast-scheduler"),
			StateSecret:    getEnv("OAUTH_STATE_SECRET", encryptionKey),
		},
		Twitter: TwitterAppCredential{
			APIKey:            getEnv("TWITTER_API_KEY", ""),
			APISecret:         getEnv("TWITTER_API_SECRET", ""),
			AccessToken:       getEnv("TWITTER_ACCESS_TOKEN", ""),
			AccessTokenSecret: getEnv("TWITTER_ACCESS_TOKEN_SECRET", ""),
		},
		Scheduler: SchedulerConfig{
			Tick: getEnvDuration("SCHEDULER_TICK_MS", 30_000),
		},
		Dispatcher: DispatcherConfig{
			Concurrency:     getEnvInt("DISPATCHER_CONCURRENCY", 4),
			PublishDeadline: getEnvDuration("PUBLISH_DEADLINE_MS", 30*60*1000),
		},
	}

	cfg.Platforms = map[platformcore.Platform]PlatformConfig{}
	for _, p := range platformcore.AllPlatforms {
		cfg.Platforms[p] = PlatformConfig{
			ClientID:     getEnv(string(p)+"_CLIENT_ID", ""),
			ClientSecret: getEnv(string(p)+"_CLIENT_SECRET", ""),
			RedirectURI:  getEnv(string(p)+"_REDIRECT_URI", ""),
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultMS int) time.Duration {
	ms := getEnvInt(key, defaultMS)
	return time.Duration(ms) * time.Millisecond
}
