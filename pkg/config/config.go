package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store and identity backends
const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
	StoreMongo     = "mongo"

	IdentityFirebase = "firebase"
	IdentityLocal    = "local"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	StoreBackend string
	MongoURI     string
	MongoDB      string
	PollInterval time.Duration

	FirebaseCredentialsPath string
	FirebaseProjectID       string
	StorageBucket           string
	UploadDir               string
	PublicURL               string

	IdentityProvider string
	PostgresConnStr  string
	JWTSecret        string

	FeedFollowCap int
	FeedLimit     int
	FanoutCap     int
}

// Load reads the configuration from the environment, after merging a .env
// file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend: getEnv("STORE_BACKEND", StoreMemory),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB", "chirp"),
		PollInterval: getDuration("POLL_INTERVAL", 2*time.Second),

		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		StorageBucket:           getEnv("STORAGE_BUCKET", ""),
		UploadDir:               getEnv("UPLOAD_DIR", "./uploads"),
		PublicURL:               getEnv("PUBLIC_URL", "http://localhost:8080"),

		IdentityProvider: getEnv("IDENTITY_PROVIDER", IdentityLocal),
		PostgresConnStr:  getEnv("POSTGRES_CONN_STR", ""),
		JWTSecret:        getEnv("JWT_SECRET", "supersecretjwtkey"),

		FeedFollowCap: getInt("FEED_FOLLOW_CAP", 10),
		FeedLimit:     getInt("FEED_LIMIT", 50),
		FanoutCap:     getInt("FANOUT_CAP", 50),
	}
}

// UsesFirebase reports whether any configured component needs the Firebase app.
func (c *Config) UsesFirebase() bool {
	return c.StoreBackend == StoreFirestore || c.IdentityProvider == IdentityFirebase || c.StorageBucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
