package config

import (
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

type Config struct {
    Env         string
    ListenAddr  string
    DatabaseURL string
    AutoMigrate bool
    DBMaxConns  int
    // SeedReference copies the bundled era dataset into the store on start.
    SeedReference bool
    // SeedFile loads products and blacklist entries into the memory store.
    SeedFile string

    LookupTimeout     time.Duration
    SideEffectWorkers int
    SideEffectQueue   int
    MaxBatchCodes     int

    // CertificateBaseURL is where passport QR codes point.
    CertificateBaseURL string

    LogLevel          string
    LogFile           string
    ReferenceDataFile string
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// Load reads the environment, after filling it from a .env file in the
// working directory when one exists. Variables already set win over .env.
// A missing DATABASE_URL is reported as an error alongside a usable config;
// callers fall back to the in-memory store.
func Load() (Config, error) {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        return Config{}, fmt.Errorf("load .env: %w", err)
    }
    cfg := Config{
        Env:               getenv("APP_ENV", "development"),
        ListenAddr:        getenv("LISTEN_ADDR", ":8080"),
        DatabaseURL:       os.Getenv("DATABASE_URL"),
        AutoMigrate:       getenvBool("AUTO_MIGRATE", false),
        DBMaxConns:        getenvInt("DB_MAX_CONNS", 10),
        SeedReference:     getenvBool("SEED_REFERENCE", false),
        SeedFile:          os.Getenv("SEED_FILE"),
        LookupTimeout:     time.Duration(getenvInt("LOOKUP_TIMEOUT_MS", 2000)) * time.Millisecond,
        SideEffectWorkers: getenvInt("SIDE_EFFECT_WORKERS", 2),
        SideEffectQueue:   getenvInt("SIDE_EFFECT_QUEUE", 256),
        MaxBatchCodes:     getenvInt("MAX_BATCH_CODES", 100),

        CertificateBaseURL: getenv("CERTIFICATE_BASE_URL", "https://kitticker.com/certificate"),

        LogLevel:          getenv("LOG_LEVEL", "info"),
        LogFile:           os.Getenv("LOG_FILE"),
        ReferenceDataFile: os.Getenv("REFERENCE_DATA_FILE"),
    }
    if cfg.LookupTimeout <= 0 {
        return cfg, fmt.Errorf("LOOKUP_TIMEOUT_MS must be positive")
    }
    if cfg.DatabaseURL == "" {
        return cfg, ErrNoDatabase
    }
    return cfg, nil
}

var ErrNoDatabase = errString("DATABASE_URL not set; using the in-memory store")

type errString string

func (e errString) Error() string { return string(e) }

func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        var out int
        _, err := fmt.Sscanf(v, "%d", &out)
        if err == nil { return out }
    }
    return def
}

func getenvBool(key string, def bool) bool {
    switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return def
}
