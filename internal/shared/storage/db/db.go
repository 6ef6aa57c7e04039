package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"casa-backend/internal/shared/telemetry"
)

// ErrNoURL is returned when no DATABASE_URL is configured.
var ErrNoURL = errors.New("DATABASE_URL is empty")

// Options sizes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// Profile names a process shape with its own pool defaults.
type Profile string

const (
	ProfileServer  Profile = "server"
	ProfileLambda  Profile = "lambda"
	ProfileMigrate Profile = "migrate"
)

var profileDefaults = map[Profile]Options{
	// Many warm lambdas share one Postgres; keep each pool tiny.
	ProfileLambda: {MaxOpenConns: 2, MaxIdleConns: 1, ConnMaxIdleTime: 30 * time.Second, ConnMaxLifetime: 15 * time.Minute, PingTimeout: 3 * time.Second},
	ProfileServer: {MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxIdleTime: 2 * time.Minute, ConnMaxLifetime: time.Hour, PingTimeout: 5 * time.Second},
	ProfileMigrate: {MaxOpenConns: 1, MaxIdleConns: 1, ConnMaxIdleTime: 2 * time.Minute, ConnMaxLifetime: time.Hour, PingTimeout: 5 * time.Second},
}

// Defaults returns the pool defaults for p. Unknown profiles get the server pool.
func Defaults(p Profile) Options {
	if opts, ok := profileDefaults[p]; ok {
		return opts
	}
	return profileDefaults[ProfileServer]
}

// IsLambdaRuntime reports whether the process runs inside AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// RuntimeProfile picks the pool profile for the current process.
func RuntimeProfile() Profile {
	if IsLambdaRuntime() {
		return ProfileLambda
	}
	return ProfileServer
}

type envOverrides struct {
	MaxOpenConns    *int           `env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    *int           `env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime *time.Duration `env:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime *time.Duration `env:"DB_CONN_MAX_IDLE_TIME"`
	PingTimeout     *time.Duration `env:"DB_PING_TIMEOUT"`
}

// OptionsFromEnv layers DB_* overrides on top of defaults. If any value is
// malformed the whole set is ignored and the defaults stand.
func OptionsFromEnv(defaults Options) Options {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		telemetry.Warn("db.env_invalid", map[string]any{"error": err.Error()})
		return defaults
	}
	opts := defaults
	override(&opts.MaxOpenConns, o.MaxOpenConns)
	override(&opts.MaxIdleConns, o.MaxIdleConns)
	override(&opts.ConnMaxLifetime, o.ConnMaxLifetime)
	override(&opts.ConnMaxIdleTime, o.ConnMaxIdleTime)
	override(&opts.PingTimeout, o.PingTimeout)
	return opts
}

func override[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

var openDB = sql.Open

// Connect opens a pgx-backed pool and pings it before handing it out.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, ErrNoURL
	}
	pool, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	configurePool(pool, opts)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	stats := pool.Stats()
	telemetry.Info("db.connected", map[string]any{
		"max_open": stats.MaxOpenConnections,
		"open":     stats.OpenConnections,
		"idle":     stats.Idle,
	})
	return pool, nil
}

var (
	singletonMu sync.Mutex
	singletonDB *sql.DB
)

// GetSingleton returns the process-wide pool, connecting on first use.
// Warm lambda invocations reuse it; a failed connect is retried next call.
func GetSingleton(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singletonDB != nil {
		return singletonDB, nil
	}
	pool, err := Connect(ctx, databaseURL, opts)
	if err != nil {
		return nil, err
	}
	singletonDB = pool
	telemetry.Info("db.cold_start", nil)
	return pool, nil
}

// Open connects with the pool profile that fits the runtime: a shared
// singleton inside Lambda, a dedicated pool elsewhere.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	profile := RuntimeProfile()
	opts := OptionsFromEnv(Defaults(profile))
	if profile == ProfileLambda {
		return GetSingleton(ctx, databaseURL, opts)
	}
	return Connect(ctx, databaseURL, opts)
}

func configurePool(pool *sql.DB, opts Options) {
	pool.SetMaxOpenConns(positive(opts.MaxOpenConns, 10))
	pool.SetMaxIdleConns(positive(opts.MaxIdleConns, 5))
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	pool.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func positive(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
