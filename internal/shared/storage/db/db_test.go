package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// withMockDB routes openDB to sqlmock connections. Each open gets its own
// mock; pings succeed unless pingErr is set.
func withMockDB(t *testing.T, pingErr error) *int {
	t.Helper()
	opened := 0
	prev := openDB
	openDB = func(driverName, dsn string) (*sql.DB, error) {
		if driverName != "pgx" {
			t.Fatalf("unexpected driver %q", driverName)
		}
		opened++
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			return nil, err
		}
		ping := mock.ExpectPing()
		if pingErr != nil {
			ping.WillReturnError(pingErr)
		}
		mock.ExpectClose()
		return db, nil
	}
	t.Cleanup(func() { openDB = prev })
	resetSingleton(t)
	return &opened
}

func resetSingleton(t *testing.T) {
	t.Helper()
	singletonMu.Lock()
	singletonDB = nil
	singletonMu.Unlock()
	t.Cleanup(func() {
		singletonMu.Lock()
		singletonDB = nil
		singletonMu.Unlock()
	})
}

func TestConnectRequiresURL(t *testing.T) {
	if _, err := Connect(context.Background(), "  ", Defaults(ProfileServer)); !errors.Is(err, ErrNoURL) {
		t.Fatalf("expected ErrNoURL, got %v", err)
	}
}

func TestConnectClosesOnPingFailure(t *testing.T) {
	withMockDB(t, errors.New("connection refused"))

	_, err := Connect(context.Background(), "postgres://casa", Defaults(ProfileServer))
	if err == nil {
		t.Fatalf("expected ping error")
	}
}

func TestGetSingletonReusesConnection(t *testing.T) {
	opened := withMockDB(t, nil)

	db1, err := GetSingleton(context.Background(), "postgres://casa", Defaults(ProfileLambda))
	if err != nil {
		t.Fatalf("GetSingleton first: %v", err)
	}
	db2, err := GetSingleton(context.Background(), "postgres://casa", Defaults(ProfileLambda))
	if err != nil {
		t.Fatalf("GetSingleton second: %v", err)
	}
	if db1 != db2 || *opened != 1 {
		t.Fatalf("expected one shared pool, opened %d", *opened)
	}
	if got := db1.Stats().MaxOpenConnections; got != 2 {
		t.Fatalf("expected lambda pool of 2, got %d", got)
	}
}

func TestGetSingletonRetriesAfterFailure(t *testing.T) {
	calls := 0
	prev := openDB
	openDB = func(string, string) (*sql.DB, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("dns lookup failed")
		}
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			return nil, err
		}
		mock.ExpectPing()
		return db, nil
	}
	t.Cleanup(func() { openDB = prev })
	resetSingleton(t)

	if _, err := GetSingleton(context.Background(), "postgres://casa", Defaults(ProfileLambda)); err == nil {
		t.Fatalf("expected first call to fail")
	}
	db, err := GetSingleton(context.Background(), "postgres://casa", Defaults(ProfileLambda))
	if err != nil || db == nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")

	opts := OptionsFromEnv(Defaults(ProfileServer))
	want := Options{
		MaxOpenConns:    7,
		MaxIdleConns:    3,
		ConnMaxLifetime: 20 * time.Minute,
		ConnMaxIdleTime: 45 * time.Second,
		PingTimeout:     Defaults(ProfileServer).PingTimeout,
	}
	if opts != want {
		t.Fatalf("unexpected options %+v, want %+v", opts, want)
	}
}

func TestOptionsFromEnvIgnoresMalformedSet(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_PING_TIMEOUT", "not-a-duration")

	if opts := OptionsFromEnv(Defaults(ProfileLambda)); opts != Defaults(ProfileLambda) {
		t.Fatalf("expected lambda defaults, got %+v", opts)
	}
}

func TestRuntimeProfile(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	if RuntimeProfile() != ProfileServer {
		t.Fatalf("expected server profile outside lambda")
	}
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "casa-api")
	if RuntimeProfile() != ProfileLambda {
		t.Fatalf("expected lambda profile inside lambda")
	}
}

func TestOpenInLambdaSharesPool(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "casa-api")
	opened := withMockDB(t, nil)

	first, err := Open(context.Background(), "postgres://casa")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	second, err := Open(context.Background(), "postgres://casa")
	if err != nil {
		t.Fatalf("Open again: %v", err)
	}
	if first != second || *opened != 1 {
		t.Fatalf("expected shared pool, opened %d", *opened)
	}
}

func TestUnknownProfileUsesServerPool(t *testing.T) {
	if Defaults("batch") != Defaults(ProfileServer) {
		t.Fatalf("expected server defaults for unknown profile")
	}
}
