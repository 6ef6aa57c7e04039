package main

import (
	"context"
	"os"

	"casa-backend/internal/bootstrap"
	"casa-backend/internal/shared/config"
	"casa-backend/internal/shared/server"
	"casa-backend/internal/shared/storage/db"
	"casa-backend/internal/shared/telemetry"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		telemetry.Error("api.bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	if app.DB != nil {
		if err := db.RunMigrations(ctx, app.DB); err != nil {
			telemetry.Error("api.migrations_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}

	addr := server.Addr(cfg.Port)
	telemetry.Info("api.listen", map[string]any{"addr": addr, "env": cfg.Env, "object_store": cfg.ObjectStoreType})
	if err := app.Router.Run(addr); err != nil {
		telemetry.Error("api.server_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
