package main

import (
	"log/slog"
	"net/http"
	"parlwatch-backend/lib/configutil"
	"parlwatch-backend/lib/telemetry"
	"parlwatch-backend/lib/util/serviceutil"
	"parlwatch-backend/services/legislation"
)

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func main() {
	ctx := serviceutil.SignalContext()

	telemetry.SetupFromEnv(ctx, "legislation")
	telemetry.InstrumentPerfStats(ctx)

	config, err := configutil.ReadConfig[legislation.Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	slog.SetLogLoggerLevel(logLevel(config.LogLevel))

	service, err := legislation.NewService(config)
	if err != nil {
		serviceutil.Fatal("failed to initialize service", err)
	}

	mux := http.NewServeMux()
	service.RegisterHandlers(mux)

	port := config.Port
	if port == 0 {
		port = 9300
	}
	go serviceutil.StartHttpServer(port, mux)

	<-ctx.Done()
}
