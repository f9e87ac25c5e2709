package comms

import (
	"fmt"
	"log/slog"
	"os"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/comms-client/internal/config"
)

const envLogPrefix = "comms:env"

// ConnectFromEnv connects to the bus using environment-driven configuration
// (COMMS_URL, SERVICE_NAME, COMMS_MIN_SERVER_VERSION, ...) and applies the
// configured log level to the default slog logger.
func ConnectFromEnv() (*comms.Conn, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load config: %w", envLogPrefix, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	return Connect(cfg.COMMSURL, cfg.COMMSName, &ConnectOpts{
		Timeout:          cfg.ConnectTimeout,
		ReconnectWait:    cfg.ReconnectWait,
		MaxReconnects:    cfg.MaxReconnects,
		MinServerVersion: cfg.MinServerVersion,
	})
}
