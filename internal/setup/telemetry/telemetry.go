// Package telemetry exports traces and error logs to Uptrace.
package telemetry

import (
	"context"

	"github.com/ora-civic/ora/internal/setup/config"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.uber.org/zap"
)

// ServiceName identifies ORA in exported telemetry.
const ServiceName = "ora"

// Setup configures the global OpenTelemetry providers when a DSN is set and
// returns the shutdown function. Without a DSN spans are discarded.
func Setup(cfg *config.Telemetry, logger *zap.Logger) func(context.Context) error {
	if cfg.UptraceDSN == "" {
		return func(context.Context) error { return nil }
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(ServiceName),
		uptrace.WithServiceVersion(config.RepositoryVersion),
		uptrace.WithDeploymentEnvironment(cfg.Environment),
	)

	logger.Info("Telemetry export enabled", zap.String("environment", cfg.Environment))
	return uptrace.Shutdown
}
