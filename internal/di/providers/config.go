// Package providers contains dependency injection providers for the ReadUp server.
package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/listenupapp/readup-server/internal/config"
	"github.com/listenupapp/readup-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.Load(os.Args[1:])
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	var file *logger.FileConfig
	if cfg.Logger.File != "" {
		file = &logger.FileConfig{
			Path:       cfg.Logger.File,
			MaxSizeMB:  cfg.Logger.FileMaxSizeMB,
			MaxBackups: cfg.Logger.FileMaxBackups,
			MaxAgeDays: cfg.Logger.FileMaxAgeDays,
			Compress:   true,
		}
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
		File:        file,
	})

	log.Info("Starting ReadUp Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.BasePath,
	)

	return log, nil
}
