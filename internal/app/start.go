package app

import (
	"fmt"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/logging"
)

// Start loads the configuration file and builds the program's logger at
// log.level. The logger also becomes the global one.
func Start(name, configPath string) (*config.Config, logging.Logger, error) {
	if err := config.InitGlobal(configPath); err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.Get()

	logger, err := logging.NewLoggerAtLevel(name, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logging.ReplaceGlobal(logger)
	logger.Debugw("configuration loaded", "path", configPath, "compass_source", cfg.Compass.Source, "gps_source", cfg.GPS.Source)
	return cfg, logger, nil
}
