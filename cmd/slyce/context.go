package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"slyce/internal/artifacts"
	"slyce/internal/config"
	"slyce/internal/logging"
)

type commandContext struct {
	configFlag *string
	quietFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, quietFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		quietFlag:  quietFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) quiet() bool {
	return c.quietFlag != nil && *c.quietFlag
}

// ensureLogger builds the process logger from config. --quiet raises the
// console threshold to warnings.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		if c.quiet() {
			logger = logging.WithLevelOverride(logger, slog.LevelWarn)
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// withStore opens the artifact registry for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *artifacts.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := artifacts.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run registry: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
