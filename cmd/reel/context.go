package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/workflows"
)

type commandContext struct {
	configFlag *string
	apiKeyFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, apiKeyFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiKeyFlag: apiKeyFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		c.logger, c.loggerErr = logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Format)
	})
	return c.logger, c.loggerErr
}

// service builds the workflow service for one command invocation. The key
// override resolves flag first, environment second; with neither set the
// clients fall back to the stored credential.
func (c *commandContext) service() (*workflows.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return workflows.NewService(cfg,
		workflows.WithLogger(logger),
		workflows.WithAPIKeyOverride(c.apiKeyValue()))
}

func (c *commandContext) apiKeyValue() string {
	if c.apiKeyFlag != nil {
		if key := strings.TrimSpace(*c.apiKeyFlag); key != "" {
			return key
		}
	}
	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
