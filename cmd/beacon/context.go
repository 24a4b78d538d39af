package main

import (
	"fmt"
	"strings"

	"beacon/internal/config"
)

// commandContext lazily resolves configuration shared by subcommands.
type commandContext struct {
	configFlag *string
	addrFlag   *string

	cfg *config.Config
}

func newCommandContext(configFlag, addrFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, addrFlag: addrFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	return cfg, nil
}

// apiBase returns the daemon base URL, preferring --addr over the config
// bind address.
func (c *commandContext) apiBase() (string, error) {
	if c.addrFlag != nil && strings.TrimSpace(*c.addrFlag) != "" {
		return "http://" + strings.TrimSpace(*c.addrFlag), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return "", fmt.Errorf("no daemon address configured; set paths.api_bind or pass --addr")
	}
	return "http://" + bind, nil
}
