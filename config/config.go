// Package config loads the service configuration: a Server document named
// on the command line, plus the Webhook and Rules documents its `configs`
// globs point at. Everything is validated here; configuration problems are
// fatal and surface before the listener binds.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DefaultServerFile is used when no --config flag is given.
const DefaultServerFile = "server.yaml"

const defaultDrainTimeout = 30 * time.Second

// Load reads the Server document at path and every configuration document
// it references, returning the fully resolved, validated configuration.
func Load(path string) (*Config, error) {
	server, err := loadServer(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:      *server,
		TemplateEnv: map[string]string{},
	}

	docs, err := expandConfigGlobs(filepath.Dir(path), server.Configs)
	if err != nil {
		return nil, err
	}

	loader := newDocumentLoader(cfg)
	for _, doc := range docs {
		if err := loader.loadFile(doc); err != nil {
			return nil, err
		}
	}

	if err := loader.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadServer reads the Server document with viper, applying defaults.
func loadServer(path string) (*ServerSpec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("spec.host", "0.0.0.0")
	v.SetDefault("spec.port", 8080)
	v.SetDefault("spec.logging.level", "info")
	v.SetDefault("spec.logging.format", "console")
	v.SetDefault("spec.shutdown.drainTimeout", defaultDrainTimeout)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read server config %s: %w", path, err)
	}

	if av := v.GetString("apiVersion"); av != APIVersion {
		return nil, fmt.Errorf("%s: unsupported apiVersion %q", path, av)
	}
	if kind := v.GetString("kind"); kind != KindServer {
		return nil, fmt.Errorf("%s: expected kind %s, got %q", path, KindServer, kind)
	}

	spec := &ServerSpec{
		Host: v.GetString("spec.host"),
		Port: v.GetInt("spec.port"),
		Logging: LoggingSpec{
			Level:  v.GetString("spec.logging.level"),
			Format: v.GetString("spec.logging.format"),
		},
		Configs:      v.GetStringSlice("spec.configs"),
		DrainTimeout: v.GetDuration("spec.shutdown.drainTimeout"),
	}
	if spec.Port <= 0 || spec.Port > 65535 {
		return nil, fmt.Errorf("%s: invalid port %d", path, spec.Port)
	}
	return spec, nil
}

// resolveEnv returns the value of a *FromEnv reference and records it in
// the template environment. A referenced variable that is absent fails
// configuration load.
func (c *Config) resolveEnv(name, where string) (string, error) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("%s references environment variable %s, which is not set", where, name)
	}
	c.TemplateEnv[name] = value
	return value, nil
}
