package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	coremetrics "github.com/haulplan/haulplan/core/metrics"
	"github.com/haulplan/haulplan/core/realtime"
	"github.com/haulplan/haulplan/infra/mqttchan"
	"github.com/haulplan/haulplan/infra/rest"
)

// Config is the root configuration for a board session service.
type Config struct {
	Backend rest.Config        `json:"backend"`
	Channel realtime.Config    `json:"channel"`
	MQTT    mqttchan.Config    `json:"mqtt"`
	Metrics coremetrics.Config `json:"metrics"`
}

// Load reads the configuration file (json or yaml by extension) and applies
// HP_-prefixed environment overrides, HP_CHANNEL__MAX_ATTEMPTS=5 style.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("HP_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "hp_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Backend.SetDefaults()
	cfg.Channel.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Backend.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Channel.Validate(); err != nil {
		return nil, err
	}
	if cfg.Channel.Transport == "mqtt" {
		if err := cfg.MQTT.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
