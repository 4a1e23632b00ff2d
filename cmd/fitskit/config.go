package main

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envConfigPath = "FITSKIT_CONFIG"

// Config represents the fitskit configuration file
// (~/.config/fitskit/config.yaml or config.toml). Pointer fields distinguish
// "not set" from zero values.
type Config struct {
	LogLevel  string `yaml:"log_level" toml:"log_level"`
	LogFormat string `yaml:"log_format" toml:"log_format"`

	// Decoder
	MaxExtensions         *int  `yaml:"max_extensions" toml:"max_extensions"`
	DecodeImageExtensions *bool `yaml:"decode_image_extensions" toml:"decode_image_extensions"`

	// Server
	ServerAddress string `yaml:"server_address" toml:"server_address"`
	MaxDocuments  *int   `yaml:"max_documents" toml:"max_documents"`
	PreviewWidth  *int   `yaml:"preview_width" toml:"preview_width"`
}

// configPath prefers $FITSKIT_CONFIG, then config.yaml, then config.toml in
// the user config directory.
func configPath() string {
	if p := strings.TrimSpace(os.Getenv(envConfigPath)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	yamlPath := filepath.Join(dir, "fitskit", "config.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	return filepath.Join(dir, "fitskit", "config.toml")
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't
// exist or can't be parsed.
func LoadConfig() Config {
	cfg, err := readConfig(configPath())
	if err != nil {
		return Config{}
	}
	return cfg
}

func readConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyDecodeConfig applies config file defaults to the decoder flags when
// the corresponding CLI flag was not explicitly set.
func applyDecodeConfig(c *cli.Command, cfg Config) {
	if cfg.MaxExtensions != nil && !c.IsSet("max-extensions") {
		maxExtensions = *cfg.MaxExtensions
	}
	if cfg.DecodeImageExtensions != nil && !c.IsSet("image-extensions") {
		imageExtensions = *cfg.DecodeImageExtensions
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, maxDocs, previewWidth *int) {
	applyDecodeConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.MaxDocuments != nil && !c.IsSet("max-documents") {
		*maxDocs = *cfg.MaxDocuments
	}
	if cfg.PreviewWidth != nil && !c.IsSet("preview-width") {
		*previewWidth = *cfg.PreviewWidth
	}
}
