package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config collects everything the server needs, resolved from the config
// file, environment and flags before any connection is accepted.
type Config struct {
	Host             string
	Listen           string
	Root             string
	CertFile         string
	KeyFile          string
	DefaultDocuments []string
	CertPaths        []string
	MaxConnections   int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	LogLevel         string
}

func loadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen", ":1965")
	v.SetDefault("root", ".")
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("gemstatic")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/gemstatic/")
	}
	v.SetEnvPrefix("GEMSTATIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Running without a config file is fine; flags and env cover it.
	}

	for _, name := range []string{"host", "listen", "root", "cert-file", "key-file"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			key := strings.ReplaceAll(name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	return &Config{
		Host:             v.GetString("host"),
		Listen:           v.GetString("listen"),
		Root:             v.GetString("root"),
		CertFile:         v.GetString("cert_file"),
		KeyFile:          v.GetString("key_file"),
		DefaultDocuments: v.GetStringSlice("default_documents"),
		CertPaths:        v.GetStringSlice("cert_paths"),
		MaxConnections:   v.GetInt("max_connections"),
		ReadTimeout:      v.GetDuration("read_timeout"),
		WriteTimeout:     v.GetDuration("write_timeout"),
		LogLevel:         v.GetString("log_level"),
	}, nil
}

func buildLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
