package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gemstatic/gemstatic/gemini"
	"github.com/gemstatic/gemstatic/site"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the content root over Gemini",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, err := buildLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // flushing stderr can fail, nothing to do about it

			identity, err := loadIdentity(cfg, logger)
			if err != nil {
				return err
			}

			resolver := &site.Resolver{
				Root:             cfg.Root,
				Host:             cfg.Host,
				DefaultDocuments: cfg.DefaultDocuments,
				CertPaths:        cfg.CertPaths,
				Logger:           logger,
			}

			srv := &gemini.Server{
				Addr:           cfg.Listen,
				Identity:       identity,
				Handler:        resolver,
				Logger:         logger,
				ReadTimeout:    cfg.ReadTimeout,
				WriteTimeout:   cfg.WriteTimeout,
				MaxConnections: cfg.MaxConnections,
			}

			logger.Info("serving content root",
				zap.String("addr", cfg.Listen),
				zap.String("root", cfg.Root),
				zap.String("fingerprint", identity.Fingerprint()),
			)
			return srv.ListenAndServe()
		},
	}

	cmd.Flags().String("host", "", "authority rewritten links are addressed under")
	cmd.Flags().String("listen", "", "TCP address to listen on")
	cmd.Flags().String("root", "", "content root directory")
	cmd.Flags().String("cert-file", "", "TLS certificate file")
	cmd.Flags().String("key-file", "", "TLS key file")
	return cmd
}

// loadIdentity loads the configured key pair, generating and persisting a
// self-signed one when the configured files don't exist yet. With no files
// configured the identity is ephemeral, which breaks TOFU pinning across
// restarts; that's only useful for trying things out.
func loadIdentity(cfg *Config, logger *zap.Logger) (*gemini.Identity, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		host := cfg.Host
		if host == "" {
			host = "localhost"
		}
		logger.Warn("no certificate configured, generating an ephemeral identity",
			zap.String("host", host))
		return gemini.GenerateIdentity(host, 0)
	}

	if _, err := os.Stat(cfg.CertFile); err == nil {
		return gemini.LoadIdentity(cfg.CertFile, cfg.KeyFile)
	}

	host := cfg.Host
	if host == "" {
		return nil, fmt.Errorf("cannot generate a certificate without a configured host")
	}
	identity, err := gemini.GenerateIdentity(host, 0)
	if err != nil {
		return nil, err
	}
	if err := identity.WritePEM(cfg.CertFile, cfg.KeyFile); err != nil {
		return nil, err
	}
	logger.Info("generated new server identity",
		zap.String("cert", cfg.CertFile),
		zap.String("fingerprint", identity.Fingerprint()),
	)
	return identity, nil
}
