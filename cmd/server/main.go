package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/studyhall/roomchat/internal/app"
	"github.com/studyhall/roomchat/internal/config"
	"github.com/studyhall/roomchat/internal/identity"
	"github.com/studyhall/roomchat/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath  string
		addr     string
		dbPath   string
		logLevel string
	)

	root := &cobra.Command{
		Use:           "roomchat-server",
		Short:         "Room-scoped real-time chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(logLevel)

			cfg, path, err := config.Load(logger, cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger = log.New(cfg.LogLevel)
			if cmd.Flags().Changed("log-level") {
				logger = log.New(logLevel)
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if dbPath != "" {
				cfg.DatabasePath = dbPath
			}
			logger.Info().Str("config", path).Msg("configuration loaded")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Msg("starting roomchat server")
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	root.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	root.Flags().StringVar(&dbPath, "db", "", "path to the SQLite database")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	root.AddCommand(newMintTokenCmd())

	return root
}

// newMintTokenCmd mints a token for manual testing against a running server.
func newMintTokenCmd() *cobra.Command {
	var (
		cfgPath string
		secret  string
	)

	cmd := &cobra.Command{
		Use:   "mint-token <username>",
		Short: "Mint a JWT for the given username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load(nil, cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if secret != "" {
				cfg.JWTSecret = secret
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("a JWT secret is required (--secret or ROOMCHAT_JWT_SECRET)")
			}

			token, err := identity.GenerateToken(&identity.JWTConfig{
				Secret:   []byte(cfg.JWTSecret),
				Issuer:   cfg.JWTIssuer,
				Audience: cfg.JWTAudience,
				TTL:      cfg.JWTTTL,
			}, args[0])
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}

			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&secret, "secret", "", "JWT signing secret (overrides config)")

	return cmd
}
