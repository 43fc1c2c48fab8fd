package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/campusconnect/campusconnect-server/internal/app"
	"github.com/campusconnect/campusconnect-server/internal/auth"
	"github.com/campusconnect/campusconnect-server/internal/config"
	logpkg "github.com/campusconnect/campusconnect-server/internal/log"
	"github.com/campusconnect/campusconnect-server/internal/seed"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "campusconnect",
		Short:         "Campus realtime messaging server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	serve := newServeCmd(opts)
	root.AddCommand(serve, newMigrateCmd(opts), newSeedCmd(opts))
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// loadConfig resolves configuration and builds the logger it asks for.
func loadConfig(opts *rootOptions, overrides config.Config) (*config.Config, *zerolog.Logger, error) {
	bootLogger := logpkg.New(opts.logLevel, "console")

	cfg, path, err := config.Load(bootLogger, opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.UpdateFrom(overrides)
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	logger := logpkg.New(cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("path", path).Msg("config loaded")
	return &cfg, logger, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts, config.Config{Addr: addr})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Msg("starting campusconnect server")
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts, config.Config{})
			if err != nil {
				return err
			}
			st, err := app.OpenStore(cfg)
			if err != nil {
				return err
			}
			logger.Info().Str("driver", cfg.DatabaseDriver).Msg("schema applied")
			return st.Close()
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var printTokens bool

	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load users, projects and clubs from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts, config.Config{})
			if err != nil {
				return err
			}

			fx, err := seed.Load(args[0])
			if err != nil {
				return err
			}

			st, err := app.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			res, err := seed.Apply(ctx, st, fx)
			if err != nil {
				return err
			}
			logger.Info().
				Int("users", len(res.Users)).
				Int("projects", len(res.Projects)).
				Int("clubs", len(res.Clubs)).
				Msg("fixture applied")

			if !printTokens {
				return nil
			}
			jwtConfig := app.JWTConfig(cfg)
			out := cmd.OutOrStdout()
			for _, u := range res.Users {
				token, err := auth.GenerateToken(jwtConfig, u.ID, string(u.Role))
				if err != nil {
					return fmt.Errorf("token for %s: %w", u.Email, err)
				}
				fmt.Fprintf(out, "%d\t%s\t%s\n", u.ID, u.Email, token)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&printTokens, "print-tokens", false, "print a development token per user")
	return cmd
}
