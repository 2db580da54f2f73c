package main

import (
	"os"
	"os/signal"
	"syscall"

	"k8s-agent/internal/agent"
	"k8s-agent/internal/observability"
	"k8s-agent/internal/runner"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level, err := observability.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger := observability.InitLogger("k8s-agent", level, os.Stdout)
		if level <= zerolog.DebugLevel {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}

		exec := runner.New(runner.Options{
			Shell:   runner.Shell{Path: cfg.Shell, Flag: "-c"},
			Timeout: cfg.ExecTimeout,
		})
		if cfg.ExecTimeout == 0 {
			log.Warn().Msg("no exec timeout configured, a hung command blocks its request until it exits")
		}

		router := agent.NewRouter(agent.NewHandler(exec), agent.RouterOptions{
			Logger:         logger,
			CORSOrigins:    cfg.CORSOrigins,
			MetricsEnabled: cfg.MetricsEnabled,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return agent.Serve(ctx, cfg.Addr(), router)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "bind port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
