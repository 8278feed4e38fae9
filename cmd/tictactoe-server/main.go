package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/iguagile/iguagile-tictactoe/tictactoe"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		flags      tictactoe.Config
	)

	cmd := &cobra.Command{
		Use:   "tictactoe-server [port]",
		Short: "Multiplayer tic-tac-toe session server",
		Long: `Serves the tic-tac-toe protocol over TCP.

Port 0 (the default) lets the operating system pick a port; the chosen
port is printed on startup.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := tictactoe.DefaultConfig()
			if configPath != "" {
				loaded, err := tictactoe.LoadConfig(configPath)
				if err != nil {
					return err
				}
				config = loaded
			}

			overlay(cmd, &config, flags)
			if len(args) == 1 {
				port, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.Errorf("invalid port %q", args[0])
				}
				config.Port = port
			}

			return run(config)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "yaml configuration file")
	cmd.Flags().StringVar(&flags.Host, "host", "", "address to bind")
	cmd.Flags().StringVar(&flags.AdminAddr, "admin", "", "admin HTTP address, e.g. 127.0.0.1:9090")
	cmd.Flags().BoolVar(&flags.Websocket, "websocket", false, "accept players on the admin server at /ws")
	cmd.Flags().StringVar(&flags.RedisAddr, "redis", "", "redis address for the presence mirror")
	cmd.Flags().IntVar(&flags.MaxClients, "max-clients", 0, "maximum open connections")
	cmd.Flags().IntVar(&flags.MaxGames, "max-games", 0, "maximum concurrent games (1-256)")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error")

	return cmd
}

// overlay copies every flag the user set onto config.
func overlay(cmd *cobra.Command, config *tictactoe.Config, flags tictactoe.Config) {
	changed := cmd.Flags().Changed
	if changed("host") {
		config.Host = flags.Host
	}
	if changed("admin") {
		config.AdminAddr = flags.AdminAddr
	}
	if changed("websocket") {
		config.Websocket = flags.Websocket
	}
	if changed("redis") {
		config.RedisAddr = flags.RedisAddr
	}
	if changed("max-clients") {
		config.MaxClients = flags.MaxClients
	}
	if changed("max-games") {
		config.MaxGames = flags.MaxGames
	}
	if changed("log-level") {
		config.LogLevel = flags.LogLevel
	}
}

func run(config tictactoe.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	logger, err := config.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	server, err := tictactoe.NewServer(config, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Server is listening on port %d\n", server.Port())
	if addr := server.AdminAddr(); addr != nil {
		logger.Info("admin api", zap.Stringer("addr", addr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
