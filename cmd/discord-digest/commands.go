package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ryosukesatoh/discord-digest/internal/config"
	"github.com/ryosukesatoh/discord-digest/internal/observability"
	"github.com/ryosukesatoh/discord-digest/internal/publisher"
	"github.com/ryosukesatoh/discord-digest/internal/sentiment"
)

const appName = "discord-digest"

const defaultSentimentURL = "https://api.alternative.me/fng/"

func newRootCmd(version string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Discord bot that summarizes channels and posts a daily Fear & Greed report",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(appName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	cmd.AddCommand(
		newServeCmd(&configPath),
		newFNGCmd(),
	)
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and run the bot (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

func newFNGCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "fng",
		Short: "Print the current Crypto Fear & Greed Index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := sentiment.NewClient(url).Fetch(cmd.Context())
			if err != nil {
				return err
			}
			return publisher.NewStdoutPublisher(cmd.OutOrStdout()).Publish(cmd.Context(), report)
		},
	}
	cmd.Flags().StringVar(&url, "url", defaultSentimentURL, "Fear & Greed API endpoint")
	return cmd
}

// serve runs the bot until SIGINT or SIGTERM.
func serve(parent context.Context, configPath string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		observability.Logger().Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	observability.Setup(os.Stdout, cfg.Log.Format, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	return a.run(ctx)
}
