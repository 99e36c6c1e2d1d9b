package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatbridge/internal/channel"
	"chatbridge/internal/config"
	"chatbridge/internal/correlate"
	"chatbridge/internal/domain"
	"chatbridge/internal/history"
	"chatbridge/internal/media"
	"chatbridge/internal/metrics"
	"chatbridge/internal/relay"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "chatbridge",
		Short: "chatbridge: bidirectional Discord-Telegram message relay",
		Long:  "chatbridge mirrors one Discord channel and one Telegram chat into each other, including replies, media and deletions.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.chatbridge/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bridge",
		Long:  "Connects both platforms and relays until interrupted. Press Ctrl+C to stop.",
		RunE:  runBridge,
	}
}

func runBridge(cmd *cobra.Command, args []string) error {
	// .env is optional; config values reference its variables via ${VAR}.
	_ = godotenv.Load()

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.ValidateRuntime(cfg); err != nil {
		return err
	}

	logger, err = buildLogger(cfg.General)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := channel.SharedHTTPClient(60 * time.Second)

	telegram, err := channel.NewTelegram(cfg.Telegram.Token, cfg.Telegram.PollTimeoutSeconds, logger)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	webhook, err := channel.NewWebhook(cfg.Discord.WebhookURL, httpClient, logger)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}

	discord, err := channel.NewDiscord(cfg.Discord.Token, logger)
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}

	var historyStore domain.HistoryStore
	if cfg.Relay.HistoryEnabled {
		store, err := history.NewSQLiteStore(cfg.Relay.HistoryDBPath, logger)
		if err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		defer store.Close()
		historyStore = store
	}

	engine := relay.NewEngine(relay.Config{
		DiscordChannelID: cfg.Discord.ChannelID,
		TelegramChatID:   cfg.Telegram.ChatID,
		CorrelatePolicy:  cfg.Relay.CorrelatePolicy,
		Telegram:         telegram,
		Discord:          discord,
		Webhook:          webhook,
		Media:            media.NewDownloader(httpClient, logger),
		Store:            correlate.NewStore(),
		History:          historyStore,
		Logger:           logger,
	})

	if err := discord.Start(ctx, engine); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		ops := metrics.NewServer(cfg.Metrics.Host, cfg.Metrics.Port, metrics.Default, logger)
		go func() {
			if err := ops.Start(ctx); err != nil {
				logger.Error("ops server error", "err", err)
			}
		}()
	}

	poller := relay.NewPoller(telegram, engine,
		time.Duration(cfg.Telegram.PollIntervalSeconds)*time.Second,
		time.Duration(cfg.Telegram.BackoffSeconds)*time.Second,
		logger,
	)

	logger.Info("bridge started", "version", version,
		"discord_channel", cfg.Discord.ChannelID,
		"telegram_chat", cfg.Telegram.ChatID,
	)

	// The poll loop is the foreground; it returns on signal.
	poller.Run(ctx)

	logger.Info("shutting down bridge...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := discord.Close(); err != nil {
			logger.Warn("discord close failed", "err", err)
		}
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

// buildLogger constructs the run logger from general config: level from
// logLevel, output tee'd to logFile when set.
func buildLogger(cfg config.GeneralConfig) (*slog.Logger, error) {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				return nil
			}
			logger.Info("config", "path", cfgPath, "loaded", true)
			if err := config.ValidateRuntime(cfg); err != nil {
				logger.Info("credentials", "complete", false, "err", err)
			} else {
				logger.Info("credentials", "complete", true)
			}
			logger.Info("relay",
				"correlatePolicy", cfg.Relay.CorrelatePolicy,
				"history", cfg.Relay.HistoryEnabled,
				"metrics", cfg.Metrics.Enabled,
			)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent relay log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.Relay.HistoryEnabled {
				return fmt.Errorf("relay.historyEnabled is false")
			}

			store, err := history.NewSQLiteStore(cfg.Relay.HistoryDBPath, logger)
			if err != nil {
				return fmt.Errorf("history store: %w", err)
			}
			defer store.Close()

			recs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range recs {
				status := "ok"
				if !r.OK {
					status = "failed: " + r.Detail
				}
				fmt.Printf("%s  %-20s %-9s %s -> %s  %s  [%s]\n",
					r.CreatedAt.Format(time.RFC3339), r.Direction, r.Kind,
					r.SourceID, r.DestID, r.Author, status)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. relay.correlatePolicy)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. relay.correlatePolicy all)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
